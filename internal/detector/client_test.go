package detector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shenikar/civic_report_system/internal/apperrors"
	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectURL_Success(t *testing.T) {
	// Поднимаем фейковый сервис распознавания
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/detect", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn.example.com/photo.jpg", body["image_url"])

		json.NewEncoder(w).Encode(models.DetectionResult{
			Model:             "yolo",
			Detections:        []models.Detection{{Label: "pothole", Confidence: 0.92}},
			SuggestedCategory: "pothole",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	result, err := client.DetectURL(context.Background(), "https://cdn.example.com/photo.jpg")

	require.NoError(t, err)
	assert.Equal(t, "pothole", result.SuggestedCategory)
	require.Len(t, result.Detections, 1)
	assert.Equal(t, "pothole", result.Detections[0].Label)
	assert.InDelta(t, 0.92, result.Detections[0].Confidence, 1e-9)
}

func TestDetectFile_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "after.jpg", header.Filename)

		json.NewEncoder(w).Encode(models.DetectionResult{
			Detections: []models.Detection{},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	result, err := client.DetectFile(context.Background(), "after.jpg", strings.NewReader("fake image bytes"))

	require.NoError(t, err)
	assert.Empty(t, result.Detections)
}

func TestDetect_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	result, err := client.DetectURL(context.Background(), "https://cdn.example.com/photo.jpg")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
	assert.ErrorContains(t, err, "model is loading")
}

func TestDetect_Unreachable(t *testing.T) {
	// Сервер закрыт до запроса
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second)

	result, err := client.DetectURL(context.Background(), "https://cdn.example.com/photo.jpg")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
}

func TestDetect_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	result, err := client.DetectURL(context.Background(), "https://cdn.example.com/photo.jpg")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
}
