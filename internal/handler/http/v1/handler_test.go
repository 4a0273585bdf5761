package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/civic_report_system/internal/apperrors"
	"github.com/shenikar/civic_report_system/internal/config"
	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/shenikar/civic_report_system/internal/service/mocks"
	storage_mocks "github.com/shenikar/civic_report_system/pkg/storage/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestHandler создает новый экземпляр Handler с мокированным сервисом
func newTestHandler(t *testing.T) (*Handler, *mocks.MockReportService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockReportService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys: []string{"test-api-key"},
	}

	handler := NewHandler(mockService, nil, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, mockService, router
}

// newTestHandlerWithStorage - как newTestHandler, но с мокированным хранилищем фотографий
func newTestHandlerWithStorage(t *testing.T) (*Handler, *mocks.MockReportService, *storage_mocks.MockPhotoStorage, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockReportService(ctrl)
	mockStorage := storage_mocks.NewMockPhotoStorage(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"test-api-key"},
	}

	handler := NewHandler(mockService, mockStorage, logger, cfg)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, mockService, mockStorage, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateReport_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	reqBody := CreateReportRequest{
		Category:    "pothole",
		Severity:    "high",
		Description: "Глубокая яма на проезжей части",
		Latitude:    55.7558,
		Longitude:   37.6173,
		Address:     "Тверская, 1",
	}

	mockService.EXPECT().
		CreateReport(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.Report) error {
			// Симулируем работу сервиса и БД
			r.ID = reportID
			r.TicketID = "CIM-AB12CD34"
			r.Status = models.StatusSubmitted
			r.CreatedAt = time.Now().UTC()
			r.UpdatedAt = r.CreatedAt
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp ReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, reportID, resp.ID)
	assert.Equal(t, "CIM-AB12CD34", resp.TicketID)
	assert.Equal(t, reqBody.Category, resp.Category)
	assert.Equal(t, models.StatusSubmitted, resp.Status)
	// high (30), жалоба только что создана
	assert.Equal(t, 30, resp.UrgencyScore)
	assert.Equal(t, models.TonePolite, resp.EscalationLevel)
}

func TestCreateReport_InvalidJSON(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBufferString(`{"category": "pothole"`), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateReport_ValidationError(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := CreateReportRequest{ // Отсутствует Category
		Latitude:  55.7558,
		Longitude: 37.6173,
	}

	mockService.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Category' failed on the 'required' tag")
}

func TestCreateReport_InvalidSeverity(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := CreateReportRequest{
		Category:  "pothole",
		Severity:  "catastrophic",
		Latitude:  55.7558,
		Longitude: 37.6173,
	}

	mockService.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Severity' failed on the 'oneof' tag")
}

func TestCreateReport_ServiceError(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := CreateReportRequest{
		Category:  "pothole",
		Latitude:  55.7558,
		Longitude: 37.6173,
	}
	serviceError := errors.New("failed to create report in service")

	mockService.EXPECT().
		CreateReport(gomock.Any(), gomock.Any()).
		Return(serviceError).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestGetReport_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	expectedReport := &models.Report{
		ID:        reportID,
		TicketID:  "CIM-12345678",
		Category:  "streetlight",
		Severity:  models.SeverityMedium,
		Status:    models.StatusSubmitted,
		Upvotes:   3,
		CreatedAt: time.Now().UTC().AddDate(0, 0, -4),
	}

	mockService.EXPECT().GetReport(gomock.Any(), reportID).Return(expectedReport, nil).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/reports/%s", reportID.String()), nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, reportID, resp.ID)
	assert.Equal(t, expectedReport.Category, resp.Category)
	// medium (20) + 4 дня (8) + 3 голоса
	assert.Equal(t, 31, resp.UrgencyScore)
	assert.Equal(t, 4, resp.DaysOpen)
	assert.Equal(t, models.ToneFirm, resp.EscalationLevel)
}

func TestGetReport_InvalidID(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().GetReport(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "GET", "/api/v1/reports/invalid-uuid", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid report ID")
}

func TestGetReport_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()

	mockService.EXPECT().
		GetReport(gomock.Any(), reportID).
		Return(nil, apperrors.NotFound("report %s not found", reportID)).
		Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/reports/%s", reportID.String()), nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestListReports_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	expectedReports := []*models.Report{
		{ID: uuid.New(), Category: "pothole", Status: models.StatusSubmitted},
		{ID: uuid.New(), Category: "garbage", Status: models.StatusInProgress},
	}

	mockService.EXPECT().
		ListReports(gomock.Any(), models.ListFilter{Page: 1, PageSize: 10, Status: "submitted"}).
		Return(expectedReports, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/reports?page=1&pageSize=10&status=submitted", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []ReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, expectedReports[0].Category, resp[0].Category)
}

func TestListReports_ServiceError(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	serviceError := errors.New("failed to list reports")

	mockService.EXPECT().ListReports(gomock.Any(), gomock.Any()).Return(nil, serviceError).Times(1)

	w := makeRequest(router, "GET", "/api/v1/reports", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestUpvoteReport_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	updatedReport := &models.Report{
		ID:        reportID,
		Category:  "pothole",
		Status:    models.StatusSubmitted,
		Upvotes:   6,
		CreatedAt: time.Now().UTC(),
	}

	mockService.EXPECT().UpvoteReport(gomock.Any(), reportID).Return(updatedReport, nil).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/upvote", reportID.String()), nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, 6, resp.Upvotes)
}

func TestUpvoteReport_InvalidID(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().UpvoteReport(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/reports/invalid-uuid/upvote", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid report ID")
}

func TestVerifyReport_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	reqBody := VerifyReportRequest{ImageURL: "https://cdn.example.com/after.jpg"}
	result := &models.VerificationResult{
		BeforeScore:          0.9,
		AfterScore:           0.0,
		ResolutionConfidence: 1.0,
		ResolvedVerified:     true,
	}
	resolvedAt := time.Now().UTC()
	updatedReport := &models.Report{
		ID:         reportID,
		Category:   "pothole",
		Status:     models.StatusResolved,
		ResolvedAt: &resolvedAt,
		CreatedAt:  resolvedAt.AddDate(0, 0, -5),
	}

	mockService.EXPECT().
		VerifyResolution(gomock.Any(), reportID, gomock.Any()).
		DoAndReturn(func(_ context.Context, id uuid.UUID, after models.AfterImage) (*models.VerificationResult, *models.Report, error) {
			assert.Equal(t, reqBody.ImageURL, after.URL)
			return result, updatedReport, nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/verify", reportID.String()), bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp VerifyReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.ResolvedVerified)
	assert.InDelta(t, 1.0, resp.ResolutionConfidence, 1e-9)
	require.NotNil(t, resp.Report)
	assert.Equal(t, models.StatusResolved, resp.Report.Status)
}

func TestVerifyReport_MultipartStoresAfterImage(t *testing.T) {
	_, mockService, mockStorage, router := newTestHandlerWithStorage(t)
	reportID := uuid.New()
	storedURL := "https://cdn.example.com/photos/after-copy.jpg"

	// Подготовка multipart тела со снимком "после"
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "after.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("after-image-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	mockStorage.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(storedURL, nil).
		Times(1)

	result := &models.VerificationResult{
		BeforeScore:          0.8,
		AfterScore:           0.1,
		ResolutionConfidence: 0.875,
		ResolvedVerified:     true,
	}
	resolvedAt := time.Now().UTC()
	updatedReport := &models.Report{
		ID:               reportID,
		Category:         "garbage",
		Status:           models.StatusResolved,
		ResolvedAt:       &resolvedAt,
		ResolvedImageURL: storedURL,
		CreatedAt:        resolvedAt.AddDate(0, 0, -2),
	}

	mockService.EXPECT().
		VerifyResolution(gomock.Any(), reportID, gomock.Any()).
		DoAndReturn(func(_ context.Context, id uuid.UUID, after models.AfterImage) (*models.VerificationResult, *models.Report, error) {
			// В сервис уходит и файл для детектора, и URL сохраненной копии
			assert.Equal(t, storedURL, after.URL)
			assert.Equal(t, "after.jpg", after.Filename)
			require.NotNil(t, after.File)
			data, err := io.ReadAll(after.File)
			require.NoError(t, err)
			assert.Equal(t, "after-image-bytes", string(data))
			return result, updatedReport, nil
		}).Times(1)

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/reports/%s/verify", reportID.String()), &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", "test-api-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp VerifyReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.ResolvedVerified)
	require.NotNil(t, resp.Report)
	assert.Equal(t, storedURL, resp.Report.ResolvedImageURL)
}

func TestVerifyReport_MultipartStorageError(t *testing.T) {
	_, _, mockStorage, router := newTestHandlerWithStorage(t)
	reportID := uuid.New()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "after.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("after-image-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	mockStorage.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("minio unavailable")).
		Times(1)

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/reports/%s/verify", reportID.String()), &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", "test-api-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to store photo")
}

func TestVerifyReport_MissingAfterImage(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()

	mockService.EXPECT().
		VerifyResolution(gomock.Any(), reportID, gomock.Any()).
		Return(nil, nil, apperrors.Validation("provide an after image file or image_url")).
		Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/verify", reportID.String()), bytes.NewBufferString(`{}`), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "after image")
}

func TestVerifyReport_DetectorUnavailable(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	reqBody := VerifyReportRequest{ImageURL: "https://cdn.example.com/after.jpg"}

	mockService.EXPECT().
		VerifyResolution(gomock.Any(), reportID, gomock.Any()).
		Return(nil, nil, apperrors.Upstream(errors.New("connection refused"), "detector unavailable")).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/verify", reportID.String()), bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "detector unavailable")
}

func TestEscalationLetter_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()
	letter := &models.Letter{
		Tone:     models.ToneFirm,
		DaysOpen: 5,
		Subject:  "Complaint regarding pothole (Ticket CIM-AB12CD34)",
		Body:     "I am writing to submit a firm follow-up...",
	}

	mockService.EXPECT().EscalationLetter(gomock.Any(), reportID).Return(letter, nil).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/escalation", reportID.String()), nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp LetterResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, models.ToneFirm, resp.Tone)
	assert.Equal(t, 5, resp.DaysOpen)
	assert.Contains(t, resp.Subject, "CIM-AB12CD34")
}

func TestEscalationLetter_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reportID := uuid.New()

	mockService.EXPECT().
		EscalationLetter(gomock.Any(), reportID).
		Return(nil, apperrors.NotFound("report %s not found", reportID)).
		Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/reports/%s/escalation", reportID.String()), nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUrgencyHeatmap_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	cells := []*models.HeatmapCell{
		{Lat: 55.75, Lng: 37.62, Count: 3, Urgency: 70},
		{Lat: 55.76, Lng: 37.60, Count: 1, Urgency: 10},
	}

	mockService.EXPECT().UrgencyHeatmap(gomock.Any(), 0.05, 7).Return(cells, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/analytics/urgency-heatmap?cell_size=0.05&days=7", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp HeatmapResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, resp.CellSize, 1e-9)
	assert.Equal(t, 7, resp.Days)
	require.Len(t, resp.Cells, 2)
	assert.Equal(t, 3, resp.Cells[0].Count)
	assert.Equal(t, 70, resp.Cells[0].Urgency)
}

func TestUrgencyHeatmap_Defaults(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	// Без параметров запроса используются дефолты
	mockService.EXPECT().UrgencyHeatmap(gomock.Any(), 0.01, 30).Return([]*models.HeatmapCell{}, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/analytics/urgency-heatmap", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUrgencyHeatmap_InvalidCellSizeParam(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().UrgencyHeatmap(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/analytics/urgency-heatmap?cell_size=abc", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cell_size must be a number")
}

func TestUrgencyHeatmap_ValidationErrorFromService(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		UrgencyHeatmap(gomock.Any(), -0.01, 30).
		Return(nil, apperrors.Validation("cell_size must be positive")).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/analytics/urgency-heatmap?cell_size=-0.01", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cell_size must be positive")
}

func TestAnalyticsHeatmap_ProxiesPathAndQuery(t *testing.T) {
	handler, _, router := newTestHandler(t)

	// Поднимаем фейковый сервис агрегации и проверяем, что путь и
	// строка запроса доходят до него без изменений
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/heatmap", r.URL.Path)
		assert.Equal(t, "hours=12&category=pothole", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"cells":[{"lat":55.75,"lon":37.61,"count":3}]}`)
	}))
	defer upstream.Close()
	handler.cfg.AggregatorURL = upstream.URL

	w := makeRequest(router, "GET", "/api/v1/analytics/heatmap?hours=12&category=pothole", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cells"`)
}

func TestAnalyticsHeatmap_AggregatorUnreachable(t *testing.T) {
	handler, _, router := newTestHandler(t)
	handler.cfg.AggregatorURL = "http://127.0.0.1:1"

	w := makeRequest(router, "GET", "/api/v1/analytics/heatmap", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "aggregation service unavailable")
}

func TestDetect_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := DetectRequest{ImageURL: "https://cdn.example.com/photo.jpg"}
	expected := &models.DetectionResult{
		Detections:        []models.Detection{{Label: "garbage", Confidence: 0.77}},
		SuggestedCategory: "garbage",
	}

	mockService.EXPECT().Detect(gomock.Any(), reqBody.ImageURL).Return(expected, nil).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/detect", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.DetectionResult
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "garbage", resp.SuggestedCategory)
	require.Len(t, resp.Detections, 1)
	assert.Equal(t, "garbage", resp.Detections[0].Label)
}

func TestDetect_MissingImageURL(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Detect(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/detect", bytes.NewBufferString(`{}`), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'ImageURL' failed on the 'required' tag")
}

func TestHealthCheck_Success(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAPIKeyAuthMiddleware_Success(t *testing.T) {
	// Создаем Gin-роутер и добавляем middleware
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_MissingKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil) // Нет API ключа
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestAPIKeyAuthMiddleware_InvalidKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "invalid-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}
