package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shenikar/civic_report_system/internal/apperrors"
	"github.com/shenikar/civic_report_system/internal/models"
)

// Client - HTTP клиент внешнего сервиса распознавания объектов.
// Сервис принимает POST /detect либо с multipart полем file,
// либо с JSON телом {image_url} и возвращает список распознаваний.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// DetectURL распознает объекты на изображении по его публичному URL
func (c *Client) DetectURL(ctx context.Context, imageURL string) (*models.DetectionResult, error) {
	payload, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// DetectFile распознает объекты на загруженном изображении
func (c *Client) DetectFile(ctx context.Context, filename string, file io.Reader) (*models.DetectionResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file into multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create detect request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*models.DetectionResult, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Upstream(err, "detection service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// текст ошибки апстрима сохраняем как есть
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.Upstream(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"detection service returned an error",
		)
	}

	result := &models.DetectionResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, apperrors.Upstream(err, "failed to decode detection response")
	}
	return result, nil
}
