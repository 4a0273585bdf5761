package v1

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/civic_report_system/internal/apperrors"
	"github.com/shenikar/civic_report_system/internal/config"
	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/shenikar/civic_report_system/internal/service"
	"github.com/shenikar/civic_report_system/pkg/storage"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	reportService service.ReportService
	photoStorage  storage.PhotoStorage
	logger        *logrus.Logger
	validate      *validator.Validate
	cfg           *config.Config
	httpClient    *http.Client
}

func NewHandler(reportService service.ReportService, photoStorage storage.PhotoStorage, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		reportService: reportService,
		photoStorage:  photoStorage,
		logger:        logger,
		validate:      validator.New(),
		cfg:           cfg,
		httpClient: &http.Client{
			Timeout: cfg.NotifyTimeout,
		},
	}
}

// respondError маппит вид ошибки из таксономии на HTTP-статус
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperrors.KindValidation:
			c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Error()})
			return
		case apperrors.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": appErr.Error()})
			return
		case apperrors.KindUpstream:
			c.JSON(http.StatusBadGateway, gin.H{"error": appErr.Error()})
			return
		}
	}
	log.WithError(err).Error("Request failed with internal error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// @Summary Submit a new report
// @Description Submit a new civic infrastructure report. Accepts JSON or multipart form with a photo. Requires API key.
// @Tags Reports
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param report body CreateReportRequest true "Report submission request"
// @Success 201 {object} ReportResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports [post]
func (h *Handler) createReport(c *gin.Context) {
	var input CreateReportRequest
	log := h.logger.WithField("method", "createReport")

	isMultipart := strings.HasPrefix(c.ContentType(), "multipart/form-data")
	if isMultipart {
		if err := c.ShouldBind(&input); err != nil {
			log.WithError(err).Warn("Failed to bind multipart form")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&input); err != nil {
			log.WithError(err).Warn("Failed to bind JSON")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := DTOToReportModel(input)

	// Фотография из multipart формы уходит в объектное хранилище,
	// в бд остается только публичный URL
	if isMultipart {
		if fileHeader, err := c.FormFile("file"); err == nil {
			url, err := h.uploadPhoto(c, fileHeader)
			if err != nil {
				log.WithError(err).Error("Failed to upload report photo")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store photo"})
				return
			}
			model.ImageURL = url
		}
	}

	if err := h.reportService.CreateReport(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to create report in service")
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToReportResponse(model, time.Now().UTC()))
}

// uploadPhoto сохраняет загруженный файл в объектное хранилище и
// возвращает его публичный URL
func (h *Handler) uploadPhoto(c *gin.Context, fileHeader *multipart.FileHeader) (string, error) {
	if h.photoStorage == nil {
		return "", fmt.Errorf("photo storage is not configured")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded photo: %w", err)
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return h.photoStorage.Upload(c.Request.Context(), uniqueObjectName(fileHeader.Filename), file, fileHeader.Size, contentType)
}

// @Summary Get a list of reports
// @Description Get a paginated list of reports with derived urgency fields. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Success 200 {array} ReportResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reports [get]
func (h *Handler) listReports(c *gin.Context) {
	log := h.logger.WithField("method", "listReports")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	filter := models.ListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		Category: c.Query("category"),
	}

	reports, err := h.reportService.ListReports(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list reports from service")
		respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToReportResponses(reports, time.Now().UTC()))
}

// @Summary Get report by ID
// @Description Get a single report with derived urgency fields. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Report ID"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} map[string]string "Invalid report ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Report not found"
// @Router /reports/{id} [get]
func (h *Handler) getReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
		return
	}
	log := h.logger.WithField("method", "getReport").WithField("id", id)

	report, err := h.reportService.GetReport(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get report from service")
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToReportResponse(report, time.Now().UTC()))
}

// @Summary Upvote a report
// @Description Atomically increment the upvote counter of a report. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Report ID"
// @Success 200 {object} ReportResponse
// @Failure 400 {object} map[string]string "Invalid report ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Report not found"
// @Router /reports/{id}/upvote [post]
func (h *Handler) upvoteReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
		return
	}
	log := h.logger.WithField("method", "upvoteReport").WithField("id", id)

	report, err := h.reportService.UpvoteReport(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to upvote report in service")
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToReportResponse(report, time.Now().UTC()))
}

// @Summary Verify report resolution
// @Description Compare detections on before/after photos and persist the verdict. Accepts multipart "file" or JSON {"image_url"}. Requires API key.
// @Tags Reports
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Report ID"
// @Param request body VerifyReportRequest false "After image URL"
// @Success 200 {object} VerifyReportResponse
// @Failure 400 {object} map[string]string "Missing before/after image"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Report not found"
// @Failure 502 {object} map[string]string "Detection service error"
// @Router /reports/{id}/verify [post]
func (h *Handler) verifyReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
		return
	}
	log := h.logger.WithField("method", "verifyReport").WithField("id", id)

	var after models.AfterImage

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
			return
		}
		// Снимок "после" сохраняется в объектное хранилище так же,
		// как фотография при создании заявки: в бд попадает публичный URL
		if h.photoStorage != nil {
			url, err := h.uploadPhoto(c, fileHeader)
			if err != nil {
				log.WithError(err).Error("Failed to upload after image")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store photo"})
				return
			}
			after.URL = url
		}
		file, err := fileHeader.Open()
		if err != nil {
			log.WithError(err).Error("Failed to open uploaded after image")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		defer file.Close()
		after.File = file
		after.Filename = fileHeader.Filename
	} else {
		var input VerifyReportRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			log.WithError(err).Warn("Failed to bind JSON")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := h.validate.Struct(input); err != nil {
			log.WithError(err).Warn("Validation failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		after.URL = input.ImageURL
	}

	result, report, err := h.reportService.VerifyResolution(c.Request.Context(), id, after)
	if err != nil {
		log.WithError(err).Warn("Resolution verification failed")
		respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, VerifyReportResponse{
		BeforeScore:          result.BeforeScore,
		AfterScore:           result.AfterScore,
		ResolutionConfidence: result.ResolutionConfidence,
		ResolvedVerified:     result.ResolvedVerified,
		Report:               ModelToReportResponse(report, time.Now().UTC()),
	})
}

// @Summary Generate an escalation letter
// @Description Render a formal complaint letter whose tone matches report status and age. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Report ID"
// @Success 200 {object} LetterResponse
// @Failure 400 {object} map[string]string "Invalid report ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Report not found"
// @Router /reports/{id}/escalation [post]
func (h *Handler) escalationLetter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report ID"})
		return
	}
	log := h.logger.WithField("method", "escalationLetter").WithField("id", id)

	letter, err := h.reportService.EscalationLetter(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to render escalation letter")
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToLetterResponse(letter))
}

// @Summary Urgency heatmap
// @Description Bucket recent reports into a coordinate grid with per-cell counts and urgency sums. Requires API key.
// @Tags Analytics
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param cell_size query number false "Grid cell size in degrees" default(0.01)
// @Param days query int false "Look-back window in days" default(30)
// @Success 200 {object} HeatmapResponse
// @Failure 400 {object} map[string]string "Invalid cell_size"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /analytics/urgency-heatmap [get]
func (h *Handler) urgencyHeatmap(c *gin.Context) {
	log := h.logger.WithField("method", "urgencyHeatmap")

	cellSize, err := strconv.ParseFloat(c.DefaultQuery("cell_size", "0.01"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cell_size must be a number"})
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
		return
	}

	cells, err := h.reportService.UrgencyHeatmap(c.Request.Context(), cellSize, days)
	if err != nil {
		log.WithError(err).Warn("Failed to build urgency heatmap")
		respondError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToHeatmapResponse(cells, cellSize, days))
}

// @Summary Detect objects on an image
// @Description Proxy a detection request to the object detection service. Requires API key.
// @Tags Detection
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body DetectRequest true "Image URL to classify"
// @Success 200 {object} models.DetectionResult
// @Failure 400 {object} map[string]string "Missing image_url"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} map[string]string "Detection service error"
// @Router /detect [post]
func (h *Handler) detect(c *gin.Context) {
	var input DetectRequest
	log := h.logger.WithField("method", "detect")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reportService.Detect(c.Request.Context(), input.ImageURL)
	if err != nil {
		log.WithError(err).Warn("Detection proxy failed")
		respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Aggregation summary
// @Description Proxy the pre-computed report summary from the aggregation service. Requires API key.
// @Tags Analytics
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]any
// @Failure 502 {object} map[string]string "Aggregation service unavailable"
// @Router /analytics/summary [get]
func (h *Handler) analyticsSummary(c *gin.Context) {
	h.proxyAggregator(c, "/summary")
}

// @Summary Aggregation alerts
// @Description Proxy recent alerts from the aggregation service. Requires API key.
// @Tags Analytics
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]any
// @Failure 502 {object} map[string]string "Aggregation service unavailable"
// @Router /analytics/alerts [get]
func (h *Handler) analyticsAlerts(c *gin.Context) {
	h.proxyAggregator(c, "/alerts")
}

// @Summary Aggregated heatmap
// @Description Proxy the pre-computed live heatmap from the aggregation service. Requires API key.
// @Tags Analytics
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]any
// @Failure 502 {object} map[string]string "Aggregation service unavailable"
// @Router /analytics/heatmap [get]
func (h *Handler) analyticsHeatmap(c *gin.Context) {
	h.proxyAggregator(c, "/heatmap")
}

// proxyAggregator пересылает GET запрос в сервис агрегации как есть,
// включая строку запроса клиента
func (h *Handler) proxyAggregator(c *gin.Context, path string) {
	log := h.logger.WithField("method", "proxyAggregator").WithField("path", path)

	url := strings.TrimRight(h.cfg.AggregatorURL, "/") + path
	if q := c.Request.URL.RawQuery; q != "" {
		url += "?" + q
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url, nil)
	if err != nil {
		log.WithError(err).Error("Failed to create aggregator request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Aggregation service unreachable")
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("aggregation service unavailable: %v", err)})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "aggregation service unavailable"})
		return
	}

	c.DataFromReader(http.StatusOK, resp.ContentLength, "application/json", resp.Body, nil)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// uniqueObjectName строит имя объекта в хранилище из случайного uuid,
// сохраняя расширение исходного файла
func uniqueObjectName(filename string) string {
	return uuid.New().String() + filepath.Ext(filename)
}
