package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/civic_report_system/internal/apperrors"
	"github.com/shenikar/civic_report_system/internal/config"
	"github.com/shenikar/civic_report_system/internal/geo"
	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/shenikar/civic_report_system/internal/notify"
	"github.com/shenikar/civic_report_system/internal/triage"
	"github.com/sirupsen/logrus"
)

// Параметры поиска дубликатов: рамка +-0.0025 градуса (~277 м) как дешевый
// префильтр в бд, затем точная дистанция не дальше 0.25 км
const (
	dedupCandidateLimit = 8
	dedupBoxDelta       = 0.0025
	dedupMaxDistanceKm  = 0.25
)

// ReportRepository определяет контракт для работы с бд жалоб
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Report, error)
	ListSince(ctx context.Context, cutoff time.Time) ([]*models.Report, error)
	FindDuplicateCandidates(ctx context.Context, category string, lat, lon, delta float64, limit int) ([]*models.Report, error)
	IncrementUpvotes(ctx context.Context, id uuid.UUID) (*models.Report, error)
	IncrementDuplicateCount(ctx context.Context, id uuid.UUID) error
	UpdateResolution(ctx context.Context, id uuid.UUID, update models.ResolutionUpdate) (*models.Report, error)
	GetReportFromCache(ctx context.Context, id uuid.UUID) (*models.Report, error)
	SetReportCache(ctx context.Context, report *models.Report) error
	InvalidateReportCache(ctx context.Context, id uuid.UUID) error
}

// Detector определяет контракт внешнего сервиса распознавания объектов
type Detector interface {
	DetectURL(ctx context.Context, imageURL string) (*models.DetectionResult, error)
	DetectFile(ctx context.Context, filename string, file io.Reader) (*models.DetectionResult, error)
}

// ReportService определяет контракт бизнес-логики триажа жалоб
type ReportService interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, filter models.ListFilter) ([]*models.Report, error)
	UpvoteReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	VerifyResolution(ctx context.Context, id uuid.UUID, after models.AfterImage) (*models.VerificationResult, *models.Report, error)
	UrgencyHeatmap(ctx context.Context, cellSize float64, days int) ([]*models.HeatmapCell, error)
	EscalationLetter(ctx context.Context, id uuid.UUID) (*models.Letter, error)
	Detect(ctx context.Context, imageURL string) (*models.DetectionResult, error)
}

type reportService struct {
	repo      ReportRepository
	detector  Detector
	publisher notify.EventPublisher
	logger    *logrus.Logger
	cfg       *config.Config
}

func NewReportService(repo ReportRepository, detector Detector, logger *logrus.Logger, cfg *config.Config, publisher notify.EventPublisher) ReportService {
	return &reportService{
		repo:      repo,
		detector:  detector,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateReport регистрирует новую жалобу: ищет открытый мастер-дубликат
// поблизости, вставляет запись и отправляет событие в сервис агрегации.
// Проверка дубликата и вставка не атомарны относительно конкурирующих
// подач - две одновременные жалобы могут обе не найти дубликата. Это
// принятая гонка, дедупликация у нас eventual.
func (s *reportService) CreateReport(ctx context.Context, report *models.Report) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "report",
		"method":   "CreateReport",
		"category": report.Category,
	})
	log.Info("Attempting to create a new report")

	if report.TicketID == "" {
		report.TicketID = models.NewTicketID()
	}
	if report.Status == "" {
		report.Status = models.StatusSubmitted
	}
	if report.Severity == "" {
		report.Severity = models.SeverityLow
	}

	masterID, found := s.findDuplicateMaster(ctx, report.Category, report.Latitude, report.Longitude)
	if found {
		report.DuplicateOf = &masterID
		log.WithField("master_id", masterID).Info("Report linked as duplicate")
	}

	if err := s.repo.Create(ctx, report); err != nil {
		log.WithError(err).Error("Failed to create report in repository")
		return fmt.Errorf("service: could not create report: %w", err)
	}

	if found {
		if err := s.repo.IncrementDuplicateCount(ctx, masterID); err != nil {
			log.WithError(err).Error("Failed to increment master duplicate count")
		} else if err := s.repo.InvalidateReportCache(ctx, masterID); err != nil {
			log.WithError(err).Warn("Failed to invalidate master report cache")
		}
	}

	// Fire-and-forget: сбой публикации никогда не роняет подачу жалобы
	event := notify.ReportEvent{
		ID:        report.ID.String(),
		Category:  report.Category,
		Status:    report.Status,
		Severity:  report.Severity,
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
		CreatedAt: report.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish report event")
	}

	log.WithField("report_id", report.ID).Info("Report created successfully")
	return nil
}

// findDuplicateMaster ищет ближайший открытый мастер той же категории в
// радиусе dedupMaxDistanceKm. Любая ошибка хранилища трактуется как
// отсутствие дубликата и не мешает подаче.
func (s *reportService) findDuplicateMaster(ctx context.Context, category string, lat, lon float64) (uuid.UUID, bool) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "report",
		"method":   "findDuplicateMaster",
		"category": category,
	})

	candidates, err := s.repo.FindDuplicateCandidates(ctx, category, lat, lon, dedupBoxDelta, dedupCandidateLimit)
	if err != nil {
		log.WithError(err).Warn("Duplicate candidate lookup failed, treating report as new")
		return uuid.Nil, false
	}

	var (
		bestID       uuid.UUID
		bestDistance float64
		found        bool
	)
	for _, candidate := range candidates {
		distance := geo.DistanceKm(lat, lon, candidate.Latitude, candidate.Longitude)
		if distance > dedupMaxDistanceKm {
			continue
		}
		// при равной дистанции остается первый увиденный кандидат
		if !found || distance < bestDistance {
			bestID = candidate.ID
			bestDistance = distance
			found = true
		}
	}

	if found {
		log.WithFields(logrus.Fields{
			"master_id":   bestID,
			"distance_km": bestDistance,
		}).Info("Duplicate master found")
	}
	return bestID, found
}

// GetReport получает жалобу по ID, сначала пробуя Redis кэш
func (s *reportService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "GetReport",
		"report_id": id,
	})
	log.Info("Fetching report by ID")

	cached, err := s.repo.GetReportFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Report cache lookup failed")
	}
	if cached != nil {
		log.Debug("Report served from cache")
		return cached, nil
	}

	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to get report from repository")
		return nil, fmt.Errorf("service: could not get report: %w", err)
	}

	if err := s.repo.SetReportCache(ctx, report); err != nil {
		log.WithError(err).Warn("Failed to cache report")
	}

	log.Info("Report fetched successfully")
	return report, nil
}

// ListReports возвращает список жалоб с пагинацией
func (s *reportService) ListReports(ctx context.Context, filter models.ListFilter) ([]*models.Report, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "ListReports",
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
	log.Info("Listing reports")

	reports, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list reports from repository")
		return nil, fmt.Errorf("service: could not list reports: %w", err)
	}

	log.WithField("count", len(reports)).Info("Reports listed successfully")
	return reports, nil
}

// UpvoteReport атомарно увеличивает счетчик голосов жалобы
func (s *reportService) UpvoteReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "UpvoteReport",
		"report_id": id,
	})
	log.Info("Upvoting report")

	report, err := s.repo.IncrementUpvotes(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to upvote report in repository")
		return nil, fmt.Errorf("service: could not upvote report: %w", err)
	}

	if err := s.repo.InvalidateReportCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate report cache")
	}

	log.WithField("upvotes", report.Upvotes).Info("Report upvoted successfully")
	return report, nil
}

// VerifyResolution сверяет распознавания на снимках "до" и "после" и
// сохраняет итог. При подтверждении жалоба закрывается.
func (s *reportService) VerifyResolution(ctx context.Context, id uuid.UUID, after models.AfterImage) (*models.VerificationResult, *models.Report, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "VerifyResolution",
		"report_id": id,
	})
	log.Info("Verifying report resolution")

	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Report not found for verification")
		return nil, nil, fmt.Errorf("service: could not get report for verification: %w", err)
	}

	if report.ImageURL == "" {
		return nil, nil, apperrors.Validation("report has no before image to verify against")
	}
	if after.URL == "" && after.File == nil {
		return nil, nil, apperrors.Validation("provide an after image file or image_url")
	}

	before, err := s.detector.DetectURL(ctx, report.ImageURL)
	if err != nil {
		log.WithError(err).Error("Detection failed for before image")
		return nil, nil, fmt.Errorf("service: before image detection failed: %w", err)
	}

	var afterResult *models.DetectionResult
	if after.File != nil {
		afterResult, err = s.detector.DetectFile(ctx, after.Filename, after.File)
	} else {
		afterResult, err = s.detector.DetectURL(ctx, after.URL)
	}
	if err != nil {
		log.WithError(err).Error("Detection failed for after image")
		return nil, nil, fmt.Errorf("service: after image detection failed: %w", err)
	}

	result := triage.ResolutionConfidence(before.Detections, afterResult.Detections, report.Category)

	update := models.ResolutionUpdate{
		Confidence: result.ResolutionConfidence,
		Verified:   result.ResolvedVerified,
		ImageURL:   after.URL,
	}
	if result.ResolvedVerified {
		now := time.Now().UTC()
		update.Status = models.StatusResolved
		update.ResolvedAt = &now
	}

	updated, err := s.repo.UpdateResolution(ctx, id, update)
	if err != nil {
		log.WithError(err).Error("Failed to persist resolution result")
		return nil, nil, fmt.Errorf("service: could not persist resolution: %w", err)
	}

	if err := s.repo.InvalidateReportCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate report cache")
	}

	log.WithFields(logrus.Fields{
		"confidence": result.ResolutionConfidence,
		"verified":   result.ResolvedVerified,
	}).Info("Resolution verification completed")
	return result, updated, nil
}

// UrgencyHeatmap агрегирует жалобы за последние days дней в сетку cellSize
func (s *reportService) UrgencyHeatmap(ctx context.Context, cellSize float64, days int) ([]*models.HeatmapCell, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "UrgencyHeatmap",
		"cell_size": cellSize,
		"days":      days,
	})
	log.Info("Building urgency heatmap")

	if cellSize <= 0 {
		return nil, apperrors.Validation("cell_size must be positive")
	}
	if days <= 0 {
		days = 30
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	reports, err := s.repo.ListSince(ctx, cutoff)
	if err != nil {
		log.WithError(err).Error("Failed to list reports for heatmap")
		return nil, fmt.Errorf("service: could not list reports for heatmap: %w", err)
	}

	cells, err := triage.Heatmap(reports, cellSize, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	log.WithField("cells", len(cells)).Info("Urgency heatmap built")
	return cells, nil
}

// EscalationLetter генерирует формальное письмо-жалобу по текущему
// состоянию и возрасту жалобы
func (s *reportService) EscalationLetter(ctx context.Context, id uuid.UUID) (*models.Letter, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "EscalationLetter",
		"report_id": id,
	})
	log.Info("Rendering escalation letter")

	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	letter := triage.RenderLetter(report, time.Now().UTC())
	log.WithField("tone", letter.Tone).Info("Escalation letter rendered")
	return letter, nil
}

// Detect проксирует запрос распознавания к внешнему сервису
func (s *reportService) Detect(ctx context.Context, imageURL string) (*models.DetectionResult, error) {
	if imageURL == "" {
		return nil, apperrors.Validation("image_url is required")
	}

	result, err := s.detector.DetectURL(ctx, imageURL)
	if err != nil {
		s.logger.WithError(err).Error("Detection proxy call failed")
		return nil, fmt.Errorf("service: detection failed: %w", err)
	}
	return result, nil
}
