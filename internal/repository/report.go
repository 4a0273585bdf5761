package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/civic_report_system/internal/apperrors"
	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/shenikar/civic_report_system/internal/service"
)

const reportColumns = `
	id,
	ticket_id,
	category,
	severity,
	description,
	latitude,
	longitude,
	address,
	status,
	upvotes,
	image_url,
	resolved_image_url,
	resolved_confidence,
	resolved_verified,
	resolved_at,
	duplicate_of,
	duplicate_count,
	created_at,
	updated_at`

type ReportRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewReportRepository(db *pgxpool.Pool, redisClient *redis.Client) service.ReportRepository {
	return &ReportRepository{
		db:          db,
		redisClient: redisClient,
	}
}

func scanReport(row pgx.Row) (*models.Report, error) {
	report := &models.Report{}
	err := row.Scan(
		&report.ID,
		&report.TicketID,
		&report.Category,
		&report.Severity,
		&report.Description,
		&report.Latitude,
		&report.Longitude,
		&report.Address,
		&report.Status,
		&report.Upvotes,
		&report.ImageURL,
		&report.ResolvedImageURL,
		&report.ResolvedConfidence,
		&report.ResolvedVerified,
		&report.ResolvedAt,
		&report.DuplicateOf,
		&report.DuplicateCount,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *ReportRepository) collectReports(rows pgx.Rows) ([]*models.Report, error) {
	defer rows.Close()

	reports := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error report rows iteration: %w", err)
	}
	return reports, nil
}

// Create создает новую запись о жалобе в бд
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (
			ticket_id, category, severity, description,
			latitude, longitude, address, status, image_url, duplicate_of
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, upvotes, duplicate_count, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		report.TicketID,
		report.Category,
		report.Severity,
		report.Description,
		report.Latitude,
		report.Longitude,
		report.Address,
		report.Status,
		report.ImageURL,
		report.DuplicateOf,
	).Scan(&report.ID, &report.Upvotes, &report.DuplicateCount, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return apperrors.Persistence(err, "failed to create report")
	}
	return nil
}

// GetByID возвращает жалобу по ее UUID
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id = $1;`, reportColumns)

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("report with id %s not found", id)
		}
		return nil, apperrors.Upstream(err, "failed to get report by id")
	}
	return report, nil
}

// List возвращает список жалоб с пагинацией и необязательными фильтрами
// по статусу и категории
func (r *ReportRepository) List(ctx context.Context, filter models.ListFilter) ([]*models.Report, error) {
	offset := (filter.Page - 1) * filter.PageSize

	query := fmt.Sprintf(`SELECT %s FROM reports WHERE 1=1`, reportColumns)
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	args = append(args, filter.PageSize)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d;", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to list reports")
	}
	return r.collectReports(rows)
}

// ListSince возвращает жалобы, созданные не раньше cutoff
func (r *ReportRepository) ListSince(ctx context.Context, cutoff time.Time) ([]*models.Report, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reports
		WHERE created_at >= $1
		ORDER BY created_at DESC;
	`, reportColumns)

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to list reports since cutoff")
	}
	return r.collectReports(rows)
}

// FindDuplicateCandidates ищет до limit незакрытых мастер-жалоб той же
// категории в рамке +-delta градусов вокруг точки, новые первыми.
// Дешевый префильтр по рамке; точная дистанция считается в сервисе.
func (r *ReportRepository) FindDuplicateCandidates(ctx context.Context, category string, lat, lon, delta float64, limit int) ([]*models.Report, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reports
		WHERE
			category = $1
			AND status <> $2
			AND duplicate_of IS NULL
			AND latitude BETWEEN $3 AND $4
			AND longitude BETWEEN $5 AND $6
		ORDER BY created_at DESC
		LIMIT $7;
	`, reportColumns)

	rows, err := r.db.Query(ctx, query,
		category,
		models.StatusResolved,
		lat-delta, lat+delta,
		lon-delta, lon+delta,
		limit,
	)
	if err != nil {
		return nil, apperrors.Upstream(err, "failed to find duplicate candidates")
	}
	return r.collectReports(rows)
}

// IncrementUpvotes атомарно увеличивает счетчик голосов на уровне бд
func (r *ReportRepository) IncrementUpvotes(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	query := fmt.Sprintf(`
		UPDATE reports SET
			upvotes = upvotes + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING %s;
	`, reportColumns)

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("report with id %s not found for upvote", id)
		}
		return nil, apperrors.Persistence(err, "failed to upvote report")
	}
	return report, nil
}

// IncrementDuplicateCount атомарно увеличивает счетчик дубликатов мастера.
// Инкремент выполняется на стороне бд, а не чтением-записью, чтобы
// конкурирующие дубликаты не теряли обновления.
func (r *ReportRepository) IncrementDuplicateCount(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE reports SET
			duplicate_count = duplicate_count + 1,
			updated_at = NOW()
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return apperrors.Persistence(err, "failed to increment duplicate count")
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NotFound("report with id %s not found for duplicate count", id)
	}
	return nil
}

// UpdateResolution сохраняет итог проверки устранения одним запросом:
// либо все поля записываются, либо ни одно
func (r *ReportRepository) UpdateResolution(ctx context.Context, id uuid.UUID, update models.ResolutionUpdate) (*models.Report, error) {
	query := fmt.Sprintf(`
		UPDATE reports SET
			resolved_confidence = $1,
			resolved_verified = $2,
			resolved_image_url = COALESCE(NULLIF($3, ''), resolved_image_url),
			status = COALESCE($4, status),
			resolved_at = COALESCE($5, resolved_at),
			updated_at = NOW()
		WHERE id = $6
		RETURNING %s;
	`, reportColumns)

	var status *string
	if update.Status != "" {
		status = &update.Status
	}

	report, err := scanReport(r.db.QueryRow(ctx, query,
		update.Confidence,
		update.Verified,
		update.ImageURL,
		status,
		update.ResolvedAt,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("report with id %s not found for resolution update", id)
		}
		return nil, apperrors.Persistence(err, "failed to update report resolution")
	}
	return report, nil
}

// GetReportFromCache пытается получить жалобу из Redis
func (r *ReportRepository) GetReportFromCache(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	key := fmt.Sprintf("report:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report from cache: %w", err)
	}

	report := &models.Report{}
	if err := json.Unmarshal(val, report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report from cache: %w", err)
	}
	return report, nil
}

// SetReportCache сохраняет жалобу в Redis
func (r *ReportRepository) SetReportCache(ctx context.Context, report *models.Report) error {
	key := fmt.Sprintf("report:%s", report.ID.String())
	val, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report for cache: %w", err)
	}
	// Срок жизни кэша - 5 минут
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set report in cache: %w", err)
	}
	return nil
}

// InvalidateReportCache удаляет жалобу из Redis кэша
func (r *ReportRepository) InvalidateReportCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("report:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}
