package v1

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestModelToReportResponse_DerivedFields(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	report := &models.Report{
		ID:        uuid.New(),
		TicketID:  "CIM-AB12CD34",
		Category:  "pothole",
		Severity:  models.SeverityHigh,
		Status:    models.StatusSubmitted,
		Upvotes:   4,
		CreatedAt: now.AddDate(0, 0, -5),
	}

	resp := ModelToReportResponse(report, now)

	assert.Equal(t, 5, resp.DaysOpen)
	// high (30) + 5 дней (10) + 4 голоса
	assert.Equal(t, 44, resp.UrgencyScore)
	assert.Equal(t, models.ToneFirm, resp.EscalationLevel)
}

func TestModelToReportResponse_IdempotentAtFixedNow(t *testing.T) {
	// Производные поля не хранятся, поэтому повторный пересчет в тот же
	// момент времени обязан давать тот же ответ
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	report := &models.Report{
		ID:        uuid.New(),
		Category:  "garbage",
		Severity:  models.SeverityMedium,
		Status:    models.StatusInProgress,
		Upvotes:   2,
		CreatedAt: now.AddDate(0, 0, -9),
	}

	first := ModelToReportResponse(report, now)
	second := ModelToReportResponse(report, now)

	assert.Equal(t, first, second)
}

func TestModelToReportResponse_ResolvedReport(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	resolvedAt := now.AddDate(0, 0, -1)
	report := &models.Report{
		ID:                 uuid.New(),
		Category:           "pothole",
		Severity:           models.SeverityUrgent,
		Status:             models.StatusResolved,
		ResolvedVerified:   true,
		ResolvedConfidence: 0.95,
		ResolvedAt:         &resolvedAt,
		CreatedAt:          now.AddDate(0, 0, -10),
	}

	resp := ModelToReportResponse(report, now)

	// round((4*10 + 10*2) * 0.2)
	assert.Equal(t, 12, resp.UrgencyScore)
	assert.Equal(t, models.ToneResolved, resp.EscalationLevel)
	assert.True(t, resp.ResolvedVerified)
}
