package triage

import (
	"testing"
	"time"

	"github.com/shenikar/civic_report_system/internal/apperrors"
	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeatmap_InvalidCellSize(t *testing.T) {
	now := time.Now()

	_, err := Heatmap(nil, 0, now)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = Heatmap(nil, -0.01, now)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestHeatmap_Empty(t *testing.T) {
	cells, err := Heatmap(nil, 0.01, time.Now())
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestHeatmap_MergesSameCell(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	reports := []*models.Report{
		{Latitude: 55.7512, Longitude: 37.6101, Severity: models.SeverityLow, Status: models.StatusSubmitted, CreatedAt: now},
		{Latitude: 55.7518, Longitude: 37.6109, Severity: models.SeverityHigh, Status: models.StatusSubmitted, CreatedAt: now},
	}

	cells, err := Heatmap(reports, 0.01, now)
	require.NoError(t, err)
	require.Len(t, cells, 1)

	assert.InDelta(t, 55.75, cells[0].Lat, 1e-9)
	assert.InDelta(t, 37.61, cells[0].Lng, 1e-9)
	assert.Equal(t, 2, cells[0].Count)
	assert.Equal(t, 40, cells[0].Urgency) // 10 + 30
}

func TestHeatmap_SeparateCells(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	reports := []*models.Report{
		{Latitude: 55.75, Longitude: 37.61, Severity: models.SeverityLow, Status: models.StatusSubmitted, CreatedAt: now},
		{Latitude: 55.79, Longitude: 37.61, Severity: models.SeverityLow, Status: models.StatusSubmitted, CreatedAt: now},
	}

	cells, err := Heatmap(reports, 0.01, now)
	require.NoError(t, err)
	assert.Len(t, cells, 2)
}

func TestHeatmap_BoundaryRoundsConsistently(t *testing.T) {
	// точка ровно на границе ячейки попадает только в одну ячейку
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	reports := []*models.Report{
		{Latitude: 55.755, Longitude: 37.615, Severity: models.SeverityLow, Status: models.StatusSubmitted, CreatedAt: now},
		{Latitude: 55.755, Longitude: 37.615, Severity: models.SeverityLow, Status: models.StatusSubmitted, CreatedAt: now},
	}

	cells, err := Heatmap(reports, 0.01, now)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, 2, cells[0].Count)
}
