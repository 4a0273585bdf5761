package triage

import (
	"math"
	"time"

	"github.com/shenikar/civic_report_system/internal/apperrors"
	"github.com/shenikar/civic_report_system/internal/models"
)

type bucketKey struct {
	lat float64
	lng float64
}

// Heatmap раскладывает жалобы по координатной сетке с шагом cellSize градусов
// и суммирует по ячейкам количество и срочность.
// Порядок ячеек в результате не определен.
func Heatmap(reports []*models.Report, cellSize float64, now time.Time) ([]*models.HeatmapCell, error) {
	if cellSize <= 0 {
		return nil, apperrors.Validation("cell_size must be positive")
	}

	buckets := make(map[bucketKey]*models.HeatmapCell)
	for _, report := range reports {
		key := bucketKey{
			lat: math.Round(report.Latitude/cellSize) * cellSize,
			lng: math.Round(report.Longitude/cellSize) * cellSize,
		}
		cell, ok := buckets[key]
		if !ok {
			cell = &models.HeatmapCell{Lat: key.lat, Lng: key.lng}
			buckets[key] = cell
		}
		cell.Count++
		cell.Urgency += UrgencyScore(report, now)
	}

	cells := make([]*models.HeatmapCell, 0, len(buckets))
	for _, cell := range buckets {
		cells = append(cells, cell)
	}
	return cells, nil
}
