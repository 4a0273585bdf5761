package v1

import (
	"time"

	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/shenikar/civic_report_system/internal/triage"
)

// DTOToReportModel преобразует DTO подачи жалобы в доменную модель
func DTOToReportModel(dto CreateReportRequest) *models.Report {
	return &models.Report{
		Category:    dto.Category,
		Severity:    dto.Severity,
		Description: dto.Description,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		Address:     dto.Address,
		ImageURL:    dto.ImageURL,
	}
}

// ModelToReportResponse преобразует доменную модель в DTO для ответа,
// досчитывая производные поля на момент чтения
func ModelToReportResponse(model *models.Report, now time.Time) *ReportResponse {
	daysOpen := triage.DaysOpen(model.CreatedAt, now)
	return &ReportResponse{
		ID:                 model.ID,
		TicketID:           model.TicketID,
		Category:           model.Category,
		Severity:           model.Severity,
		Description:        model.Description,
		Latitude:           model.Latitude,
		Longitude:          model.Longitude,
		Address:            model.Address,
		Status:             model.Status,
		Upvotes:            model.Upvotes,
		ImageURL:           model.ImageURL,
		ResolvedImageURL:   model.ResolvedImageURL,
		ResolvedConfidence: model.ResolvedConfidence,
		ResolvedVerified:   model.ResolvedVerified,
		ResolvedAt:         model.ResolvedAt,
		DuplicateOf:        model.DuplicateOf,
		DuplicateCount:     model.DuplicateCount,
		DaysOpen:           daysOpen,
		UrgencyScore:       triage.UrgencyScore(model, now),
		EscalationLevel:    triage.EscalationLevel(model.Status, daysOpen),
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

// ModelsToReportResponses преобразует слайс моделей в слайс DTO
func ModelsToReportResponses(reports []*models.Report, now time.Time) []*ReportResponse {
	responses := make([]*ReportResponse, len(reports))
	for i, report := range reports {
		responses[i] = ModelToReportResponse(report, now)
	}
	return responses
}

// ModelToLetterResponse преобразует письмо в DTO
func ModelToLetterResponse(letter *models.Letter) *LetterResponse {
	return &LetterResponse{
		Tone:     letter.Tone,
		DaysOpen: letter.DaysOpen,
		Subject:  letter.Subject,
		Body:     letter.Body,
	}
}

// ModelsToHeatmapResponse преобразует ячейки тепловой карты в DTO
func ModelsToHeatmapResponse(cells []*models.HeatmapCell, cellSize float64, days int) *HeatmapResponse {
	out := make([]HeatmapCellResponse, len(cells))
	for i, cell := range cells {
		out[i] = HeatmapCellResponse{
			Lat:     cell.Lat,
			Lng:     cell.Lng,
			Count:   cell.Count,
			Urgency: cell.Urgency,
		}
	}
	return &HeatmapResponse{
		CellSize: cellSize,
		Days:     days,
		Cells:    out,
	}
}
