package v1

import (
	"time"

	"github.com/google/uuid"
)

// CreateReportRequest DTO для подачи жалобы
// @Description DTO для подачи жалобы
type CreateReportRequest struct {
	Category    string  `json:"category" form:"category" validate:"required,min=2,max=64"`
	Severity    string  `json:"severity,omitempty" form:"severity" validate:"omitempty,oneof=low medium high urgent"`
	Description string  `json:"description,omitempty" form:"description"`
	Latitude    float64 `json:"latitude" form:"latitude" validate:"required,latitude"`
	Longitude   float64 `json:"longitude" form:"longitude" validate:"required,longitude"`
	Address     string  `json:"address,omitempty" form:"address"`
	ImageURL    string  `json:"image_url,omitempty" form:"image_url" validate:"omitempty,url"`
}

// ReportResponse DTO для ответа с информацией о жалобе.
// days_open, urgency_score и escalation_level вычисляются на каждом чтении
// и не хранятся в бд.
type ReportResponse struct {
	ID          uuid.UUID `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Category    string    `json:"category"`
	Severity    string    `json:"severity"`
	Description string    `json:"description,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     string    `json:"address,omitempty"`
	Status      string    `json:"status"`
	Upvotes     int       `json:"upvotes"`

	ImageURL         string `json:"image_url,omitempty"`
	ResolvedImageURL string `json:"resolved_image_url,omitempty"`

	ResolvedConfidence float64    `json:"resolved_confidence"`
	ResolvedVerified   bool       `json:"resolved_verified"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`

	DuplicateOf    *uuid.UUID `json:"duplicate_of,omitempty"`
	DuplicateCount int        `json:"duplicate_count"`

	DaysOpen        int    `json:"days_open"`
	UrgencyScore    int    `json:"urgency_score"`
	EscalationLevel string `json:"escalation_level"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VerifyReportRequest DTO для проверки устранения по URL снимка "после"
// @Description DTO для проверки устранения
type VerifyReportRequest struct {
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

// VerifyReportResponse DTO с итогом проверки устранения
// @Description DTO с итогом проверки устранения
type VerifyReportResponse struct {
	BeforeScore          float64         `json:"before_score"`
	AfterScore           float64         `json:"after_score"`
	ResolutionConfidence float64         `json:"resolution_confidence"`
	ResolvedVerified     bool            `json:"resolved_verified"`
	Report               *ReportResponse `json:"report"`
}

// LetterResponse DTO со сгенерированным письмом-жалобой
// @Description DTO со сгенерированным письмом-жалобой
type LetterResponse struct {
	Tone     string `json:"tone"`
	DaysOpen int    `json:"days_open"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// HeatmapCellResponse DTO одной ячейки тепловой карты
type HeatmapCellResponse struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Count   int     `json:"count"`
	Urgency int     `json:"urgency"`
}

// HeatmapResponse DTO тепловой карты срочности
// @Description DTO тепловой карты срочности
type HeatmapResponse struct {
	CellSize float64               `json:"cell_size"`
	Days     int                   `json:"days"`
	Cells    []HeatmapCellResponse `json:"cells"`
}

// DetectRequest DTO для проксирования запроса распознавания
// @Description DTO для запроса распознавания
type DetectRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}
