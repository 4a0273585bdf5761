package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity levels a citizen can assign to a report.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
	SeverityUrgent = "urgent"
)

// Report lifecycle statuses. The set is open-ended; "resolved" is the only
// status the triage logic treats specially.
const (
	StatusSubmitted  = "submitted"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// Escalation tones for auto-generated complaint letters.
const (
	TonePolite   = "polite"
	ToneFirm     = "firm"
	ToneUrgent   = "urgent"
	ToneResolved = "resolved"
)

// Report представляет жалобу гражданина на объект городской инфраструктуры
type Report struct {
	ID          uuid.UUID `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Category    string    `json:"category"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     string    `json:"address"`
	Status      string    `json:"status"`
	Upvotes     int       `json:"upvotes"`

	ImageURL         string `json:"image_url,omitempty"`
	ResolvedImageURL string `json:"resolved_image_url,omitempty"`

	ResolvedConfidence float64    `json:"resolved_confidence"`
	ResolvedVerified   bool       `json:"resolved_verified"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`

	DuplicateOf    *uuid.UUID `json:"duplicate_of,omitempty"`
	DuplicateCount int        `json:"duplicate_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsResolved сообщает, закрыта ли жалоба
func (r *Report) IsResolved() bool {
	return r.Status == StatusResolved
}

// NewTicketID генерирует человекочитаемый номер тикета вида CIM-XXXXXXXX.
// Номер выдается один раз при создании и больше никогда не перегенерируется.
func NewTicketID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("CIM-%s", strings.ToUpper(raw[:8]))
}
