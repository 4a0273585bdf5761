package triage

import (
	"testing"
	"time"

	"github.com/shenikar/civic_report_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscalationLevel(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		openDays int
		expected string
	}{
		{"свежая жалоба вежливая", models.StatusSubmitted, 0, models.TonePolite},
		{"два дня все еще вежливая", models.StatusSubmitted, 2, models.TonePolite},
		{"три дня настойчивая", models.StatusSubmitted, 3, models.ToneFirm},
		{"шесть дней настойчивая", models.StatusInProgress, 6, models.ToneFirm},
		{"семь дней срочная", models.StatusSubmitted, 7, models.ToneUrgent},
		{"десять дней срочная", models.StatusInProgress, 10, models.ToneUrgent},
		{"resolved перекрывает возраст", models.StatusResolved, 100, models.ToneResolved},
		{"resolved в нулевой день", models.StatusResolved, 0, models.ToneResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscalationLevel(tt.status, tt.openDays))
		})
	}
}

func TestRenderLetter_Urgent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	report := &models.Report{
		TicketID:    "CIM-ABCD1234",
		Category:    "broken_streetlight",
		Description: "The lamp has been flickering for weeks",
		Address:     "Main Street 12",
		Status:      models.StatusSubmitted,
		CreatedAt:   now.AddDate(0, 0, -10),
	}

	letter := RenderLetter(report, now)
	require.NotNil(t, letter)

	assert.Equal(t, models.ToneUrgent, letter.Tone)
	assert.Equal(t, 10, letter.DaysOpen)
	// подчеркивания в категории заменяются пробелами
	assert.Contains(t, letter.Subject, "broken streetlight")
	assert.Contains(t, letter.Subject, "CIM-ABCD1234")
	assert.Contains(t, letter.Body, "urgent follow-up")
	assert.Contains(t, letter.Body, "Main Street 12")
	assert.Contains(t, letter.Body, "The lamp has been flickering for weeks")
	assert.Contains(t, letter.Body, "CIM-ABCD1234")
	assert.Contains(t, letter.Body, "10 day(s)")
}

func TestRenderLetter_PoliteWithEmptyDescription(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	report := &models.Report{
		TicketID:  "CIM-00000001",
		Category:  "pothole",
		Address:   "Oak Avenue 3",
		Status:    models.StatusSubmitted,
		CreatedAt: now,
	}

	letter := RenderLetter(report, now)

	assert.Equal(t, models.TonePolite, letter.Tone)
	assert.Equal(t, 0, letter.DaysOpen)
	assert.Contains(t, letter.Body, "polite follow-up")
	// пустое описание заменяется запасной фразой
	assert.Contains(t, letter.Body, "the issue described in the attached report")
}

func TestRenderLetter_FirmTone(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	report := &models.Report{
		TicketID:  "CIM-FFFF0000",
		Category:  "garbage",
		Address:   "Pine Road 7",
		Status:    models.StatusInProgress,
		CreatedAt: now.AddDate(0, 0, -4),
	}

	letter := RenderLetter(report, now)

	assert.Equal(t, models.ToneFirm, letter.Tone)
	assert.Contains(t, letter.Body, "firm follow-up")
}
