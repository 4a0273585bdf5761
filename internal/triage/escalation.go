package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/shenikar/civic_report_system/internal/models"
)

// Пороги возраста жалобы для смены тона письма, в днях
const (
	firmAfterDays   = 3
	urgentAfterDays = 7
)

// EscalationLevel возвращает тон письма по статусу и возрасту жалобы.
// Статус resolved терминален и перекрывает возраст.
func EscalationLevel(status string, openDays int) string {
	switch {
	case status == models.StatusResolved:
		return models.ToneResolved
	case openDays >= urgentAfterDays:
		return models.ToneUrgent
	case openDays >= firmAfterDays:
		return models.ToneFirm
	default:
		return models.TonePolite
	}
}

// toneOpenings - вступительная фраза письма для каждого тона
var toneOpenings = map[string]string{
	models.TonePolite:   "I am writing to you as a polite follow-up",
	models.ToneFirm:     "I am writing to you as a firm follow-up",
	models.ToneUrgent:   "I am writing to you as an urgent follow-up",
	models.ToneResolved: "I am writing to confirm the resolution of a report",
}

// RenderLetter собирает формальное письмо-жалобу по полям отчета.
// Чистая шаблонизация текста, без внешних эффектов.
func RenderLetter(report *models.Report, now time.Time) *models.Letter {
	openDays := DaysOpen(report.CreatedAt, now)
	tone := EscalationLevel(report.Status, openDays)

	category := strings.ReplaceAll(report.Category, "_", " ")

	description := report.Description
	if description == "" {
		description = "the issue described in the attached report"
	}

	subject := fmt.Sprintf("Complaint regarding %s (Ticket %s)", category, report.TicketID)

	body := fmt.Sprintf(
		"Dear Sir or Madam,\n\n"+
			"%s regarding an unresolved civic issue in our area. "+
			"The issue concerns a %s located at %s.\n\n"+
			"Details of the complaint: %s\n\n"+
			"This report was registered under ticket %s and has remained open for %d day(s). "+
			"We kindly request that the responsible department takes the necessary action "+
			"and informs us of the progress.\n\n"+
			"Sincerely,\nA concerned citizen",
		toneOpenings[tone],
		category,
		report.Address,
		description,
		report.TicketID,
		openDays,
	)

	return &models.Letter{
		Tone:     tone,
		DaysOpen: openDays,
		Subject:  subject,
		Body:     body,
	}
}
