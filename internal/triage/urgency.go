package triage

import (
	"math"
	"time"

	"github.com/shenikar/civic_report_system/internal/models"
)

// severityWeights - вес каждого уровня серьезности в расчете срочности
var severityWeights = map[string]int{
	models.SeverityLow:    1,
	models.SeverityMedium: 2,
	models.SeverityHigh:   3,
	models.SeverityUrgent: 4,
}

// maxScoredDays - возраст жалобы учитывается в счете максимум за 14 дней.
// На тон эскалации этот потолок не влияет.
const maxScoredDays = 14

// resolvedDiscount - закрытые жалобы сильно дисконтируются, но не обнуляются,
// чтобы сохранить историческое ранжирование
const resolvedDiscount = 0.2

// DaysOpen возвращает число полных дней с момента создания жалобы.
// Для нулевого времени создания возвращает 0 и никогда не падает.
func DaysOpen(createdAt time.Time, now time.Time) int {
	if createdAt.IsZero() {
		return 0
	}
	days := int(math.Floor(now.Sub(createdAt).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// SeverityWeight возвращает вес серьезности, 1 для неизвестных значений
func SeverityWeight(severity string) int {
	if w, ok := severityWeights[severity]; ok {
		return w
	}
	return 1
}

// UrgencyScore вычисляет целочисленный приоритет жалобы из серьезности,
// возраста, голосов и статуса
func UrgencyScore(report *models.Report, now time.Time) int {
	openDays := DaysOpen(report.CreatedAt, now)
	if openDays > maxScoredDays {
		openDays = maxScoredDays
	}

	base := float64(SeverityWeight(report.Severity)*10 + openDays*2 + report.Upvotes)
	if report.IsResolved() {
		return int(math.Round(base * resolvedDiscount))
	}
	return int(math.Round(base))
}
