package triage

import (
	"math"

	"github.com/shenikar/civic_report_system/internal/models"
)

// minBeforeScore - нижняя граница счета "до", защищает деление от взрыва,
// когда на исходном снимке ничего не распознано
const minBeforeScore = 0.05

// verifiedThreshold - минимальная уверенность, при которой жалоба
// считается подтвержденно устраненной
const verifiedThreshold = 0.6

// DetectionScore суммирует уверенность всех распознаваний с заданной меткой
func DetectionScore(detections []models.Detection, targetLabel string) float64 {
	var score float64
	for _, d := range detections {
		if d.Label == targetLabel {
			score += d.Confidence
		}
	}
	return score
}

// ResolutionConfidence оценивает по падению счета распознавания между
// снимками "до" и "после", насколько вероятно, что проблема устранена
func ResolutionConfidence(before, after []models.Detection, category string) *models.VerificationResult {
	beforeScore := DetectionScore(before, category)
	afterScore := DetectionScore(after, category)

	safeBefore := math.Max(beforeScore, minBeforeScore)
	drop := math.Max(0, safeBefore-afterScore)
	confidence := math.Min(1, drop/safeBefore)

	return &models.VerificationResult{
		BeforeScore:          beforeScore,
		AfterScore:           afterScore,
		ResolutionConfidence: confidence,
		ResolvedVerified:     confidence >= verifiedThreshold,
	}
}
