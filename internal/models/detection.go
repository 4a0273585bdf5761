package models

// Detection - один распознанный объект на фотографии
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DetectionResult - ответ сервиса распознавания на один снимок
type DetectionResult struct {
	Model             string      `json:"model,omitempty"`
	Detections        []Detection `json:"detections"`
	SuggestedCategory string      `json:"suggestedCategory,omitempty"`
}

// VerificationResult - итог сверки фотографий "до" и "после"
type VerificationResult struct {
	BeforeScore          float64 `json:"before_score"`
	AfterScore           float64 `json:"after_score"`
	ResolutionConfidence float64 `json:"resolution_confidence"`
	ResolvedVerified     bool    `json:"resolved_verified"`
}

// HeatmapCell - одна ячейка тепловой карты срочности
type HeatmapCell struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Count   int     `json:"count"`
	Urgency int     `json:"urgency"`
}

// Letter - сгенерированное письмо-жалоба
type Letter struct {
	Tone     string `json:"tone"`
	DaysOpen int    `json:"days_open"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}
