package models

import (
	"io"
	"time"
)

// ListFilter - параметры списочного запроса жалоб
type ListFilter struct {
	Page     int
	PageSize int
	Status   string
	Category string
}

// ResolutionUpdate - поля, записываемые по итогам проверки устранения
type ResolutionUpdate struct {
	Confidence float64
	Verified   bool
	ImageURL   string
	Status     string
	ResolvedAt *time.Time
}

// AfterImage - снимок "после" для проверки устранения. Клиент передает
// либо загруженный файл, либо публичный URL; для загруженного файла
// хендлер дополнительно проставляет URL сохраненной копии
type AfterImage struct {
	URL      string
	File     io.Reader
	Filename string
}
