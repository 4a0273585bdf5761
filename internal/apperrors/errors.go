package apperrors

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибку для маппинга на HTTP-статус
type Kind int

const (
	// KindValidation - некорректный или неполный ввод
	KindValidation Kind = iota
	// KindNotFound - запрошенная жалоба не существует
	KindNotFound
	// KindUpstream - внешний сервис (бд, распознавание) вернул ошибку
	KindUpstream
	// KindPersistence - запись не удалась после успешной валидации
	KindPersistence
)

// Error - структурированная ошибка с видом и человекочитаемым сообщением
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation создает ошибку валидации
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound создает ошибку "не найдено"
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Upstream оборачивает ошибку внешнего сервиса, сохраняя исходное сообщение
func Upstream(err error, format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// Persistence оборачивает ошибку записи в хранилище
func Persistence(err error, format string, args ...any) *Error {
	return &Error{Kind: KindPersistence, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf возвращает вид ошибки, если она из нашей таксономии
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return 0, false
}

// IsKind проверяет, принадлежит ли ошибка заданному виду
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
