package domain

import (
	"errors"
	"fmt"
	"time"
)

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}

var (
	// ErrOffline нет сети и нет карты в кэше
	ErrOffline = errors.New("offline: network unreachable and no cached chart")
	// ErrInvalidBirthInput данные рождения не прошли валидацию
	ErrInvalidBirthInput = errors.New("invalid birth input")
	// ErrChartNotFound карты нет в кэше
	ErrChartNotFound = errors.New("chart not found")
	// ErrVisualizationNotFound у карты нет сохранённого изображения
	ErrVisualizationNotFound = errors.New("chart visualization not found")
)

// UnknownTimezoneError идентификатор пояса не найден в базе tzdata
type UnknownTimezoneError struct {
	Identifier string
}

func (e *UnknownTimezoneError) Error() string {
	return fmt.Sprintf("unknown timezone %q", e.Identifier)
}

// RulerNotFoundError управителя дома нет среди тел карты
type RulerNotFoundError struct {
	Body Body
}

func (e *RulerNotFoundError) Error() string {
	return fmt.Sprintf("ruling body %s not found among chart bodies", e.Body)
}

// QuotaExceededError лимит запросов исчерпан до RetryAfter
type QuotaExceededError struct {
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("request quota exceeded, retry after %s", e.RetryAfter)
}

// UpstreamError ошибка внешнего сервиса карт
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream failure: %v", e.Cause)
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// DecodingError ответ внешнего сервиса не удалось разобрать
type DecodingError struct {
	Cause error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding failure: %v", e.Cause)
}

func (e *DecodingError) Unwrap() error { return e.Cause }

// CachePersistError карта рассчитана, но не сохранена в кэш
type CachePersistError struct {
	Cause error
}

func (e *CachePersistError) Error() string {
	return fmt.Sprintf("cache persist failure: %v", e.Cause)
}

func (e *CachePersistError) Unwrap() error { return e.Cause }
