// Package venue предоставляет унифицированный интерфейс для получения
// котировок с децентрализованных бирж.
package venue

import (
	"context"
	"errors"
	"math"
	"time"

	"dexarb/internal/models"
)

// Source определяет унифицированный интерфейс источника котировок
type Source interface {
	// Name возвращает имя venue (всегда в нижнем регистре)
	Name() string

	// GetQuote получает текущую цену и ликвидность торговой пары
	GetQuote(ctx context.Context, pair models.TradingPair) (*models.Quote, error)

	// GetLiquidity получает оценку доступной ликвидности пары в USD
	GetLiquidity(ctx context.Context, pair models.TradingPair) (float64, error)

	// Close закрывает соединения с venue
	Close() error
}

// Сигнальные ошибки venue-слоя. Проверяются через errors.Is.
var (
	// ErrUnavailable - venue недоступен: сетевая ошибка, таймаут, HTTP 5xx
	ErrUnavailable = errors.New("venue unavailable")

	// ErrDataInvalid - venue ответил, но данные непригодны: нулевая или
	// отрицательная цена, NaN, пара отсутствует в ответе
	ErrDataInvalid = errors.New("venue data invalid")

	// ErrStaleQuote - котировка старше допустимого окна свежести
	ErrStaleQuote = errors.New("stale quote")
)

// Error представляет ошибку конкретного venue
type Error struct {
	Venue   string
	Message string
	Err     error // одна из сигнальных ошибок выше
}

func (e *Error) Error() string {
	return e.Venue + ": " + e.Message
}

// Unwrap возвращает сигнальную ошибку для поддержки errors.Is()
func (e *Error) Unwrap() error {
	return e.Err
}

func unavailable(venue, message string) *Error {
	return &Error{Venue: venue, Message: message, Err: ErrUnavailable}
}

func dataInvalid(venue, message string) *Error {
	return &Error{Venue: venue, Message: message, Err: ErrDataInvalid}
}

// ValidateQuote проверяет пригодность котировки.
// Цена должна быть конечной и строго положительной, ликвидность - неотрицательной.
func ValidateQuote(q *models.Quote) error {
	if q == nil {
		return dataInvalid("", "nil quote")
	}
	if q.Price <= 0 || math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
		return dataInvalid(q.Venue, "price must be a positive finite number")
	}
	if q.LiquidityUsd < 0 || math.IsNaN(q.LiquidityUsd) {
		return dataInvalid(q.Venue, "liquidity cannot be negative")
	}
	return nil
}

// CheckFreshness возвращает ErrStaleQuote, если котировка старше maxAge
func CheckFreshness(q *models.Quote, maxAge time.Duration, now time.Time) error {
	if maxAge > 0 && now.Sub(q.ObservedAt) > maxAge {
		return &Error{Venue: q.Venue, Message: "quote is older than freshness window", Err: ErrStaleQuote}
	}
	return nil
}
