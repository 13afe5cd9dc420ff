package venue

import (
	"context"
	"sync"
	"time"

	"dexarb/internal/models"
)

// StaticSource - детерминированный источник котировок из заранее заданных
// значений. Используется в тестах и в режиме симуляции без внешних API.
type StaticSource struct {
	name string

	mu     sync.Mutex
	quotes map[string]models.Quote // pair symbol -> котировка
	err    error                   // если задана, возвращается вместо котировок
	calls  int

	// Now подменяет источник времени (по умолчанию time.Now)
	Now func() time.Time
}

// NewStatic создает пустой статический источник
func NewStatic(name string) *StaticSource {
	return &StaticSource{
		name:   name,
		quotes: make(map[string]models.Quote),
		Now:    time.Now,
	}
}

func (s *StaticSource) Name() string {
	return s.name
}

// SetQuote задает котировку пары. Venue и ObservedAt проставляются при выдаче.
func (s *StaticSource) SetQuote(pair models.TradingPair, price, liquidityUsd float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[pair.Symbol()] = models.Quote{
		Pair:         pair,
		Price:        price,
		LiquidityUsd: liquidityUsd,
	}
}

// SetVolume задает суточный объём пары
func (s *StaticSource) SetVolume(pair models.TradingPair, volumeUsd float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.quotes[pair.Symbol()]
	q.Volume24hUsd = volumeUsd
	s.quotes[pair.Symbol()] = q
}

// SetError переводит источник в режим отказа. nil снимает отказ.
func (s *StaticSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls возвращает число обращений к источнику
func (s *StaticSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StaticSource) GetQuote(_ context.Context, pair models.TradingPair) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if s.err != nil {
		return nil, &Error{Venue: s.name, Message: s.err.Error(), Err: s.err}
	}

	q, ok := s.quotes[pair.Symbol()]
	if !ok {
		return nil, dataInvalid(s.name, "no quote configured for "+pair.Symbol())
	}

	q.Venue = s.name
	q.ObservedAt = s.Now()
	return &q, nil
}

func (s *StaticSource) GetLiquidity(_ context.Context, pair models.TradingPair) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if s.err != nil {
		return 0, &Error{Venue: s.name, Message: s.err.Error(), Err: s.err}
	}

	q, ok := s.quotes[pair.Symbol()]
	if !ok {
		return 0, dataInvalid(s.name, "no quote configured for "+pair.Symbol())
	}
	return q.LiquidityUsd, nil
}

func (s *StaticSource) Close() error {
	return nil
}
