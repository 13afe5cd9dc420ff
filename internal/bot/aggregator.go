// Package bot реализует торговое ядро: агрегацию цен по venue'ам,
// детекцию арбитражных возможностей, риск-скоринг и жизненный цикл позиций.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"dexarb/internal/models"
	"dexarb/internal/venue"
	"dexarb/pkg/retry"
)

// VenueFailure - отказ одного venue в рамках раунда опроса
type VenueFailure struct {
	Venue string
	Err   error
}

// PriceAggregator опрашивает сконфигурированные venue'ы параллельно
// и собирает котировки одного раунда в QuoteSet.
//
// Частичный отказ - штатный режим: упавший venue исключается из раунда
// и попадает в список отказов, раунд целиком не проваливается никогда.
type PriceAggregator struct {
	sources map[string]venue.Source
	timeout time.Duration // таймаут одного запроса к venue
	maxAge  time.Duration // окно свежести котировки
	logger  *zap.Logger

	mu     sync.Mutex
	rounds map[string]uint64 // pair symbol -> номер последнего раунда
}

// NewPriceAggregator создает агрегатор поверх набора источников
func NewPriceAggregator(sources map[string]venue.Source, timeout, maxAge time.Duration, logger *zap.Logger) *PriceAggregator {
	return &PriceAggregator{
		sources: sources,
		timeout: timeout,
		maxAge:  maxAge,
		logger:  logger,
		rounds:  make(map[string]uint64),
	}
}

// GetQuotes выполняет один раунд опроса: по одному параллельному запросу
// на каждый venue из списка, каждый ограничен таймаутом.
//
// Возвращает только после ответа или таймаута ВСЕХ venue'ов - ранний
// возврат ломал бы сравнимость timestamp'ов внутри раунда.
func (a *PriceAggregator) GetQuotes(ctx context.Context, pair models.TradingPair, venues []string) (*models.QuoteSet, []VenueFailure) {
	type result struct {
		venueName string
		quote     *models.Quote
		err       error
	}

	results := make(chan result, len(venues))
	var wg sync.WaitGroup

	for _, name := range venues {
		src, ok := a.sources[name]
		if !ok {
			results <- result{venueName: name, err: errors.New("venue not configured: " + name)}
			continue
		}

		wg.Add(1)
		go func(name string, src venue.Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			quote, err := a.fetchOne(fetchCtx, src, pair)
			results <- result{venueName: name, quote: quote, err: err}
		}(name, src)
	}

	wg.Wait()
	close(results)

	now := time.Now()
	qs := &models.QuoteSet{
		Pair:    pair,
		Round:   a.nextRound(pair),
		Quotes:  make(map[string]models.Quote),
		TakenAt: now,
	}

	var failures []VenueFailure
	for res := range results {
		if res.err != nil {
			failures = append(failures, VenueFailure{Venue: res.venueName, Err: res.err})
			VenueErrors.WithLabelValues(res.venueName, classifyVenueError(res.err)).Inc()
			a.logger.Warn("venue dropped from round",
				zap.String("venue", res.venueName),
				zap.String("pair", pair.String()),
				zap.Uint64("round", qs.Round),
				zap.Error(res.err))
			continue
		}
		qs.Quotes[res.venueName] = *res.quote
	}

	RoundsTotal.WithLabelValues(pair.Symbol()).Inc()
	return qs, failures
}

// fetchOne запрашивает котировку одного venue с одним быстрым повтором
// при сетевой недоступности. Повтор остаётся внутри таймаута venue.
func (a *PriceAggregator) fetchOne(ctx context.Context, src venue.Source, pair models.TradingPair) (*models.Quote, error) {
	var quote *models.Quote

	cfg := retry.AggressiveConfig()
	cfg.MaxRetries = 2
	cfg.RetryIf = func(err error) bool {
		return errors.Is(err, venue.ErrUnavailable)
	}

	err := retry.Do(ctx, func() error {
		q, err := src.GetQuote(ctx, pair)
		if err != nil {
			return err
		}
		quote = q
		return nil
	}, cfg)
	if err != nil {
		return nil, err
	}

	if err := venue.ValidateQuote(quote); err != nil {
		return nil, err
	}
	if err := venue.CheckFreshness(quote, a.maxAge, time.Now()); err != nil {
		return nil, err
	}
	return quote, nil
}

// nextRound выдаёт монотонно растущий номер раунда для пары
func (a *PriceAggregator) nextRound(pair models.TradingPair) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rounds[pair.Symbol()]++
	return a.rounds[pair.Symbol()]
}

// classifyVenueError возвращает метку класса ошибки для метрик
func classifyVenueError(err error) string {
	switch {
	case errors.Is(err, venue.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, venue.ErrDataInvalid):
		return "data_invalid"
	case errors.Is(err, venue.ErrStaleQuote):
		return "stale_quote"
	default:
		return "other"
	}
}
