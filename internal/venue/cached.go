package venue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dexarb/internal/models"
	"dexarb/pkg/cache"
	"dexarb/pkg/ratelimit"
)

// CachedSource оборачивает Source, добавляя per-venue rate limiting
// с fallback на закэшированную котировку.
//
// Поведение:
//   - лимит не исчерпан: свежий запрос к venue, успешный ответ кэшируется
//   - лимит исчерпан: возвращается закэшированная котировка, если она
//     не старше окна свежести; иначе StaleQuote
//
// Rate limiting не считается отказом venue: пара продолжает работать
// на закэшированных данных до восстановления лимита.
type CachedSource struct {
	src     Source
	limiter *ratelimit.Limiter
	cache   *cache.TTLCache
	maxAge  time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewCached оборачивает источник лимитером и кэшем.
// maxAge - окно свежести закэшированных котировок.
func NewCached(src Source, limiter *ratelimit.Limiter, quoteCache *cache.TTLCache, maxAge time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{
		src:     src,
		limiter: limiter,
		cache:   quoteCache,
		maxAge:  maxAge,
		logger:  logger,
		now:     time.Now,
	}
}

func (c *CachedSource) Name() string {
	return c.src.Name()
}

func (c *CachedSource) GetQuote(ctx context.Context, pair models.TradingPair) (*models.Quote, error) {
	key := pair.Symbol()

	if !c.limiter.Allow() {
		return c.fromCache(key)
	}

	quote, err := c.src.GetQuote(ctx, pair)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, quote)
	return quote, nil
}

// GetLiquidity отдает ликвидность через тот же лимитер и кэш, что и GetQuote
func (c *CachedSource) GetLiquidity(ctx context.Context, pair models.TradingPair) (float64, error) {
	quote, err := c.GetQuote(ctx, pair)
	if err != nil {
		return 0, err
	}
	return quote.LiquidityUsd, nil
}

// fromCache возвращает последнюю закэшированную котировку, если она свежая
func (c *CachedSource) fromCache(key string) (*models.Quote, error) {
	value, _, ok := c.cache.GetStale(key)
	if !ok {
		c.logger.Debug("rate limited with empty cache",
			zap.String("venue", c.Name()),
			zap.String("pair", key))
		return nil, unavailable(c.Name(), "rate limited and no cached quote")
	}

	quote := value.(*models.Quote)
	if err := CheckFreshness(quote, c.maxAge, c.now()); err != nil {
		return nil, err
	}

	c.logger.Debug("serving cached quote",
		zap.String("venue", c.Name()),
		zap.String("pair", key),
		zap.Time("observed_at", quote.ObservedAt))
	return quote, nil
}

func (c *CachedSource) Close() error {
	c.cache.Stop()
	return c.src.Close()
}
