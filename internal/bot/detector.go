package bot

import (
	"time"

	"dexarb/internal/models"
	"dexarb/pkg/utils"
)

// Причины отклонения раунда детектором. Для метрик и отчётности.
const (
	RejectNone         = ""
	RejectTooFewVenues = "too_few_venues"
	RejectSameVenue    = "same_venue"
	RejectSpreadBelow  = "spread_below_min"
	RejectLowLiquidity = "insufficient_liquidity"
)

// DetectorConfig - пороги детекции возможностей
type DetectorConfig struct {
	MinSpreadPct      float64 // минимальный спред для возможности, %
	LiquidityFloorUsd float64 // минимальная ликвидность обеих ног, USD
}

// Detect ищет арбитражную возможность в котировках одного раунда.
//
// buy venue = argmin цены, sell venue = argmax цены; равенство цен
// разрешается в пользу большей ликвидности, затем лексикографически
// по имени venue - детерминированно при одинаковых входах.
//
// Чистая функция: никакого скрытого состояния, повторный вызов на тех же
// входах даёт идентичный результат.
func Detect(qs *models.QuoteSet, cfg DetectorConfig, now time.Time) (*models.Opportunity, string) {
	if qs == nil || len(qs.Quotes) < 2 {
		return nil, RejectTooFewVenues
	}

	var buy, sell *models.Quote
	for name := range qs.Quotes {
		q := qs.Quotes[name]
		if buy == nil || betterBuy(&q, buy) {
			buyCopy := q
			buy = &buyCopy
		}
		if sell == nil || betterSell(&q, sell) {
			sellCopy := q
			sell = &sellCopy
		}
	}

	// Все цены равны и tie-break выбрал один и тот же venue
	if buy.Venue == sell.Venue {
		return nil, RejectSameVenue
	}

	spreadPct := utils.SpreadPct(buy.Price, sell.Price)
	if spreadPct < cfg.MinSpreadPct {
		return nil, RejectSpreadBelow
	}

	if buy.LiquidityUsd < cfg.LiquidityFloorUsd || sell.LiquidityUsd < cfg.LiquidityFloorUsd {
		return nil, RejectLowLiquidity
	}

	return &models.Opportunity{
		Pair:       qs.Pair,
		BuyVenue:   buy.Venue,
		SellVenue:  sell.Venue,
		BuyPrice:   buy.Price,
		SellPrice:  sell.Price,
		SpreadPct:  spreadPct,
		BuyLiqUsd:  buy.LiquidityUsd,
		SellLiqUsd: sell.LiquidityUsd,
		Round:      qs.Round,
		DetectedAt: now,
	}, RejectNone
}

// betterBuy возвращает true, если a предпочтительнее b как buy venue
func betterBuy(a, b *models.Quote) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if a.LiquidityUsd != b.LiquidityUsd {
		return a.LiquidityUsd > b.LiquidityUsd
	}
	return a.Venue < b.Venue
}

// betterSell возвращает true, если a предпочтительнее b как sell venue
func betterSell(a, b *models.Quote) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if a.LiquidityUsd != b.LiquidityUsd {
		return a.LiquidityUsd > b.LiquidityUsd
	}
	return a.Venue < b.Venue
}
