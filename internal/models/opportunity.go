package models

import "time"

// Opportunity - найденная межвенуенная арбитражная возможность
//
// По построению BuyPrice <= SellPrice (BuyVenue = argmin, SellVenue = argmax),
// SpreadPct >= сконфигурированного минимума.
type Opportunity struct {
	Pair       TradingPair `json:"pair"`
	BuyVenue   string      `json:"buy_venue"`  // где покупаем (минимальная цена)
	SellVenue  string      `json:"sell_venue"` // где продаём (максимальная цена)
	BuyPrice   float64     `json:"buy_price"`
	SellPrice  float64     `json:"sell_price"`
	SpreadPct  float64     `json:"spread_pct"` // (sell - buy) / buy * 100
	BuyLiqUsd  float64     `json:"buy_liquidity_usd"`
	SellLiqUsd float64     `json:"sell_liquidity_usd"`
	Round      uint64      `json:"round"` // раунд агрегации, породивший возможность
	DetectedAt time.Time   `json:"detected_at"`
}
