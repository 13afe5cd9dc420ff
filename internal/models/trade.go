package models

import "time"

// TradeRecord - архивная запись закрытой позиции
//
// Создаётся после перехода позиции в CLOSED; активная позиция при этом
// удаляется из рабочего набора PositionManager.
type TradeRecord struct {
	ID             int         `json:"id" db:"id"`
	PositionID     string      `json:"position_id" db:"position_id"`
	Pair           TradingPair `json:"pair"`
	Venue          string      `json:"venue" db:"venue"`
	EntryPrice     float64     `json:"entry_price" db:"entry_price"`
	SizeQuote      float64     `json:"size_quote" db:"size_quote"`
	RealizedPnl    float64     `json:"realized_pnl" db:"realized_pnl"`
	TiersFired     int         `json:"tiers_fired" db:"tiers_fired"`
	ExitReason     string      `json:"exit_reason" db:"exit_reason"`
	RiskScoreTotal float64     `json:"risk_score_total" db:"risk_score_total"`
	OpenedAt       time.Time   `json:"opened_at" db:"opened_at"`
	ClosedAt       time.Time   `json:"closed_at" db:"closed_at"`
}

// Stats - агрегированная торговая статистика
type Stats struct {
	TotalTrades   int       `json:"total_trades" db:"total_trades"`
	WinningTrades int       `json:"winning_trades" db:"winning_trades"`
	TotalPnl      float64   `json:"total_pnl" db:"total_pnl"`
	BestTradePnl  float64   `json:"best_trade_pnl" db:"best_trade_pnl"`
	WorstTradePnl float64   `json:"worst_trade_pnl" db:"worst_trade_pnl"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// WinRate возвращает долю прибыльных сделок в процентах
func (s *Stats) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades) * 100
}
