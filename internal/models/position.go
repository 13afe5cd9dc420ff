package models

import "time"

// Состояния позиции (state machine)
//
// Open -> PartiallyClosed -> Closed; PartiallyClosed может повторяться
// по мере срабатывания tier'ов. Возврата из Closed нет.
const (
	PositionStateOpen            = "OPEN"
	PositionStatePartiallyClosed = "PARTIALLY_CLOSED"
	PositionStateClosed          = "CLOSED"
)

// Причины закрытия позиции
const (
	ExitReasonStopLoss        = "STOP_LOSS"
	ExitReasonTrailingStop    = "TRAILING_STOP"
	ExitReasonTakeProfitFinal = "TAKE_PROFIT_FINAL"
	ExitReasonTimeExpiry      = "TIME_EXPIRY"
	ExitReasonForced          = "FORCED" // ручное/аварийное закрытие
)

// TakeProfitTier - один уровень фиксации прибыли
//
// При достижении entryPrice * PriceMultiple продаётся FractionToSell
// от ОСТАВШЕГОСЯ размера позиции.
type TakeProfitTier struct {
	PriceMultiple  float64 `json:"price_multiple"`   // например 1.30 = +30%
	FractionToSell float64 `json:"fraction_to_sell"` // (0, 1]
	Fired          bool    `json:"fired"`
	FiredAt        time.Time `json:"fired_at,omitempty"`
}

// Position - открытая позиция
//
// Владелец и единственный мутатор - PositionManager. Изменяется только
// в ответ на ценовые обновления и подтверждённые fill'ы.
type Position struct {
	ID               string           `json:"id"` // uuid
	Pair             TradingPair      `json:"pair"`
	Venue            string           `json:"venue"` // venue входа (buy venue возможности)
	EntryPrice       float64          `json:"entry_price"`
	SizeBase         float64          `json:"size_base"`           // оставшийся размер в base
	InitialBase      float64          `json:"initial_base"`        // размер на входе в base
	SizeQuoteAtEntry float64          `json:"size_quote_at_entry"` // стоимость входа в quote
	StopLossPrice    float64          `json:"stop_loss_price"`
	TrailingStopPct  float64          `json:"trailing_stop_pct"` // ретрейсмент от максимума, доля (0.05 = 5%)
	TakeProfitTiers  []TakeProfitTier `json:"take_profit_tiers"` // упорядочены по PriceMultiple
	HighWaterPrice   float64          `json:"high_water_price"`  // максимум с момента входа
	RealizedPnl      float64          `json:"realized_pnl"`      // quote-валюта
	State            string           `json:"state"`
	ExitReason       string           `json:"exit_reason,omitempty"`
	OpenedAt         time.Time        `json:"opened_at"`
	ClosedAt         time.Time        `json:"closed_at,omitempty"`
	MaxHoldTime      time.Duration    `json:"max_hold_time"`
	LastPrice        float64          `json:"last_price"`
	LastUpdate       time.Time        `json:"last_update"`
}

// IsOpen возвращает true пока позиция не достигла терминального состояния
func (p *Position) IsOpen() bool {
	return p.State == PositionStateOpen || p.State == PositionStatePartiallyClosed
}

// FiredTiers возвращает количество сработавших tier'ов
func (p *Position) FiredTiers() int {
	n := 0
	for _, t := range p.TakeProfitTiers {
		if t.Fired {
			n++
		}
	}
	return n
}

// RemainingFraction возвращает долю исходного размера, ещё не проданную
func (p *Position) RemainingFraction() float64 {
	if p.InitialBase <= 0 {
		return 0
	}
	return p.SizeBase / p.InitialBase
}

// Fill - подтверждённое исполнение от TradeGateway
type Fill struct {
	ID            string      `json:"id"`
	PositionID    string      `json:"position_id,omitempty"` // пусто для входа
	Pair          TradingPair `json:"pair"`
	Side          string      `json:"side"` // buy, sell
	ExecutedPrice float64     `json:"executed_price"`
	ExecutedSize  float64     `json:"executed_size"` // base
	Timestamp     time.Time   `json:"timestamp"`
}

// Стороны fill'ов
const (
	FillSideBuy  = "buy"
	FillSideSell = "sell"
)
