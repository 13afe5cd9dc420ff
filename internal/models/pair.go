package models

import (
	"fmt"
	"time"
)

// TradingPair - идентификатор торговой пары (неизменяемый ключ)
type TradingPair struct {
	Base  string `json:"base" db:"base"`   // SOL
	Quote string `json:"quote" db:"quote"` // USDC
}

// String возвращает каноническое представление пары: "SOL/USDC"
func (p TradingPair) String() string {
	return p.Base + "/" + p.Quote
}

// Symbol возвращает компактный символ пары: "SOLUSDC"
func (p TradingPair) Symbol() string {
	return p.Base + p.Quote
}

// Validate проверяет корректность пары
func (p TradingPair) Validate() error {
	if p.Base == "" || p.Quote == "" {
		return fmt.Errorf("trading pair requires both base and quote, got %q/%q", p.Base, p.Quote)
	}
	if p.Base == p.Quote {
		return fmt.Errorf("base and quote must differ, got %q", p.Base)
	}
	return nil
}

// PairConfig представляет конфигурацию отслеживаемой торговой пары
type PairConfig struct {
	ID             int         `json:"id" db:"id"`
	Pair           TradingPair `json:"pair"`
	Venues         []string    `json:"venues"`                                 // venue'ы для опроса
	MinSpreadPct   float64     `json:"min_spread_pct" db:"min_spread_pct"`     // минимальный спред для возможности, %
	LiquidityFloor float64     `json:"liquidity_floor" db:"liquidity_floor"`   // минимальная ликвидность на обеих ногах, USD
	EntrySizeQuote float64     `json:"entry_size_quote" db:"entry_size_quote"` // размер входа в quote-валюте
	MaxSlippagePct float64     `json:"max_slippage_pct" db:"max_slippage_pct"` // допустимое проскальзывание, %
	Status         string      `json:"status" db:"status"`                     // paused, active, suspended
	TradesCount    int         `json:"trades_count" db:"trades_count"`         // локальная статистика
	TotalPnl       float64     `json:"total_pnl" db:"total_pnl"`               // локальная статистика
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Статусы пары
const (
	PairStatusPaused = "paused"
	PairStatusActive = "active"
	// PairStatusSuspended - все venue'ы пары недоступны, детекция приостановлена
	// до возобновления котировок. Отличается от "нет возможности" в отчётности.
	PairStatusSuspended = "suspended"
)
