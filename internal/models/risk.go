package models

import (
	"fmt"
	"math"
)

// RiskScore - взвешенная оценка риска 0-100, выше = рискованнее
//
// Производное значение: пересчитывается по запросу, никогда не
// мутируется на месте.
type RiskScore struct {
	Total      float64        `json:"total"` // [0, 100]
	Components RiskComponents `json:"components"`
	Level      string         `json:"level"` // low, medium, high
}

// RiskComponents - пять подоценок, каждая в [0, 100]
type RiskComponents struct {
	Volatility    float64 `json:"volatility"`     // stddev лог-доходностей
	Liquidity     float64 `json:"liquidity"`      // обратная к ликвидности пула
	Spread        float64 `json:"spread"`         // категориальные band'ы по ширине спреда
	Volume        float64 `json:"volume"`         // обратная к 24h объёму
	VenueSecurity float64 `json:"venue_security"` // статическая оценка безопасности venue
}

// Уровни риска
const (
	RiskLevelLow    = "low"    // total < 30
	RiskLevelMedium = "medium" // 30 <= total < 60
	RiskLevelHigh   = "high"   // total >= 60
)

// RiskLevelFor возвращает категориальный уровень для численной оценки
func RiskLevelFor(total float64) string {
	switch {
	case total < 30:
		return RiskLevelLow
	case total < 60:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// RiskWeights - веса компонент, должны суммироваться в 1.0
type RiskWeights struct {
	Volatility    float64 `json:"volatility"`
	Liquidity     float64 `json:"liquidity"`
	Spread        float64 `json:"spread"`
	Volume        float64 `json:"volume"`
	VenueSecurity float64 `json:"venue_security"`
}

// DefaultRiskWeights возвращает веса по умолчанию
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		Volatility:    0.30,
		Liquidity:     0.25,
		Spread:        0.15,
		Volume:        0.15,
		VenueSecurity: 0.15,
	}
}

// Validate проверяет что веса неотрицательны и суммируются в 1.0
func (w RiskWeights) Validate() error {
	for name, v := range map[string]float64{
		"volatility":     w.Volatility,
		"liquidity":      w.Liquidity,
		"spread":         w.Spread,
		"volume":         w.Volume,
		"venue_security": w.VenueSecurity,
	} {
		if v < 0 {
			return fmt.Errorf("risk weight %s cannot be negative, got %f", name, v)
		}
	}

	sum := w.Volatility + w.Liquidity + w.Spread + w.Volume + w.VenueSecurity
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("risk weights must sum to 1.0, got %f", sum)
	}
	return nil
}
