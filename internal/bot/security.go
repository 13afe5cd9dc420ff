package bot

import (
	"context"
	"errors"

	"dexarb/internal/models"
	"dexarb/pkg/utils"
)

// ErrCheckNotImplemented - проверка заявлена, но не реализована.
// Нереализованная проверка трактуется как максимальный риск (fail closed),
// а не как тихое разрешение.
var ErrCheckNotImplemented = errors.New("security check not implemented")

// SecurityCheck - одна проверка безопасности venue/токена.
// Возвращает оценку риска [0, 100], выше = хуже.
type SecurityCheck interface {
	Name() string
	Assess(ctx context.Context, pair models.TradingPair, venueName string) (float64, error)
}

// ============================================================
// StaticVenueScore - табличная оценка безопасности venue
// ============================================================

// StaticVenueScore оценивает venue по статической таблице из конфигурации.
// Проверенные и давно работающие venue'ы получают низкую оценку,
// venue вне таблицы - оценку по умолчанию.
type StaticVenueScore struct {
	scores       map[string]float64
	defaultScore float64
}

// NewStaticVenueScore создает табличную проверку
func NewStaticVenueScore(scores map[string]float64, defaultScore float64) *StaticVenueScore {
	return &StaticVenueScore{scores: scores, defaultScore: defaultScore}
}

func (s *StaticVenueScore) Name() string {
	return "static_venue_score"
}

func (s *StaticVenueScore) Assess(_ context.Context, _ models.TradingPair, venueName string) (float64, error) {
	if score, ok := s.scores[venueName]; ok {
		return utils.Clamp(score, 0, 100), nil
	}
	return utils.Clamp(s.defaultScore, 0, 100), nil
}

// ============================================================
// Нереализованные проверки: honeypot, ownership, liquidity lock
// ============================================================
//
// Интерфейсы объявлены, реализация требует on-chain данных, которых
// у ядра нет. При включении в конфигурацию дают максимальный риск.

// HoneypotCheck - проверка токена на honeypot (невозможность продажи)
type HoneypotCheck struct{}

func (HoneypotCheck) Name() string { return "honeypot" }

func (HoneypotCheck) Assess(context.Context, models.TradingPair, string) (float64, error) {
	return 0, ErrCheckNotImplemented
}

// OwnershipCheck - проверка распределения токенов между держателями
// и прав владельца контракта
type OwnershipCheck struct{}

func (OwnershipCheck) Name() string { return "ownership" }

func (OwnershipCheck) Assess(context.Context, models.TradingPair, string) (float64, error) {
	return 0, ErrCheckNotImplemented
}

// LiquidityLockCheck - проверка блокировки ликвидности пула
type LiquidityLockCheck struct{}

func (LiquidityLockCheck) Name() string { return "liquidity_lock" }

func (LiquidityLockCheck) Assess(context.Context, models.TradingPair, string) (float64, error) {
	return 0, ErrCheckNotImplemented
}

// ============================================================
// Композиция проверок
// ============================================================

// AssessSecurity прогоняет все проверки и возвращает худшую оценку.
// Ошибка любой проверки (включая нереализованность) - максимальный риск.
func AssessSecurity(ctx context.Context, checks []SecurityCheck, pair models.TradingPair, venueName string) float64 {
	worst := 0.0
	for _, check := range checks {
		score, err := check.Assess(ctx, pair, venueName)
		if err != nil {
			return 100
		}
		if score > worst {
			worst = score
		}
	}
	return worst
}
