package bot

import (
	"context"
	"errors"

	"dexarb/internal/config"
	"dexarb/internal/models"
	"dexarb/pkg/utils"
)

// ErrRiskRejected - возможность отклонена по суммарной оценке риска
var ErrRiskRejected = errors.New("risk rejected")

// ScoreContext - исторические данные для скоринга, поставляются извне.
// Сам Scorer никакого изменяемого состояния не держит.
type ScoreContext struct {
	Volatility   float64 // stddev лог-доходностей последних цен пары
	Volume24hUsd float64 // суточный объём пары, 0 = неизвестен
}

// Scorer вычисляет взвешенную оценку риска возможности.
// Чистая функция своих входов: одинаковые возможность и контекст
// всегда дают одинаковую оценку.
type Scorer struct {
	cfg    config.RiskConfig
	checks []SecurityCheck
}

// NewScorer создает скорер с табличной проверкой безопасности venue'ов
func NewScorer(cfg config.RiskConfig) *Scorer {
	return &Scorer{
		cfg: cfg,
		checks: []SecurityCheck{
			NewStaticVenueScore(cfg.SecurityScores, cfg.DefaultSecurityScore),
		},
	}
}

// WithChecks добавляет дополнительные проверки безопасности
func (s *Scorer) WithChecks(checks ...SecurityCheck) *Scorer {
	s.checks = append(s.checks, checks...)
	return s
}

// Score вычисляет пять компонент риска и их взвешенную сумму.
//
// Каждая компонента нормализована в [0, 100], выше = хуже. Суммарная
// оценка при корректных весах (сумма 1.0) гарантированно в [0, 100].
func (s *Scorer) Score(ctx context.Context, opp *models.Opportunity, sc ScoreContext) models.RiskScore {
	components := models.RiskComponents{
		Volatility:    s.volatilityRisk(sc.Volatility),
		Liquidity:     inverseScaleRisk(minLiquidity(opp), s.cfg.LiquidityZeroRiskUsd),
		Spread:        spreadRisk(opp.SpreadPct),
		Volume:        inverseScaleRisk(sc.Volume24hUsd, s.cfg.VolumeZeroRiskUsd),
		VenueSecurity: s.securityRisk(ctx, opp),
	}

	w := s.cfg.Weights
	total := utils.WeightedAverage(
		[]float64{components.Volatility, components.Liquidity, components.Spread, components.Volume, components.VenueSecurity},
		[]float64{w.Volatility, w.Liquidity, w.Spread, w.Volume, w.VenueSecurity},
	)
	total = utils.Clamp(total, 0, 100)

	return models.RiskScore{
		Total:      total,
		Components: components,
		Level:      models.RiskLevelFor(total),
	}
}

// Accept проверяет возможность против порога.
// Возвращает ErrRiskRejected, если суммарный риск не ниже порога.
func (s *Scorer) Accept(score models.RiskScore) error {
	if score.Total >= s.cfg.Threshold {
		return ErrRiskRejected
	}
	return nil
}

// volatilityRisk отображает stddev лог-доходностей линейно в [0, 100]:
// 0 -> 0, сконфигурированный потолок -> 100
func (s *Scorer) volatilityRisk(stddev float64) float64 {
	if s.cfg.VolatilityCeiling <= 0 {
		return 0
	}
	return utils.Clamp(stddev/s.cfg.VolatilityCeiling*100, 0, 100)
}

// inverseScaleRisk - обратная шкала: value >= zeroRiskAt даёт 0,
// value = 0 даёт 100
func inverseScaleRisk(value, zeroRiskAt float64) float64 {
	if zeroRiskAt <= 0 {
		return 100
	}
	if value < 0 {
		value = 0
	}
	scaled := value / zeroRiskAt * 100
	if scaled > 100 {
		scaled = 100
	}
	return 100 - scaled
}

// spreadRisk - категориальные band'ы по ширине спреда.
// Широкий спред подозрителен: реальные venue'ы редко расходятся
// больше чем на несколько процентов без проблем с данными или ликвидностью.
func spreadRisk(spreadPct float64) float64 {
	switch {
	case spreadPct <= 2:
		return 20
	case spreadPct <= 5:
		return 50
	default:
		return 80
	}
}

// securityRisk - худшая оценка безопасности среди обеих ног возможности
func (s *Scorer) securityRisk(ctx context.Context, opp *models.Opportunity) float64 {
	buyScore := AssessSecurity(ctx, s.checks, opp.Pair, opp.BuyVenue)
	sellScore := AssessSecurity(ctx, s.checks, opp.Pair, opp.SellVenue)
	if sellScore > buyScore {
		return sellScore
	}
	return buyScore
}

// minLiquidity возвращает меньшую ликвидность из двух ног
func minLiquidity(opp *models.Opportunity) float64 {
	if opp.BuyLiqUsd < opp.SellLiqUsd {
		return opp.BuyLiqUsd
	}
	return opp.SellLiqUsd
}
