package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================

// ============ Агрегация ============

// RoundsTotal - количество завершённых раундов опроса по парам
var RoundsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dexarb",
		Subsystem: "aggregator",
		Name:      "rounds_total",
		Help:      "Total number of completed polling rounds",
	},
	[]string{"pair"},
)

// VenueErrors - отказы venue'ов по классам ошибок
var VenueErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dexarb",
		Subsystem: "aggregator",
		Name:      "venue_errors_total",
		Help:      "Venue failures by error class",
	},
	[]string{"venue", "class"}, // class: unavailable, data_invalid, stale_quote, other
)

// QuotesCollected - количество котировок, собранных за раунд
var QuotesCollected = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dexarb",
		Subsystem: "aggregator",
		Name:      "quotes_per_round",
		Help:      "Number of quotes collected per polling round",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	},
	[]string{"pair"},
)

// ============ Детекция ============

// OpportunitiesDetected - результат детекции по парам
var OpportunitiesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dexarb",
		Subsystem: "detector",
		Name:      "opportunities_total",
		Help:      "Detection outcomes per pair",
	},
	[]string{"pair", "outcome"}, // outcome: detected, too_few_venues, same_venue, spread_below_min, insufficient_liquidity
)

// SpreadObserved - наблюдаемые спреды
var SpreadObserved = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dexarb",
		Subsystem: "detector",
		Name:      "spread_observed_percent",
		Help:      "Observed best spread values in percent",
		Buckets:   []float64{0, 0.5, 1, 2, 3, 5, 10, 20},
	},
	[]string{"pair"},
)

// ============ Риск ============

// RiskScores - распределение суммарных оценок риска
var RiskScores = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dexarb",
		Subsystem: "risk",
		Name:      "score_total",
		Help:      "Total risk score distribution",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	},
	[]string{"pair"},
)

// RiskRejected - возможности, отклонённые по риску
var RiskRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dexarb",
		Subsystem: "risk",
		Name:      "rejected_total",
		Help:      "Opportunities rejected by risk threshold",
	},
	[]string{"pair"},
)

// ============ Позиции ============

// OpenPositions - текущее количество открытых позиций
var OpenPositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "dexarb",
		Subsystem: "positions",
		Name:      "open",
		Help:      "Current number of open positions",
	},
)

// TierFills - сработавшие take-profit tier'ы
var TierFills = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dexarb",
		Subsystem: "positions",
		Name:      "tier_fills_total",
		Help:      "Take-profit tier fills",
	},
	[]string{"pair"},
)

// PositionsClosed - закрытые позиции по причинам
var PositionsClosed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dexarb",
		Subsystem: "positions",
		Name:      "closed_total",
		Help:      "Closed positions by exit reason",
	},
	[]string{"pair", "reason"},
)

// RealizedPnlTotal - суммарный реализованный PnL в quote-валюте.
// Gauge: PnL бывает отрицательным.
var RealizedPnlTotal = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "dexarb",
		Subsystem: "positions",
		Name:      "realized_pnl_total",
		Help:      "Total realized PnL in quote currency",
	},
)

// ExecutionFailures - отказы gateway по стадиям
var ExecutionFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dexarb",
		Subsystem: "gateway",
		Name:      "execution_failures_total",
		Help:      "Gateway execution failures by stage",
	},
	[]string{"stage"}, // entry, exit
)

// ============ Движок ============

// SuspendedPairs - количество приостановленных пар
var SuspendedPairs = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "dexarb",
		Subsystem: "engine",
		Name:      "suspended_pairs",
		Help:      "Pairs suspended because all venues are down",
	},
)

// EventsDropped - события, отброшенные из-за переполнения буфера подписчика
var EventsDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dexarb",
		Subsystem: "engine",
		Name:      "events_dropped_total",
		Help:      "Events dropped due to full subscriber buffers",
	},
	[]string{"type"},
)
