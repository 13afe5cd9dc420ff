package handlers

import (
	"net/http"
	"strconv"
	"time"

	"dexarb/internal/models"
	"dexarb/internal/repository"
	"dexarb/internal/service"
)

// StatsHandler обрабатывает HTTP запросы для торговой статистики.
//
// Endpoints:
// - GET /api/v1/stats                                   - агрегированная статистика
// - GET /api/v1/stats/top-pairs?metric=trades|profit|loss - топ пар по метрике
// - GET /api/v1/stats/exit-reasons                      - распределение по причинам выхода
// - GET /api/v1/stats/trades                            - архив сделок
// - POST /api/v1/stats/reset                            - очистка архива
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler создает новый StatsHandler с внедрением зависимостей
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// StatsResponse агрегированная статистика за несколько периодов
type StatsResponse struct {
	Total   PeriodStats `json:"total"`
	Today   PeriodStats `json:"today"`
	Week    PeriodStats `json:"week"`
	Month   PeriodStats `json:"month"`
	WinRate float64     `json:"win_rate"` // за все время, %
}

// PeriodStats статистика за один период
type PeriodStats struct {
	Trades        int     `json:"trades"`
	WinningTrades int     `json:"winning_trades"`
	TotalPnl      float64 `json:"total_pnl"`
	BestTradePnl  float64 `json:"best_trade_pnl"`
	WorstTradePnl float64 `json:"worst_trade_pnl"`
}

// TradeResponse одна сделка из архива
type TradeResponse struct {
	ID          int     `json:"id"`
	PositionID  string  `json:"position_id"`
	Pair        string  `json:"pair"`
	Venue       string  `json:"venue"`
	EntryPrice  float64 `json:"entry_price"`
	SizeQuote   float64 `json:"size_quote"`
	RealizedPnl float64 `json:"realized_pnl"`
	TiersFired  int     `json:"tiers_fired"`
	ExitReason  string  `json:"exit_reason"`
	RiskScore   float64 `json:"risk_score"`
	OpenedAt    string  `json:"opened_at"`
	ClosedAt    string  `json:"closed_at"`
}

// GetStats возвращает агрегированную статистику за все время и за периоды
//
// GET /api/v1/stats
//
// Response 200 OK:
//
//	{
//	  "total": {"trades": 150, "winning_trades": 90, "total_pnl": 1250.50, ...},
//	  "today": {"trades": 5, ...},
//	  "week": {"trades": 25, ...},
//	  "month": {"trades": 80, ...},
//	  "win_rate": 60.0
//	}
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	total, err := h.statsService.GetStats()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get stats", err.Error())
		return
	}

	now := time.Now()
	periods := map[string]time.Time{
		"today": now.Truncate(24 * time.Hour),
		"week":  now.AddDate(0, 0, -7),
		"month": now.AddDate(0, -1, 0),
	}

	response := StatsResponse{
		Total:   toPeriodStats(total),
		WinRate: total.WinRate(),
	}

	for name, since := range periods {
		stats, err := h.statsService.GetStatsSince(since)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get period stats", err.Error())
			return
		}
		switch name {
		case "today":
			response.Today = toPeriodStats(stats)
		case "week":
			response.Week = toPeriodStats(stats)
		case "month":
			response.Month = toPeriodStats(stats)
		}
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GetTopPairs возвращает топ пар по указанной метрике
//
// GET /api/v1/stats/top-pairs?metric=trades|profit|loss&limit=5
//
// Query Parameters:
// - metric (optional): "trades" (default), "profit" или "loss"
// - limit (optional): количество пар (по умолчанию 5, максимум 20)
//
// Response 200 OK:
//
//	[
//	  {"pair": {"base": "SOL", "quote": "USDC"}, "trades_count": 50, "total_pnl": 320.5},
//	  ...
//	]
func (h *StatsHandler) GetTopPairs(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "trades"
	}

	validMetrics := map[string]bool{
		"trades": true,
		"profit": true,
		"loss":   true,
	}
	if !validMetrics[metric] {
		respondWithError(w, http.StatusBadRequest, "invalid_metric", "Invalid metric", "Valid metrics: trades, profit, loss")
		return
	}

	limit := 5
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 20 {
				limit = 20
			}
		}
	}

	topPairs, err := h.statsService.GetTopPairs(metric, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get top pairs", err.Error())
		return
	}

	// пустой массив вместо null
	if topPairs == nil {
		topPairs = []repository.PairStanding{}
	}

	respondWithJSON(w, http.StatusOK, topPairs)
}

// GetExitReasons возвращает распределение закрытых сделок по причинам выхода
//
// GET /api/v1/stats/exit-reasons
//
// Response 200 OK:
//
//	{"STOP_LOSS": 12, "TRAILING_STOP": 30, "TAKE_PROFIT_FINAL": 45, "TIME_EXPIRY": 8, "FORCED": 2}
func (h *StatsHandler) GetExitReasons(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.statsService.GetExitReasonBreakdown()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get exit reason breakdown", err.Error())
		return
	}

	if breakdown == nil {
		breakdown = map[string]int{}
	}

	respondWithJSON(w, http.StatusOK, breakdown)
}

// GetTrades возвращает закрытые сделки из архива
//
// GET /api/v1/stats/trades?limit=100&base=SOL&quote=USDC
//
// Query Parameters:
// - limit (optional): количество сделок (по умолчанию 100)
// - base, quote (optional): фильтр по паре (указываются вместе)
//
// Response 200 OK: массив сделок, новые сверху
func (h *StatsHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	base := r.URL.Query().Get("base")
	quote := r.URL.Query().Get("quote")

	var trades []*models.TradeRecord
	var err error
	if base != "" && quote != "" {
		trades, err = h.statsService.GetTradesByPair(base, quote, limit)
	} else {
		trades, err = h.statsService.GetRecentTrades(limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get trades", err.Error())
		return
	}

	response := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		response = append(response, TradeResponse{
			ID:          t.ID,
			PositionID:  t.PositionID,
			Pair:        t.Pair.String(),
			Venue:       t.Venue,
			EntryPrice:  t.EntryPrice,
			SizeQuote:   t.SizeQuote,
			RealizedPnl: t.RealizedPnl,
			TiersFired:  t.TiersFired,
			ExitReason:  t.ExitReason,
			RiskScore:   t.RiskScoreTotal,
			OpenedAt:    t.OpenedAt.Format(time.RFC3339),
			ClosedAt:    t.ClosedAt.Format(time.RFC3339),
		})
	}

	respondWithJSON(w, http.StatusOK, response)
}

// ResetStats очищает архив сделок
//
// POST /api/v1/stats/reset
//
// ВАЖНО: действие необратимо, все записи о сделках будут удалены.
//
// Response 200 OK:
//
//	{"message": "Stats reset successfully"}
func (h *StatsHandler) ResetStats(w http.ResponseWriter, r *http.Request) {
	if err := h.statsService.ResetStats(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to reset stats", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Stats reset successfully"})
}

func toPeriodStats(stats *models.Stats) PeriodStats {
	return PeriodStats{
		Trades:        stats.TotalTrades,
		WinningTrades: stats.WinningTrades,
		TotalPnl:      stats.TotalPnl,
		BestTradePnl:  stats.BestTradePnl,
		WorstTradePnl: stats.WorstTradePnl,
	}
}
