package handlers

import (
	"errors"
	"net/http"
	"time"

	"dexarb/internal/models"
	"dexarb/internal/service"

	"github.com/gorilla/mux"
)

// PositionHandler отвечает за доступ к открытым позициям
//
// Endpoints:
// - GET /api/v1/positions              - список открытых позиций
// - GET /api/v1/positions/{id}         - снимок конкретной позиции
// - POST /api/v1/positions/{id}/close  - принудительное закрытие
//
// Позиции живут в памяти движка; handler отдает их снимки
// и проксирует ручное закрытие по текущей цене.
type PositionHandler struct {
	positionService *service.PositionService
}

// NewPositionHandler создает новый PositionHandler с внедрением зависимостей
func NewPositionHandler(positionService *service.PositionService) *PositionHandler {
	return &PositionHandler{
		positionService: positionService,
	}
}

// TierResponse один уровень take-profit в ответе API
type TierResponse struct {
	PriceMultiple  float64 `json:"price_multiple"`
	FractionToSell float64 `json:"fraction_to_sell"`
	Fired          bool    `json:"fired"`
}

// PositionResponse снимок позиции в ответе API
type PositionResponse struct {
	ID               string         `json:"id"`
	Pair             string         `json:"pair"`
	Venue            string         `json:"venue"`
	State            string         `json:"state"`
	EntryPrice       float64        `json:"entry_price"`
	SizeBase         float64        `json:"size_base"`
	InitialBase      float64        `json:"initial_base"`
	SizeQuoteAtEntry float64        `json:"size_quote_at_entry"`
	StopLossPrice    float64        `json:"stop_loss_price"`
	TrailingStopPct  float64        `json:"trailing_stop_pct"`
	HighWaterPrice   float64        `json:"high_water_price"`
	LastPrice        float64        `json:"last_price"`
	RealizedPnl      float64        `json:"realized_pnl"`
	UnrealizedPnl    float64        `json:"unrealized_pnl"`
	Tiers            []TierResponse `json:"tiers"`
	OpenedAt         string         `json:"opened_at"`
}

// GetPositions возвращает снимки всех открытых позиций
// GET /api/v1/positions
//
// Response:
// - 200 OK: массив позиций (старые сверху)
// - 503 Service Unavailable: движок не запущен
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positionService.GetActivePositions()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	response := make([]PositionResponse, 0, len(positions))
	for _, p := range positions {
		response = append(response, h.positionToResponse(p))
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GetPosition возвращает снимок позиции по ID
// GET /api/v1/positions/{id}
//
// Response:
// - 200 OK: данные позиции
// - 404 Not Found: позиция не найдена
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	position, err := h.positionService.GetPosition(vars["id"])
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.positionToResponse(position))
}

// ClosePosition принудительно закрывает позицию по текущей цене
// POST /api/v1/positions/{id}/close
//
// Response:
// - 200 OK: позиция закрывается
// - 404 Not Found: позиция не найдена
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if err := h.positionService.ForceClose(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Position closed"})
}

// ============ Helper методы ============

func (h *PositionHandler) positionToResponse(p *models.Position) PositionResponse {
	tiers := make([]TierResponse, 0, len(p.TakeProfitTiers))
	for _, tier := range p.TakeProfitTiers {
		tiers = append(tiers, TierResponse{
			PriceMultiple:  tier.PriceMultiple,
			FractionToSell: tier.FractionToSell,
			Fired:          tier.Fired,
		})
	}

	// нереализованный PnL по последней известной цене
	var unrealized float64
	if p.LastPrice > 0 {
		unrealized = (p.LastPrice - p.EntryPrice) * p.SizeBase
	}

	return PositionResponse{
		ID:               p.ID,
		Pair:             p.Pair.String(),
		Venue:            p.Venue,
		State:            p.State,
		EntryPrice:       p.EntryPrice,
		SizeBase:         p.SizeBase,
		InitialBase:      p.InitialBase,
		SizeQuoteAtEntry: p.SizeQuoteAtEntry,
		StopLossPrice:    p.StopLossPrice,
		TrailingStopPct:  p.TrailingStopPct,
		HighWaterPrice:   p.HighWaterPrice,
		LastPrice:        p.LastPrice,
		RealizedPnl:      p.RealizedPnl,
		UnrealizedPnl:    unrealized,
		Tiers:            tiers,
		OpenedAt:         p.OpenedAt.Format(time.RFC3339),
	}
}

func (h *PositionHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPositionNotFound):
		respondWithError(w, http.StatusNotFound, "position_not_found", "Position not found", "")

	case errors.Is(err, service.ErrPositionsUnmanaged):
		respondWithError(w, http.StatusServiceUnavailable, "engine_not_running", "Trading engine is not running", "")

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
