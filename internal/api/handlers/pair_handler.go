package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"dexarb/internal/models"
	"dexarb/internal/service"

	"github.com/gorilla/mux"
)

// PairHandler отвечает за управление торговыми парами
//
// Endpoints:
// - POST /api/v1/pairs            - добавление новой торговой пары
// - GET /api/v1/pairs             - получение списка всех пар
// - GET /api/v1/pairs/{id}        - получение конкретной пары
// - PATCH /api/v1/pairs/{id}      - редактирование параметров пары
// - DELETE /api/v1/pairs/{id}     - удаление пары
// - POST /api/v1/pairs/{id}/start - запуск мониторинга пары
// - POST /api/v1/pairs/{id}/pause - приостановка пары
type PairHandler struct {
	pairService *service.PairService
}

// NewPairHandler создает новый PairHandler с внедрением зависимостей
func NewPairHandler(pairService *service.PairService) *PairHandler {
	return &PairHandler{
		pairService: pairService,
	}
}

// CreatePairRequest структура запроса на создание пары
type CreatePairRequest struct {
	Base           string   `json:"base"`             // SOL
	Quote          string   `json:"quote"`            // USDC
	Venues         []string `json:"venues"`           // venue'ы для опроса
	MinSpreadPct   float64  `json:"min_spread_pct"`   // минимальный спред, %
	LiquidityFloor float64  `json:"liquidity_floor"`  // минимальная ликвидность, USD
	EntrySizeQuote float64  `json:"entry_size_quote"` // размер входа в quote
	MaxSlippagePct float64  `json:"max_slippage_pct"` // допустимое проскальзывание, %
}

// UpdatePairRequest структура запроса на обновление пары
type UpdatePairRequest struct {
	MinSpreadPct   *float64 `json:"min_spread_pct,omitempty"`
	LiquidityFloor *float64 `json:"liquidity_floor,omitempty"`
	EntrySizeQuote *float64 `json:"entry_size_quote,omitempty"`
	MaxSlippagePct *float64 `json:"max_slippage_pct,omitempty"`
}

// PairResponse структура ответа с данными пары
type PairResponse struct {
	ID             int                    `json:"id"`
	Pair           string                 `json:"pair"` // SOL/USDC
	Base           string                 `json:"base"`
	Quote          string                 `json:"quote"`
	Venues         []string               `json:"venues"`
	MinSpreadPct   float64                `json:"min_spread_pct"`
	LiquidityFloor float64                `json:"liquidity_floor"`
	EntrySizeQuote float64                `json:"entry_size_quote"`
	MaxSlippagePct float64                `json:"max_slippage_pct"`
	Status         string                 `json:"status"`
	Stats          *PairStatsResponse     `json:"stats"`
	PendingConfig  *PendingConfigResponse `json:"pending_config,omitempty"`
}

// PairStatsResponse статистика пары
type PairStatsResponse struct {
	TradesCount int     `json:"trades_count"`
	TotalPnl    float64 `json:"total_pnl"`
}

// PendingConfigResponse отложенные изменения конфигурации
type PendingConfigResponse struct {
	MinSpreadPct   float64 `json:"min_spread_pct"`
	LiquidityFloor float64 `json:"liquidity_floor"`
	EntrySizeQuote float64 `json:"entry_size_quote"`
	MaxSlippagePct float64 `json:"max_slippage_pct"`
}

// CreatePair добавляет новую торговую пару
// POST /api/v1/pairs
//
// Request Body:
//
//	{
//	  "base": "SOL",
//	  "quote": "USDC",
//	  "venues": ["jupiter", "raydium"],
//	  "min_spread_pct": 0.5,
//	  "liquidity_floor": 10000,
//	  "entry_size_quote": 100,
//	  "max_slippage_pct": 1.0
//	}
//
// Response:
// - 201 Created: пара создана (в статусе paused)
// - 400 Bad Request: невалидные параметры
// - 409 Conflict: пара уже существует или достигнут лимит
func (h *PairHandler) CreatePair(w http.ResponseWriter, r *http.Request) {
	var req CreatePairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if req.Base == "" || req.Quote == "" {
		respondWithError(w, http.StatusBadRequest, "missing_pair", "Base and quote are required", "")
		return
	}

	cfg := &models.PairConfig{
		Pair:           models.TradingPair{Base: req.Base, Quote: req.Quote},
		Venues:         req.Venues,
		MinSpreadPct:   req.MinSpreadPct,
		LiquidityFloor: req.LiquidityFloor,
		EntrySizeQuote: req.EntrySizeQuote,
		MaxSlippagePct: req.MaxSlippagePct,
	}

	if err := h.pairService.CreatePair(r.Context(), cfg); err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, h.pairToResponse(cfg, nil))
}

// GetPairs возвращает список всех торговых пар
// GET /api/v1/pairs
//
// Query Parameters:
// - status: фильтр по статусу (paused, active, suspended)
// - q: поиск по символу базового токена
//
// Response:
// - 200 OK: массив пар
func (h *PairHandler) GetPairs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var pairs []*models.PairConfig
	var err error
	if query != "" {
		pairs, err = h.pairService.SearchPairs(r.Context(), query)
	} else {
		pairs, err = h.pairService.GetAllPairs(r.Context())
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get pairs", err.Error())
		return
	}

	statusFilter := r.URL.Query().Get("status")

	response := make([]PairResponse, 0, len(pairs))
	for _, pair := range pairs {
		if statusFilter != "" && pair.Status != statusFilter {
			continue
		}
		pending := h.pairService.GetPendingConfig(pair.ID)
		response = append(response, h.pairToResponse(pair, pending))
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GetPair возвращает конкретную пару по ID
// GET /api/v1/pairs/{id}
//
// Response:
// - 200 OK: данные пары
// - 404 Not Found: пара не найдена
func (h *PairHandler) GetPair(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pairID(w, r)
	if !ok {
		return
	}

	pair, err := h.pairService.GetPair(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	pending := h.pairService.GetPendingConfig(id)
	respondWithJSON(w, http.StatusOK, h.pairToResponse(pair, pending))
}

// UpdatePair обновляет параметры торговой пары
// PATCH /api/v1/pairs/{id}
//
// Request Body (все поля опциональны):
//
//	{
//	  "min_spread_pct": 0.8,
//	  "liquidity_floor": 20000,
//	  "entry_size_quote": 150,
//	  "max_slippage_pct": 0.5
//	}
//
// Response:
// - 200 OK: обновленная пара
// - 400 Bad Request: невалидные параметры
// - 404 Not Found: пара не найдена
//
// Note: если по паре открыта позиция, изменения применятся после её закрытия
func (h *PairHandler) UpdatePair(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pairID(w, r)
	if !ok {
		return
	}

	var req UpdatePairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	params := service.UpdatePairParams{
		MinSpreadPct:   req.MinSpreadPct,
		LiquidityFloor: req.LiquidityFloor,
		EntrySizeQuote: req.EntrySizeQuote,
		MaxSlippagePct: req.MaxSlippagePct,
	}

	updated, err := h.pairService.UpdatePair(r.Context(), id, params)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	pending := h.pairService.GetPendingConfig(id)
	respondWithJSON(w, http.StatusOK, h.pairToResponse(updated, pending))
}

// DeletePair удаляет торговую пару
// DELETE /api/v1/pairs/{id}
//
// Response:
// - 204 No Content: пара удалена
// - 404 Not Found: пара не найдена
// - 409 Conflict: пара активна или есть открытая позиция
func (h *PairHandler) DeletePair(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pairID(w, r)
	if !ok {
		return
	}

	if err := h.pairService.DeletePair(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StartPair запускает мониторинг торговой пары
// POST /api/v1/pairs/{id}/start
//
// Response:
// - 200 OK: пара запущена
// - 404 Not Found: пара не найдена
// - 409 Conflict: пара уже активна или venue'ы недоступны
func (h *PairHandler) StartPair(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pairID(w, r)
	if !ok {
		return
	}

	if err := h.pairService.StartPair(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	pair, err := h.pairService.GetPair(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Pair started but failed to fetch updated data", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, h.pairToResponse(pair, h.pairService.GetPendingConfig(id)))
}

// PausePair приостанавливает торговую пару
// POST /api/v1/pairs/{id}/pause
//
// Query Parameters:
// - force: если true, принудительно закрывает открытую позицию (default: false)
//
// Response:
// - 200 OK: пара приостановлена
// - 404 Not Found: пара не найдена
// - 409 Conflict: есть открытая позиция и force=false
func (h *PairHandler) PausePair(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pairID(w, r)
	if !ok {
		return
	}

	forceClose := r.URL.Query().Get("force") == "true"

	if err := h.pairService.PausePair(r.Context(), id, forceClose); err != nil {
		h.handleServiceError(w, err)
		return
	}

	pair, err := h.pairService.GetPair(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Pair paused but failed to fetch updated data", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, h.pairToResponse(pair, h.pairService.GetPendingConfig(id)))
}

// ============ Helper методы ============

// pairID извлекает и валидирует ID пары из URL
func (h *PairHandler) pairID(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid pair ID", "ID must be a number")
		return 0, false
	}
	return id, true
}

// pairToResponse конвертирует модель пары в ответ API
func (h *PairHandler) pairToResponse(pair *models.PairConfig, pending *service.PendingConfig) PairResponse {
	response := PairResponse{
		ID:             pair.ID,
		Pair:           pair.Pair.String(),
		Base:           pair.Pair.Base,
		Quote:          pair.Pair.Quote,
		Venues:         pair.Venues,
		MinSpreadPct:   pair.MinSpreadPct,
		LiquidityFloor: pair.LiquidityFloor,
		EntrySizeQuote: pair.EntrySizeQuote,
		MaxSlippagePct: pair.MaxSlippagePct,
		Status:         pair.Status,
		Stats: &PairStatsResponse{
			TradesCount: pair.TradesCount,
			TotalPnl:    pair.TotalPnl,
		},
	}

	if pending != nil {
		response.PendingConfig = &PendingConfigResponse{
			MinSpreadPct:   pending.MinSpreadPct,
			LiquidityFloor: pending.LiquidityFloor,
			EntrySizeQuote: pending.EntrySizeQuote,
			MaxSlippagePct: pending.MaxSlippagePct,
		}
	}

	return response
}

// handleServiceError обрабатывает ошибки от сервиса и возвращает соответствующий HTTP статус
func (h *PairHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPairNotFound):
		respondWithError(w, http.StatusNotFound, "pair_not_found", "Pair not found", "")

	case errors.Is(err, service.ErrPairAlreadyExists):
		respondWithError(w, http.StatusConflict, "pair_exists", "Pair already exists", "")

	case errors.Is(err, service.ErrMaxPairsReached):
		respondWithError(w, http.StatusConflict, "max_pairs_reached", "Maximum number of pairs reached", "")

	case errors.Is(err, service.ErrPairAlreadyActive):
		respondWithError(w, http.StatusConflict, "pair_already_active", "Pair is already active", "")

	case errors.Is(err, service.ErrPairAlreadyPaused):
		respondWithError(w, http.StatusConflict, "pair_already_paused", "Pair is already paused", "")

	case errors.Is(err, service.ErrPairNotPaused):
		respondWithError(w, http.StatusConflict, "pair_not_paused", "Pair must be paused to delete", "")

	case errors.Is(err, service.ErrPairHasOpenPosition):
		respondWithError(w, http.StatusConflict, "position_open", "Pair has open position. Use ?force=true to close it", "")

	case errors.Is(err, service.ErrTokenBlacklisted):
		respondWithError(w, http.StatusConflict, "token_blacklisted", "Base token is blacklisted", "")

	case errors.Is(err, service.ErrNotEnoughVenues):
		respondWithError(w, http.StatusBadRequest, "not_enough_venues", "At least 2 venues are required for price comparison", "")

	case errors.Is(err, service.ErrVenueNotRegistered):
		respondWithError(w, http.StatusBadRequest, "venue_not_registered", "Venue is not registered or disabled", "")

	case errors.Is(err, service.ErrInvalidMinSpread):
		respondWithError(w, http.StatusBadRequest, "invalid_min_spread", "Minimum spread must be greater than 0", "")

	case errors.Is(err, service.ErrInvalidLiquidity):
		respondWithError(w, http.StatusBadRequest, "invalid_liquidity", "Liquidity floor must be non-negative", "")

	case errors.Is(err, service.ErrInvalidEntrySize):
		respondWithError(w, http.StatusBadRequest, "invalid_entry_size", "Entry size must be greater than 0", "")

	case errors.Is(err, service.ErrInvalidSlippage):
		respondWithError(w, http.StatusBadRequest, "invalid_slippage", "Max slippage must be greater than 0", "")

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
