package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dexarb/internal/models"
	"dexarb/internal/service"

	"github.com/gorilla/mux"
)

// BlacklistHandler отвечает за управление черным списком токенов
//
// Endpoints:
// - GET /api/v1/blacklist             - получение списка
// - POST /api/v1/blacklist            - добавление токена
// - DELETE /api/v1/blacklist/{symbol} - удаление токена
// - PATCH /api/v1/blacklist/{symbol}  - обновление причины
//
// Черный список блокирует базовые токены: пару с токеном из списка
// нельзя создать ни с одной quote-валютой. Уже существующие пары
// список не затрагивает.
type BlacklistHandler struct {
	blacklistService *service.BlacklistService
}

// NewBlacklistHandler создает новый BlacklistHandler с внедрением зависимостей
func NewBlacklistHandler(blacklistService *service.BlacklistService) *BlacklistHandler {
	return &BlacklistHandler{
		blacklistService: blacklistService,
	}
}

// BlacklistEntryRequest запрос на добавление/обновление записи
type BlacklistEntryRequest struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// BlacklistEntryResponse запись черного списка в ответе API
type BlacklistEntryResponse struct {
	ID        int    `json:"id"`
	Symbol    string `json:"symbol"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

// GetBlacklist возвращает черный список токенов
// GET /api/v1/blacklist
//
// Query Parameters:
// - q: поиск по подстроке символа
//
// Response:
// - 200 OK: массив записей
func (h *BlacklistHandler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var entries []*models.BlacklistEntry
	var err error
	if query != "" {
		entries, err = h.blacklistService.Search(query)
	} else {
		entries, err = h.blacklistService.GetBlacklist()
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get blacklist", err.Error())
		return
	}

	response := make([]BlacklistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, entryToResponse(entry))
	}

	respondWithJSON(w, http.StatusOK, response)
}

// AddToBlacklist добавляет токен в черный список
// POST /api/v1/blacklist
//
// Request Body:
//
//	{"symbol": "WIF", "reason": "rug risk"}
//
// Response:
// - 201 Created: токен добавлен
// - 400 Bad Request: пустой символ
// - 409 Conflict: токен уже в списке
func (h *BlacklistHandler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req BlacklistEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	entry, err := h.blacklistService.AddToBlacklist(req.Symbol, req.Reason)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, entryToResponse(entry))
}

// RemoveFromBlacklist удаляет токен из черного списка
// DELETE /api/v1/blacklist/{symbol}
//
// Response:
// - 204 No Content: токен удален
// - 404 Not Found: токен не найден в списке
func (h *BlacklistHandler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.blacklistService.RemoveFromBlacklist(vars["symbol"]); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateReason обновляет причину блокировки токена
// PATCH /api/v1/blacklist/{symbol}
//
// Request Body:
//
//	{"reason": "confirmed rug"}
//
// Response:
// - 200 OK: причина обновлена
// - 404 Not Found: токен не найден в списке
func (h *BlacklistHandler) UpdateReason(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req BlacklistEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if err := h.blacklistService.UpdateReason(vars["symbol"], req.Reason); err != nil {
		h.handleServiceError(w, err)
		return
	}

	entry, err := h.blacklistService.GetBySymbol(vars["symbol"])
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Reason updated but failed to fetch entry", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, entryToResponse(entry))
}

// ============ Helper методы ============

func entryToResponse(entry *models.BlacklistEntry) BlacklistEntryResponse {
	return BlacklistEntryResponse{
		ID:        entry.ID,
		Symbol:    entry.Symbol,
		Reason:    entry.Reason,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
	}
}

func (h *BlacklistHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBlacklistSymbolEmpty):
		respondWithError(w, http.StatusBadRequest, "empty_symbol", "Symbol is required", "")

	case errors.Is(err, service.ErrBlacklistSymbolExists):
		respondWithError(w, http.StatusConflict, "symbol_exists", "Token is already blacklisted", "")

	case errors.Is(err, service.ErrBlacklistEntryNotFound):
		respondWithError(w, http.StatusNotFound, "entry_not_found", "Token is not in the blacklist", "")

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
