package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dexarb/internal/models"
	"dexarb/internal/service"
)

// SettingsHandler отвечает за глобальные настройки бота
//
// Endpoints:
// - GET /api/v1/settings        - получение настроек
// - PATCH /api/v1/settings      - частичное обновление
// - POST /api/v1/settings/reset - сброс к значениям по умолчанию
//
// Настройки:
// - max_open_positions: лимит одновременно открытых позиций (null = без ограничений)
// - risk_threshold: переопределение минимального риск-скора (null = из конфигурации)
// - notification_prefs: какие типы событий писать в журнал
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler создает новый SettingsHandler с внедрением зависимостей
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// UpdateSettingsHTTPRequest запрос на частичное обновление настроек.
//
// Отличие от нуля: отсутствующее поле не меняется, поле со значением
// null снимает переопределение. encoding/json не различает эти случаи
// для обычного указателя, поэтому флаг "поле присутствовало" выставляется
// при декодировании вручную.
type UpdateSettingsHTTPRequest struct {
	MaxOpenPositions  *int                            `json:"max_open_positions"`
	RiskThreshold     *float64                        `json:"risk_threshold"`
	NotificationPrefs *models.NotificationPreferences `json:"notification_prefs"`
}

// SettingsResponse настройки в ответе API
type SettingsResponse struct {
	MaxOpenPositions  *int                           `json:"max_open_positions"`
	RiskThreshold     *float64                       `json:"risk_threshold"`
	NotificationPrefs models.NotificationPreferences `json:"notification_prefs"`
	UpdatedAt         string                         `json:"updated_at"`
}

// GetSettings возвращает текущие глобальные настройки
// GET /api/v1/settings
//
// Response:
// - 200 OK: объект настроек
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetSettings()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get settings", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, settingsToResponse(settings))
}

// UpdateSettings частично обновляет глобальные настройки
// PATCH /api/v1/settings
//
// Request Body (все поля опциональны, null снимает переопределение):
//
//	{
//	  "max_open_positions": 3,
//	  "risk_threshold": null,
//	  "notification_prefs": {"opportunity": true, "open": true, ...}
//	}
//
// Response:
// - 200 OK: обновленный объект настроек
// - 400 Bad Request: невалидные значения
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	// сырой разбор, чтобы отличить отсутствующее поле от null
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	req := &service.UpdateSettingsRequest{}

	if rawValue, ok := raw["max_open_positions"]; ok {
		var value *int
		if err := json.Unmarshal(rawValue, &value); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid max_open_positions", err.Error())
			return
		}
		if value == nil {
			req.ClearMaxOpenPositions = true
		} else {
			req.MaxOpenPositions = value
		}
	}

	if rawValue, ok := raw["risk_threshold"]; ok {
		var value *float64
		if err := json.Unmarshal(rawValue, &value); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid risk_threshold", err.Error())
			return
		}
		if value == nil {
			req.ClearRiskThreshold = true
		} else {
			req.RiskThreshold = value
		}
	}

	if rawValue, ok := raw["notification_prefs"]; ok {
		var prefs models.NotificationPreferences
		if err := json.Unmarshal(rawValue, &prefs); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid notification_prefs", err.Error())
			return
		}
		req.NotificationPrefs = &prefs
	}

	settings, err := h.settingsService.UpdateSettings(req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, settingsToResponse(settings))
}

// ResetSettings сбрасывает настройки к значениям по умолчанию
// POST /api/v1/settings/reset
//
// Response:
// - 200 OK: настройки сброшены
func (h *SettingsHandler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.settingsService.ResetToDefaults(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to reset settings", err.Error())
		return
	}

	settings, err := h.settingsService.GetSettings()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Settings reset but failed to fetch", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, settingsToResponse(settings))
}

// ============ Helper методы ============

func settingsToResponse(settings *models.Settings) SettingsResponse {
	return SettingsResponse{
		MaxOpenPositions:  settings.MaxOpenPositions,
		RiskThreshold:     settings.RiskThreshold,
		NotificationPrefs: settings.NotificationPrefs,
		UpdatedAt:         settings.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *SettingsHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidMaxOpenPositions):
		respondWithError(w, http.StatusBadRequest, "invalid_max_open_positions", "max_open_positions must be >= 1 or null", "")

	case errors.Is(err, service.ErrInvalidRiskThreshold):
		respondWithError(w, http.StatusBadRequest, "invalid_risk_threshold", "risk_threshold must be between 0 and 100 or null", "")

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
