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

// VenueHandler отвечает за реестр DEX venue'ов
//
// Endpoints:
// - GET /api/v1/venues           - список venue'ов
// - POST /api/v1/venues          - регистрация venue
// - PATCH /api/v1/venues/{name}  - обновление параметров
// - DELETE /api/v1/venues/{name} - удаление venue
//
// Реестр хранит параметры каждого venue: включен ли он для опроса,
// security score (вес в риск-оценке) и лимиты запросов к его API.
type VenueHandler struct {
	venueService *service.VenueService
}

// NewVenueHandler создает новый VenueHandler с внедрением зависимостей
func NewVenueHandler(venueService *service.VenueService) *VenueHandler {
	return &VenueHandler{
		venueService: venueService,
	}
}

// VenueRequest запрос на регистрацию venue
type VenueRequest struct {
	Name          string  `json:"name"`
	Enabled       bool    `json:"enabled"`
	SecurityScore float64 `json:"security_score"`
	RateLimit     float64 `json:"rate_limit"` // запросов в секунду
	Burst         int     `json:"burst"`
}

// UpdateVenueRequest запрос на частичное обновление venue
type UpdateVenueRequest struct {
	Enabled       *bool    `json:"enabled,omitempty"`
	SecurityScore *float64 `json:"security_score,omitempty"`
	RateLimit     *float64 `json:"rate_limit,omitempty"`
	Burst         *int     `json:"burst,omitempty"`
}

// VenueResponse venue в ответе API
type VenueResponse struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Enabled       bool    `json:"enabled"`
	SecurityScore float64 `json:"security_score"`
	RateLimit     float64 `json:"rate_limit"`
	Burst         int     `json:"burst"`
	UpdatedAt     string  `json:"updated_at"`
}

// GetVenues возвращает список зарегистрированных venue'ов
// GET /api/v1/venues
//
// Query Parameters:
// - enabled: если true, только включенные venue'ы
//
// Response:
// - 200 OK: массив venue'ов
func (h *VenueHandler) GetVenues(w http.ResponseWriter, r *http.Request) {
	var venues []*models.VenueRecord
	var err error
	if r.URL.Query().Get("enabled") == "true" {
		venues, err = h.venueService.GetEnabledVenues()
	} else {
		venues, err = h.venueService.GetVenues()
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get venues", err.Error())
		return
	}

	response := make([]VenueResponse, 0, len(venues))
	for _, venue := range venues {
		response = append(response, venueToResponse(venue))
	}

	respondWithJSON(w, http.StatusOK, response)
}

// RegisterVenue регистрирует новый venue
// POST /api/v1/venues
//
// Request Body:
//
//	{"name": "raydium", "enabled": true, "security_score": 20, "rate_limit": 10, "burst": 5}
//
// Response:
// - 201 Created: venue зарегистрирован
// - 400 Bad Request: невалидные параметры
// - 409 Conflict: venue уже зарегистрирован
func (h *VenueHandler) RegisterVenue(w http.ResponseWriter, r *http.Request) {
	var req VenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	venue := &models.VenueRecord{
		Name:          req.Name,
		Enabled:       req.Enabled,
		SecurityScore: req.SecurityScore,
		RateLimit:     req.RateLimit,
		Burst:         req.Burst,
	}

	if err := h.venueService.RegisterVenue(venue); err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, venueToResponse(venue))
}

// UpdateVenue частично обновляет параметры venue
// PATCH /api/v1/venues/{name}
//
// Request Body (все поля опциональны):
//
//	{"enabled": false, "security_score": 35}
//
// Response:
// - 200 OK: обновленный venue
// - 404 Not Found: venue не найден
func (h *VenueHandler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	var req UpdateVenueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	venue, err := h.venueService.GetVenue(name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if req.Enabled != nil {
		venue.Enabled = *req.Enabled
	}
	if req.SecurityScore != nil {
		venue.SecurityScore = *req.SecurityScore
	}
	if req.RateLimit != nil {
		venue.RateLimit = *req.RateLimit
	}
	if req.Burst != nil {
		venue.Burst = *req.Burst
	}

	if err := h.venueService.UpdateVenue(venue); err != nil {
		h.handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, venueToResponse(venue))
}

// DeleteVenue удаляет venue из реестра
// DELETE /api/v1/venues/{name}
//
// Response:
// - 204 No Content: venue удален
// - 404 Not Found: venue не найден
func (h *VenueHandler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.venueService.RemoveVenue(vars["name"]); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ============ Helper методы ============

func venueToResponse(venue *models.VenueRecord) VenueResponse {
	return VenueResponse{
		ID:            venue.ID,
		Name:          venue.Name,
		Enabled:       venue.Enabled,
		SecurityScore: venue.SecurityScore,
		RateLimit:     venue.RateLimit,
		Burst:         venue.Burst,
		UpdatedAt:     venue.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *VenueHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrVenueNameEmpty):
		respondWithError(w, http.StatusBadRequest, "empty_name", "Venue name is required", "")

	case errors.Is(err, service.ErrVenueAlreadyExists):
		respondWithError(w, http.StatusConflict, "venue_exists", "Venue is already registered", "")

	case errors.Is(err, service.ErrVenueNotFound):
		respondWithError(w, http.StatusNotFound, "venue_not_found", "Venue not found", "")

	case errors.Is(err, service.ErrInvalidSecurityScore):
		respondWithError(w, http.StatusBadRequest, "invalid_security_score", "Security score must be between 0 and 100", "")

	case errors.Is(err, service.ErrInvalidRateLimit):
		respondWithError(w, http.StatusBadRequest, "invalid_rate_limit", "Rate limit must be greater than 0", "")

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
