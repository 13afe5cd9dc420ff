package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"dexarb/internal/models"
	"dexarb/internal/service"
)

// NotificationHandler отвечает за журнал событий бота
//
// Endpoints:
// - GET /api/v1/notifications                              - получение журнала
// - GET /api/v1/notifications?types=close,suspend&limit=50 - с фильтрацией
// - DELETE /api/v1/notifications                           - очистка журнала
//
// Типы уведомлений:
// - OPPORTUNITY: найдена арбитражная возможность
// - OPEN: открыта позиция
// - TIER: сработал take-profit tier
// - CLOSE: позиция закрыта (с причиной выхода)
// - SUSPEND: пара приостановлена (venue'ы недоступны)
// - RESUME: котировки пары возобновились
// - ERROR: ошибка venue/gateway
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler создает новый NotificationHandler с внедрением зависимости
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Total         int               `json:"total"`
}

// NotificationDTO представляет уведомление в API
type NotificationDTO struct {
	ID        int                    `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	PairID    *int                   `json:"pair_id,omitempty"`
	Message   string                 `json:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// GetNotifications возвращает журнал событий с фильтрацией
//
// GET /api/v1/notifications
//
// Query параметры:
// - types (string): фильтр по типам через запятую (opportunity,open,tier,close,suspend,resume,error)
// - limit (int): количество записей (по умолчанию 100, максимум 500)
// - pair_id (int): только события конкретной пары
//
// Примеры запросов:
// - GET /api/v1/notifications                          - последние 100 событий
// - GET /api/v1/notifications?types=close,error        - только закрытия и ошибки
// - GET /api/v1/notifications?pair_id=3&limit=20       - последние 20 событий пары
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив уведомлений
// - 500 Internal Server Error: ошибка сервера
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	typesParam := r.URL.Query().Get("types")
	limitParam := r.URL.Query().Get("limit")
	pairParam := r.URL.Query().Get("pair_id")

	var types []string
	if typesParam != "" {
		for _, part := range strings.Split(typesParam, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				types = append(types, trimmed)
			}
		}
	}

	limit := 0
	if limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var notifications []*models.Notification
	var err error
	if pairParam != "" {
		pairID, convErr := strconv.Atoi(pairParam)
		if convErr != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_pair_id", "Invalid pair_id", "pair_id must be a number")
			return
		}
		notifications, err = h.notificationService.GetPairNotifications(pairID, limit)
	} else {
		notifications, err = h.notificationService.GetNotifications(types, limit)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get notifications", err.Error())
		return
	}

	dtos := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, NotificationDTO{
			ID:        n.ID,
			Timestamp: n.Timestamp.Format(time.RFC3339),
			Type:      n.Type,
			Severity:  n.Severity,
			PairID:    n.PairID,
			Message:   n.Message,
			Meta:      n.Meta,
		})
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: dtos,
		Total:         len(dtos),
	})
}

// ClearNotifications очищает журнал уведомлений
//
// DELETE /api/v1/notifications
//
// Удаляет все уведомления. Действие необратимо.
//
// HTTP коды:
// - 200 OK: журнал очищен
// - 500 Internal Server Error: ошибка при очистке
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.ClearNotifications(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to clear notifications", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Notifications cleared successfully"})
}
