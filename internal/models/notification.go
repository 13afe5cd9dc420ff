package models

import "time"

// Notification представляет уведомление о событии
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`           // OPPORTUNITY, OPEN, TIER, CLOSE, SUSPEND, RESUME, ERROR
	Severity  string                 `json:"severity" db:"severity"`   // info, warn, error
	PairID    *int                   `json:"pair_id,omitempty" db:"pair_id"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeOpportunity = "OPPORTUNITY" // найдена арбитражная возможность
	NotificationTypeOpen        = "OPEN"        // открыта позиция
	NotificationTypeTier        = "TIER"        // сработал take-profit tier
	NotificationTypeClose       = "CLOSE"       // позиция закрыта (с причиной)
	NotificationTypeSuspend     = "SUSPEND"     // пара приостановлена (все venue'ы недоступны)
	NotificationTypeResume      = "RESUME"      // котировки пары возобновились
	NotificationTypeError       = "ERROR"       // ошибка venue/gateway
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
