package models

import "time"

// Settings - глобальные настройки (одна запись, id=1)
type Settings struct {
	ID                int                     `json:"id" db:"id"`
	MaxOpenPositions  *int                    `json:"max_open_positions" db:"max_open_positions"`   // null = без ограничений
	RiskThreshold     *float64                `json:"risk_threshold" db:"risk_threshold"`           // null = из конфигурации
	NotificationPrefs NotificationPreferences `json:"notification_prefs" db:"notification_prefs"`
	UpdatedAt         time.Time               `json:"updated_at" db:"updated_at"`
}

// NotificationPreferences - какие типы уведомлений записывать
type NotificationPreferences struct {
	Opportunity bool `json:"opportunity"`
	Open        bool `json:"open"`
	Tier        bool `json:"tier"`
	Close       bool `json:"close"`
	Suspend     bool `json:"suspend"`
	Resume      bool `json:"resume"`
	Error       bool `json:"error"`
}

// Enabled возвращает true, если тип уведомления включён
func (p NotificationPreferences) Enabled(notificationType string) bool {
	switch notificationType {
	case NotificationTypeOpportunity:
		return p.Opportunity
	case NotificationTypeOpen:
		return p.Open
	case NotificationTypeTier:
		return p.Tier
	case NotificationTypeClose:
		return p.Close
	case NotificationTypeSuspend:
		return p.Suspend
	case NotificationTypeResume:
		return p.Resume
	case NotificationTypeError:
		return p.Error
	default:
		return true
	}
}

// BlacklistEntry - токен, исключённый из торговли
type BlacklistEntry struct {
	ID        int       `json:"id" db:"id"`
	Symbol    string    `json:"symbol" db:"symbol"` // base-токен (SOL, BONK)
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VenueRecord - запись реестра venue'ов с рантайм-настройками
type VenueRecord struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Enabled       bool      `json:"enabled" db:"enabled"`
	SecurityScore float64   `json:"security_score" db:"security_score"` // [0, 100], ниже = безопаснее
	RateLimit     float64   `json:"rate_limit" db:"rate_limit"`         // req/sec
	Burst         int       `json:"burst" db:"burst"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
