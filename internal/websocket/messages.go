package websocket

import (
	"time"

	"dexarb/internal/bot"
	"dexarb/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeEngineEvent - событие торгового движка
	// (возможность, открытие/закрытие позиции, tier, suspend/resume)
	MessageTypeEngineEvent MessageType = "engineEvent"

	// MessageTypeNotification - новая запись журнала уведомлений
	MessageTypeNotification MessageType = "notification"

	// MessageTypeStatsUpdate - обновление торговой статистики
	// Отправляется после закрытия сделки и после сброса статистики
	MessageTypeStatsUpdate MessageType = "statsUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// EngineEventMessage - сообщение о событии движка.
//
// Данные события передаются как есть: снимок позиции, возможность и
// риск-оценка уже плоские и безопасны для сериализации.
type EngineEventMessage struct {
	BaseMessage
	Data bot.Event `json:"data"`
}

// NotificationMessage - сообщение о новой записи журнала
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	Severity string `json:"severity"`

	// ID связанной торговой пары (если применимо)
	PairID *int `json:"pair_id,omitempty"`

	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta,omitempty"`

	// Время создания уведомления
	Timestamp time.Time `json:"timestamp"`
}

// StatsUpdateMessage - сообщение об обновлении статистики
type StatsUpdateMessage struct {
	BaseMessage
	Data *StatsUpdateData `json:"data"`
}

// StatsUpdateData - данные статистики
type StatsUpdateData struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnl      float64 `json:"total_pnl"`
	BestTradePnl  float64 `json:"best_trade_pnl"`
	WorstTradePnl float64 `json:"worst_trade_pnl"`
}

// ============ Фабричные функции для создания сообщений ============

// NewEngineEventMessage создает сообщение события движка
func NewEngineEventMessage(event bot.Event) *EngineEventMessage {
	return &EngineEventMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeEngineEvent,
			Timestamp: time.Now(),
		},
		Data: event,
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: &NotificationData{
			ID:        notif.ID,
			Type:      notif.Type,
			Severity:  notif.Severity,
			PairID:    notif.PairID,
			Message:   notif.Message,
			Meta:      notif.Meta,
			Timestamp: notif.Timestamp,
		},
	}
}

// NewStatsUpdateMessage создает сообщение обновления статистики
func NewStatsUpdateMessage(stats *models.Stats) *StatsUpdateMessage {
	return &StatsUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeStatsUpdate,
			Timestamp: time.Now(),
		},
		Data: &StatsUpdateData{
			TotalTrades:   stats.TotalTrades,
			WinningTrades: stats.WinningTrades,
			WinRate:       stats.WinRate(),
			TotalPnl:      stats.TotalPnl,
			BestTradePnl:  stats.BestTradePnl,
			WorstTradePnl: stats.WorstTradePnl,
		},
	}
}
