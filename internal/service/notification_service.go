package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dexarb/internal/bot"
	"dexarb/internal/models"
)

// WebSocketBroadcaster - интерфейс для отправки уведомлений в WebSocket.
// Позволяет избежать циклической зависимости пакетов и упрощает тесты.
type WebSocketBroadcaster interface {
	BroadcastNotification(n *models.Notification)
}

// NotificationService - бизнес-логика журнала уведомлений.
//
// Уведомления порождаются событиями ядра (см. EventRecorder) и
// фильтруются по настройкам notification_prefs перед записью.
type NotificationService struct {
	notificationRepo NotificationRepositoryInterface
	settingsRepo     SettingsRepositoryInterface
	wsHub            WebSocketBroadcaster
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(
	notificationRepo NotificationRepositoryInterface,
	settingsRepo SettingsRepositoryInterface,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		settingsRepo:     settingsRepo,
	}
}

// SetWebSocketHub устанавливает hub для real-time рассылки уведомлений.
// Вызывается после инициализации Hub в main.
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// CreateNotification создает уведомление.
//
// Перед записью проверяются настройки: отключенный тип молча
// пропускается. При ошибке чтения настроек уведомление все равно
// записывается - лучше лишняя запись, чем потерянное событие.
func (s *NotificationService) CreateNotification(n *models.Notification) error {
	prefs, err := s.settingsRepo.GetNotificationPrefs()
	if err == nil && prefs != nil && !prefs.Enabled(n.Type) {
		return nil
	}

	if err := s.notificationRepo.Create(n); err != nil {
		return err
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(n)
	}
	return nil
}

// GetNotifications возвращает уведомления с фильтрацией по типам.
// Пустой список типов означает "все типы". Новые записи сверху.
func (s *NotificationService) GetNotifications(types []string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	normalized := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" && isValidNotificationType(t) {
			normalized = append(normalized, t)
		}
	}

	if len(normalized) > 0 {
		return s.notificationRepo.GetByTypes(normalized, limit)
	}
	return s.notificationRepo.GetRecent(limit)
}

// GetPairNotifications возвращает уведомления конкретной пары
func (s *NotificationService) GetPairNotifications(pairID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.notificationRepo.GetByPairID(pairID, limit)
}

// ClearNotifications очищает журнал уведомлений
func (s *NotificationService) ClearNotifications() error {
	return s.notificationRepo.DeleteAll()
}

// GetNotificationCount возвращает общее количество уведомлений
func (s *NotificationService) GetNotificationCount() (int, error) {
	return s.notificationRepo.Count()
}

func isValidNotificationType(notificationType string) bool {
	switch notificationType {
	case models.NotificationTypeOpportunity,
		models.NotificationTypeOpen,
		models.NotificationTypeTier,
		models.NotificationTypeClose,
		models.NotificationTypeSuspend,
		models.NotificationTypeResume,
		models.NotificationTypeError:
		return true
	}
	return false
}

// ============ EventRecorder ============

// EventRecorder превращает события ядра в записи журнала уведомлений.
//
// Подписывается на шину событий движка и работает в отдельной горутине:
// запись в БД не должна касаться торгового пути.
type EventRecorder struct {
	svc      *NotificationService
	pairRepo PairRepositoryInterface
	logger   *zap.Logger
}

// NewEventRecorder создает рекордер событий
func NewEventRecorder(svc *NotificationService, pairRepo PairRepositoryInterface, logger *zap.Logger) *EventRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRecorder{svc: svc, pairRepo: pairRepo, logger: logger}
}

// Run читает события до закрытия канала
func (r *EventRecorder) Run(events <-chan bot.Event) {
	for event := range events {
		n := r.toNotification(event)
		if n == nil {
			continue
		}
		if err := r.svc.CreateNotification(n); err != nil {
			r.logger.Warn("failed to record notification",
				zap.String("event", event.Type),
				zap.Error(err))
		}
	}
}

// toNotification маппит событие ядра на уведомление
func (r *EventRecorder) toNotification(event bot.Event) *models.Notification {
	n := &models.Notification{
		Timestamp: event.At,
		PairID:    r.resolvePairID(event.Pair),
	}

	switch event.Type {
	case bot.EventOpportunityDetected:
		n.Type = models.NotificationTypeOpportunity
		n.Severity = models.SeverityInfo
		n.Message = fmt.Sprintf("opportunity on %s", event.Pair)
		if event.Opportunity != nil {
			n.Message = fmt.Sprintf("opportunity on %s: buy %s %.6f, sell %s %.6f (%.2f%%)",
				event.Pair, event.Opportunity.BuyVenue, event.Opportunity.BuyPrice,
				event.Opportunity.SellVenue, event.Opportunity.SellPrice, event.Opportunity.SpreadPct)
			n.Meta = map[string]interface{}{
				"buy_venue":  event.Opportunity.BuyVenue,
				"sell_venue": event.Opportunity.SellVenue,
				"spread_pct": event.Opportunity.SpreadPct,
			}
		}

	case bot.EventPositionOpened:
		n.Type = models.NotificationTypeOpen
		n.Severity = models.SeverityInfo
		n.Message = fmt.Sprintf("position opened on %s", event.Pair)
		if event.Position != nil {
			n.Message = fmt.Sprintf("position opened on %s at %.6f (%s)",
				event.Pair, event.Position.EntryPrice, event.Position.Venue)
			n.Meta = map[string]interface{}{
				"position_id": event.Position.ID,
				"entry_price": event.Position.EntryPrice,
				"size_quote":  event.Position.SizeQuoteAtEntry,
			}
		}

	case bot.EventPositionTierFilled:
		n.Type = models.NotificationTypeTier
		n.Severity = models.SeverityInfo
		n.Message = fmt.Sprintf("take-profit tier %d filled on %s", event.Tier+1, event.Pair)
		if event.Position != nil {
			n.Meta = map[string]interface{}{
				"position_id":  event.Position.ID,
				"tier":         event.Tier,
				"realized_pnl": event.Position.RealizedPnl,
			}
		}

	case bot.EventPositionClosed:
		n.Type = models.NotificationTypeClose
		n.Severity = models.SeverityInfo
		if event.Reason == models.ExitReasonStopLoss {
			n.Severity = models.SeverityWarn
		}
		n.Message = fmt.Sprintf("position closed on %s: %s", event.Pair, event.Reason)
		if event.Position != nil {
			n.Message = fmt.Sprintf("position closed on %s: %s, pnl %.4f",
				event.Pair, event.Reason, event.Position.RealizedPnl)
			n.Meta = map[string]interface{}{
				"position_id":  event.Position.ID,
				"exit_reason":  event.Reason,
				"realized_pnl": event.Position.RealizedPnl,
			}
		}

	case bot.EventPairSuspended:
		n.Type = models.NotificationTypeSuspend
		n.Severity = models.SeverityWarn
		n.Message = fmt.Sprintf("pair %s suspended: %s", event.Pair, event.Reason)

	case bot.EventPairResumed:
		n.Type = models.NotificationTypeResume
		n.Severity = models.SeverityInfo
		n.Message = fmt.Sprintf("pair %s resumed", event.Pair)

	default:
		return nil
	}

	return n
}

// resolvePairID ищет ID пары в БД; nil если пара не найдена
func (r *EventRecorder) resolvePairID(pair models.TradingPair) *int {
	if r.pairRepo == nil {
		return nil
	}
	cfg, err := r.pairRepo.GetByPair(pair.Base, pair.Quote)
	if err != nil {
		return nil
	}
	return &cfg.ID
}
