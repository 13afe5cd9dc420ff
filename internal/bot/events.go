package bot

import (
	"sync"
	"time"

	"dexarb/internal/models"
)

// Типы событий ядра. Fire-and-forget: потребители (дашборды, нотификаторы)
// ничего не отвечают.
const (
	EventOpportunityDetected = "OPPORTUNITY_DETECTED"
	EventPositionOpened      = "POSITION_OPENED"
	EventPositionTierFilled  = "POSITION_TIER_FILLED"
	EventPositionClosed      = "POSITION_CLOSED"
	EventPairSuspended       = "PAIR_SUSPENDED"
	EventPairResumed         = "PAIR_RESUMED"
)

// Event - одно событие ядра, плоская запись данных
type Event struct {
	Type        string              `json:"type"`
	Pair        models.TradingPair  `json:"pair"`
	Opportunity *models.Opportunity `json:"opportunity,omitempty"`
	Position    *models.Position    `json:"position,omitempty"` // снимок на момент события
	Risk        *models.RiskScore   `json:"risk,omitempty"`
	Reason      string              `json:"reason,omitempty"` // причина закрытия/приостановки
	Tier        int                 `json:"tier,omitempty"`   // индекс сработавшего tier'а
	At          time.Time           `json:"at"`
}

// Bus - неблокирующая шина событий ядра.
//
// Публикация никогда не блокирует торговый путь: при переполненном
// буфере подписчика событие отбрасывается и учитывается в метриках.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
	size int
}

// NewBus создает шину с заданным размером буфера на подписчика
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{size: bufferSize}
}

// Subscribe возвращает канал событий нового подписчика
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.size)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish рассылает событие всем подписчикам без блокировки
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			EventsDropped.WithLabelValues(event.Type).Inc()
		}
	}
}

// Close закрывает каналы всех подписчиков
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// snapshotPosition возвращает копию позиции для включения в событие
func snapshotPosition(p *models.Position) *models.Position {
	cp := *p
	cp.TakeProfitTiers = append([]models.TakeProfitTier(nil), p.TakeProfitTiers...)
	return &cp
}
