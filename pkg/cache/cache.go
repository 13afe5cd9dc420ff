package cache

import (
	"sync"
	"time"
)

// TTLCache - кэш с TTL и фоновой эвикцией
//
// Явная кэш-абстракция вместо разрозненных module-global словарей:
// кэш владеет своим TTL и эвикцией и внедряется зависимостью туда,
// где нужен (агрегатор котировок, история volatility).
//
// Потокобезопасен. Janitor-горутина периодически удаляет просроченные
// записи; Get дополнительно проверяет срок на чтении, так что просроченное
// значение не отдаётся даже между проходами janitor'а.
type TTLCache struct {
	entries map[string]entry
	ttl     time.Duration
	mu      sync.RWMutex
	stopCh  chan struct{}
	stopped sync.Once
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// New создаёт кэш с заданным TTL и запускает janitor
//
// cleanupInterval <= 0 отключает фоновую эвикцию (остаётся ленивая
// проверка на Get) - удобно в тестах.
func New(ttl, cleanupInterval time.Duration) *TTLCache {
	c := &TTLCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}

	return c
}

// Set сохраняет значение с TTL кэша
func (c *TTLCache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Get возвращает значение если оно есть и не просрочено
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// GetStale возвращает значение даже если TTL истёк
//
// Используется venue-слоем: при истощённом rate-лимите последняя
// известная котировка лучше, чем отсутствие котировки, но вызывающий
// обязан проверить возраст сам (второе возвращаемое значение).
func (c *TTLCache) GetStale(key string) (interface{}, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, time.Time{}, false
	}
	return e.value, e.expiresAt.Add(-c.ttl), true
}

// Delete удаляет запись
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len возвращает количество записей (включая ещё не вычищенные просроченные)
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop останавливает janitor. Безопасно вызывать повторно.
func (c *TTLCache) Stop() {
	c.stopped.Do(func() {
		close(c.stopCh)
	})
}

// janitor периодически удаляет просроченные записи
func (c *TTLCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *TTLCache) evictExpired() {
	now := time.Now()

	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
