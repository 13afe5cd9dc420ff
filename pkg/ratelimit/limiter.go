package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter - Token Bucket rate limiter для контроля частоты запросов к API venue'ов
//
// Алгоритм Token Bucket:
// - Ведро наполняется токенами с постоянной скоростью (rate токенов/сек)
// - Максимальная ёмкость ведра = burst (позволяет короткие всплески)
// - Каждый запрос потребляет 1 токен
// - Если токенов нет, запрос ждёт или получает кэшированную котировку
//
// Агрегатор котировок никогда не обходит лимит venue: вызывающие, которые
// опрашивают чаще лимита, обслуживаются из кэша (см. internal/venue).
//
// Использование:
//
//	limiter := New(10, 20)       // 10 req/sec, burst 20
//	err := limiter.Wait(ctx)     // блокирующее ожидание
//	if limiter.Allow() { ... }   // неблокирующая проверка
type Limiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// New создаёт новый rate limiter
//
// Параметры:
//   - rate: количество запросов в секунду
//   - burst: максимальный burst (обычно 1.5-2x от rate)
//
// Типичные лимиты публичных DEX API:
//   - Jupiter price API: 10 req/sec
//   - Raydium pools API:  3 req/sec
//   - Orca pools API:     3 req/sec
func New(rate, burst float64) *Limiter {
	if rate <= 0 {
		rate = 1
	}
	if burst < rate {
		burst = rate
	}

	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst, // начинаем с полным ведром
		lastRefill: time.Now(),
	}
}

// refill пополняет токены на основе прошедшего времени
// ВАЖНО: вызывается под lock'ом
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastRefill = now
}

// Allow проверяет доступность токена без блокировки
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait блокирует до получения токена или отмены контекста
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()

		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}

		// Время до следующего токена
		waitTime := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tokens возвращает текущее количество доступных токенов
// Используется метриками для мониторинга истощения лимитов
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

// Rate возвращает скорость пополнения (токенов/сек)
func (l *Limiter) Rate() float64 {
	return l.rate
}

// ============================================================
// Registry - лимитеры по venue'ам
// ============================================================

// Registry хранит по одному лимитеру на venue
//
// Счётчики лимитов - единственное разделяемое мутабельное состояние
// между worker'ами пар; каждый Limiter защищён собственным мьютексом.
type Registry struct {
	limiters map[string]*Limiter
	fallback *Limiter // для venue'ов без явного лимита
	mu       sync.RWMutex
}

// NewRegistry создаёт реестр с лимитом по умолчанию для неизвестных venue'ов
func NewRegistry(defaultRate, defaultBurst float64) *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		fallback: New(defaultRate, defaultBurst),
	}
}

// Set задаёт лимит для venue
func (r *Registry) Set(venue string, rate, burst float64) {
	r.mu.Lock()
	r.limiters[venue] = New(rate, burst)
	r.mu.Unlock()
}

// For возвращает лимитер venue (или общий fallback)
func (r *Registry) For(venue string) *Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.limiters[venue]; ok {
		return l
	}
	return r.fallback
}
