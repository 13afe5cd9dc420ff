// Package marketdata хранит скользящую историю цен по парам
// для расчёта волатильности и суточного объёма.
package marketdata

import (
	"sync"
	"time"

	"dexarb/internal/models"
	"dexarb/pkg/utils"
)

// observation - одно наблюдение цены за раунд агрегации
type observation struct {
	price float64
	at    time.Time
}

// History накапливает межвенные средние цены по раундам опроса.
// Потокобезопасна: движок пишет из воркеров пар, риск-скоринг читает.
type History struct {
	mu       sync.RWMutex
	capacity int
	series   map[string][]observation // pair symbol -> наблюдения, новые в конце
	volume   map[string]float64       // pair symbol -> последний известный суточный объём
}

// NewHistory создает историю с заданной глубиной на пару
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{
		capacity: capacity,
		series:   make(map[string][]observation),
		volume:   make(map[string]float64),
	}
}

// Record добавляет наблюдение раунда: среднюю цену по venue'ам
// и максимальный заявленный суточный объём.
func (h *History) Record(qs *models.QuoteSet) {
	if qs == nil || len(qs.Quotes) == 0 {
		return
	}

	var sum, maxVolume float64
	for _, q := range qs.Quotes {
		sum += q.Price
		if q.Volume24hUsd > maxVolume {
			maxVolume = q.Volume24hUsd
		}
	}
	mean := sum / float64(len(qs.Quotes))

	key := qs.Pair.Symbol()

	h.mu.Lock()
	defer h.mu.Unlock()

	series := append(h.series[key], observation{price: mean, at: qs.TakenAt})
	if len(series) > h.capacity {
		series = series[len(series)-h.capacity:]
	}
	h.series[key] = series

	if maxVolume > 0 {
		h.volume[key] = maxVolume
	}
}

// Prices возвращает последние n цен пары в хронологическом порядке.
// n <= 0 возвращает всю историю.
func (h *History) Prices(pair models.TradingPair, n int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	series := h.series[pair.Symbol()]
	if n > 0 && len(series) > n {
		series = series[len(series)-n:]
	}

	prices := make([]float64, len(series))
	for i, obs := range series {
		prices[i] = obs.price
	}
	return prices
}

// Volatility возвращает стандартное отклонение лог-доходностей
// последних n цен. Меньше двух наблюдений - волатильность 0.
func (h *History) Volatility(pair models.TradingPair, n int) float64 {
	prices := h.Prices(pair, n)
	if len(prices) < 2 {
		return 0
	}
	return utils.StdDev(utils.LogReturns(prices))
}

// Volume24h возвращает последний известный суточный объём пары в USD.
// 0, если ни один venue объём не сообщал.
func (h *History) Volume24h(pair models.TradingPair) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.volume[pair.Symbol()]
}

// Len возвращает количество наблюдений по паре
func (h *History) Len(pair models.TradingPair) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.series[pair.Symbol()])
}

// Reset очищает историю пары
func (h *History) Reset(pair models.TradingPair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.series, pair.Symbol())
	delete(h.volume, pair.Symbol())
}
