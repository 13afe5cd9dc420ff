package utils

import "math"

// math.go - математические утилиты для расчёта спредов и риска
//
// Все функции являются чистыми (pure functions) без побочных эффектов.

// SpreadPct рассчитывает спред между ценой покупки и продажи в процентах.
//
// Формула: (sellPrice - buyPrice) / buyPrice * 100
//
// Возвращает 0 если buyPrice <= 0 (защита от деления на ноль).
//
// Примеры:
//   - SpreadPct(1.00, 1.06) = 6.0
//   - SpreadPct(100, 100)  = 0.0
func SpreadPct(buyPrice, sellPrice float64) float64 {
	if buyPrice <= 0 {
		return 0
	}
	return (sellPrice - buyPrice) / buyPrice * 100
}

// Clamp ограничивает значение диапазоном [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoundToStep округляет значение ВНИЗ до ближайшего кратного step.
//
// Используется для округления объёма до минимального шага venue.
// Округление вниз безопаснее - не превысим доступные средства.
//
// Если step <= 0, возвращает исходное значение.
func RoundToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Floor(value/step) * step
}

// LogReturns вычисляет логарифмические доходности ценового ряда
//
// returns[i] = ln(prices[i+1] / prices[i])
//
// Неположительные цены пропускаются (защита от испорченных данных).
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	return returns
}

// StdDev вычисляет выборочное стандартное отклонение
//
// Возвращает 0 для рядов короче 2 элементов.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

// WeightedAverage вычисляет средневзвешенное значение
//
// Возвращает 0 если суммарный вес равен 0 или длины не совпадают.
func WeightedAverage(values, weights []float64) float64 {
	if len(values) != len(weights) || len(values) == 0 {
		return 0
	}

	var sum, wsum float64
	for i, v := range values {
		sum += v * weights[i]
		wsum += weights[i]
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}
