package models

import "time"

// Quote - снимок цены/ликвидности с одного venue для одной пары
//
// Неизменяемый: после формирования раунда агрегации котировка не
// модифицируется и не хранится дольше одного раунда.
type Quote struct {
	Venue        string      `json:"venue"`
	Pair         TradingPair `json:"pair"`
	Price        float64     `json:"price"`         // цена base в quote, > 0
	LiquidityUsd float64     `json:"liquidity_usd"` // доступная ликвидность пула, >= 0
	Volume24hUsd float64     `json:"volume_24h_usd"` // суточный объём, 0 если venue не сообщает
	ObservedAt   time.Time   `json:"observed_at"`
}

// QuoteSet - котировки одного раунда опроса: venue -> Quote
//
// Инварианты:
// - не более одной котировки на venue за раунд
// - все ObservedAt принадлежат одному раунду опроса
// - номера раундов монотонно растут
type QuoteSet struct {
	Pair    TradingPair      `json:"pair"`
	Round   uint64           `json:"round"`
	Quotes  map[string]Quote `json:"quotes"`
	TakenAt time.Time        `json:"taken_at"`
}

// Size возвращает количество venue'ов, ответивших в этом раунде
func (qs *QuoteSet) Size() int {
	return len(qs.Quotes)
}

// Venues возвращает список venue'ов с котировками (порядок не определён)
func (qs *QuoteSet) Venues() []string {
	venues := make([]string, 0, len(qs.Quotes))
	for v := range qs.Quotes {
		venues = append(venues, v)
	}
	return venues
}
