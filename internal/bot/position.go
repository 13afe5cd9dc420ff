package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dexarb/internal/config"
	"dexarb/internal/gateway"
	"dexarb/internal/models"
)

// PositionManager - владелец и единственный мутатор открытых позиций.
//
// Дисциплина одного писателя: обновления цены одной позиции применяются
// строго в порядке поступления (воркер пары - единственный источник
// обновлений своей позиции). Запросы на вход/выход уходят в TradeGateway,
// состояние меняется только по подтверждённому fill'у.
type PositionManager struct {
	gw     gateway.Gateway
	cfg    config.PositionConfig
	events *Bus
	logger *zap.Logger

	mu        sync.Mutex
	positions map[string]*models.Position
	pending   map[string]bool // позиции с неподтверждённым exit-запросом

	// OnClose вызывается после перехода позиции в CLOSED (архивация).
	// Устанавливается до Start, вызывается вне мьютекса.
	OnClose func(p *models.Position)

	now func() time.Time
}

// NewPositionManager создает менеджер позиций
func NewPositionManager(gw gateway.Gateway, cfg config.PositionConfig, events *Bus, logger *zap.Logger) *PositionManager {
	return &PositionManager{
		gw:        gw,
		cfg:       cfg,
		events:    events,
		logger:    logger,
		positions: make(map[string]*models.Position),
		pending:   make(map[string]bool),
		now:       time.Now,
	}
}

// Open открывает позицию по принятой возможности.
//
// Позиция создаётся ТОЛЬКО после подтверждённого входного fill'а:
// отказ gateway означает, что позиции нет и не было.
func (pm *PositionManager) Open(ctx context.Context, opp *models.Opportunity, pc models.PairConfig) (*models.Position, error) {
	sizeQuote := pc.EntrySizeQuote
	if sizeQuote <= 0 {
		sizeQuote = pm.cfg.EntrySizeQuote
	}
	maxSlippage := pc.MaxSlippagePct
	if maxSlippage <= 0 {
		maxSlippage = pm.cfg.MaxSlippagePct
	}

	fill, err := pm.gw.RequestEntry(ctx, opp.Pair, sizeQuote, opp.BuyPrice, maxSlippage)
	if err != nil {
		ExecutionFailures.WithLabelValues("entry").Inc()
		return nil, fmt.Errorf("entry request for %s: %w", opp.Pair, err)
	}

	now := pm.now()
	p := &models.Position{
		ID:               uuid.NewString(),
		Pair:             opp.Pair,
		Venue:            opp.BuyVenue,
		EntryPrice:       fill.ExecutedPrice,
		SizeBase:         fill.ExecutedSize,
		InitialBase:      fill.ExecutedSize,
		SizeQuoteAtEntry: sizeQuote,
		StopLossPrice:    fill.ExecutedPrice * (1 - pm.cfg.StopLossPct),
		TrailingStopPct:  pm.cfg.TrailingStopPct,
		TakeProfitTiers:  append([]models.TakeProfitTier(nil), pm.cfg.Tiers...),
		HighWaterPrice:   fill.ExecutedPrice,
		State:            models.PositionStateOpen,
		OpenedAt:         now,
		MaxHoldTime:      pm.cfg.MaxHoldTime,
		LastPrice:        fill.ExecutedPrice,
		LastUpdate:       now,
	}

	pm.mu.Lock()
	pm.positions[p.ID] = p
	open := len(pm.positions)
	pm.mu.Unlock()

	OpenPositions.Set(float64(open))
	pm.events.Publish(Event{
		Type:     EventPositionOpened,
		Pair:     p.Pair,
		Position: snapshotPosition(p),
		At:       now,
	})
	pm.logger.Info("position opened",
		zap.String("position_id", p.ID),
		zap.String("pair", p.Pair.String()),
		zap.Float64("entry_price", p.EntryPrice),
		zap.Float64("size_base", p.SizeBase),
		zap.Float64("stop_loss", p.StopLossPrice))

	return p, nil
}

// OnPriceUpdate применяет ценовое обновление к позиции.
//
// Порядок проверок фиксирован:
//  1. обновление максимума цены
//  2. stop-loss (защита капитала важнее фиксации прибыли)
//  3. trailing stop - только после >= 1 сработавшего tier'а
//  4. take-profit tier'ы по возрастанию множителя
//  5. истечение максимального времени удержания
//
// Неисполненный exit-запрос не меняет состояние: позиция остаётся как
// была и повторяет попытку на следующем тике. Пока запрос не подтверждён
// и не отклонён, второй не отправляется.
func (pm *PositionManager) OnPriceUpdate(ctx context.Context, positionID string, price float64, now time.Time) error {
	pm.mu.Lock()
	p, ok := pm.positions[positionID]
	if !ok {
		pm.mu.Unlock()
		return fmt.Errorf("unknown position %s", positionID)
	}
	if !p.IsOpen() || pm.pending[positionID] {
		pm.mu.Unlock()
		return nil
	}

	p.LastPrice = price
	p.LastUpdate = now
	if price > p.HighWaterPrice {
		p.HighWaterPrice = price
	}

	switch {
	case price <= p.StopLossPrice:
		return pm.fullExit(ctx, p, price, models.ExitReasonStopLoss)

	case p.FiredTiers() >= 1 && price <= p.HighWaterPrice*(1-p.TrailingStopPct):
		return pm.fullExit(ctx, p, price, models.ExitReasonTrailingStop)
	}

	for i := range p.TakeProfitTiers {
		tier := &p.TakeProfitTiers[i]
		if tier.Fired || price < p.EntryPrice*tier.PriceMultiple {
			continue
		}
		return pm.tierExit(ctx, p, i, price, now)
	}

	if now.Sub(p.OpenedAt) >= p.MaxHoldTime {
		return pm.fullExit(ctx, p, price, models.ExitReasonTimeExpiry)
	}

	pm.mu.Unlock()
	return nil
}

// fullExit запрашивает продажу всего остатка позиции.
// Вызывается под мьютексом, освобождает его на время запроса к gateway.
func (pm *PositionManager) fullExit(ctx context.Context, p *models.Position, price float64, reason string) error {
	pm.pending[p.ID] = true
	id, pair, size := p.ID, p.Pair, p.SizeBase
	pm.mu.Unlock()

	fill, err := pm.gw.RequestExit(ctx, id, pair, size, price, pm.maxSlippage(pair))

	pm.mu.Lock()
	delete(pm.pending, id)
	if err != nil {
		pm.mu.Unlock()
		ExecutionFailures.WithLabelValues("exit").Inc()
		pm.logger.Warn("exit request failed, will retry on next tick",
			zap.String("position_id", id),
			zap.String("reason", reason),
			zap.Error(err))
		return nil
	}

	pm.applyFill(p, fill)
	pm.close(p, reason)
	pm.mu.Unlock()

	pm.finishClose(p, reason)
	return nil
}

// tierExit запрашивает частичную продажу по сработавшему tier'у.
// Вызывается под мьютексом, освобождает его на время запроса к gateway.
func (pm *PositionManager) tierExit(ctx context.Context, p *models.Position, tierIdx int, price float64, now time.Time) error {
	tier := &p.TakeProfitTiers[tierIdx]
	sellSize := p.SizeBase * tier.FractionToSell

	pm.pending[p.ID] = true
	id, pair := p.ID, p.Pair
	pm.mu.Unlock()

	fill, err := pm.gw.RequestExit(ctx, id, pair, sellSize, price, pm.maxSlippage(pair))

	pm.mu.Lock()
	delete(pm.pending, id)
	if err != nil {
		pm.mu.Unlock()
		ExecutionFailures.WithLabelValues("exit").Inc()
		pm.logger.Warn("tier exit request failed, will retry on next tick",
			zap.String("position_id", id),
			zap.Int("tier", tierIdx),
			zap.Error(err))
		return nil
	}

	pm.applyFill(p, fill)
	tier.Fired = true
	tier.FiredAt = now
	TierFills.WithLabelValues(pair.Symbol()).Inc()

	lastTier := tierIdx == len(p.TakeProfitTiers)-1
	if lastTier || p.SizeBase <= 0 {
		pm.close(p, models.ExitReasonTakeProfitFinal)
		pm.mu.Unlock()
		pm.finishClose(p, models.ExitReasonTakeProfitFinal)
		return nil
	}

	pm.transition(p, models.PositionStatePartiallyClosed)
	snapshot := snapshotPosition(p)
	pm.mu.Unlock()

	pm.events.Publish(Event{
		Type:     EventPositionTierFilled,
		Pair:     pair,
		Position: snapshot,
		Tier:     tierIdx,
		At:       now,
	})
	pm.logger.Info("take-profit tier filled",
		zap.String("position_id", id),
		zap.Int("tier", tierIdx),
		zap.Float64("fill_price", fill.ExecutedPrice),
		zap.Float64("remaining_base", snapshot.SizeBase))

	// Цена могла перескочить сразу несколько tier'ов - переоцениваем
	// позицию на той же цене, пока есть что срабатывать
	return pm.OnPriceUpdate(ctx, id, price, now)
}

// applyFill применяет подтверждённый fill: уменьшает остаток и
// аккумулирует реализованный PnL. Вызывается под мьютексом.
func (pm *PositionManager) applyFill(p *models.Position, fill *models.Fill) {
	size := fill.ExecutedSize
	if size > p.SizeBase {
		size = p.SizeBase
	}
	p.SizeBase -= size
	p.RealizedPnl += (fill.ExecutedPrice - p.EntryPrice) * size
}

// close переводит позицию в CLOSED. Вызывается под мьютексом.
func (pm *PositionManager) close(p *models.Position, reason string) {
	pm.transition(p, models.PositionStateClosed)
	p.ExitReason = reason
	p.ClosedAt = pm.now()
	p.SizeBase = 0
}

// finishClose публикует событие закрытия и архивирует позицию.
// Вызывается вне мьютекса.
func (pm *PositionManager) finishClose(p *models.Position, reason string) {
	pm.mu.Lock()
	delete(pm.positions, p.ID)
	open := len(pm.positions)
	snapshot := snapshotPosition(p)
	pm.mu.Unlock()

	OpenPositions.Set(float64(open))
	PositionsClosed.WithLabelValues(p.Pair.Symbol(), reason).Inc()
	RealizedPnlTotal.Add(p.RealizedPnl)

	pm.events.Publish(Event{
		Type:     EventPositionClosed,
		Pair:     p.Pair,
		Position: snapshot,
		Reason:   reason,
		At:       p.ClosedAt,
	})
	pm.logger.Info("position closed",
		zap.String("position_id", p.ID),
		zap.String("pair", p.Pair.String()),
		zap.String("reason", reason),
		zap.Float64("realized_pnl", p.RealizedPnl))

	if pm.OnClose != nil {
		pm.OnClose(snapshot)
	}
}

// transition меняет состояние позиции с проверкой допустимости перехода
func (pm *PositionManager) transition(p *models.Position, to string) {
	if p.State == to {
		return
	}
	if !CanTransition(p.State, to) {
		pm.logger.Error("invalid position state transition",
			zap.String("position_id", p.ID),
			zap.String("from", p.State),
			zap.String("to", to))
		return
	}
	p.State = to
}

// ForceClose принудительно закрывает позицию по последней цене
func (pm *PositionManager) ForceClose(ctx context.Context, positionID string) error {
	pm.mu.Lock()
	p, ok := pm.positions[positionID]
	if !ok {
		pm.mu.Unlock()
		return fmt.Errorf("unknown position %s", positionID)
	}
	if !p.IsOpen() || pm.pending[positionID] {
		pm.mu.Unlock()
		return fmt.Errorf("position %s is not closeable", positionID)
	}
	price := p.LastPrice
	return pm.fullExit(ctx, p, price, models.ExitReasonForced)
}

// Get возвращает снимок позиции
func (pm *PositionManager) Get(positionID string) (*models.Position, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.positions[positionID]
	if !ok {
		return nil, false
	}
	return snapshotPosition(p), true
}

// Active возвращает снимки всех открытых позиций
func (pm *PositionManager) Active() []*models.Position {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	out := make([]*models.Position, 0, len(pm.positions))
	for _, p := range pm.positions {
		out = append(out, snapshotPosition(p))
	}
	return out
}

// Count возвращает число открытых позиций
func (pm *PositionManager) Count() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.positions)
}

// ActiveForPair возвращает id открытой позиции пары, если есть
func (pm *PositionManager) ActiveForPair(pair models.TradingPair) (string, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for id, p := range pm.positions {
		if p.Pair == pair {
			return id, true
		}
	}
	return "", false
}

func (pm *PositionManager) maxSlippage(models.TradingPair) float64 {
	return pm.cfg.MaxSlippagePct
}
