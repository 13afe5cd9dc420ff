package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"dexarb/internal/config"
	"dexarb/internal/marketdata"
	"dexarb/internal/models"
)

// PairState - рантайм-состояние одной отслеживаемой пары
type PairState struct {
	mu           sync.RWMutex
	cfg          models.PairConfig
	failedRounds int // раундов подряд без единой котировки
	stop         chan struct{}
}

// Config возвращает снимок конфигурации пары
func (ps *PairState) Config() models.PairConfig {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.cfg
}

// Status возвращает текущий статус пары
func (ps *PairState) Status() string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.cfg.Status
}

// Engine - торговый движок: по одному воркеру на отслеживаемую пару,
// каждый крутит независимый цикл poll -> detect -> score -> manage.
type Engine struct {
	cfg        *config.Config
	aggregator *PriceAggregator
	scorer     *Scorer
	positions  *PositionManager
	history    *marketdata.History
	events     *Bus
	logger     *zap.Logger

	mu    sync.RWMutex
	pairs map[int]*PairState

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewEngine создает движок
func NewEngine(
	cfg *config.Config,
	aggregator *PriceAggregator,
	scorer *Scorer,
	positions *PositionManager,
	history *marketdata.History,
	events *Bus,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		aggregator: aggregator,
		scorer:     scorer,
		positions:  positions,
		history:    history,
		events:     events,
		logger:     logger,
		pairs:      make(map[int]*PairState),
	}
}

// Start запускает воркеры всех зарегистрированных пар
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("engine already running")
	}

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.running = true

	for _, ps := range e.pairs {
		e.wg.Add(1)
		go e.runPair(ps)
	}

	e.logger.Info("engine started", zap.Int("pairs", len(e.pairs)))
	return nil
}

// Stop останавливает все воркеры и дожидается их завершения
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info("engine stopped")
}

// AddPair регистрирует пару. У работающего движка воркер запускается сразу.
func (e *Engine) AddPair(pc models.PairConfig) error {
	if err := pc.Pair.Validate(); err != nil {
		return err
	}
	if len(pc.Venues) == 0 {
		return fmt.Errorf("pair %s has no venues", pc.Pair)
	}
	if pc.Status == "" {
		pc.Status = models.PairStatusActive
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.pairs[pc.ID]; exists {
		return fmt.Errorf("pair %d already registered", pc.ID)
	}

	ps := &PairState{cfg: pc, stop: make(chan struct{})}
	e.pairs[pc.ID] = ps

	if e.running {
		e.wg.Add(1)
		go e.runPair(ps)
	}
	return nil
}

// RemovePair снимает пару с отслеживания
func (e *Engine) RemovePair(pairID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, ok := e.pairs[pairID]
	if !ok {
		return fmt.Errorf("pair %d not found", pairID)
	}
	close(ps.stop)
	delete(e.pairs, pairID)
	return nil
}

// PausePair приостанавливает торговлю по паре (воркер продолжает holding-цикл)
func (e *Engine) PausePair(pairID int) error {
	return e.setPairStatus(pairID, models.PairStatusPaused)
}

// ResumePair возобновляет торговлю по паре
func (e *Engine) ResumePair(pairID int) error {
	return e.setPairStatus(pairID, models.PairStatusActive)
}

func (e *Engine) setPairStatus(pairID int, status string) error {
	e.mu.RLock()
	ps, ok := e.pairs[pairID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("pair %d not found", pairID)
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.cfg.Status == status {
		return nil
	}
	if !CanPairTransition(ps.cfg.Status, status) {
		return fmt.Errorf("pair %d: cannot go from %s to %s", pairID, ps.cfg.Status, status)
	}
	ps.cfg.Status = status
	return nil
}

// Pairs возвращает снимки конфигураций всех пар
func (e *Engine) Pairs() []models.PairConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.PairConfig, 0, len(e.pairs))
	for _, ps := range e.pairs {
		out = append(out, ps.Config())
	}
	return out
}

// GetPairState возвращает рантайм-состояние пары
func (e *Engine) GetPairState(pairID int) (*PairState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ps, ok := e.pairs[pairID]
	return ps, ok
}

// runPair - цикл воркера одной пары
func (e *Engine) runPair(ps *PairState) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Engine.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ps.stop:
			return
		case <-ticker.C:
			e.pollOnce(e.ctx, ps)
		}
	}
}

// pollOnce выполняет один раунд: опрос venue'ов, обновление позиции,
// детекция и (возможный) вход
func (e *Engine) pollOnce(ctx context.Context, ps *PairState) {
	pc := ps.Config()

	// Пауза останавливает только вход в новые позиции: опрос и
	// сопровождение открытой позиции продолжаются
	qs, failures := e.aggregator.GetQuotes(ctx, pc.Pair, pc.Venues)
	QuotesCollected.WithLabelValues(pc.Pair.Symbol()).Observe(float64(len(qs.Quotes)))

	if len(qs.Quotes) == 0 {
		e.handleEmptyRound(ps, pc, failures)
		return
	}
	e.handleRecovery(ps, pc)

	e.history.Record(qs)

	// Сопровождение открытой позиции пары
	now := time.Now()
	if posID, ok := e.positions.ActiveForPair(pc.Pair); ok {
		price := e.monitorPrice(qs, posID)
		if price > 0 {
			if err := e.positions.OnPriceUpdate(ctx, posID, price, now); err != nil {
				e.logger.Warn("price update failed",
					zap.String("position_id", posID),
					zap.Error(err))
			}
		}
		// Одна позиция на пару: новый вход не рассматривается
		return
	}

	if pc.Status != models.PairStatusActive {
		return
	}

	opp, reject := Detect(qs, e.detectorConfig(pc), now)
	if opp == nil {
		OpportunitiesDetected.WithLabelValues(pc.Pair.Symbol(), reject).Inc()
		return
	}
	OpportunitiesDetected.WithLabelValues(pc.Pair.Symbol(), "detected").Inc()
	SpreadObserved.WithLabelValues(pc.Pair.Symbol()).Observe(opp.SpreadPct)

	score := e.scorer.Score(ctx, opp, ScoreContext{
		Volatility:   e.history.Volatility(pc.Pair, 0),
		Volume24hUsd: e.history.Volume24h(pc.Pair),
	})
	RiskScores.WithLabelValues(pc.Pair.Symbol()).Observe(score.Total)

	e.events.Publish(Event{
		Type:        EventOpportunityDetected,
		Pair:        pc.Pair,
		Opportunity: opp,
		Risk:        &score,
		At:          now,
	})

	if err := e.scorer.Accept(score); err != nil {
		RiskRejected.WithLabelValues(pc.Pair.Symbol()).Inc()
		e.logger.Debug("opportunity rejected by risk",
			zap.String("pair", pc.Pair.String()),
			zap.Float64("score", score.Total),
			zap.Float64("threshold", e.cfg.Risk.Threshold))
		return
	}

	if max := e.cfg.Engine.MaxOpenPositions; max > 0 && e.positions.Count() >= max {
		e.logger.Debug("max open positions reached, skipping entry",
			zap.String("pair", pc.Pair.String()))
		return
	}

	if _, err := e.positions.Open(ctx, opp, pc); err != nil {
		e.logger.Warn("entry failed, no position created",
			zap.String("pair", pc.Pair.String()),
			zap.Error(err))
	}
}

// handleEmptyRound обрабатывает раунд, в котором не ответил ни один venue.
// Достаточное число пустых раундов подряд приостанавливает пару - состояние,
// отличимое в отчётности от "возможность не найдена".
func (e *Engine) handleEmptyRound(ps *PairState, pc models.PairConfig, failures []VenueFailure) {
	ps.mu.Lock()
	ps.failedRounds++
	shouldSuspend := ps.failedRounds >= e.cfg.Engine.SuspendAfter &&
		ps.cfg.Status == models.PairStatusActive &&
		CanPairTransition(ps.cfg.Status, models.PairStatusSuspended)
	if shouldSuspend {
		ps.cfg.Status = models.PairStatusSuspended
	}
	failed := ps.failedRounds
	ps.mu.Unlock()

	if !shouldSuspend {
		return
	}

	SuspendedPairs.Inc()
	e.events.Publish(Event{
		Type:   EventPairSuspended,
		Pair:   pc.Pair,
		Reason: fmt.Sprintf("all venues down for %d rounds", failed),
		At:     time.Now(),
	})
	e.logger.Warn("pair suspended: all venues down",
		zap.String("pair", pc.Pair.String()),
		zap.Int("failed_rounds", failed),
		zap.Int("venue_failures", len(failures)))
}

// handleRecovery возвращает приостановленную пару в работу при
// возобновлении котировок
func (e *Engine) handleRecovery(ps *PairState, pc models.PairConfig) {
	ps.mu.Lock()
	ps.failedRounds = 0
	resumed := ps.cfg.Status == models.PairStatusSuspended
	if resumed {
		ps.cfg.Status = models.PairStatusActive
	}
	ps.mu.Unlock()

	if !resumed {
		return
	}

	SuspendedPairs.Dec()
	e.events.Publish(Event{
		Type: EventPairResumed,
		Pair: pc.Pair,
		At:   time.Now(),
	})
	e.logger.Info("pair resumed: quotes are back",
		zap.String("pair", pc.Pair.String()))
}

// monitorPrice выбирает цену для сопровождения позиции: котировку venue
// входа, если он ответил в этом раунде, иначе среднюю по раунду
func (e *Engine) monitorPrice(qs *models.QuoteSet, positionID string) float64 {
	if p, ok := e.positions.Get(positionID); ok {
		if q, ok := qs.Quotes[p.Venue]; ok {
			return q.Price
		}
	}

	var sum float64
	for _, q := range qs.Quotes {
		sum += q.Price
	}
	if len(qs.Quotes) == 0 {
		return 0
	}
	return sum / float64(len(qs.Quotes))
}

// detectorConfig собирает пороги детекции пары с fallback на глобальные
func (e *Engine) detectorConfig(pc models.PairConfig) DetectorConfig {
	cfg := DetectorConfig{
		MinSpreadPct:      pc.MinSpreadPct,
		LiquidityFloorUsd: pc.LiquidityFloor,
	}
	if cfg.MinSpreadPct <= 0 {
		cfg.MinSpreadPct = e.cfg.Engine.MinSpreadPct
	}
	if cfg.LiquidityFloorUsd <= 0 {
		cfg.LiquidityFloorUsd = e.cfg.Engine.LiquidityFloorUsd
	}
	return cfg
}
