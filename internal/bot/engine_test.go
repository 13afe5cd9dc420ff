package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"dexarb/internal/config"
	"dexarb/internal/gateway"
	"dexarb/internal/marketdata"
	"dexarb/internal/models"
	"dexarb/internal/venue"
	"dexarb/pkg/utils"
)

type engineFixture struct {
	engine  *Engine
	statics map[string]*venue.StaticSource
	sim     *gateway.Sim
	events  <-chan Event
	bus     *Bus
}

func testEngineConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			PollInterval:      50 * time.Millisecond,
			VenueTimeout:      time.Second,
			MinSpreadPct:      0.5,
			LiquidityFloorUsd: 10000,
			MaxOpenPositions:  5,
			SuspendAfter:      3,
		},
		Risk:     testRiskConfig(),
		Position: testPositionConfig(),
	}
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	statics := map[string]*venue.StaticSource{
		"venuex": venue.NewStatic("venuex"),
		"venuey": venue.NewStatic("venuey"),
	}
	sources := make(map[string]venue.Source, len(statics))
	for name, s := range statics {
		sources[name] = s
	}

	cfg := testEngineConfig()
	logger := utils.NewNopLogger()
	bus := NewBus(64)
	sim := gateway.NewSim(10000, 0, logger)

	engine := NewEngine(
		cfg,
		NewPriceAggregator(sources, cfg.Engine.VenueTimeout, 0, logger),
		NewScorer(cfg.Risk),
		NewPositionManager(sim, cfg.Position, bus, logger),
		marketdata.NewHistory(100),
		bus,
		logger,
	)

	return &engineFixture{
		engine:  engine,
		statics: statics,
		sim:     sim,
		events:  bus.Subscribe(),
		bus:     bus,
	}
}

func (f *engineFixture) addPair(t *testing.T, status string) *PairState {
	t.Helper()
	pc := models.PairConfig{
		ID:     1,
		Pair:   testPair,
		Venues: []string{"venuex", "venuey"},
		Status: status,
	}
	if err := f.engine.AddPair(pc); err != nil {
		t.Fatalf("AddPair failed: %v", err)
	}
	ps, ok := f.engine.GetPairState(pc.ID)
	if !ok {
		t.Fatal("pair state missing after AddPair")
	}
	return ps
}

// setSpread выставляет котировки со спредом: venuex дешевле, venuey дороже
func (f *engineFixture) setSpread(buyPrice, sellPrice, liqUsd float64) {
	f.statics["venuex"].SetQuote(testPair, buyPrice, liqUsd)
	f.statics["venuey"].SetQuote(testPair, sellPrice, liqUsd)
}

func (f *engineFixture) drainEvents() []Event {
	var out []Event
	for {
		select {
		case ev := <-f.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasEvent(events []Event, eventType string) bool {
	for _, ev := range events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

func TestPollOpensPosition(t *testing.T) {
	// Спред 6% на спокойной истории проходит риск-фильтр: позиция открывается
	f := newEngineFixture(t)
	ps := f.addPair(t, models.PairStatusActive)
	f.setSpread(1.00, 1.06, 50000)

	f.engine.pollOnce(context.Background(), ps)

	if f.engine.positions.Count() != 1 {
		t.Fatalf("expected 1 open position, got %d", f.engine.positions.Count())
	}

	events := f.drainEvents()
	if !hasEvent(events, EventOpportunityDetected) {
		t.Error("expected OPPORTUNITY_DETECTED event")
	}
	if !hasEvent(events, EventPositionOpened) {
		t.Error("expected POSITION_OPENED event")
	}
}

func TestPollBelowSpreadNoEntry(t *testing.T) {
	f := newEngineFixture(t)
	ps := f.addPair(t, models.PairStatusActive)
	f.setSpread(1.00, 1.001, 50000)

	f.engine.pollOnce(context.Background(), ps)

	if f.engine.positions.Count() != 0 {
		t.Errorf("spread below minimum must not open a position")
	}
}

func TestPollPausedPairSkipsEntry(t *testing.T) {
	f := newEngineFixture(t)
	ps := f.addPair(t, models.PairStatusPaused)
	f.setSpread(1.00, 1.06, 50000)

	f.engine.pollOnce(context.Background(), ps)

	if f.engine.positions.Count() != 0 {
		t.Error("paused pair must not enter new positions")
	}
}

func TestPollPausedPairStillMonitorsPosition(t *testing.T) {
	// Пауза останавливает вход, но сопровождение открытой позиции продолжается
	f := newEngineFixture(t)
	ps := f.addPair(t, models.PairStatusActive)
	f.setSpread(1.00, 1.06, 50000)

	f.engine.pollOnce(context.Background(), ps)
	if f.engine.positions.Count() != 1 {
		t.Fatal("expected an open position")
	}

	if err := f.engine.PausePair(1); err != nil {
		t.Fatal(err)
	}

	// Цена падает ниже стопа: позиция закрывается несмотря на паузу
	f.setSpread(0.80, 0.80, 50000)
	f.engine.pollOnce(context.Background(), ps)

	if f.engine.positions.Count() != 0 {
		t.Error("paused pair must still manage its open position")
	}
}

func TestPollOnePositionPerPair(t *testing.T) {
	f := newEngineFixture(t)
	ps := f.addPair(t, models.PairStatusActive)
	f.setSpread(1.00, 1.06, 50000)

	f.engine.pollOnce(context.Background(), ps)
	f.engine.pollOnce(context.Background(), ps)

	if f.engine.positions.Count() != 1 {
		t.Errorf("expected exactly 1 position per pair, got %d", f.engine.positions.Count())
	}
}

func TestPollSuspendsAfterEmptyRounds(t *testing.T) {
	f := newEngineFixture(t)
	ps := f.addPair(t, models.PairStatusActive)
	for _, s := range f.statics {
		s.SetError(errors.New("down"))
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		f.engine.pollOnce(ctx, ps)
		if ps.Status() != models.PairStatusActive {
			t.Fatalf("pair suspended too early after %d rounds", i+1)
		}
	}

	f.engine.pollOnce(ctx, ps)
	if ps.Status() != models.PairStatusSuspended {
		t.Fatalf("expected suspension after 3 empty rounds, got %s", ps.Status())
	}
	if !hasEvent(f.drainEvents(), EventPairSuspended) {
		t.Error("expected PAIR_SUSPENDED event")
	}

	// Повторные пустые раунды не генерируют дублей
	f.engine.pollOnce(ctx, ps)
	if hasEvent(f.drainEvents(), EventPairSuspended) {
		t.Error("suspension event must not repeat")
	}
}

func TestPollResumesOnRecovery(t *testing.T) {
	f := newEngineFixture(t)
	ps := f.addPair(t, models.PairStatusActive)
	ctx := context.Background()

	for _, s := range f.statics {
		s.SetError(errors.New("down"))
	}
	for i := 0; i < 3; i++ {
		f.engine.pollOnce(ctx, ps)
	}
	if ps.Status() != models.PairStatusSuspended {
		t.Fatal("expected suspended pair")
	}
	f.drainEvents()

	// Котировки вернулись: пара автоматически возобновляется
	for _, s := range f.statics {
		s.SetError(nil)
	}
	f.setSpread(1.00, 1.001, 50000)
	f.engine.pollOnce(ctx, ps)

	if ps.Status() != models.PairStatusActive {
		t.Fatalf("expected resumed pair, got %s", ps.Status())
	}
	if !hasEvent(f.drainEvents(), EventPairResumed) {
		t.Error("expected PAIR_RESUMED event")
	}
}

func TestPollMaxOpenPositions(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.cfg.Engine.MaxOpenPositions = 1
	ps := f.addPair(t, models.PairStatusActive)
	f.setSpread(1.00, 1.06, 50000)
	f.engine.pollOnce(context.Background(), ps)

	other := models.PairConfig{
		ID:     2,
		Pair:   models.TradingPair{Base: "BONK", Quote: "USDC"},
		Venues: []string{"venuex", "venuey"},
		Status: models.PairStatusActive,
	}
	if err := f.engine.AddPair(other); err != nil {
		t.Fatal(err)
	}
	f.statics["venuex"].SetQuote(other.Pair, 1.00, 50000)
	f.statics["venuey"].SetQuote(other.Pair, 1.06, 50000)

	ps2, _ := f.engine.GetPairState(2)
	f.engine.pollOnce(context.Background(), ps2)

	if f.engine.positions.Count() != 1 {
		t.Errorf("position limit must block the second entry, got %d", f.engine.positions.Count())
	}
}

func TestAddPairValidation(t *testing.T) {
	f := newEngineFixture(t)

	bad := models.PairConfig{ID: 1, Pair: models.TradingPair{Base: "SOL"}, Venues: []string{"venuex"}}
	if err := f.engine.AddPair(bad); err == nil {
		t.Error("pair without quote must be rejected")
	}

	noVenues := models.PairConfig{ID: 1, Pair: testPair}
	if err := f.engine.AddPair(noVenues); err == nil {
		t.Error("pair without venues must be rejected")
	}

	f.addPair(t, models.PairStatusActive)
	dup := models.PairConfig{ID: 1, Pair: testPair, Venues: []string{"venuex"}}
	if err := f.engine.AddPair(dup); err == nil {
		t.Error("duplicate pair id must be rejected")
	}
}

func TestPauseResumePair(t *testing.T) {
	f := newEngineFixture(t)
	ps := f.addPair(t, models.PairStatusActive)

	if err := f.engine.PausePair(1); err != nil {
		t.Fatal(err)
	}
	if ps.Status() != models.PairStatusPaused {
		t.Errorf("expected paused, got %s", ps.Status())
	}

	if err := f.engine.ResumePair(1); err != nil {
		t.Fatal(err)
	}
	if ps.Status() != models.PairStatusActive {
		t.Errorf("expected active, got %s", ps.Status())
	}

	if err := f.engine.PausePair(99); err == nil {
		t.Error("unknown pair id must be rejected")
	}
}

func TestRemovePair(t *testing.T) {
	f := newEngineFixture(t)
	f.addPair(t, models.PairStatusActive)

	if err := f.engine.RemovePair(1); err != nil {
		t.Fatal(err)
	}
	if len(f.engine.Pairs()) != 0 {
		t.Error("pair must be gone after removal")
	}
	if err := f.engine.RemovePair(1); err == nil {
		t.Error("removing an unknown pair must fail")
	}
}
