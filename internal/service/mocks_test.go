package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"dexarb/internal/models"
	"dexarb/internal/repository"
)

// errTest - общая ошибка для негативных сценариев
var errTest = errors.New("test error")

// ============ Mock PairRepository ============

type MockPairRepository struct {
	pairs     map[int]*models.PairConfig
	nextID    int
	createErr error
	getErr    error
	updateErr error
	deleteErr error
}

func NewMockPairRepository() *MockPairRepository {
	return &MockPairRepository{pairs: make(map[int]*models.PairConfig), nextID: 1}
}

func (m *MockPairRepository) Create(pair *models.PairConfig) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, p := range m.pairs {
		if p.Pair == pair.Pair {
			return repository.ErrPairExists
		}
	}
	pair.ID = m.nextID
	m.nextID++
	m.pairs[pair.ID] = pair
	return nil
}

func (m *MockPairRepository) GetByID(id int) (*models.PairConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	pair, ok := m.pairs[id]
	if !ok {
		return nil, repository.ErrPairNotFound
	}
	cp := *pair
	return &cp, nil
}

func (m *MockPairRepository) GetByPair(base, quote string) (*models.PairConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, p := range m.pairs {
		if p.Pair.Base == base && p.Pair.Quote == quote {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrPairNotFound
}

func (m *MockPairRepository) GetAll() ([]*models.PairConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	ids := make([]int, 0, len(m.pairs))
	for id := range m.pairs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	result := make([]*models.PairConfig, 0, len(ids))
	for _, id := range ids {
		result = append(result, m.pairs[id])
	}
	return result, nil
}

func (m *MockPairRepository) GetByStatus(status string) ([]*models.PairConfig, error) {
	all, err := m.GetAll()
	if err != nil {
		return nil, err
	}
	var result []*models.PairConfig
	for _, p := range all {
		if p.Status == status {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *MockPairRepository) GetActive() ([]*models.PairConfig, error) {
	return m.GetByStatus(models.PairStatusActive)
}

func (m *MockPairRepository) Update(pair *models.PairConfig) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.pairs[pair.ID]; !ok {
		return repository.ErrPairNotFound
	}
	cp := *pair
	m.pairs[pair.ID] = &cp
	return nil
}

func (m *MockPairRepository) UpdateStatus(id int, status string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	pair, ok := m.pairs[id]
	if !ok {
		return repository.ErrPairNotFound
	}
	pair.Status = status
	return nil
}

func (m *MockPairRepository) Delete(id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.pairs[id]; !ok {
		return repository.ErrPairNotFound
	}
	delete(m.pairs, id)
	return nil
}

func (m *MockPairRepository) RecordTrade(id int, pnlDelta float64) error {
	pair, ok := m.pairs[id]
	if !ok {
		return repository.ErrPairNotFound
	}
	pair.TradesCount++
	pair.TotalPnl += pnlDelta
	return nil
}

func (m *MockPairRepository) ResetStats(id int) error {
	pair, ok := m.pairs[id]
	if !ok {
		return repository.ErrPairNotFound
	}
	pair.TradesCount = 0
	pair.TotalPnl = 0
	return nil
}

func (m *MockPairRepository) Count() (int, error) {
	return len(m.pairs), nil
}

func (m *MockPairRepository) CountActive() (int, error) {
	active, _ := m.GetActive()
	return len(active), nil
}

func (m *MockPairRepository) ExistsByPair(base, quote string) (bool, error) {
	_, err := m.GetByPair(base, quote)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (m *MockPairRepository) Search(query string) ([]*models.PairConfig, error) {
	all, err := m.GetAll()
	if err != nil {
		return nil, err
	}
	query = strings.ToUpper(query)
	var result []*models.PairConfig
	for _, p := range all {
		if strings.Contains(p.Pair.Base, query) || strings.Contains(p.Pair.Quote, query) {
			result = append(result, p)
		}
	}
	return result, nil
}

// ============ Mock BlacklistRepository ============

type MockBlacklistRepository struct {
	entries   map[string]*models.BlacklistEntry
	nextID    int
	createErr error
	getErr    error
	existsErr error
}

func NewMockBlacklistRepository() *MockBlacklistRepository {
	return &MockBlacklistRepository{entries: make(map[string]*models.BlacklistEntry), nextID: 1}
}

func (m *MockBlacklistRepository) Create(entry *models.BlacklistEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	symbol := strings.ToUpper(entry.Symbol)
	if _, exists := m.entries[symbol]; exists {
		return repository.ErrBlacklistEntryExists
	}
	entry.ID = m.nextID
	m.nextID++
	entry.Symbol = symbol
	m.entries[symbol] = entry
	return nil
}

func (m *MockBlacklistRepository) GetAll() ([]*models.BlacklistEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	symbols := make([]string, 0, len(m.entries))
	for s := range m.entries {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	result := make([]*models.BlacklistEntry, 0, len(symbols))
	for _, s := range symbols {
		result = append(result, m.entries[s])
	}
	return result, nil
}

func (m *MockBlacklistRepository) GetBySymbol(symbol string) (*models.BlacklistEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.entries[strings.ToUpper(symbol)]
	if !ok {
		return nil, repository.ErrBlacklistEntryNotFound
	}
	return entry, nil
}

func (m *MockBlacklistRepository) Delete(symbol string) error {
	symbol = strings.ToUpper(symbol)
	if _, ok := m.entries[symbol]; !ok {
		return repository.ErrBlacklistEntryNotFound
	}
	delete(m.entries, symbol)
	return nil
}

func (m *MockBlacklistRepository) Exists(symbol string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.entries[strings.ToUpper(symbol)]
	return ok, nil
}

func (m *MockBlacklistRepository) UpdateReason(symbol, reason string) error {
	entry, ok := m.entries[strings.ToUpper(symbol)]
	if !ok {
		return repository.ErrBlacklistEntryNotFound
	}
	entry.Reason = reason
	return nil
}

func (m *MockBlacklistRepository) Count() (int, error) {
	return len(m.entries), nil
}

func (m *MockBlacklistRepository) DeleteAll() error {
	m.entries = make(map[string]*models.BlacklistEntry)
	return nil
}

// ============ Mock SettingsRepository ============

type MockSettingsRepository struct {
	settings  *models.Settings
	getErr    error
	updateErr error
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{
		settings: &models.Settings{
			ID: 1,
			NotificationPrefs: models.NotificationPreferences{
				Open: true, Tier: true, Close: true,
				Suspend: true, Resume: true, Error: true,
			},
		},
	}
}

func (m *MockSettingsRepository) Get() (*models.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp := *m.settings
	return &cp, nil
}

func (m *MockSettingsRepository) Update(settings *models.Settings) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *settings
	m.settings = &cp
	return nil
}

func (m *MockSettingsRepository) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings.NotificationPrefs = prefs
	return nil
}

func (m *MockSettingsRepository) UpdateMaxOpenPositions(maxPositions *int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings.MaxOpenPositions = maxPositions
	return nil
}

func (m *MockSettingsRepository) UpdateRiskThreshold(threshold *float64) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings.RiskThreshold = threshold
	return nil
}

func (m *MockSettingsRepository) GetNotificationPrefs() (*models.NotificationPreferences, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	prefs := m.settings.NotificationPrefs
	return &prefs, nil
}

func (m *MockSettingsRepository) ResetToDefaults() error {
	m.settings = NewMockSettingsRepository().settings
	return nil
}

// ============ Mock NotificationRepository ============

type MockNotificationRepository struct {
	notifications []*models.Notification
	nextID        int
	createErr     error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{nextID: 1}
}

func (m *MockNotificationRepository) Create(n *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = m.nextID
	m.nextID++
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *MockNotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	result := make([]*models.Notification, 0, limit)
	for i := len(m.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.notifications[i])
	}
	return result, nil
}

func (m *MockNotificationRepository) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	result := make([]*models.Notification, 0, limit)
	for i := len(m.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		if wanted[m.notifications[i].Type] {
			result = append(result, m.notifications[i])
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) GetByPairID(pairID, limit int) ([]*models.Notification, error) {
	result := make([]*models.Notification, 0, limit)
	for i := len(m.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		n := m.notifications[i]
		if n.PairID != nil && *n.PairID == pairID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) Count() (int, error) {
	return len(m.notifications), nil
}

func (m *MockNotificationRepository) DeleteAll() error {
	m.notifications = nil
	return nil
}

func (m *MockNotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	var kept []*models.Notification
	var deleted int64
	for _, n := range m.notifications {
		if n.Timestamp.Before(timestamp) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return deleted, nil
}

// ============ Mock TradeRepository ============

type MockTradeRepository struct {
	trades    []*models.TradeRecord
	nextID    int
	createErr error
}

func NewMockTradeRepository() *MockTradeRepository {
	return &MockTradeRepository{nextID: 1}
}

func (m *MockTradeRepository) Create(trade *models.TradeRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	trade.ID = m.nextID
	m.nextID++
	m.trades = append(m.trades, trade)
	return nil
}

func (m *MockTradeRepository) GetByID(id int) (*models.TradeRecord, error) {
	for _, t := range m.trades {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, repository.ErrTradeNotFound
}

func (m *MockTradeRepository) GetByPositionID(positionID string) (*models.TradeRecord, error) {
	for _, t := range m.trades {
		if t.PositionID == positionID {
			return t, nil
		}
	}
	return nil, repository.ErrTradeNotFound
}

func (m *MockTradeRepository) GetRecent(limit int) ([]*models.TradeRecord, error) {
	result := make([]*models.TradeRecord, 0, limit)
	for i := len(m.trades) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.trades[i])
	}
	return result, nil
}

func (m *MockTradeRepository) GetByPair(base, quote string, limit int) ([]*models.TradeRecord, error) {
	result := make([]*models.TradeRecord, 0, limit)
	for i := len(m.trades) - 1; i >= 0 && len(result) < limit; i-- {
		t := m.trades[i]
		if t.Pair.Base == base && t.Pair.Quote == quote {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTradeRepository) GetByExitReason(reason string, limit int) ([]*models.TradeRecord, error) {
	result := make([]*models.TradeRecord, 0, limit)
	for i := len(m.trades) - 1; i >= 0 && len(result) < limit; i-- {
		if m.trades[i].ExitReason == reason {
			result = append(result, m.trades[i])
		}
	}
	return result, nil
}

func (m *MockTradeRepository) GetClosedInTimeRange(from, to time.Time) ([]*models.TradeRecord, error) {
	var result []*models.TradeRecord
	for _, t := range m.trades {
		if !t.ClosedAt.Before(from) && !t.ClosedAt.After(to) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTradeRepository) Count() (int, error) {
	return len(m.trades), nil
}

func (m *MockTradeRepository) Delete(id int) error {
	for i, t := range m.trades {
		if t.ID == id {
			m.trades = append(m.trades[:i], m.trades[i+1:]...)
			return nil
		}
	}
	return repository.ErrTradeNotFound
}

func (m *MockTradeRepository) DeleteAll() error {
	m.trades = nil
	return nil
}

func (m *MockTradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	var kept []*models.TradeRecord
	var deleted int64
	for _, t := range m.trades {
		if t.ClosedAt.Before(timestamp) {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	m.trades = kept
	return deleted, nil
}

// ============ Mock StatsRepository ============

// MockStatsRepository считает статистику поверх trades мока,
// чтобы после очистки архива агрегаты сразу обнулялись.
type MockStatsRepository struct {
	trades *MockTradeRepository
	getErr error
}

func NewMockStatsRepository(trades *MockTradeRepository) *MockStatsRepository {
	return &MockStatsRepository{trades: trades}
}

func (m *MockStatsRepository) aggregate(records []*models.TradeRecord) *models.Stats {
	stats := &models.Stats{UpdatedAt: time.Now()}
	for _, t := range records {
		stats.TotalTrades++
		stats.TotalPnl += t.RealizedPnl
		if t.RealizedPnl > 0 {
			stats.WinningTrades++
		}
		if stats.TotalTrades == 1 || t.RealizedPnl > stats.BestTradePnl {
			stats.BestTradePnl = t.RealizedPnl
		}
		if stats.TotalTrades == 1 || t.RealizedPnl < stats.WorstTradePnl {
			stats.WorstTradePnl = t.RealizedPnl
		}
	}
	return stats
}

func (m *MockStatsRepository) GetStats() (*models.Stats, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.aggregate(m.trades.trades), nil
}

func (m *MockStatsRepository) GetStatsSince(since time.Time) (*models.Stats, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var filtered []*models.TradeRecord
	for _, t := range m.trades.trades {
		if !t.ClosedAt.Before(since) {
			filtered = append(filtered, t)
		}
	}
	return m.aggregate(filtered), nil
}

func (m *MockStatsRepository) standings() []repository.PairStanding {
	byPair := make(map[models.TradingPair]*repository.PairStanding)
	var order []models.TradingPair
	for _, t := range m.trades.trades {
		standing, ok := byPair[t.Pair]
		if !ok {
			standing = &repository.PairStanding{Pair: t.Pair}
			byPair[t.Pair] = standing
			order = append(order, t.Pair)
		}
		standing.TradesCount++
		standing.TotalPnl += t.RealizedPnl
	}
	result := make([]repository.PairStanding, 0, len(order))
	for _, pair := range order {
		result = append(result, *byPair[pair])
	}
	return result
}

func (m *MockStatsRepository) GetTopPairsByTrades(limit int) ([]repository.PairStanding, error) {
	all := m.standings()
	sort.Slice(all, func(i, j int) bool { return all[i].TradesCount > all[j].TradesCount })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockStatsRepository) GetTopPairsByProfit(limit int) ([]repository.PairStanding, error) {
	var profitable []repository.PairStanding
	for _, s := range m.standings() {
		if s.TotalPnl > 0 {
			profitable = append(profitable, s)
		}
	}
	sort.Slice(profitable, func(i, j int) bool { return profitable[i].TotalPnl > profitable[j].TotalPnl })
	if len(profitable) > limit {
		profitable = profitable[:limit]
	}
	return profitable, nil
}

func (m *MockStatsRepository) GetTopPairsByLoss(limit int) ([]repository.PairStanding, error) {
	var losing []repository.PairStanding
	for _, s := range m.standings() {
		if s.TotalPnl < 0 {
			losing = append(losing, s)
		}
	}
	sort.Slice(losing, func(i, j int) bool { return losing[i].TotalPnl < losing[j].TotalPnl })
	if len(losing) > limit {
		losing = losing[:limit]
	}
	return losing, nil
}

func (m *MockStatsRepository) GetExitReasonBreakdown() (map[string]int, error) {
	breakdown := make(map[string]int)
	for _, t := range m.trades.trades {
		breakdown[t.ExitReason]++
	}
	return breakdown, nil
}

// ============ Mock VenueRepository ============

type MockVenueRepository struct {
	venues    map[string]*models.VenueRecord
	nextID    int
	createErr error
	getErr    error
}

func NewMockVenueRepository() *MockVenueRepository {
	return &MockVenueRepository{venues: make(map[string]*models.VenueRecord), nextID: 1}
}

func (m *MockVenueRepository) Create(venue *models.VenueRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.venues[venue.Name]; exists {
		return repository.ErrVenueExists
	}
	venue.ID = m.nextID
	m.nextID++
	m.venues[venue.Name] = venue
	return nil
}

func (m *MockVenueRepository) GetByName(name string) (*models.VenueRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	venue, ok := m.venues[name]
	if !ok {
		return nil, repository.ErrVenueNotFound
	}
	return venue, nil
}

func (m *MockVenueRepository) GetAll() ([]*models.VenueRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	names := make([]string, 0, len(m.venues))
	for n := range m.venues {
		names = append(names, n)
	}
	sort.Strings(names)
	result := make([]*models.VenueRecord, 0, len(names))
	for _, n := range names {
		result = append(result, m.venues[n])
	}
	return result, nil
}

func (m *MockVenueRepository) GetEnabled() ([]*models.VenueRecord, error) {
	all, err := m.GetAll()
	if err != nil {
		return nil, err
	}
	var result []*models.VenueRecord
	for _, v := range all {
		if v.Enabled {
			result = append(result, v)
		}
	}
	return result, nil
}

func (m *MockVenueRepository) Update(venue *models.VenueRecord) error {
	for _, v := range m.venues {
		if v.ID == venue.ID {
			m.venues[v.Name] = venue
			return nil
		}
	}
	return repository.ErrVenueNotFound
}

func (m *MockVenueRepository) SetEnabled(name string, enabled bool) error {
	venue, ok := m.venues[name]
	if !ok {
		return repository.ErrVenueNotFound
	}
	venue.Enabled = enabled
	return nil
}

func (m *MockVenueRepository) UpdateSecurityScore(name string, score float64) error {
	venue, ok := m.venues[name]
	if !ok {
		return repository.ErrVenueNotFound
	}
	venue.SecurityScore = score
	return nil
}

func (m *MockVenueRepository) Delete(name string) error {
	if _, ok := m.venues[name]; !ok {
		return repository.ErrVenueNotFound
	}
	delete(m.venues, name)
	return nil
}

func (m *MockVenueRepository) Exists(name string) (bool, error) {
	_, ok := m.venues[name]
	return ok, nil
}

func (m *MockVenueRepository) Count() (int, error) {
	return len(m.venues), nil
}

// ============ Mock BotEngine ============

type MockBotEngine struct {
	pairs      map[int]models.PairConfig
	addErr     error
	pauseErr   error
	pauseCalls []int
}

func NewMockBotEngine() *MockBotEngine {
	return &MockBotEngine{pairs: make(map[int]models.PairConfig)}
}

func (m *MockBotEngine) AddPair(pc models.PairConfig) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.pairs[pc.ID] = pc
	return nil
}

func (m *MockBotEngine) RemovePair(pairID int) error {
	delete(m.pairs, pairID)
	return nil
}

func (m *MockBotEngine) PausePair(pairID int) error {
	if m.pauseErr != nil {
		return m.pauseErr
	}
	m.pauseCalls = append(m.pauseCalls, pairID)
	return nil
}

func (m *MockBotEngine) ResumePair(pairID int) error {
	return nil
}

func (m *MockBotEngine) Pairs() []models.PairConfig {
	result := make([]models.PairConfig, 0, len(m.pairs))
	for _, pc := range m.pairs {
		result = append(result, pc)
	}
	return result
}

// ============ Mock PositionTracker ============

type MockPositionTracker struct {
	positions map[string]*models.Position
	closeErr  error
	closed    []string
}

func NewMockPositionTracker() *MockPositionTracker {
	return &MockPositionTracker{positions: make(map[string]*models.Position)}
}

func (m *MockPositionTracker) Get(positionID string) (*models.Position, bool) {
	p, ok := m.positions[positionID]
	return p, ok
}

func (m *MockPositionTracker) Active() []*models.Position {
	ids := make([]string, 0, len(m.positions))
	for id := range m.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := make([]*models.Position, 0, len(ids))
	for _, id := range ids {
		result = append(result, m.positions[id])
	}
	return result
}

func (m *MockPositionTracker) ActiveForPair(pair models.TradingPair) (string, bool) {
	for id, p := range m.positions {
		if p.Pair == pair {
			return id, true
		}
	}
	return "", false
}

func (m *MockPositionTracker) ForceClose(ctx context.Context, positionID string) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	if _, ok := m.positions[positionID]; !ok {
		return ErrPositionNotFound
	}
	delete(m.positions, positionID)
	m.closed = append(m.closed, positionID)
	return nil
}

func (m *MockPositionTracker) Count() int {
	return len(m.positions)
}

// Проверяем соответствие моков интерфейсам
var _ PairRepositoryInterface = (*MockPairRepository)(nil)
var _ BlacklistRepositoryInterface = (*MockBlacklistRepository)(nil)
var _ SettingsRepositoryInterface = (*MockSettingsRepository)(nil)
var _ NotificationRepositoryInterface = (*MockNotificationRepository)(nil)
var _ TradeRepositoryInterface = (*MockTradeRepository)(nil)
var _ StatsRepositoryInterface = (*MockStatsRepository)(nil)
var _ VenueRepositoryInterface = (*MockVenueRepository)(nil)
var _ BotEngine = (*MockBotEngine)(nil)
var _ PositionTracker = (*MockPositionTracker)(nil)
