package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"dexarb/internal/models"
	"dexarb/internal/repository"
)

// Ошибки сервиса пар
var (
	ErrPairNotFound        = errors.New("pair not found")
	ErrPairAlreadyExists   = errors.New("pair already exists")
	ErrInvalidMinSpread    = errors.New("min spread must be greater than 0")
	ErrInvalidLiquidity    = errors.New("liquidity floor must be non-negative")
	ErrInvalidEntrySize    = errors.New("entry size must be greater than 0")
	ErrInvalidSlippage     = errors.New("max slippage must be non-negative")
	ErrNotEnoughVenues     = errors.New("pair requires at least 2 venues")
	ErrVenueNotRegistered  = errors.New("venue is not registered or disabled")
	ErrTokenBlacklisted    = errors.New("base token is blacklisted")
	ErrPairHasOpenPosition = errors.New("pair has an open position")
	ErrPairNotPaused       = errors.New("pair must be paused to delete")
	ErrPairAlreadyActive   = errors.New("pair is already active")
	ErrPairAlreadyPaused   = errors.New("pair is already paused")
	ErrMaxPairsReached     = errors.New("maximum number of pairs reached")
)

// MaxPairs - максимальное количество отслеживаемых пар
const MaxPairs = 50

// PairService - бизнес-логика управления торговыми парами.
//
// Держит БД и движок согласованными: каждая операция сперва меняет
// хранилище, затем синхронизирует конфигурацию движка.
type PairService struct {
	pairRepo      PairRepositoryInterface
	blacklistRepo BlacklistRepositoryInterface
	venueSvc      *VenueService

	// Движок и трекер позиций (могут быть nil до инициализации)
	engine    BotEngine
	positions PositionTracker

	// Отложенные изменения параметров: применяются после закрытия позиции
	pendingChanges map[int]*PendingConfig
	pendingMu      sync.RWMutex
}

// PendingConfig хранит отложенные изменения параметров пары
type PendingConfig struct {
	MinSpreadPct   float64   `json:"min_spread_pct"`
	LiquidityFloor float64   `json:"liquidity_floor"`
	EntrySizeQuote float64   `json:"entry_size_quote"`
	MaxSlippagePct float64   `json:"max_slippage_pct"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewPairService создает новый экземпляр сервиса пар
func NewPairService(
	pairRepo PairRepositoryInterface,
	blacklistRepo BlacklistRepositoryInterface,
	venueSvc *VenueService,
) *PairService {
	return &PairService{
		pairRepo:       pairRepo,
		blacklistRepo:  blacklistRepo,
		venueSvc:       venueSvc,
		pendingChanges: make(map[int]*PendingConfig),
	}
}

// SetEngine устанавливает торговый движок.
// Вызывается после инициализации Engine.
func (s *PairService) SetEngine(engine BotEngine, positions PositionTracker) {
	s.engine = engine
	s.positions = positions
}

// CreatePair создает новую торговую пару.
//
// Порядок проверок:
// 1. Валидация параметров
// 2. Лимит количества пар
// 3. Черный список base-токена
// 4. Уникальность пары
// 5. Доступность venue'ов
// 6. Сохранение в БД и регистрация в движке
func (s *PairService) CreatePair(ctx context.Context, cfg *models.PairConfig) error {
	cfg.Pair.Base = strings.ToUpper(strings.TrimSpace(cfg.Pair.Base))
	cfg.Pair.Quote = strings.ToUpper(strings.TrimSpace(cfg.Pair.Quote))

	if err := s.validatePairParams(cfg); err != nil {
		return err
	}

	count, err := s.pairRepo.Count()
	if err != nil {
		return err
	}
	if count >= MaxPairs {
		return ErrMaxPairsReached
	}

	blacklisted, err := s.blacklistRepo.Exists(cfg.Pair.Base)
	if err != nil {
		return err
	}
	if blacklisted {
		return ErrTokenBlacklisted
	}

	exists, err := s.pairRepo.ExistsByPair(cfg.Pair.Base, cfg.Pair.Quote)
	if err != nil {
		return err
	}
	if exists {
		return ErrPairAlreadyExists
	}

	if err := s.checkVenues(cfg.Venues); err != nil {
		return err
	}

	// Новая пара всегда на паузе, торговля включается явно
	cfg.Status = models.PairStatusPaused

	if err := s.pairRepo.Create(cfg); err != nil {
		if errors.Is(err, repository.ErrPairExists) {
			return ErrPairAlreadyExists
		}
		return err
	}

	if s.engine != nil {
		return s.engine.AddPair(*cfg)
	}
	return nil
}

// UpdatePairParams содержит параметры для частичного обновления пары
type UpdatePairParams struct {
	MinSpreadPct   *float64 `json:"min_spread_pct,omitempty"`
	LiquidityFloor *float64 `json:"liquidity_floor,omitempty"`
	EntrySizeQuote *float64 `json:"entry_size_quote,omitempty"`
	MaxSlippagePct *float64 `json:"max_slippage_pct,omitempty"`
}

// UpdatePair обновляет параметры торговой пары.
//
// Если у пары есть открытая позиция, изменения откладываются и
// применяются после её закрытия (через ApplyPendingConfig).
func (s *PairService) UpdatePair(ctx context.Context, id int, params UpdatePairParams) (*models.PairConfig, error) {
	pair, err := s.getPair(id)
	if err != nil {
		return nil, err
	}

	updated := *pair
	if params.MinSpreadPct != nil {
		updated.MinSpreadPct = *params.MinSpreadPct
	}
	if params.LiquidityFloor != nil {
		updated.LiquidityFloor = *params.LiquidityFloor
	}
	if params.EntrySizeQuote != nil {
		updated.EntrySizeQuote = *params.EntrySizeQuote
	}
	if params.MaxSlippagePct != nil {
		updated.MaxSlippagePct = *params.MaxSlippagePct
	}

	if err := s.validatePairParams(&updated); err != nil {
		return nil, err
	}

	if s.hasOpenPosition(pair.Pair) {
		s.setPendingConfig(id, &PendingConfig{
			MinSpreadPct:   updated.MinSpreadPct,
			LiquidityFloor: updated.LiquidityFloor,
			EntrySizeQuote: updated.EntrySizeQuote,
			MaxSlippagePct: updated.MaxSlippagePct,
			CreatedAt:      time.Now(),
		})
		// Возвращаем текущую конфигурацию, изменения отложены
		return pair, nil
	}

	if err := s.pairRepo.Update(&updated); err != nil {
		return nil, err
	}
	s.syncEngine(&updated)
	return &updated, nil
}

// DeletePair удаляет торговую пару.
// Пара должна быть на паузе и без открытой позиции.
func (s *PairService) DeletePair(ctx context.Context, id int) error {
	pair, err := s.getPair(id)
	if err != nil {
		return err
	}

	if pair.Status != models.PairStatusPaused {
		return ErrPairNotPaused
	}
	if s.hasOpenPosition(pair.Pair) {
		return ErrPairHasOpenPosition
	}

	if s.engine != nil {
		// Пара могла не попасть в движок, ошибку игнорируем
		_ = s.engine.RemovePair(id)
	}
	s.clearPendingConfig(id)

	return s.pairRepo.Delete(id)
}

// StartPair включает торговлю по паре
func (s *PairService) StartPair(ctx context.Context, id int) error {
	pair, err := s.getPair(id)
	if err != nil {
		return err
	}
	if pair.Status == models.PairStatusActive {
		return ErrPairAlreadyActive
	}

	if err := s.checkVenues(pair.Venues); err != nil {
		return err
	}

	if err := s.pairRepo.UpdateStatus(id, models.PairStatusActive); err != nil {
		return err
	}

	if s.engine != nil {
		return s.engine.ResumePair(id)
	}
	return nil
}

// PausePair приостанавливает торговлю по паре.
//
// forceClose: при открытой позиции требуется явное подтверждение
// принудительного закрытия, иначе возвращается ErrPairHasOpenPosition.
func (s *PairService) PausePair(ctx context.Context, id int, forceClose bool) error {
	pair, err := s.getPair(id)
	if err != nil {
		return err
	}
	if pair.Status == models.PairStatusPaused {
		return ErrPairAlreadyPaused
	}

	if positionID, open := s.activePosition(pair.Pair); open {
		if !forceClose {
			return ErrPairHasOpenPosition
		}
		if s.positions != nil {
			if err := s.positions.ForceClose(ctx, positionID); err != nil {
				return err
			}
		}
	}

	if s.engine != nil {
		if err := s.engine.PausePair(id); err != nil {
			return err
		}
	}

	return s.pairRepo.UpdateStatus(id, models.PairStatusPaused)
}

// GetPair возвращает пару по ID
func (s *PairService) GetPair(ctx context.Context, id int) (*models.PairConfig, error) {
	return s.getPair(id)
}

// GetAllPairs возвращает все пары
func (s *PairService) GetAllPairs(ctx context.Context) ([]*models.PairConfig, error) {
	pairs, err := s.pairRepo.GetAll()
	if err != nil {
		return nil, err
	}
	if pairs == nil {
		pairs = []*models.PairConfig{}
	}
	return pairs, nil
}

// GetActivePairs возвращает только активные пары
func (s *PairService) GetActivePairs(ctx context.Context) ([]*models.PairConfig, error) {
	return s.pairRepo.GetActive()
}

// SearchPairs ищет пары по символу base или quote
func (s *PairService) SearchPairs(ctx context.Context, query string) ([]*models.PairConfig, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.GetAllPairs(ctx)
	}
	return s.pairRepo.Search(query)
}

// GetPairsCount возвращает количество пар
func (s *PairService) GetPairsCount(ctx context.Context) (int, error) {
	return s.pairRepo.Count()
}

// GetActivePairsCount возвращает количество активных пар
func (s *PairService) GetActivePairsCount(ctx context.Context) (int, error) {
	return s.pairRepo.CountActive()
}

// RecordTradeCompletion записывает закрытую сделку в локальную статистику
// пары и применяет отложенные изменения конфигурации, если они есть.
func (s *PairService) RecordTradeCompletion(ctx context.Context, id int, pnl float64) error {
	if err := s.pairRepo.RecordTrade(id, pnl); err != nil {
		return err
	}
	return s.ApplyPendingConfig(ctx, id)
}

// ResetPairStats сбрасывает локальную статистику пары
func (s *PairService) ResetPairStats(ctx context.Context, id int) error {
	return s.pairRepo.ResetStats(id)
}

// GetPendingConfig возвращает отложенные изменения для пары
func (s *PairService) GetPendingConfig(id int) *PendingConfig {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()
	return s.pendingChanges[id]
}

// HasPendingConfig проверяет наличие отложенных изменений
func (s *PairService) HasPendingConfig(id int) bool {
	s.pendingMu.RLock()
	defer s.pendingMu.RUnlock()
	_, exists := s.pendingChanges[id]
	return exists
}

// ApplyPendingConfig применяет отложенные изменения.
// Вызывается после закрытия позиции пары.
func (s *PairService) ApplyPendingConfig(ctx context.Context, id int) error {
	s.pendingMu.Lock()
	pending, exists := s.pendingChanges[id]
	if !exists {
		s.pendingMu.Unlock()
		return nil
	}
	delete(s.pendingChanges, id)
	s.pendingMu.Unlock()

	pair, err := s.getPair(id)
	if err != nil {
		return err
	}
	pair.MinSpreadPct = pending.MinSpreadPct
	pair.LiquidityFloor = pending.LiquidityFloor
	pair.EntrySizeQuote = pending.EntrySizeQuote
	pair.MaxSlippagePct = pending.MaxSlippagePct

	if err := s.pairRepo.Update(pair); err != nil {
		return err
	}
	s.syncEngine(pair)
	return nil
}

// ============ Вспомогательные методы ============

func (s *PairService) getPair(id int) (*models.PairConfig, error) {
	pair, err := s.pairRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrPairNotFound) {
			return nil, ErrPairNotFound
		}
		return nil, err
	}
	return pair, nil
}

// validatePairParams выполняет валидацию параметров пары
func (s *PairService) validatePairParams(cfg *models.PairConfig) error {
	if err := cfg.Pair.Validate(); err != nil {
		return err
	}
	if len(cfg.Venues) < 2 {
		return ErrNotEnoughVenues
	}
	if cfg.MinSpreadPct <= 0 {
		return ErrInvalidMinSpread
	}
	if cfg.LiquidityFloor < 0 {
		return ErrInvalidLiquidity
	}
	if cfg.EntrySizeQuote <= 0 {
		return ErrInvalidEntrySize
	}
	if cfg.MaxSlippagePct < 0 {
		return ErrInvalidSlippage
	}
	return nil
}

// checkVenues проверяет, что все venue'ы пары зарегистрированы и включены
func (s *PairService) checkVenues(venues []string) error {
	if s.venueSvc == nil {
		return nil
	}
	enabled, err := s.venueSvc.EnabledNames()
	if err != nil {
		return err
	}
	for _, name := range venues {
		if !enabled[strings.ToLower(name)] {
			return ErrVenueNotRegistered
		}
	}
	return nil
}

func (s *PairService) hasOpenPosition(pair models.TradingPair) bool {
	_, open := s.activePosition(pair)
	return open
}

func (s *PairService) activePosition(pair models.TradingPair) (string, bool) {
	if s.positions == nil {
		return "", false
	}
	return s.positions.ActiveForPair(pair)
}

// syncEngine перерегистрирует пару в движке с новой конфигурацией
func (s *PairService) syncEngine(cfg *models.PairConfig) {
	if s.engine == nil {
		return
	}
	_ = s.engine.RemovePair(cfg.ID)
	_ = s.engine.AddPair(*cfg)
}

func (s *PairService) setPendingConfig(id int, cfg *PendingConfig) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pendingChanges[id] = cfg
}

func (s *PairService) clearPendingConfig(id int) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	delete(s.pendingChanges, id)
}
