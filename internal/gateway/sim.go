package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dexarb/internal/models"
)

// Sim - детерминированный симулятор исполнения.
// Исполняет по референсной цене с фиксированным проскальзыванием:
// покупка дороже, продажа дешевле. Никакой случайности - результаты
// прогонов воспроизводимы.
type Sim struct {
	mu           sync.Mutex
	slippagePct  float64 // фиксированное проскальзывание, % (0.1 = 0.1%)
	balanceQuote float64 // остаток quote-валюты
	failNext     error   // если задана, следующий запрос завершается этой ошибкой
	logger       *zap.Logger
	now          func() time.Time
}

// NewSim создает симулятор с начальным балансом quote-валюты
func NewSim(balanceQuote, slippagePct float64, logger *zap.Logger) *Sim {
	return &Sim{
		slippagePct:  slippagePct,
		balanceQuote: balanceQuote,
		logger:       logger,
		now:          time.Now,
	}
}

// Balance возвращает текущий остаток quote-валюты
func (s *Sim) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceQuote
}

// FailNext заставляет следующий запрос завершиться ошибкой.
// Используется в тестах отказов исполнения.
func (s *Sim) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Sim) consumeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Sim) RequestEntry(ctx context.Context, pair models.TradingPair, sizeQuote, refPrice, maxSlippagePct float64) (*models.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.consumeFailure(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	if s.slippagePct > maxSlippagePct {
		return nil, fmt.Errorf("%w: slippage %.2f%% exceeds limit %.2f%%", ErrExecutionFailed, s.slippagePct, maxSlippagePct)
	}
	if refPrice <= 0 {
		return nil, fmt.Errorf("%w: no reference price", ErrExecutionFailed)
	}
	if sizeQuote > s.balanceQuote {
		return nil, fmt.Errorf("%w: insufficient balance %.2f for entry %.2f", ErrExecutionFailed, s.balanceQuote, sizeQuote)
	}

	// Покупка исполняется дороже референсной цены
	executedPrice := refPrice * (1 + s.slippagePct/100)
	executedSize := sizeQuote / executedPrice

	s.balanceQuote -= sizeQuote

	fill := &models.Fill{
		ID:            uuid.NewString(),
		Pair:          pair,
		Side:          models.FillSideBuy,
		ExecutedPrice: executedPrice,
		ExecutedSize:  executedSize,
		Timestamp:     s.now(),
	}

	s.logger.Info("simulated entry fill",
		zap.String("pair", pair.String()),
		zap.Float64("size_quote", sizeQuote),
		zap.Float64("executed_price", executedPrice),
		zap.Float64("executed_size", executedSize))

	return fill, nil
}

func (s *Sim) RequestExit(ctx context.Context, positionID string, pair models.TradingPair, sizeBase, refPrice, maxSlippagePct float64) (*models.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.consumeFailure(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	if s.slippagePct > maxSlippagePct {
		return nil, fmt.Errorf("%w: slippage %.2f%% exceeds limit %.2f%%", ErrExecutionFailed, s.slippagePct, maxSlippagePct)
	}
	if refPrice <= 0 {
		return nil, fmt.Errorf("%w: no reference price", ErrExecutionFailed)
	}
	if sizeBase <= 0 {
		return nil, fmt.Errorf("%w: nothing to sell", ErrExecutionFailed)
	}

	// Продажа исполняется дешевле референсной цены
	executedPrice := refPrice * (1 - s.slippagePct/100)

	s.balanceQuote += executedPrice * sizeBase

	fill := &models.Fill{
		ID:            uuid.NewString(),
		PositionID:    positionID,
		Pair:          pair,
		Side:          models.FillSideSell,
		ExecutedPrice: executedPrice,
		ExecutedSize:  sizeBase,
		Timestamp:     s.now(),
	}

	s.logger.Info("simulated exit fill",
		zap.String("position_id", positionID),
		zap.String("pair", pair.String()),
		zap.Float64("executed_price", executedPrice),
		zap.Float64("executed_size", sizeBase))

	return fill, nil
}
