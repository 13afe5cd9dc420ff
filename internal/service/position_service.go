package service

import (
	"context"
	"errors"
	"sort"

	"dexarb/internal/models"
)

// Ошибки сервиса позиций
var (
	ErrPositionNotFound   = errors.New("position not found")
	ErrPositionsUnmanaged = errors.New("position tracker is not initialized")
)

// PositionService - доступ к активным позициям движка для API.
//
// Позиции живут в памяти PositionManager'а; сервис только читает их
// снимки и проксирует принудительное закрытие.
type PositionService struct {
	positions PositionTracker
}

// NewPositionService создает новый экземпляр PositionService
func NewPositionService(positions PositionTracker) *PositionService {
	return &PositionService{positions: positions}
}

// GetActivePositions возвращает снимки всех открытых позиций,
// отсортированные по времени открытия (старые сверху)
func (s *PositionService) GetActivePositions() ([]*models.Position, error) {
	if s.positions == nil {
		return nil, ErrPositionsUnmanaged
	}

	active := s.positions.Active()
	sort.Slice(active, func(i, j int) bool {
		return active[i].OpenedAt.Before(active[j].OpenedAt)
	})
	return active, nil
}

// GetPosition возвращает снимок позиции по ID
func (s *PositionService) GetPosition(positionID string) (*models.Position, error) {
	if s.positions == nil {
		return nil, ErrPositionsUnmanaged
	}

	position, ok := s.positions.Get(positionID)
	if !ok {
		return nil, ErrPositionNotFound
	}
	return position, nil
}

// ForceClose принудительно закрывает позицию по текущей цене
func (s *PositionService) ForceClose(ctx context.Context, positionID string) error {
	if s.positions == nil {
		return ErrPositionsUnmanaged
	}

	if err := s.positions.ForceClose(ctx, positionID); err != nil {
		return err
	}
	return nil
}

// GetOpenCount возвращает количество открытых позиций
func (s *PositionService) GetOpenCount() (int, error) {
	if s.positions == nil {
		return 0, ErrPositionsUnmanaged
	}
	return s.positions.Count(), nil
}
