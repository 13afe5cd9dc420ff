package service

import (
	"time"

	"dexarb/internal/models"
	"dexarb/internal/repository"
)

// StatsBroadcaster - интерфейс для отправки обновлений статистики в WebSocket
type StatsBroadcaster interface {
	BroadcastStatsUpdate(stats *models.Stats)
}

// StatsService - бизнес-логика торговой статистики.
//
// Статистика целиком считается по архиву сделок (таблица trades),
// отдельных счетчиков нет: сброс статистики - это очистка архива.
type StatsService struct {
	statsRepo StatsRepositoryInterface
	tradeRepo TradeRepositoryInterface
	wsHub     StatsBroadcaster
}

// NewStatsService создает новый экземпляр StatsService
func NewStatsService(statsRepo StatsRepositoryInterface, tradeRepo TradeRepositoryInterface) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		tradeRepo: tradeRepo,
	}
}

// SetWebSocketHub устанавливает hub для рассылки обновлений статистики
func (s *StatsService) SetWebSocketHub(hub StatsBroadcaster) {
	s.wsHub = hub
}

// GetStats возвращает агрегированную статистику за все время
func (s *StatsService) GetStats() (*models.Stats, error) {
	return s.statsRepo.GetStats()
}

// GetStatsSince возвращает статистику за период с указанной даты
func (s *StatsService) GetStatsSince(since time.Time) (*models.Stats, error) {
	return s.statsRepo.GetStatsSince(since)
}

// GetTopPairs возвращает топ пар по указанной метрике.
//
// Метрики:
// - "trades": по количеству сделок
// - "profit": по суммарной прибыли (только положительный PnL)
// - "loss": по суммарным убыткам (только отрицательный PnL)
func (s *StatsService) GetTopPairs(metric string, limit int) ([]repository.PairStanding, error) {
	if limit <= 0 {
		limit = 5
	}

	switch metric {
	case "profit":
		return s.statsRepo.GetTopPairsByProfit(limit)
	case "loss":
		return s.statsRepo.GetTopPairsByLoss(limit)
	default:
		return s.statsRepo.GetTopPairsByTrades(limit)
	}
}

// GetExitReasonBreakdown возвращает распределение сделок по причинам выхода
func (s *StatsService) GetExitReasonBreakdown() (map[string]int, error) {
	return s.statsRepo.GetExitReasonBreakdown()
}

// GetRecentTrades возвращает последние закрытые сделки
func (s *StatsService) GetRecentTrades(limit int) ([]*models.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.tradeRepo.GetRecent(limit)
}

// GetTradesByPair возвращает историю сделок пары
func (s *StatsService) GetTradesByPair(base, quote string, limit int) ([]*models.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.tradeRepo.GetByPair(base, quote, limit)
}

// GetTradesInRange возвращает сделки, закрытые в указанном интервале
func (s *StatsService) GetTradesInRange(from, to time.Time) ([]*models.TradeRecord, error) {
	return s.tradeRepo.GetClosedInTimeRange(from, to)
}

// GetTotalTradesCount возвращает общее количество сделок в архиве
func (s *StatsService) GetTotalTradesCount() (int, error) {
	return s.tradeRepo.Count()
}

// ArchiveTrade записывает закрытую сделку в архив.
// После записи рассылается обновленная статистика.
func (s *StatsService) ArchiveTrade(record *models.TradeRecord) error {
	if err := s.tradeRepo.Create(record); err != nil {
		return err
	}

	if s.wsHub != nil {
		stats, err := s.statsRepo.GetStats()
		if err == nil && stats != nil {
			s.wsHub.BroadcastStatsUpdate(stats)
		}
	}
	return nil
}

// ResetStats очищает архив сделок. Действие необратимо.
// После сброса рассылается обнуленная статистика.
func (s *StatsService) ResetStats() error {
	if err := s.tradeRepo.DeleteAll(); err != nil {
		return err
	}

	if s.wsHub != nil {
		stats, err := s.statsRepo.GetStats()
		if err == nil && stats != nil {
			s.wsHub.BroadcastStatsUpdate(stats)
		}
	}
	return nil
}

// CleanupOldTrades удаляет сделки, закрытые раньше указанной даты.
// Возвращает количество удаленных записей.
func (s *StatsService) CleanupOldTrades(olderThan time.Time) (int64, error) {
	return s.tradeRepo.DeleteOlderThan(olderThan)
}
