package service

import (
	"context"
	"time"

	"dexarb/internal/models"
	"dexarb/internal/repository"
)

// PairRepositoryInterface определяет интерфейс репозитория пар
type PairRepositoryInterface interface {
	Create(pair *models.PairConfig) error
	GetByID(id int) (*models.PairConfig, error)
	GetByPair(base, quote string) (*models.PairConfig, error)
	GetAll() ([]*models.PairConfig, error)
	GetByStatus(status string) ([]*models.PairConfig, error)
	GetActive() ([]*models.PairConfig, error)
	Update(pair *models.PairConfig) error
	UpdateStatus(id int, status string) error
	Delete(id int) error
	RecordTrade(id int, pnlDelta float64) error
	ResetStats(id int) error
	Count() (int, error)
	CountActive() (int, error)
	ExistsByPair(base, quote string) (bool, error)
	Search(query string) ([]*models.PairConfig, error)
}

// TradeRepositoryInterface определяет интерфейс архива сделок
type TradeRepositoryInterface interface {
	Create(trade *models.TradeRecord) error
	GetByID(id int) (*models.TradeRecord, error)
	GetByPositionID(positionID string) (*models.TradeRecord, error)
	GetRecent(limit int) ([]*models.TradeRecord, error)
	GetByPair(base, quote string, limit int) ([]*models.TradeRecord, error)
	GetByExitReason(reason string, limit int) ([]*models.TradeRecord, error)
	GetClosedInTimeRange(from, to time.Time) ([]*models.TradeRecord, error)
	Count() (int, error)
	Delete(id int) error
	DeleteAll() error
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// StatsRepositoryInterface определяет интерфейс репозитория статистики
type StatsRepositoryInterface interface {
	GetStats() (*models.Stats, error)
	GetStatsSince(since time.Time) (*models.Stats, error)
	GetTopPairsByTrades(limit int) ([]repository.PairStanding, error)
	GetTopPairsByProfit(limit int) ([]repository.PairStanding, error)
	GetTopPairsByLoss(limit int) ([]repository.PairStanding, error)
	GetExitReasonBreakdown() (map[string]int, error)
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(n *models.Notification) error
	GetRecent(limit int) ([]*models.Notification, error)
	GetByTypes(types []string, limit int) ([]*models.Notification, error)
	GetByPairID(pairID, limit int) ([]*models.Notification, error)
	Count() (int, error)
	DeleteAll() error
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// BlacklistRepositoryInterface определяет интерфейс репозитория черного списка
type BlacklistRepositoryInterface interface {
	Create(entry *models.BlacklistEntry) error
	GetAll() ([]*models.BlacklistEntry, error)
	GetBySymbol(symbol string) (*models.BlacklistEntry, error)
	Delete(symbol string) error
	Exists(symbol string) (bool, error)
	UpdateReason(symbol, reason string) error
	Count() (int, error)
	DeleteAll() error
}

// SettingsRepositoryInterface определяет интерфейс репозитория настроек
type SettingsRepositoryInterface interface {
	Get() (*models.Settings, error)
	Update(settings *models.Settings) error
	UpdateNotificationPrefs(prefs models.NotificationPreferences) error
	UpdateMaxOpenPositions(maxPositions *int) error
	UpdateRiskThreshold(threshold *float64) error
	GetNotificationPrefs() (*models.NotificationPreferences, error)
	ResetToDefaults() error
}

// VenueRepositoryInterface определяет интерфейс реестра venue'ов
type VenueRepositoryInterface interface {
	Create(venue *models.VenueRecord) error
	GetByName(name string) (*models.VenueRecord, error)
	GetAll() ([]*models.VenueRecord, error)
	GetEnabled() ([]*models.VenueRecord, error)
	Update(venue *models.VenueRecord) error
	SetEnabled(name string, enabled bool) error
	UpdateSecurityScore(name string, score float64) error
	Delete(name string) error
	Exists(name string) (bool, error)
	Count() (int, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ PairRepositoryInterface = (*repository.PairRepository)(nil)
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
var _ StatsRepositoryInterface = (*repository.StatsRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)
var _ BlacklistRepositoryInterface = (*repository.BlacklistRepository)(nil)
var _ SettingsRepositoryInterface = (*repository.SettingsRepository)(nil)
var _ VenueRepositoryInterface = (*repository.VenueRepository)(nil)

// BotEngine определяет интерфейс торгового движка для управления парами.
// Реализуется bot.Engine; интерфейс нужен для тестов и развязки пакетов.
type BotEngine interface {
	AddPair(pc models.PairConfig) error
	RemovePair(pairID int) error
	PausePair(pairID int) error
	ResumePair(pairID int) error
	Pairs() []models.PairConfig
}

// PositionTracker определяет интерфейс доступа к активным позициям.
// Реализуется bot.PositionManager.
type PositionTracker interface {
	Get(positionID string) (*models.Position, bool)
	Active() []*models.Position
	ActiveForPair(pair models.TradingPair) (string, bool)
	ForceClose(ctx context.Context, positionID string) error
	Count() int
}
