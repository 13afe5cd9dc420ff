package service

import (
	"errors"

	"dexarb/internal/models"
)

// Ошибки сервиса настроек
var (
	ErrInvalidMaxOpenPositions = errors.New("max_open_positions must be >= 1 or null")
	ErrInvalidRiskThreshold    = errors.New("risk_threshold must be in [0, 100] or null")
)

// SettingsService - бизнес-логика глобальных настроек.
//
// Настройки перекрывают значения из конфигурации: null означает
// "использовать значение из конфига".
type SettingsService struct {
	settingsRepo SettingsRepositoryInterface
}

// NewSettingsService создает новый экземпляр SettingsService
func NewSettingsService(settingsRepo SettingsRepositoryInterface) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// GetSettings возвращает текущие глобальные настройки.
// Если записи в БД нет, создается запись с дефолтными значениями.
func (s *SettingsService) GetSettings() (*models.Settings, error) {
	return s.settingsRepo.Get()
}

// UpdateSettingsRequest представляет запрос на обновление настроек.
// Все поля опциональны, обновляются только переданные.
type UpdateSettingsRequest struct {
	MaxOpenPositions  *int                             `json:"max_open_positions,omitempty"`
	RiskThreshold     *float64                         `json:"risk_threshold,omitempty"`
	NotificationPrefs *models.NotificationPreferences  `json:"notification_prefs,omitempty"`
	// Флаги явного сброса в null
	ClearMaxOpenPositions bool `json:"clear_max_open_positions,omitempty"`
	ClearRiskThreshold    bool `json:"clear_risk_threshold,omitempty"`
}

// UpdateSettings обновляет глобальные настройки.
//
// Правила валидации:
// - max_open_positions: >= 1 или null (без ограничения)
// - risk_threshold: [0, 100] или null (из конфигурации)
func (s *SettingsService) UpdateSettings(req *UpdateSettingsRequest) (*models.Settings, error) {
	settings, err := s.settingsRepo.Get()
	if err != nil {
		return nil, err
	}

	if req.ClearMaxOpenPositions {
		settings.MaxOpenPositions = nil
	} else if req.MaxOpenPositions != nil {
		if *req.MaxOpenPositions < 1 {
			return nil, ErrInvalidMaxOpenPositions
		}
		settings.MaxOpenPositions = req.MaxOpenPositions
	}

	if req.ClearRiskThreshold {
		settings.RiskThreshold = nil
	} else if req.RiskThreshold != nil {
		if *req.RiskThreshold < 0 || *req.RiskThreshold > 100 {
			return nil, ErrInvalidRiskThreshold
		}
		settings.RiskThreshold = req.RiskThreshold
	}

	if req.NotificationPrefs != nil {
		settings.NotificationPrefs = *req.NotificationPrefs
	}

	if err := s.settingsRepo.Update(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateNotificationPrefs обновляет только настройки уведомлений
func (s *SettingsService) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	return s.settingsRepo.UpdateNotificationPrefs(prefs)
}

// UpdateMaxOpenPositions обновляет лимит одновременных позиций.
// Передайте nil для снятия ограничения.
func (s *SettingsService) UpdateMaxOpenPositions(maxPositions *int) error {
	if maxPositions != nil && *maxPositions < 1 {
		return ErrInvalidMaxOpenPositions
	}
	return s.settingsRepo.UpdateMaxOpenPositions(maxPositions)
}

// UpdateRiskThreshold обновляет порог риск-скоринга.
// Передайте nil, чтобы вернуться к значению из конфигурации.
func (s *SettingsService) UpdateRiskThreshold(threshold *float64) error {
	if threshold != nil && (*threshold < 0 || *threshold > 100) {
		return ErrInvalidRiskThreshold
	}
	return s.settingsRepo.UpdateRiskThreshold(threshold)
}

// GetNotificationPrefs возвращает только настройки уведомлений
func (s *SettingsService) GetNotificationPrefs() (*models.NotificationPreferences, error) {
	return s.settingsRepo.GetNotificationPrefs()
}

// ResetToDefaults сбрасывает все настройки к значениям по умолчанию
func (s *SettingsService) ResetToDefaults() error {
	return s.settingsRepo.ResetToDefaults()
}
