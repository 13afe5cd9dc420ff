package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"dexarb/internal/models"
)

// Ошибки репозитория настроек
var (
	ErrSettingsNotFound = errors.New("settings not found")
)

// SettingsRepository - работа с таблицей settings
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository создает новый экземпляр репозитория
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get возвращает глобальные настройки (всегда id=1, одна запись)
func (r *SettingsRepository) Get() (*models.Settings, error) {
	query := `
		SELECT id, max_open_positions, risk_threshold, notification_prefs, updated_at
		FROM settings
		WHERE id = 1`

	settings := &models.Settings{}
	var prefsJSON []byte
	err := r.db.QueryRow(query).Scan(
		&settings.ID,
		&settings.MaxOpenPositions,
		&settings.RiskThreshold,
		&prefsJSON,
		&settings.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Если записи нет, создаем ее с дефолтными значениями
			return r.createDefault()
		}
		return nil, err
	}

	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &settings.NotificationPrefs); err != nil {
			return nil, err
		}
	} else {
		settings.NotificationPrefs = defaultNotificationPrefs()
	}

	return settings, nil
}

// Update обновляет настройки
func (r *SettingsRepository) Update(settings *models.Settings) error {
	prefsJSON, err := json.Marshal(settings.NotificationPrefs)
	if err != nil {
		return err
	}

	query := `
		UPDATE settings
		SET max_open_positions = $1, risk_threshold = $2, notification_prefs = $3, updated_at = $4
		WHERE id = 1`

	settings.UpdatedAt = time.Now()

	result, err := r.db.Exec(query,
		settings.MaxOpenPositions,
		settings.RiskThreshold,
		prefsJSON,
		settings.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return requireRows(result, ErrSettingsNotFound)
}

// UpdateNotificationPrefs обновляет только настройки уведомлений
func (r *SettingsRepository) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	query := `
		UPDATE settings
		SET notification_prefs = $1, updated_at = $2
		WHERE id = 1`

	result, err := r.db.Exec(query, prefsJSON, time.Now())
	if err != nil {
		return err
	}

	return requireRows(result, ErrSettingsNotFound)
}

// UpdateMaxOpenPositions обновляет лимит одновременных позиций
func (r *SettingsRepository) UpdateMaxOpenPositions(maxPositions *int) error {
	query := `
		UPDATE settings
		SET max_open_positions = $1, updated_at = $2
		WHERE id = 1`

	result, err := r.db.Exec(query, maxPositions, time.Now())
	if err != nil {
		return err
	}

	return requireRows(result, ErrSettingsNotFound)
}

// UpdateRiskThreshold обновляет порог риск-скоринга
func (r *SettingsRepository) UpdateRiskThreshold(threshold *float64) error {
	query := `
		UPDATE settings
		SET risk_threshold = $1, updated_at = $2
		WHERE id = 1`

	result, err := r.db.Exec(query, threshold, time.Now())
	if err != nil {
		return err
	}

	return requireRows(result, ErrSettingsNotFound)
}

// GetNotificationPrefs возвращает только настройки уведомлений
func (r *SettingsRepository) GetNotificationPrefs() (*models.NotificationPreferences, error) {
	var prefsJSON []byte
	err := r.db.QueryRow(`SELECT notification_prefs FROM settings WHERE id = 1`).Scan(&prefsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			prefs := defaultNotificationPrefs()
			return &prefs, nil
		}
		return nil, err
	}

	var prefs models.NotificationPreferences
	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &prefs); err != nil {
			return nil, err
		}
	} else {
		prefs = defaultNotificationPrefs()
	}

	return &prefs, nil
}

// createDefault создает запись настроек с дефолтными значениями
func (r *SettingsRepository) createDefault() (*models.Settings, error) {
	settings := &models.Settings{
		ID:                1,
		NotificationPrefs: defaultNotificationPrefs(),
		UpdatedAt:         time.Now(),
	}

	prefsJSON, err := json.Marshal(settings.NotificationPrefs)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO settings (id, max_open_positions, risk_threshold, notification_prefs, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(query,
		settings.MaxOpenPositions,
		settings.RiskThreshold,
		prefsJSON,
		settings.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return settings, nil
}

// defaultNotificationPrefs возвращает дефолтные настройки уведомлений
func defaultNotificationPrefs() models.NotificationPreferences {
	return models.NotificationPreferences{
		Opportunity: false, // возможностей много, по умолчанию не шумим
		Open:        true,
		Tier:        true,
		Close:       true,
		Suspend:     true,
		Resume:      true,
		Error:       true,
	}
}

// ResetToDefaults сбрасывает настройки к значениям по умолчанию
func (r *SettingsRepository) ResetToDefaults() error {
	settings := &models.Settings{
		ID:                1,
		NotificationPrefs: defaultNotificationPrefs(),
		UpdatedAt:         time.Now(),
	}

	return r.Update(settings)
}
