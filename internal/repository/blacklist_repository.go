package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"dexarb/internal/models"
)

// Ошибки репозитория черного списка
var (
	ErrBlacklistEntryNotFound = errors.New("blacklist entry not found")
	ErrBlacklistEntryExists   = errors.New("token already in blacklist")
)

// BlacklistRepository - работа с таблицей blacklist (токены, исключённые из торговли)
type BlacklistRepository struct {
	db *sql.DB
}

// NewBlacklistRepository создает новый экземпляр репозитория
func NewBlacklistRepository(db *sql.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Create добавляет токен в черный список
func (r *BlacklistRepository) Create(entry *models.BlacklistEntry) error {
	query := `
		INSERT INTO blacklist (symbol, reason, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	entry.CreatedAt = time.Now()

	err := r.db.QueryRow(
		query,
		strings.ToUpper(entry.Symbol), // Приводим к верхнему регистру для консистентности
		entry.Reason,
		entry.CreatedAt,
	).Scan(&entry.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrBlacklistEntryExists
		}
		return err
	}

	return nil
}

// GetAll возвращает весь черный список
func (r *BlacklistRepository) GetAll() ([]*models.BlacklistEntry, error) {
	query := `
		SELECT id, symbol, reason, created_at
		FROM blacklist
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.BlacklistEntry
	for rows.Next() {
		entry := &models.BlacklistEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Symbol,
			&entry.Reason,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetBySymbol возвращает запись по символу токена
func (r *BlacklistRepository) GetBySymbol(symbol string) (*models.BlacklistEntry, error) {
	query := `
		SELECT id, symbol, reason, created_at
		FROM blacklist
		WHERE symbol = $1`

	entry := &models.BlacklistEntry{}
	err := r.db.QueryRow(query, strings.ToUpper(symbol)).Scan(
		&entry.ID,
		&entry.Symbol,
		&entry.Reason,
		&entry.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlacklistEntryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// Delete удаляет токен из черного списка по символу
func (r *BlacklistRepository) Delete(symbol string) error {
	result, err := r.db.Exec(`DELETE FROM blacklist WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return err
	}

	return requireRows(result, ErrBlacklistEntryNotFound)
}

// Exists проверяет наличие токена в черном списке
func (r *BlacklistRepository) Exists(symbol string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM blacklist WHERE symbol = $1)`, strings.ToUpper(symbol)).Scan(&exists)
	return exists, err
}

// UpdateReason обновляет причину добавления в черный список
func (r *BlacklistRepository) UpdateReason(symbol string, reason string) error {
	query := `
		UPDATE blacklist
		SET reason = $1
		WHERE symbol = $2`

	result, err := r.db.Exec(query, reason, strings.ToUpper(symbol))
	if err != nil {
		return err
	}

	return requireRows(result, ErrBlacklistEntryNotFound)
}

// Count возвращает количество записей в черном списке
func (r *BlacklistRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM blacklist`).Scan(&count)
	return count, err
}

// DeleteAll очищает весь черный список
func (r *BlacklistRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM blacklist`)
	return err
}
