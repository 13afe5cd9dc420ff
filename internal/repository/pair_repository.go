package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"dexarb/internal/models"
)

// Ошибки репозитория пар
var (
	ErrPairNotFound = errors.New("pair not found")
	ErrPairExists   = errors.New("pair already exists")
)

// PairRepository - работа с таблицей pairs
type PairRepository struct {
	db *sql.DB
}

// NewPairRepository создает новый экземпляр репозитория
func NewPairRepository(db *sql.DB) *PairRepository {
	return &PairRepository{db: db}
}

const pairColumns = `id, base, quote, venues, min_spread_pct, liquidity_floor, entry_size_quote, max_slippage_pct, status, trades_count, total_pnl, created_at, updated_at`

// Create создает новую торговую пару
func (r *PairRepository) Create(pair *models.PairConfig) error {
	query := `
		INSERT INTO pairs (base, quote, venues, min_spread_pct, liquidity_floor, entry_size_quote, max_slippage_pct, status, trades_count, total_pnl, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	now := time.Now()
	pair.CreatedAt = now
	pair.UpdatedAt = now

	// Новая пара создаётся на паузе: запуск - осознанное действие
	if pair.Status == "" {
		pair.Status = models.PairStatusPaused
	}

	err := r.db.QueryRow(
		query,
		pair.Pair.Base,
		pair.Pair.Quote,
		pq.Array(pair.Venues),
		pair.MinSpreadPct,
		pair.LiquidityFloor,
		pair.EntrySizeQuote,
		pair.MaxSlippagePct,
		pair.Status,
		pair.TradesCount,
		pair.TotalPnl,
		pair.CreatedAt,
		pair.UpdatedAt,
	).Scan(&pair.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrPairExists
		}
		return err
	}

	return nil
}

func scanPair(row interface{ Scan(...interface{}) error }) (*models.PairConfig, error) {
	pair := &models.PairConfig{}
	err := row.Scan(
		&pair.ID,
		&pair.Pair.Base,
		&pair.Pair.Quote,
		pq.Array(&pair.Venues),
		&pair.MinSpreadPct,
		&pair.LiquidityFloor,
		&pair.EntrySizeQuote,
		&pair.MaxSlippagePct,
		&pair.Status,
		&pair.TradesCount,
		&pair.TotalPnl,
		&pair.CreatedAt,
		&pair.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// GetByID возвращает пару по ID
func (r *PairRepository) GetByID(id int) (*models.PairConfig, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs WHERE id = $1`

	pair, err := scanPair(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPairNotFound
		}
		return nil, err
	}
	return pair, nil
}

// GetByPair возвращает пару по base/quote
func (r *PairRepository) GetByPair(base, quote string) (*models.PairConfig, error) {
	query := `SELECT ` + pairColumns + ` FROM pairs WHERE base = $1 AND quote = $2`

	pair, err := scanPair(r.db.QueryRow(query, base, quote))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPairNotFound
		}
		return nil, err
	}
	return pair, nil
}

func (r *PairRepository) queryPairs(query string, args ...interface{}) ([]*models.PairConfig, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []*models.PairConfig
	for rows.Next() {
		pair, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return pairs, nil
}

// GetAll возвращает все пары
func (r *PairRepository) GetAll() ([]*models.PairConfig, error) {
	return r.queryPairs(`SELECT ` + pairColumns + ` FROM pairs ORDER BY created_at DESC`)
}

// GetByStatus возвращает пары в заданном статусе
func (r *PairRepository) GetByStatus(status string) ([]*models.PairConfig, error) {
	return r.queryPairs(`SELECT `+pairColumns+` FROM pairs WHERE status = $1 ORDER BY created_at DESC`, status)
}

// GetActive возвращает только активные пары
func (r *PairRepository) GetActive() ([]*models.PairConfig, error) {
	return r.GetByStatus(models.PairStatusActive)
}

// Update обновляет параметры пары
func (r *PairRepository) Update(pair *models.PairConfig) error {
	query := `
		UPDATE pairs
		SET venues = $1, min_spread_pct = $2, liquidity_floor = $3, entry_size_quote = $4, max_slippage_pct = $5, status = $6, updated_at = $7
		WHERE id = $8`

	pair.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		query,
		pq.Array(pair.Venues),
		pair.MinSpreadPct,
		pair.LiquidityFloor,
		pair.EntrySizeQuote,
		pair.MaxSlippagePct,
		pair.Status,
		pair.UpdatedAt,
		pair.ID,
	)
	if err != nil {
		return err
	}

	return requireRows(result, ErrPairNotFound)
}

// UpdateStatus обновляет статус пары
func (r *PairRepository) UpdateStatus(id int, status string) error {
	switch status {
	case models.PairStatusPaused, models.PairStatusActive, models.PairStatusSuspended:
	default:
		return errors.New("invalid status: " + status)
	}

	query := `
		UPDATE pairs
		SET status = $1, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, status, time.Now(), id)
	if err != nil {
		return err
	}

	return requireRows(result, ErrPairNotFound)
}

// Delete удаляет пару
func (r *PairRepository) Delete(id int) error {
	result, err := r.db.Exec(`DELETE FROM pairs WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return requireRows(result, ErrPairNotFound)
}

// RecordTrade увеличивает счетчик сделок пары и добавляет PnL сделки
func (r *PairRepository) RecordTrade(id int, pnlDelta float64) error {
	query := `
		UPDATE pairs
		SET trades_count = trades_count + 1, total_pnl = total_pnl + $1, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, pnlDelta, time.Now(), id)
	if err != nil {
		return err
	}

	return requireRows(result, ErrPairNotFound)
}

// ResetStats сбрасывает локальную статистику пары
func (r *PairRepository) ResetStats(id int) error {
	query := `
		UPDATE pairs
		SET trades_count = 0, total_pnl = 0, updated_at = $1
		WHERE id = $2`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return err
	}

	return requireRows(result, ErrPairNotFound)
}

// Count возвращает общее количество пар
func (r *PairRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM pairs`).Scan(&count)
	return count, err
}

// CountActive возвращает количество активных пар
func (r *PairRepository) CountActive() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM pairs WHERE status = $1`, models.PairStatusActive).Scan(&count)
	return count, err
}

// ExistsByPair проверяет существование пары по base/quote
func (r *PairRepository) ExistsByPair(base, quote string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM pairs WHERE base = $1 AND quote = $2)`, base, quote).Scan(&exists)
	return exists, err
}

// Search ищет пары по части base-символа
func (r *PairRepository) Search(searchQuery string) ([]*models.PairConfig, error) {
	pattern := "%" + searchQuery + "%"
	return r.queryPairs(`SELECT `+pairColumns+` FROM pairs WHERE LOWER(base) LIKE LOWER($1) ORDER BY base, quote`, pattern)
}

// requireRows возвращает notFound, если запрос не затронул ни одной строки
func requireRows(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}
