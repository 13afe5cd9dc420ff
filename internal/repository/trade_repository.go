package repository

import (
	"database/sql"
	"errors"
	"time"

	"dexarb/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository - работа с таблицей trades (архив закрытых позиций)
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

const tradeColumns = `id, position_id, base, quote, venue, entry_price, size_quote, realized_pnl, tiers_fired, exit_reason, risk_score_total, opened_at, closed_at`

// Create архивирует закрытую позицию
func (r *TradeRepository) Create(trade *models.TradeRecord) error {
	query := `
		INSERT INTO trades (position_id, base, quote, venue, entry_price, size_quote, realized_pnl, tiers_fired, exit_reason, risk_score_total, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	return r.db.QueryRow(
		query,
		trade.PositionID,
		trade.Pair.Base,
		trade.Pair.Quote,
		trade.Venue,
		trade.EntryPrice,
		trade.SizeQuote,
		trade.RealizedPnl,
		trade.TiersFired,
		trade.ExitReason,
		trade.RiskScoreTotal,
		trade.OpenedAt,
		trade.ClosedAt,
	).Scan(&trade.ID)
}

func scanTrade(row interface{ Scan(...interface{}) error }) (*models.TradeRecord, error) {
	trade := &models.TradeRecord{}
	err := row.Scan(
		&trade.ID,
		&trade.PositionID,
		&trade.Pair.Base,
		&trade.Pair.Quote,
		&trade.Venue,
		&trade.EntryPrice,
		&trade.SizeQuote,
		&trade.RealizedPnl,
		&trade.TiersFired,
		&trade.ExitReason,
		&trade.RiskScoreTotal,
		&trade.OpenedAt,
		&trade.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return trade, nil
}

func (r *TradeRepository) queryTrades(query string, args ...interface{}) ([]*models.TradeRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetByID возвращает сделку по ID
func (r *TradeRepository) GetByID(id int) (*models.TradeRecord, error) {
	trade, err := scanTrade(r.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return trade, nil
}

// GetByPositionID возвращает сделку по id позиции
func (r *TradeRepository) GetByPositionID(positionID string) (*models.TradeRecord, error) {
	trade, err := scanTrade(r.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE position_id = $1`, positionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return trade, nil
}

// GetRecent возвращает последние N сделок
func (r *TradeRepository) GetRecent(limit int) ([]*models.TradeRecord, error) {
	return r.queryTrades(`SELECT `+tradeColumns+` FROM trades ORDER BY closed_at DESC LIMIT $1`, limit)
}

// GetByPair возвращает сделки пары
func (r *TradeRepository) GetByPair(base, quote string, limit int) ([]*models.TradeRecord, error) {
	return r.queryTrades(
		`SELECT `+tradeColumns+` FROM trades WHERE base = $1 AND quote = $2 ORDER BY closed_at DESC LIMIT $3`,
		base, quote, limit)
}

// GetByExitReason возвращает сделки с указанной причиной выхода
func (r *TradeRepository) GetByExitReason(reason string, limit int) ([]*models.TradeRecord, error) {
	return r.queryTrades(
		`SELECT `+tradeColumns+` FROM trades WHERE exit_reason = $1 ORDER BY closed_at DESC LIMIT $2`,
		reason, limit)
}

// GetClosedInTimeRange возвращает сделки, закрытые в интервале [from, to]
func (r *TradeRepository) GetClosedInTimeRange(from, to time.Time) ([]*models.TradeRecord, error) {
	return r.queryTrades(
		`SELECT `+tradeColumns+` FROM trades WHERE closed_at >= $1 AND closed_at <= $2 ORDER BY closed_at DESC`,
		from, to)
}

// Count возвращает общее количество сделок
func (r *TradeRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count)
	return count, err
}

// Delete удаляет сделку из архива
func (r *TradeRepository) Delete(id int) error {
	result, err := r.db.Exec(`DELETE FROM trades WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return requireRows(result, ErrTradeNotFound)
}

// DeleteAll очищает архив сделок
func (r *TradeRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM trades`)
	return err
}

// DeleteOlderThan удаляет сделки, закрытые раньше указанной даты
func (r *TradeRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trades WHERE closed_at < $1`, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
