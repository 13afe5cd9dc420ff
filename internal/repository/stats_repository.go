package repository

import (
	"database/sql"
	"time"

	"dexarb/internal/models"
)

// StatsRepository - агрегация торговой статистики из таблицы trades
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository создает новый экземпляр репозитория
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats возвращает агрегаты по всему архиву сделок
func (r *StatsRepository) GetStats() (*models.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE realized_pnl > 0),
			COALESCE(SUM(realized_pnl), 0),
			COALESCE(MAX(realized_pnl), 0),
			COALESCE(MIN(realized_pnl), 0)
		FROM trades`

	stats := &models.Stats{UpdatedAt: time.Now()}
	err := r.db.QueryRow(query).Scan(
		&stats.TotalTrades,
		&stats.WinningTrades,
		&stats.TotalPnl,
		&stats.BestTradePnl,
		&stats.WorstTradePnl,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// GetStatsSince возвращает агрегаты по сделкам, закрытым после указанного момента
func (r *StatsRepository) GetStatsSince(since time.Time) (*models.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE realized_pnl > 0),
			COALESCE(SUM(realized_pnl), 0),
			COALESCE(MAX(realized_pnl), 0),
			COALESCE(MIN(realized_pnl), 0)
		FROM trades
		WHERE closed_at >= $1`

	stats := &models.Stats{UpdatedAt: time.Now()}
	err := r.db.QueryRow(query, since).Scan(
		&stats.TotalTrades,
		&stats.WinningTrades,
		&stats.TotalPnl,
		&stats.BestTradePnl,
		&stats.WorstTradePnl,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// PairStanding - строка рейтинга пар
type PairStanding struct {
	Pair        models.TradingPair `json:"pair"`
	TradesCount int                `json:"trades_count"`
	TotalPnl    float64            `json:"total_pnl"`
}

func (r *StatsRepository) queryStandings(query string, args ...interface{}) ([]PairStanding, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []PairStanding
	for rows.Next() {
		var s PairStanding
		if err := rows.Scan(&s.Pair.Base, &s.Pair.Quote, &s.TradesCount, &s.TotalPnl); err != nil {
			return nil, err
		}
		standings = append(standings, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return standings, nil
}

// GetTopPairsByTrades возвращает пары с наибольшим числом сделок
func (r *StatsRepository) GetTopPairsByTrades(limit int) ([]PairStanding, error) {
	query := `
		SELECT base, quote, COUNT(*), COALESCE(SUM(realized_pnl), 0)
		FROM trades
		GROUP BY base, quote
		ORDER BY COUNT(*) DESC
		LIMIT $1`

	return r.queryStandings(query, limit)
}

// GetTopPairsByProfit возвращает самые прибыльные пары
func (r *StatsRepository) GetTopPairsByProfit(limit int) ([]PairStanding, error) {
	query := `
		SELECT base, quote, COUNT(*), COALESCE(SUM(realized_pnl), 0)
		FROM trades
		GROUP BY base, quote
		HAVING SUM(realized_pnl) > 0
		ORDER BY SUM(realized_pnl) DESC
		LIMIT $1`

	return r.queryStandings(query, limit)
}

// GetTopPairsByLoss возвращает самые убыточные пары
func (r *StatsRepository) GetTopPairsByLoss(limit int) ([]PairStanding, error) {
	query := `
		SELECT base, quote, COUNT(*), COALESCE(SUM(realized_pnl), 0)
		FROM trades
		GROUP BY base, quote
		HAVING SUM(realized_pnl) < 0
		ORDER BY SUM(realized_pnl) ASC
		LIMIT $1`

	return r.queryStandings(query, limit)
}

// GetExitReasonBreakdown возвращает число сделок по каждой причине выхода
func (r *StatsRepository) GetExitReasonBreakdown() (map[string]int, error) {
	query := `
		SELECT exit_reason, COUNT(*)
		FROM trades
		GROUP BY exit_reason`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := make(map[string]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		breakdown[reason] = count
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return breakdown, nil
}
