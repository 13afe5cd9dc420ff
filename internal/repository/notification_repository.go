package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"dexarb/internal/models"
)

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create сохраняет уведомление
func (r *NotificationRepository) Create(n *models.Notification) error {
	var metaJSON []byte
	if n.Meta != nil {
		var err error
		metaJSON, err = json.Marshal(n.Meta)
		if err != nil {
			return err
		}
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	query := `
		INSERT INTO notifications (timestamp, type, severity, pair_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return r.db.QueryRow(
		query,
		n.Timestamp,
		n.Type,
		n.Severity,
		n.PairID,
		n.Message,
		metaJSON,
	).Scan(&n.ID)
}

func scanNotification(row interface{ Scan(...interface{}) error }) (*models.Notification, error) {
	n := &models.Notification{}
	var metaJSON []byte
	err := row.Scan(
		&n.ID,
		&n.Timestamp,
		&n.Type,
		&n.Severity,
		&n.PairID,
		&n.Message,
		&metaJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &n.Meta); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func (r *NotificationRepository) queryNotifications(query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

const notificationColumns = `id, timestamp, type, severity, pair_id, message, meta`

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	return r.queryNotifications(
		`SELECT `+notificationColumns+` FROM notifications ORDER BY timestamp DESC LIMIT $1`, limit)
}

// GetByTypes возвращает последние уведомления указанных типов
func (r *NotificationRepository) GetByTypes(types []string, limit int) ([]*models.Notification, error) {
	return r.queryNotifications(
		`SELECT `+notificationColumns+` FROM notifications WHERE type = ANY($1) ORDER BY timestamp DESC LIMIT $2`,
		pq.Array(types), limit)
}

// GetByPairID возвращает уведомления пары
func (r *NotificationRepository) GetByPairID(pairID, limit int) ([]*models.Notification, error) {
	return r.queryNotifications(
		`SELECT `+notificationColumns+` FROM notifications WHERE pair_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		pairID, limit)
}

// Count возвращает общее количество уведомлений
func (r *NotificationRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications`).Scan(&count)
	return count, err
}

// DeleteAll очищает журнал уведомлений
func (r *NotificationRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM notifications`)
	return err
}

// DeleteOlderThan удаляет уведомления старше указанной даты
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE timestamp < $1`, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
