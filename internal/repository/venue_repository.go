package repository

import (
	"database/sql"
	"errors"
	"time"

	"dexarb/internal/models"
)

// Ошибки репозитория площадок
var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrVenueExists   = errors.New("venue already exists")
)

// VenueRepository - работа с таблицей venues (реестр DEX-площадок)
type VenueRepository struct {
	db *sql.DB
}

// NewVenueRepository создает новый экземпляр репозитория
func NewVenueRepository(db *sql.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

const venueColumns = `id, name, enabled, security_score, rate_limit, burst, updated_at`

// Create добавляет площадку в реестр
func (r *VenueRepository) Create(venue *models.VenueRecord) error {
	query := `
		INSERT INTO venues (name, enabled, security_score, rate_limit, burst, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	venue.UpdatedAt = time.Now()

	err := r.db.QueryRow(query,
		venue.Name,
		venue.Enabled,
		venue.SecurityScore,
		venue.RateLimit,
		venue.Burst,
		venue.UpdatedAt,
	).Scan(&venue.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrVenueExists
		}
		return err
	}

	return nil
}

func scanVenue(row interface{ Scan(...interface{}) error }) (*models.VenueRecord, error) {
	venue := &models.VenueRecord{}
	err := row.Scan(
		&venue.ID,
		&venue.Name,
		&venue.Enabled,
		&venue.SecurityScore,
		&venue.RateLimit,
		&venue.Burst,
		&venue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return venue, nil
}

// GetByName возвращает площадку по имени
func (r *VenueRepository) GetByName(name string) (*models.VenueRecord, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE name = $1`

	venue, err := scanVenue(r.db.QueryRow(query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return venue, nil
}

func (r *VenueRepository) queryVenues(query string, args ...interface{}) ([]*models.VenueRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []*models.VenueRecord
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, venue)
	}

	return venues, rows.Err()
}

// GetAll возвращает все площадки
func (r *VenueRepository) GetAll() ([]*models.VenueRecord, error) {
	query := `SELECT ` + venueColumns + ` FROM venues ORDER BY name`
	return r.queryVenues(query)
}

// GetEnabled возвращает только включенные площадки
func (r *VenueRepository) GetEnabled() ([]*models.VenueRecord, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE enabled = true ORDER BY name`
	return r.queryVenues(query)
}

// Update обновляет параметры площадки
func (r *VenueRepository) Update(venue *models.VenueRecord) error {
	query := `
		UPDATE venues
		SET enabled = $1, security_score = $2, rate_limit = $3, burst = $4, updated_at = $5
		WHERE id = $6`

	venue.UpdatedAt = time.Now()

	result, err := r.db.Exec(query,
		venue.Enabled,
		venue.SecurityScore,
		venue.RateLimit,
		venue.Burst,
		venue.UpdatedAt,
		venue.ID,
	)
	if err != nil {
		return err
	}

	return requireRows(result, ErrVenueNotFound)
}

// SetEnabled включает или выключает площадку
func (r *VenueRepository) SetEnabled(name string, enabled bool) error {
	query := `UPDATE venues SET enabled = $1, updated_at = $2 WHERE name = $3`

	result, err := r.db.Exec(query, enabled, time.Now(), name)
	if err != nil {
		return err
	}

	return requireRows(result, ErrVenueNotFound)
}

// UpdateSecurityScore обновляет оценку безопасности площадки
func (r *VenueRepository) UpdateSecurityScore(name string, score float64) error {
	query := `UPDATE venues SET security_score = $1, updated_at = $2 WHERE name = $3`

	result, err := r.db.Exec(query, score, time.Now(), name)
	if err != nil {
		return err
	}

	return requireRows(result, ErrVenueNotFound)
}

// Delete удаляет площадку из реестра
func (r *VenueRepository) Delete(name string) error {
	result, err := r.db.Exec(`DELETE FROM venues WHERE name = $1`, name)
	if err != nil {
		return err
	}

	return requireRows(result, ErrVenueNotFound)
}

// Exists проверяет наличие площадки в реестре
func (r *VenueRepository) Exists(name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM venues WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

// Count возвращает количество площадок в реестре
func (r *VenueRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM venues`).Scan(&count)
	return count, err
}
