package service

import (
	"errors"
	"strings"

	"dexarb/internal/models"
	"dexarb/internal/repository"
)

// Ошибки сервиса venue'ов
var (
	ErrVenueNameEmpty       = errors.New("venue name cannot be empty")
	ErrVenueAlreadyExists   = errors.New("venue already registered")
	ErrVenueNotFound        = errors.New("venue not found")
	ErrInvalidSecurityScore = errors.New("security score must be in [0, 100]")
	ErrInvalidRateLimit     = errors.New("rate limit must be greater than 0")
)

// VenueService - бизнес-логика реестра DEX-площадок.
//
// Реестр хранит рантайм-настройки venue'ов: включен ли опрос, оценку
// безопасности для риск-скоринга и лимиты запросов. Сами адаптеры
// venue'ов собираются в main по этим записям.
type VenueService struct {
	venueRepo VenueRepositoryInterface
}

// NewVenueService создает новый экземпляр VenueService
func NewVenueService(venueRepo VenueRepositoryInterface) *VenueService {
	return &VenueService{venueRepo: venueRepo}
}

// RegisterVenue добавляет площадку в реестр.
// Имя нормализуется к нижнему регистру.
func (s *VenueService) RegisterVenue(venue *models.VenueRecord) error {
	venue.Name = strings.ToLower(strings.TrimSpace(venue.Name))
	if venue.Name == "" {
		return ErrVenueNameEmpty
	}
	if venue.SecurityScore < 0 || venue.SecurityScore > 100 {
		return ErrInvalidSecurityScore
	}
	if venue.RateLimit <= 0 {
		return ErrInvalidRateLimit
	}
	if venue.Burst <= 0 {
		venue.Burst = 1
	}

	if err := s.venueRepo.Create(venue); err != nil {
		if errors.Is(err, repository.ErrVenueExists) {
			return ErrVenueAlreadyExists
		}
		return err
	}
	return nil
}

// GetVenue возвращает площадку по имени
func (s *VenueService) GetVenue(name string) (*models.VenueRecord, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, ErrVenueNameEmpty
	}

	venue, err := s.venueRepo.GetByName(name)
	if err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return venue, nil
}

// GetVenues возвращает все площадки реестра
func (s *VenueService) GetVenues() ([]*models.VenueRecord, error) {
	venues, err := s.venueRepo.GetAll()
	if err != nil {
		return nil, err
	}
	if venues == nil {
		venues = []*models.VenueRecord{}
	}
	return venues, nil
}

// GetEnabledVenues возвращает только включенные площадки
func (s *VenueService) GetEnabledVenues() ([]*models.VenueRecord, error) {
	return s.venueRepo.GetEnabled()
}

// EnabledNames возвращает множество имен включенных площадок
func (s *VenueService) EnabledNames() (map[string]bool, error) {
	venues, err := s.venueRepo.GetEnabled()
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(venues))
	for _, venue := range venues {
		names[venue.Name] = true
	}
	return names, nil
}

// UpdateVenue обновляет параметры площадки
func (s *VenueService) UpdateVenue(venue *models.VenueRecord) error {
	if venue.SecurityScore < 0 || venue.SecurityScore > 100 {
		return ErrInvalidSecurityScore
	}
	if venue.RateLimit <= 0 {
		return ErrInvalidRateLimit
	}

	if err := s.venueRepo.Update(venue); err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return ErrVenueNotFound
		}
		return err
	}
	return nil
}

// SetEnabled включает или выключает опрос площадки
func (s *VenueService) SetEnabled(name string, enabled bool) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ErrVenueNameEmpty
	}

	if err := s.venueRepo.SetEnabled(name, enabled); err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return ErrVenueNotFound
		}
		return err
	}
	return nil
}

// UpdateSecurityScore обновляет оценку безопасности площадки.
// Оценка участвует в риск-скоринге: выше - рискованнее.
func (s *VenueService) UpdateSecurityScore(name string, score float64) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ErrVenueNameEmpty
	}
	if score < 0 || score > 100 {
		return ErrInvalidSecurityScore
	}

	if err := s.venueRepo.UpdateSecurityScore(name, score); err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return ErrVenueNotFound
		}
		return err
	}
	return nil
}

// RemoveVenue удаляет площадку из реестра
func (s *VenueService) RemoveVenue(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ErrVenueNameEmpty
	}

	if err := s.venueRepo.Delete(name); err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return ErrVenueNotFound
		}
		return err
	}
	return nil
}

// SecurityScores возвращает карту оценок безопасности для риск-скоринга
func (s *VenueService) SecurityScores() (map[string]float64, error) {
	venues, err := s.venueRepo.GetAll()
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(venues))
	for _, venue := range venues {
		scores[venue.Name] = venue.SecurityScore
	}
	return scores, nil
}

// GetVenuesCount возвращает количество площадок в реестре
func (s *VenueService) GetVenuesCount() (int, error) {
	return s.venueRepo.Count()
}
