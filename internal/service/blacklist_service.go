package service

import (
	"errors"
	"strings"

	"dexarb/internal/models"
	"dexarb/internal/repository"
)

// Ошибки сервиса черного списка
var (
	ErrBlacklistSymbolEmpty   = errors.New("symbol cannot be empty")
	ErrBlacklistSymbolExists  = errors.New("symbol already in blacklist")
	ErrBlacklistEntryNotFound = errors.New("blacklist entry not found")
)

// BlacklistService - бизнес-логика черного списка токенов.
//
// В списке хранятся base-токены (SOL, BONK), а не пары: токен с плохой
// репутацией блокируется на всех котируемых валютах сразу. Список
// проверяется при создании пары (см. PairService.CreatePair).
type BlacklistService struct {
	blacklistRepo BlacklistRepositoryInterface
}

// NewBlacklistService создает новый экземпляр BlacklistService
func NewBlacklistService(blacklistRepo BlacklistRepositoryInterface) *BlacklistService {
	return &BlacklistService{blacklistRepo: blacklistRepo}
}

// AddToBlacklist добавляет токен в черный список.
// Символ приводится к верхнему регистру.
func (s *BlacklistService) AddToBlacklist(symbol, reason string) (*models.BlacklistEntry, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrBlacklistSymbolEmpty
	}

	exists, err := s.blacklistRepo.Exists(symbol)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBlacklistSymbolExists
	}

	entry := &models.BlacklistEntry{
		Symbol: symbol,
		Reason: strings.TrimSpace(reason),
	}

	if err := s.blacklistRepo.Create(entry); err != nil {
		// Гонка двух одновременных добавлений
		if errors.Is(err, repository.ErrBlacklistEntryExists) {
			return nil, ErrBlacklistSymbolExists
		}
		return nil, err
	}

	return entry, nil
}

// GetBlacklist возвращает весь черный список, новые записи сверху
func (s *BlacklistService) GetBlacklist() ([]*models.BlacklistEntry, error) {
	entries, err := s.blacklistRepo.GetAll()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.BlacklistEntry{}
	}
	return entries, nil
}

// RemoveFromBlacklist удаляет токен из черного списка
func (s *BlacklistService) RemoveFromBlacklist(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return ErrBlacklistSymbolEmpty
	}

	if err := s.blacklistRepo.Delete(symbol); err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryNotFound) {
			return ErrBlacklistEntryNotFound
		}
		return err
	}
	return nil
}

// GetBySymbol возвращает запись по символу токена
func (s *BlacklistService) GetBySymbol(symbol string) (*models.BlacklistEntry, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, ErrBlacklistSymbolEmpty
	}

	entry, err := s.blacklistRepo.GetBySymbol(symbol)
	if err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryNotFound) {
			return nil, ErrBlacklistEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// IsBlacklisted проверяет, находится ли токен в черном списке
func (s *BlacklistService) IsBlacklisted(symbol string) (bool, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return false, ErrBlacklistSymbolEmpty
	}
	return s.blacklistRepo.Exists(symbol)
}

// UpdateReason обновляет причину добавления в черный список
func (s *BlacklistService) UpdateReason(symbol, reason string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return ErrBlacklistSymbolEmpty
	}

	if err := s.blacklistRepo.UpdateReason(symbol, strings.TrimSpace(reason)); err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryNotFound) {
			return ErrBlacklistEntryNotFound
		}
		return err
	}
	return nil
}

// Search ищет записи по части символа, регистронезависимо
func (s *BlacklistService) Search(query string) ([]*models.BlacklistEntry, error) {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return s.GetBlacklist()
	}

	entries, err := s.GetBlacklist()
	if err != nil {
		return nil, err
	}

	matched := []*models.BlacklistEntry{}
	for _, entry := range entries {
		if strings.Contains(entry.Symbol, query) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// GetCount возвращает количество записей в черном списке
func (s *BlacklistService) GetCount() (int, error) {
	return s.blacklistRepo.Count()
}

// ClearAll очищает весь черный список. Действие необратимо.
func (s *BlacklistService) ClearAll() error {
	return s.blacklistRepo.DeleteAll()
}
