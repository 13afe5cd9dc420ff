package bot

import "dexarb/internal/models"

// ValidTransitions определяет допустимые переходы состояний позиции.
// Возврата из CLOSED нет; PARTIALLY_CLOSED повторяется по мере
// срабатывания tier'ов.
var ValidTransitions = map[string][]string{
	models.PositionStateOpen:            {models.PositionStatePartiallyClosed, models.PositionStateClosed},
	models.PositionStatePartiallyClosed: {models.PositionStatePartiallyClosed, models.PositionStateClosed},
	models.PositionStateClosed:          {},
}

// ValidPairTransitions определяет допустимые переходы статуса пары
var ValidPairTransitions = map[string][]string{
	models.PairStatusPaused:    {models.PairStatusActive},
	models.PairStatusActive:    {models.PairStatusPaused, models.PairStatusSuspended},
	models.PairStatusSuspended: {models.PairStatusActive, models.PairStatusPaused},
}

// CanTransition проверяет допустимость перехода состояния позиции
func CanTransition(from, to string) bool {
	return containsState(ValidTransitions[from], to)
}

// CanPairTransition проверяет допустимость перехода статуса пары
func CanPairTransition(from, to string) bool {
	return containsState(ValidPairTransitions[from], to)
}

func containsState(allowed []string, s string) bool {
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния позиции для UI
func StateInfo(s string) string {
	switch s {
	case models.PositionStateOpen:
		return "Позиция открыта"
	case models.PositionStatePartiallyClosed:
		return "Часть позиции зафиксирована"
	case models.PositionStateClosed:
		return "Позиция закрыта"
	default:
		return "Неизвестное состояние"
	}
}
