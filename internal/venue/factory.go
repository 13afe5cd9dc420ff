package venue

import (
	"fmt"
	"strings"
)

// SupportedVenues - список поддерживаемых venue'ов
var SupportedVenues = []string{
	"jupiter",
	"raydium",
	"orca",
}

// NewSource создает новый источник котировок по имени venue
func NewSource(name string) (Source, error) {
	switch strings.ToLower(name) {
	case "jupiter":
		return NewJupiter(), nil
	case "raydium":
		return NewRaydium(), nil
	case "orca":
		return NewOrca(), nil
	default:
		return nil, fmt.Errorf("unsupported venue: %s", name)
	}
}

// IsSupported проверяет, поддерживается ли venue
func IsSupported(name string) bool {
	name = strings.ToLower(name)
	for _, supported := range SupportedVenues {
		if name == supported {
			return true
		}
	}
	return false
}
