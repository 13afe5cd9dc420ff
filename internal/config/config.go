package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"dexarb/internal/models"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Risk     RiskConfig
	Position PositionConfig
	Venue    VenueConfig
	Gateway  GatewayConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// EngineConfig - настройки цикла poll -> detect -> score -> manage
type EngineConfig struct {
	PollInterval      time.Duration // пауза между раундами опроса
	VenueTimeout      time.Duration // таймаут одного запроса к venue
	QuoteMaxAge       time.Duration // окно свежести котировки (старше = StaleQuote)
	MinSpreadPct      float64       // минимальный спред возможности, %
	LiquidityFloorUsd float64       // минимальная ликвидность обеих ног, USD
	MaxOpenPositions  int           // максимум открытых позиций (0 = без лимита)
	SuspendAfter      int           // раундов подряд без единой котировки до suspend пары
}

// RiskConfig - настройки риск-скоринга
type RiskConfig struct {
	Weights   models.RiskWeights
	Threshold float64 // вход разрешён при total < Threshold

	// Нормализация компонент
	VolatilityCeiling    float64 // stddev лог-доходностей, отображаемый в 100
	LiquidityZeroRiskUsd float64 // ликвидность, при которой компонент = 0
	VolumeZeroRiskUsd    float64 // 24h объём, при котором компонент = 0

	// Статические оценки безопасности venue'ов (ниже = безопаснее)
	SecurityScores       map[string]float64
	DefaultSecurityScore float64 // для venue'ов вне таблицы
}

// PositionConfig - настройки жизненного цикла позиции
type PositionConfig struct {
	EntrySizeQuote  float64                 // размер входа в quote-валюте
	StopLossPct     float64                 // стоп от цены входа, доля (0.08 = -8%)
	TrailingStopPct float64                 // ретрейсмент от максимума, доля
	Tiers           []models.TakeProfitTier // упорядочены по PriceMultiple
	MaxHoldTime     time.Duration           // принудительный выход по времени
	MaxSlippagePct  float64                 // допустимое проскальзывание, %
}

// VenueConfig - настройки venue-слоя
type VenueConfig struct {
	RateLimits   map[string]RateLimit // лимиты per venue
	DefaultRate  float64              // req/sec для venue'ов без явного лимита
	DefaultBurst float64
	CacheTTL     time.Duration // TTL кэша котировок при истощённом лимите
}

// RateLimit - лимит запросов одного venue
type RateLimit struct {
	Rate  float64
	Burst float64
}

// GatewayConfig - настройки симулятора исполнения
type GatewayConfig struct {
	BalanceQuote float64 // стартовый баланс quote-валюты
	SlippagePct  float64 // фиксированное проскальзывание симулятора, %
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	tiers, err := parseTiers(getEnv("TAKE_PROFIT_TIERS", "1.30:0.40,1.80:0.40,5.00:1.00"))
	if err != nil {
		return nil, fmt.Errorf("TAKE_PROFIT_TIERS: %w", err)
	}

	scores, err := parseScoreTable(getEnv("VENUE_SECURITY_SCORES", "raydium:15,orca:20,jupiter:25"))
	if err != nil {
		return nil, fmt.Errorf("VENUE_SECURITY_SCORES: %w", err)
	}

	rates, err := parseRateTable(getEnv("VENUE_RATE_LIMITS", "raydium:3:6,orca:3:6,jupiter:10:20"))
	if err != nil {
		return nil, fmt.Errorf("VENUE_RATE_LIMITS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "dexarb"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Engine: EngineConfig{
			PollInterval:      getEnvAsDuration("POLL_INTERVAL", 2*time.Second),
			VenueTimeout:      getEnvAsDuration("VENUE_TIMEOUT", 3*time.Second),
			QuoteMaxAge:       getEnvAsDuration("QUOTE_MAX_AGE", 10*time.Second),
			MinSpreadPct:      getEnvAsFloat("MIN_SPREAD_PCT", 1.0),
			LiquidityFloorUsd: getEnvAsFloat("LIQUIDITY_FLOOR_USD", 10000),
			MaxOpenPositions:  getEnvAsInt("MAX_OPEN_POSITIONS", 3),
			SuspendAfter:      getEnvAsInt("SUSPEND_AFTER_ROUNDS", 3),
		},
		Risk: RiskConfig{
			Weights: models.RiskWeights{
				Volatility:    getEnvAsFloat("RISK_WEIGHT_VOLATILITY", 0.30),
				Liquidity:     getEnvAsFloat("RISK_WEIGHT_LIQUIDITY", 0.25),
				Spread:        getEnvAsFloat("RISK_WEIGHT_SPREAD", 0.15),
				Volume:        getEnvAsFloat("RISK_WEIGHT_VOLUME", 0.15),
				VenueSecurity: getEnvAsFloat("RISK_WEIGHT_VENUE_SECURITY", 0.15),
			},
			Threshold:            getEnvAsFloat("RISK_THRESHOLD", 60),
			VolatilityCeiling:    getEnvAsFloat("RISK_VOLATILITY_CEILING", 0.05),
			LiquidityZeroRiskUsd: getEnvAsFloat("RISK_LIQUIDITY_ZERO_USD", 1000000),
			VolumeZeroRiskUsd:    getEnvAsFloat("RISK_VOLUME_ZERO_USD", 1000000),
			SecurityScores:       scores,
			DefaultSecurityScore: getEnvAsFloat("RISK_DEFAULT_SECURITY_SCORE", 50),
		},
		Position: PositionConfig{
			EntrySizeQuote:  getEnvAsFloat("ENTRY_SIZE_QUOTE", 100),
			StopLossPct:     getEnvAsFloat("STOP_LOSS_PCT", 0.08),
			TrailingStopPct: getEnvAsFloat("TRAILING_STOP_PCT", 0.05),
			Tiers:           tiers,
			MaxHoldTime:     getEnvAsDuration("MAX_HOLD_TIME", 24*time.Hour),
			MaxSlippagePct:  getEnvAsFloat("MAX_SLIPPAGE_PCT", 1.0),
		},
		Venue: VenueConfig{
			RateLimits:   rates,
			DefaultRate:  getEnvAsFloat("VENUE_DEFAULT_RATE", 5),
			DefaultBurst: getEnvAsFloat("VENUE_DEFAULT_BURST", 10),
			CacheTTL:     getEnvAsDuration("QUOTE_CACHE_TTL", 5*time.Second),
		},
		Gateway: GatewayConfig{
			BalanceQuote: getEnvAsFloat("SIM_BALANCE_QUOTE", 10000),
			SlippagePct:  getEnvAsFloat("SIM_SLIPPAGE_PCT", 0.1),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет числовые диапазоны параметров
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %v", c.Engine.PollInterval)
	}
	if c.Engine.VenueTimeout <= 0 {
		return fmt.Errorf("VENUE_TIMEOUT must be positive, got %v", c.Engine.VenueTimeout)
	}
	if c.Engine.QuoteMaxAge <= 0 {
		return fmt.Errorf("QUOTE_MAX_AGE must be positive, got %v", c.Engine.QuoteMaxAge)
	}
	if c.Engine.MinSpreadPct < 0 {
		return fmt.Errorf("MIN_SPREAD_PCT cannot be negative, got %f", c.Engine.MinSpreadPct)
	}
	if c.Engine.MaxOpenPositions < 0 {
		return fmt.Errorf("MAX_OPEN_POSITIONS cannot be negative, got %d", c.Engine.MaxOpenPositions)
	}

	if err := c.Risk.Weights.Validate(); err != nil {
		return err
	}
	if c.Risk.Threshold <= 0 || c.Risk.Threshold > 100 {
		return fmt.Errorf("RISK_THRESHOLD must be in (0, 100], got %f", c.Risk.Threshold)
	}
	if c.Risk.VolatilityCeiling <= 0 {
		return fmt.Errorf("RISK_VOLATILITY_CEILING must be positive, got %f", c.Risk.VolatilityCeiling)
	}

	if c.Position.StopLossPct <= 0 || c.Position.StopLossPct >= 1 {
		return fmt.Errorf("STOP_LOSS_PCT must be in (0, 1), got %f", c.Position.StopLossPct)
	}
	if c.Position.TrailingStopPct <= 0 || c.Position.TrailingStopPct >= 1 {
		return fmt.Errorf("TRAILING_STOP_PCT must be in (0, 1), got %f", c.Position.TrailingStopPct)
	}
	if c.Position.MaxHoldTime <= 0 {
		return fmt.Errorf("MAX_HOLD_TIME must be positive, got %v", c.Position.MaxHoldTime)
	}
	if err := validateTiers(c.Position.Tiers); err != nil {
		return err
	}

	if c.Gateway.BalanceQuote <= 0 {
		return fmt.Errorf("SIM_BALANCE_QUOTE must be positive, got %f", c.Gateway.BalanceQuote)
	}
	if c.Gateway.SlippagePct < 0 {
		return fmt.Errorf("SIM_SLIPPAGE_PCT cannot be negative, got %f", c.Gateway.SlippagePct)
	}

	return nil
}

// validateTiers проверяет таблицу take-profit tier'ов
//
// Требования:
// - множители строго возрастают и > 1
// - доли в (0, 1]
// - последний tier продаёт весь остаток (доля = 1.0)
func validateTiers(tiers []models.TakeProfitTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("TAKE_PROFIT_TIERS must contain at least one tier")
	}

	prev := 1.0
	for i, tier := range tiers {
		if tier.PriceMultiple <= prev {
			return fmt.Errorf("tier %d: price multiples must be ascending and above 1.0, got %f", i, tier.PriceMultiple)
		}
		if tier.FractionToSell <= 0 || tier.FractionToSell > 1 {
			return fmt.Errorf("tier %d: fraction must be in (0, 1], got %f", i, tier.FractionToSell)
		}
		prev = tier.PriceMultiple
	}

	if last := tiers[len(tiers)-1]; last.FractionToSell != 1.0 {
		return fmt.Errorf("final tier must sell the whole remainder (fraction 1.0), got %f", last.FractionToSell)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// ============================================================
// Парсинг табличных параметров
// ============================================================

// parseTiers разбирает таблицу tier'ов из строки "1.30:0.40,1.80:0.40,5.00:1.00"
func parseTiers(s string) ([]models.TakeProfitTier, error) {
	parts := splitNonEmpty(s, ",")
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty tier table")
	}

	tiers := make([]models.TakeProfitTier, 0, len(parts))
	for _, part := range parts {
		fields := strings.Split(part, ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed tier %q, want multiple:fraction", part)
		}

		multiple, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("tier multiple %q: %w", fields[0], err)
		}
		fraction, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("tier fraction %q: %w", fields[1], err)
		}

		tiers = append(tiers, models.TakeProfitTier{PriceMultiple: multiple, FractionToSell: fraction})
	}

	// Конфиг может прийти неотсортированным - tier'ы применяются по возрастанию
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].PriceMultiple < tiers[j].PriceMultiple })

	return tiers, nil
}

// parseScoreTable разбирает таблицу "raydium:15,orca:20"
func parseScoreTable(s string) (map[string]float64, error) {
	scores := make(map[string]float64)

	for _, part := range splitNonEmpty(s, ",") {
		fields := strings.Split(part, ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed entry %q, want venue:score", part)
		}

		score, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", fields[1], err)
		}
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("score for %q must be in [0, 100], got %f", fields[0], score)
		}

		scores[strings.ToLower(strings.TrimSpace(fields[0]))] = score
	}

	return scores, nil
}

// parseRateTable разбирает таблицу "raydium:3:6,jupiter:10:20"
func parseRateTable(s string) (map[string]RateLimit, error) {
	rates := make(map[string]RateLimit)

	for _, part := range splitNonEmpty(s, ",") {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed entry %q, want venue:rate:burst", part)
		}

		rate, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("rate %q: %w", fields[1], err)
		}
		burst, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("burst %q: %w", fields[2], err)
		}
		if rate <= 0 {
			return nil, fmt.Errorf("rate for %q must be positive, got %f", fields[0], rate)
		}

		rates[strings.ToLower(strings.TrimSpace(fields[0]))] = RateLimit{Rate: rate, Burst: burst}
	}

	return rates, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ============================================================
// Вспомогательные функции для чтения переменных окружения
// ============================================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
