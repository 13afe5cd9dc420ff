// Package integration contains integration tests for the DEX arbitrage terminal.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: schema, transactions
//
// Tests skip automatically when the test database is unreachable.
// Configure via TEST_DB_* environment variables.
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"dexarb/internal/api"
	"dexarb/internal/repository"
	"dexarb/internal/service"
	"dexarb/internal/websocket"
)

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB       *sql.DB
	Router   *mux.Router
	Server   *httptest.Server
	Hub      *websocket.Hub
	Repos    *TestRepositories
	Services *TestServices
	Cleanup  func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Pair         *repository.PairRepository
	Venue        *repository.VenueRepository
	Trade        *repository.TradeRepository
	Notification *repository.NotificationRepository
	Settings     *repository.SettingsRepository
	Blacklist    *repository.BlacklistRepository
	Stats        *repository.StatsRepository
}

// TestServices contains all service instances for testing
type TestServices struct {
	Venue        *service.VenueService
	Pair         *service.PairService
	Stats        *service.StatsService
	Settings     *service.SettingsService
	Notification *service.NotificationService
	Blacklist    *service.BlacklistService
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "dexarb_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer creates a complete test server with all components.
// The trading engine is intentionally not wired: pair lifecycle endpoints
// work against the database alone, pairs stay in the paused state.
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}

	hub := websocket.NewHub(zap.NewNop())
	go hub.Run()

	repos := &TestRepositories{
		Pair:         repository.NewPairRepository(db),
		Venue:        repository.NewVenueRepository(db),
		Trade:        repository.NewTradeRepository(db),
		Notification: repository.NewNotificationRepository(db),
		Settings:     repository.NewSettingsRepository(db),
		Blacklist:    repository.NewBlacklistRepository(db),
		Stats:        repository.NewStatsRepository(db),
	}

	venueSvc := service.NewVenueService(repos.Venue)
	services := &TestServices{
		Venue:        venueSvc,
		Pair:         service.NewPairService(repos.Pair, repos.Blacklist, venueSvc),
		Stats:        service.NewStatsService(repos.Stats, repos.Trade),
		Settings:     service.NewSettingsService(repos.Settings),
		Notification: service.NewNotificationService(repos.Notification, repos.Settings),
		Blacklist:    service.NewBlacklistService(repos.Blacklist),
	}
	services.Notification.SetWebSocketHub(hub)
	services.Stats.SetWebSocketHub(hub)

	deps := &api.Dependencies{
		VenueService:        services.Venue,
		PairService:         services.Pair,
		StatsService:        services.Stats,
		SettingsService:     services.Settings,
		NotificationService: services.Notification,
		BlacklistService:    services.Blacklist,
		Hub:                 hub,
		Logger:              zap.NewNop(),
	}
	router := api.SetupRoutes(deps)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		hub.Stop()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:       db,
		Router:   router,
		Server:   server,
		Hub:      hub,
		Repos:    repos,
		Services: services,
		Cleanup:  cleanup,
	}
}

// initTestTables creates or truncates tables for testing
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS venues (
			id SERIAL PRIMARY KEY,
			name VARCHAR(50) UNIQUE NOT NULL,
			enabled BOOLEAN DEFAULT true,
			security_score DECIMAL(10, 4) DEFAULT 50,
			rate_limit DECIMAL(10, 4) DEFAULT 5,
			burst INT DEFAULT 1,
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS pairs (
			id SERIAL PRIMARY KEY,
			base VARCHAR(16) NOT NULL,
			quote VARCHAR(16) NOT NULL,
			venues TEXT[] NOT NULL DEFAULT '{}',
			min_spread_pct DECIMAL(10, 4) NOT NULL,
			liquidity_floor DECIMAL(20, 2) NOT NULL,
			entry_size_quote DECIMAL(20, 8) NOT NULL,
			max_slippage_pct DECIMAL(10, 4) NOT NULL,
			status VARCHAR(20) DEFAULT 'paused',
			trades_count INT DEFAULT 0,
			total_pnl DECIMAL(20, 2) DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(base, quote)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id SERIAL PRIMARY KEY,
			position_id VARCHAR(64) NOT NULL,
			base VARCHAR(16) NOT NULL,
			quote VARCHAR(16) NOT NULL,
			venue VARCHAR(50) NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL DEFAULT 0,
			size_quote DECIMAL(20, 8) NOT NULL DEFAULT 0,
			realized_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			tiers_fired INT DEFAULT 0,
			exit_reason VARCHAR(32) NOT NULL DEFAULT '',
			risk_score_total DECIMAL(10, 4) DEFAULT 0,
			opened_at TIMESTAMP NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP DEFAULT NOW(),
			type VARCHAR(50) NOT NULL,
			severity VARCHAR(10) DEFAULT 'info',
			pair_id INT,
			message TEXT NOT NULL,
			meta JSONB DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY DEFAULT 1,
			max_open_positions INT,
			risk_threshold DECIMAL(10, 4),
			notification_prefs JSONB,
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS blacklist (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) UNIQUE NOT NULL,
			reason TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT NOW()
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// начинаем каждый прогон с чистого состояния
	cleanupTestTables(db)

	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"trades",
		"notifications",
		"blacklist",
		"pairs",
		"venues",
		"settings",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}

// TruncateTable truncates a specific table for testing
func TruncateTable(db *sql.DB, tableName string) error {
	_, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", tableName))
	return err
}
