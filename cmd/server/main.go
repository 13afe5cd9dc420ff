package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"dexarb/internal/api"
	"dexarb/internal/bot"
	"dexarb/internal/config"
	"dexarb/internal/gateway"
	"dexarb/internal/marketdata"
	"dexarb/internal/models"
	"dexarb/internal/repository"
	"dexarb/internal/service"
	"dexarb/internal/venue"
	"dexarb/internal/websocket"
	"dexarb/pkg/cache"
	"dexarb/pkg/ratelimit"
	"dexarb/pkg/utils"
)

func main() {
	// .env необязателен: в контейнерах переменные приходят из окружения
	_ = godotenv.Load()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Инициализация репозиториев
	pairRepo := repository.NewPairRepository(db)
	blacklistRepo := repository.NewBlacklistRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	venueRepo := repository.NewVenueRepository(db)

	// Инициализация сервисов
	venueService := service.NewVenueService(venueRepo)
	pairService := service.NewPairService(pairRepo, blacklistRepo, venueService)
	blacklistService := service.NewBlacklistService(blacklistRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	notificationService := service.NewNotificationService(notificationRepo, settingsRepo)
	statsService := service.NewStatsService(statsRepo, tradeRepo)

	// Источники котировок: per-venue rate limit + TTL-кэш поверх клиента
	sources, err := buildSources(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build venue sources", zap.Error(err))
	}

	aggregator := bot.NewPriceAggregator(sources, cfg.Engine.VenueTimeout, cfg.Engine.QuoteMaxAge, logger)
	scorer := bot.NewScorer(cfg.Risk)

	gw := gateway.NewSim(cfg.Gateway.BalanceQuote, cfg.Gateway.SlippagePct, logger)
	events := bot.NewBus(256)
	positions := bot.NewPositionManager(gw, cfg.Position, events, logger)
	history := marketdata.NewHistory(512)

	engine := bot.NewEngine(cfg, aggregator, scorer, positions, history, events, logger)
	pairService.SetEngine(engine, positions)
	positionService := service.NewPositionService(positions)

	// Архивация закрытых позиций
	arc := &tradeArchiver{
		risk:     make(map[models.TradingPair]float64),
		stats:    statsService,
		pairs:    pairService,
		pairRepo: pairRepo,
		logger:   logger,
	}
	positions.OnClose = arc.onClose
	go arc.trackRisk(events.Subscribe())

	// WebSocket hub: real-time события ядра и уведомления
	hub := websocket.NewHub(logger)
	go hub.Run()
	go hub.RunEventLoop(events.Subscribe())
	notificationService.SetWebSocketHub(hub)
	statsService.SetWebSocketHub(hub)

	// Журнал событий (уведомления из событий ядра)
	recorder := service.NewEventRecorder(notificationService, pairRepo, logger)
	go recorder.Run(events.Subscribe())

	// Восстановление пар из базы
	if err := loadPairs(pairRepo, engine, logger); err != nil {
		logger.Fatal("failed to load pairs", zap.Error(err))
	}

	ctx := context.Background()
	if err := engine.Start(ctx); err != nil {
		logger.Fatal("failed to start engine", zap.Error(err))
	}

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		VenueService:        venueService,
		PairService:         pairService,
		PositionService:     positionService,
		StatsService:        statsService,
		SettingsService:     settingsService,
		NotificationService: notificationService,
		BlacklistService:    blacklistService,
		Hub:                 hub,
		Logger:              logger,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Сначала останавливаем торговое ядро, затем HTTP и подписчиков шины
	engine.Stop()
	events.Close()
	hub.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// buildSources собирает источники котировок для всех поддерживаемых venue'ов.
// Каждый клиент оборачивается в CachedSource: rate limiter с per-venue
// лимитом плюс TTL-кэш для выдачи недавних котировок при истощении лимита.
func buildSources(cfg *config.Config, logger *zap.Logger) (map[string]venue.Source, error) {
	sources := make(map[string]venue.Source, len(venue.SupportedVenues))
	for _, name := range venue.SupportedVenues {
		src, err := venue.NewSource(name)
		if err != nil {
			return nil, err
		}

		rate, burst := cfg.Venue.DefaultRate, cfg.Venue.DefaultBurst
		if rl, ok := cfg.Venue.RateLimits[name]; ok {
			rate, burst = rl.Rate, rl.Burst
		}

		limiter := ratelimit.New(rate, burst)
		quoteCache := cache.New(cfg.Venue.CacheTTL, cfg.Venue.CacheTTL)
		sources[name] = venue.NewCached(src, limiter, quoteCache, cfg.Engine.QuoteMaxAge, logger)
	}
	return sources, nil
}

// loadPairs восстанавливает торговые пары из базы при старте
func loadPairs(pairRepo *repository.PairRepository, engine *bot.Engine, logger *zap.Logger) error {
	pairs, err := pairRepo.GetAll()
	if err != nil {
		return err
	}
	for _, pc := range pairs {
		if err := engine.AddPair(*pc); err != nil {
			logger.Warn("failed to register pair",
				zap.String("pair", pc.Pair.String()),
				zap.Error(err))
			continue
		}
	}
	logger.Info("pairs loaded", zap.Int("count", len(pairs)))
	return nil
}

// tradeArchiver записывает закрытые позиции в архив сделок и локальную
// статистику пары. Риск последней возможности по паре запоминается из
// событий шины, чтобы попасть в архивную запись.
type tradeArchiver struct {
	mu       sync.Mutex
	risk     map[models.TradingPair]float64
	stats    *service.StatsService
	pairs    *service.PairService
	pairRepo *repository.PairRepository
	logger   *zap.Logger
}

func (a *tradeArchiver) trackRisk(events <-chan bot.Event) {
	for ev := range events {
		if ev.Type == bot.EventOpportunityDetected && ev.Risk != nil {
			a.mu.Lock()
			a.risk[ev.Pair] = ev.Risk.Total
			a.mu.Unlock()
		}
	}
}

func (a *tradeArchiver) onClose(p *models.Position) {
	a.mu.Lock()
	risk := a.risk[p.Pair]
	a.mu.Unlock()

	record := &models.TradeRecord{
		PositionID:     p.ID,
		Pair:           p.Pair,
		Venue:          p.Venue,
		EntryPrice:     p.EntryPrice,
		SizeQuote:      p.SizeQuoteAtEntry,
		RealizedPnl:    p.RealizedPnl,
		TiersFired:     p.FiredTiers(),
		ExitReason:     p.ExitReason,
		RiskScoreTotal: risk,
		OpenedAt:       p.OpenedAt,
		ClosedAt:       p.ClosedAt,
	}
	if err := a.stats.ArchiveTrade(record); err != nil {
		a.logger.Error("failed to archive trade",
			zap.String("position_id", p.ID),
			zap.Error(err))
	}

	pc, err := a.pairRepo.GetByPair(p.Pair.Base, p.Pair.Quote)
	if err != nil {
		a.logger.Warn("pair lookup failed for closed position",
			zap.String("pair", p.Pair.String()),
			zap.Error(err))
		return
	}
	if err := a.pairs.RecordTradeCompletion(context.Background(), pc.ID, p.RealizedPnl); err != nil {
		a.logger.Error("failed to record trade completion",
			zap.Int("pair_id", pc.ID),
			zap.Error(err))
	}
}
