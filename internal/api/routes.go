package api

import (
	"net/http"
	"net/http/pprof"

	"dexarb/internal/api/handlers"
	"dexarb/internal/api/middleware"
	"dexarb/internal/service"
	"dexarb/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	VenueService        *service.VenueService
	PairService         *service.PairService
	PositionService     *service.PositionService
	StatsService        *service.StatsService
	SettingsService     *service.SettingsService
	NotificationService *service.NotificationService
	BlacklistService    *service.BlacklistService

	Hub    *websocket.Hub
	Logger *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /venues/
//	│   ├── GET / - список venue'ов
//	│   ├── POST / - регистрация venue
//	│   ├── PATCH /{name} - обновление параметров
//	│   └── DELETE /{name} - удаление venue
//	├── /pairs/
//	│   ├── GET / - список пар
//	│   ├── POST / - создать пару
//	│   ├── GET /{id} - получить пару
//	│   ├── PATCH /{id} - обновить пару
//	│   ├── DELETE /{id} - удалить пару
//	│   ├── POST /{id}/start - запустить пару
//	│   └── POST /{id}/pause - приостановить пару
//	├── /positions/
//	│   ├── GET / - открытые позиции
//	│   ├── GET /{id} - снимок позиции
//	│   └── POST /{id}/close - принудительное закрытие
//	├── /notifications/
//	│   ├── GET / - журнал событий
//	│   └── DELETE / - очистить журнал
//	├── /stats/
//	│   ├── GET / - агрегированная статистика
//	│   ├── GET /top-pairs - топ пар по метрике
//	│   ├── GET /exit-reasons - распределение причин выхода
//	│   ├── GET /trades - архив сделок
//	│   └── POST /reset - очистка архива
//	├── /blacklist/
//	│   ├── GET / - черный список токенов
//	│   ├── POST / - добавить токен
//	│   ├── PATCH /{symbol} - обновить причину
//	│   └── DELETE /{symbol} - удалить токен
//	└── /settings/
//	    ├── GET / - получить настройки
//	    ├── PATCH / - обновить настройки
//	    └── POST /reset - сброс к умолчаниям
//
// /ws/stream - WebSocket для real-time обновлений
// /metrics   - Prometheus метрики
// /health    - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	var logger *zap.Logger
	if deps != nil {
		logger = deps.Logger
	}

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth)

	if deps != nil && deps.VenueService != nil {
		venueHandler := handlers.NewVenueHandler(deps.VenueService)
		api.HandleFunc("/venues", venueHandler.GetVenues).Methods("GET")
		api.HandleFunc("/venues", venueHandler.RegisterVenue).Methods("POST")
		api.HandleFunc("/venues/{name}", venueHandler.UpdateVenue).Methods("PATCH")
		api.HandleFunc("/venues/{name}", venueHandler.DeleteVenue).Methods("DELETE")
	}

	if deps != nil && deps.PairService != nil {
		pairHandler := handlers.NewPairHandler(deps.PairService)
		api.HandleFunc("/pairs", pairHandler.GetPairs).Methods("GET")
		api.HandleFunc("/pairs", pairHandler.CreatePair).Methods("POST")
		api.HandleFunc("/pairs/{id}", pairHandler.GetPair).Methods("GET")
		api.HandleFunc("/pairs/{id}", pairHandler.UpdatePair).Methods("PATCH")
		api.HandleFunc("/pairs/{id}", pairHandler.DeletePair).Methods("DELETE")
		api.HandleFunc("/pairs/{id}/start", pairHandler.StartPair).Methods("POST")
		api.HandleFunc("/pairs/{id}/pause", pairHandler.PausePair).Methods("POST")
	}

	if deps != nil && deps.PositionService != nil {
		positionHandler := handlers.NewPositionHandler(deps.PositionService)
		api.HandleFunc("/positions", positionHandler.GetPositions).Methods("GET")
		api.HandleFunc("/positions/{id}", positionHandler.GetPosition).Methods("GET")
		api.HandleFunc("/positions/{id}/close", positionHandler.ClosePosition).Methods("POST")
	}

	if deps != nil && deps.NotificationService != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	if deps != nil && deps.StatsService != nil {
		statsHandler := handlers.NewStatsHandler(deps.StatsService)
		api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
		api.HandleFunc("/stats/top-pairs", statsHandler.GetTopPairs).Methods("GET")
		api.HandleFunc("/stats/exit-reasons", statsHandler.GetExitReasons).Methods("GET")
		api.HandleFunc("/stats/trades", statsHandler.GetTrades).Methods("GET")
		api.HandleFunc("/stats/reset", statsHandler.ResetStats).Methods("POST")
	}

	if deps != nil && deps.BlacklistService != nil {
		blacklistHandler := handlers.NewBlacklistHandler(deps.BlacklistService)
		api.HandleFunc("/blacklist", blacklistHandler.GetBlacklist).Methods("GET")
		api.HandleFunc("/blacklist", blacklistHandler.AddToBlacklist).Methods("POST")
		api.HandleFunc("/blacklist/{symbol}", blacklistHandler.UpdateReason).Methods("PATCH")
		api.HandleFunc("/blacklist/{symbol}", blacklistHandler.RemoveFromBlacklist).Methods("DELETE")
	}

	if deps != nil && deps.SettingsService != nil {
		settingsHandler := handlers.NewSettingsHandler(deps.SettingsService)
		api.HandleFunc("/settings", settingsHandler.GetSettings).Methods("GET")
		api.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods("PATCH")
		api.HandleFunc("/settings/reset", settingsHandler.ResetSettings).Methods("POST")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// pprof за basic auth
	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)
	debug.HandleFunc("", pprof.Index)
	debug.HandleFunc("/{profile}", func(w http.ResponseWriter, r *http.Request) {
		switch mux.Vars(r)["profile"] {
		case "cmdline":
			pprof.Cmdline(w, r)
		case "profile":
			pprof.Profile(w, r)
		case "symbol":
			pprof.Symbol(w, r)
		case "trace":
			pprof.Trace(w, r)
		default:
			pprof.Index(w, r)
		}
	})

	return router
}
