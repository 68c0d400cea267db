package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riskengine/internal/api/handlers"
	"riskengine/internal/api/middleware"
	"riskengine/internal/service"
	"riskengine/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	RiskService  service.RiskServiceInterface
	AlertService service.AlertServiceInterface
	Hub          *websocket.Hub
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Назначение:
// Центральное место для определения всех API endpoints.
// Регистрирует handlers для каждого маршрута.
// Применяет middleware к группам маршрутов.
// Организует версионирование API (v1).
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /risk/
//	│   ├── GET /status - оценка портфеля
//	│   ├── GET /metrics - метрики сессии
//	│   ├── GET /positions - открытые позиции
//	│   ├── GET /account - состояние аккаунта
//	│   ├── GET /snapshots - суточные срезы
//	│   └── POST /check - pre-trade проверка сигнала
//	├── /sizing/
//	│   ├── POST /calculate - расчет размера позиции
//	│   ├── POST /scenarios - сценарии стоп-лосса
//	│   └── GET /stop-range - оптимальные стопы по плечам
//	└── /alerts/
//	    ├── GET / - журнал алертов
//	    ├── POST /{id}/ack - подтверждение алерта
//	    └── DELETE / - очистка журнала
//
// /ws/
//
//	└── /stream - WebSocket для real-time обновлений
//
// /metrics - Prometheus метрики
// /health - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. APIKeyAuth (только для /api/v1, если настроен API_KEY_HASH)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var riskHandler *handlers.RiskHandler
	var sizingHandler *handlers.SizingHandler
	if deps != nil && deps.RiskService != nil {
		riskHandler = handlers.NewRiskHandler(deps.RiskService)
		sizingHandler = handlers.NewSizingHandler(deps.RiskService)
	}

	var alertHandler *handlers.AlertHandler
	if deps != nil && deps.AlertService != nil {
		alertHandler = handlers.NewAlertHandler(deps.AlertService)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.APIKeyAuth)

	// Risk routes
	if riskHandler != nil {
		api.HandleFunc("/risk/status", riskHandler.GetStatus).Methods("GET")
		api.HandleFunc("/risk/metrics", riskHandler.GetMetrics).Methods("GET")
		api.HandleFunc("/risk/positions", riskHandler.GetPositions).Methods("GET")
		api.HandleFunc("/risk/account", riskHandler.GetAccount).Methods("GET")
		api.HandleFunc("/risk/snapshots", riskHandler.GetSnapshots).Methods("GET")
		api.HandleFunc("/risk/check", riskHandler.CheckTrade).Methods("POST")
	}

	// Sizing routes
	if sizingHandler != nil {
		api.HandleFunc("/sizing/calculate", sizingHandler.Calculate).Methods("POST")
		api.HandleFunc("/sizing/scenarios", sizingHandler.Scenarios).Methods("POST")
		api.HandleFunc("/sizing/stop-range", sizingHandler.StopRange).Methods("GET")
	}

	// Alert routes
	if alertHandler != nil {
		api.HandleFunc("/alerts", alertHandler.GetAlerts).Methods("GET")
		api.HandleFunc("/alerts/{id}/ack", alertHandler.AcknowledgeAlert).Methods("POST")
		api.HandleFunc("/alerts", alertHandler.ClearAlerts).Methods("DELETE")
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

	return router
}
