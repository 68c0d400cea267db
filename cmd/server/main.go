package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"riskengine/internal/api"
	"riskengine/internal/config"
	"riskengine/internal/exchange"
	"riskengine/internal/repository"
	"riskengine/internal/risk"
	"riskengine/internal/service"
	"riskengine/internal/websocket"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.DSNWithoutPassword())

	// Инициализация репозиториев
	alertRepo := repository.NewAlertRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Клиент Binance Futures
	binanceClient := exchange.NewBinanceClient(
		cfg.Exchange.APIKey,
		cfg.Exchange.SecretKey,
		cfg.Exchange.Testnet,
	)

	// Контекст фоновых воркеров: отменяется при shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := binanceClient.Ping(ctx); err != nil {
		// Не фатально: движок продолжит попытки в цикле обновления
		log.Printf("Binance ping failed: %v", err)
	}

	// WebSocket hub для real-time обновлений
	hub := websocket.NewHub()
	go hub.Run()

	// Риск-движок: hub выступает broadcaster'ом
	engine := risk.NewEngine(cfg.Risk.EngineConfig(), binanceClient, hub)

	// Сервисный слой
	alertService := service.NewAlertService(alertRepo)
	riskService := service.NewRiskService(engine, snapshotRepo)

	// Восстановление недельного/месячного PNL из срезов прошлых дней
	if err := riskService.RefreshPeriodPnl(); err != nil {
		log.Printf("Failed to restore period PNL: %v", err)
	}

	// Фоновые воркеры
	go func() {
		if err := engine.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Risk engine stopped: %v", err)
		}
	}()
	go alertService.Run(ctx, engine.Alerts())
	go riskService.RunSnapshotWorker(ctx, cfg.Risk.SnapshotInterval)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		RiskService:  riskService,
		AlertService: alertService,
		Hub:          hub,
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
		log.Printf("Starting server on %s", server.Addr)
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Останавливаем воркеры: RunSnapshotWorker пишет финальный срез
	// до выхода, журнал алертов уже персистентен
	cancel()
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// initDatabase создает подключение к базе данных и схему
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
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

	if err := repository.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}
