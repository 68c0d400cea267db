// Package integration contains integration tests for the risk engine.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: schema, transactions, repositories
//
// Tests skip automatically when the test database is unreachable.
// Run with: go test ./tests/integration/...
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"riskengine/internal/api"
	"riskengine/internal/models"
	"riskengine/internal/repository"
	"riskengine/internal/risk"
	"riskengine/internal/service"
	"riskengine/internal/websocket"
)

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB     *sql.DB
	Router *mux.Router
	Server *httptest.Server
	Hub    *websocket.Hub

	AlertRepo    *repository.AlertRepository
	SnapshotRepo *repository.SnapshotRepository

	Engine       *risk.Engine
	RiskService  *service.RiskService
	AlertService *service.AlertService

	Source  *fakeAccountSource
	Cleanup func()
}

// fakeAccountSource feeds the engine deterministic account data so
// integration tests never touch a real exchange.
type fakeAccountSource struct {
	account   models.AccountInfo
	positions []models.Position
	err       error
}

func (f *fakeAccountSource) GetAccount(ctx context.Context) (*models.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	account := f.account
	return &account, nil
}

func (f *fakeAccountSource) GetPositions(ctx context.Context) ([]models.Position, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Position(nil), f.positions...), nil
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "riskengine_test"),
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

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	// Test connection
	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	// Set connection pool settings
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

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ctxCancel()

	if err := repository.EnsureSchema(ctx, db); err != nil {
		dbCleanup()
		t.Skipf("Skipping integration test: cannot initialize schema: %v", err)
		return nil
	}
	cleanupTestTables(db)

	// Create WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Create repositories
	alertRepo := repository.NewAlertRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Engine with a deterministic account source: balance 10000,
	// one open long position
	source := &fakeAccountSource{
		account: models.AccountInfo{
			TotalWalletBalance: 10000,
			TotalMarginBalance: 10000,
			AvailableBalance:   9000,
			UpdatedAt:          time.Now().UTC(),
		},
		positions: []models.Position{
			{
				Symbol:           "BTCUSDT",
				Side:             models.SideLong,
				EntryPrice:       50000,
				MarkPrice:        50500,
				Quantity:         0.02,
				Leverage:         5,
				MarginUsed:       202,
				UnrealizedPnl:    10,
				LiquidationPrice: 40500,
				UpdatedAt:        time.Now().UTC(),
			},
		},
	}

	engine := risk.NewEngine(risk.EngineConfig{
		RefreshInterval: time.Minute,
		RiskPercentage:  3.0,
		MaxLeverage:     20,
		TolerancePct:    1.0,
		Limits: models.LossLimits{
			DailyLimitPct:   3.0,
			WeeklyLimitPct:  8.0,
			MonthlyLimitPct: 15.0,
			MaxDrawdownPct:  20.0,
		},
	}, source, hub)

	// Create services
	alertService := service.NewAlertService(alertRepo)
	riskService := service.NewRiskService(engine, snapshotRepo)

	// Setup router
	deps := &api.Dependencies{
		RiskService:  riskService,
		AlertService: alertService,
		Hub:          hub,
	}
	router := api.SetupRoutes(deps)

	// Create test server
	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		hub.Stop()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:           db,
		Router:       router,
		Server:       server,
		Hub:          hub,
		AlertRepo:    alertRepo,
		SnapshotRepo: snapshotRepo,
		Engine:       engine,
		RiskService:  riskService,
		AlertService: alertService,
		Source:       source,
		Cleanup:      cleanup,
	}
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"risk_alerts",
		"risk_snapshots",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
	}
}
