package service

import (
	"time"

	"riskengine/internal/models"
	"riskengine/internal/repository"
	"riskengine/internal/risk"
)

// AlertRepositoryInterface определяет интерфейс репозитория алертов
type AlertRepositoryInterface interface {
	Create(alert *models.RiskAlert) error
	GetRecent(limit int) ([]models.RiskAlert, error)
	GetByTypes(types []string, limit int) ([]models.RiskAlert, error)
	GetUnacknowledged(limit int) ([]models.RiskAlert, error)
	Acknowledge(id int64) error
	DeleteAll() error
	DeleteOlderThan(before time.Time) (int64, error)
	Count() (int, error)
}

// SnapshotRepositoryInterface определяет интерфейс репозитория суточных срезов
type SnapshotRepositoryInterface interface {
	Upsert(snap *models.RiskSnapshot) error
	GetByDay(day time.Time) (*models.RiskSnapshot, error)
	GetRange(from, to time.Time) ([]models.RiskSnapshot, error)
	SumPnlSince(since time.Time) (float64, error)
	MaxDrawdownSince(since time.Time) (float64, error)
	DeleteOlderThan(before time.Time) (int64, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ AlertRepositoryInterface = (*repository.AlertRepository)(nil)
var _ SnapshotRepositoryInterface = (*repository.SnapshotRepository)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// RiskServiceInterface определяет интерфейс риск-сервиса
type RiskServiceInterface interface {
	GetStatus() (*models.PortfolioAssessment, error)
	GetMetrics() models.RiskMetrics
	GetAccount() (models.AccountInfo, error)
	GetPositions() ([]models.Position, error)
	CalculateSizing(entryPrice, stopLossPrice float64) (*models.SizingResult, error)
	CalculateScenarios(entryPrice float64, stops []float64) (map[float64]risk.ScenarioResult, error)
	GetStopRange(entryPrice float64) ([]models.StopRangeOption, error)
	CheckTrade(confidence float64) risk.CheckResult
	GetSnapshots(from, to time.Time) ([]models.RiskSnapshot, error)
}

// AlertServiceInterface определяет интерфейс сервиса алертов
type AlertServiceInterface interface {
	GetAlerts(types []string, limit int) ([]models.RiskAlert, error)
	GetUnacknowledged(limit int) ([]models.RiskAlert, error)
	Acknowledge(id int64) error
	ClearAlerts() error
	GetAlertCount() (int, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ RiskServiceInterface = (*RiskService)(nil)
var _ AlertServiceInterface = (*AlertService)(nil)
