package handlers

import (
	"errors"
	"time"

	"riskengine/internal/models"
	"riskengine/internal/repository"
	"riskengine/internal/risk"
	"riskengine/internal/service"
)

// ErrMockDatabase - ошибка БД для негативных сценариев
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock RiskService ============

type MockRiskService struct {
	status    *models.PortfolioAssessment
	metrics   models.RiskMetrics
	account   models.AccountInfo
	positions []models.Position
	sizing    *models.SizingResult
	check     risk.CheckResult
	snapshots []models.RiskSnapshot

	statusErr error
	sizingErr error
	getErr    error
}

func NewMockRiskService() *MockRiskService {
	return &MockRiskService{
		status: &models.PortfolioAssessment{
			PortfolioRiskLevel: models.RiskLow,
			TotalBalance:       1000,
			Recommendation:     "Normal operations",
		},
		metrics: models.RiskMetrics{
			PortfolioValue:   1000,
			OverallRiskScore: 10,
			RiskLevel:        models.RiskLow,
		},
		account: models.AccountInfo{TotalWalletBalance: 1000},
		sizing: &models.SizingResult{
			Leverage:         3,
			SeedUsagePercent: 100,
			TargetRiskAmount: 30,
		},
		check: risk.CheckResult{Allowed: true, RiskLevel: models.RiskLow},
	}
}

func (m *MockRiskService) GetStatus() (*models.PortfolioAssessment, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

func (m *MockRiskService) GetMetrics() models.RiskMetrics {
	return m.metrics
}

func (m *MockRiskService) GetAccount() (models.AccountInfo, error) {
	if m.statusErr != nil {
		return models.AccountInfo{}, m.statusErr
	}
	return m.account, nil
}

func (m *MockRiskService) GetPositions() ([]models.Position, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.positions, nil
}

func (m *MockRiskService) CalculateSizing(entryPrice, stopLossPrice float64) (*models.SizingResult, error) {
	if m.sizingErr != nil {
		return nil, m.sizingErr
	}
	return m.sizing, nil
}

func (m *MockRiskService) CalculateScenarios(entryPrice float64, stops []float64) (map[float64]risk.ScenarioResult, error) {
	if m.sizingErr != nil {
		return nil, m.sizingErr
	}
	scenarios := make(map[float64]risk.ScenarioResult, len(stops))
	for _, stop := range stops {
		scenarios[stop] = risk.ScenarioResult{Result: m.sizing}
	}
	return scenarios, nil
}

func (m *MockRiskService) GetStopRange(entryPrice float64) ([]models.StopRangeOption, error) {
	if m.sizingErr != nil {
		return nil, m.sizingErr
	}
	return []models.StopRangeOption{
		{Leverage: 1, StopLossPrice: entryPrice * 0.97},
		{Leverage: 2, StopLossPrice: entryPrice * 0.985},
	}, nil
}

func (m *MockRiskService) CheckTrade(confidence float64) risk.CheckResult {
	return m.check
}

func (m *MockRiskService) GetSnapshots(from, to time.Time) ([]models.RiskSnapshot, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.snapshots, nil
}

// ============ Mock AlertService ============

type MockAlertService struct {
	alerts []models.RiskAlert
	getErr error
	ackErr error
	delErr error
	nextID int64
}

func NewMockAlertService() *MockAlertService {
	return &MockAlertService{nextID: 1}
}

func (m *MockAlertService) AddAlert(alertType string, level models.RiskLevel, message string) {
	m.alerts = append(m.alerts, models.RiskAlert{
		ID:        m.nextID,
		Timestamp: time.Now().UTC(),
		Type:      alertType,
		Level:     level,
		Message:   message,
	})
	m.nextID++
}

func (m *MockAlertService) GetAlerts(types []string, limit int) ([]models.RiskAlert, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if len(types) == 0 {
		if limit > len(m.alerts) {
			limit = len(m.alerts)
		}
		return m.alerts[:limit], nil
	}

	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	var result []models.RiskAlert
	for _, a := range m.alerts {
		if wanted[a.Type] && len(result) < limit {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *MockAlertService) GetUnacknowledged(limit int) ([]models.RiskAlert, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []models.RiskAlert
	for _, a := range m.alerts {
		if !a.Acknowledged && len(result) < limit {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *MockAlertService) Acknowledge(id int64) error {
	if m.ackErr != nil {
		return m.ackErr
	}
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Acknowledged = true
			return nil
		}
	}
	return repository.ErrAlertNotFound
}

func (m *MockAlertService) ClearAlerts() error {
	if m.delErr != nil {
		return m.delErr
	}
	m.alerts = nil
	return nil
}

func (m *MockAlertService) GetAlertCount() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.alerts), nil
}

// Проверяем, что mock'и реализуют интерфейсы сервисов
var _ service.RiskServiceInterface = (*MockRiskService)(nil)
var _ service.AlertServiceInterface = (*MockAlertService)(nil)
