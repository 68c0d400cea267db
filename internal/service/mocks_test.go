package service

import (
	"time"

	"riskengine/internal/models"
	"riskengine/internal/repository"
)

// ============ Mock AlertRepository ============

type MockAlertRepository struct {
	alerts    []models.RiskAlert
	createErr error
	getErr    error
	deleteErr error
	nextID    int64
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{nextID: 1}
}

func (m *MockAlertRepository) Create(alert *models.RiskAlert) error {
	if m.createErr != nil {
		return m.createErr
	}
	alert.ID = m.nextID
	m.nextID++
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *MockAlertRepository) GetRecent(limit int) ([]models.RiskAlert, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]models.RiskAlert, 0, limit)
	for i := len(m.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.alerts[i])
	}
	return result, nil
}

func (m *MockAlertRepository) GetByTypes(types []string, limit int) ([]models.RiskAlert, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	var result []models.RiskAlert
	for i := len(m.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		if wanted[m.alerts[i].Type] {
			result = append(result, m.alerts[i])
		}
	}
	return result, nil
}

func (m *MockAlertRepository) GetUnacknowledged(limit int) ([]models.RiskAlert, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []models.RiskAlert
	for i := len(m.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		if !m.alerts[i].Acknowledged {
			result = append(result, m.alerts[i])
		}
	}
	return result, nil
}

func (m *MockAlertRepository) Acknowledge(id int64) error {
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Acknowledged = true
			return nil
		}
	}
	return repository.ErrAlertNotFound
}

func (m *MockAlertRepository) DeleteAll() error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.alerts = nil
	return nil
}

func (m *MockAlertRepository) DeleteOlderThan(before time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var kept []models.RiskAlert
	var deleted int64
	for _, a := range m.alerts {
		if a.Timestamp.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept
	return deleted, nil
}

func (m *MockAlertRepository) Count() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.alerts), nil
}

// ============ Mock SnapshotRepository ============

type MockSnapshotRepository struct {
	snapshots map[time.Time]*models.RiskSnapshot
	upsertErr error
	getErr    error
	nextID    int
}

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{
		snapshots: make(map[time.Time]*models.RiskSnapshot),
		nextID:    1,
	}
}

func (m *MockSnapshotRepository) Upsert(snap *models.RiskSnapshot) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if existing, ok := m.snapshots[snap.Day]; ok {
		snap.ID = existing.ID
	} else {
		snap.ID = m.nextID
		m.nextID++
	}
	stored := *snap
	m.snapshots[snap.Day] = &stored
	return nil
}

func (m *MockSnapshotRepository) GetByDay(day time.Time) (*models.RiskSnapshot, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if snap, ok := m.snapshots[day]; ok {
		copied := *snap
		return &copied, nil
	}
	return nil, repository.ErrSnapshotNotFound
}

func (m *MockSnapshotRepository) GetRange(from, to time.Time) ([]models.RiskSnapshot, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []models.RiskSnapshot
	for day, snap := range m.snapshots {
		if !day.Before(from) && !day.After(to) {
			result = append(result, *snap)
		}
	}
	return result, nil
}

func (m *MockSnapshotRepository) SumPnlSince(since time.Time) (float64, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	var sum float64
	for day, snap := range m.snapshots {
		if !day.Before(since) {
			sum += snap.DailyPnl
		}
	}
	return sum, nil
}

func (m *MockSnapshotRepository) MaxDrawdownSince(since time.Time) (float64, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	var dd float64
	for day, snap := range m.snapshots {
		if !day.Before(since) && snap.MaxDrawdownPct > dd {
			dd = snap.MaxDrawdownPct
		}
	}
	return dd, nil
}

func (m *MockSnapshotRepository) DeleteOlderThan(before time.Time) (int64, error) {
	var deleted int64
	for day := range m.snapshots {
		if day.Before(before) {
			delete(m.snapshots, day)
			deleted++
		}
	}
	return deleted, nil
}

// Проверяем, что mock'и реализуют интерфейсы
var _ AlertRepositoryInterface = (*MockAlertRepository)(nil)
var _ SnapshotRepositoryInterface = (*MockSnapshotRepository)(nil)
