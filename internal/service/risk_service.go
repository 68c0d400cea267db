package service

import (
	"context"
	"log"
	"time"

	"riskengine/internal/models"
	"riskengine/internal/risk"
	"riskengine/pkg/utils"
)

// RiskService - фасад над риск-движком для API слоя
//
// Отвечает за:
// - Доступ к текущему состоянию портфеля и метрикам сессии
// - Расчет размера позиции (сайзинг, сценарии, диапазон стопов)
// - Pre-trade проверку сигналов
// - Персистенцию суточных срезов и подгрузку недельного/месячного PNL
//
// Сам движок ничего не знает о БД: срезы пишет сервис, он же
// возвращает в трекер агрегаты из истории.
type RiskService struct {
	engine       *risk.Engine
	snapshotRepo SnapshotRepositoryInterface
}

// NewRiskService создает новый экземпляр RiskService.
func NewRiskService(engine *risk.Engine, snapshotRepo SnapshotRepositoryInterface) *RiskService {
	return &RiskService{
		engine:       engine,
		snapshotRepo: snapshotRepo,
	}
}

// GetStatus возвращает последнюю оценку портфеля.
//
// Возвращает risk.ErrNoAccountData если данные еще не загружались.
func (s *RiskService) GetStatus() (*models.PortfolioAssessment, error) {
	return s.engine.PortfolioStatus()
}

// GetMetrics возвращает текущие метрики риска сессии.
func (s *RiskService) GetMetrics() models.RiskMetrics {
	return s.engine.Metrics()
}

// GetAccount возвращает last-known состояние аккаунта.
func (s *RiskService) GetAccount() (models.AccountInfo, error) {
	return s.engine.Account()
}

// GetPositions возвращает last-known открытые позиции.
func (s *RiskService) GetPositions() ([]models.Position, error) {
	return s.engine.Positions()
}

// CalculateSizing рассчитывает размер позиции для пары entry/stop.
func (s *RiskService) CalculateSizing(entryPrice, stopLossPrice float64) (*models.SizingResult, error) {
	return s.engine.SizePosition(entryPrice, stopLossPrice)
}

// CalculateScenarios считает сайзинг для нескольких вариантов стоп-лосса.
func (s *RiskService) CalculateScenarios(entryPrice float64, stops []float64) (map[float64]risk.ScenarioResult, error) {
	return s.engine.SizingScenarios(entryPrice, stops)
}

// GetStopRange возвращает оптимальные стоп-лоссы по диапазону плеч.
func (s *RiskService) GetStopRange(entryPrice float64) ([]models.StopRangeOption, error) {
	return s.engine.StopRange(entryPrice)
}

// CheckTrade выполняет pre-trade проверку сигнала.
//
// Параметры:
// - confidence: уверенность сигнала 0-100
func (s *RiskService) CheckTrade(confidence float64) risk.CheckResult {
	return s.engine.PreTradeCheck(confidence)
}

// GetSnapshots возвращает суточные срезы за период.
func (s *RiskService) GetSnapshots(from, to time.Time) ([]models.RiskSnapshot, error) {
	return s.snapshotRepo.GetRange(from, to)
}

// PersistSnapshot сохраняет текущий суточный срез трекера.
//
// Upsert по дню: повторные вызовы в течение дня обновляют ту же строку.
func (s *RiskService) PersistSnapshot() error {
	snap := s.engine.Tracker().DailySnapshot()
	if snap.Day.IsZero() {
		// Трекер еще не получил ни одного обновления
		return nil
	}
	return s.snapshotRepo.Upsert(&snap)
}

// RefreshPeriodPnl подгружает недельный и месячный PNL из истории
// срезов и передает в трекер для проверки периодных лимитов.
func (s *RiskService) RefreshPeriodPnl() error {
	now := time.Now().UTC()

	// Неделя - скользящее окно из 7 торговых дней, месяц - календарный
	weekStart := utils.RollingWindowStart(now, 7)
	monthStart := utils.GetMonthStartFrom(now)

	weekly, err := s.snapshotRepo.SumPnlSince(weekStart)
	if err != nil {
		return err
	}

	monthly, err := s.snapshotRepo.SumPnlSince(monthStart)
	if err != nil {
		return err
	}

	s.engine.Tracker().SetPeriodPnl(weekly, monthly)
	return nil
}

// RunSnapshotWorker периодически сохраняет суточный срез и обновляет
// периодный PNL до отмены контекста. При остановке пишет финальный срез.
//
// Запускается отдельной горутиной в main.go.
func (s *RiskService) RunSnapshotWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.PersistSnapshot(); err != nil {
				log.Printf("risk service: final snapshot failed: %v", err)
			}
			return
		case <-ticker.C:
			if err := s.PersistSnapshot(); err != nil {
				log.Printf("risk service: snapshot failed: %v", err)
				continue
			}
			if err := s.RefreshPeriodPnl(); err != nil {
				log.Printf("risk service: period pnl refresh failed: %v", err)
			}
		}
	}
}
