package risk

import (
	"fmt"
	"sync"
	"time"

	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

// Пороги предупреждений трекера (доли от лимитов)
const (
	dailyLossWarnFraction = 0.80
	drawdownWarnFraction  = 0.70
	concentrationWarnPct  = 40.0

	// Балл, при котором включается аварийная остановка независимо
	// от отдельных лимитов
	emergencyScoreThreshold = 95

	// При устаревших данных лимиты ужесточаются: остановка срабатывает
	// уже на 90% порога
	staleLimitFraction = 0.90

	maxStoredAlerts = 100
)

// Множители размера позиции по уровням риска. Применяются к целевому
// риску при валидации входящих сигналов.
var riskSizeMultipliers = map[models.RiskLevel]float64{
	models.RiskLow:      1.0,
	models.RiskMedium:   0.8,
	models.RiskHigh:     0.5,
	models.RiskCritical: 0.2,
}

// Минимальная уверенность сигнала (0-100) по уровням риска
var minSignalConfidence = map[models.RiskLevel]float64{
	models.RiskLow:      60,
	models.RiskMedium:   70,
	models.RiskHigh:     80,
	models.RiskCritical: 90,
}

// AlertHandler вызывается на каждый новый алерт трекера.
// Вызов происходит под мьютексом - обработчик не должен блокироваться.
type AlertHandler func(models.RiskAlert)

// Tracker - состояние риска торговой сессии
//
// Ведёт дневной PNL, пик портфеля, дроудаун и общий балл риска.
// Потокобезопасен: один мьютекс на всё состояние, операции короткие.
//
// Дневной rollover происходит лениво при первом Update нового дня:
// дневной PNL и флаги предупреждений сбрасываются, максимальный
// дроудаун и пик сохраняются на всю сессию.
type Tracker struct {
	mu     sync.Mutex
	limits models.LossLimits

	sessionStart  time.Time
	currentDay    time.Time
	dayStartValue float64
	peakValue     float64

	metrics models.RiskMetrics

	alerts   []models.RiskAlert
	alertSeq int64
	onAlert  AlertHandler

	// Предупреждения срабатывают один раз в день на условие
	warnedDailyLoss     bool
	warnedDrawdown      bool
	warnedConcentration bool

	initialized bool

	now func() time.Time
}

// NewTracker создаёт трекер с заданными лимитами потерь
func NewTracker(limits models.LossLimits) *Tracker {
	return &Tracker{
		limits: limits,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetAlertHandler устанавливает обработчик новых алертов
func (t *Tracker) SetAlertHandler(handler AlertHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAlert = handler
}

// Limits возвращает лимиты потерь трекера
func (t *Tracker) Limits() models.LossLimits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limits
}

// Update обновляет метрики по свежему снимку портфеля
//
// Параметры:
//   - portfolioValue: текущая стоимость портфеля (маржинальный баланс)
//   - totalExposure: суммарный нотинал открытых позиций
//   - concentrationPct: вес крупнейшего символа в экспозиции, 0-100
//   - volatilityScore: оценка волатильности портфеля, 0-1
//
// Возвращает снимок метрик после обновления.
func (t *Tracker) Update(portfolioValue, totalExposure, concentrationPct, volatilityScore float64) models.RiskMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	day := now.Truncate(24 * time.Hour)

	if !t.initialized {
		t.sessionStart = now
		t.currentDay = day
		t.dayStartValue = portfolioValue
		t.peakValue = portfolioValue
		t.initialized = true
	} else if day.After(t.currentDay) {
		t.rollover(day, portfolioValue)
	}

	if portfolioValue > t.peakValue {
		t.peakValue = portfolioValue
	}

	dailyPnl := portfolioValue - t.dayStartValue
	dailyLossPct := 0.0
	if dailyPnl < 0 && t.dayStartValue > 0 {
		dailyLossPct = -dailyPnl / t.dayStartValue * 100
	}

	drawdownPct := utils.Drawdown(t.peakValue, portfolioValue)
	if drawdownPct > t.metrics.MaxDrawdownPct {
		t.metrics.MaxDrawdownPct = drawdownPct
	}

	score := riskScore(dailyLossPct, t.limits.DailyLimitPct,
		drawdownPct, t.limits.MaxDrawdownPct,
		concentrationPct, volatilityScore)

	t.metrics.DailyPnl = dailyPnl
	t.metrics.DailyLossPercent = dailyLossPct
	t.metrics.PortfolioValue = portfolioValue
	t.metrics.TotalExposure = totalExposure
	t.metrics.PeakPortfolioValue = t.peakValue
	t.metrics.CurrentDrawdownPct = drawdownPct
	t.metrics.ConcentrationPct = concentrationPct
	t.metrics.VolatilityScore = volatilityScore
	t.metrics.OverallRiskScore = score
	t.metrics.RiskLevel = scoreRiskLevel(score)
	t.metrics.Stale = false
	t.metrics.LastUpdate = now

	t.emitWarnings(dailyLossPct, drawdownPct, concentrationPct)

	return t.metrics
}

// SetPeriodPnl задаёт недельный и месячный PNL, посчитанные из
// персистентных суточных срезов
func (t *Tracker) SetPeriodPnl(weekly, monthly float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.WeeklyPnl = weekly
	t.metrics.MonthlyPnl = monthly
}

// MarkStale помечает метрики устаревшими после неудачного обновления.
// Данные остаются last-known, аварийные пороги ужесточаются.
func (t *Tracker) MarkStale() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics.Stale = true
}

// Metrics возвращает текущий снимок метрик
func (t *Tracker) Metrics() models.RiskMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}

// EmergencyStopCheck проверяет условия аварийной остановки торговли
//
// Срабатывает при:
//   - дневной потере >= дневного лимита (% или абсолютной суммы)
//   - дроудауне >= максимального
//   - общем балле риска >= 95
//
// При устаревших данных пороги умножаются на 0.9 - недоступность
// биржи вблизи лимита трактуется в пользу остановки.
//
// Возвращает флаг остановки и причину.
func (t *Tracker) EmergencyStopCheck() (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	limitFraction := 1.0
	if t.metrics.Stale {
		limitFraction = staleLimitFraction
	}

	dailyLimitPct := t.limits.DailyLimitPct * limitFraction
	dailyLimitAmount := t.limits.DailyLimitAmount * limitFraction
	maxDrawdown := t.limits.MaxDrawdownPct * limitFraction

	switch {
	case dailyLimitPct > 0 && t.metrics.DailyLossPercent >= dailyLimitPct:
		reason := fmt.Sprintf("daily loss %.2f%% reached limit %.2f%%",
			t.metrics.DailyLossPercent, dailyLimitPct)
		t.addAlertLocked(models.AlertTypeEmergency, models.RiskCritical, reason, nil)
		return true, reason

	case dailyLimitAmount > 0 && -t.metrics.DailyPnl >= dailyLimitAmount:
		reason := fmt.Sprintf("daily loss %.2f USDT reached limit %.2f USDT",
			-t.metrics.DailyPnl, dailyLimitAmount)
		t.addAlertLocked(models.AlertTypeEmergency, models.RiskCritical, reason, nil)
		return true, reason

	case maxDrawdown > 0 && t.metrics.CurrentDrawdownPct >= maxDrawdown:
		reason := fmt.Sprintf("drawdown %.2f%% reached limit %.2f%%",
			t.metrics.CurrentDrawdownPct, maxDrawdown)
		t.addAlertLocked(models.AlertTypeEmergency, models.RiskCritical, reason, nil)
		return true, reason

	case t.metrics.OverallRiskScore >= emergencyScoreThreshold:
		reason := fmt.Sprintf("overall risk score %d exceeds emergency threshold %d",
			t.metrics.OverallRiskScore, emergencyScoreThreshold)
		t.addAlertLocked(models.AlertTypeEmergency, models.RiskCritical, reason, nil)
		return true, reason
	}

	return false, ""
}

// SizeMultiplier - множитель размера позиции для текущего уровня риска
func (t *Tracker) SizeMultiplier() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := riskSizeMultipliers[t.metrics.RiskLevel]; ok {
		return m
	}
	return 1.0
}

// MinConfidence - минимальная уверенность сигнала для текущего уровня риска
func (t *Tracker) MinConfidence() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := minSignalConfidence[t.metrics.RiskLevel]; ok {
		return c
	}
	return 60
}

// RecentAlerts возвращает последние limit алертов, новые первыми
func (t *Tracker) RecentAlerts(limit int) []models.RiskAlert {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit <= 0 || limit > len(t.alerts) {
		limit = len(t.alerts)
	}

	result := make([]models.RiskAlert, 0, limit)
	for i := len(t.alerts) - 1; i >= len(t.alerts)-limit; i-- {
		result = append(result, t.alerts[i])
	}
	return result
}

// Acknowledge помечает алерт подтверждённым
func (t *Tracker) Acknowledge(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.alerts {
		if t.alerts[i].ID == id {
			t.alerts[i].Acknowledged = true
			return true
		}
	}
	return false
}

// DailySnapshot - суточный срез для персистенции
func (t *Tracker) DailySnapshot() models.RiskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return models.RiskSnapshot{
		Day:            t.currentDay,
		DailyPnl:       t.metrics.DailyPnl,
		MaxDrawdownPct: t.metrics.MaxDrawdownPct,
		PeakValue:      t.peakValue,
		RiskScore:      t.metrics.OverallRiskScore,
	}
}

// rollover - переход на новый торговый день.
// Дневные величины сбрасываются, пик и максимальный дроудаун
// сохраняются на всю сессию.
func (t *Tracker) rollover(day time.Time, portfolioValue float64) {
	t.currentDay = day
	t.dayStartValue = portfolioValue
	t.warnedDailyLoss = false
	t.warnedDrawdown = false
	t.warnedConcentration = false
}

// emitWarnings - предупреждения при приближении к лимитам.
// Каждое условие срабатывает не чаще раза в день.
func (t *Tracker) emitWarnings(dailyLossPct, drawdownPct, concentrationPct float64) {
	if !t.warnedDailyLoss && t.limits.DailyLimitPct > 0 &&
		dailyLossPct >= t.limits.DailyLimitPct*dailyLossWarnFraction {
		t.warnedDailyLoss = true
		t.addAlertLocked(models.AlertTypeWarning, models.RiskHigh,
			fmt.Sprintf("daily loss %.2f%% approaching limit %.2f%%", dailyLossPct, t.limits.DailyLimitPct),
			map[string]interface{}{"daily_loss_pct": dailyLossPct})
	}

	if !t.warnedDrawdown && t.limits.MaxDrawdownPct > 0 &&
		drawdownPct >= t.limits.MaxDrawdownPct*drawdownWarnFraction {
		t.warnedDrawdown = true
		t.addAlertLocked(models.AlertTypeWarning, models.RiskHigh,
			fmt.Sprintf("drawdown %.2f%% approaching limit %.2f%%", drawdownPct, t.limits.MaxDrawdownPct),
			map[string]interface{}{"drawdown_pct": drawdownPct})
	}

	if !t.warnedConcentration && concentrationPct >= concentrationWarnPct {
		t.warnedConcentration = true
		t.addAlertLocked(models.AlertTypeWarning, models.RiskMedium,
			fmt.Sprintf("position concentration %.1f%% too high", concentrationPct),
			map[string]interface{}{"concentration_pct": concentrationPct})
	}
}

// addAlertLocked добавляет алерт. Вызывается только под мьютексом.
func (t *Tracker) addAlertLocked(alertType string, level models.RiskLevel, message string, data map[string]interface{}) {
	t.alertSeq++
	alert := models.RiskAlert{
		ID:        t.alertSeq,
		Timestamp: t.now(),
		Type:      alertType,
		Level:     level,
		Message:   message,
		Data:      data,
	}

	t.alerts = append(t.alerts, alert)
	if len(t.alerts) > maxStoredAlerts {
		t.alerts = t.alerts[len(t.alerts)-maxStoredAlerts:]
	}

	if t.onAlert != nil {
		t.onAlert(alert)
	}
}

// riskScore - взвешенный балл риска 0-100.
// Веса: дневная потеря 40, дроудаун 30, концентрация 20, волатильность 10.
func riskScore(dailyLossPct, dailyLimitPct, drawdownPct, maxDrawdownPct, concentrationPct, volatilityScore float64) int {
	score := 0.0

	if dailyLimitPct > 0 {
		score += utils.Clamp(dailyLossPct/dailyLimitPct*40, 0, 40)
	}
	if maxDrawdownPct > 0 {
		score += utils.Clamp(drawdownPct/maxDrawdownPct*30, 0, 30)
	}
	score += utils.Clamp(concentrationPct/50*20, 0, 20)
	score += utils.Clamp(volatilityScore/0.1*10, 0, 10)

	return int(score)
}

// scoreRiskLevel переводит балл 0-100 в уровень риска
func scoreRiskLevel(score int) models.RiskLevel {
	switch {
	case score >= 80:
		return models.RiskCritical
	case score >= 60:
		return models.RiskHigh
	case score >= 40:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
