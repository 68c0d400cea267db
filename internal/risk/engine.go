package risk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"riskengine/internal/models"
	"riskengine/pkg/retry"
	"riskengine/pkg/utils"
)

// ErrNoAccountData - данные аккаунта ещё ни разу не загружались
var ErrNoAccountData = errors.New("no account data available yet")

// Окно портфельных значений для оценки волатильности
const volatilityWindow = 24

// AccountSource - источник данных аккаунта и позиций
//
// Реализуется пакетом internal/exchange (Binance USDT-M Futures).
type AccountSource interface {
	// GetAccount возвращает балансы фьючерсного аккаунта
	GetAccount(ctx context.Context) (*models.AccountInfo, error)

	// GetPositions возвращает открытые позиции
	GetPositions(ctx context.Context) ([]models.Position, error)
}

// Broadcaster - интерфейс для отправки состояния риска клиентам
//
// Реализуется сервисным слоем поверх internal/websocket/Hub.
type Broadcaster interface {
	// BroadcastRiskStatus отправляет снимок портфеля и метрик
	// Вызывается после каждого успешного цикла обновления
	BroadcastRiskStatus(pf *models.PortfolioAssessment, metrics models.RiskMetrics)

	// BroadcastAlert отправляет новый алерт
	BroadcastAlert(alert models.RiskAlert)
}

// EngineConfig - конфигурация риск-движка
type EngineConfig struct {
	// Интервал цикла обновления данных аккаунта
	RefreshInterval time.Duration

	// Целевой риск на сделку в % от баланса
	RiskPercentage float64

	// Потолок плеча биржи
	MaxLeverage int

	// Допуск оптимизатора плеча в %
	TolerancePct float64

	// Шаг объёма ордера для округления сайзинга (0 = без округления)
	LotSize float64

	// Лимиты потерь сессии
	Limits models.LossLimits
}

// Engine - риск-движок: периодический мониторинг портфеля,
// сайзинг позиций и pre-trade проверки
//
// Поток данных:
// Binance → refresh worker → Assessor → Tracker → Prometheus + WebSocket
//
// При неудачном обновлении движок продолжает работать на last-known
// данных с флагом stale; аварийные пороги при этом ужесточаются.
type Engine struct {
	cfg      EngineConfig
	source   AccountSource
	assessor *Assessor
	tracker  *Tracker

	broadcaster Broadcaster

	// Канал новых алертов для персистенции сервисным слоем
	alertCh chan models.RiskAlert

	mu            sync.RWMutex
	lastAccount   models.AccountInfo
	lastPositions []models.Position
	lastPortfolio *models.PortfolioAssessment
	hasData       bool

	// Окно значений портфеля для оценки волатильности
	recentValues []float64

	emergencyActive bool

	retryCfg retry.Config
}

// NewEngine создаёт риск-движок
//
// broadcaster может быть nil - тогда real-time рассылка отключена.
func NewEngine(cfg EngineConfig, source AccountSource, broadcaster Broadcaster) *Engine {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.TolerancePct <= 0 {
		cfg.TolerancePct = 1.0
	}
	if cfg.MaxLeverage < 1 {
		cfg.MaxLeverage = 20
	}

	e := &Engine{
		cfg:      cfg,
		source:   source,
		assessor: NewAssessor(cfg.Limits.DailyLimitPct),
		tracker:  NewTracker(cfg.Limits),

		broadcaster: broadcaster,
		alertCh:     make(chan models.RiskAlert, 100),

		retryCfg: retry.ConservativeConfig(),
	}

	e.tracker.SetAlertHandler(e.handleAlert)

	return e
}

// Tracker возвращает трекер метрик сессии
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Run запускает цикл мониторинга до отмены контекста
func (e *Engine) Run(ctx context.Context) error {
	// Первое обновление сразу, не ждём тикер
	if err := e.Refresh(ctx); err != nil {
		log.Printf("risk engine: initial refresh failed: %v", err)
	}

	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Refresh(ctx); err != nil {
				log.Printf("risk engine: refresh failed, serving stale data: %v", err)
			}
		}
	}
}

// Refresh выполняет один цикл обновления: загрузка аккаунта и позиций,
// оценка портфеля, обновление трекера и метрик
func (e *Engine) Refresh(ctx context.Context) error {
	start := time.Now()

	account, positions, err := e.fetch(ctx)
	if err != nil {
		RefreshErrors.Inc()
		e.markStale()
		return fmt.Errorf("fetch account data: %w", err)
	}

	pf := e.assessor.AssessPortfolio(positions, *account)

	exposure, concentration := exposureStats(positions)
	volatility := e.pushValue(account.TotalMarginBalance)

	metrics := e.tracker.Update(account.TotalMarginBalance, exposure, concentration, volatility)

	e.mu.Lock()
	e.lastAccount = *account
	e.lastPositions = positions
	e.lastPortfolio = &pf
	e.hasData = true
	e.mu.Unlock()

	UpdatePortfolioMetrics(&pf, metrics)
	RefreshLatency.Observe(float64(time.Since(start).Milliseconds()))

	if stop, reason := e.checkEmergency(); stop {
		log.Printf("risk engine: EMERGENCY STOP: %s", reason)
	}

	if e.broadcaster != nil {
		e.broadcaster.BroadcastRiskStatus(&pf, metrics)
	}

	return nil
}

// fetch загружает аккаунт и позиции с retry для сетевых сбоев
func (e *Engine) fetch(ctx context.Context) (*models.AccountInfo, []models.Position, error) {
	cfg := e.retryCfg
	cfg.RetryIf = retry.RetryIfNotContext

	account, err := retry.DoWithResult(ctx, func() (*models.AccountInfo, error) {
		return e.source.GetAccount(ctx)
	}, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("get account: %w", err)
	}

	positions, err := retry.DoWithResult(ctx, func() ([]models.Position, error) {
		return e.source.GetPositions(ctx)
	}, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("get positions: %w", err)
	}

	return account, positions, nil
}

// markStale помечает last-known данные устаревшими
func (e *Engine) markStale() {
	e.tracker.MarkStale()
	DataStale.Set(1)

	e.mu.Lock()
	if e.lastPortfolio != nil {
		stale := *e.lastPortfolio
		stale.Stale = true
		e.lastPortfolio = &stale
	}
	e.mu.Unlock()
}

// checkEmergency проверяет аварийную остановку, счётчик
// инкрементируется один раз на переход
func (e *Engine) checkEmergency() (bool, string) {
	stop, reason := e.tracker.EmergencyStopCheck()

	e.mu.Lock()
	defer e.mu.Unlock()

	if stop && !e.emergencyActive {
		e.emergencyActive = true
		EmergencyStops.Inc()
	}
	if !stop {
		e.emergencyActive = false
	}

	return stop, reason
}

// handleAlert - обработчик новых алертов трекера.
// Не блокируется: при заполненном канале алерт теряется для
// персистенции, но остаётся в памяти трекера.
func (e *Engine) handleAlert(alert models.RiskAlert) {
	RecordAlert(alert.Type)

	select {
	case e.alertCh <- alert:
	default:
	}

	if e.broadcaster != nil {
		e.broadcaster.BroadcastAlert(alert)
	}
}

// Alerts - канал новых алертов для персистенции
func (e *Engine) Alerts() <-chan models.RiskAlert {
	return e.alertCh
}

// PortfolioStatus возвращает последнюю оценку портфеля
func (e *Engine) PortfolioStatus() (*models.PortfolioAssessment, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.hasData {
		return nil, ErrNoAccountData
	}

	pf := *e.lastPortfolio
	return &pf, nil
}

// Metrics возвращает текущие метрики сессии
func (e *Engine) Metrics() models.RiskMetrics {
	return e.tracker.Metrics()
}

// Account возвращает last-known состояние аккаунта
func (e *Engine) Account() (models.AccountInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.hasData {
		return models.AccountInfo{}, ErrNoAccountData
	}
	return e.lastAccount, nil
}

// Positions возвращает last-known открытые позиции
func (e *Engine) Positions() ([]models.Position, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.hasData {
		return nil, ErrNoAccountData
	}

	positions := make([]models.Position, len(e.lastPositions))
	copy(positions, e.lastPositions)
	return positions, nil
}

// ============================================================
// Сайзинг
// ============================================================

// sizer строит сайзер на текущем балансе с учётом множителя
// текущего уровня риска
func (e *Engine) sizer() (*PositionSizer, error) {
	e.mu.RLock()
	balance := e.lastAccount.TotalWalletBalance
	hasData := e.hasData
	e.mu.RUnlock()

	if !hasData {
		return nil, ErrNoAccountData
	}

	effectiveRisk := e.cfg.RiskPercentage * e.tracker.SizeMultiplier()

	return NewPositionSizer(SizerConfig{
		AccountBalance: balance,
		RiskPercentage: effectiveRisk,
		MaxLeverage:    e.cfg.MaxLeverage,
		TolerancePct:   e.cfg.TolerancePct,
		LotSize:        e.cfg.LotSize,
	})
}

// SizePosition рассчитывает размер позиции для пары entry/stop
// на текущем балансе аккаунта
func (e *Engine) SizePosition(entryPrice, stopLossPrice float64) (*models.SizingResult, error) {
	sizer, err := e.sizer()
	if err != nil {
		RecordSizing("error")
		return nil, err
	}

	result, err := sizer.Calculate(entryPrice, stopLossPrice)
	if err != nil {
		RecordSizing("error")
		return nil, err
	}

	if result.TargetMultiplier > float64(e.cfg.MaxLeverage) {
		RecordSizing("clamped")
	} else {
		RecordSizing("ok")
	}

	return result, nil
}

// SizingScenarios считает сайзинг для нескольких вариантов стоп-лосса
func (e *Engine) SizingScenarios(entryPrice float64, stops []float64) (map[float64]ScenarioResult, error) {
	sizer, err := e.sizer()
	if err != nil {
		return nil, err
	}
	return sizer.CalculateScenarios(entryPrice, stops), nil
}

// StopRange возвращает оптимальные стоп-лоссы по диапазону плеч
func (e *Engine) StopRange(entryPrice float64) ([]models.StopRangeOption, error) {
	sizer, err := e.sizer()
	if err != nil {
		return nil, err
	}
	return sizer.OptimalStopRange(entryPrice, 1, e.cfg.MaxLeverage)
}

// ============================================================
// Pre-trade проверка
// ============================================================

// CheckResult - результат pre-trade проверки сигнала
type CheckResult struct {
	Allowed        bool             `json:"allowed"`
	Reason         string           `json:"reason,omitempty"`
	RiskLevel      models.RiskLevel `json:"risk_level"`
	SizeMultiplier float64          `json:"size_multiplier"`
	MinConfidence  float64          `json:"min_confidence"`
}

// PreTradeCheck проверяет допустимость открытия новой позиции
//
// Пайплайн: аварийная остановка → портфельный риск → уверенность
// сигнала. Отказ на любом шаге окончателен, причина в Reason.
//
// Параметры:
//   - confidence: уверенность сигнала 0-100
func (e *Engine) PreTradeCheck(confidence float64) CheckResult {
	result := CheckResult{
		RiskLevel:      e.tracker.Metrics().RiskLevel,
		SizeMultiplier: e.tracker.SizeMultiplier(),
		MinConfidence:  e.tracker.MinConfidence(),
	}

	e.mu.RLock()
	hasData := e.hasData
	pf := e.lastPortfolio
	e.mu.RUnlock()

	if !hasData {
		result.Reason = "no account data available"
		RecordTradeCheck(false)
		return result
	}

	if stop, reason := e.checkEmergency(); stop {
		result.Reason = fmt.Sprintf("emergency stop active: %s", reason)
		RecordTradeCheck(false)
		return result
	}

	if pf != nil && pf.RequiresImmediateAction {
		result.Reason = fmt.Sprintf("portfolio risk %s requires action: %s",
			pf.PortfolioRiskLevel, pf.Recommendation)
		RecordTradeCheck(false)
		return result
	}

	if confidence < result.MinConfidence {
		result.Reason = fmt.Sprintf("signal confidence %.0f below required %.0f for %s risk",
			confidence, result.MinConfidence, result.RiskLevel)
		RecordTradeCheck(false)
		return result
	}

	result.Allowed = true
	RecordTradeCheck(true)
	return result
}

// ============================================================
// Утилиты
// ============================================================

// pushValue добавляет значение портфеля в окно и возвращает
// оценку волатильности (stddev доходностей окна)
func (e *Engine) pushValue(value float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recentValues = append(e.recentValues, value)
	if len(e.recentValues) > volatilityWindow {
		e.recentValues = e.recentValues[len(e.recentValues)-volatilityWindow:]
	}

	return utils.StdDev(utils.Returns(e.recentValues))
}

// exposureStats - суммарная экспозиция и концентрация по символам
func exposureStats(positions []models.Position) (total, concentrationPct float64) {
	bySymbol := make(map[string]float64, len(positions))
	for _, pos := range positions {
		notional := utils.Notional(pos.Quantity, pos.MarkPrice)
		bySymbol[pos.Symbol] += notional
		total += notional
	}

	return total, utils.LargestShare(bySymbol)
}
