package risk

import (
	"errors"
	"fmt"
	"math"

	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

// Ошибки расчёта размера позиции
var (
	ErrInvalidPrice   = errors.New("prices must be positive and entry must differ from stop loss")
	ErrInvalidBalance = errors.New("account balance must be positive")
)

// SizerConfig - конфигурация сайзера на одну торговую сессию
//
// Валидируется один раз при создании, иммутабельна в рамках расчёта.
type SizerConfig struct {
	AccountBalance  float64 // баланс аккаунта в USDT (> 0)
	RiskPercentage  float64 // целевая доля баланса под риск на сделку, 0 < r <= 100
	MaxLeverage     int     // потолок плеча биржи (1-20 для Binance Futures)
	TolerancePct    float64 // допустимое отклонение множителя в % (по умолчанию 1.0)
	LotSize         float64 // шаг объёма ордера (stepSize), 0 = без округления
}

// Validate проверяет конфигурацию сайзера
func (c SizerConfig) Validate() error {
	if c.AccountBalance <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidBalance, c.AccountBalance)
	}
	if c.RiskPercentage <= 0 || c.RiskPercentage > 100 {
		return fmt.Errorf("risk percentage must be in (0, 100], got %.2f", c.RiskPercentage)
	}
	if c.MaxLeverage < 1 {
		return fmt.Errorf("max leverage must be >= 1, got %d", c.MaxLeverage)
	}
	if c.LotSize < 0 {
		return fmt.Errorf("lot size must be non-negative, got %v", c.LotSize)
	}
	return nil
}

// TargetRiskAmount - целевая сумма риска на сделку в USDT
func (c SizerConfig) TargetRiskAmount() float64 {
	return c.AccountBalance * c.RiskPercentage / 100
}

// PositionSizer - расчёт размера позиции под целевой риск
//
// Пайплайн:
//  1. Из entry/stop считаем ширину стопа и требуемый множитель.
//  2. OptimizeLeverage подбирает (плечо, долю депозита).
//  3. Из комбинации выводим стоимость позиции, количество, маржу,
//     фактический риск, точность и уровень риска.
//
// Никаких side effects - чистая функция над конфигурацией.
type PositionSizer struct {
	cfg SizerConfig
}

// NewPositionSizer создаёт сайзер с валидацией конфигурации
func NewPositionSizer(cfg SizerConfig) (*PositionSizer, error) {
	if cfg.TolerancePct <= 0 {
		cfg.TolerancePct = 1.0
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PositionSizer{cfg: cfg}, nil
}

// Config возвращает конфигурацию сайзера
func (s *PositionSizer) Config() SizerConfig {
	return s.cfg
}

// Calculate рассчитывает размер позиции для пары (entry, stop loss)
//
// Предусловия: entry > 0, stop > 0, entry != stop. Нарушение - ErrInvalidPrice,
// сделку открывать нельзя.
func (s *PositionSizer) Calculate(entryPrice, stopLossPrice float64) (*models.SizingResult, error) {
	if entryPrice <= 0 || stopLossPrice <= 0 || entryPrice == stopLossPrice {
		return nil, fmt.Errorf("%w: entry=%.8f stop=%.8f", ErrInvalidPrice, entryPrice, stopLossPrice)
	}

	balance := s.cfg.AccountBalance
	targetRisk := s.cfg.TargetRiskAmount()

	// Ширина стопа как доля цены входа
	priceDiff := math.Abs(entryPrice-stopLossPrice) / entryPrice

	// Требуемый нотинальный множитель: риск = позиция * ширина стопа,
	// позиция = баланс * множитель
	requiredMultiplier := targetRisk / (balance * priceDiff)

	var (
		leverage    int
		seedPercent float64
		actualMult  float64
		notes       string
		warnings    []string
	)

	opt, err := OptimizeLeverage(requiredMultiplier, s.cfg.MaxLeverage, s.cfg.TolerancePct)
	switch {
	case err == nil:
		leverage = opt.Leverage
		seedPercent = opt.SeedPercent
		actualMult = opt.ActualMultiplier
		if requiredMultiplier <= 1 {
			notes = "leverage not required"
		} else {
			notes = fmt.Sprintf("optimal combination found (error %.2f%%)", opt.ErrorPercent)
		}

	case errors.Is(err, ErrNoFeasibleOption):
		// Цель недостижима даже на максимальном плече - зажимаем до
		// maxLeverage при 100% депозита и принимаем отклонение.
		// Деградация точности видна через risk_accuracy и warning.
		leverage = s.cfg.MaxLeverage
		seedPercent = 100
		actualMult = float64(s.cfg.MaxLeverage)
		notes = fmt.Sprintf("clamped to max leverage %dx", s.cfg.MaxLeverage)
		warnings = append(warnings,
			fmt.Sprintf("target multiplier %.2f exceeds max leverage %d - risk will be under-allocated",
				requiredMultiplier, s.cfg.MaxLeverage))

	default:
		return nil, err
	}

	positionValue := balance * actualMult
	quantity := positionValue / entryPrice

	// Binance принимает только объёмы, кратные stepSize символа.
	// Округляем вниз и пересчитываем производные величины от
	// округлённого объёма: инварианты margin = balance*seed/100 и
	// value = balance*multiplier должны сойтись на итоговых числах.
	if s.cfg.LotSize > 0 {
		quantity = utils.RoundToLotSize(quantity, s.cfg.LotSize)
		positionValue = quantity * entryPrice
		actualMult = positionValue / balance
		seedPercent = positionValue / float64(leverage) / balance * 100
	}

	marginUsed := balance * seedPercent / 100
	actualRisk := positionValue * priceDiff
	accuracy := riskAccuracy(actualMult, requiredMultiplier)

	warnings = append(warnings, sizingWarnings(leverage, seedPercent, accuracy)...)

	return &models.SizingResult{
		EntryPrice:       entryPrice,
		StopLossPrice:    stopLossPrice,
		PriceDiffPercent: priceDiff * 100,

		Leverage:         leverage,
		SeedUsagePercent: seedPercent,
		ActualMultiplier: actualMult,
		TargetMultiplier: requiredMultiplier,

		PositionValue:    positionValue,
		PositionQuantity: quantity,
		MarginUsed:       marginUsed,
		RemainingBalance: balance - marginUsed,

		TargetRiskAmount:    targetRisk,
		ActualRiskAmount:    actualRisk,
		RiskAccuracyPercent: accuracy,
		RiskLevel:           sizingRiskLevel(leverage, seedPercent),

		AccountBalance: balance,
		IsOptimal:      accuracy >= 99.0,
		Notes:          notes,
		Warnings:       warnings,
	}, nil
}

// CalculateScenarios считает сайзинг для нескольких вариантов стоп-лосса
//
// Невалидные варианты не прерывают расчёт - для них возвращается ошибка
// в карте результатов.
func (s *PositionSizer) CalculateScenarios(entryPrice float64, stopLossPrices []float64) map[float64]ScenarioResult {
	scenarios := make(map[float64]ScenarioResult, len(stopLossPrices))
	for _, stop := range stopLossPrices {
		result, err := s.Calculate(entryPrice, stop)
		if err != nil {
			scenarios[stop] = ScenarioResult{Err: err.Error()}
			continue
		}
		scenarios[stop] = ScenarioResult{Result: result}
	}
	return scenarios
}

// ScenarioResult - результат одного сценария стоп-лосса
type ScenarioResult struct {
	Result *models.SizingResult `json:"result,omitempty"`
	Err    string               `json:"error,omitempty"`
}

// OptimalStopRange возвращает стоп-лоссы, при которых целевой риск
// достигается точно на каждом плече диапазона при 100% депозита.
//
// Варианты с шириной стопа вне диапазона 0.1%-10% отбрасываются
// как практически бесполезные.
func (s *PositionSizer) OptimalStopRange(entryPrice float64, minLeverage, maxLeverage int) ([]models.StopRangeOption, error) {
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: entry=%.8f", ErrInvalidPrice, entryPrice)
	}
	if minLeverage < 1 {
		minLeverage = 1
	}
	if maxLeverage > s.cfg.MaxLeverage {
		maxLeverage = s.cfg.MaxLeverage
	}

	targetRisk := s.cfg.TargetRiskAmount()
	var options []models.StopRangeOption

	for leverage := minLeverage; leverage <= maxLeverage; leverage++ {
		// При 100% депозита множитель равен плечу
		priceDiff := targetRisk / (s.cfg.AccountBalance * float64(leverage))

		if priceDiff < 0.001 || priceDiff > 0.1 {
			continue
		}

		options = append(options, models.StopRangeOption{
			Leverage:         leverage,
			StopLossPrice:    entryPrice * (1 - priceDiff),
			PriceDiffPercent: priceDiff * 100,
		})
	}

	return options, nil
}

// riskAccuracy - точность достижения целевого множителя в %
func riskAccuracy(actual, target float64) float64 {
	if target == 0 {
		return 100
	}
	accuracy := (1 - math.Abs(actual-target)/target) * 100
	if accuracy < 0 {
		return 0
	}
	return accuracy
}

// sizingRiskLevel классифицирует риск комбинации (плечо, доля депозита)
//
// CRITICAL здесь не используется - зарезервирован для портфельного уровня.
func sizingRiskLevel(leverage int, seedPercent float64) models.RiskLevel {
	switch {
	case leverage >= 15 || seedPercent >= 80:
		return models.RiskHigh
	case leverage >= 8 || seedPercent >= 60:
		return models.RiskMedium
	case leverage >= 4 || seedPercent >= 40:
		return models.RiskLow
	default:
		return models.RiskVeryLow
	}
}

// sizingWarnings - предупреждения по подобранной комбинации
func sizingWarnings(leverage int, seedPercent, accuracy float64) []string {
	var warnings []string

	if leverage >= 10 {
		warnings = append(warnings, fmt.Sprintf("high leverage (%dx) - caution required", leverage))
	}
	if seedPercent >= 90 {
		warnings = append(warnings, fmt.Sprintf("high seed usage (%.1f%%) - low remaining balance", seedPercent))
	}
	if accuracy < 95 {
		warnings = append(warnings, fmt.Sprintf("risk accuracy degraded (%.1f%%) by leverage granularity", accuracy))
	}

	return warnings
}
