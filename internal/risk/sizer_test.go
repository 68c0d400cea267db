package risk

import (
	"errors"
	"testing"

	"riskengine/internal/models"
)

func newTestSizer(t *testing.T, balance, riskPct float64, maxLev int) *PositionSizer {
	t.Helper()
	sizer, err := NewPositionSizer(SizerConfig{
		AccountBalance: balance,
		RiskPercentage: riskPct,
		MaxLeverage:    maxLev,
	})
	if err != nil {
		t.Fatalf("failed to create sizer: %v", err)
	}
	return sizer
}

func TestCalculateExactFit(t *testing.T) {
	// Баланс 1000, риск 3% (30 USDT), стоп 1% от входа:
	// требуемый множитель 3 => плечо 3, seed 100%, точность 100%
	sizer := newTestSizer(t, 1000, 3.0, 20)

	result, err := sizer.Calculate(100, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Leverage != 3 {
		t.Errorf("expected leverage 3, got %d", result.Leverage)
	}
	if !almostEqual(result.SeedUsagePercent, 100, 1e-9) {
		t.Errorf("expected seed 100%%, got %.4f%%", result.SeedUsagePercent)
	}
	if !almostEqual(result.PositionValue, 3000, 1e-6) {
		t.Errorf("expected position value 3000, got %.4f", result.PositionValue)
	}
	if !almostEqual(result.PositionQuantity, 30, 1e-6) {
		t.Errorf("expected quantity 30, got %.4f", result.PositionQuantity)
	}
	if !almostEqual(result.ActualRiskAmount, 30, 1e-6) {
		t.Errorf("expected actual risk 30, got %.4f", result.ActualRiskAmount)
	}
	if !almostEqual(result.RiskAccuracyPercent, 100, 1e-6) {
		t.Errorf("expected accuracy 100%%, got %.4f%%", result.RiskAccuracyPercent)
	}
	if !result.IsOptimal {
		t.Error("expected optimal result")
	}
}

func TestCalculateNoLeverageNeeded(t *testing.T) {
	// Широкий стоп 10%: требуемый множитель 0.3 => плечо 1, seed 30%
	sizer := newTestSizer(t, 1000, 3.0, 20)

	result, err := sizer.Calculate(100, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Leverage != 1 {
		t.Errorf("expected leverage 1, got %d", result.Leverage)
	}
	if !almostEqual(result.SeedUsagePercent, 30, 1e-6) {
		t.Errorf("expected seed 30%%, got %.4f%%", result.SeedUsagePercent)
	}
	if !almostEqual(result.MarginUsed, 300, 1e-6) {
		t.Errorf("expected margin 300, got %.4f", result.MarginUsed)
	}
	if !almostEqual(result.RemainingBalance, 700, 1e-6) {
		t.Errorf("expected remaining 700, got %.4f", result.RemainingBalance)
	}
	if result.RiskLevel != models.RiskVeryLow {
		t.Errorf("expected VERY_LOW risk level, got %s", result.RiskLevel)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
}

func TestCalculateClampedToMaxLeverage(t *testing.T) {
	// Узкий стоп 0.12%: требуемый множитель 25 > maxLeverage 20.
	// Зажимаем до 20x при 100% депозита, точность ~80%
	sizer := newTestSizer(t, 1000, 3.0, 20)

	result, err := sizer.Calculate(100, 99.88)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Leverage != 20 {
		t.Errorf("expected leverage 20, got %d", result.Leverage)
	}
	if !almostEqual(result.SeedUsagePercent, 100, 1e-9) {
		t.Errorf("expected seed 100%%, got %.4f%%", result.SeedUsagePercent)
	}
	if !almostEqual(result.ActualMultiplier, 20, 1e-9) {
		t.Errorf("expected actual multiplier 20, got %.4f", result.ActualMultiplier)
	}
	if !almostEqual(result.RiskAccuracyPercent, 80, 0.01) {
		t.Errorf("expected accuracy ~80%%, got %.4f%%", result.RiskAccuracyPercent)
	}
	if result.IsOptimal {
		t.Error("clamped result must not be optimal")
	}
	if len(result.Warnings) == 0 {
		t.Error("expected warnings for clamped result")
	}
	if result.RiskLevel != models.RiskHigh {
		t.Errorf("expected HIGH risk level, got %s", result.RiskLevel)
	}
}

func TestCalculateLotSizeRounding(t *testing.T) {
	// Стоп 1% от входа 97: требуемый множитель 3 => объём 3000/97 = 30.9278...
	// При stepSize 0.01 объём округляется вниз до 30.92, производные
	// величины пересчитываются от округлённого объёма
	sizer, err := NewPositionSizer(SizerConfig{
		AccountBalance: 1000,
		RiskPercentage: 3.0,
		MaxLeverage:    20,
		LotSize:        0.01,
	})
	if err != nil {
		t.Fatalf("failed to create sizer: %v", err)
	}

	result, err := sizer.Calculate(97, 96.03)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !almostEqual(result.PositionQuantity, 30.92, 1e-9) {
		t.Errorf("expected quantity 30.92, got %.8f", result.PositionQuantity)
	}
	if !almostEqual(result.PositionValue, 30.92*97, 1e-6) {
		t.Errorf("expected position value %.2f, got %.4f", 30.92*97, result.PositionValue)
	}

	// Инварианты держатся на округлённых числах
	if !almostEqual(result.MarginUsed, result.PositionValue/float64(result.Leverage), 1e-6) {
		t.Errorf("margin %.6f must equal value/leverage %.6f",
			result.MarginUsed, result.PositionValue/float64(result.Leverage))
	}
	if !almostEqual(result.MarginUsed, 1000*result.SeedUsagePercent/100, 1e-6) {
		t.Errorf("margin %.6f must equal balance*seed/100 %.6f",
			result.MarginUsed, 1000*result.SeedUsagePercent/100)
	}
	if !almostEqual(result.ActualMultiplier, result.PositionValue/1000, 1e-9) {
		t.Errorf("multiplier %.6f must equal value/balance %.6f",
			result.ActualMultiplier, result.PositionValue/1000)
	}

	// Округление вниз чуть уменьшает риск, точность остаётся ~100%
	if result.ActualRiskAmount > 30 {
		t.Errorf("rounded-down quantity must not exceed target risk, got %.4f", result.ActualRiskAmount)
	}
	if !result.IsOptimal {
		t.Errorf("accuracy %.4f%% must stay optimal after rounding", result.RiskAccuracyPercent)
	}
}

func TestCalculateLotSizeZeroDisablesRounding(t *testing.T) {
	sizer := newTestSizer(t, 1000, 3.0, 20)

	result, err := sizer.Calculate(97, 96.03)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(result.PositionQuantity, 3000.0/97, 1e-9) {
		t.Errorf("expected raw quantity %.8f, got %.8f", 3000.0/97, result.PositionQuantity)
	}
}

func TestCalculateShortDirection(t *testing.T) {
	// Стоп выше входа (short) считается по модулю
	sizer := newTestSizer(t, 1000, 3.0, 20)

	result, err := sizer.Calculate(100, 101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Leverage != 3 {
		t.Errorf("expected leverage 3, got %d", result.Leverage)
	}
	if !almostEqual(result.PriceDiffPercent, 1.0, 1e-9) {
		t.Errorf("expected price diff 1%%, got %.4f%%", result.PriceDiffPercent)
	}
}

func TestCalculateInvalidPrices(t *testing.T) {
	sizer := newTestSizer(t, 1000, 3.0, 20)

	tests := []struct {
		name        string
		entry, stop float64
	}{
		{"zero entry", 0, 99},
		{"zero stop", 100, 0},
		{"negative entry", -100, 99},
		{"equal prices", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sizer.Calculate(tt.entry, tt.stop); !errors.Is(err, ErrInvalidPrice) {
				t.Errorf("expected ErrInvalidPrice, got %v", err)
			}
		})
	}
}

func TestNewPositionSizerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  SizerConfig
	}{
		{"zero balance", SizerConfig{AccountBalance: 0, RiskPercentage: 3, MaxLeverage: 20}},
		{"negative balance", SizerConfig{AccountBalance: -100, RiskPercentage: 3, MaxLeverage: 20}},
		{"zero risk", SizerConfig{AccountBalance: 1000, RiskPercentage: 0, MaxLeverage: 20}},
		{"risk above 100", SizerConfig{AccountBalance: 1000, RiskPercentage: 101, MaxLeverage: 20}},
		{"zero max leverage", SizerConfig{AccountBalance: 1000, RiskPercentage: 3, MaxLeverage: 0}},
		{"negative lot size", SizerConfig{AccountBalance: 1000, RiskPercentage: 3, MaxLeverage: 20, LotSize: -0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPositionSizer(tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCalculateScenarios(t *testing.T) {
	sizer := newTestSizer(t, 1000, 3.0, 20)

	scenarios := sizer.CalculateScenarios(100, []float64{99, 90, 100})
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(scenarios))
	}

	if scenarios[99].Result == nil || scenarios[99].Result.Leverage != 3 {
		t.Error("scenario stop=99 expected leverage 3")
	}
	if scenarios[90].Result == nil || scenarios[90].Result.Leverage != 1 {
		t.Error("scenario stop=90 expected leverage 1")
	}
	if scenarios[100].Err == "" {
		t.Error("scenario stop=100 expected error")
	}
}

func TestOptimalStopRange(t *testing.T) {
	sizer := newTestSizer(t, 1000, 3.0, 20)

	options, err := sizer.OptimalStopRange(100, 1, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(options) == 0 {
		t.Fatal("expected at least one option")
	}

	for _, opt := range options {
		// На каждом плече стоп подобран так, что риск точно целевой
		diff := opt.PriceDiffPercent / 100
		risk := 1000 * float64(opt.Leverage) * diff
		if !almostEqual(risk, 30, 1e-6) {
			t.Errorf("leverage %d: expected exact risk 30, got %.6f", opt.Leverage, risk)
		}
		if diff < 0.001 || diff > 0.1 {
			t.Errorf("leverage %d: price diff %.4f outside practical bounds", opt.Leverage, diff)
		}
	}
}
