package risk

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestOptimizeLeverageNoLeverageNeeded(t *testing.T) {
	tests := []struct {
		name         string
		multiplier   float64
		expectedSeed float64
	}{
		{"multiplier 0.3", 0.3, 30},
		{"multiplier 0.5", 0.5, 50},
		{"multiplier exactly 1", 1.0, 100},
		{"tiny multiplier", 0.01, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := OptimizeLeverage(tt.multiplier, 20, 1.0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opt.Leverage != 1 {
				t.Errorf("expected leverage 1, got %d", opt.Leverage)
			}
			if !almostEqual(opt.SeedPercent, tt.expectedSeed, 1e-9) {
				t.Errorf("expected seed %.2f%%, got %.2f%%", tt.expectedSeed, opt.SeedPercent)
			}
			if opt.ErrorPercent != 0 {
				t.Errorf("expected zero error, got %.4f", opt.ErrorPercent)
			}
		})
	}
}

func TestOptimizeLeverageExactFit(t *testing.T) {
	// Множитель 3 достижим только начиная с плеча 3 (seed 100%)
	opt, err := OptimizeLeverage(3.0, 20, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Leverage != 3 {
		t.Errorf("expected leverage 3, got %d", opt.Leverage)
	}
	if !almostEqual(opt.SeedPercent, 100, 1e-9) {
		t.Errorf("expected seed 100%%, got %.4f%%", opt.SeedPercent)
	}
	if !almostEqual(opt.ActualMultiplier, 3.0, 1e-9) {
		t.Errorf("expected actual multiplier 3, got %.4f", opt.ActualMultiplier)
	}
}

func TestOptimizeLeveragePrefersLowestLeverage(t *testing.T) {
	// Множитель 2 достижим с нулевой ошибкой на плечах 2..20,
	// выбираться должно минимальное
	opt, err := OptimizeLeverage(2.0, 20, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Leverage != 2 {
		t.Errorf("expected lowest leverage 2, got %d", opt.Leverage)
	}
	if !almostEqual(opt.SeedPercent, 100, 1e-9) {
		t.Errorf("expected seed 100%%, got %.4f%%", opt.SeedPercent)
	}
}

func TestOptimizeLeverageFractionalMultiplier(t *testing.T) {
	// 2.5 на плече 3: seed 83.33%, actual 2.5 - точное попадание
	opt, err := OptimizeLeverage(2.5, 20, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Leverage != 3 {
		t.Errorf("expected leverage 3, got %d", opt.Leverage)
	}
	if !almostEqual(opt.ActualMultiplier, 2.5, 1e-9) {
		t.Errorf("expected actual multiplier 2.5, got %.6f", opt.ActualMultiplier)
	}
}

func TestOptimizeLeverageInfeasible(t *testing.T) {
	_, err := OptimizeLeverage(25.0, 20, 1.0)
	if !errors.Is(err, ErrNoFeasibleOption) {
		t.Fatalf("expected ErrNoFeasibleOption, got %v", err)
	}
}

func TestOptimizeLeverageInvalidMultiplier(t *testing.T) {
	for _, mult := range []float64{0, -1, -0.5} {
		if _, err := OptimizeLeverage(mult, 20, 1.0); !errors.Is(err, ErrInvalidMultiplier) {
			t.Errorf("multiplier %.2f: expected ErrInvalidMultiplier, got %v", mult, err)
		}
	}
}

func TestOptimizeLeverageMaxLeverageClamped(t *testing.T) {
	// maxLeverage < 1 трактуется как 1
	opt, err := OptimizeLeverage(0.5, 0, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Leverage != 1 {
		t.Errorf("expected leverage 1, got %d", opt.Leverage)
	}
}
