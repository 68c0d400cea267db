package risk

import (
	"errors"
	"fmt"
	"math"
)

// Ошибки оптимизатора
var (
	ErrInvalidMultiplier = errors.New("required multiplier must be positive")
	ErrNoFeasibleOption  = errors.New("no feasible leverage option within max leverage")
)

// LeverageOption - найденная комбинация (плечо, доля депозита)
//
// ActualMultiplier = (SeedPercent / 100) * Leverage. По построению равен
// требуемому множителю для любой допустимой комбинации; ошибка возникает
// только на границах (seed > 100%) и округлении.
type LeverageOption struct {
	Leverage         int
	SeedPercent      float64 // доля депозита под маржу, 0-100
	ActualMultiplier float64
	ErrorPercent     float64 // отклонение от требуемого множителя в %
}

// OptimizeLeverage подбирает комбинацию (плечо, доля депозита) для
// достижения требуемого нотинального множителя.
//
// Алгоритм:
//  1. multiplier <= 1: плечо не нужно, берём leverage=1 и seed=multiplier*100.
//  2. Иначе перебираем плечи 1..maxLeverage по возрастанию:
//     required_seed = multiplier / L * 100; пропускаем если > 100%
//     (цель недостижима на этом плече без превышения депозита).
//  3. Среди допустимых вариантов с ошибкой <= tolerancePct берём вариант
//     с минимальной ошибкой. При равенстве выигрывает первый найденный,
//     т.е. меньшее плечо.
//  4. Если в допуск никто не попал - глобально минимальная ошибка.
//  5. Если допустимых вариантов нет вообще (multiplier > maxLeverage) -
//     ErrNoFeasibleOption; вызывающий код обязан зажать до maxLeverage
//     при 100% депозита и принять отклонение.
//
// Параметры:
//   - requiredMultiplier: требуемый множитель (> 0)
//   - maxLeverage: максимально допустимое плечо биржи
//   - tolerancePct: допустимое отклонение множителя в % (обычно 1.0)
//
// Возвращает:
//   - *LeverageOption или ошибку
func OptimizeLeverage(requiredMultiplier float64, maxLeverage int, tolerancePct float64) (*LeverageOption, error) {
	if requiredMultiplier <= 0 {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidMultiplier, requiredMultiplier)
	}
	if maxLeverage < 1 {
		maxLeverage = 1
	}

	// Плечо не требуется - весь риск покрывается долей депозита
	if requiredMultiplier <= 1 {
		return &LeverageOption{
			Leverage:         1,
			SeedPercent:      requiredMultiplier * 100,
			ActualMultiplier: requiredMultiplier,
			ErrorPercent:     0,
		}, nil
	}

	var withinTolerance *LeverageOption
	var bestOverall *LeverageOption
	minTolErr := math.Inf(1)
	minAnyErr := math.Inf(1)

	for leverage := 1; leverage <= maxLeverage; leverage++ {
		requiredSeedPercent := requiredMultiplier / float64(leverage) * 100

		// Депозита не хватает чтобы достичь цель на этом плече
		if requiredSeedPercent > 100 {
			continue
		}

		actualMultiplier := requiredSeedPercent / 100 * float64(leverage)
		errAbs := math.Abs(actualMultiplier - requiredMultiplier)
		errPercent := errAbs / requiredMultiplier * 100

		opt := &LeverageOption{
			Leverage:         leverage,
			SeedPercent:      requiredSeedPercent,
			ActualMultiplier: actualMultiplier,
			ErrorPercent:     errPercent,
		}

		// Строгое сравнение сохраняет первый найденный вариант при
		// равной ошибке - меньшее плечо предпочтительнее
		if errPercent <= tolerancePct && errAbs < minTolErr {
			minTolErr = errAbs
			withinTolerance = opt
		}
		if errAbs < minAnyErr {
			minAnyErr = errAbs
			bestOverall = opt
		}
	}

	if withinTolerance != nil {
		return withinTolerance, nil
	}
	if bestOverall != nil {
		return bestOverall, nil
	}

	return nil, fmt.Errorf("%w: multiplier %.3f exceeds max leverage %d",
		ErrNoFeasibleOption, requiredMultiplier, maxLeverage)
}
