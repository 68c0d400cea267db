package utils

import (
	"math"
)

// math.go - математические утилиты риск-движка
//
// Все функции чистые, без побочных эффектов.

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
//
// Параметры:
//   - value: исходное значение (объём в монетах актива)
//   - lotSize: минимальный шаг изменения объёма на бирже
//
// Возвращает:
//   - Округлённое значение, кратное lotSize
//   - Если lotSize <= 0, возвращает исходное значение
//
// Примеры:
//   - RoundToLotSize(0.123456, 0.001) = 0.123
//   - RoundToLotSize(1.999, 0.01) = 1.99
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Floor(value/lotSize) * lotSize
}

// Notional - нотинальная стоимость позиции
func Notional(quantity, price float64) float64 {
	return math.Abs(quantity) * price
}

// Returns вычисляет последовательность относительных изменений
// (доходностей) по ряду значений.
//
// Параметры:
//   - values: ряд значений портфеля по времени
//
// Возвращает:
//   - Слайс доходностей длины len(values)-1, доли (0.01 = 1%)
//   - nil если значений меньше двух
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}
	return returns
}

// StdDev - стандартное отклонение выборки
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sqSum float64
	for _, v := range values {
		d := v - mean
		sqSum += d * d
	}

	return math.Sqrt(sqSum / float64(len(values)-1))
}

// LargestShare - доля наибольшего значения от суммы в процентах.
//
// Используется для расчёта концентрации экспозиции по символам.
//
// Возвращает 0 для пустой карты или нулевой суммы.
func LargestShare(values map[string]float64) float64 {
	var total, largest float64
	for _, v := range values {
		abs := math.Abs(v)
		total += abs
		if abs > largest {
			largest = abs
		}
	}

	if total == 0 {
		return 0
	}
	return largest / total * 100
}

// Drawdown - просадка от пика в процентах
func Drawdown(peak, current float64) float64 {
	if peak <= 0 || current >= peak {
		return 0
	}
	return (peak - current) / peak * 100
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
