package models

// SizingResult - результат расчёта размера позиции
//
// Иммутабельный value object: вычисляется один раз для пары
// (entry_price, stop_loss_price) и возвращается вызывающему коду.
//
// Инварианты:
//   - MarginUsed = AccountBalance * SeedUsagePercent / 100
//   - ActualMultiplier = (SeedUsagePercent / 100) * Leverage
//   - PositionValue = AccountBalance * ActualMultiplier
//   - SeedUsagePercent <= 100, MarginUsed <= AccountBalance
type SizingResult struct {
	// Параметры входа
	EntryPrice       float64 `json:"entry_price"`
	StopLossPrice    float64 `json:"stop_loss_price"`
	PriceDiffPercent float64 `json:"price_diff_percent"` // ширина стопа в %

	// Подобранная комбинация
	Leverage         int     `json:"leverage"`
	SeedUsagePercent float64 `json:"seed_usage_percent"` // доля баланса под маржу, 0-100
	ActualMultiplier float64 `json:"actual_multiplier"`
	TargetMultiplier float64 `json:"target_multiplier"`

	// Размер позиции
	PositionValue    float64 `json:"position_value"`
	PositionQuantity float64 `json:"position_quantity"`
	MarginUsed       float64 `json:"margin_used"`
	RemainingBalance float64 `json:"remaining_balance"`

	// Риск
	TargetRiskAmount    float64   `json:"target_risk_amount"`
	ActualRiskAmount    float64   `json:"actual_risk_amount"`
	RiskAccuracyPercent float64   `json:"risk_accuracy_percent"` // 0-100
	RiskLevel           RiskLevel `json:"risk_level"`            // VERY_LOW..HIGH

	// Счётная информация
	AccountBalance float64  `json:"account_balance"`
	IsOptimal      bool     `json:"is_optimal"` // точность >= 99%
	Notes          string   `json:"notes,omitempty"`
	Warnings       []string `json:"warnings"`
}

// StopRangeOption - вариант стоп-лосса при полном использовании депозита
// на заданном плече (вспомогательный расчёт для UI)
type StopRangeOption struct {
	Leverage         int     `json:"leverage"`
	StopLossPrice    float64 `json:"stop_loss_price"`
	PriceDiffPercent float64 `json:"price_diff_percent"`
}
