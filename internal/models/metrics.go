package models

import "time"

// RiskMetrics - скользящие метрики риска торговой сессии
//
// Снимок состояния трекера: дневной/недельный/месячный PNL, дроудаун
// от пика, взвешенный общий балл риска 0-100.
type RiskMetrics struct {
	DailyPnl            float64   `json:"daily_pnl"`
	DailyLossPercent    float64   `json:"daily_loss_percent"`
	WeeklyPnl           float64   `json:"weekly_pnl"`
	MonthlyPnl          float64   `json:"monthly_pnl"`
	PortfolioValue      float64   `json:"portfolio_value"`
	TotalExposure       float64   `json:"total_exposure"`
	PeakPortfolioValue  float64   `json:"peak_portfolio_value"`
	CurrentDrawdownPct  float64   `json:"current_drawdown_percent"`
	MaxDrawdownPct      float64   `json:"max_drawdown_percent"` // монотонно в рамках сессии
	ConcentrationPct    float64   `json:"concentration_percent"` // вес крупнейшего символа
	VolatilityScore     float64   `json:"volatility_score"`
	OverallRiskScore    int       `json:"overall_risk_score"` // 0-100
	RiskLevel           RiskLevel `json:"risk_level"`
	Stale               bool      `json:"stale"` // обновление не удалось, данные last-known
	LastUpdate          time.Time `json:"last_update"`
}

// LossLimits - лимиты потерь, загружаются из конфигурации
type LossLimits struct {
	DailyLimitPct    float64 `json:"daily_limit_pct"`
	DailyLimitAmount float64 `json:"daily_limit_amount"`
	WeeklyLimitPct   float64 `json:"weekly_limit_pct"`
	MonthlyLimitPct  float64 `json:"monthly_limit_pct"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"`
}

// RiskSnapshot - суточный срез метрик для персистенции
//
// Пишется репозиторием раз в день (и при завершении сессии), из него
// считаются недельные/месячные агрегаты PNL.
type RiskSnapshot struct {
	ID             int       `json:"id" db:"id"`
	Day            time.Time `json:"day" db:"day"`
	DailyPnl       float64   `json:"daily_pnl" db:"daily_pnl"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct" db:"max_drawdown_pct"`
	PeakValue      float64   `json:"peak_value" db:"peak_value"`
	RiskScore      int       `json:"risk_score" db:"risk_score"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
