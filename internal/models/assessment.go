package models

import "time"

// PositionAssessment - оценка риска одной открытой позиции
//
// Пересчитывается на каждом цикле мониторинга, не персистится -
// всегда свежая производная от текущей Position и состояния аккаунта.
type PositionAssessment struct {
	Symbol                     string    `json:"symbol"`
	RiskLevel                  RiskLevel `json:"risk_level"` // LOW..CRITICAL
	MarginRatioPercent         float64   `json:"margin_ratio_percent"`
	LiquidationDistancePercent float64   `json:"liquidation_distance_percent"`
	PnlPercent                 float64   `json:"pnl_percent"`
	Alerts                     []string  `json:"alerts"`
	RequiresAction             bool      `json:"requires_action"`
}

// PortfolioAssessment - агрегированная оценка риска портфеля
type PortfolioAssessment struct {
	PortfolioRiskLevel        RiskLevel            `json:"portfolio_risk_level"`
	TotalBalance              float64              `json:"total_balance"`
	TotalUnrealizedPnl        float64              `json:"total_unrealized_pnl"`
	PortfolioPnlPercent       float64              `json:"portfolio_pnl_percent"`
	OverallMarginRatioPercent float64              `json:"overall_margin_ratio_percent"`
	PositionCount             int                  `json:"position_count"`
	CriticalPositions         int                  `json:"critical_positions"`
	HighRiskPositions         int                  `json:"high_risk_positions"`
	PositionRisks             []PositionAssessment `json:"position_risks"`
	RequiresImmediateAction   bool                 `json:"requires_immediate_action"`
	Recommendation            string               `json:"recommendation"`
	Stale                     bool                 `json:"stale"` // данные аккаунта устарели
	EvaluatedAt               time.Time            `json:"evaluated_at"`
}
