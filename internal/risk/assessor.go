package risk

import (
	"fmt"
	"time"

	"riskengine/internal/models"
)

// Пороги оценки отдельной позиции
const (
	marginRatioCriticalPct = 85.0
	marginRatioHighPct     = 75.0
	liqDistanceCriticalPct = 5.0
	liqDistanceHighPct     = 15.0
	positionPnlHighPct     = -5.0
)

// Рекомендации по уровням портфельного риска
var portfolioRecommendations = map[models.RiskLevel]string{
	models.RiskCritical: "IMMEDIATE ACTION: close high-risk positions and reduce leverage",
	models.RiskHigh:     "reduce position sizes and tighten stop losses",
	models.RiskMedium:   "monitor positions closely, avoid adding exposure",
	models.RiskLow:      "portfolio risk within normal bounds",
}

// Assessor - оценка риска позиций и портфеля
//
// Stateless: каждая оценка - чистая функция от снимка аккаунта и позиций.
// Состояние сессии (пики, дроудаун, дневной PNL) живёт в Tracker.
type Assessor struct {
	maxDailyLossPct float64
}

// NewAssessor создаёт оценщик
//
// maxDailyLossPct - дневной лимит потерь в %, используется как порог
// CRITICAL на портфельном уровне.
func NewAssessor(maxDailyLossPct float64) *Assessor {
	if maxDailyLossPct <= 0 {
		maxDailyLossPct = 3.0
	}
	return &Assessor{maxDailyLossPct: maxDailyLossPct}
}

// AssessPosition оценивает риск одной открытой позиции
//
// Итоговый уровень - максимум по трём осям: маржа, дистанция до
// ликвидации, нереализованный PNL.
func (a *Assessor) AssessPosition(pos models.Position, account models.AccountInfo) models.PositionAssessment {
	level := models.RiskLow
	var alerts []string

	marginRatio := marginRatioPercent(pos, account)
	switch {
	case marginRatio >= marginRatioCriticalPct:
		level = models.MaxRiskLevel(level, models.RiskCritical)
		alerts = append(alerts, fmt.Sprintf("margin ratio critical: %.1f%%", marginRatio))
	case marginRatio >= marginRatioHighPct:
		level = models.MaxRiskLevel(level, models.RiskHigh)
		alerts = append(alerts, fmt.Sprintf("margin ratio high: %.1f%%", marginRatio))
	}

	liqDistance := liquidationDistancePercent(pos)
	switch {
	case liqDistance <= liqDistanceCriticalPct:
		level = models.MaxRiskLevel(level, models.RiskCritical)
		alerts = append(alerts, fmt.Sprintf("liquidation distance critical: %.1f%%", liqDistance))
	case liqDistance <= liqDistanceHighPct:
		level = models.MaxRiskLevel(level, models.RiskHigh)
		alerts = append(alerts, fmt.Sprintf("liquidation distance low: %.1f%%", liqDistance))
	}

	pnlPct := positionPnlPercent(pos, account)
	if pnlPct <= positionPnlHighPct {
		level = models.MaxRiskLevel(level, models.RiskHigh)
		alerts = append(alerts, fmt.Sprintf("unrealized loss: %.1f%%", pnlPct))
	}

	return models.PositionAssessment{
		Symbol:                     pos.Symbol,
		RiskLevel:                  level,
		MarginRatioPercent:         marginRatio,
		LiquidationDistancePercent: liqDistance,
		PnlPercent:                 pnlPct,
		Alerts:                     alerts,
		RequiresAction:             level.AtLeast(models.RiskHigh),
	}
}

// AssessPortfolio агрегирует оценки позиций в портфельный уровень риска
func (a *Assessor) AssessPortfolio(positions []models.Position, account models.AccountInfo) models.PortfolioAssessment {
	assessments := make([]models.PositionAssessment, 0, len(positions))
	var criticalCount, highCount int

	for _, pos := range positions {
		pa := a.AssessPosition(pos, account)
		assessments = append(assessments, pa)

		switch pa.RiskLevel {
		case models.RiskCritical:
			criticalCount++
		case models.RiskHigh:
			highCount++
		}
	}

	var portfolioPnlPct float64
	if account.TotalWalletBalance > 0 {
		portfolioPnlPct = account.TotalUnrealizedPnl / account.TotalWalletBalance * 100
	}

	// Доля маржинального баланса от баланса кошелька: при росте
	// нереализованного убытка маржинальный баланс проседает
	var overallMarginRatio float64
	if account.TotalWalletBalance > 0 {
		overallMarginRatio = account.TotalMarginBalance / account.TotalWalletBalance * 100
	}

	level := portfolioRiskLevel(criticalCount, highCount, portfolioPnlPct, overallMarginRatio, a.maxDailyLossPct)

	return models.PortfolioAssessment{
		PortfolioRiskLevel:        level,
		TotalBalance:              account.TotalWalletBalance,
		TotalUnrealizedPnl:        account.TotalUnrealizedPnl,
		PortfolioPnlPercent:       portfolioPnlPct,
		OverallMarginRatioPercent: overallMarginRatio,
		PositionCount:             len(positions),
		CriticalPositions:         criticalCount,
		HighRiskPositions:         highCount,
		PositionRisks:             assessments,
		RequiresImmediateAction:   level == models.RiskCritical,
		Recommendation:            portfolioRecommendations[level],
		EvaluatedAt:               time.Now().UTC(),
	}
}

// portfolioRiskLevel - правила эскалации портфельного уровня.
// Порядок проверок важен: сверху вниз от худшего к лучшему.
func portfolioRiskLevel(critical, high int, pnlPct, marginRatioPct, maxDailyLossPct float64) models.RiskLevel {
	switch {
	case critical > 0 || pnlPct <= -maxDailyLossPct:
		return models.RiskCritical
	case high > 0 || pnlPct <= -5:
		return models.RiskHigh
	case marginRatioPct >= 50 || pnlPct <= -2:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// marginRatioPercent - доля маржи позиции от баланса кошелька
func marginRatioPercent(pos models.Position, account models.AccountInfo) float64 {
	if account.TotalWalletBalance <= 0 {
		return 0
	}
	return pos.MarginUsed / account.TotalWalletBalance * 100
}

// liquidationDistancePercent - дистанция от марк-цены до цены ликвидации в %.
// Нет цены ликвидации (кросс-маржа, нет позиции) - считаем безопасной.
func liquidationDistancePercent(pos models.Position) float64 {
	if pos.LiquidationPrice <= 0 || pos.MarkPrice <= 0 {
		return 100
	}
	if pos.Side == models.SideShort {
		return (pos.LiquidationPrice - pos.MarkPrice) / pos.MarkPrice * 100
	}
	return (pos.MarkPrice - pos.LiquidationPrice) / pos.MarkPrice * 100
}

// positionPnlPercent - нереализованный PNL позиции в % от баланса кошелька.
// Именно от баланса, не от маржи позиции: порог -5% означает потерю
// 5% депозита на одной позиции, а не 5% её маржи.
func positionPnlPercent(pos models.Position, account models.AccountInfo) float64 {
	if account.TotalWalletBalance <= 0 {
		return 0
	}
	return pos.UnrealizedPnl / account.TotalWalletBalance * 100
}
