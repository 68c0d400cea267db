package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"riskengine/internal/models"
)

// ============================================================
// Prometheus метрики риск-движка
// ============================================================
//
// Использование:
// - Grafana дашборды поверх /metrics
// - Alertmanager на рост балла риска и аварийные остановки

// ============ Метрики состояния ============

// RiskScore - текущий общий балл риска 0-100
var RiskScore = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "portfolio",
		Name:      "risk_score",
		Help:      "Current overall portfolio risk score (0-100)",
	},
)

// PortfolioRiskLevel - текущий уровень риска портфеля (one-hot)
var PortfolioRiskLevel = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "portfolio",
		Name:      "risk_level",
		Help:      "Current portfolio risk level (1 for active level, 0 otherwise)",
	},
	[]string{"level"},
)

// PortfolioValue - текущая стоимость портфеля в USDT
var PortfolioValue = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "portfolio",
		Name:      "value_usdt",
		Help:      "Current portfolio value in USDT",
	},
)

// DrawdownPercent - текущий дроудаун от пика в процентах
var DrawdownPercent = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "portfolio",
		Name:      "drawdown_percent",
		Help:      "Current drawdown from session peak in percent",
	},
)

// DailyPnl - дневной PNL в USDT
var DailyPnl = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "portfolio",
		Name:      "daily_pnl_usdt",
		Help:      "Daily PnL in USDT",
	},
)

// OpenPositions - количество открытых позиций по уровням риска
var OpenPositions = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "portfolio",
		Name:      "open_positions",
		Help:      "Number of open positions by risk level",
	},
	[]string{"level"},
)

// DataStale - флаг устаревших данных аккаунта (1 = stale)
var DataStale = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "exchange",
		Name:      "data_stale",
		Help:      "Whether account data is stale after a failed refresh (1=stale)",
	},
)

// ============ Счётчики событий ============

// EmergencyStops - срабатывания аварийной остановки
var EmergencyStops = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "portfolio",
		Name:      "emergency_stops_total",
		Help:      "Number of emergency stop triggers",
	},
)

// AlertsEmitted - выданные алерты по типам
var AlertsEmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "alerts",
		Name:      "emitted_total",
		Help:      "Number of risk alerts emitted",
	},
	[]string{"type"},
)

// SizingRequests - запросы на расчёт размера позиции
var SizingRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "sizing",
		Name:      "requests_total",
		Help:      "Number of position sizing requests",
	},
	[]string{"result"}, // ok, clamped, error
)

// TradeChecks - результаты pre-trade проверок
var TradeChecks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "pretrade",
		Name:      "checks_total",
		Help:      "Number of pre-trade checks by outcome",
	},
	[]string{"outcome"}, // allowed, rejected
)

// RefreshErrors - неудачные обновления данных аккаунта
var RefreshErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "exchange",
		Name:      "refresh_errors_total",
		Help:      "Number of failed account data refreshes",
	},
)

// ============ Латентность ============

// RefreshLatency - время полного цикла обновления данных аккаунта
var RefreshLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "riskengine",
		Subsystem: "exchange",
		Name:      "refresh_latency_ms",
		Help:      "Account data refresh latency in milliseconds",
		Buckets:   []float64{50, 100, 200, 300, 500, 1000, 2000, 5000},
	},
)

// ============ Вспомогательные функции ============

var allRiskLevels = []models.RiskLevel{
	models.RiskVeryLow, models.RiskLow, models.RiskMedium,
	models.RiskHigh, models.RiskCritical,
}

// UpdatePortfolioMetrics обновляет gauge'и по снимку портфеля
func UpdatePortfolioMetrics(pf *models.PortfolioAssessment, metrics models.RiskMetrics) {
	RiskScore.Set(float64(metrics.OverallRiskScore))
	PortfolioValue.Set(metrics.PortfolioValue)
	DrawdownPercent.Set(metrics.CurrentDrawdownPct)
	DailyPnl.Set(metrics.DailyPnl)

	for _, level := range allRiskLevels {
		if level == pf.PortfolioRiskLevel {
			PortfolioRiskLevel.WithLabelValues(string(level)).Set(1)
		} else {
			PortfolioRiskLevel.WithLabelValues(string(level)).Set(0)
		}
	}

	counts := make(map[models.RiskLevel]int, len(allRiskLevels))
	for _, pa := range pf.PositionRisks {
		counts[pa.RiskLevel]++
	}
	for _, level := range allRiskLevels {
		OpenPositions.WithLabelValues(string(level)).Set(float64(counts[level]))
	}

	if metrics.Stale {
		DataStale.Set(1)
	} else {
		DataStale.Set(0)
	}
}

// RecordAlert записывает выданный алерт
func RecordAlert(alertType string) {
	AlertsEmitted.WithLabelValues(alertType).Inc()
}

// RecordSizing записывает результат запроса на сайзинг
func RecordSizing(result string) {
	SizingRequests.WithLabelValues(result).Inc()
}

// RecordTradeCheck записывает исход pre-trade проверки
func RecordTradeCheck(allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "allowed"
	}
	TradeChecks.WithLabelValues(outcome).Inc()
}
