package models

import "time"

// RiskLevel - уровень риска позиции, портфеля или сессии
type RiskLevel string

// Уровни риска (от наименьшего к наибольшему)
const (
	RiskVeryLow  RiskLevel = "VERY_LOW"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// severityRank - порядок уровней для сравнения
var severityRank = map[RiskLevel]int{
	RiskVeryLow:  0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Rank возвращает числовой ранг уровня (больше = опаснее)
func (l RiskLevel) Rank() int {
	return severityRank[l]
}

// AtLeast проверяет что уровень не ниже указанного
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.Rank() >= other.Rank()
}

// MaxRiskLevel возвращает более опасный из двух уровней
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Типы алертов
const (
	AlertTypeWarning   = "WARNING"   // предупреждение (порог 80%/70%)
	AlertTypeCritical  = "CRITICAL"  // критическое состояние
	AlertTypeEmergency = "EMERGENCY" // срабатывание аварийной остановки
)

// RiskAlert представляет уведомление о рисковом событии
//
// Ядро только порождает алерты как данные - доставкой занимается
// внешний слой (WebSocket hub, репозиторий, внешние нотификаторы).
type RiskAlert struct {
	ID           int64                  `json:"id" db:"id"`
	Timestamp    time.Time              `json:"timestamp" db:"timestamp"`
	Type         string                 `json:"type" db:"type"`         // WARNING, CRITICAL, EMERGENCY
	Level        RiskLevel              `json:"level" db:"level"`       // LOW, MEDIUM, HIGH, CRITICAL
	Message      string                 `json:"message" db:"message"`
	Data         map[string]interface{} `json:"data,omitempty" db:"data"` // дополнительные данные (JSON в БД)
	Acknowledged bool                   `json:"acknowledged" db:"acknowledged"`
}
