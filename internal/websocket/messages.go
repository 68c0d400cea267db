package websocket

import (
	"time"

	"riskengine/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeRiskStatus - снимок состояния портфеля и метрик сессии
	// Отправляется после каждого цикла обновления движка
	MessageTypeRiskStatus MessageType = "riskStatus"

	// MessageTypeAlert - новый риск-алерт
	// Отправляется при событиях: предупреждение, критическое состояние,
	// аварийная остановка
	MessageTypeAlert MessageType = "alert"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// RiskStatusMessage - сообщение с состоянием риска
//
// Содержит полную оценку портфеля (позиции, уровни риска, рекомендация)
// и скользящие метрики сессии (PNL, дроудаун, балл риска).
//
// Отправляется после каждого успешного цикла обновления движка.
type RiskStatusMessage struct {
	BaseMessage
	Data *RiskStatusData `json:"data"`
}

// RiskStatusData - данные состояния риска
type RiskStatusData struct {
	// Оценка портфеля с пер-позиционными уровнями риска
	Portfolio *models.PortfolioAssessment `json:"portfolio"`

	// Метрики торговой сессии
	Metrics models.RiskMetrics `json:"metrics"`
}

// AlertMessage - сообщение о новом риск-алерте
type AlertMessage struct {
	BaseMessage
	Data models.RiskAlert `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewRiskStatusMessage создает сообщение состояния риска
func NewRiskStatusMessage(pf *models.PortfolioAssessment, metrics models.RiskMetrics) *RiskStatusMessage {
	return &RiskStatusMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRiskStatus,
			Timestamp: time.Now(),
		},
		Data: &RiskStatusData{
			Portfolio: pf,
			Metrics:   metrics,
		},
	}
}

// NewAlertMessage создает сообщение алерта
func NewAlertMessage(alert models.RiskAlert) *AlertMessage {
	return &AlertMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeAlert,
			Timestamp: time.Now(),
		},
		Data: alert,
	}
}
