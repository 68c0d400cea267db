package service

import (
	"context"
	"log"
	"strings"
	"time"

	"riskengine/internal/models"
)

// AlertService предоставляет бизнес-логику для управления риск-алертами.
//
// Отвечает за:
// - Персистенцию алертов движка (канал Engine.Alerts → БД)
// - Получение журнала алертов с фильтрацией по типам
// - Подтверждение алертов
// - Очистку журнала
//
// Типы алертов:
// - WARNING: приближение к лимиту (80% дневной потери, 70% дроудауна)
// - CRITICAL: критическое состояние портфеля
// - EMERGENCY: срабатывание аварийной остановки
//
// Real-time доставку клиентам выполняет сам движок через Broadcaster,
// сервис занимается только журналом.
type AlertService struct {
	alertRepo AlertRepositoryInterface
}

// NewAlertService создает новый экземпляр AlertService.
func NewAlertService(alertRepo AlertRepositoryInterface) *AlertService {
	return &AlertService{alertRepo: alertRepo}
}

// Run persists алерты из канала движка до отмены контекста.
//
// Запускается отдельной горутиной в main.go:
//
//	alertService := service.NewAlertService(alertRepo)
//	go alertService.Run(ctx, engine.Alerts())
//
// Ошибка записи в БД не останавливает цикл: алерт остается в памяти
// трекера, теряется только персистенция.
func (s *AlertService) Run(ctx context.Context, alerts <-chan models.RiskAlert) {
	for {
		select {
		case <-ctx.Done():
			return
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			if err := s.Persist(&alert); err != nil {
				log.Printf("alert service: persist failed: %v", err)
			}
		}
	}
}

// Persist сохраняет алерт в журнал.
//
// In-memory ID трекера заменяется на ID базы данных: журнал переживает
// рестарты, нумерация трекера - нет.
func (s *AlertService) Persist(alert *models.RiskAlert) error {
	stored := *alert
	stored.ID = 0

	if err := s.alertRepo.Create(&stored); err != nil {
		return err
	}

	alert.ID = stored.ID
	return nil
}

// GetAlerts возвращает список алертов с фильтрацией.
//
// Параметры:
// - types: список типов для фильтрации (например: ["WARNING", "EMERGENCY"])
//          если пустой - возвращаются все типы
// - limit: максимальное количество записей (по умолчанию 100)
//
// Возвращает алерты отсортированные по времени (новые сверху).
func (s *AlertService) GetAlerts(types []string, limit int) ([]models.RiskAlert, error) {
	// Устанавливаем дефолтный лимит
	if limit <= 0 {
		limit = 100
	}

	// Ограничиваем максимальный лимит
	if limit > 500 {
		limit = 500
	}

	// Нормализуем типы (приводим к верхнему регистру)
	normalizedTypes := make([]string, 0, len(types))
	for _, t := range types {
		normalized := strings.ToUpper(strings.TrimSpace(t))
		if normalized != "" && s.isValidAlertType(normalized) {
			normalizedTypes = append(normalizedTypes, normalized)
		}
	}

	if len(normalizedTypes) > 0 {
		return s.alertRepo.GetByTypes(normalizedTypes, limit)
	}

	return s.alertRepo.GetRecent(limit)
}

// GetUnacknowledged возвращает неподтвержденные алерты.
func (s *AlertService) GetUnacknowledged(limit int) ([]models.RiskAlert, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.alertRepo.GetUnacknowledged(limit)
}

// Acknowledge помечает алерт подтвержденным по ID из базы данных.
func (s *AlertService) Acknowledge(id int64) error {
	return s.alertRepo.Acknowledge(id)
}

// ClearAlerts очищает журнал алертов.
func (s *AlertService) ClearAlerts() error {
	return s.alertRepo.DeleteAll()
}

// GetAlertCount возвращает общее количество алертов в журнале.
func (s *AlertService) GetAlertCount() (int, error) {
	return s.alertRepo.Count()
}

// CleanupOld удаляет алерты старше указанного срока хранения.
//
// Используется для периодической очистки журнала. По умолчанию
// срок хранения - 30 дней.
func (s *AlertService) CleanupOld(retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return s.alertRepo.DeleteOlderThan(time.Now().UTC().Add(-retention))
}

// isValidAlertType проверяет, является ли тип допустимым.
func (s *AlertService) isValidAlertType(alertType string) bool {
	validTypes := map[string]bool{
		models.AlertTypeWarning:   true,
		models.AlertTypeCritical:  true,
		models.AlertTypeEmergency: true,
	}
	return validTypes[alertType]
}
