package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"riskengine/internal/repository"
	"riskengine/internal/service"
)

// AlertHandler отвечает за журнал риск-алертов
//
// Endpoints:
// - GET /api/v1/alerts - получение журнала алертов
// - GET /api/v1/alerts?types=warning,emergency - с фильтрацией по типам
// - GET /api/v1/alerts?unacknowledged=true - только неподтвержденные
// - POST /api/v1/alerts/{id}/ack - подтверждение алерта
// - DELETE /api/v1/alerts - очистка журнала
//
// Назначение:
// Обрабатывает запросы к журналу рисковых событий (предупреждения,
// критические состояния, аварийные остановки), поддерживает фильтрацию
// и пагинацию (по умолчанию 100 записей).
type AlertHandler struct {
	alertService service.AlertServiceInterface
}

// NewAlertHandler создает новый AlertHandler с внедрением зависимости
func NewAlertHandler(alertService service.AlertServiceInterface) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// GetAlertsResponse представляет ответ списка алертов
type GetAlertsResponse struct {
	Alerts interface{} `json:"alerts"`
	Total  int         `json:"total"`
}

// GetAlerts возвращает журнал алертов с фильтрацией
//
// GET /api/v1/alerts
//
// Query параметры:
// - types (string): фильтр по типам через запятую (warning,critical,emergency)
// - limit (int): количество записей (по умолчанию 100, максимум 500)
// - unacknowledged (bool): только неподтвержденные
//
// Примеры запросов:
// - GET /api/v1/alerts - все алерты (последние 100)
// - GET /api/v1/alerts?types=emergency - только аварийные остановки
// - GET /api/v1/alerts?unacknowledged=true&limit=20
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив алертов
// - 500 Internal Server Error: ошибка сервера
func (h *AlertHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	typesParam := r.URL.Query().Get("types")
	limitParam := r.URL.Query().Get("limit")

	var types []string
	if typesParam != "" {
		for _, part := range strings.Split(typesParam, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				types = append(types, strings.ToUpper(trimmed))
			}
		}
	}

	limit := 100
	if limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var err error
	var alerts interface{}
	var total int

	if r.URL.Query().Get("unacknowledged") == "true" {
		list, e := h.alertService.GetUnacknowledged(limit)
		alerts, total, err = list, len(list), e
	} else {
		list, e := h.alertService.GetAlerts(types, limit)
		alerts, total, err = list, len(list), e
	}

	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get alerts: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, GetAlertsResponse{
		Alerts: alerts,
		Total:  total,
	})
}

// AcknowledgeAlert помечает алерт подтвержденным
//
// POST /api/v1/alerts/{id}/ack
//
// HTTP коды:
// - 200 OK: алерт подтвержден
// - 400 Bad Request: невалидный ID
// - 404 Not Found: алерт не найден
// - 500 Internal Server Error: ошибка сервера
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid alert ID: "+vars["id"])
		return
	}

	if err := h.alertService.Acknowledge(id); err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			h.respondWithError(w, http.StatusNotFound, "Alert not found")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to acknowledge alert: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Alert acknowledged"})
}

// ClearAlerts очищает журнал алертов
//
// DELETE /api/v1/alerts
//
// Удаляет все алерты из базы данных. Это действие необратимо.
//
// HTTP коды:
// - 200 OK: журнал успешно очищен
// - 500 Internal Server Error: ошибка при очистке
func (h *AlertHandler) ClearAlerts(w http.ResponseWriter, r *http.Request) {
	if err := h.alertService.ClearAlerts(); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to clear alerts: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Alerts cleared successfully"})
}

// respondWithError отправляет JSON ошибку
func (h *AlertHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON отправляет JSON ответ
func (h *AlertHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
