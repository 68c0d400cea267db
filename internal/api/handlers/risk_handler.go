package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"riskengine/internal/risk"
	"riskengine/internal/service"
	"riskengine/pkg/utils"
)

// RiskHandler отвечает за состояние риска портфеля
//
// Endpoints:
// - GET /api/v1/risk/status - оценка портфеля с пер-позиционными рисками
// - GET /api/v1/risk/metrics - метрики торговой сессии
// - GET /api/v1/risk/positions - открытые позиции
// - GET /api/v1/risk/account - состояние аккаунта
// - GET /api/v1/risk/snapshots - суточные срезы за период
// - POST /api/v1/risk/check - pre-trade проверка сигнала
//
// Назначение:
// Отдает состояние риск-движка API клиентам. Данные берутся из
// last-known снимка движка, внешних запросов к бирже нет.
type RiskHandler struct {
	riskService service.RiskServiceInterface
}

// NewRiskHandler создает новый RiskHandler с внедрением зависимости
func NewRiskHandler(riskService service.RiskServiceInterface) *RiskHandler {
	return &RiskHandler{riskService: riskService}
}

// GetStatus возвращает последнюю оценку портфеля
//
// GET /api/v1/risk/status
//
// HTTP коды:
// - 200 OK: успешно, возвращает PortfolioAssessment
// - 503 Service Unavailable: данные аккаунта еще не загружались
// - 500 Internal Server Error: ошибка сервера
func (h *RiskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.riskService.GetStatus()
	if err != nil {
		if errors.Is(err, risk.ErrNoAccountData) {
			h.respondWithError(w, http.StatusServiceUnavailable, "Account data not loaded yet")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get risk status: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, status)
}

// GetMetrics возвращает метрики торговой сессии
//
// GET /api/v1/risk/metrics
//
// Возвращает дневной/недельный/месячный PNL, дроудаун, концентрацию,
// общий балл риска 0-100 и уровень риска.
func (h *RiskHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.riskService.GetMetrics())
}

// GetPositionsResponse представляет ответ списка позиций
type GetPositionsResponse struct {
	Positions interface{} `json:"positions"`
	Total     int         `json:"total"`
}

// GetPositions возвращает last-known открытые позиции
//
// GET /api/v1/risk/positions
//
// HTTP коды:
// - 200 OK: успешно
// - 503 Service Unavailable: данные аккаунта еще не загружались
func (h *RiskHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.riskService.GetPositions()
	if err != nil {
		if errors.Is(err, risk.ErrNoAccountData) {
			h.respondWithError(w, http.StatusServiceUnavailable, "Account data not loaded yet")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get positions: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, GetPositionsResponse{
		Positions: positions,
		Total:     len(positions),
	})
}

// GetAccount возвращает last-known состояние аккаунта
//
// GET /api/v1/risk/account
func (h *RiskHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.riskService.GetAccount()
	if err != nil {
		if errors.Is(err, risk.ErrNoAccountData) {
			h.respondWithError(w, http.StatusServiceUnavailable, "Account data not loaded yet")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get account: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, account)
}

// GetSnapshots возвращает суточные срезы за период
//
// GET /api/v1/risk/snapshots
//
// Query параметры:
// - from (string): начало периода в формате 2006-01-02 (по умолчанию -30 дней)
// - to (string): конец периода (по умолчанию сегодня)
//
// HTTP коды:
// - 200 OK: успешно
// - 400 Bad Request: невалидный формат даты
// - 500 Internal Server Error: ошибка сервера
func (h *RiskHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	defaultRange := utils.GetLastNDays(30)
	from := defaultRange.Start
	to := defaultRange.End

	if param := r.URL.Query().Get("from"); param != "" {
		parsed, err := time.Parse("2006-01-02", param)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "Invalid 'from' date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}

	if param := r.URL.Query().Get("to"); param != "" {
		parsed, err := time.Parse("2006-01-02", param)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "Invalid 'to' date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}

	snapshots, err := h.riskService.GetSnapshots(from, to)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get snapshots: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"total":     len(snapshots),
	})
}

// CheckTradeRequest представляет запрос pre-trade проверки
type CheckTradeRequest struct {
	// Уверенность сигнала 0-100
	Confidence float64 `json:"confidence"`
}

// CheckTrade выполняет pre-trade проверку сигнала
//
// POST /api/v1/risk/check
//
// Тело запроса:
//
//	{"confidence": 75}
//
// Ответ содержит allowed, причину отказа и текущие ограничения
// (множитель размера, минимальная уверенность).
//
// HTTP коды:
// - 200 OK: проверка выполнена (allowed может быть false)
// - 400 Bad Request: невалидное тело запроса
func (h *RiskHandler) CheckTrade(w http.ResponseWriter, r *http.Request) {
	var req CheckTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Confidence < 0 || req.Confidence > 100 {
		h.respondWithError(w, http.StatusBadRequest, "Confidence must be between 0 and 100")
		return
	}

	h.respondWithJSON(w, http.StatusOK, h.riskService.CheckTrade(req.Confidence))
}

// respondWithError отправляет JSON ошибку
func (h *RiskHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON отправляет JSON ответ
func (h *RiskHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
