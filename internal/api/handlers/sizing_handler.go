package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"riskengine/internal/risk"
	"riskengine/internal/service"
)

// SizingHandler отвечает за расчет размера позиции
//
// Endpoints:
// - POST /api/v1/sizing/calculate - расчет для пары entry/stop
// - POST /api/v1/sizing/scenarios - расчет нескольких вариантов стопа
// - GET /api/v1/sizing/stop-range - оптимальные стопы по диапазону плеч
//
// Назначение:
// Обрабатывает запросы на расчет позиции под фиксированный риск:
// подбор плеча и доли депозита, сравнение сценариев стоп-лосса.
// Расчет идет от текущего баланса аккаунта с учетом множителя
// текущего уровня риска.
type SizingHandler struct {
	riskService service.RiskServiceInterface
}

// NewSizingHandler создает новый SizingHandler с внедрением зависимости
func NewSizingHandler(riskService service.RiskServiceInterface) *SizingHandler {
	return &SizingHandler{riskService: riskService}
}

// CalculateRequest представляет запрос расчета позиции
type CalculateRequest struct {
	EntryPrice    float64 `json:"entry_price"`
	StopLossPrice float64 `json:"stop_loss_price"`
}

// Calculate рассчитывает размер позиции
//
// POST /api/v1/sizing/calculate
//
// Тело запроса:
//
//	{"entry_price": 100, "stop_loss_price": 99}
//
// Ответ содержит плечо, долю депозита, количество, точность риска
// и предупреждения (высокое плечо, превышение потолка биржи).
//
// HTTP коды:
// - 200 OK: успешно, возвращает SizingResult
// - 400 Bad Request: невалидные цены или тело запроса
// - 503 Service Unavailable: данные аккаунта еще не загружались
// - 500 Internal Server Error: ошибка сервера
func (h *SizingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.riskService.CalculateSizing(req.EntryPrice, req.StopLossPrice)
	if err != nil {
		h.respondSizingError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}

// ScenariosRequest представляет запрос расчета сценариев
type ScenariosRequest struct {
	EntryPrice     float64   `json:"entry_price"`
	StopLossPrices []float64 `json:"stop_loss_prices"`
}

// Scenarios рассчитывает сайзинг для нескольких вариантов стоп-лосса
//
// POST /api/v1/sizing/scenarios
//
// Тело запроса:
//
//	{"entry_price": 100, "stop_loss_prices": [99, 98, 95]}
//
// Невалидные варианты не прерывают расчет - для них в карте
// результатов возвращается ошибка.
//
// HTTP коды:
// - 200 OK: успешно
// - 400 Bad Request: невалидное тело запроса или пустой список стопов
// - 503 Service Unavailable: данные аккаунта еще не загружались
func (h *SizingHandler) Scenarios(w http.ResponseWriter, r *http.Request) {
	var req ScenariosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.StopLossPrices) == 0 {
		h.respondWithError(w, http.StatusBadRequest, "stop_loss_prices must not be empty")
		return
	}

	scenarios, err := h.riskService.CalculateScenarios(req.EntryPrice, req.StopLossPrices)
	if err != nil {
		h.respondSizingError(w, err)
		return
	}

	// float ключи не сериализуются в JSON - конвертируем в строки
	byStop := make(map[string]risk.ScenarioResult, len(scenarios))
	for stop, scenario := range scenarios {
		byStop[strconv.FormatFloat(stop, 'f', -1, 64)] = scenario
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"scenarios": byStop})
}

// StopRange возвращает оптимальные стоп-лоссы по диапазону плеч
//
// GET /api/v1/sizing/stop-range?entry_price=100
//
// Для каждого плеча от 1 до потолка биржи возвращается цена стопа,
// при которой целевой риск достигается точно.
//
// HTTP коды:
// - 200 OK: успешно
// - 400 Bad Request: отсутствует или невалиден entry_price
// - 503 Service Unavailable: данные аккаунта еще не загружались
func (h *SizingHandler) StopRange(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Query().Get("entry_price")
	if param == "" {
		h.respondWithError(w, http.StatusBadRequest, "entry_price query parameter is required")
		return
	}

	entryPrice, err := strconv.ParseFloat(param, 64)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid entry_price: "+param)
		return
	}

	options, err := h.riskService.GetStopRange(entryPrice)
	if err != nil {
		h.respondSizingError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"options": options,
		"total":   len(options),
	})
}

// respondSizingError маппит ошибки расчета на HTTP коды
func (h *SizingHandler) respondSizingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, risk.ErrNoAccountData):
		h.respondWithError(w, http.StatusServiceUnavailable, "Account data not loaded yet")
	case errors.Is(err, risk.ErrInvalidPrice), errors.Is(err, risk.ErrInvalidBalance):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.respondWithError(w, http.StatusInternalServerError, "Sizing failed: "+err.Error())
	}
}

// respondWithError отправляет JSON ошибку
func (h *SizingHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON отправляет JSON ответ
func (h *SizingHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
