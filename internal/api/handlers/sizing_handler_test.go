package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"riskengine/internal/models"
	"riskengine/internal/risk"
)

// ============ SizingHandler Tests ============

func TestSizingHandler_Calculate(t *testing.T) {
	t.Run("returns sizing result", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		handler := NewSizingHandler(mockSvc)

		body := strings.NewReader(`{"entry_price": 100, "stop_loss_price": 99}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sizing/calculate", body)
		w := httptest.NewRecorder()

		handler.Calculate(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response models.SizingResult
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Leverage != 3 {
			t.Errorf("expected leverage 3, got %d", response.Leverage)
		}
	})

	t.Run("returns 400 on invalid body", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		handler := NewSizingHandler(mockSvc)

		body := strings.NewReader(`{invalid`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sizing/calculate", body)
		w := httptest.NewRecorder()

		handler.Calculate(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("returns 400 on invalid prices", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		mockSvc.sizingErr = fmt.Errorf("%w: entry=0 stop=0", risk.ErrInvalidPrice)
		handler := NewSizingHandler(mockSvc)

		body := strings.NewReader(`{"entry_price": 0, "stop_loss_price": 0}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sizing/calculate", body)
		w := httptest.NewRecorder()

		handler.Calculate(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("returns 503 when no account data", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		mockSvc.sizingErr = risk.ErrNoAccountData
		handler := NewSizingHandler(mockSvc)

		body := strings.NewReader(`{"entry_price": 100, "stop_loss_price": 99}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sizing/calculate", body)
		w := httptest.NewRecorder()

		handler.Calculate(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
	})
}

func TestSizingHandler_Scenarios(t *testing.T) {
	t.Run("returns scenarios for all stops", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		handler := NewSizingHandler(mockSvc)

		body := strings.NewReader(`{"entry_price": 100, "stop_loss_prices": [99, 98, 95]}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sizing/scenarios", body)
		w := httptest.NewRecorder()

		handler.Scenarios(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response struct {
			Scenarios map[string]risk.ScenarioResult `json:"scenarios"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(response.Scenarios) != 3 {
			t.Errorf("expected 3 scenarios, got %d", len(response.Scenarios))
		}
	})

	t.Run("returns 400 on empty stops", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		handler := NewSizingHandler(mockSvc)

		body := strings.NewReader(`{"entry_price": 100, "stop_loss_prices": []}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sizing/scenarios", body)
		w := httptest.NewRecorder()

		handler.Scenarios(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestSizingHandler_StopRange(t *testing.T) {
	t.Run("returns stop options", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		handler := NewSizingHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sizing/stop-range?entry_price=100", nil)
		w := httptest.NewRecorder()

		handler.StopRange(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response struct {
			Options []models.StopRangeOption `json:"options"`
			Total   int                      `json:"total"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Total != 2 {
			t.Errorf("expected 2 options, got %d", response.Total)
		}
	})

	t.Run("returns 400 without entry_price", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		handler := NewSizingHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sizing/stop-range", nil)
		w := httptest.NewRecorder()

		handler.StopRange(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("returns 400 on unparsable entry_price", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		handler := NewSizingHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sizing/stop-range?entry_price=abc", nil)
		w := httptest.NewRecorder()

		handler.StopRange(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}
