package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
	"github.com/tdnguyen/retail-analytics/internal/core/service"
	"github.com/tdnguyen/retail-analytics/internal/port"
)

// Mock AnalyticsRepository serving canned data.
type stubRepo struct {
	customers []domain.TopCustomer
	stats     []domain.CustomerStats
}

func (s *stubRepo) TopCustomers(ctx context.Context, limit int, country string, window domain.DateRange) ([]domain.TopCustomer, error) {
	return s.customers, nil
}

func (s *stubRepo) TopProducts(ctx context.Context, limit int, window domain.DateRange) ([]domain.TopProduct, error) {
	return nil, nil
}

func (s *stubRepo) SalesTrends(ctx context.Context, period domain.TrendPeriod, window domain.DateRange) ([]domain.SalesTrend, error) {
	return nil, nil
}

func (s *stubRepo) RevenueByCountry(ctx context.Context, limit int, window domain.DateRange) ([]domain.RevenueByCountry, error) {
	return nil, nil
}

func (s *stubRepo) CustomerRFM(ctx context.Context) ([]domain.RFMRecord, error) {
	return nil, nil
}

func (s *stubRepo) PeriodTotals(ctx context.Context, start, end time.Time) (domain.PeriodTotals, error) {
	return domain.PeriodTotals{Revenue: decimal.Zero}, nil
}

func (s *stubRepo) CustomerStats(ctx context.Context) ([]domain.CustomerStats, error) {
	return s.stats, nil
}

type stubStore struct{}

func (stubStore) Save(name string, data []byte) error { return nil }
func (stubStore) Load(name string) ([]byte, error)    { return nil, port.ErrArtifactNotFound }
func (stubStore) Location() string                    { return "stub" }

func newTestMux(repo *stubRepo) *http.ServeMux {
	analytics := service.NewAnalyticsService(repo, nil, 0)
	mlService := service.NewMLService(repo, stubStore{})

	mux := http.NewServeMux()
	NewHTTPHandler(analytics, mlService).Register(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthCheck(t *testing.T) {
	mux := newTestMux(&stubRepo{})
	rec := doRequest(mux, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestTopCustomers_OK(t *testing.T) {
	repo := &stubRepo{customers: []domain.TopCustomer{{CustomerID: 1, CustomerName: "Alice", TotalSpent: decimal.NewFromInt(50)}}}
	mux := newTestMux(repo)

	rec := doRequest(mux, http.MethodGet, "/api/analytics/top-customers?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %s", ct)
	}

	var customers []domain.TopCustomer
	if err := json.Unmarshal(rec.Body.Bytes(), &customers); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(customers) != 1 || customers[0].CustomerName != "Alice" {
		t.Errorf("unexpected body: %s", rec.Body)
	}
}

func TestTopCustomers_EmptyIsList(t *testing.T) {
	mux := newTestMux(&stubRepo{})
	rec := doRequest(mux, http.MethodGet, "/api/analytics/top-customers")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty list, got %s", body)
	}
}

func TestTopCustomers_LimitValidation(t *testing.T) {
	mux := newTestMux(&stubRepo{})
	for _, target := range []string{
		"/api/analytics/top-customers?limit=0",
		"/api/analytics/top-customers?limit=101",
		"/api/analytics/top-customers?limit=abc",
	} {
		rec := doRequest(mux, http.MethodGet, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestTopCustomers_WindowValidation(t *testing.T) {
	mux := newTestMux(&stubRepo{})
	rec := doRequest(mux, http.MethodGet, "/api/analytics/top-customers?start_date=2026-13-45")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed start_date, got %d", rec.Code)
	}

	rec = doRequest(mux, http.MethodGet, "/api/analytics/top-customers?start_date=2026-01-01T00:00:00Z")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for RFC 3339 start_date, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(&stubRepo{})

	if rec := doRequest(mux, http.MethodPost, "/api/analytics/top-customers"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if rec := doRequest(mux, http.MethodGet, "/api/ml/train/all"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestPredict_UntrainedConflict(t *testing.T) {
	mux := newTestMux(&stubRepo{})

	for _, target := range []string{"/api/ml/segments", "/api/ml/churn-risk"} {
		rec := doRequest(mux, http.MethodGet, target)
		if rec.Code != http.StatusConflict {
			t.Errorf("%s: expected 409 before training, got %d", target, rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid error body: %v", err)
		}
		if !strings.Contains(resp["error"], "trained") {
			t.Errorf("%s: unexpected error message %q", target, resp["error"])
		}
	}
}

func TestPredictChurn_InvalidCustomerID(t *testing.T) {
	mux := newTestMux(&stubRepo{})
	rec := doRequest(mux, http.MethodGet, "/api/ml/churn-risk?customer_id=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestTrainSegmentation_InsufficientDataIsStructured(t *testing.T) {
	// Too few customers is a structured training result, not an HTTP error.
	mux := newTestMux(&stubRepo{stats: []domain.CustomerStats{{CustomerID: 1, TotalOrders: 1}}})

	rec := doRequest(mux, http.MethodPost, "/api/ml/train/segmentation")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result domain.TrainingResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if result.Status != domain.TrainingStatusError {
		t.Errorf("expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "insufficient data") {
		t.Errorf("unexpected error message: %s", result.Error)
	}
}

func TestModelStatus(t *testing.T) {
	mux := newTestMux(&stubRepo{})
	rec := doRequest(mux, http.MethodGet, "/api/ml/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var status domain.ModelsStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if status.Segmentation.IsTrained || status.Churn.IsTrained {
		t.Error("expected untrained models on a fresh service")
	}
	if status.ModelsDir != "stub" {
		t.Errorf("unexpected models dir: %s", status.ModelsDir)
	}
}

func TestTrainingJob_NotFound(t *testing.T) {
	mux := newTestMux(&stubRepo{})
	rec := doRequest(mux, http.MethodGet, "/api/ml/train/jobs/no-such-id")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
