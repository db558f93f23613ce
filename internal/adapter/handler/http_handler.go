package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tdnguyen/retail-analytics/internal/core/domain"
	"github.com/tdnguyen/retail-analytics/internal/core/service"
	"github.com/tdnguyen/retail-analytics/internal/ml"
)

// HTTPHandler exposes the analytics and ML services over REST. Routing,
// auth and validation frameworks stay out of the core; this is a thin
// translation layer.
type HTTPHandler struct {
	analytics *service.AnalyticsService
	mlService *service.MLService
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(analytics *service.AnalyticsService, mlService *service.MLService) *HTTPHandler {
	return &HTTPHandler{analytics: analytics, mlService: mlService}
}

// Register wires every route onto mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)

	mux.HandleFunc("/api/analytics/top-customers", h.TopCustomers)
	mux.HandleFunc("/api/analytics/top-products", h.TopProducts)
	mux.HandleFunc("/api/analytics/sales-trends", h.SalesTrends)
	mux.HandleFunc("/api/analytics/revenue-by-country", h.RevenueByCountry)
	mux.HandleFunc("/api/analytics/customer-segments", h.CustomerSegments)
	mux.HandleFunc("/api/analytics/kpis", h.KPIs)
	mux.HandleFunc("/api/analytics/dashboard", h.Dashboard)

	mux.HandleFunc("/api/ml/train/segmentation", h.TrainSegmentation)
	mux.HandleFunc("/api/ml/train/churn", h.TrainChurn)
	mux.HandleFunc("/api/ml/train/all", h.TrainAll)
	mux.HandleFunc("/api/ml/train/jobs", h.StartTrainingJob)
	mux.HandleFunc("/api/ml/train/jobs/", h.TrainingJob)
	mux.HandleFunc("/api/ml/status", h.ModelStatus)
	mux.HandleFunc("/api/ml/segments", h.PredictSegments)
	mux.HandleFunc("/api/ml/churn-risk", h.PredictChurn)
	mux.HandleFunc("/api/ml/insights", h.Insights)
}

func (h *HTTPHandler) TopCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r, 10, 100)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	customers, err := h.analytics.TopCustomers(r.Context(), limit, r.URL.Query().Get("country"), window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
		return
	}
	writeJSON(w, http.StatusOK, emptyList(customers))
}

func (h *HTTPHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r, 10, 100)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	products, err := h.analytics.TopProducts(r.Context(), limit, window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
		return
	}
	writeJSON(w, http.StatusOK, emptyList(products))
}

func (h *HTTPHandler) SalesTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	period := domain.TrendPeriod(r.URL.Query().Get("period"))
	trends, err := h.analytics.SalesTrends(r.Context(), period, window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
		return
	}
	writeJSON(w, http.StatusOK, emptyList(trends))
}

func (h *HTTPHandler) RevenueByCountry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r, 20, 200)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	countries, err := h.analytics.RevenueByCountry(r.Context(), limit, window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
		return
	}
	writeJSON(w, http.StatusOK, emptyList(countries))
}

func (h *HTTPHandler) CustomerSegments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	segments, err := h.analytics.CustomerSegments(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
		return
	}
	writeJSON(w, http.StatusOK, emptyList(segments))
}

func (h *HTTPHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	kpis, err := h.analytics.KPIs(r.Context(), window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
		return
	}
	writeJSON(w, http.StatusOK, kpis)
}

func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r, 10, 50)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	dashboard, err := h.analytics.Dashboard(r.Context(), limit, window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *HTTPHandler) TrainSegmentation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.mlService.TrainSegmentation(r.Context()))
}

func (h *HTTPHandler) TrainChurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.mlService.TrainChurn(r.Context()))
}

func (h *HTTPHandler) TrainAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.mlService.TrainAll(r.Context()))
}

func (h *HTTPHandler) StartTrainingJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusAccepted, h.mlService.StartTrainAll(r.Context()))
}

func (h *HTTPHandler) TrainingJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/ml/train/jobs/")
	job, ok := h.mlService.Job(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{"training job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *HTTPHandler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.mlService.Status())
}

func (h *HTTPHandler) PredictSegments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	predictions, err := h.mlService.PredictSegments(r.Context())
	if err != nil {
		h.writeMLError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyList(predictions))
}

func (h *HTTPHandler) PredictChurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var customerID *int64
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{"invalid customer_id"})
			return
		}
		customerID = &id
	}

	predictions, err := h.mlService.PredictChurn(r.Context(), customerID)
	if err != nil {
		h.writeMLError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyList(predictions))
}

func (h *HTTPHandler) Insights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	insights, err := h.mlService.Insights(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeMLError maps the not-trained precondition to 409; everything else is
// an internal failure.
func (h *HTTPHandler) writeMLError(w http.ResponseWriter, err error) {
	if errors.Is(err, ml.ErrNotTrained) {
		writeJSON(w, http.StatusConflict, errorResponse{err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
}

func parseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > max {
		return 0, errors.New("limit must be an integer between 1 and " + strconv.Itoa(max))
	}
	return limit, nil
}

func parseWindow(r *http.Request) (domain.DateRange, error) {
	var window domain.DateRange
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, errors.New("start_date must be RFC 3339")
		}
		window.Start = &t
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return window, errors.New("end_date must be RFC 3339")
		}
		window.End = &t
	}
	return window, nil
}

// emptyList keeps empty results serializing as [] instead of null.
func emptyList[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
