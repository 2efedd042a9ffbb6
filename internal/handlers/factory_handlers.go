package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"climadex/internal/models"
	"climadex/internal/repository"
	"climadex/internal/services"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FactoryHandler handles factory API endpoints
type FactoryHandler struct {
	factoryService *services.FactoryService
	health         HealthChecker
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewFactoryHandler creates a new factory handler
func NewFactoryHandler(
	factoryService *services.FactoryService,
	health HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *FactoryHandler {
	return &FactoryHandler{
		factoryService: factoryService,
		health:         health,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ResultResponse is the acknowledgement body of write endpoints
type ResultResponse struct {
	Result string `json:"result"`
	ID     int64  `json:"id,omitempty"`
}

// GetFactory handles GET /factory/{id}
func (h *FactoryHandler) GetFactory(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	id, ok := h.factoryID(w, r)
	if !ok {
		return
	}

	factory, err := h.factoryService.GetFactory(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "failed to retrieve factory")
		return
	}

	h.sendSuccess(w, r, factory)
}

// GetFactoryTemperatures handles GET /factory/{id}/temperature
func (h *FactoryHandler) GetFactoryTemperatures(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	id, ok := h.factoryID(w, r)
	if !ok {
		return
	}

	samples, err := h.factoryService.FactoryTemperatures(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "failed to retrieve temperatures")
		return
	}

	h.sendSuccess(w, r, samples)
}

// ListFactories handles GET /factories
func (h *FactoryHandler) ListFactories(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	query := r.URL.Query()

	params := services.ListParams{
		Query: query.Get("q"),
	}

	// Unparsable paging values fall back to the defaults.
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		params.Page = p
	}
	if s, err := strconv.Atoi(query.Get("pageSize")); err == nil && s > 0 {
		params.PageSize = s
	}

	if riskStr := query.Get("risk"); riskStr != "" {
		risk, err := models.ParseTemperatureRisk(riskStr)
		if err != nil {
			h.sendError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		params.Risk = &risk
	}

	page, err := h.factoryService.ListFactories(r.Context(), params)
	if err != nil {
		h.handleError(w, r, err, "failed to retrieve factories")
		return
	}

	h.sendSuccess(w, r, page)
}

// CreateFactory handles POST /factories
func (h *FactoryHandler) CreateFactory(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	var input models.FactoryInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		h.metrics.RecordAPIError("invalid_body", routeTemplate(r))
		h.sendError(w, r, "Invalid body.", http.StatusBadRequest)
		return
	}

	factory, err := h.factoryService.CreateFactory(r.Context(), input)
	if err != nil {
		h.handleError(w, r, err, "failed to create factory")
		return
	}

	h.sendSuccess(w, r, ResultResponse{Result: "OK", ID: factory.ID})
}

// RecomputeTemperatureRisk handles PATCH /factories/temperature-risk
func (h *FactoryHandler) RecomputeTemperatureRisk(w http.ResponseWriter, r *http.Request) {
	defer h.observe(r, time.Now())

	result, err := h.factoryService.RecomputeAllRisk(r.Context())
	if err != nil {
		h.handleError(w, r, err, fmt.Sprintf("recompute failed after %d factories updated", result.Updated))
		return
	}

	h.sendSuccess(w, r, ResultResponse{Result: fmt.Sprintf("%d factories updated", result.Updated)})
}

// HealthCheck handles GET /health
func (h *FactoryHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(r.Context(), "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// ReadinessCheck handles GET /ready
func (h *FactoryHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[READINESS_CHECK] Store not reachable", logging.Fields{
			"error": err.Error(),
		})
		h.sendJSON(w, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		}, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// factoryID parses the {id} path variable, answering 400 when it is not an integer.
func (h *FactoryHandler) factoryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.sendError(w, r, fmt.Sprintf("invalid factory id %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// handleError maps service errors to responses. Unexpected errors are logged
// and answered with a generic message.
func (h *FactoryHandler) handleError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		h.metrics.RecordAPIError("not_found", routeTemplate(r))
		h.sendError(w, r, notFound.Error(), http.StatusNotFound)
		return
	}

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		h.metrics.RecordAPIError("validation_error", routeTemplate(r))
		h.sendError(w, r, validationErr.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
		"route":  routeTemplate(r),
		"method": r.Method,
	}, err)
	h.metrics.RecordAPIError("internal_error", routeTemplate(r))
	h.sendError(w, r, message, http.StatusInternalServerError)
}

func (h *FactoryHandler) observe(r *http.Request, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(routeTemplate(r)).Observe(time.Since(start).Seconds())
}

func (h *FactoryHandler) sendSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	h.metrics.RecordAPIRequest(routeTemplate(r), r.Method, "200")
	h.sendJSON(w, data, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *FactoryHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data) //nolint:errcheck // client went away
}

// sendError sends an error response
func (h *FactoryHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(routeTemplate(r), r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// routeTemplate returns the matched route pattern, keeping metric labels
// bounded for paths carrying ids.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// RegisterRoutes registers all factory API routes
func (h *FactoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/factory/{id}", h.GetFactory).Methods(http.MethodGet)
	router.HandleFunc("/factory/{id}/temperature", h.GetFactoryTemperatures).Methods(http.MethodGet)
	router.HandleFunc("/factories", h.ListFactories).Methods(http.MethodGet)
	router.HandleFunc("/factories", h.CreateFactory).Methods(http.MethodPost)
	router.HandleFunc("/factories/temperature-risk", h.RecomputeTemperatureRisk).Methods(http.MethodPatch)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadinessCheck).Methods(http.MethodGet)
}
