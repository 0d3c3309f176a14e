package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
	"github.com/vyrodovalexey/pantry-tracker/internal/store"
)

// ProbeHandler serves liveness and readiness checks.
type ProbeHandler struct {
	pinger  store.Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewProbeHandler creates a ProbeHandler. A nil pinger means the store
// has no connection to check and readiness always succeeds.
func NewProbeHandler(pinger store.Pinger, timeout time.Duration, logger *zap.Logger) *ProbeHandler {
	return &ProbeHandler{
		pinger:  pinger,
		timeout: timeout,
		logger:  logger,
	}
}

// RegisterRoutes registers the probe routes with the router.
func (h *ProbeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
}

// HealthCheck handles GET /health requests.
func (h *ProbeHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(response))
}

// ReadyCheck handles GET /ready requests by pinging the store.
func (h *ProbeHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := requestContext(r, h.timeout)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			resp := model.NewErrorResponse[ReadyResponse]("store unreachable")
			resp.Data.Status = "not ready"
			writeJSON(w, h.logger, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(ReadyResponse{Status: "ready"}))
}
