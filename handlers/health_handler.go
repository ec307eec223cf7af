package handlers

import (
	"net/http"
	"time"

	"github.com/pastagem/pastagem-api/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Checks       map[string]string `json:"checks,omitempty"`
	JWKSURL      string            `json:"jwks_url,omitempty"`
	CachedKeys   *int              `json:"cached_keys,omitempty"`
	CachedKeyIDs []string          `json:"cached_key_ids,omitempty"`
}

// KeyStats reports the state of the signing key cache
type KeyStats interface {
	Len() int
	KeyIDs() []string
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	keys    KeyStats
	jwksURL string
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(keys KeyStats, jwksURL string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		keys:    keys,
		jwksURL: jwksURL,
		logger:  logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// The key cache fills lazily, so zero cached keys is still ready.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"jwks": "configured"},
		JWKSURL:   h.jwksURL,
	}

	if h.keys != nil {
		n := h.keys.Len()
		response.CachedKeys = &n
		response.CachedKeyIDs = h.keys.KeyIDs()
	}

	if err := utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
