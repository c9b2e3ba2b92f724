package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/provision"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the account store reachable?
type HealthHandler struct {
	store       account.Store
	provisioner *provision.Service
}

// NewHealthHandler creates a new health handler.
//
// The store parameter may be nil, in which case readiness checks will
// return unhealthy status. The provisioner may be nil when provisioning
// is disabled.
func NewHealthHandler(store account.Store, provisioner *provision.Service) *HealthHandler {
	return &HealthHandler{store: store, provisioner: provisioner}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. This endpoint is designed
// for Kubernetes liveness probes and should always succeed as long as the
// HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "labauth",
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK if the server is ready to accept requests. This checks
// that the account store is initialized and answers a query (the two
// seeded groups always exist, so an empty group list also means the
// store is broken).
//
// Returns 503 Service Unavailable if the server is not ready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("account store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	groups, err := h.store.ListGroups(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("account store unreachable: "+err.Error()))
		return
	}
	if len(groups) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("account store not seeded"))
		return
	}

	provisioning := h.provisioner != nil && h.provisioner.Enabled()
	writeJSON(w, http.StatusOK, healthyResponse(map[string]interface{}{
		"groups":       len(groups),
		"provisioning": provisioning,
	}))
}
