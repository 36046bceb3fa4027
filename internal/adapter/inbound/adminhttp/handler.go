// Package adminhttp serves the operational endpoints (health, readiness,
// metrics) next to the MCP SSE server.
package adminhttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solarhook/opendtu-mcp/internal/domain"
)

// readyTimeout bounds the appliance probe so a hung appliance cannot hang
// the readiness check.
const readyTimeout = 5 * time.Second

// ApplianceProbe is the subset of the appliance client the readiness
// check needs.
type ApplianceProbe interface {
	GetLimitStatus(ctx context.Context, serial string) (map[string]domain.LimitStatus, error)
}

// Handlers holds dependencies for the admin HTTP endpoints.
type Handlers struct {
	probe  ApplianceProbe
	logger *slog.Logger
}

// NewHandlers creates the admin handler set.
func NewHandlers(probe ApplianceProbe, logger *slog.Logger) *Handlers {
	return &Handlers{
		probe:  probe,
		logger: logger.With("component", "adminhttp"),
	}
}

// RegisterRoutes sets up the admin endpoints on mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// handleHealthz reports process liveness only.
func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// handleReadyz probes the appliance with a cheap read. A failing probe
// returns 503 with the error kind so operators see why.
func (h *Handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if _, err := h.probe.GetLimitStatus(ctx, ""); err != nil {
		h.logger.Warn("readiness probe failed", slog.Any("error", err))
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "appliance not ready: %s\n", domain.KindOf(err))
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ready")
}
