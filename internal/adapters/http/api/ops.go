package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/okian/taskforce/internal/app"
	"github.com/okian/taskforce/pkg/metrics"
)

// StatsProvider reports the allocation service's runtime counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// OpsHandler serves the operational endpoints: the metrics registry on
// /healthz and service counters on /stats.
type OpsHandler struct {
	stats   StatsProvider
	metrics http.Handler
}

// NewOpsHandler creates an OpsHandler. stats may be nil before the service
// is wired, in which case /stats answers unavailable.
func NewOpsHandler(stats StatsProvider) *OpsHandler {
	return &OpsHandler{
		stats:   stats,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleStats handles GET /stats.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	if h.stats == nil {
		writeFailure(w, "stats", service.ErrNotStarted)
		return
	}
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}
