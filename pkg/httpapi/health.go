package httpapi

import (
	"net/http"
)

// backboneCounter is the narrow interface health needs from
// *backbone.Backbone, so this package does not have to import it just
// for a diagnostic count.
type backboneCounter interface {
	LiveRecordCount() int
}

// HealthHandler serves the liveness/readiness/diagnostic endpoints
// (SPEC_FULL.md §4): whether the command loops have been marked started,
// and the count of currently-live file records.
type HealthHandler struct {
	backbone  backboneCounter
	readiness *Readiness
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(backbone backboneCounter, readiness *Readiness) *HealthHandler {
	return &HealthHandler{backbone: backbone, readiness: readiness}
}

// Liveness handles GET /health and /healthz and /livez: always 200 once
// the HTTP server is responding, for Kubernetes liveness probes.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "yeet-yoink",
	}))
}

// Readiness handles GET /readyz and /startupz: 503 until both the
// Backbone and Dispatcher command loops have confirmed startup.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"backbone_loop":   h.readiness.BackboneReady(),
		"dispatcher_loop": h.readiness.DispatcherReady(),
		"accepting_yeets": h.readiness.AcceptingUploads(),
		"live_records":    h.backbone.LiveRecordCount(),
	}

	if !h.readiness.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(data, "command loops not yet started"))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(data))
}
