package httpapi

import (
	"net/http"
	"sync"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
)

// StopHandler serves POST /stop: it stops admitting new uploads and
// triggers the process's graceful shutdown sequence (spec.md §6:
// "stop accepting /yeet, let in-flight uploads/reads finish, drain
// Backbone/Dispatcher queues, await the Rendezvous barrier, then exit").
// The handler itself only flips the admission flag and calls trigger;
// cmd/yeetyoink owns the actual context cancellation and process exit.
type StopHandler struct {
	readiness *Readiness
	trigger   func()
	once      sync.Once
}

// NewStopHandler constructs a StopHandler. trigger is called exactly
// once, the first time POST /stop is received.
func NewStopHandler(readiness *Readiness, trigger func()) *StopHandler {
	return &StopHandler{readiness: readiness, trigger: trigger}
}

func (h *StopHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.readiness.SetAcceptingUploads(false)
	h.once.Do(func() {
		logger.Info("shutdown requested via POST /stop")
		h.trigger()
	})
	writeJSON(w, http.StatusAccepted, okResponse(map[string]string{
		"message": "shutdown initiated",
	}))
}
