// Package httpapi is the relay's HTTP surface (spec.md §6, SPEC_FULL.md
// §5): POST /yeet, GET /yoink/{id}, /health*, /metrics, and POST /stop,
// built on a chi router with request-id/real-ip/recoverer/timeout
// middleware and a custom request logger through internal/logger.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/backboneerr"
)

// Response is the JSON envelope for every non-streaming response.
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed encoding response body", "error", err)
	}
}

func okResponse(data interface{}) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func healthyResponse(data interface{}) Response {
	return Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(data interface{}, errMsg string) Response {
	return Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Data: data, Error: errMsg}
}

// problemDetails is the body returned for §7 error kinds that surface as
// HTTP 500: a minimal problem-details document naming the file id and
// the underlying error, not a bare string.
type problemDetails struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	FileID    string    `json:"file_id,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, fileID string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	writeJSON(w, status, problemDetails{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Title:     title,
		Detail:    detail,
		FileID:    fileID,
	})
}

// statusForBackboneError maps the §7 sentinel errors to HTTP status
// codes via errors.Is, so a wrapped error still matches its sentinel.
func statusForBackboneError(err error) (int, string) {
	switch {
	case errors.Is(err, backboneerr.ErrUnknownFile):
		return http.StatusNotFound, "file not found"
	case errors.Is(err, backboneerr.ErrFileExpired):
		return http.StatusGone, "file expired"
	case errors.Is(err, backboneerr.ErrUnexpectedEOF):
		return http.StatusInternalServerError, "unexpected end of input"
	case errors.Is(err, backboneerr.ErrInvalidFileLength):
		return http.StatusInternalServerError, "declared content length did not match observed size"
	case errors.Is(err, backboneerr.ErrIntegrityCheckFailed):
		return http.StatusInternalServerError, "content-md5 did not match observed digest"
	case errors.Is(err, backboneerr.ErrFinalizeSyncFailed):
		return http.StatusInternalServerError, "failed flushing file to disk"
	case errors.Is(err, backboneerr.ErrFailedCreatingFile):
		return http.StatusInternalServerError, "failed creating backing file"
	case errors.Is(err, backboneerr.ErrFailedCreatingWriter):
		return http.StatusInternalServerError, "failed creating writer"
	case errors.Is(err, backboneerr.ErrInternalErrorMayRetry):
		return http.StatusInternalServerError, "internal error, retry with a new request"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
