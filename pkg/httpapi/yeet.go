package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/backboneerr"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/guard"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
	"github.com/yeet-yoink/yeet-yoink/pkg/fileid"
	"github.com/yeet-yoink/yeet-yoink/pkg/metrics"
)

// admitter is the narrow view of *backbone.Backbone the yeet handler
// needs: Admission only (spec.md §4.F "new_file").
type admitter interface {
	NewFile(ctx context.Context, id string, declared guard.Declared, fileName, contentType string) (*guard.Guard, error)
}

// YeetHandler serves POST /yeet (spec.md §6).
type YeetHandler struct {
	backbone          admitter
	metrics           *metrics.Metrics
	readiness         *Readiness
	maxFileNameLength int
}

// NewYeetHandler constructs a YeetHandler.
func NewYeetHandler(backbone admitter, m *metrics.Metrics, readiness *Readiness, maxFileNameLength int) *YeetHandler {
	return &YeetHandler{backbone: backbone, metrics: m, readiness: readiness, maxFileNameLength: maxFileNameLength}
}

type yeetResponseBody struct {
	ID            string            `json:"id"`
	FileSizeBytes int64             `json:"file_size_bytes"`
	Hashes        map[string]string `json:"hashes"`
}

func (h *YeetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.readiness != nil && !h.readiness.AcceptingUploads() {
		writeProblem(w, http.StatusServiceUnavailable, "not accepting uploads", "", nil)
		return
	}

	id := fileid.New()
	fileName := r.URL.Query().Get("file_name")
	if len(fileName) > h.maxFileNameLength {
		fileName = fileName[:h.maxFileNameLength]
	}
	contentType := r.Header.Get("Content-Type")

	declared, err := parseDeclared(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request headers", id.String(), err)
		return
	}

	g, err := h.backbone.NewFile(r.Context(), id.String(), declared, fileName, contentType)
	if err != nil {
		status, title := statusForBackboneError(err)
		writeProblem(w, status, title, id.String(), err)
		return
	}
	defer g.Close()

	start := time.Now()
	if _, err := io.Copy(g, r.Body); err != nil {
		logger.WarnCtx(r.Context(), "upload body copy failed", "file_id", id.String(), "error", err)
		status, title := statusForBackboneError(err)
		writeProblem(w, status, title, id.String(), err)
		return
	}

	summary, err := g.Finalize(sharedfile.Sync)
	if err != nil {
		status, title := statusForBackboneError(err)
		writeProblem(w, status, title, id.String(), err)
		return
	}

	h.metrics.ObserveUploadBytes(summary.FileSizeBytes)
	h.metrics.ObserveUploadDuration(time.Since(start))

	writeYeetResponse(w, id.String(), summary)
}

func writeYeetResponse(w http.ResponseWriter, id string, summary digest.Summary) {
	w.Header().Set("Expires", summary.Expires.UTC().Format(http.TimeFormat))
	w.Header().Set("yy-id", id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	body := yeetResponseBody{
		ID:            id,
		FileSizeBytes: summary.FileSizeBytes,
		Hashes: map[string]string{
			"md5":    summary.MD5,
			"sha256": summary.SHA256,
		},
	}
	_ = writeJSONBody(w, body)
}

func writeJSONBody(w http.ResponseWriter, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

// parseDeclared reads the optional Content-Length and Content-MD5
// preconditions the Writer Guard enforces (spec.md §6).
func parseDeclared(r *http.Request) (guard.Declared, error) {
	var d guard.Declared

	if cl := r.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return d, backboneerr.New("parse_content_length", "", backboneerr.ErrFailedCreatingWriter)
		}
		d.HasLength = true
		d.Length = n
	}

	if md5Header := r.Header.Get("Content-MD5"); md5Header != "" {
		raw, err := base64.StdEncoding.DecodeString(md5Header)
		if err != nil || len(raw) != 16 {
			return d, backboneerr.New("parse_content_md5", "", backboneerr.ErrFailedCreatingWriter)
		}
		d.HasMD5 = true
		d.MD5Hex = hex.EncodeToString(raw)
	}

	return d, nil
}
