package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/record"
	"github.com/yeet-yoink/yeet-yoink/pkg/fileid"
)

// fileFetcher is the narrow view of *backbone.Backbone the yoink handler
// needs: Lookup only (spec.md §4.F "get_file").
type fileFetcher interface {
	GetFile(id string) (*record.Reader, error)
}

// YoinkHandler serves GET /yoink/{id} (spec.md §6). Fetch-byte metering
// happens inside pkg/backbone/record.Reader itself (spec.md §4.E), so
// this handler does not need its own metrics reference.
type YoinkHandler struct {
	backbone fileFetcher
}

// NewYoinkHandler constructs a YoinkHandler.
func NewYoinkHandler(backbone fileFetcher) *YoinkHandler {
	return &YoinkHandler{backbone: backbone}
}

const readChunkSize = 32 * 1024

func (h *YoinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	id, err := fileid.Parse(rawID)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "file not found", rawID, err)
		return
	}

	reader, err := h.backbone.GetFile(id.String())
	if err != nil {
		status, title := statusForBackboneError(err)
		writeProblem(w, status, title, id.String(), err)
		return
	}
	defer reader.Close()

	setYoinkHeaders(w, id.String(), reader)
	streamBody(r.Context(), w, reader)
}

func setYoinkHeaders(w http.ResponseWriter, id string, reader *record.Reader) {
	h := w.Header()
	h.Set("Age", strconv.Itoa(int(reader.Age().Seconds())))
	h.Set("Expires", reader.Expires().UTC().Format(http.TimeFormat))

	hint := reader.SizeHint()
	if hint.Kind == record.SizeExactly {
		h.Set("Content-Length", strconv.FormatInt(hint.Bytes, 10))
	}

	summary := reader.Summary()
	if summary == nil {
		h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, id))
		return
	}

	if summary.ContentType != "" {
		h.Set("Content-Type", summary.ContentType)
	}
	if summary.SHA256 != "" {
		h.Set("ETag", `"`+base64.StdEncoding.EncodeToString(mustHex(summary.SHA256))+`"`)
		h.Set("X-File-SHA256", summary.SHA256)
	}
	if summary.MD5 != "" {
		h.Set("Content-MD5", base64.StdEncoding.EncodeToString(mustHex(summary.MD5)))
		h.Set("X-File-MD5", summary.MD5)
	}
	h.Set("Content-Disposition", contentDisposition(id, summary))
}

// contentDisposition derives the download filename from the declared
// file name, falling back to an extension guessed from the content type,
// and otherwise the bare id (spec.md example 6).
func contentDisposition(id string, summary *digest.Summary) string {
	name := summary.FileName
	if name == "" {
		name = id
		if ext := extensionForContentType(summary.ContentType); ext != "" {
			name = id + ext
		}
	}
	encoded := url.PathEscape(name)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, name, encoded)
}

func extensionForContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// mustHex decodes a hex digest produced internally by pkg/backbone/digest;
// it never fails on a well-formed Summary.
func mustHex(s string) []byte {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return decoded
}

func streamBody(ctx context.Context, w http.ResponseWriter, reader *record.Reader) {
	buf := make([]byte, readChunkSize)
	flusher, _ := w.(http.Flusher)

	for {
		n, err := reader.Read(ctx, buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.WarnCtx(ctx, "yoink stream interrupted", "error", err)
			}
			return
		}
	}
}
