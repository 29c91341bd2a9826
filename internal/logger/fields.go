package logger

import "log/slog"

// Standard field keys used across the relay. Kept consistent so log
// aggregation can query by field rather than parsing messages.
const (
	KeyRequestID = "request_id"
	KeyFileID    = "file_id"
	KeyClientIP  = "client_ip"

	KeyMethod = "method"
	KeyPath   = "path"
	KeyStatus = "status"

	KeyContentLength = "content_length"
	KeyBytesWritten  = "bytes_written"
	KeyBytesRead     = "bytes_read"
	KeyMD5           = "md5"
	KeySHA256        = "sha256"

	KeyBackend    = "backend"
	KeyBackendTag = "backend_tag"

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// Err returns a slog.Attr for an error, or a zero Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// FileID returns a slog.Attr for a file identifier.
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// Backend returns a slog.Attr for a backend tag.
func Backend(tag string) slog.Attr {
	return slog.String(KeyBackendTag, tag)
}
