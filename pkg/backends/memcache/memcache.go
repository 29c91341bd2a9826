// Package memcache implements a distribution Backend (spec.md §4.G) that
// caches completed uploads in one or more memcached nodes using
// bradfitz/gomemcache, named explicitly among "the concrete backend
// connectors (memcached)" in spec.md §1.
//
// gomemcache's Client is a thin, blocking wrapper over a connection pool;
// it has no async/streaming API, so Distribute buffers the file in
// memory before Set. This backend therefore enforces MaxObjectBytes
// up front and rejects anything larger with ErrTooLarge before reading a
// single byte — the per-backend admission policy spec.md §4.G assigns to
// each backend ("size caps, rejection is the backend's responsibility").
package memcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cenkalti/backoff/v4"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/backboneerr"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch"
)

// ErrTooLarge is returned by Distribute when a file exceeds MaxObjectBytes.
var ErrTooLarge = errors.New("memcache: file exceeds backend's max object size")

// DefaultMaxObjectBytes mirrors memcached's own default item size limit
// (1 MiB); uploads larger than this are rejected before any bytes are
// read, never truncated.
const DefaultMaxObjectBytes = 1 << 20

// Config configures a memcached distribution Backend.
type Config struct {
	// Tag identifies this backend instance in logs and metrics.
	Tag string
	// Servers is one or more "host:port" memcached endpoints, passed to
	// gomemcache's built-in client-side hashing pool.
	Servers []string
	// ExpirationSeconds is the backend's own cache lifetime, independent
	// of the relay's lease (SPEC_FULL.md §4: "the two are deliberately
	// decoupled"). Zero means memcached's default (never expire).
	ExpirationSeconds int32
	// MaxObjectBytes caps what Distribute will attempt to cache. Zero
	// uses DefaultMaxObjectBytes.
	MaxObjectBytes int64
	// DialTimeout bounds the initial connectivity probe performed by New.
	DialTimeout time.Duration
}

// Backend is a memcached-backed dispatch.Backend.
type Backend struct {
	tag      string
	client   *memcache.Client
	expirySec int32
	maxBytes int64
}

// New constructs a Backend and probes connectivity with a bounded
// exponential backoff (spec.md's backend-connection-setup retry,
// SPEC_FULL.md §3: "reconnect/retry backoff for the backend's own
// connection setup"). A failed probe is logged, not fatal: memcached
// nodes that are briefly unavailable at startup should not prevent the
// relay from serving uploads, since distribution is best-effort.
func New(ctx context.Context, cfg Config) *Backend {
	client := memcache.New(cfg.Servers...)
	if cfg.DialTimeout > 0 {
		client.Timeout = cfg.DialTimeout
	}

	maxBytes := cfg.MaxObjectBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxObjectBytes
	}

	b := &Backend{
		tag:       cfg.Tag,
		client:    client,
		expirySec: cfg.ExpirationSeconds,
		maxBytes:  maxBytes,
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := b.probe(probeCtx); err != nil {
		logger.Warn("memcache backend failed initial connectivity probe, continuing anyway",
			"backend", cfg.Tag, "servers", cfg.Servers, "error", err)
	}
	return b
}

// probe retries a lightweight Get against a sentinel key with backoff,
// to surface a cold/unreachable pool at startup without blocking it.
func (b *Backend) probe(ctx context.Context) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(func() error {
		_, err := b.client.Get("yeetyoink-probe")
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil
		}
		return err
	}, policy)
}

// Tag identifies this backend in logs and metrics.
func (b *Backend) Tag() string {
	return b.tag
}

// Distribute buffers the file via accessor and Sets it in memcached under
// the file's identifier, rejecting upfront if summary.FileSizeBytes
// exceeds the configured cap.
func (b *Backend) Distribute(ctx context.Context, id string, summary digest.Summary, accessor dispatch.Accessor) error {
	if summary.FileSizeBytes > b.maxBytes {
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, summary.FileSizeBytes, b.maxBytes)
	}

	stream, err := accessor.GetFile(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", dispatch.ErrFileAccessor, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(io.LimitReader(stream, b.maxBytes+1))
	if err != nil {
		return err
	}
	if int64(len(data)) > b.maxBytes {
		return ErrTooLarge
	}

	return b.client.Set(&memcache.Item{
		Key:        id,
		Value:      data,
		Expiration: b.expirySec,
	})
}

// Receive satisfies a lookup miss directly from memcached.
func (b *Backend) Receive(ctx context.Context, id string) (dispatch.FileStream, error) {
	item, err := b.client.Get(id)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, backboneerr.ErrUnknownFile
	}
	if err != nil {
		return nil, err
	}
	return &bytesStream{r: &byteReader{data: item.Value}}, nil
}

type bytesStream struct {
	r *byteReader
}

func (s *bytesStream) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *bytesStream) Close() error               { return nil }

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
