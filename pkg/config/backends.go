package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yeet-yoink/yeet-yoink/pkg/backends/memcache"
	"github.com/yeet-yoink/yeet-yoink/pkg/backends/s3"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch"
)

// BuildBackends turns the configured []BackendConfig into live
// dispatch.Backend instances, dispatching on Kind to build a concrete
// connector per backend. Backends are returned in configuration order,
// which the Dispatcher preserves as its fan-out order (spec.md §4.G).
func BuildBackends(ctx context.Context, backends []BackendConfig) ([]dispatch.Backend, error) {
	built := make([]dispatch.Backend, 0, len(backends))
	for _, bc := range backends {
		backend, err := buildBackend(ctx, bc)
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", bc.Tag, err)
		}
		built = append(built, backend)
	}
	return built, nil
}

func buildBackend(ctx context.Context, bc BackendConfig) (dispatch.Backend, error) {
	switch bc.Kind {
	case "memcache":
		return buildMemcacheBackend(ctx, bc), nil
	case "s3":
		return buildS3Backend(ctx, bc)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", bc.Kind)
	}
}

// buildMemcacheBackend splits ConnectionString on commas into the
// "host:port" server list gomemcache's client-side hashing pool expects.
func buildMemcacheBackend(ctx context.Context, bc BackendConfig) *memcache.Backend {
	servers := strings.Split(bc.ConnectionString, ",")
	for i := range servers {
		servers[i] = strings.TrimSpace(servers[i])
	}

	return memcache.New(ctx, memcache.Config{
		Tag:               bc.Tag,
		Servers:           servers,
		ExpirationSeconds: int32(bc.ExpirationSeconds),
		MaxObjectBytes:    bc.MaxObjectBytes,
		DialTimeout:       5 * time.Second,
	})
}

// buildS3Backend parses ConnectionString as "bucket" or "bucket/prefix"
// (an optional "s3://" scheme is tolerated and stripped).
func buildS3Backend(ctx context.Context, bc BackendConfig) (*s3.Backend, error) {
	bucket, prefix := parseS3ConnectionString(bc.ConnectionString)
	if bucket == "" {
		return nil, fmt.Errorf("s3 connection string %q has no bucket", bc.ConnectionString)
	}

	return s3.New(ctx, s3.Config{
		Tag:             bc.Tag,
		Bucket:          bucket,
		Prefix:          prefix,
		Region:          bc.Region,
		Endpoint:        bc.Endpoint,
		AccessKeyID:     bc.AccessKeyID,
		SecretAccessKey: bc.SecretAccessKey,
		MaxObjectBytes:  bc.MaxObjectBytes,
		ConnectTimeout:  10 * time.Second,
	})
}

func parseS3ConnectionString(raw string) (bucket, prefix string) {
	s := strings.TrimPrefix(raw, "s3://")
	parts := strings.SplitN(s, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 && parts[1] != "" {
		prefix = strings.TrimSuffix(parts[1], "/") + "/"
	}
	return bucket, prefix
}
