// Package s3 implements a distribution Backend (spec.md §4.G) that PUTs
// completed uploads to an S3-compatible bucket, grounded on the
// teacher's pkg/content/store/s3 connector (SPEC_FULL.md §3): the same
// retryable/not-found error classification, and the same
// config.LoadDefaultConfig + credentials.NewStaticCredentialsProvider +
// s3.NewFromConfig(..., WithBaseEndpoint, UsePathStyle) construction the
// teacher's runtime uses for MinIO/localstack-compatible endpoints
// (pkg/controlplane/runtime/init.go).
package s3

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/yeet-yoink/yeet-yoink/internal/logger"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/backboneerr"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch"
)

// Config configures an S3 distribution Backend.
type Config struct {
	// Tag identifies this backend instance in logs and metrics.
	Tag string
	// Bucket is the destination bucket; must already exist.
	Bucket string
	// Prefix is prepended to every object key, default "yeetyoink/".
	Prefix string
	// Region is the AWS region; default "us-east-1".
	Region string
	// Endpoint overrides the default AWS endpoint, for MinIO/localstack.
	Endpoint string
	// AccessKeyID and SecretAccessKey configure static credentials; if
	// either is empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	// MaxObjectBytes caps what Distribute will attempt to PUT; zero
	// means no cap (S3 itself accepts single-PUT objects up to 5 GiB).
	MaxObjectBytes int64
	// ConnectTimeout bounds New's client construction.
	ConnectTimeout time.Duration
}

// Backend is an S3-backed dispatch.Backend.
type Backend struct {
	tag      string
	client   *s3.Client
	bucket   string
	prefix   string
	maxBytes int64
}

// New constructs a Backend, loading AWS config with the options in cfg.
// Connection setup itself (credential resolution, endpoint discovery)
// uses exponential backoff via cenkalti/backoff, matching
// SPEC_FULL.md §3's note that backoff governs backend connection setup,
// never the distribution fan-out itself.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "yeetyoink/"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var awsCfg aws.Config
	err := backoff.Retry(func() error {
		loaded, loadErr := awsconfig.LoadDefaultConfig(connectCtx, opts...)
		if loadErr != nil {
			return loadErr
		}
		awsCfg = loaded
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), connectCtx))
	if err != nil {
		return nil, fmt.Errorf("s3 backend %q: load aws config: %w", cfg.Tag, err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &Backend{
		tag:      cfg.Tag,
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   prefix,
		maxBytes: cfg.MaxObjectBytes,
	}, nil
}

// Tag identifies this backend in logs and metrics.
func (b *Backend) Tag() string {
	return b.tag
}

func (b *Backend) key(id string) string {
	return b.prefix + id
}

// Distribute streams the file from accessor directly into an S3 PUT,
// rejecting upfront if it exceeds MaxObjectBytes.
func (b *Backend) Distribute(ctx context.Context, id string, summary digest.Summary, accessor dispatch.Accessor) error {
	if b.maxBytes > 0 && summary.FileSizeBytes > b.maxBytes {
		return fmt.Errorf("%w: %d > %d", dispatch.ErrBackendRejected, summary.FileSizeBytes, b.maxBytes)
	}

	stream, err := accessor.GetFile(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", dispatch.ErrFileAccessor, err)
	}
	defer stream.Close()

	var contentType *string
	if summary.ContentType != "" {
		contentType = aws.String(summary.ContentType)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(id)),
		Body:          stream,
		ContentLength: aws.Int64(summary.FileSizeBytes),
		ContentType:   contentType,
		ContentMD5:    nil, // digests are hex, not the base64 S3 expects; integrity was already verified by the Writer Guard
	})
	if err != nil && isRetryableError(err) {
		logger.Warn("s3 backend put failed with a transient error, not retried: file already streamed past the reader's single pass",
			"backend", b.tag, "file_id", id, "error", err)
	}
	return err
}

// Receive fetches the object back from S3 on a lookup miss.
func (b *Backend) Receive(ctx context.Context, id string) (dispatch.FileStream, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	if isNotFoundError(err) {
		return nil, backboneerr.ErrUnknownFile
	}
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// isRetryableError classifies an S3 error as transient, following the
// teacher's pkg/content/store/s3 classification (throttling and 5xx
// codes retryable; not-found/access-denied/invalid-request are not).
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
			"ProvisionedThroughputExceededException",
			"InternalError", "ServiceUnavailable", "ServiceException", "InternalServiceException":
			return true
		case "NoSuchKey", "NotFound", "AccessDenied", "Forbidden", "InvalidRange", "InvalidRequest":
			return false
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout")
}

// isNotFoundError reports whether err indicates the object does not exist.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound"
	}
	return false
}
