package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch"
)

type panicAccessor struct{}

func (panicAccessor) GetFile(ctx context.Context, id string) (dispatch.FileStream, error) {
	panic("GetFile should not be called once the size cap already rejects the file")
}

func TestDistributeRejectsOversizedFileBeforeTouchingAccessor(t *testing.T) {
	b := &Backend{tag: "s3-primary", bucket: "bucket", prefix: "yeetyoink/", maxBytes: 100}

	err := b.Distribute(context.Background(), "file-1", digest.Summary{FileSizeBytes: 101}, panicAccessor{})
	if !errors.Is(err, dispatch.ErrBackendRejected) {
		t.Fatalf("got %v, want ErrBackendRejected", err)
	}
}

func TestKeyAppliesPrefix(t *testing.T) {
	b := &Backend{prefix: "relay/"}
	if got := b.key("abc123"); got != "relay/abc123" {
		t.Fatalf("got %q, want %q", got, "relay/abc123")
	}
}

func TestTagReturnsConfiguredTag(t *testing.T) {
	b := &Backend{tag: "s3-east"}
	if got := b.Tag(); got != "s3-east" {
		t.Fatalf("got %q, want %q", got, "s3-east")
	}
}

func TestIsRetryableErrorClassifiesContextErrorsAsNotRetryable(t *testing.T) {
	if isRetryableError(context.Canceled) {
		t.Fatal("context.Canceled should not be retryable")
	}
	if isRetryableError(context.DeadlineExceeded) {
		t.Fatal("context.DeadlineExceeded should not be retryable")
	}
	if isRetryableError(nil) {
		t.Fatal("nil error should not be retryable")
	}
}

func TestIsNotFoundErrorOnPlainErrorIsFalse(t *testing.T) {
	if isNotFoundError(errors.New("boom")) {
		t.Fatal("plain error should not be classified as not-found")
	}
	if isNotFoundError(nil) {
		t.Fatal("nil error should not be classified as not-found")
	}
}
