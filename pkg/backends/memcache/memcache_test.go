package memcache

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch"
)

type panicAccessor struct{}

func (panicAccessor) GetFile(ctx context.Context, id string) (dispatch.FileStream, error) {
	panic("GetFile should not be called when the size cap already rejects the file")
}

func TestDistributeRejectsOversizedFileBeforeTouchingAccessor(t *testing.T) {
	b := &Backend{tag: "mc1", maxBytes: 100}

	err := b.Distribute(context.Background(), "file-1", digest.Summary{FileSizeBytes: 101}, panicAccessor{})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("got %v, want ErrTooLarge", err)
	}
}

func TestByteReaderReadsThenEOF(t *testing.T) {
	r := &byteReader{data: []byte("hello")}
	buf := make([]byte, 3)

	n, err := r.Read(buf)
	if err != nil || n != 3 || string(buf) != "hel" {
		t.Fatalf("first read = %d,%v,%q", n, err, buf)
	}

	n, err = r.Read(buf)
	if err != nil || n != 2 {
		t.Fatalf("second read = %d,%v", n, err)
	}

	n, err = r.Read(buf)
	if err != io.EOF || n != 0 {
		t.Fatalf("third read = %d,%v, want 0,EOF", n, err)
	}
}

func TestTagReturnsConfiguredTag(t *testing.T) {
	b := &Backend{tag: "mc-east"}
	if got := b.Tag(); got != "mc-east" {
		t.Fatalf("got %q, want %q", got, "mc-east")
	}
}
