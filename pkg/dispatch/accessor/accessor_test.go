package accessor

import (
	"context"
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/guard"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
	"github.com/yeet-yoink/yeet-yoink/pkg/dispatch"
)

func TestGetFileBeforeInstallReturnsBackboneUnavailable(t *testing.T) {
	br := New()

	_, err := br.GetFile(context.Background(), "missing")
	if err != dispatch.ErrBackboneUnavailable {
		t.Fatalf("got %v, want ErrBackboneUnavailable", err)
	}
}

func TestGetFileDelegatesToInstalledBackbone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bb := backbone.New(ctx, backbone.Config{TempDir: t.TempDir(), Lease: time.Hour})
	go bb.Run()

	g, err := bb.NewFile(ctx, "file-1", guard.Declared{}, "", "text/plain")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if _, err := g.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := g.Finalize(sharedfile.NoSync); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	br := New()
	br.Install(bb)

	stream, err := br.GetFile(context.Background(), "file-1")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	defer stream.Close()

	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

// TestGetFileAfterBackboneCollectedReturnsUnavailable exercises the
// scenario the Bridge exists for: once nothing holds a strong reference
// to the Backbone, the weak pointer stops resolving and GetFile reports
// ErrBackboneUnavailable instead of panicking on a nil dereference.
func TestGetFileAfterBackboneCollectedReturnsUnavailable(t *testing.T) {
	br := New()
	func() {
		bb := backbone.New(context.Background(), backbone.Config{TempDir: t.TempDir(), Lease: time.Hour})
		br.Install(bb)
		runtime.KeepAlive(bb)
	}()

	runtime.GC()
	runtime.GC()

	_, err := br.GetFile(context.Background(), "anything")
	if err != dispatch.ErrBackboneUnavailable {
		t.Fatalf("got %v, want ErrBackboneUnavailable", err)
	}
}
