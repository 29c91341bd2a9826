package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/backboneerr"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
)

func newGuard(t *testing.T, declared Declared) (*Guard, chan Outcome) {
	t.Helper()
	f, err := sharedfile.Open(t.TempDir(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Remove() })

	sw, err := f.Writer()
	require.NoError(t, err)
	fw := digest.WrapFile(sw)

	outcome := make(chan Outcome, 1)
	g := New("id-1", fw, outcome, time.Minute, declared, "", "")
	return g, outcome
}

func TestFinalizeSignalsSuccess(t *testing.T) {
	g, outcome := newGuard(t, Declared{})
	defer g.Close()

	_, err := g.Write([]byte("hello"))
	require.NoError(t, err)

	summary, err := g.Finalize(sharedfile.NoSync)
	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.FileSizeBytes)

	got := <-outcome
	assert.NoError(t, got.Err)
	assert.Equal(t, summary, got.Summary)
}

func TestWriteOverrunSignalsFailedWithoutWriting(t *testing.T) {
	g, outcome := newGuard(t, Declared{HasLength: true, Length: 3})
	defer g.Close()

	_, err := g.Write([]byte("abcd"))
	assert.ErrorIs(t, err, backboneerr.ErrUnexpectedEOF)

	got := <-outcome
	assert.ErrorIs(t, got.Err, backboneerr.ErrUnexpectedEOF)
}

func TestFinalizeLengthMismatch(t *testing.T) {
	g, outcome := newGuard(t, Declared{HasLength: true, Length: 10})
	defer g.Close()

	_, _ = g.Write([]byte("short"))
	_, err := g.Finalize(sharedfile.NoSync)
	assert.ErrorIs(t, err, backboneerr.ErrInvalidFileLength)

	got := <-outcome
	assert.ErrorIs(t, got.Err, backboneerr.ErrInvalidFileLength)
}

func TestFinalizeMD5Mismatch(t *testing.T) {
	g, outcome := newGuard(t, Declared{HasMD5: true, MD5Hex: "deadbeef"})
	defer g.Close()

	_, _ = g.Write([]byte("hello"))
	_, err := g.Finalize(sharedfile.NoSync)
	assert.ErrorIs(t, err, backboneerr.ErrIntegrityCheckFailed)

	got := <-outcome
	assert.ErrorIs(t, got.Err, backboneerr.ErrIntegrityCheckFailed)
}

func TestCloseWithoutFinalizeSignalsFailedExactlyOnce(t *testing.T) {
	g, outcome := newGuard(t, Declared{})

	_, _ = g.Write([]byte("abandoned"))
	require.NoError(t, g.Close())
	g.Close() // idempotent, must not block or double-send

	got := <-outcome
	assert.Error(t, got.Err)

	select {
	case <-outcome:
		t.Fatal("guard sent a second terminal signal")
	default:
	}
}

func TestCloseAfterFinalizeIsNoop(t *testing.T) {
	g, outcome := newGuard(t, Declared{})

	_, _ = g.Write([]byte("hi"))
	_, err := g.Finalize(sharedfile.NoSync)
	require.NoError(t, err)
	require.NoError(t, g.Close())

	got := <-outcome
	assert.NoError(t, got.Err)

	select {
	case <-outcome:
		t.Fatal("guard sent a second terminal signal")
	default:
	}
}
