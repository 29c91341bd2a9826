package record

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/command"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/guard"
	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
)

type fakeMeter struct{ total int64 }

func (m *fakeMeter) ObserveFetchBytes(n int64) { m.total += n }

func drainCommands(t *testing.T, ch <-chan command.Command, want int, timeout time.Duration) []command.Command {
	t.Helper()
	got := make([]command.Command, 0, want)
	deadline := time.After(timeout)
	for len(got) < want {
		select {
		case c := <-ch:
			got = append(got, c)
		case <-deadline:
			t.Fatalf("timed out waiting for %d commands, got %d", want, len(got))
		}
	}
	return got
}

func TestRecordSuccessPublishesSummaryAndDistributes(t *testing.T) {
	f, err := sharedfile.Open(t.TempDir(), "test")
	require.NoError(t, err)

	outcome := make(chan guard.Outcome, 1)
	commands := make(chan command.Command, 8)

	ctx := context.Background()
	r := New(ctx, "id-1", f, outcome, 50*time.Millisecond, commands, nil)

	summary := digest.Summary{FileSizeBytes: 5, MD5: "abc"}
	outcome <- guard.Outcome{Summary: summary}

	cmds := drainCommands(t, commands, 2, time.Second)
	ready, ok := cmds[0].(command.ReadyForDistribution)
	require.True(t, ok)
	assert.Equal(t, "id-1", ready.ID)
	assert.Equal(t, summary, ready.Summary)

	_, ok = cmds[1].(command.RemoveWriter)
	require.True(t, ok)

	<-r.Done()
	assert.Equal(t, summary, *r.Summary())
}

func TestRecordFailureSkipsDistribution(t *testing.T) {
	f, err := sharedfile.Open(t.TempDir(), "test")
	require.NoError(t, err)

	outcome := make(chan guard.Outcome, 1)
	commands := make(chan command.Command, 8)

	ctx := context.Background()
	r := New(ctx, "id-2", f, outcome, time.Minute, commands, nil)
	outcome <- guard.Outcome{Err: assertErr}

	cmds := drainCommands(t, commands, 1, time.Second)
	_, ok := cmds[0].(command.RemoveWriter)
	require.True(t, ok)

	<-r.Done()
	assert.True(t, r.Failed())

	_, err = r.GetReader(nil)
	assert.ErrorIs(t, err, ErrFileExpired)
}

func TestReaderTracksFetchBytes(t *testing.T) {
	f, err := sharedfile.Open(t.TempDir(), "test")
	require.NoError(t, err)

	w, err := f.Writer()
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = w.Finalize(sharedfile.NoSync)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	outcome := make(chan guard.Outcome, 1)
	commands := make(chan command.Command, 8)
	ctx := context.Background()
	r := New(ctx, "id-3", f, outcome, time.Minute, commands, nil)
	outcome <- guard.Outcome{Summary: digest.Summary{FileSizeBytes: 5}}
	drainCommands(t, commands, 1, time.Second)

	meter := &fakeMeter{}
	reader, err := r.GetReader(meter)
	require.NoError(t, err)
	defer reader.Close()

	buf := make([]byte, 16)
	n, err := reader.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(5), meter.total)
}

// TestSendDeliversDuringGracePeriodAfterContextCancellation confirms send
// does not drop a command the instant its ctx is cancelled: it keeps
// trying for sendGracePeriod, which is what lets an in-flight
// ReadyForDistribution or RemoveWriter survive a shutdown that races its
// delivery.
func TestSendDeliversDuringGracePeriodAfterContextCancellation(t *testing.T) {
	f, err := sharedfile.Open(t.TempDir(), "test")
	require.NoError(t, err)

	outcome := make(chan guard.Outcome, 1)
	commands := make(chan command.Command) // unbuffered: forces send to block on a receiver

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled before the Record ever sends anything

	r := New(ctx, "id-grace", f, outcome, time.Hour, commands, nil)
	summary := digest.Summary{FileSizeBytes: 3}
	outcome <- guard.Outcome{Summary: summary}

	// No reader yet: if send dropped on ctx.Done() instead of entering its
	// grace period, these commands would never arrive.
	time.Sleep(50 * time.Millisecond)

	cmds := drainCommands(t, commands, 2, time.Second)
	ready, ok := cmds[0].(command.ReadyForDistribution)
	require.True(t, ok)
	assert.Equal(t, "id-grace", ready.ID)

	_, ok = cmds[1].(command.RemoveWriter)
	require.True(t, ok)

	<-r.Done()
}

var assertErr = errTestFailure{}

type errTestFailure struct{}

func (errTestFailure) Error() string { return "test failure" }
