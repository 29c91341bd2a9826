package digest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone/sharedfile"
)

func TestFileWriterFinalizeProducesSummary(t *testing.T) {
	f, err := sharedfile.Open(t.TempDir(), "test")
	require.NoError(t, err)
	defer f.Remove()

	sw, err := f.Writer()
	require.NoError(t, err)
	fw := WrapFile(sw)

	n, err := fw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	summary, err := fw.Finalize(sharedfile.NoSync, time.Minute, "greeting.txt", "text/plain")
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	assert.Equal(t, int64(5), summary.FileSizeBytes)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", summary.MD5)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", summary.SHA256)
	assert.WithinDuration(t, time.Now().Add(time.Minute), summary.Expires, 2*time.Second)
}

func TestFileWriterAbortBeforeFinalize(t *testing.T) {
	f, err := sharedfile.Open(t.TempDir(), "test")
	require.NoError(t, err)
	defer f.Remove()

	sw, err := f.Writer()
	require.NoError(t, err)
	fw := WrapFile(sw)

	_, err = fw.Write([]byte("partial"))
	require.NoError(t, err)
	fw.Abort()

	_, err = fw.Finalize(sharedfile.NoSync, time.Minute, "", "")
	assert.ErrorIs(t, err, sharedfile.ErrAlreadyFinalized)
}
