package digest

import (
	"bytes"
	"crypto/md5"  //nolint:gosec
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumsMatchStandardLibrary(t *testing.T) {
	var out bytes.Buffer
	w := Wrap(&out)

	input := []byte("the quick brown fox jumps over the lazy dog")
	n, err := w.Write(input[:10])
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	_, err = w.Write(input[10:])
	require.NoError(t, err)

	gotMD5, gotSHA256 := w.Sums()

	wantMD5 := md5.Sum(input) //nolint:gosec
	wantSHA256 := sha256.Sum256(input)

	assert.Equal(t, hex.EncodeToString(wantMD5[:]), gotMD5)
	assert.Equal(t, hex.EncodeToString(wantSHA256[:]), gotSHA256)
	assert.Equal(t, input, out.Bytes())
}

func TestEmptyWriteDoesNotChangeSums(t *testing.T) {
	var out bytes.Buffer
	w := Wrap(&out)

	before1, before2 := w.Sums()
	n, err := w.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	after1, after2 := w.Sums()

	assert.Equal(t, before1, after1)
	assert.Equal(t, before2, after2)
}
