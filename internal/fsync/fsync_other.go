//go:build !linux

package fsync

import "os"

// dataSync falls back to a full fsync on platforms without a data-only
// flush syscall exposed by the standard library.
func dataSync(f *os.File) error {
	return f.Sync()
}
