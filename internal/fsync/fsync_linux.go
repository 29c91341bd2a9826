//go:build linux

package fsync

import (
	"os"
	"syscall"
)

// dataSync calls fdatasync(2), which flushes file data but not metadata
// (mtime, size) unless the metadata change is itself needed to read the data back.
func dataSync(f *os.File) error {
	err := syscall.Fdatasync(int(f.Fd()))
	if err != nil {
		return &os.PathError{Op: "fdatasync", Path: f.Name(), Err: err}
	}
	return nil
}
