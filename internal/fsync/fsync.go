// Package fsync provides a data-only file flush, falling back to a full
// sync (data + metadata) on platforms without fdatasync.
package fsync

import "os"

// DataSync flushes f's data to the OS without forcing a metadata update,
// where the platform supports the distinction. Writer.SyncData (spec §4.A)
// calls this so that finalize's Sync mode, which also updates metadata, is
// observably stronger than a mid-stream data flush.
func DataSync(f *os.File) error {
	return dataSync(f)
}
