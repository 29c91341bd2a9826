//go:build !windows

package logger

import "syscall"

// isTerminal reports whether fd refers to a character device, on Unix.
// Terminals are character devices; so are a few other devices such as
// /dev/null, for which this also reports true.
func isTerminal(fd uintptr) bool {
	var st syscall.Stat_t
	if err := syscall.Fstat(int(fd), &st); err != nil {
		return false
	}
	return st.Mode&syscall.S_IFMT == syscall.S_IFCHR
}
