package supervisor

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// unixSignalName renders a signal the way log lines in this package want
// it: "SIGTERM" rather than the decimal number, using the same lookup
// goreap's cmd/goreap uses for its own verbose kill logging.
func unixSignalName(sig syscall.Signal) string {
	return unix.SignalName(sig)
}
