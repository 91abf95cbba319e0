// Package subreaper registers the calling process as a child subreaper,
// so that orphaned grandchildren of the main child reparent to it instead
// of skipping past it to the namespace's real PID 1. Outside a container
// this is what makes scenario S4 (orphan reaping) reliable even when this
// process is not itself PID 1.
package subreaper

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set marks the current process as the reaper for its descendants.
func Set() error {
	return unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)
}

// Get reports whether the current process is registered as a subreaper.
func Get() bool {
	var arg2 int
	err := unix.Prctl(unix.PR_GET_CHILD_SUBREAPER,
		uintptr(unsafe.Pointer(&arg2)), 0, 0, 0)
	return err == nil && arg2 == 1
}
