//go:build !linux

package subreaper

import "golang.org/x/sys/unix"

// Set does nothing outside Linux and returns ENOSYS: there is no portable
// subreaper mechanism this program's target deployment (a Linux
// container) needs here.
func Set() error {
	return unix.ENOSYS
}

// Get always reports false outside Linux.
func Get() bool {
	return false
}
