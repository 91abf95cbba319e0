// Package descendants gives the supervisor a read-only, best-effort view
// of its descendant processes for diagnostic logging only. It is never
// consulted for control flow: whether a process needs reaping is always
// decided by wait4's own return value, never by a procfs walk.
package descendants

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Procfs is the default procfs mount point.
const Procfs = "/proc"

// pid is a (process id, parent process id) pair read from /proc/<pid>/stat.
type pid struct {
	Pid  int
	PPid int
}

func readStat(name string) (pid, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return pid{}, err
	}

	// <pid> (<comm>) <state> <ppid> ...
	// comm may itself contain spaces and parentheses, so anchor on the
	// last ')' rather than parsing the whole line positionally.
	stat := string(b)

	var p int
	if n, err := fmt.Sscanf(stat, "%d ", &p); err != nil || n != 1 {
		return pid{}, fmt.Errorf("descendants: malformed stat %q", name)
	}

	bracket := strings.LastIndexByte(stat, ')')
	if bracket == -1 {
		return pid{}, fmt.Errorf("descendants: malformed stat %q", name)
	}

	var state byte
	var ppid int
	if n, err := fmt.Sscanf(stat[bracket+1:], " %c %d", &state, &ppid); err != nil || n != 2 {
		return pid{}, fmt.Errorf("descendants: malformed stat %q", name)
	}

	return pid{Pid: p, PPid: ppid}, nil
}

// snapshot walks procfs and returns every (pid, ppid) pair currently
// visible. Entries that disappear mid-walk (the process exited between
// the directory listing and the stat read) are silently skipped.
func snapshot(procfs string) ([]pid, error) {
	matches, err := filepath.Glob(fmt.Sprintf("%s/[0-9]*/stat", procfs))
	if err != nil {
		return nil, err
	}

	pids := make([]pid, 0, len(matches))
	for _, stat := range matches {
		p, err := readStat(stat)
		if err != nil {
			continue
		}
		pids = append(pids, p)
	}
	return pids, nil
}

// walk collects every transitive child of root into seen.
func walk(pids []pid, root int, seen map[int]struct{}) {
	for _, p := range pids {
		if p.PPid != root {
			continue
		}
		if _, ok := seen[p.Pid]; ok {
			continue
		}
		seen[p.Pid] = struct{}{}
		walk(pids, p.Pid, seen)
	}
}

// Count returns the number of transitive descendants of self, by walking
// procfs. If procfs is not mounted the walk finds no stat files and Count
// returns (0, nil); Mounted tells that case apart from a true zero. The
// result is only used for trace/debug logging.
func Count(self int) (int, error) {
	pids, err := snapshot(Procfs)
	if err != nil {
		return 0, err
	}
	seen := make(map[int]struct{})
	walk(pids, self, seen)
	return len(seen), nil
}

// Mounted reports whether Procfs is actually a procfs mount, so callers
// can decide whether Count's result is meaningful at all.
func Mounted() bool {
	var buf unix.Statfs_t
	if err := unix.Statfs(Procfs, &buf); err != nil {
		return false
	}
	return buf.Type == unix.PROC_SUPER_MAGIC
}
