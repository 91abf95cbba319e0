// Package supervisor implements the PID 1 supervision loop: spawn a
// single main child, forward signals to it, and reap every terminated
// descendant until the main child itself has been reaped.
//
// The package has three collaborators, following msantos/goreap's
// Reap/Option shape: a Supervisor struct built with functional options,
// a spawn step, and a Run loop that alternates forwarding and reaping.
// Unlike goreap (which signals every descendant on a repeating timer,
// acting as a small service manager) this supervisor only ever signals
// the one main child, and only in direct response to a signal it itself
// received — there is no resend timer and no descendant enumeration in
// the decision path.
package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"go.tini.dev/tini/internal/descendants"
	"go.tini.dev/tini/internal/logging"
	"go.tini.dev/tini/internal/subreaper"
)

// pollInterval is the fixed poll interval from spec §3: the timeout of
// the timed signal wait, and hence the worst-case latency between a
// reparented descendant's exit and it being reaped when no signal is in
// flight. Deliberately not user-configurable (spec §9 Open Question).
const pollInterval = time.Second

// faultSignals are the signals spec §4.1 requires left out of the fill
// set entirely: never masked off by the signal-mask preparer, never
// intercepted by the timed wait, and so never forwarded. Of these, only
// SIGBUS/SIGFPE/SIGSEGV are "synchronous" in the Go runtime's own sense
// (go doc os/signal) and get converted to a panic when one arises from a
// genuine in-process execution fault. SIGILL, SIGTRAP, SIGABRT, and
// SIGSYS are not synchronous to the runtime at all — left to
// signal.Notify, it claims all seven unconditionally, which is why New
// resets them back to their default disposition explicitly below.
var faultSignals = []syscall.Signal{
	syscall.SIGFPE,
	syscall.SIGILL,
	syscall.SIGSEGV,
	syscall.SIGBUS,
	syscall.SIGABRT,
	syscall.SIGTRAP,
	syscall.SIGSYS,
}

func isFaultSignal(sig syscall.Signal) bool {
	for _, f := range faultSignals {
		if sig == f {
			return true
		}
	}
	return false
}

// unknownExitCode is the sentinel for "the main child has not exited
// yet", distinct from any valid exit code in [0,255].
const unknownExitCode = -1

// Supervisor runs a single main child to completion, forwarding caught
// signals to it and reaping every terminated descendant along the way.
type Supervisor struct {
	argv []string
	env  []string

	pollInterval time.Duration

	sigch   chan os.Signal
	mainPID int
	exit    int
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// withPollInterval overrides the poll interval. Unexported: spec §9
// explicitly calls out that this should not become a user-facing knob,
// so only this package's own tests use it to avoid waiting a full second
// per assertion.
func withPollInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.pollInterval = d
	}
}

// New builds a Supervisor for the given argv (argv[0] is the program to
// exec, argv[1:] its arguments) and environment.
func New(argv, env []string, opts ...Option) *Supervisor {
	sigch := make(chan os.Signal, 64)
	signal.Notify(sigch)

	// Notify above claims every signal, including the fault set; narrow
	// back to exactly its complement so SIGFPE/SIGILL/SIGSEGV/SIGBUS/
	// SIGABRT/SIGTRAP/SIGSYS keep their default disposition (crash, core
	// dump) instead of being queued on sigch like any other signal.
	resets := make([]os.Signal, len(faultSignals))
	for i, sig := range faultSignals {
		resets[i] = sig
	}
	signal.Reset(resets...)

	s := &Supervisor{
		argv:         argv,
		env:          env,
		pollInterval: pollInterval,
		sigch:        sigch,
		exit:         unknownExitCode,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run spawns the main child and drives the supervision loop to
// completion, returning this process's own exit code per spec §6/§8.
func (s *Supervisor) Run() int {
	// Best-effort: makes reparented orphans land on this process even
	// when it is not the namespace's literal PID 1. Not part of the core
	// contract, so a failure here is a warning, not fatal.
	if err := subreaper.Set(); err != nil {
		logging.Warnf("subreaper: %v", err)
	}

	pid, err := s.spawn()
	if err != nil {
		logging.Fatalf("spawn %s: %v", s.argv[0], err)
		return 1
	}
	s.mainPID = pid
	logging.Infof("spawned %s as pid %d", s.argv[0], pid)

	for {
		if err := s.forward(); err != nil {
			logging.Fatalf("signal wait: %v", err)
			return 1
		}

		if err := s.reap(); err != nil {
			logging.Fatalf("reap: %v", err)
			return 1
		}

		if s.exit != unknownExitCode {
			break
		}

		if logging.Enabled(logging.Trace) {
			if n, err := descendants.Count(os.Getpid()); err == nil {
				logging.Tracef("%d descendant(s) remain", n)
			}
		}
	}

	return s.exit
}

// spawn execs argv[0] with argv[1:] as its arguments and env as its
// environment, returning its process id.
//
// Go's own fork+exec primitive (shared by os/exec and syscall.ForkExec)
// synchronously reaps a child that fails to exec before returning control
// to the caller — this is intentional runtime behavior, not a shortcut
// taken here, because leaving a half-exec'd process around across a
// return from a multi-threaded Go runtime's fork() would be unsafe. That
// means a failed exec can never surface through this process's own
// reap() loop the way it does in the C original; it always surfaces here,
// synchronously, from cmd.Start(), and Run then exits 1.
func (s *Supervisor) spawn() (int, error) {
	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = s.env

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	// cmd.Wait is never called: reaping is this package's own job, done
	// through wait4 in reap() so that every descendant (not just the
	// main child) is drained from the same place. Release sets
	// Process.Pid to -1 on Unix, so the pid is read first.
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return 0, err
	}

	return pid, nil
}

// forward waits up to pollInterval for one signal and, unless it is the
// child-state-change notification, relays it to the main child.
func (s *Supervisor) forward() error {
	select {
	case sig := <-s.sigch:
		return s.classify(sig)
	case <-time.After(s.pollInterval):
		return nil
	}
}

func (s *Supervisor) classify(sig os.Signal) error {
	ssig, ok := sig.(syscall.Signal)
	if !ok {
		return nil
	}

	switch ssig {
	case syscall.SIGCHLD:
		// The reaper handles this; forwarding it would tell the child
		// one of its own descendants changed state, which is wrong and
		// explicitly disallowed by spec invariant 5.
		return nil
	case syscall.SIGURG:
		// The Go runtime sends itself SIGURG repeatedly for asynchronous
		// goroutine preemption (since Go 1.14); it has no equivalent in
		// the original C tini and no counterpart signal a container
		// orchestrator would ever send on purpose. Forwarding it would
		// flood the child with spurious signals every scheduler tick.
		return nil
	}

	if isFaultSignal(ssig) {
		// New already resets these to their default disposition, so the
		// runtime itself handles them; this is defense in depth for the
		// case one still reaches sigch (e.g. queued before Reset ran).
		return nil
	}

	logging.Debugf("forwarding %s to pid %d", unixSignalName(ssig), s.mainPID)

	err := syscall.Kill(s.mainPID, ssig)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.ESRCH):
		// The child is already gone; the next reap picks this up.
		logging.Warnf("kill %d: %s: no such process", s.mainPID, unixSignalName(ssig))
		return nil
	default:
		return err
	}
}

// reap drains every currently-terminated descendant without blocking,
// recording the main child's exit code the moment it is seen.
func (s *Supervisor) reap() error {
	for {
		var ws syscall.WaitStatus

		wpid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		switch {
		case err == nil:
		case errors.Is(err, syscall.EINTR):
			continue
		case errors.Is(err, syscall.ECHILD):
			// No descendants at all; nothing to reap. Not an error: this
			// happens routinely once everything has already been reaped
			// on an earlier iteration.
			return nil
		default:
			return err
		}

		if wpid == 0 {
			// Nothing terminated since the last call.
			return nil
		}

		if wpid != s.mainPID {
			continue
		}

		code, err := exitCode(ws)
		if err != nil {
			return err
		}
		s.exit = code
		logging.Infof("main child (pid %d) exited with code %d", wpid, code)
	}
}

// exitCode translates a wait status into a shell-style exit code per
// spec §4.4/§6: the low 8 bits on a normal exit, 128+signal on a signal
// death. Any other termination classification is fatal — spec §9's Open
// Question leaves this a defensive branch since wait4 here is never asked
// for stopped/continued children (no WUNTRACED/WCONTINUED bit is set).
func exitCode(ws syscall.WaitStatus) (int, error) {
	switch {
	case ws.Exited():
		return ws.ExitStatus(), nil
	case ws.Signaled():
		return 128 + int(ws.Signal()), nil
	default:
		return 0, errors.New("main child terminated with an unrecognized wait status")
	}
}
