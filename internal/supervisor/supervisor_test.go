package supervisor_test

import (
	"os"
	"syscall"
	"testing"
	"time"

	"go.tini.dev/tini/internal/supervisor"
)

func TestNormalExit(t *testing.T) {
	s := supervisor.New([]string{"/bin/sh", "-c", "exit 42"}, os.Environ())
	if got := s.Run(); got != 42 {
		t.Errorf("exit code = %d, want 42", got)
	}
}

func TestZeroExit(t *testing.T) {
	s := supervisor.New([]string{"/bin/sh", "-c", "exit 0"}, os.Environ())
	if got := s.Run(); got != 0 {
		t.Errorf("exit code = %d, want 0", got)
	}
}

func TestSignalDeath(t *testing.T) {
	s := supervisor.New([]string{"/bin/sh", "-c", "kill -TERM $$"}, os.Environ())
	if got := s.Run(); got != 128+int(syscall.SIGTERM) {
		t.Errorf("exit code = %d, want %d", got, 128+int(syscall.SIGTERM))
	}
}

func TestSignalForwarding(t *testing.T) {
	s := supervisor.New([]string{
		"/bin/sh", "-c",
		`trap "exit 7" USR1; sleep 30`,
	}, os.Environ())

	done := make(chan int, 1)
	go func() {
		done <- s.Run()
	}()

	time.Sleep(200 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill self: %v", err)
	}

	select {
	case got := <-done:
		if got != 7 {
			t.Errorf("exit code = %d, want 7", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not exit after forwarded signal")
	}
}

func TestOrphanReaping(t *testing.T) {
	s := supervisor.New([]string{
		"/bin/sh", "-c",
		`(sleep 0.1 &) ; exec sleep 0.5`,
	}, os.Environ())

	if got := s.Run(); got != 0 {
		t.Errorf("exit code = %d, want 0", got)
	}
}

func TestMissingProgram(t *testing.T) {
	s := supervisor.New([]string{"/nonexistent/bin"}, os.Environ())
	if got := s.Run(); got == 0 {
		t.Errorf("exit code = 0, want non-zero")
	}
}
