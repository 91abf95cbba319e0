package supervisor

import (
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// concurrentSupervisorEnv, when set, tells this same test binary to act as
// a single helper Supervisor instead of running the test suite: wait4(-1,
// ...) in reap() is scoped to the whole calling process, not to a
// Supervisor value, so two Supervisors racing over the same process's
// kernel child list can reap each other's main child out from under them.
// Unlike goreap/reap/reap_test.go's TestExec, which runs concurrent
// Exec calls against a *single* Reap and relies on cmd.Wait() (pid-scoped)
// rather than wait4(-1, ...) for the main child, this package's reap()
// intentionally uses wait4(-1, ...) so a lone Supervisor also drains
// reparented orphans, which makes it unsafe to run more than one
// Supervisor per process. So "concurrent Supervisors" here means
// concurrent processes, each re-exec'ing this test binary as its own
// single-Supervisor helper.
const concurrentSupervisorEnv = "TINI_TEST_HELPER_SUPERVISOR"

func TestConcurrentSpawn(t *testing.T) {
	if os.Getenv(concurrentSupervisorEnv) == "1" {
		s := New([]string{"/bin/sh", "-c", "exit 0"}, os.Environ(),
			withPollInterval(20*time.Millisecond))
		os.Exit(s.Run())
	}

	g := new(errgroup.Group)
	n := runtime.NumCPU() * 2

	for i := 0; i < n; i++ {
		g.Go(func() error {
			cmd := exec.Command(os.Args[0], "-test.run=^TestConcurrentSpawn$")
			cmd.Env = append(os.Environ(), concurrentSupervisorEnv+"=1")
			cmd.Stderr = os.Stderr
			return cmd.Run()
		})
	}

	if err := g.Wait(); err != nil {
		t.Errorf("%v", err)
	}
}

func TestPollIntervalDefault(t *testing.T) {
	s := New([]string{"/bin/sh", "-c", "exit 0"}, os.Environ())
	if s.pollInterval != pollInterval {
		t.Errorf("pollInterval = %v, want %v", s.pollInterval, pollInterval)
	}
}

// TestFaultSignalsNotForwarded checks testable property #6: none of the
// fault signals ever reach the main child via classify, whether or not
// New's signal.Reset has taken effect for a given one yet.
func TestFaultSignalsNotForwarded(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	s := &Supervisor{mainPID: cmd.Process.Pid}

	for _, sig := range faultSignals {
		if err := s.classify(sig); err != nil {
			t.Errorf("classify(%v): %v", sig, err)
		}
	}

	if err := cmd.Process.Signal(syscall.Signal(0)); err != nil {
		t.Errorf("main child did not survive fault-signal classification: %v", err)
	}
}
