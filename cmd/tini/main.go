// Command tini is a minimal PID 1 for single-process containers: it
// spawns one child, forwards signals to it, and reaps every descendant
// until that child has exited.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path"

	"go.tini.dev/tini/internal/logging"
	"go.tini.dev/tini/internal/supervisor"
)

// version and gitCommit are overwritten at build time, e.g.:
//
//	go build -ldflags "-X main.version=$(git describe --tags) -X main.gitCommit=$(git rev-parse --short HEAD)"
var (
	version   = "dev"
	gitCommit = "unknown"
)

// verbosity is a repeatable flag.Value: each -v increments it, up to
// logging.MaxVerbosity. flag.Bool can't be repeated, so this is the
// stdlib-flag way to build a counting option.
type verbosity int

func (v *verbosity) String() string {
	if v == nil {
		return "0"
	}
	return fmt.Sprintf("%d", int(*v))
}

func (v *verbosity) Set(string) error {
	if int(*v) < logging.MaxVerbosity {
		*v++
	}
	return nil
}

// IsBoolFlag lets flag accept "-v" with no argument, the same way
// flag.Bool flags work, so "-v -v -v" parses. The flag package does not
// combine short flags: "-vvv" is read as an unknown flag named "vvv".
func (v *verbosity) IsBoolFlag() bool { return true }

type config struct {
	verbosity int
	argv      []string
}

func usage(w io.Writer, fs *flag.FlagSet, name string) {
	fmt.Fprintf(w, `%s v%s (%s)
Usage: %s [OPTIONS] PROGRAM [ARGS...]

tini is a minimal init for containers: it runs PROGRAM as its one child,
forwards signals to it, and reaps every descendant process until PROGRAM
has exited.

Options:
`, name, version, gitCommit, name)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func parseArgs(name string, args []string) (config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var help bool
	var v verbosity

	fs.BoolVar(&help, "h", false, "print this help message and exit")
	fs.Var(&v, "v", "increase verbosity (repeatable, up to 4 times)")

	if err := fs.Parse(args); err != nil {
		usage(os.Stderr, fs, name)
		return config{}, err
	}

	if help {
		usage(os.Stdout, fs, name)
		os.Exit(0)
	}

	if fs.NArg() < 1 {
		usage(os.Stderr, fs, name)
		return config{}, fmt.Errorf("missing PROGRAM")
	}

	return config{
		verbosity: int(v),
		argv:      fs.Args(),
	}, nil
}

func main() {
	name := path.Base(os.Args[0])

	cfg, err := parseArgs(name, os.Args[1:])
	if err != nil {
		os.Exit(1)
	}

	logging.SetLevel(cfg.verbosity)

	s := supervisor.New(cfg.argv, os.Environ())
	os.Exit(s.Run())
}
