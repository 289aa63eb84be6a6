package backend

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/HxprLee/manpaper/pkg/wallpaper"
	"github.com/HxprLee/manpaper/util/log"
)

// Runner abstracts process execution so the invoker can be tested without
// spawning real backends.
type Runner interface {
	// LookPath reports where a binary lives, or an error when missing.
	LookPath(name string) (string, error)

	// Run executes a command to completion and returns its stdout.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start launches a command detached, in its own process group, with
	// its I/O discarded.
	Start(name string, args ...string) error

	// Running reports whether a process with the given name exists.
	Running(process string) bool

	// Terminate sends SIGTERM to every process with the given name.
	Terminate(process string) error
}

// execRunner is the real Runner.
type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &wallpaper.ProcessError{
				Binary:   name,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

func (execRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	// New process group so the backend outlives us and never receives
	// our terminal signals.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait() // reap
	}()
	return nil
}

func (r execRunner) Running(process string) bool {
	return len(r.pidsOf(process)) > 0
}

func (r execRunner) Terminate(process string) error {
	var firstErr error
	for _, pid := range r.pidsOf(process) {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (execRunner) pidsOf(process string) []int {
	out, err := exec.Command("pidof", process).Output()
	if err != nil {
		return nil // pidof exits 1 when no process matches
	}

	var pids []int
	for _, field := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			log.Debugf("pidof returned non-numeric field %q for %s", field, process)
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
