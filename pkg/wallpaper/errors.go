package wallpaper

import (
	"errors"
	"fmt"
	"syscall"
)

// Sentinel errors shared across the engine. Callers match them with
// errors.Is after any number of %w wraps.
var (
	// ErrBackendNotFound means no configured backend binary is installed.
	ErrBackendNotFound = errors.New("no usable wallpaper backend found")

	// ErrNotDownloaded means an operation needed a local file for an item
	// that has not been downloaded yet.
	ErrNotDownloaded = errors.New("wallpaper not downloaded")

	// ErrCancelled means the operation was cancelled before completion.
	ErrCancelled = errors.New("operation cancelled")

	// ErrAPIKeyMissing means the online catalog was asked for content that
	// requires a Wallhaven API key and none is configured.
	ErrAPIKeyMissing = errors.New("wallhaven API key not configured")

	// ErrDiskFull means a write failed because the filesystem is full.
	ErrDiskFull = errors.New("disk full")

	// ErrNetwork marks failures talking to the online catalog.
	ErrNetwork = errors.New("network failure")

	// ErrIO marks local filesystem failures.
	ErrIO = errors.New("i/o failure")
)

// ProcessError reports a backend process that started but exited with a
// failure.
type ProcessError struct {
	Binary   string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Binary, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Binary, e.ExitCode)
}

// SpawnError reports a backend binary that could not be started at all.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// WrapIO classifies a filesystem error, promoting ENOSPC to ErrDiskFull so
// callers can surface it distinctly.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%s: %w: %v", op, ErrDiskFull, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrIO, err)
}

// WrapNetwork classifies a transport error from the online catalog.
func WrapNetwork(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrNetwork, err)
}
