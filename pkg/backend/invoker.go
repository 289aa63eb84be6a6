package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/HxprLee/manpaper/config"
	"github.com/HxprLee/manpaper/pkg/wallpaper"
	"github.com/HxprLee/manpaper/util/log"
)

// Invoker selects an installed backend for each item and manages the
// backend processes. It implements wallpaper.Setter.
type Invoker struct {
	cfg    *config.Config
	runner Runner
	mpv    *MpvClient
}

// NewInvoker wires an Invoker. A nil runner gets the real one.
func NewInvoker(cfg *config.Config, runner Runner) *Invoker {
	if runner == nil {
		runner = NewRunner()
	}
	return &Invoker{
		cfg:    cfg,
		runner: runner,
		mpv:    NewMpvClient(cfg.Mpv.SocketPath),
	}
}

// Pick returns the first backend from the configured preference order that
// supports the item and is installed.
func (inv *Invoker) Pick(it wallpaper.Item) (Definition, error) {
	prefs := inv.cfg.StaticBackends
	if it.Kind == wallpaper.KindLive {
		prefs = inv.cfg.LiveBackends
	}

	for _, name := range prefs {
		def, ok := Lookup(name)
		if !ok {
			log.Printf("ignoring unknown backend %q in preferences", name)
			continue
		}
		if !def.supports(it) {
			continue
		}
		if _, err := inv.runner.LookPath(def.Binary); err != nil {
			continue
		}
		return def, nil
	}
	return Definition{}, fmt.Errorf("no backend for %s item %s: %w", it.Kind, it.ID, wallpaper.ErrBackendNotFound)
}

// Set renders the item with the best available backend, terminating
// whatever backend held the output before.
func (inv *Invoker) Set(ctx context.Context, it wallpaper.Item) error {
	def, err := inv.Pick(it)
	if err != nil {
		return err
	}

	inv.sweep()

	switch {
	case def.Name == "swww":
		return inv.setWithSwww(ctx, def, it)
	case def.Name == "mpvpaper":
		return inv.setWithMpvpaper(def, it)
	default:
		return inv.spawn(def, it)
	}
}

// sweep terminates running backend processes so only one backend holds the
// output at a time. Backends that manage their own daemon are left alone.
func (inv *Invoker) sweep() {
	for _, def := range definitions {
		if def.OwnDaemon {
			continue
		}
		if err := inv.runner.Terminate(def.Process); err != nil {
			log.Debugf("terminating %s: %v", def.Process, err)
		}
	}
}

func (inv *Invoker) spawn(def Definition, it wallpaper.Item) error {
	args := def.buildArgs(inv.cfg, it.LocalPath)
	if err := inv.runner.Start(def.Binary, args...); err != nil {
		return &wallpaper.SpawnError{Binary: def.Binary, Err: err}
	}
	return nil
}

func (inv *Invoker) setWithSwww(ctx context.Context, def Definition, it wallpaper.Item) error {
	// swww img needs the daemon up; swww manages it from there.
	if !inv.runner.Running(def.Process) {
		if err := inv.runner.Start(def.Process); err != nil {
			return &wallpaper.SpawnError{Binary: def.Process, Err: err}
		}
		// Give the daemon a moment to bind its socket.
		select {
		case <-time.After(300 * time.Millisecond):
		case <-ctx.Done():
			return fmt.Errorf("swww daemon startup: %w", wallpaper.ErrCancelled)
		}
	}

	args := def.buildArgs(inv.cfg, it.LocalPath)
	if _, err := inv.runner.Run(ctx, def.Binary, args...); err != nil {
		return err
	}
	return nil
}

func (inv *Invoker) setWithMpvpaper(def Definition, it wallpaper.Item) error {
	// A stale socket from a previous instance blocks the new one.
	if err := os.Remove(inv.cfg.Mpv.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("removing stale mpv socket: %v", err)
	}

	if err := inv.spawn(def, it); err != nil {
		return err
	}

	// mpvpaper needs a moment before its IPC socket accepts commands.
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := inv.mpv.SetVolume(inv.cfg.Mpv.Volume); err != nil {
			log.Debugf("mpv volume: %v", err)
		}
		if err := inv.mpv.SetMute(!inv.cfg.Mpv.SoundEnabled); err != nil {
			log.Debugf("mpv mute: %v", err)
		}
	}()
	return nil
}

// Installed returns the names of all backends whose binary is on PATH.
func (inv *Invoker) Installed() []string {
	var out []string
	for _, def := range definitions {
		if _, err := inv.runner.LookPath(def.Binary); err == nil {
			out = append(out, def.Name)
		}
	}
	return out
}
