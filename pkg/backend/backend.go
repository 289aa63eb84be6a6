// Package backend drives the wlroots wallpaper tools: picking an installed
// backend, managing its process lifecycle, and probing the display.
package backend

import (
	"strconv"
	"strings"

	"github.com/HxprLee/manpaper/config"
	"github.com/HxprLee/manpaper/pkg/wallpaper"
)

// Definition describes one wallpaper backend binary.
type Definition struct {
	Name    string
	Binary  string
	Process string // daemon process name, for termination

	Static bool
	Live   bool

	// Detached is true for backends that run as a long-lived process we
	// spawn, false for client commands that talk to their own daemon.
	Detached bool

	// OwnDaemon backends manage their daemon themselves and are exempt
	// from the pre-apply process sweep.
	OwnDaemon bool
}

// definitions lists every backend the engine knows, in a fixed order.
var definitions = []Definition{
	{Name: "swaybg", Binary: "swaybg", Process: "swaybg", Static: true, Detached: true},
	{Name: "swww", Binary: "swww", Process: "swww-daemon", Static: true, Live: true, OwnDaemon: true},
	{Name: "hyprpaper", Binary: "hyprpaper", Process: "hyprpaper", Static: true, Detached: true},
	{Name: "mpvpaper", Binary: "mpvpaper", Process: "mpvpaper", Live: true, Detached: true},
}

// Lookup returns the definition for a backend name.
func Lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Names returns all known backend names in definition order.
func Names() []string {
	out := make([]string, len(definitions))
	for i, d := range definitions {
		out[i] = d.Name
	}
	return out
}

// supports reports whether the backend can render the item. swww only
// plays gifs on the live side, its daemon cannot decode video containers.
func (d Definition) supports(it wallpaper.Item) bool {
	if it.Kind == wallpaper.KindStatic {
		return d.Static
	}
	if !d.Live {
		return false
	}
	if d.Name == "swww" {
		return it.IsGIF()
	}
	return true
}

// buildArgs assembles the argument vector that renders path with this
// backend.
func (d Definition) buildArgs(cfg *config.Config, path string) []string {
	switch d.Name {
	case "swaybg":
		return []string{"-i", path, "-m", "fill"}
	case "swww":
		return []string{
			"img",
			"--resize", strings.ToLower(cfg.Swww.FillType),
			"--transition-type", cfg.Swww.TransitionType,
			"--transition-fps", strconv.Itoa(cfg.Swww.TransitionFPS),
			"--transition-duration", strconv.Itoa(cfg.Swww.TransitionDuration),
			path,
		}
	case "hyprpaper":
		return []string{"--output", "*", "--set", path}
	case "mpvpaper":
		var opts []string
		if strings.EqualFold(cfg.Mpv.FillType, "crop") {
			opts = append(opts, "--panscan=1 --window-maximized=yes")
		}
		if cfg.Mpv.SoundEnabled {
			opts = append(opts, "loop volume="+strconv.Itoa(cfg.Mpv.Volume))
		} else {
			opts = append(opts, "loop volume=0")
		}
		opts = append(opts, "input-ipc-server="+cfg.Mpv.SocketPath)
		return []string{"-vs", "-o", strings.Join(opts, " "), "ALL", path}
	}
	return nil
}
