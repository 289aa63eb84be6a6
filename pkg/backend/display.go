package backend

import (
	"context"
	"regexp"
	"strconv"
)

var (
	hyprResolutionRe = regexp.MustCompile(`(\d+)x(\d+)@`)
	hyprRefreshRe    = regexp.MustCompile(`@(\d+)\.\d+`)
	wlrResolutionRe  = regexp.MustCompile(`(\d+)x(\d+)`)
	wlrRefreshRe     = regexp.MustCompile(`(\d+)\.\d+\s*Hz`)
)

// Default display geometry when no probe tool is available.
const (
	fallbackWidth   = 1920
	fallbackHeight  = 1080
	fallbackRefresh = 60
)

// Resolution probes the primary monitor's resolution via hyprctl, then
// wlr-randr, falling back to 1920x1080.
func (inv *Invoker) Resolution(ctx context.Context) (int, int) {
	if out, err := inv.runner.Run(ctx, "hyprctl", "monitors"); err == nil {
		if m := hyprResolutionRe.FindSubmatch(out); m != nil {
			return atoiOr(string(m[1]), fallbackWidth), atoiOr(string(m[2]), fallbackHeight)
		}
	}
	if out, err := inv.runner.Run(ctx, "wlr-randr"); err == nil {
		if m := wlrResolutionRe.FindSubmatch(out); m != nil {
			return atoiOr(string(m[1]), fallbackWidth), atoiOr(string(m[2]), fallbackHeight)
		}
	}
	return fallbackWidth, fallbackHeight
}

// RefreshRate probes the primary monitor's refresh rate, falling back to
// 60 Hz.
func (inv *Invoker) RefreshRate(ctx context.Context) int {
	if out, err := inv.runner.Run(ctx, "hyprctl", "monitors"); err == nil {
		if m := hyprRefreshRe.FindSubmatch(out); m != nil {
			return atoiOr(string(m[1]), fallbackRefresh)
		}
	}
	if out, err := inv.runner.Run(ctx, "wlr-randr"); err == nil {
		if m := wlrRefreshRe.FindSubmatch(out); m != nil {
			return atoiOr(string(m[1]), fallbackRefresh)
		}
	}
	return fallbackRefresh
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
