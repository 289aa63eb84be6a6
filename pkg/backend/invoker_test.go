package backend

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/HxprLee/manpaper/config"
	"github.com/HxprLee/manpaper/pkg/wallpaper"
)

func staticItem() wallpaper.Item {
	return wallpaper.Item{
		ID:         "abc123",
		Kind:       wallpaper.KindStatic,
		Downloaded: true,
		LocalPath:  "/walls/abc123.jpg",
	}
}

func liveItem(path string) wallpaper.Item {
	return wallpaper.Item{
		ID:         "vid001",
		Kind:       wallpaper.KindLive,
		Downloaded: true,
		LocalPath:  path,
	}
}

func installed(r *MockRunner, names ...string) {
	for _, n := range names {
		r.On("LookPath", n).Return("/usr/bin/"+n, nil)
	}
	r.On("LookPath", mock.Anything).Return("", exec.ErrNotFound)
}

func expectSweep(r *MockRunner) {
	for _, p := range []string{"swaybg", "hyprpaper", "mpvpaper"} {
		r.On("Terminate", p).Return(nil)
	}
}

func TestPickHonorsPreferenceOrder(t *testing.T) {
	r := new(MockRunner)
	installed(r, "swww", "hyprpaper")

	cfg := config.Default()
	inv := NewInvoker(cfg, r)

	def, err := inv.Pick(staticItem())
	require.NoError(t, err)
	assert.Equal(t, "swww", def.Name, "swaybg missing, swww is next in order")
}

func TestPickNoBackendInstalled(t *testing.T) {
	r := new(MockRunner)
	installed(r) // nothing

	inv := NewInvoker(config.Default(), r)
	_, err := inv.Pick(staticItem())
	assert.ErrorIs(t, err, wallpaper.ErrBackendNotFound)
}

func TestPickSwwwOnlyPlaysGifs(t *testing.T) {
	r := new(MockRunner)
	installed(r, "swww", "mpvpaper")

	inv := NewInvoker(config.Default(), r)

	def, err := inv.Pick(liveItem("/walls/anim.gif"))
	require.NoError(t, err)
	assert.Equal(t, "swww", def.Name)

	def, err = inv.Pick(liveItem("/walls/clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "mpvpaper", def.Name, "swww cannot decode video containers")
}

func TestPickVideoWithoutMpvpaper(t *testing.T) {
	r := new(MockRunner)
	installed(r, "swww")

	inv := NewInvoker(config.Default(), r)
	_, err := inv.Pick(liveItem("/walls/clip.mp4"))
	assert.ErrorIs(t, err, wallpaper.ErrBackendNotFound)
}

func TestPickIgnoresUnknownPreference(t *testing.T) {
	r := new(MockRunner)
	installed(r, "swaybg")

	cfg := config.Default()
	cfg.StaticBackends = []string{"feh", "swaybg"}
	inv := NewInvoker(cfg, r)

	def, err := inv.Pick(staticItem())
	require.NoError(t, err)
	assert.Equal(t, "swaybg", def.Name)
}

func TestSetStaticSweepsAndSpawns(t *testing.T) {
	r := new(MockRunner)
	installed(r, "swaybg")
	expectSweep(r)
	r.On("Start", "swaybg", []string{"-i", "/walls/abc123.jpg", "-m", "fill"}).Return(nil)

	inv := NewInvoker(config.Default(), r)
	require.NoError(t, inv.Set(context.Background(), staticItem()))
	r.AssertExpectations(t)
}

func TestSetSwwwStartsDaemonWhenDown(t *testing.T) {
	r := new(MockRunner)
	installed(r, "swww")
	expectSweep(r)
	r.On("Running", "swww-daemon").Return(false)
	r.On("Start", "swww-daemon", mock.Anything).Return(nil)
	r.On("Run", mock.Anything, "swww", mock.MatchedBy(func(args []string) bool {
		return len(args) > 0 && args[0] == "img" && args[len(args)-1] == "/walls/abc123.jpg"
	})).Return([]byte{}, nil)

	inv := NewInvoker(config.Default(), r)
	require.NoError(t, inv.Set(context.Background(), staticItem()))
	r.AssertExpectations(t)
}

func TestSetSwwwDaemonAlreadyRunning(t *testing.T) {
	r := new(MockRunner)
	installed(r, "swww")
	expectSweep(r)
	r.On("Running", "swww-daemon").Return(true)
	r.On("Run", mock.Anything, "swww", mock.Anything).Return([]byte{}, nil)

	inv := NewInvoker(config.Default(), r)
	require.NoError(t, inv.Set(context.Background(), staticItem()))
	r.AssertNotCalled(t, "Start", "swww-daemon", mock.Anything)
}

func TestSetSpawnFailure(t *testing.T) {
	r := new(MockRunner)
	installed(r, "swaybg")
	expectSweep(r)
	r.On("Start", "swaybg", mock.Anything).Return(errors.New("fork failed"))

	inv := NewInvoker(config.Default(), r)
	err := inv.Set(context.Background(), staticItem())

	var spawnErr *wallpaper.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, "swaybg", spawnErr.Binary)
}

func TestBuildArgs(t *testing.T) {
	cfg := config.Default()
	cfg.Swww.FillType = "Fit"
	cfg.Swww.TransitionType = "wipe"
	cfg.Swww.TransitionFPS = 144
	cfg.Swww.TransitionDuration = 2
	cfg.Mpv.SocketPath = "/tmp/mpv.sock"
	cfg.Mpv.SoundEnabled = true
	cfg.Mpv.Volume = 35
	cfg.Mpv.FillType = "crop"

	swaybg, _ := Lookup("swaybg")
	assert.Equal(t,
		[]string{"-i", "/w/a.jpg", "-m", "fill"},
		swaybg.buildArgs(cfg, "/w/a.jpg"))

	swww, _ := Lookup("swww")
	assert.Equal(t,
		[]string{"img", "--resize", "fit", "--transition-type", "wipe",
			"--transition-fps", "144", "--transition-duration", "2", "/w/a.jpg"},
		swww.buildArgs(cfg, "/w/a.jpg"))

	hyprpaper, _ := Lookup("hyprpaper")
	assert.Equal(t,
		[]string{"--output", "*", "--set", "/w/a.jpg"},
		hyprpaper.buildArgs(cfg, "/w/a.jpg"))

	mpvpaper, _ := Lookup("mpvpaper")
	assert.Equal(t,
		[]string{"-vs", "-o",
			"--panscan=1 --window-maximized=yes loop volume=35 input-ipc-server=/tmp/mpv.sock",
			"ALL", "/w/clip.mp4"},
		mpvpaper.buildArgs(cfg, "/w/clip.mp4"))
}

func TestBuildArgsMutedByDefault(t *testing.T) {
	cfg := config.Default()
	mpvpaper, _ := Lookup("mpvpaper")
	args := mpvpaper.buildArgs(cfg, "/w/clip.mp4")
	assert.Contains(t, args[2], "volume=0")
}
