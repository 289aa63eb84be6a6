package backend

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMpvSocket accepts one connection and returns the line it received.
func fakeMpvSocket(t *testing.T) (string, <-chan string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	lines := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if line, err := bufio.NewReader(conn).ReadString('\n'); err == nil {
			lines <- line
		}
	}()
	return path, lines
}

func TestMpvSetVolume(t *testing.T) {
	path, lines := fakeMpvSocket(t)

	c := NewMpvClient(path)
	require.NoError(t, c.SetVolume(35))

	var payload struct {
		Command []interface{} `json:"command"`
	}
	require.NoError(t, json.Unmarshal([]byte(<-lines), &payload))
	assert.Equal(t, []interface{}{"set_property", "volume", float64(35)}, payload.Command)
}

func TestMpvSetMute(t *testing.T) {
	path, lines := fakeMpvSocket(t)

	c := NewMpvClient(path)
	require.NoError(t, c.SetMute(true))

	var payload struct {
		Command []interface{} `json:"command"`
	}
	require.NoError(t, json.Unmarshal([]byte(<-lines), &payload))
	assert.Equal(t, []interface{}{"set_property", "mute", "yes"}, payload.Command)
}

func TestMpvNoSocketConfigured(t *testing.T) {
	c := NewMpvClient("")
	assert.Error(t, c.SetVolume(10))
}

func TestMpvSocketMissing(t *testing.T) {
	c := NewMpvClient(filepath.Join(t.TempDir(), "absent.sock"))
	assert.Error(t, c.SetVolume(10))
}
