package backend

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// MpvClient sends commands to a running mpvpaper instance over its JSON
// IPC socket.
type MpvClient struct {
	socketPath string
}

// NewMpvClient creates a client for the given unix socket path.
func NewMpvClient(socketPath string) *MpvClient {
	return &MpvClient{socketPath: socketPath}
}

func (c *MpvClient) send(command ...interface{}) error {
	if c.socketPath == "" {
		return fmt.Errorf("mpv socket path not configured")
	}

	conn, err := net.DialTimeout("unix", c.socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to mpv socket: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))

	payload := map[string]interface{}{"command": command}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// SetVolume sets the playback volume, 0-100.
func (c *MpvClient) SetVolume(volume int) error {
	return c.send("set_property", "volume", volume)
}

// SetMute mutes or unmutes playback.
func (c *MpvClient) SetMute(muted bool) error {
	state := "no"
	if muted {
		state = "yes"
	}
	return c.send("set_property", "mute", state)
}

// SetPaused pauses or resumes playback.
func (c *MpvClient) SetPaused(paused bool) error {
	return c.send("set_property", "pause", paused)
}
