package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

// Config holds all application configuration. The wallpaper directory and
// backend preference lists are the pieces the engine itself depends on;
// everything else tunes how individual backends are driven.
type Config struct {
	WallpaperDir string `mapstructure:"wallpaper_dir"`
	ThumbnailDir string `mapstructure:"thumbnail_dir"`
	StateFile    string `mapstructure:"state_file"`

	// Backend preference order, first available wins.
	StaticBackends []string `mapstructure:"static_backends"`
	LiveBackends   []string `mapstructure:"live_backends"`

	Swww      SwwwConfig     `mapstructure:"swww"`
	Mpv       MpvConfig      `mapstructure:"mpv"`
	Downloads DownloadConfig `mapstructure:"downloads"`
}

// SwwwConfig holds transition options passed to `swww img`.
type SwwwConfig struct {
	FillType           string `mapstructure:"fill_type"`
	TransitionType     string `mapstructure:"transition_type"`
	TransitionFPS      int    `mapstructure:"transition_fps"`
	TransitionDuration int    `mapstructure:"transition_duration"`
}

// MpvConfig holds options passed to mpvpaper and its IPC socket.
type MpvConfig struct {
	SocketPath   string `mapstructure:"socket_path"`
	Volume       int    `mapstructure:"volume"`
	SoundEnabled bool   `mapstructure:"sound_enabled"`
	FillType     string `mapstructure:"fill_type"`
}

// DownloadConfig controls the catalog download workers.
type DownloadConfig struct {
	Parallel int `mapstructure:"parallel"`
}

// wallhavenKeyService is the keyring service name for the Wallhaven API key.
const wallhavenKeyService = "manpaper_wallhaven_api_key"

// wallhavenKeyEnv is the environment fallback for headless installs where no
// keyring daemon is available.
const wallhavenKeyEnv = EnvPrefix + "_WALLHAVEN_API_KEY"

// Default returns the default configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		WallpaperDir: filepath.Join(home, "Pictures", "wallpapers"),
		ThumbnailDir: filepath.Join(userCacheDir(), "manpaper", "thumbnails"),
		StateFile:    filepath.Join(userCacheDir(), "manpaper", "manpaper.db"),

		StaticBackends: []string{"swaybg", "swww", "hyprpaper"},
		LiveBackends:   []string{"swww", "mpvpaper"},

		Swww: SwwwConfig{
			FillType:           "crop",
			TransitionType:     "simple",
			TransitionFPS:      60,
			TransitionDuration: 1,
		},
		Mpv: MpvConfig{
			SocketPath:   filepath.Join(os.TempDir(), "manpaper-mpv.sock"),
			Volume:       50,
			SoundEnabled: false,
			FillType:     "crop",
		},
		Downloads: DownloadConfig{
			Parallel: 3,
		},
	}
}

func userCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".cache")
	}
	return dir
}

// DefaultConfigDir returns the directory holding config.yaml.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "manpaper")
}

// Load loads the configuration from the default config directory.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigDir())
}

// LoadFrom loads the configuration from the given directory, applying
// defaults and MANPAPER_* environment overrides. A missing config file is
// not an error; defaults are used.
func LoadFrom(dir string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Defaults must be registered for AutomaticEnv to see the keys.
	v.SetDefault("wallpaper_dir", cfg.WallpaperDir)
	v.SetDefault("thumbnail_dir", cfg.ThumbnailDir)
	v.SetDefault("state_file", cfg.StateFile)
	v.SetDefault("static_backends", cfg.StaticBackends)
	v.SetDefault("live_backends", cfg.LiveBackends)
	v.SetDefault("swww.fill_type", cfg.Swww.FillType)
	v.SetDefault("swww.transition_type", cfg.Swww.TransitionType)
	v.SetDefault("swww.transition_fps", cfg.Swww.TransitionFPS)
	v.SetDefault("swww.transition_duration", cfg.Swww.TransitionDuration)
	v.SetDefault("mpv.socket_path", cfg.Mpv.SocketPath)
	v.SetDefault("mpv.volume", cfg.Mpv.Volume)
	v.SetDefault("mpv.sound_enabled", cfg.Mpv.SoundEnabled)
	v.SetDefault("mpv.fill_type", cfg.Mpv.FillType)
	v.SetDefault("downloads.parallel", cfg.Downloads.Parallel)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the default config directory.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigDir())
}

// SaveTo writes the configuration as config.yaml under dir.
func (c *Config) SaveTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("wallpaper_dir", c.WallpaperDir)
	v.Set("thumbnail_dir", c.ThumbnailDir)
	v.Set("state_file", c.StateFile)
	v.Set("static_backends", c.StaticBackends)
	v.Set("live_backends", c.LiveBackends)

	v.Set("swww.fill_type", c.Swww.FillType)
	v.Set("swww.transition_type", c.Swww.TransitionType)
	v.Set("swww.transition_fps", c.Swww.TransitionFPS)
	v.Set("swww.transition_duration", c.Swww.TransitionDuration)

	v.Set("mpv.socket_path", c.Mpv.SocketPath)
	v.Set("mpv.volume", c.Mpv.Volume)
	v.Set("mpv.sound_enabled", c.Mpv.SoundEnabled)
	v.Set("mpv.fill_type", c.Mpv.FillType)

	v.Set("downloads.parallel", c.Downloads.Parallel)

	if err := v.WriteConfigAs(filepath.Join(dir, "config.yaml")); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// WallhavenAPIKey returns the Wallhaven API key from the OS keyring, falling
// back to the MANPAPER_WALLHAVEN_API_KEY environment variable. An empty
// string means no key is configured.
func (c *Config) WallhavenAPIKey() string {
	key, err := keyring.Get(wallhavenKeyService, keyringUser())
	if err == nil && key != "" {
		return key
	}
	return os.Getenv(wallhavenKeyEnv)
}

// SetWallhavenAPIKey stores the Wallhaven API key in the OS keyring. An
// empty key removes the stored entry.
func (c *Config) SetWallhavenAPIKey(key string) error {
	if key == "" {
		err := keyring.Delete(wallhavenKeyService, keyringUser())
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return keyring.Set(wallhavenKeyService, keyringUser(), key)
}

func keyringUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "manpaper"
}
