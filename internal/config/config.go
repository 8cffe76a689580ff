package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "focusmeter"

type Config struct {
	LogLevel     string      `json:"log_level"` // "debug", "info", "warn", "error"
	Audio        AudioConfig `json:"audio"`
	WarmupFrames int         `json:"warmup_frames"`
	DataDir      string      `json:"data_dir"` // empty: platform data dir
	Tray         TrayConfig  `json:"tray"`
}

type AudioConfig struct {
	DeviceID        string `json:"device_id"`
	SampleRate      int    `json:"sample_rate"`
	FramesPerBuffer int    `json:"frames_per_buffer"` // 2400 at 48 kHz is one 50 ms frame
	Channels        int    `json:"channels"`
}

type TrayConfig struct {
	Enabled   bool `json:"enabled"`
	AutoStart bool `json:"auto_start"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceID:        "",
			SampleRate:      48000,
			FramesPerBuffer: 2400,
			Channels:        1,
		},
		WarmupFrames: 10,
		Tray: TrayConfig{
			Enabled:   false,
			AutoStart: true,
		},
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	cfg := Default()

	// Load existing config if it exists
	if data, err := os.ReadFile(configPath()); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	def := Default()
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.FramesPerBuffer <= 0 {
		c.Audio.FramesPerBuffer = def.Audio.FramesPerBuffer
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = def.Audio.Channels
	}
	if c.WarmupFrames < 0 {
		c.WarmupFrames = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// HistoryDir returns the directory holding the slice history database
func (c *Config) HistoryDir() string {
	if c.DataDir != "" {
		return filepath.Join(c.DataDir, "history")
	}
	return filepath.Join(DataPath(), "history")
}

// Path returns the platform-specific config file path
func Path() string {
	return configPath()
}

// SettingsPath returns the path of the control settings file
func SettingsPath() string {
	return filepath.Join(configDir(), "settings.json")
}

func configPath() string {
	return filepath.Join(configDir(), "config.json")
}

// configDir returns the platform-specific config directory
func configDir() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName)
}

// DataPath returns the platform-specific data directory path
func DataPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, appName)
}
