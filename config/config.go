// Package config loads application settings: a YAML file under
// ~/.config/tonelab overridden by TONELAB_* environment variables.
// Musical state is never persisted here, only app preferences.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AudioConfig is the engine setup.
type AudioConfig struct {
	SampleRate  int
	BlockFrames int
}

// SchedulerConfig tunes the transport.
type SchedulerConfig struct {
	BPM          float64
	LoopEndBeats int
}

// UIConfig stores interface preferences.
type UIConfig struct {
	PaletteFile string
	Debug       bool
}

// Config is the main configuration structure.
type Config struct {
	Audio     AudioConfig
	Scheduler SchedulerConfig
	UI        UIConfig
}

// DefaultConfig returns the settings used when no file or env is
// present.
func DefaultConfig() *Config {
	return &Config{
		Audio:     AudioConfig{SampleRate: 48000, BlockFrames: 128},
		Scheduler: SchedulerConfig{BPM: 120, LoopEndBeats: 16},
	}
}

// ConfigDir returns the directory config.yaml is read from.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tonelab"), nil
}

// Load reads config.yaml if present and applies TONELAB_* overrides.
// A missing file falls back to defaults; a malformed one is an error.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := ConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetDefault("audio.sample_rate", cfg.Audio.SampleRate)
	v.SetDefault("audio.block_frames", cfg.Audio.BlockFrames)
	v.SetDefault("scheduler.bpm", cfg.Scheduler.BPM)
	v.SetDefault("scheduler.loop_end_beats", cfg.Scheduler.LoopEndBeats)
	v.SetDefault("ui.palette_file", cfg.UI.PaletteFile)
	v.SetDefault("ui.debug", cfg.UI.Debug)

	v.AutomaticEnv()
	_ = v.BindEnv("audio.sample_rate", "TONELAB_SAMPLE_RATE")
	_ = v.BindEnv("audio.block_frames", "TONELAB_BLOCK_FRAMES")
	_ = v.BindEnv("scheduler.bpm", "TONELAB_BPM")
	_ = v.BindEnv("scheduler.loop_end_beats", "TONELAB_LOOP_END_BEATS")
	_ = v.BindEnv("ui.palette_file", "TONELAB_PALETTE")
	_ = v.BindEnv("ui.debug", "TONELAB_DEBUG")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg.Audio.SampleRate = v.GetInt("audio.sample_rate")
	cfg.Audio.BlockFrames = v.GetInt("audio.block_frames")
	cfg.Scheduler.BPM = v.GetFloat64("scheduler.bpm")
	cfg.Scheduler.LoopEndBeats = v.GetInt("scheduler.loop_end_beats")
	cfg.UI.PaletteFile = v.GetString("ui.palette_file")
	cfg.UI.Debug = v.GetBool("ui.debug")

	cfg.sanitize()
	return cfg, nil
}

// sanitize clamps loaded values into workable ranges.
func (c *Config) sanitize() {
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		c.Audio.SampleRate = 48000
	}
	if c.Audio.BlockFrames < 32 || c.Audio.BlockFrames > 4096 {
		c.Audio.BlockFrames = 128
	}
	if c.Scheduler.BPM < 40 || c.Scheduler.BPM > 300 {
		c.Scheduler.BPM = 120
	}
	if c.Scheduler.LoopEndBeats < 1 {
		c.Scheduler.LoopEndBeats = 16
	}
}
