// Package config defines the clipper configuration and how it is loaded.
//
// A Config is built once at startup and passed down explicitly; no package
// reads configuration globals.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pable/highlight-clipper/internal/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ClipPaddingSeconds is added before and after every event window.
	ClipPaddingSeconds int `koanf:"clip_padding_seconds"`

	MultikillMinKills          int     `koanf:"multikill_min_kills"`
	MultikillThresholdSeconds  int     `koanf:"multikill_threshold_seconds"`
	TeamFightsMinKills         int     `koanf:"team_fights_min_kills"`
	TeamFightsThresholdSeconds int     `koanf:"team_fights_threshold_seconds"`
	TeamFightsMaxY             float64 `koanf:"team_fights_max_y"`

	// EnabledDetectors is a comma-separated list of event kinds.
	EnabledDetectors string `koanf:"enabled_detectors"`

	// OutputDirectory is the root of the clip tree.
	OutputDirectory string `koanf:"output_directory"`
	// WorkDirectory receives temporary calibration clips.
	WorkDirectory string `koanf:"work_directory"`
	// DatabasePath is the SQLite ledger.
	DatabasePath string `koanf:"database_path"`
	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `koanf:"metrics_file"`

	TwitchClientID    string `koanf:"twitch_client_id"`
	TwitchAccessToken string `koanf:"twitch_access_token"`
	TwitchAPIURL      string `koanf:"twitch_api_url"`
	DeadlockAPIURL    string `koanf:"deadlock_api_url"`
	// APIRequestsPerMinute caps requests per upstream API.
	APIRequestsPerMinute int `koanf:"api_requests_per_minute"`

	AlignmentMarginSeconds int `koanf:"alignment_margin_seconds"`
	FrameSampleInterval    int `koanf:"frame_sample_interval"`
	MaxConcurrentClips     int `koanf:"max_concurrent_clips"`

	YtDlpPath     string `koanf:"ytdlp_path"`
	FFmpegPath    string `koanf:"ffmpeg_path"`
	TesseractPath string `koanf:"tesseract_path"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "DEBUG",
		ClipPaddingSeconds:         10,
		MultikillMinKills:          3,
		MultikillThresholdSeconds:  10,
		TeamFightsMinKills:         5,
		TeamFightsThresholdSeconds: 10,
		TeamFightsMaxY:             7000,
		EnabledDetectors:           "multikill,team_fight",
		OutputDirectory:            "clips",
		WorkDirectory:              ".",
		DatabasePath:               "clipper.db",
		TwitchAPIURL:               "https://api.twitch.tv/helix",
		DeadlockAPIURL:             "https://api.deadlock-api.com",
		APIRequestsPerMinute:       60,
		AlignmentMarginSeconds:     5,
		FrameSampleInterval:        10,
		MaxConcurrentClips:         5,
		YtDlpPath:                  "yt-dlp",
		FFmpegPath:                 "ffmpeg",
		TesseractPath:              "tesseract",
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.TwitchClientID == "" || c.TwitchAccessToken == "" {
		return fmt.Errorf("%w: TWITCH_CLIENT_ID and TWITCH_ACCESS_TOKEN must be set", ErrInvalidConfig)
	}
	return c.ValidateLocal()
}

// ValidateLocal checks everything except the Twitch credentials. It is enough
// for commands that only read the local ledger.
func (c *Config) ValidateLocal() error {
	positive := map[string]int{
		"MULTIKILL_MIN_KILLS":           c.MultikillMinKills,
		"MULTIKILL_THRESHOLD_SECONDS":   c.MultikillThresholdSeconds,
		"TEAM_FIGHTS_MIN_KILLS":         c.TeamFightsMinKills,
		"TEAM_FIGHTS_THRESHOLD_SECONDS": c.TeamFightsThresholdSeconds,
		"FRAME_SAMPLE_INTERVAL":         c.FrameSampleInterval,
		"MAX_CONCURRENT_CLIPS":          c.MaxConcurrentClips,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, v)
		}
	}
	if c.ClipPaddingSeconds < 0 || c.AlignmentMarginSeconds < 0 {
		return fmt.Errorf("%w: padding and margin must not be negative", ErrInvalidConfig)
	}
	if c.OutputDirectory == "" {
		return fmt.Errorf("%w: OUTPUT_DIRECTORY must not be empty", ErrInvalidConfig)
	}
	if _, err := c.Detectors(); err != nil {
		return err
	}
	return nil
}

// Detectors parses EnabledDetectors into event kinds, in listed order.
func (c *Config) Detectors() ([]model.Kind, error) {
	var kinds []model.Kind
	seen := make(map[model.Kind]bool)
	for _, name := range strings.Split(c.EnabledDetectors, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		k, err := model.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: ENABLED_DETECTORS: %v", ErrInvalidConfig, err)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: ENABLED_DETECTORS is empty", ErrInvalidConfig)
	}
	return kinds, nil
}

func (c *Config) ClipPadding() time.Duration {
	return time.Duration(c.ClipPaddingSeconds) * time.Second
}

func (c *Config) AlignmentMargin() time.Duration {
	return time.Duration(c.AlignmentMarginSeconds) * time.Second
}
