package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Logging   LoggingConfig             `json:"logging"`
	Storage   *StorageConfig            `json:"storage,omitempty"`
	Scheduler SchedulerConfig           `json:"scheduler"`
	Platforms map[string]PlatformConfig `json:"platforms"`
	Generator GeneratorConfig           `json:"generator"`
	Materials MaterialsConfig           `json:"materials"`
	Publish   PublishConfig             `json:"publish"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	Bus     LoggingBus  `json:"bus"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingBus controls forwarding of rendered log lines onto the event bus
// (the UI log tail). RatePerSec caps the forwarding rate.
type LoggingBus struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./autostory_state" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// SchedulerConfig is the persisted/boot state of the recurring publisher.
// The interval is immutable while the scheduler is enabled; the UI must stop
// it before changing the interval.
type SchedulerConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"interval_minutes"`
}

// PlatformConfig sets the per-platform daily publish limit.
// Limits are configuration, not computed.
type PlatformConfig struct {
	Enabled    bool `json:"enabled"`
	DailyLimit int  `json:"daily_limit"`
}

type GeneratorConfig struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	APIKeyEnv string `json:"api_key_env,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`

	Personas  []Persona  `json:"personas,omitempty"`
	Templates []Template `json:"templates,omitempty"`
}

// Persona is a writing voice the generator can adopt.
type Persona struct {
	Name  string `json:"name"`
	Voice string `json:"voice"`
}

// Template is a named prompt skeleton; "{{topic}}" is replaced with the
// material's title or theme.
type Template struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

type MaterialsConfig struct {
	Path string `json:"path"`
}

type PublishConfig struct {
	OutputDir string `json:"output_dir"`
	HomeTheme string `json:"home_theme,omitempty"`
	// StageTimeout bounds each collaborator call. "0s" disables the bound
	// (observed source behavior: no per-stage timeout).
	StageTimeout string `json:"stage_timeout,omitempty"`
}

// Validate rejects configs that would put services into impossible states.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Scheduler.Enabled && c.Scheduler.IntervalMinutes <= 0 {
		return errors.New("scheduler.interval_minutes must be > 0 when enabled")
	}
	for name, p := range c.Platforms {
		if strings.TrimSpace(name) == "" {
			return errors.New("platforms: empty platform name")
		}
		if p.DailyLimit < 0 {
			return fmt.Errorf("platforms.%s.daily_limit must be >= 0", name)
		}
	}
	if _, err := ParseDurationField("publish.stage_timeout", c.Publish.StageTimeout); err != nil {
		return err
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
