// Package config holds the local tunables this core consumes: refresh
// rates, queue capacities, the streaming toggle, and the SDK key.
// Settings load from YAML or TOML files, starting from documented
// defaults.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config enumerates every tunable the core consumes.
type Config struct {
	APIKey string `yaml:"apikey" toml:"apikey" env:"SPLIT_APIKEY" validate:"required"`

	FeaturesRefreshRate    int `yaml:"featuresRefreshRate" toml:"featuresRefreshRate" env:"FEATURES_REFRESH_RATE" validate:"min=1"`
	SegmentsRefreshRate    int `yaml:"segmentsRefreshRate" toml:"segmentsRefreshRate" env:"SEGMENTS_REFRESH_RATE" validate:"min=1"`
	ImpressionsRefreshRate int `yaml:"impressionsRefreshRate" toml:"impressionsRefreshRate" env:"IMPRESSIONS_REFRESH_RATE" validate:"min=1"`
	EventsRefreshRate      int `yaml:"eventsRefreshRate" toml:"eventsRefreshRate" env:"EVENTS_REFRESH_RATE" validate:"min=1"`
	MetricsRefreshRate     int `yaml:"metricsRefreshRate" toml:"metricsRefreshRate" env:"METRICS_REFRESH_RATE" validate:"min=1"`

	ImpressionsQueueSize int `yaml:"impressionsQueueSize" toml:"impressionsQueueSize" env:"IMPRESSIONS_QUEUE_SIZE" validate:"min=1"`
	EventsQueueSize      int `yaml:"eventsQueueSize" toml:"eventsQueueSize" env:"EVENTS_QUEUE_SIZE" validate:"min=1"`

	StreamingEnabled bool `yaml:"streamingEnabled" toml:"streamingEnabled" env:"STREAMING_ENABLED"`

	SegmentWorkerPoolSize int `yaml:"segmentWorkerPoolSize" toml:"segmentWorkerPoolSize" env:"SEGMENT_WORKER_POOL_SIZE" validate:"min=1"`
}

// IsLocalhostMode reports whether apikey selects the in-process localhost
// mode. That mode is out of scope for this core; callers
// use this to decide whether to construct the core at all.
func (c Config) IsLocalhostMode() bool {
	return c.APIKey == "localhost"
}

// Default returns the documented default configuration. Refresh rates
// are in seconds.
func Default() Config {
	return Config{
		FeaturesRefreshRate:    30,
		SegmentsRefreshRate:    60,
		ImpressionsRefreshRate: 60,
		EventsRefreshRate:      60,
		MetricsRefreshRate:     60,
		ImpressionsQueueSize:   30000,
		EventsQueueSize:        500000, // bytes, not event count
		StreamingEnabled:       true,
		SegmentWorkerPoolSize:  10,
	}
}

// Validate reports an invalid field (the API key first; among the
// numeric fields, which one is reported when several are invalid is not
// fixed), enforcing the constraints
// the `validate` struct tags document.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("config: apikey is required")
	}
	if c.IsLocalhostMode() {
		return nil
	}
	for name, v := range map[string]int{
		"featuresRefreshRate":    c.FeaturesRefreshRate,
		"segmentsRefreshRate":    c.SegmentsRefreshRate,
		"impressionsRefreshRate": c.ImpressionsRefreshRate,
		"eventsRefreshRate":      c.EventsRefreshRate,
		"metricsRefreshRate":     c.MetricsRefreshRate,
		"impressionsQueueSize":   c.ImpressionsQueueSize,
		"eventsQueueSize":        c.EventsQueueSize,
		"segmentWorkerPoolSize":  c.SegmentWorkerPoolSize,
	} {
		if v < 1 {
			return fmt.Errorf("config: %s must be >= 1, got %d", name, v)
		}
	}
	return nil
}

// LoadYAML reads a Config from a YAML file at path, starting from
// Default() so unset fields keep sane values.
func LoadYAML(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse yaml %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// LoadTOML reads a Config from a TOML file at path, starting from
// Default() so unset fields keep sane values.
func LoadTOML(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse toml %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}
