// Package config loads the server configuration from YAML, applies
// environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Instrument string `yaml:"instrument"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Health struct {
		GRPCAddr string `yaml:"grpc_addr"`
	} `yaml:"health"`

	Storage struct {
		// Backend is "pebble" (durable) or "memory" (ephemeral).
		Backend string `yaml:"backend"`
		Dir     string `yaml:"dir"`
	} `yaml:"storage"`

	Journal struct {
		Enabled     bool   `yaml:"enabled"`
		Dir         string `yaml:"dir"`
		SegmentSize int64  `yaml:"segment_size"`
	} `yaml:"journal"`

	Events struct {
		// Sink is "log", "kafka" (direct, fire-and-forget) or
		// "outbox" (durable, drained by the broadcaster).
		Sink            string   `yaml:"sink"`
		Brokers         []string `yaml:"brokers"`
		Topic           string   `yaml:"topic"`
		OutboxDir       string   `yaml:"outbox_dir"`
		DrainIntervalMS int      `yaml:"drain_interval_ms"`
	} `yaml:"events"`

	Matching struct {
		// SelfTrade is "allow" or "reject".
		SelfTrade string `yaml:"self_trade"`
	} `yaml:"matching"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Instrument = "BTC-USD"
	cfg.HTTP.Addr = ":8082"
	cfg.Health.GRPCAddr = ":8083"
	cfg.Storage.Backend = "pebble"
	cfg.Storage.Dir = "./data/orders"
	cfg.Journal.Enabled = true
	cfg.Journal.Dir = "./data/journal"
	cfg.Events.Sink = "log"
	cfg.Events.Topic = "trades"
	cfg.Events.OutboxDir = "./data/outbox"
	cfg.Events.DrainIntervalMS = 250
	cfg.Matching.SelfTrade = "allow"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// Load reads path over the defaults. An empty path keeps the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	overrideWithEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("MATCHBOOK_INSTRUMENT"); v != "" {
		cfg.Instrument = v
	}
	if v := os.Getenv("MATCHBOOK_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("MATCHBOOK_KAFKA_BROKERS"); v != "" {
		cfg.Events.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MATCHBOOK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Instrument == "" {
		return fmt.Errorf("instrument is required")
	}
	switch c.Storage.Backend {
	case "pebble":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the pebble backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Events.Sink {
	case "log":
	case "kafka", "outbox":
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events.brokers required for sink %q", c.Events.Sink)
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events.topic required for sink %q", c.Events.Sink)
		}
	default:
		return fmt.Errorf("unknown event sink %q", c.Events.Sink)
	}
	switch c.Matching.SelfTrade {
	case "allow", "reject":
	default:
		return fmt.Errorf("matching.self_trade must be allow or reject, got %q", c.Matching.SelfTrade)
	}
	return nil
}
