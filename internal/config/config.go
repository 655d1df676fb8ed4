package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syntrixbase/viewcache/internal/events"
)

// Config holds the application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Source  SourceConfig  `yaml:"source"`
	View    ViewConfig    `yaml:"view"`
	Events  EventsConfig  `yaml:"events"`
	Persist PersistConfig `yaml:"persist"`
}

// SourceConfig describes the remote paginated endpoint.
type SourceConfig struct {
	QueryURL  string `yaml:"query_url"`
	CreateURL string `yaml:"create_url"`
	// ItemsAttr is the envelope attribute holding the record array.
	ItemsAttr      string `yaml:"items_attr"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ViewConfig tunes the viewport engine.
type ViewConfig struct {
	PageSize      int               `yaml:"page_size"`
	CacheMode     string            `yaml:"cache_mode"` // full, page-only
	Reverse       bool              `yaml:"reverse"`
	Bidirectional bool              `yaml:"bidirectional"`
	AutoSearch    bool              `yaml:"auto_search"`
	NotifyUpdates bool              `yaml:"notify_updates"`
	LocalOnly     bool              `yaml:"local_only"`
	UpdateFilter  string            `yaml:"update_filter"`
	QueryArgs     map[string]string `yaml:"query_args"`
	InitialArgs   map[string]string `yaml:"initial_args"`
}

// EventsConfig selects the push-event transport.
type EventsConfig struct {
	// Provider is one of: none, memory, nats, ws.
	Provider string          `yaml:"provider"`
	URL      string          `yaml:"url"`
	Subjects events.Subjects `yaml:"subjects"`
}

// PersistConfig selects the cache mirror backend.
type PersistConfig struct {
	// Backend is one of: none, memory, nats, mongo.
	Backend string             `yaml:"backend"`
	Key     string             `yaml:"key"`
	NATS    NATSPersistConfig  `yaml:"nats"`
	Mongo   MongoPersistConfig `yaml:"mongo"`
}

// NATSPersistConfig configures the JetStream key-value mirror.
type NATSPersistConfig struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

// MongoPersistConfig configures the MongoDB mirror.
type MongoPersistConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: DefaultLoggingConfig(),
		Source: SourceConfig{
			ItemsAttr:      "records",
			TimeoutSeconds: 30,
		},
		View: ViewConfig{
			PageSize:  20,
			CacheMode: "full",
		},
		Events: EventsConfig{
			Provider: "none",
		},
		Persist: PersistConfig{
			Backend: "none",
			Key:     "viewcache",
			Mongo: MongoPersistConfig{
				Collection: "snapshots",
			},
		},
	}
}

// LoadConfig loads configuration from files.
// Order: defaults -> config.yml -> config.local.yml -> Validate.
func LoadConfig() *Config {
	cfg := DefaultConfig()

	loadFile("config/config.yml", cfg)
	loadFile("config/config.local.yml", cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	return cfg
}

// Load reads and overlays the given files onto the defaults, then
// validates. Missing files are skipped.
func Load(paths ...string) (*Config, error) {
	cfg := DefaultConfig()
	for _, p := range paths {
		loadFile(p, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // File doesn't exist, skip
		}
		log.Printf("Warning: Error reading %s: %v", filename, err)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Warning: Error parsing %s: %v", filename, err)
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}

	switch c.View.CacheMode {
	case "", "full", "page-only":
	default:
		return fmt.Errorf("view: unknown cache_mode %q", c.View.CacheMode)
	}
	if c.View.PageSize < 0 {
		return fmt.Errorf("view: negative page_size %d", c.View.PageSize)
	}
	if !c.View.LocalOnly && c.Source.QueryURL == "" {
		return fmt.Errorf("source: query_url is required unless view.local_only is set")
	}

	switch c.Events.Provider {
	case "", "none", "memory":
	case "nats", "ws":
		if c.Events.URL == "" {
			return fmt.Errorf("events: url is required for provider %q", c.Events.Provider)
		}
	default:
		return fmt.Errorf("events: unknown provider %q", c.Events.Provider)
	}

	switch c.Persist.Backend {
	case "", "none", "memory":
	case "nats":
		if c.Persist.NATS.URL == "" || c.Persist.NATS.Bucket == "" {
			return fmt.Errorf("persist: nats backend needs url and bucket")
		}
	case "mongo":
		if c.Persist.Mongo.URI == "" || c.Persist.Mongo.Database == "" {
			return fmt.Errorf("persist: mongo backend needs uri and database")
		}
	default:
		return fmt.Errorf("persist: unknown backend %q", c.Persist.Backend)
	}
	if c.Persist.Backend != "" && c.Persist.Backend != "none" && c.Persist.Key == "" {
		return fmt.Errorf("persist: key must not be empty")
	}

	return nil
}
