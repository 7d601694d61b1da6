package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration. Values come from an optional TOML
// file, overridden by environment variables, overridden by flags.
type Config struct {
	// EndpointURL is the base URL of the model-serving host.
	EndpointURL string `toml:"endpoint_url"`
	// EndpointName is the serving endpoint queried for every chat turn.
	EndpointName string `toml:"endpoint_name"`
	// Listen is the address the web UI binds to.
	Listen string `toml:"listen"`
	// DBPath is the SQLite file for chat history; empty disables persistence.
	DBPath string `toml:"db_path"`
	// TelemetryURL is the websocket ingest endpoint for usage telemetry;
	// empty disables it.
	TelemetryURL string `toml:"telemetry_url"`
	// HistoryLimit caps how many conversations the sidebar shows.
	HistoryLimit int  `toml:"history_limit"`
	Debug        bool `toml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:       ":8000",
		DBPath:       "streamchat.db",
		HistoryLimit: 50,
	}
}

// Load reads the TOML file at path (when non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if v := os.Getenv("SERVING_ENDPOINT_URL"); v != "" {
		cfg.EndpointURL = v
	}
	if v := os.Getenv("SERVING_ENDPOINT"); v != "" {
		cfg.EndpointName = v
	}
	if v := os.Getenv("TELEMETRY_BUS_URL"); v != "" {
		cfg.TelemetryURL = v
	}
	return cfg, nil
}

// Validate checks the fields the app cannot run without.
func (c Config) Validate() error {
	if c.EndpointName == "" {
		return fmt.Errorf("serving endpoint name is required: set endpoint_name in the config file, the SERVING_ENDPOINT environment variable, or the -endpoint flag")
	}
	if c.EndpointURL == "" {
		return fmt.Errorf("serving endpoint URL is required: set endpoint_url, SERVING_ENDPOINT_URL, or the -endpoint-url flag")
	}
	return nil
}
