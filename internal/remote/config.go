// Package remote talks to the sync authority over HTTP. It provides the
// client used by the sync engine, an in-memory authority, and an HTTP
// handler that serves an authority for local development and tests.
package remote

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the remote endpoint and credentials. Sync is configured
// only when both URL and Key are set.
type Config struct {
	URL     string        `env:"CLING_REMOTE_URL"`
	Key     string        `env:"CLING_REMOTE_KEY"`
	Timeout time.Duration `env:"CLING_REMOTE_TIMEOUT" env-default:"15s"`
	Retries uint64        `env:"CLING_REMOTE_RETRIES" env-default:"3"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading remote config: %w", err)
	}
	return cfg, nil
}

// Configured reports whether both the URL and the key are present.
func (c Config) Configured() bool { return c.URL != "" && c.Key != "" }
