// Package config loads the tentor server configuration from a YAML file
// with TENTOR_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (TENTOR_*). Nested keys use underscores,
// e.g. TENTOR_LOGGING_LEVEL -> logging.level.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("TENTOR_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "TENTOR_"))
		// Section prefixes become nested keys; everything else stays flat.
		for _, section := range []string{"logging", "chat"} {
			if strings.HasPrefix(s, section+"_") {
				return section + "." + strings.TrimPrefix(s, section+"_")
			}
		}
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validBackends is the set of recognized blob cache backends.
var validBackends = map[CacheBackend]bool{
	CacheSQLite: true,
	CacheRedis:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in (0, 65535], got %d", c.Port)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.CacheBackend != "" && !validBackends[c.CacheBackend] {
		return fmt.Errorf("invalid cache_backend %q: must be one of sqlite, redis", c.CacheBackend)
	}

	if c.CacheBackend == CacheRedis && c.RedisURL == "" {
		return fmt.Errorf("redis_url is required when cache_backend is redis")
	}

	if c.Chat.MaxTokens < 0 {
		return fmt.Errorf("chat.max_tokens must be non-negative")
	}

	return nil
}
