package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the optional settings read from
// ~/.config/updcheck/config.toml. Every field has a usable default, so the
// file may be absent entirely.
type Config struct {
	GithubToken     string      `toml:"github_token"`
	GitlabToken     string      `toml:"gitlab_token"`
	RepologyRepo    string      `toml:"repology_repo"`
	CourtesyDelayMS int         `toml:"courtesy_delay_ms"`
	Cache           CacheConfig `toml:"cache"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	// Backend is "file" (default), "redis", or "none".
	Backend string `toml:"backend"`

	// RedisAddr is the host:port of the Redis instance for the redis backend.
	RedisAddr string `toml:"redis_addr"`

	// TTLHours is how long forge responses stay cached. Default 24.
	TTLHours int `toml:"ttl_hours"`
}

// loadConfig reads the config file if present and applies defaults.
// A missing file is not an error; a malformed one is.
func loadConfig() (*Config, error) {
	cfg := &Config{}

	dir, err := configDir()
	if err == nil {
		path := filepath.Join(dir, "config.toml")
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if cfg.RepologyRepo == "" {
		cfg.RepologyRepo = "termux"
	}
	if cfg.Cache.TTLHours <= 0 {
		cfg.Cache.TTLHours = 24
	}
	return cfg, nil
}

// GitHubToken returns the GitHub API token, with the GITHUB_TOKEN
// environment variable taking precedence over the config file.
func (c *Config) GitHubToken() string {
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}
	return c.GithubToken
}

// GitLabToken returns the GitLab API token, with the GITLAB_TOKEN
// environment variable taking precedence over the config file.
func (c *Config) GitLabToken() string {
	if tok := os.Getenv("GITLAB_TOKEN"); tok != "" {
		return tok
	}
	return c.GitlabToken
}

// CacheTTL returns the configured response cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// CourtesyDelay returns the configured delay before registry queries,
// or zero to use the resolver's default.
func (c *Config) CourtesyDelay() time.Duration {
	return time.Duration(c.CourtesyDelayMS) * time.Millisecond
}
