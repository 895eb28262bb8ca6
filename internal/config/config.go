// Package config resolves settings from defaults, a YAML file and
// HOSTTODO_* environment variables. Flags are layered on top by the cli
// package.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "hosttodo"
	configFile = "config.yaml"
	envPrefix  = "HOSTTODO"
)

type Config struct {
	Endpoint  string        `yaml:"endpoint" envconfig:"ENDPOINT"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Theme     string        `yaml:"theme" envconfig:"THEME"`
	LogLevel  string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogOutput string        `yaml:"log_output,omitempty" envconfig:"LOG_OUTPUT"`
	CachePath string        `yaml:"cache_path,omitempty" envconfig:"CACHE_PATH"`
	NoColor   bool          `yaml:"no_color" envconfig:"NO_COLOR"`
}

func Default() *Config {
	return &Config{
		Endpoint: "http://localhost:3000",
		Timeout:  10 * time.Second,
		Theme:    "classic",
		LogLevel: "warn",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/hosttodo/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, configFile), nil
}

// Load reads path (or the default location when empty) and applies the
// environment. A missing default file is not an error; a missing explicit
// one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
		path = p
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint %q: want an absolute http(s) URL", c.Endpoint)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch strings.ToLower(c.Theme) {
	case "classic", "neon", "mono":
	default:
		return fmt.Errorf("unknown theme %q (classic, neon, mono)", c.Theme)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
