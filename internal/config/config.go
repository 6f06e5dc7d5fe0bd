package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"grantline/internal/calendar"
)

// Config models grantline.yml.
type Config struct {
	Institution struct {
		Name     string `yaml:"name"`
		Timezone string `yaml:"timezone"`
	} `yaml:"institution"`
	// Holidays are added to the built-in office calendar, typically to cover
	// years the built-in table does not reach.
	Holidays []string  `yaml:"holidays"`
	Log      LogConfig `yaml:"log"`
	Server   struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Sync SyncConfig `yaml:"sync"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SyncConfig struct {
	Lock      string        `yaml:"lock"`
	RedisAddr string        `yaml:"redis_addr"`
	LockKey   string        `yaml:"lock_key"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

const (
	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with grantline config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Institution.Timezone != "" {
		if _, err := time.LoadLocation(c.Institution.Timezone); err != nil {
			return fmt.Errorf("config.institution.timezone: %w", err)
		}
	}
	for _, d := range c.Holidays {
		if _, err := calendar.ParseDate(d); err != nil {
			return fmt.Errorf("config.holidays: %w", err)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config.log.format must be json or console")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	switch c.Sync.Lock {
	case LockNone, LockLocal:
	case LockRedis:
		if c.Sync.RedisAddr == "" {
			return fmt.Errorf("config.sync.redis_addr is required when sync.lock is redis")
		}
	default:
		return fmt.Errorf("config.sync.lock must be none, local or redis")
	}
	if c.Sync.LockTTL < 0 {
		return fmt.Errorf("config.sync.lock_ttl must not be negative")
	}
	return nil
}

// Location returns the institution time zone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	if c == nil || c.Institution.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Institution.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Calendar returns the built-in holiday calendar extended with configured days.
func (c *Config) Calendar() (*calendar.Calendar, error) {
	if c == nil || len(c.Holidays) == 0 {
		return calendar.Default(), nil
	}
	return calendar.Default().With(c.Holidays...)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "grantline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(institution string) string {
	return fmt.Sprintf(defaultTemplate, institution)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(GenerateDefault("Research Office")), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep
// their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `institution:
  name: %q
  timezone: ""

# Extra office closures, ISO dates. The built-in calendar covers 2024-2026.
holidays: []

log:
  level: info
  format: console

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  jwt_secret: ""

sync:
  lock: local
  redis_addr: ""
  lock_key: grantline:sync
  lock_ttl: 30s
`
