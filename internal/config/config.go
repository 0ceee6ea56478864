package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	BackendDBus = "dbus"
	BackendSim  = "sim"

	StoreFile  = "file"
	StoreRedis = "redis"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "JACKPATCH_"
)

// Config is the runtime configuration of the patcher.
type Config struct {
	Backend      string        `yaml:"backend" mapstructure:"backend"`
	Store        string        `yaml:"store" mapstructure:"store"`
	ConnectDelay time.Duration `yaml:"connect_delay" mapstructure:"connect_delay"`
	DirtyDelay   time.Duration `yaml:"dirty_delay" mapstructure:"dirty_delay"`
	LogLevel     string        `yaml:"log_level" mapstructure:"log_level"`
	LogFormat    string        `yaml:"log_format" mapstructure:"log_format"`
	Listen       string        `yaml:"listen" mapstructure:"listen"`
	Project      string        `yaml:"project" mapstructure:"project"`
	Redis        RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the Redis patch store.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:      BackendDBus,
		Store:        StoreFile,
		ConnectDelay: 200 * time.Millisecond,
		DirtyDelay:   500 * time.Millisecond,
		LogLevel:     "info",
		LogFormat:    "text",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "jackpatch:patch:",
		},
	}
}

// Load reads a YAML configuration file over the defaults, then applies
// environment overrides. A missing file is treated as "no file".
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			var raw map[string]any
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			if err := decode(raw, &cfg, true); err != nil {
				return cfg, fmt.Errorf("invalid config %s: %w", path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.Environ()); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from JACKPATCH_* entries of environ ("KEY=value").
// Nested keys use an underscore after the section name, e.g. JACKPATCH_REDIS_ADDR.
// Variables that name no field are ignored; only the file is checked strictly.
func (c *Config) ApplyEnv(environ []string) error {
	raw := map[string]any{}
	redis := map[string]any{}

	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if sub, found := strings.CutPrefix(name, "redis_"); found {
			redis[sub] = val
			continue
		}
		raw[name] = val
	}
	if len(redis) > 0 {
		raw["redis"] = redis
	}
	if len(raw) == 0 {
		return nil
	}
	if err := decode(raw, c, false); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

// Validate rejects configurations the patcher cannot run with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendDBus, BackendSim:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Store {
	case StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.ConnectDelay <= 0 {
		return fmt.Errorf("connect_delay must be positive, got %s", c.ConnectDelay)
	}
	if c.DirtyDelay <= 0 {
		return fmt.Errorf("dirty_delay must be positive, got %s", c.DirtyDelay)
	}
	return nil
}

// decode maps raw onto out. With strict set, keys naming no field are an error.
func decode(raw map[string]any, out *Config, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
