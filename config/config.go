package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and the file exists.
const DefaultFile = "kanban.yaml"

// Config holds every runtime setting of the board service and CLI.
type Config struct {
	TaskAPIURL     string        `yaml:"task_api_url"`
	ListenAddr     string        `yaml:"listen_addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	StatusFormat   string        `yaml:"status_format"`
	RedisURL       string        `yaml:"redis_url"`
	UpdatesChannel string        `yaml:"updates_channel"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		TaskAPIURL:     "http://localhost:8080",
		ListenAddr:     ":3000",
		StatusFormat:   "label",
		UpdatesChannel: "board-updates",
		IdempotencyTTL: 10 * time.Minute,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load applies the YAML file at path (or DefaultFile when path is empty and
// the file exists) over the defaults, then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TASK_API_URL", &cfg.TaskAPIURL)
	str("LISTEN_ADDR", &cfg.ListenAddr)
	str("STATUS_FORMAT", &cfg.StatusFormat)
	str("REDIS_CONNECTION_STRING", &cfg.RedisURL)
	str("UPDATES_CHANNEL", &cfg.UpdatesChannel)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}
	if err := dur("REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := dur("IDEMPOTENCY_TTL", &cfg.IdempotencyTTL); err != nil {
		return err
	}
	if v, ok := lookup("DEBUG"); ok {
		if dbg, err := strconv.ParseBool(v); err == nil && dbg {
			cfg.LogLevel = "debug"
		}
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TaskAPIURL) == "" {
		return errors.New("task_api_url is required")
	}
	if c.RequestTimeout < 0 {
		return errors.New("request_timeout must not be negative")
	}
	switch c.StatusFormat {
	case "label", "code":
	default:
		return fmt.Errorf("invalid status_format %q: want label or code", c.StatusFormat)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: want text or json", c.LogFormat)
	}
	if c.RedisURL != "" && c.UpdatesChannel == "" {
		return errors.New("updates_channel is required when redis_url is set")
	}
	if c.RedisURL != "" && c.IdempotencyTTL <= 0 {
		return errors.New("idempotency_ttl must be positive when redis_url is set")
	}
	return nil
}
