package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnvVar names an environment variable holding the config file path.
const ConfigEnvVar = "TECHTREE_CONFIG"

const (
	minTickInterval = 10 * time.Millisecond
	minPushInterval = 50 * time.Millisecond
)

// Config is the fully resolved server configuration.
type Config struct {
	Addr                string
	TickInterval        time.Duration
	PushInterval        time.Duration
	ScenarioDir         string
	DefaultScenario     string
	ValidationCacheSize int
	LogLevel            string
	AllowedOrigins      []string
	HistoryWindow       int
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Addr:                ":8080",
		TickInterval:        100 * time.Millisecond,
		PushInterval:        250 * time.Millisecond,
		DefaultScenario:     "singularity",
		ValidationCacheSize: 128,
		LogLevel:            "info",
		HistoryWindow:       120,
	}
}

type fileConfig struct {
	Addr                *string        `yaml:"addr"`
	TickInterval        *time.Duration `yaml:"tickInterval"`
	PushInterval        *time.Duration `yaml:"pushInterval"`
	ScenarioDir         *string        `yaml:"scenarioDir"`
	DefaultScenario     *string        `yaml:"defaultScenario"`
	ValidationCacheSize *int           `yaml:"validationCacheSize"`
	LogLevel            *string        `yaml:"logLevel"`
	AllowedOrigins      []string       `yaml:"allowedOrigins"`
	HistoryWindow       *int           `yaml:"historyWindow"`
}

// Overrides represents optional command-line overrides. Nil fields keep the
// value from the config file or the defaults.
type Overrides struct {
	Addr                *string
	TickInterval        *time.Duration
	PushInterval        *time.Duration
	ScenarioDir         *string
	DefaultScenario     *string
	ValidationCacheSize *int
	LogLevel            *string
	AllowedOrigins      []string
	HistoryWindow       *int
}

func (o Overrides) apply(base Config) Config {
	if o.Addr != nil {
		base.Addr = *o.Addr
	}
	if o.TickInterval != nil {
		base.TickInterval = *o.TickInterval
	}
	if o.PushInterval != nil {
		base.PushInterval = *o.PushInterval
	}
	if o.ScenarioDir != nil {
		base.ScenarioDir = *o.ScenarioDir
	}
	if o.DefaultScenario != nil {
		base.DefaultScenario = *o.DefaultScenario
	}
	if o.ValidationCacheSize != nil {
		base.ValidationCacheSize = *o.ValidationCacheSize
	}
	if o.LogLevel != nil {
		base.LogLevel = *o.LogLevel
	}
	if o.AllowedOrigins != nil {
		base.AllowedOrigins = o.AllowedOrigins
	}
	if o.HistoryWindow != nil {
		base.HistoryWindow = *o.HistoryWindow
	}
	return sanitizeConfig(base)
}

func mergeFileConfig(base Config, cfg *fileConfig) Config {
	if cfg == nil {
		return base
	}
	return Overrides{
		Addr:                cfg.Addr,
		TickInterval:        cfg.TickInterval,
		PushInterval:        cfg.PushInterval,
		ScenarioDir:         cfg.ScenarioDir,
		DefaultScenario:     cfg.DefaultScenario,
		ValidationCacheSize: cfg.ValidationCacheSize,
		LogLevel:            cfg.LogLevel,
		AllowedOrigins:      cfg.AllowedOrigins,
		HistoryWindow:       cfg.HistoryWindow,
	}.apply(base)
}

// sanitizeConfig clamps values that would stall or flood the server.
func sanitizeConfig(c Config) Config {
	if c.TickInterval < minTickInterval {
		c.TickInterval = minTickInterval
	}
	if c.PushInterval < minPushInterval {
		c.PushInterval = minPushInterval
	}
	if c.ValidationCacheSize <= 0 {
		c.ValidationCacheSize = DefaultConfig().ValidationCacheSize
	}
	if c.HistoryWindow < 0 {
		c.HistoryWindow = 0
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultConfig().LogLevel
	}
	return c
}

// LoadConfig merges a YAML (or JSON) config file over base. A missing file
// is not an error.
func LoadConfig(path string, base Config) (Config, error) {
	if path == "" {
		return sanitizeConfig(base), nil
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return sanitizeConfig(base), nil
		}
		return sanitizeConfig(base), fmt.Errorf("read config %q: %w", cleanPath, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return sanitizeConfig(base), fmt.Errorf("parse config %q: %w", cleanPath, err)
	}
	return mergeFileConfig(base, &cfg), nil
}

// ConfigPathFromEnv returns the path named by ConfigEnvVar, or fallback.
func ConfigPathFromEnv(fallback string) string {
	if v := strings.TrimSpace(os.Getenv(ConfigEnvVar)); v != "" {
		return v
	}
	return fallback
}

// ParseOrigins splits a comma-separated origin list.
func ParseOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func parseIntQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
