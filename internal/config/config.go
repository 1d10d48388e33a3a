package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultLogLevel       = "info"

	// Secret store kinds.
	SecretStoreNone   = ""
	SecretStoreMemory = "memory"
	SecretStoreVault  = "vault"
	SecretStoreSQLite = "sqlite"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `validate:"required"`
	ShutdownGracePeriod  time.Duration `validate:"gte=0"`
	ReadHeaderTimeout    time.Duration `validate:"gte=0"`
	WriteTimeout         time.Duration `validate:"gte=0"`
	IdleTimeout          time.Duration `validate:"gte=0"`
	EnableRequestLogging bool
	RateLimitRPS         float64 `validate:"gte=0"`
	RateLimitBurst       int     `validate:"gte=0"`
	LogLevel             string  `validate:"oneof=debug info warn error"`

	Roots        []string        `validate:"min=1,dive,required"`
	Overlays     []OverlayConfig `validate:"dive"`
	AlwaysReload bool
	Preload      bool
	Freeze       bool
	SecretStore  SecretStoreConfig
}

// OverlayConfig defines one overlay. Exactly one of Value, Env, Combine or
// Secret applies; an overlay with none of them searches the roots directly.
type OverlayConfig struct {
	Name    string   `yaml:"name" validate:"required"`
	Value   string   `yaml:"value"`
	Env     string   `yaml:"env"`
	Combine []string `yaml:"combine" validate:"omitempty,min=2,dive,required"`
	Secret  string   `yaml:"secret"`
}

// SecretStoreConfig selects and configures the backend for secret overlays.
type SecretStoreConfig struct {
	Kind           string        `yaml:"kind" validate:"omitempty,oneof=memory vault sqlite"`
	Address        string        `yaml:"address" validate:"required_if=Kind vault"`
	Token          string        `yaml:"token"`
	Namespace      string        `yaml:"namespace"`
	Path           string        `yaml:"path" validate:"required_if=Kind sqlite"`
	Timeout        time.Duration `yaml:"-" validate:"gte=0"`
	RetryMax       int           `yaml:"retry_max" validate:"gte=0"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int           `yaml:"rate_limit_burst" validate:"gte=0"`

	// Seed preloads a memory store, keyed by secret path.
	Seed map[string]map[string]any `yaml:"seed"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string           `yaml:"port"`
	ShutdownGracePeriod  string           `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string           `yaml:"read_header_timeout"`
	WriteTimeout         string           `yaml:"write_timeout"`
	IdleTimeout          string           `yaml:"idle_timeout"`
	EnableRequestLogging *bool            `yaml:"enable_request_logging"`
	RateLimit            *yamlRateLimit   `yaml:"rate_limit"`
	LogLevel             string           `yaml:"log_level"`
	Roots                []string         `yaml:"roots"`
	Overlays             []OverlayConfig  `yaml:"overlays"`
	AlwaysReload         *bool            `yaml:"always_reload"`
	Preload              *bool            `yaml:"preload"`
	Freeze               *bool            `yaml:"freeze"`
	SecretStore          *yamlSecretStore `yaml:"secret_store"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type yamlSecretStore struct {
	SecretStoreConfig `yaml:",inline"`
	Timeout           string `yaml:"timeout"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	Roots          []string
	Overlays       []string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	AlwaysReload   *bool
	Preload        *bool
	Freeze         *bool
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg, err := defaultConfig()
	if err != nil {
		return Config{}, err
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply environment: %w", err)
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() (Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("resolve working directory: %w", err)
	}
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogLevel:             defaultLogLevel,
		Roots:                []string{wd},
		SecretStore: SecretStoreConfig{
			Timeout:  10 * time.Second,
			RetryMax: 3,
		},
	}, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		raw    string
		target *time.Duration
		name   string
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod, "shutdown_grace_period"},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout, "read_header_timeout"},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout, "write_timeout"},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout, "idle_timeout"},
	}
	for _, d := range durations {
		if err := parseDurationInto(d.raw, d.target, d.name); err != nil {
			return err
		}
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit != nil {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(yamlCfg.LogLevel)
	}

	if len(yamlCfg.Roots) > 0 {
		cfg.Roots = yamlCfg.Roots
	}
	if len(yamlCfg.Overlays) > 0 {
		cfg.Overlays = yamlCfg.Overlays
	}

	setBool(&cfg.AlwaysReload, yamlCfg.AlwaysReload)
	setBool(&cfg.Preload, yamlCfg.Preload)
	setBool(&cfg.Freeze, yamlCfg.Freeze)

	if yamlCfg.SecretStore != nil {
		store := yamlCfg.SecretStore.SecretStoreConfig
		store.Timeout = cfg.SecretStore.Timeout
		if err := parseDurationInto(yamlCfg.SecretStore.Timeout, &store.Timeout, "secret_store.timeout"); err != nil {
			return err
		}
		for _, carry := range []struct{ yaml, env *string }{
			{&store.Kind, &cfg.SecretStore.Kind},
			{&store.Address, &cfg.SecretStore.Address},
			{&store.Token, &cfg.SecretStore.Token},
			{&store.Namespace, &cfg.SecretStore.Namespace},
		} {
			if *carry.yaml == "" {
				*carry.yaml = *carry.env
			}
		}
		cfg.SecretStore = store
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if roots := strings.TrimSpace(os.Getenv("STRATA_ROOTS")); roots != "" {
		cfg.Roots = parseList(roots)
	}

	if raw := strings.TrimSpace(os.Getenv("STRATA_OVERLAYS")); raw != "" {
		overlays, err := parseOverlays(parseList(raw))
		if err != nil {
			return fmt.Errorf("STRATA_OVERLAYS: %w", err)
		}
		cfg.Overlays = overlays
	}

	for name, target := range map[string]*bool{
		"STRATA_ALWAYS_RELOAD": &cfg.AlwaysReload,
		"STRATA_PRELOAD":       &cfg.Preload,
		"STRATA_FREEZE":        &cfg.Freeze,
	} {
		if raw := strings.TrimSpace(os.Getenv(name)); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*target = value
		}
	}

	if addr := strings.TrimSpace(os.Getenv("VAULT_ADDR")); addr != "" {
		cfg.SecretStore.Address = addr
		if cfg.SecretStore.Kind == SecretStoreNone {
			cfg.SecretStore.Kind = SecretStoreVault
		}
	}
	if token := strings.TrimSpace(os.Getenv("VAULT_TOKEN")); token != "" {
		cfg.SecretStore.Token = token
	}
	if ns := strings.TrimSpace(os.Getenv("VAULT_NAMESPACE")); ns != "" {
		cfg.SecretStore.Namespace = ns
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if len(overrides.Roots) > 0 {
		cfg.Roots = overrides.Roots
	}

	if len(overrides.Overlays) > 0 {
		overlays, err := parseOverlays(overrides.Overlays)
		if err != nil {
			return fmt.Errorf("parse overlays: %w", err)
		}
		cfg.Overlays = overlays
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(*overrides.LogLevel)
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	setBool(&cfg.AlwaysReload, overrides.AlwaysReload)
	setBool(&cfg.Preload, overrides.Preload)
	setBool(&cfg.Freeze, overrides.Freeze)

	return nil
}

// Validate checks struct constraints and overlay definitions.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	defined := make(map[string]struct{}, len(cfg.Overlays))
	for i, o := range cfg.Overlays {
		kinds := 0
		for _, set := range []bool{o.Value != "", o.Env != "", len(o.Combine) > 0, o.Secret != ""} {
			if set {
				kinds++
			}
		}
		if kinds > 1 {
			return fmt.Errorf("overlay %d (%s): value, env, combine and secret are mutually exclusive", i, o.Name)
		}
		for _, name := range o.Combine {
			if _, ok := defined[name]; !ok {
				return fmt.Errorf("overlay %d (%s): combines undefined overlay %q", i, o.Name, name)
			}
		}
		if o.Secret != "" && cfg.SecretStore.Kind == SecretStoreNone {
			return fmt.Errorf("overlay %d (%s): secret overlay requires a secret store", i, o.Name)
		}
		defined[o.Name] = struct{}{}
	}
	return nil
}

// parseOverlays parses "name=value" flag values into literal overlays. A
// value of the form "$VAR" reads the segment from the environment and
// "a+b" combines earlier overlays a and b.
func parseOverlays(raw []string) ([]OverlayConfig, error) {
	out := make([]OverlayConfig, 0, len(raw))
	for _, item := range raw {
		name, val, ok := strings.Cut(strings.TrimSpace(item), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid overlay %q, expected name=value", item)
		}
		val = strings.TrimSpace(val)

		o := OverlayConfig{Name: name}
		switch {
		case strings.HasPrefix(val, "$"):
			o.Env = strings.TrimPrefix(val, "$")
		case strings.Contains(val, "+"):
			o.Combine = parseListSep(val, "+")
		default:
			o.Value = val
		}
		out = append(out, o)
	}
	if len(out) == 0 {
		return nil, errors.New("no overlays provided")
	}
	return out, nil
}

func parseList(raw string) []string {
	return parseListSep(raw, ",")
}

func parseListSep(raw, sep string) []string {
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDurationInto(raw string, target *time.Duration, name string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*target = d
	return nil
}

func setBool(target *bool, v *bool) {
	if v != nil {
		*target = *v
	}
}
