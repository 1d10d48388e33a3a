package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOG_LEVEL",
		"STRATA_ROOTS", "STRATA_OVERLAYS", "STRATA_ALWAYS_RELOAD", "STRATA_PRELOAD", "STRATA_FREEZE",
		"VAULT_ADDR", "VAULT_TOKEN", "VAULT_NAMESPACE",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strata.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	wd, _ := os.Getwd()
	if len(cfg.Roots) != 1 || cfg.Roots[0] != wd {
		t.Fatalf("expected working directory root, got %v", cfg.Roots)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
	if cfg.SecretStore.Kind != SecretStoreNone {
		t.Fatalf("expected no secret store, got %q", cfg.SecretStore.Kind)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STRATA_ROOTS", "/etc/app, /srv/app ")
	t.Setenv("STRATA_OVERLAYS", "env=$APP_ENV,region=eu,both=env+region")
	t.Setenv("STRATA_FREEZE", "true")
	t.Setenv("VAULT_ADDR", "http://127.0.0.1:8200")
	t.Setenv("VAULT_TOKEN", "root")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if got := strings.Join(cfg.Roots, "|"); got != "/etc/app|/srv/app" {
		t.Fatalf("unexpected roots %q", got)
	}
	if len(cfg.Overlays) != 3 {
		t.Fatalf("expected 3 overlays, got %+v", cfg.Overlays)
	}
	if cfg.Overlays[0].Env != "APP_ENV" || cfg.Overlays[1].Value != "eu" || len(cfg.Overlays[2].Combine) != 2 {
		t.Fatalf("unexpected overlays %+v", cfg.Overlays)
	}
	if !cfg.Freeze {
		t.Fatalf("expected freeze enabled")
	}
	if cfg.SecretStore.Kind != SecretStoreVault || cfg.SecretStore.Token != "root" {
		t.Fatalf("unexpected secret store %+v", cfg.SecretStore)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("LOG_LEVEL", "warn")

	path := writeConfig(t, `
port: "7500"
read_header_timeout: 2s
rate_limit:
  rps: 5
  burst: 10
roots: [/opt/config]
overlays:
  - name: env
    value: production
  - name: secrets
    secret: secret/app
preload: true
secret_store:
  kind: sqlite
  path: /tmp/secrets.db
  timeout: 3s
`)

	port := "8500"
	freeze := true
	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port, Freeze: &freeze})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "8500" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected env log level to survive, got %s", cfg.LogLevel)
	}
	if cfg.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("unexpected read header timeout %s", cfg.ReadHeaderTimeout)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 10 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if len(cfg.Roots) != 1 || cfg.Roots[0] != "/opt/config" {
		t.Fatalf("unexpected roots %v", cfg.Roots)
	}
	if len(cfg.Overlays) != 2 || cfg.Overlays[1].Secret != "secret/app" {
		t.Fatalf("unexpected overlays %+v", cfg.Overlays)
	}
	if !cfg.Preload || !cfg.Freeze {
		t.Fatalf("expected preload and freeze, got %v/%v", cfg.Preload, cfg.Freeze)
	}
	if cfg.SecretStore.Kind != SecretStoreSQLite || cfg.SecretStore.Timeout != 3*time.Second {
		t.Fatalf("unexpected secret store %+v", cfg.SecretStore)
	}
}

func TestLoadCLIOverlays(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(&CLIOverrides{
		Roots:    []string{"/a", "/b"},
		Overlays: []string{"stage=qa", "host=$HOSTNAME"},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Roots) != 2 {
		t.Fatalf("unexpected roots %v", cfg.Roots)
	}
	if cfg.Overlays[0].Name != "stage" || cfg.Overlays[0].Value != "qa" {
		t.Fatalf("unexpected first overlay %+v", cfg.Overlays[0])
	}
	if cfg.Overlays[1].Env != "HOSTNAME" {
		t.Fatalf("unexpected second overlay %+v", cfg.Overlays[1])
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad duration", "idle_timeout: soon\n", "idle_timeout"},
		{"bad log level", "log_level: loud\n", "validation failed"},
		{"exclusive overlay kinds", "overlays:\n  - name: x\n    value: a\n    env: B\n", "mutually exclusive"},
		{"undefined combine", "overlays:\n  - name: x\n    combine: [a, b]\n", "undefined overlay"},
		{"secret without store", "overlays:\n  - name: s\n    secret: kv/app\n", "requires a secret store"},
		{"vault without address", "secret_store:\n  kind: vault\n", "validation failed"},
		{"malformed yaml", "port: [\n", "parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, tt.yaml)
			_, err := Load(&CLIOverrides{ConfigFile: path})
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseOverlays(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := parseOverlays([]string{" a = one ", "b=$B", "c=a+b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 || got[0].Value != "one" || got[1].Env != "B" || strings.Join(got[2].Combine, ",") != "a,b" {
			t.Fatalf("unexpected overlays: %+v", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := parseOverlays([]string{"novalue"}); err == nil {
			t.Fatalf("expected error for missing separator")
		}
		if _, err := parseOverlays([]string{"=x"}); err == nil {
			t.Fatalf("expected error for empty name")
		}
		if _, err := parseOverlays(nil); err == nil {
			t.Fatalf("expected error for empty list")
		}
	})
}

func TestValidateCombinesCombinedOverlayByName(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
overlays:
  - name: environment
    value: production
  - name: region
    env: REGION
  - name: envregion
    combine: [environment, region]
  - name: tier
    value: gold
  - name: full
    combine: [envregion, tier]
`)
	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Overlays[4].Combine; strings.Join(got, ",") != "envregion,tier" {
		t.Fatalf("unexpected combine list %v", got)
	}

	cfg.Overlays[4].Combine = []string{"environment_region", "tier"}
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "undefined overlay") {
		t.Fatalf("expected derived name to be unknown, got %v", err)
	}
}

func TestLoadYAMLSecretStoreKeepsEnvironmentVault(t *testing.T) {
	clearEnv(t)
	t.Setenv("VAULT_ADDR", "http://vault.internal:8200")
	t.Setenv("VAULT_TOKEN", "s.env")
	t.Setenv("VAULT_NAMESPACE", "team")

	path := writeConfig(t, `
secret_store:
  retry_max: 5
  rate_limit_rps: 2
`)
	cfg, err := Load(&CLIOverrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	store := cfg.SecretStore
	if store.Kind != SecretStoreVault {
		t.Fatalf("expected vault kind inferred from VAULT_ADDR to survive, got %q", store.Kind)
	}
	if store.Address != "http://vault.internal:8200" || store.Token != "s.env" || store.Namespace != "team" {
		t.Fatalf("expected environment settings to survive, got %+v", store)
	}
	if store.RetryMax != 5 || store.RateLimitRPS != 2 {
		t.Fatalf("expected YAML settings to apply, got %+v", store)
	}
}
