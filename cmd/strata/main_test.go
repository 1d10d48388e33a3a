package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/strata/internal/config"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "database.yml"), "host: localhost\nport: 5432\nreplicas:\n  - a\n  - b\n")
	writeFile(t, filepath.Join(root, "production", "database.yml"), "host: db.internal\n")
	writeFile(t, filepath.Join(root, "feature.json"), `{"enabled": true}`)

	return config.Config{
		Port:     "0",
		LogLevel: "info",
		Roots:    []string{root},
		Overlays: []config.OverlayConfig{{Name: "environment", Value: "production"}},
	}
}

func TestCLIParsesCommandsAndOverrides(t *testing.T) {
	c := newCLI()
	command, err := c.app.Parse([]string{
		"--root", "/etc/app", "--root", "/srv/app",
		"--overlay", "environment=$APP_ENV",
		"--freeze", "--port", "9000",
		"get", "database", "--path", "host", "-o", "json",
	})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if command != "get" {
		t.Fatalf("expected get command, got %q", command)
	}
	if *c.getKey != "database" || *c.getPath != "host" || *c.getOutput != "json" {
		t.Fatalf("unexpected get arguments %q %q %q", *c.getKey, *c.getPath, *c.getOutput)
	}

	o := c.overrides()
	if len(o.Roots) != 2 || len(o.Overlays) != 1 {
		t.Fatalf("unexpected roots/overlays %v %v", o.Roots, o.Overlays)
	}
	if o.Port == nil || *o.Port != "9000" {
		t.Fatalf("expected port override")
	}
	if o.Freeze == nil || !*o.Freeze {
		t.Fatalf("expected freeze override")
	}
	if o.Preload != nil || o.AlwaysReload != nil {
		t.Fatalf("expected unset flags to stay nil")
	}
	if o.RateLimitRPS != nil || o.RateLimitBurst != nil {
		t.Fatalf("expected rate limit defaults to stay unset")
	}
}

func TestCLIDefaultsToServe(t *testing.T) {
	c := newCLI()
	command, err := c.app.Parse(nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if command != "serve" {
		t.Fatalf("expected serve command, got %q", command)
	}
}

func TestRunGet(t *testing.T) {
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name   string
		path   string
		format string
		want   string
	}{
		{"yaml document", "", "yaml", "host: db.internal\nport: 5432\nreplicas:\n  - a\n  - b\n"},
		{"json scalar", "host", "json", "\"db.internal\"\n"},
		{"list index", "replicas.1", "yaml", "b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runGet(cfg, logger, "database", tt.path, tt.format, &out); err != nil {
				t.Fatalf("runGet returned error: %v", err)
			}
			if out.String() != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, out.String())
			}
		})
	}

	var out bytes.Buffer
	if err := runGet(cfg, logger, "database", "user", "yaml", &out); err == nil {
		t.Fatalf("expected error for missing path")
	}
	if err := runGet(cfg, logger, "missing", "", "yaml", &out); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestRunKeys(t *testing.T) {
	var out bytes.Buffer
	if err := runKeys(testConfig(t), zaptest.NewLogger(t), &out); err != nil {
		t.Fatalf("runKeys returned error: %v", err)
	}
	lines := strings.Fields(out.String())
	if strings.Join(lines, ",") != "database,feature" {
		t.Fatalf("unexpected keys %v", lines)
	}
}
