package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	osSignal "os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/strata/internal/application"
	"github.com/eugenenazirov/strata/internal/config"
	"github.com/eugenenazirov/strata/internal/secrets"
)

func TestRunServeStopsServerAndClosesSecretStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "secrets.db")
	seed, err := secrets.OpenSQLStore(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLStore returned error: %v", err)
	}
	for path, data := range map[string]map[string]any{
		"kv/db":    {"password": "hunter2"},
		"kv/cache": {"password": "swordfish"},
	} {
		if err := seed.Put(path, data); err != nil {
			t.Fatalf("Put %s returned error: %v", path, err)
		}
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	cfg := config.Config{
		Port:                "127.0.0.1:0",
		ShutdownGracePeriod: time.Second,
		LogLevel:            "info",
		Roots:               []string{t.TempDir()},
		Overlays:            []config.OverlayConfig{{Name: "vault", Secret: "kv"}},
		SecretStore: config.SecretStoreConfig{
			Kind: config.SecretStoreSQLite,
			Path: dbPath,
		},
	}

	apps := make(chan *application.App, 1)
	signals := make(chan chan<- os.Signal, 1)
	t.Cleanup(func() {
		newApp = application.New
		signalNotify = osSignal.Notify
	})
	newApp = func(cfg config.Config, logger *zap.Logger) (*application.App, error) {
		app, err := application.New(cfg, logger)
		if err == nil {
			apps <- app
		}
		return app, err
	}
	signalNotify = func(ch chan<- os.Signal, _ ...os.Signal) {
		signals <- ch
	}

	done := make(chan error, 1)
	go func() {
		done <- runServe(cfg, zap.NewNop())
	}()

	var app *application.App
	select {
	case app = <-apps:
	case err := <-done:
		t.Fatalf("runServe returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("application was not created")
	}

	var quit chan<- os.Signal
	select {
	case quit = <-signals:
	case <-time.After(5 * time.Second):
		t.Fatalf("runServe never waited for a signal")
	}

	rec := httptest.NewRecorder()
	app.Server().Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config/db?path=password", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "hunter2") {
		t.Fatalf("expected secret while serving, got %d: %s", rec.Code, rec.Body.String())
	}

	quit <- syscall.SIGTERM

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServe returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runServe did not return after SIGTERM")
	}

	if err := app.Server().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("expected server to be shut down, got %v", err)
	}

	rec = httptest.NewRecorder()
	app.Server().Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config/cache", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected closed secret store to fail reads, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRunServeReportsInitFailure(t *testing.T) {
	t.Cleanup(func() { newApp = application.New })
	newApp = func(config.Config, *zap.Logger) (*application.App, error) {
		return nil, errors.New("no roots")
	}

	err := runServe(config.Config{}, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "initialize application") {
		t.Fatalf("expected wrapped init error, got %v", err)
	}
}

func TestShutdownOnInterruptWithZeroGracePeriod(t *testing.T) {
	t.Cleanup(func() { signalNotify = osSignal.Notify })
	signalNotify = func(ch chan<- os.Signal, _ ...os.Signal) {
		go func() { ch <- syscall.SIGINT }()
	}

	server := &http.Server{}
	closed := make(chan struct{}, 1)
	server.RegisterOnShutdown(func() { closed <- struct{}{} })

	shutdown(server, 0, zap.NewNop())

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("expected shutdown hooks to run")
	}
}
