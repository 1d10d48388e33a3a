package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/strata/internal/application"
	"github.com/eugenenazirov/strata/internal/config"
	"github.com/eugenenazirov/strata/internal/logging"
	"github.com/eugenenazirov/strata/internal/value"
)

var (
	signalNotify = signal.Notify
	newApp       = application.New
)

type cli struct {
	app *kingpin.Application

	configFile   *string
	port         *string
	roots        *[]string
	overlays     *[]string
	logLevel     *string
	rateLimitRPS *float64
	rateBurst    *int

	alwaysReload, alwaysReloadSet bool
	preload, preloadSet           bool
	freeze, freezeSet             bool

	serve *kingpin.CmdClause

	get       *kingpin.CmdClause
	getKey    *string
	getPath   *string
	getOutput *string

	keys *kingpin.CmdClause
}

func newCLI() *cli {
	c := &cli{app: kingpin.New("strata", "Layered configuration overlays - resolve keys across roots, overlays and secret stores")}

	c.configFile = c.app.Flag("config", "Path to YAML configuration file").String()
	c.port = c.app.Flag("port", "HTTP port exposed by the service").String()
	c.roots = c.app.Flag("root", "Search root, highest precedence first (repeatable)").Strings()
	c.overlays = c.app.Flag("overlay", "Overlay as name=dir, name=$ENV or name=a+b (repeatable, stacked in order)").Strings()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	c.rateLimitRPS = c.app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateBurst = c.app.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	c.app.Flag("always-reload", "Re-read sources on every lookup").IsSetByUser(&c.alwaysReloadSet).BoolVar(&c.alwaysReload)
	c.app.Flag("preload", "Load every key at startup").IsSetByUser(&c.preloadSet).BoolVar(&c.preload)
	c.app.Flag("freeze", "Make resolved values immutable").IsSetByUser(&c.freezeSet).BoolVar(&c.freeze)

	c.serve = c.app.Command("serve", "Serve resolved configuration over HTTP").Default()

	c.get = c.app.Command("get", "Print the resolved value of a key")
	c.getKey = c.get.Arg("key", "Configuration key (file base name)").Required().String()
	c.getPath = c.get.Flag("path", "Dotted path inside the value, e.g. database.host").String()
	c.getOutput = c.get.Flag("output", "Output format").Short('o').Default("yaml").Enum("json", "yaml")

	c.keys = c.app.Command("keys", "List every key available across the overlay stack")

	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
		Roots:      *c.roots,
		Overlays:   *c.overlays,
	}

	if *c.port != "" {
		overrides.Port = c.port
	}
	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}
	if *c.rateLimitRPS >= 0 {
		overrides.RateLimitRPS = c.rateLimitRPS
	}
	if *c.rateBurst >= 0 {
		overrides.RateLimitBurst = c.rateBurst
	}
	if c.alwaysReloadSet {
		overrides.AlwaysReload = &c.alwaysReload
	}
	if c.preloadSet {
		overrides.Preload = &c.preload
	}
	if c.freezeSet {
		overrides.Freeze = &c.freeze
	}

	return overrides
}

func main() {
	c := newCLI()
	command := kingpin.MustParse(c.app.Parse(os.Args[1:]))

	cfg, err := config.Load(c.overrides())
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.get.FullCommand():
		err = runGet(cfg, logger, *c.getKey, *c.getPath, *c.getOutput, os.Stdout)
	case c.keys.FullCommand():
		err = runKeys(cfg, logger, os.Stdout)
	default:
		err = runServe(cfg, logger)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}
}

func runServe(cfg config.Config, logger *zap.Logger) error {
	app, err := newApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("closing secret store failed", zap.Error(err))
		}
	}()

	if err := app.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return nil
}

func runGet(cfg config.Config, logger *zap.Logger, key, path, format string, w io.Writer) error {
	resolver, err := application.NewResolver(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = resolver.Close() }()

	v, err := resolver.Finder.Load(key)
	if err != nil {
		return err
	}

	found, ok := value.Lookup(v, path)
	if !ok {
		return fmt.Errorf("no value at %s.%s", key, path)
	}

	return writeValue(w, found, format)
}

func runKeys(cfg config.Config, logger *zap.Logger, w io.Writer) error {
	resolver, err := application.NewResolver(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = resolver.Close() }()

	keys, err := resolver.Finder.AllKeyNames()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := fmt.Fprintln(w, key); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(w io.Writer, v any, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
