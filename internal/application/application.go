package application

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/strata/internal/api"
	"github.com/eugenenazirov/strata/internal/config"
	"github.com/eugenenazirov/strata/internal/finder"
	"github.com/eugenenazirov/strata/internal/secrets"
	"github.com/eugenenazirov/strata/internal/stack"
	"github.com/eugenenazirov/strata/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	configuration *stack.Configuration
	finder        *finder.Finder
	cache         *storage.Cache
	closer        io.Closer
	handler       *api.Handler
	router        http.Handler
	logger        *zap.Logger
	server        *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	resolver, err := NewResolver(cfg, logger)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(resolver.Cache)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		configuration: resolver.Configuration,
		finder:        resolver.Finder,
		cache:         resolver.Cache,
		closer:        resolver.closer,
		handler:       handler,
		router:        apiRouter,
		logger:        logger,
		server:        NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// Resolver bundles the overlay stack with the finder and cache built on it.
type Resolver struct {
	Configuration *stack.Configuration
	Finder        *finder.Finder
	Cache         *storage.Cache

	closer io.Closer
}

// NewResolver builds the overlay stack described by cfg and the finder and
// cache serving it. With cfg.Preload every key is loaded before returning.
func NewResolver(cfg config.Config, logger *zap.Logger) (*Resolver, error) {
	store, closer, err := OpenSecretStore(cfg.SecretStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}

	conf, err := BuildConfiguration(cfg, store)
	if err != nil {
		closeQuietly(closer)
		return nil, fmt.Errorf("failed to build overlay stack: %w", err)
	}

	f, err := finder.New(conf)
	if err != nil {
		closeQuietly(closer)
		return nil, fmt.Errorf("failed to preload configuration: %w", err)
	}

	overlays := make([]string, 0, len(conf.Overlays()))
	for _, o := range conf.Overlays() {
		overlays = append(overlays, o.Name())
	}
	logger.Info("overlay stack ready",
		zap.Strings("roots", conf.Roots()),
		zap.Strings("overlays", overlays),
		zap.Bool("always_reload", conf.AlwaysReload),
		zap.Bool("freeze", conf.Freeze),
		zap.String("secret_store", cfg.SecretStore.Kind),
	)

	return &Resolver{
		Configuration: conf,
		Finder:        f,
		Cache:         storage.NewCache(f, storage.NewMemoryStorage(), conf.AlwaysReload),
		closer:        closer,
	}, nil
}

// Close releases the secret store, if it holds resources.
func (r *Resolver) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// BuildConfiguration assembles the overlay stack. Roots are listed from
// highest to lowest precedence; overlays are stacked in declaration order
// on top of them. store backs secret overlays and may be nil when none are
// declared.
func BuildConfiguration(cfg config.Config, store secrets.Store) (*stack.Configuration, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("at least one root is required")
	}

	conf := stack.New(stack.WithRoot(cfg.Roots[0]))
	for _, root := range cfg.Roots[1:] {
		conf.AddRoot(root)
	}
	conf.AlwaysReload = cfg.AlwaysReload
	conf.Preload = cfg.Preload
	conf.Freeze = cfg.Freeze

	for _, o := range cfg.Overlays {
		switch {
		case len(o.Combine) > 0:
			if _, err := conf.DefineNamedCombinedOverlay(o.Name, o.Combine...); err != nil {
				return nil, fmt.Errorf("overlay %s: %w", o.Name, err)
			}
		case o.Secret != "":
			if store == nil {
				return nil, fmt.Errorf("overlay %s: no secret store configured", o.Name)
			}
			conf.DefineSecretOverlay(o.Name, store, stack.Literal(o.Secret))
		case o.Env != "":
			conf.DefineOverlay(o.Name, stack.Env(o.Env))
		default:
			conf.DefineOverlay(o.Name, stack.Literal(o.Value))
		}
	}

	return conf, nil
}

// OpenSecretStore creates the configured secret backend wrapped in a
// throttle. The returned closer is nil unless the backend holds resources.
func OpenSecretStore(cfg config.SecretStoreConfig, logger *zap.Logger) (secrets.Store, io.Closer, error) {
	var (
		store  secrets.Store
		closer io.Closer
	)

	switch cfg.Kind {
	case config.SecretStoreNone:
		return nil, nil, nil
	case config.SecretStoreMemory:
		mem := secrets.NewMemoryStore()
		for path, data := range cfg.Seed {
			if err := mem.Put(path, data); err != nil {
				return nil, nil, fmt.Errorf("seed %q: %w", path, err)
			}
		}
		store = mem
	case config.SecretStoreVault:
		vault, err := secrets.NewVaultStore(cfg.Address,
			secrets.WithToken(cfg.Token),
			secrets.WithNamespace(cfg.Namespace),
			secrets.WithRetryMax(cfg.RetryMax),
			secrets.WithTimeout(cfg.Timeout),
			secrets.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		store = vault
	case config.SecretStoreSQLite:
		sqlStore, err := secrets.OpenSQLStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store, closer = sqlStore, sqlStore
	default:
		return nil, nil, fmt.Errorf("unknown secret store kind %q", cfg.Kind)
	}

	return secrets.NewThrottled(store, cfg.RateLimitRPS, cfg.RateLimitBurst), closer, nil
}

// BuildRootHandler mounts the API under /api/ and redirects the bare root to
// the key listing.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/api/keys", http.StatusFound)
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Close releases resources held by the secret store.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
