package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/taskmind/internal/auth"
	"github.com/af-corp/taskmind/internal/completion"
	"github.com/af-corp/taskmind/internal/config"
	"github.com/af-corp/taskmind/internal/handler"
	"github.com/af-corp/taskmind/internal/platform"
	"github.com/af-corp/taskmind/internal/policy"
	"github.com/af-corp/taskmind/internal/taskstore"
	"github.com/af-corp/taskmind/internal/telemetry"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("taskmind exited", "error", err)
		os.Exit(1)
	}
}

// closers releases long-lived clients in reverse order of acquisition.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) closeAll() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func run(args []string) error {
	fset := flag.NewFlagSet("taskmind", flag.ContinueOnError)
	configDir := fset.String("config", "configs", "path to configuration directory")
	envFile := fset.String("env-file", ".env", "dotenv file loaded before configuration (optional)")
	if err := fset.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	loader := config.NewLoader(*configDir, bootLogger)
	if err := loader.Load(); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := loader.Config()

	logger := platform.NewLogger(cfg.Telemetry)
	slog.SetDefault(logger)

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	var cleanup closers
	defer cleanup.closeAll()

	ctx := context.Background()

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialise %s task store: %w", cfg.Store.Driver, err)
	}
	cleanup.add(closeStore)

	rdb := platform.NewRedis(ctx, cfg.Redis, logger)
	if rdb != nil {
		cleanup.add(func() { _ = rdb.Close() })
	}

	verifier, err := buildVerifier(ctx, cfg, rdb)
	if err != nil {
		return fmt.Errorf("initialise authentication: %w", err)
	}

	var authz taskstore.Authorizer
	if cfg.Policy.Enabled {
		evaluator := policy.NewEvaluator(func() config.PolicyConfig { return loader.Config().Policy })
		if err := evaluator.Load(); err != nil {
			return fmt.Errorf("load access policy: %w", err)
		}
		authz = evaluator
	}

	// Completion client is rebuilt whenever completion.yaml changes.
	ai := completion.NewSwappable(completion.NewOpenAI(loader.Completion()))
	loader.OnReload(func() {
		ai.Set(completion.NewOpenAI(loader.Completion()))
		logger.Info("completion client reloaded", "model", loader.Completion().Model)
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(registry)
	if cv, ok := verifier.(*auth.CachedVerifier); ok {
		cv.OnLookup = metrics.RecordCacheLookup
	}

	h := handler.NewHandler(verifier, taskstore.NewGateway(store, authz), ai, metrics, cfg.Server.MaxBodyBytes)
	r := handler.NewRouter(h, version)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsSrv *http.Server
	if cfg.Telemetry.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Telemetry.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("taskmind starting", "addr", addr, "version", version, "store", cfg.Store.Driver)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("taskmind stopped")
	return nil
}

// buildStore opens the configured task store and returns a func releasing it.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (taskstore.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverFirestore, "":
		client, err := platform.NewFirestoreClient(ctx, cfg.Firebase)
		if err != nil {
			return nil, nil, err
		}
		return taskstore.NewFirestoreStore(client), func() { _ = client.Close() }, nil

	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := taskstore.Migrate(cfg.Database.DSN()); err != nil {
				return nil, nil, err
			}
			logger.Info("database schema up to date")
		}
		pool, err := platform.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database not reachable (task operations will fail)", "error", err)
		} else {
			logger.Info("database connected")
		}
		return taskstore.NewPostgresStore(pool), pool.Close, nil

	case config.DriverMemory:
		logger.Warn("using in-memory task store; tasks are lost on restart")
		return taskstore.NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildVerifier wires Firebase ID-token verification, cached in Redis when
// rdb is non-nil.
func buildVerifier(ctx context.Context, cfg *config.Config, rdb *redis.Client) (auth.Verifier, error) {
	app, err := platform.NewFirebaseApp(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}
	client, err := platform.NewAuthClient(ctx, app)
	if err != nil {
		return nil, err
	}
	verifier := auth.NewFirebaseVerifier(client, cfg.Firebase.CheckRevoked)

	if rdb == nil {
		return verifier, nil
	}
	return auth.NewCachedVerifier(verifier, rdb, cfg.Redis.IdentityCacheTTL), nil
}
