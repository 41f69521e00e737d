package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"utility-registry/internal/audit"
	"utility-registry/internal/auth"
	"utility-registry/internal/config"
	"utility-registry/internal/observability/metrics"
	"utility-registry/internal/registry/application"
	"utility-registry/internal/registry/infrastructure/settings"
	"utility-registry/internal/registry/infrastructure/sqlstore"
	"utility-registry/internal/registry/interfaces/export"
	registryhttp "utility-registry/internal/registry/interfaces/http"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("APP_CONFIG"), "config file (yaml)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, logger, err := loadRuntime(*configPath, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if cfg.Auth.JWTSecret == "" {
		fmt.Fprintln(stderr, "auth.jwt_secret (APP_AUTH_JWT_SECRET) is required for serve")
		return 2
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", "err", err)
		return 1
	}
	defer store.Close()

	handler, err := buildServer(cfg, store, logger)
	if err != nil {
		logger.Error("server_init_failed", "err", err)
		return 1
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", "addr", cfg.HTTP.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", "err", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http_shutdown_failed", "err", err)
			return 1
		}
		logger.Info("http_stopped")
	}
	return 0
}

// buildServer wires the registry API behind auth and request logging.
func buildServer(cfg config.Config, store *sqlstore.Store, logger *slog.Logger) (http.Handler, error) {
	if cfg.Metrics.Enabled {
		metrics.Init(store.DB(), sqlstore.SubscribersTable, logger)
	}

	renderer, err := export.NewRenderer(cfg.Registry.Format, export.Options{
		PDFFontRegular: cfg.Registry.PDFFontRegular,
		PDFFontBold:    cfg.Registry.PDFFontBold,
	})
	if err != nil {
		return nil, err
	}
	history := application.NewRunHistory(cfg.Registry.HistorySize)
	gen, err := application.NewGenerator(store, settings.NewFileProvider(cfg.Registry.SettingsPath), renderer,
		application.WithLogger(logger),
		application.WithHistory(history),
	)
	if err != nil {
		return nil, err
	}

	var auditLogger audit.Logger = audit.NewSlogLogger(logger)
	if repo := audit.NewRepository(store.DB()); repo != nil {
		auditLogger = repo
	}
	registryHandler, err := registryhttp.NewHandler(gen, history, auditLogger, cfg.Registry.OutputRoot, logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registryHandler.Register(mux)
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.DB().PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.Auth.JWTSecret), policy)
	authMiddleware.Logger = logger
	return loggingMiddleware(authMiddleware.Wrap(mux), logger), nil
}

func loggingMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", resp.status,
			"duration", time.Since(start).String(),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
