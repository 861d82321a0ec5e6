// Command depthd serves modified band depth queries against named reference
// ensembles over gRPC and a REST API, streams results over WebSocket and
// exposes Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/banddepth/banddepth/internal/alerts"
	"github.com/banddepth/banddepth/internal/api"
	"github.com/banddepth/banddepth/internal/auth"
	"github.com/banddepth/banddepth/internal/config"
	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/internal/metrics"
	"github.com/banddepth/banddepth/internal/receiver"
	"github.com/banddepth/banddepth/internal/scoring"
	"github.com/banddepth/banddepth/internal/ws"
	"github.com/banddepth/banddepth/pkg/depthv1"
)

func main() {
	configPath := flag.String("config", "depthd.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("depthd starting", "config", *configPath)
	slog.Info("config loaded",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"tls", cfg.Server.TLS.Enabled(),
		"ensembles", len(cfg.Ensembles),
		"ensemble_ttl", cfg.EnsembleTTL,
		"storage", cfg.Storage.Backend,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, cfg); err != nil {
		slog.Error("depthd stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if lc.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func run(ctx context.Context, configPath string, cfg *config.Config) error {
	// Ensemble store: pinned file ensembles plus TTL-bound uploads.
	st := ensemble.NewStore(cfg.EnsembleTTL)

	var repo *ensemble.Repository
	if cfg.Storage.Backend != "" {
		r, err := ensemble.Open(ctx, cfg.Storage.Backend, cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer r.Close()
		repo = r
		n, err := ensemble.Restore(ctx, repo, st)
		if err != nil {
			return err
		}
		slog.Info("ensembles restored", "backend", cfg.Storage.Backend, "count", n)
	}
	manager := ensemble.NewManager(st, repo, cfg.Query.Strategy)

	loaded := ensemble.LoadSources(st, cfg.Ensembles, cfg.Query.Strategy)
	slog.Info("reference ensembles loaded", "count", loaded, "configured", len(cfg.Ensembles))

	go st.Run(ctx, func(ids []string) {
		slog.Info("ensembles expired", "ids", ids)
		manager.Forget(context.Background(), ids)
	})
	go func() {
		if err := ensemble.WatchFiles(ctx, st, cfg.Ensembles, cfg.Query.Strategy); err != nil {
			slog.Error("ensemble file watch stopped", "err", err)
		}
	}()

	// Sinks: alerts, live stream and metrics observe every scored batch.
	alertEngine := alerts.New(cfg.Alerts)
	hub := ws.New(st, cfg.Stream.Interval)
	go hub.Run(ctx)

	reg := metrics.NewRegistry(st)
	reg.AddGauge("ws_clients", "Connected WebSocket clients.", func() float64 { return float64(hub.Count()) })
	reg.AddGauge("alerts_firing", "Alerts currently firing.", func() float64 { return float64(alertEngine.Firing()) })

	engine := scoring.NewEngine(st, scoring.OptionsFrom(cfg.Query), alertEngine, hub, reg)
	reg.AddGauge("cache_entries", "Cached curve depths.", func() float64 { return float64(engine.CacheLen()) })

	go func() {
		err := config.Watch(ctx, configPath, func(next *config.Config) {
			engine.SetOptions(scoring.OptionsFrom(next.Query))
			alertEngine.Reload(next.Alerts)
			manager.SetDefaultStrategy(next.Query.Strategy)
			slog.Info("config applied",
				"workers", next.Query.Workers,
				"cache_ttl", next.Query.CacheTTL,
				"alert_rules", len(next.Alerts.Rules))
		})
		if err != nil {
			slog.Error("config watch stopped", "err", err)
		}
	}()

	// gRPC server with optional TLS; both listeners share one auth mode.
	interceptor, guard := authLayers(cfg.Server.Auth)
	grpcSrv, err := newGRPCServer(cfg.Server.TLS, interceptor)
	if err != nil {
		return err
	}
	depthv1.RegisterDepthServiceServer(grpcSrv, receiver.New(engine, manager))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port %d: %w", cfg.Server.GRPCPort, err)
	}
	go func() {
		slog.Info("gRPC depth service listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	// Combined HTTP server: REST API, WebSocket stream and /metrics.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", guard(api.New(engine, manager, alertEngine)))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", reg)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("depthd shutting down")
	grpcSrv.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// authLayers returns the gRPC interceptor and HTTP middleware for the
// configured auth mode. The health probe stays open.
func authLayers(ac config.AuthConfig) (grpc.UnaryServerInterceptor, func(http.Handler) http.Handler) {
	const healthPath = "/api/v1/health"
	if ac.Mode == auth.ModeJWT {
		secret := ac.Secret()
		if len(secret) == 0 {
			slog.Warn("jwt auth configured but secret is empty, requests are not authenticated",
				"secret_env", ac.SecretEnv)
		}
		return auth.JWTInterceptor(secret), auth.JWTMiddleware(secret, healthPath)
	}
	header, key := ac.EffectiveHeader(), ac.Key()
	if ac.Mode == auth.ModeAPIKey && key == "" {
		slog.Warn("apikey auth configured but key is empty, requests are not authenticated",
			"key_env", ac.KeyEnv)
	}
	return auth.APIKeyInterceptor(ac.Mode, header, key),
		auth.APIKeyMiddleware(ac.Mode, header, key, healthPath)
}

func newGRPCServer(tc config.TLSConfig, interceptor grpc.UnaryServerInterceptor) (*grpc.Server, error) {
	opts := []grpc.ServerOption{grpc.UnaryInterceptor(interceptor)}
	if tc.Enabled() {
		creds, err := auth.ServerCredentials(tc.CertFile, tc.KeyFile, tc.ClientCAFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	}
	return grpc.NewServer(opts...), nil
}
