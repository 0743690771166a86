// Command gateway runs the stateless Cypher-over-HTTP gateway: it loads
// configuration, probes the connected Neo4j deployment's capabilities,
// wires the classification/routing/orchestration pipeline, and serves the
// HTTP surface until a shutdown signal arrives.
//
// Run with:
//
//	go run ./cmd/gateway
//
// Configuration is loaded from GATEWAY_-prefixed environment variables;
// see internal/config.Config for the full set.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/StricklySoft/cypher-gateway/internal/authadapter"
	"github.com/StricklySoft/cypher-gateway/internal/capabilities"
	"github.com/StricklySoft/cypher-gateway/internal/config"
	"github.com/StricklySoft/cypher-gateway/internal/evalcache"
	"github.com/StricklySoft/cypher-gateway/internal/evaluator"
	"github.com/StricklySoft/cypher-gateway/internal/httpapi"
	"github.com/StricklySoft/cypher-gateway/internal/lifecycle"
	"github.com/StricklySoft/cypher-gateway/internal/orchestrator"
	"github.com/StricklySoft/cypher-gateway/internal/router"
	neo4jclient "github.com/StricklySoft/cypher-gateway/pkg/clients/neo4j"
	redisclient "github.com/StricklySoft/cypher-gateway/pkg/clients/redis"
	pkgconfig "github.com/StricklySoft/cypher-gateway/pkg/config"
	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var cfg config.Config
	if err := pkgconfig.New().WithEnvPrefix("GATEWAY").WithFile(os.Getenv("GATEWAY_CONFIG_FILE")).Load(&cfg); err != nil {
		logger.Error("gateway: failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	tracker := lifecycle.NewTracker()

	neo4jClient, err := neo4jclient.NewClient(ctx, cfg.Driver)
	if err != nil {
		logger.Error("gateway: failed to connect to neo4j", "error", err)
		os.Exit(1)
	}
	defer neo4jClient.Close(ctx)

	probe := capabilities.New(capabilities.Config{
		RoutingScheme:       isRoutingScheme(cfg.Driver.Scheme, cfg.Driver.URI),
		ProfileSSR:          cfg.ProfileSSR,
		DefaultToSSR:        cfg.DefaultToSSR,
		RetryMaxElapsedTime: capabilities.DefaultConfig().RetryMaxElapsedTime,
	}, neo4jClient)
	snapshot := probe.Ensure(ctx)
	logger.Info("gateway: capabilities probe complete", "ssr_available", snapshot.SSR, "enterprise", snapshot.Enterprise)

	var requirementsCache evaluator.RequirementsCache
	if cfg.Cache.RedisURI != "" {
		redisConf := redisclient.Config{URI: cfg.Cache.RedisURI}
		redisC, err := redisclient.NewClient(ctx, redisConf)
		if err != nil {
			logger.Warn("gateway: redis cache unavailable, falling back to in-process cache only", "error", err)
		} else {
			defer redisC.Close()
			requirementsCache = evalcache.NewRequirementsCache(evalcache.NewRedis(redisC))
		}
	}

	bookmarkManager := neo4j.NewBookmarkManager(neo4j.BookmarkManagerConfig{})
	rt := router.New(neo4jClient.Driver(), bookmarkManager, cfg.FetchSizeOrDefault())
	ev := evaluator.New(snapshot, rt, requirementsCache)
	orch := orchestrator.New(ev, rt, snapshot)

	authAdapter := authadapter.New(authadapter.Config{
		ServiceUsername:     cfg.Auth.ServiceUsername,
		ServicePasswordHash: authadapter.Secret(cfg.Auth.ServicePasswordHash),
		JWTSigningKey:       authadapter.Secret(cfg.Auth.ServiceJWTSecret),
	}, neo4jClient, logger)

	mux := http.NewServeMux()
	httpapi.NewHandler(mux, orch, authAdapter, logger)
	mux.HandleFunc("GET /healthz", healthzHandler(tracker, neo4jClient))

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	if err := tracker.SetState(lifecycle.StateReady); err != nil {
		logger.Error("gateway: failed to enter ready state", "error", err)
		os.Exit(1)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("gateway: listening", "addr", cfg.Server.Addr)
		serveErrCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("gateway: received signal, draining", "signal", sig.String())
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("gateway: server exited unexpectedly", "error", err)
		}
		return
	}

	if err := tracker.SetState(lifecycle.StateDraining); err != nil {
		logger.Error("gateway: failed to enter draining state", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway: graceful shutdown failed", "error", err)
	}

	if err := tracker.SetState(lifecycle.StateStopped); err != nil {
		logger.Error("gateway: failed to enter stopped state", "error", err)
	}
	logger.Info("gateway: stopped")
}

// isRoutingScheme reports whether the configured driver connection uses a
// routing-capable scheme (neo4j:// or neo4j+s://, as opposed to a direct
// bolt:// connection). Server-side routing is impossible over a direct
// bolt connection regardless of what the database itself supports.
func isRoutingScheme(scheme, uri string) bool {
	if uri != "" {
		s, _, found := strings.Cut(uri, "://")
		if found {
			scheme = s
		}
	}
	return strings.HasPrefix(scheme, "neo4j")
}

// healthzHandler reports 200 once the gateway has finished its startup
// probe and the database connection is alive, 503 otherwise. It is wired
// directly in main rather than inside internal/httpapi, since spec.md §1
// scopes health/metrics surfaces out of the core packages.
func healthzHandler(tracker *lifecycle.Tracker, client *neo4jclient.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := tracker.Health(); err != nil {
			writeHealthError(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			writeHealthError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func writeHealthError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	if sErr, ok := sserr.AsError(err); ok {
		status = sErr.HTTPStatus()
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}
