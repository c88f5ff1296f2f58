// main wires high-level dependencies and keeps the server lifecycle small.
// Decision logic lives in the internal services packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/httpserver"
	"gatekeeper/internal/platform/logger"
	platformpg "gatekeeper/internal/platform/postgres"
	platformredis "gatekeeper/internal/platform/redis"
	ratelimitcfg "gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/metrics"
	ratelimitmw "gatekeeper/internal/ratelimit/middleware"
	"gatekeeper/internal/ratelimit/policy"
	"gatekeeper/internal/ratelimit/ports"
	"gatekeeper/internal/ratelimit/service/limiter"
	"gatekeeper/internal/ratelimit/service/loginguard"
	memorystore "gatekeeper/internal/ratelimit/store/memory"
	pgstore "gatekeeper/internal/ratelimit/store/postgres"
	redisstore "gatekeeper/internal/ratelimit/store/redis"
	ratelimitworker "gatekeeper/internal/ratelimit/worker"
	httpapi "gatekeeper/internal/transport/http"
	"gatekeeper/pkg/platform/audit"
	auditmemory "gatekeeper/pkg/platform/audit/store/memory"
	auditworker "gatekeeper/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	rlCfg := ratelimitcfg.DefaultConfig()
	rlCfg.LoginGuard.BypassLocal = cfg.IsDevelopment()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	db, err := platformpg.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres init failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	var primary ports.CounterStore
	if redisClient != nil {
		primary = redisstore.New(redisClient.Client,
			redisstore.WithLogger(log),
			redisstore.WithLatencyBudget(rlCfg.Primary.LatencyBudget),
			redisstore.WithUnhealthyFor(rlCfg.Primary.UnhealthyFor),
		)
	} else {
		log.Warn("REDIS_URL not set, running on the fallback store alone")
	}

	var fallback ports.CounterStore
	var sweepTarget ports.Sweeper
	if db != nil {
		store := pgstore.New(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.EnsureSchema(ctx); err != nil {
			cancel()
			log.Error("fallback schema init failed", "error", err)
			os.Exit(1)
		}
		cancel()
		fallback = store
		sweepTarget = store
	} else {
		store := memorystore.New()
		fallback = store
		sweepTarget = store
		log.Warn("DATABASE_URL not set, using in-memory fallback counters")
	}

	auditPublisher := audit.NewPublisher(0)
	auditStore := auditmemory.New(0)

	core, err := limiter.New(primary, fallback,
		limiter.WithLogger(log),
		limiter.WithMetrics(m),
		limiter.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		log.Error("limiter init failed", "error", err)
		os.Exit(1)
	}

	resolver, err := policy.New(rlCfg)
	if err != nil {
		log.Error("policy init failed", "error", err)
		os.Exit(1)
	}

	login, err := loginguard.New(core, rlCfg.LoginGuard,
		loginguard.WithLogger(log),
		loginguard.WithMetrics(m),
		loginguard.WithAuditPublisher(auditPublisher),
		loginguard.WithDevMode(cfg.IsDevelopment()),
	)
	if err != nil {
		log.Error("login guard init failed", "error", err)
		os.Exit(1)
	}

	limitMiddleware := ratelimitmw.New(core, resolver, log)
	handler := httpapi.NewHandler(login, resolver, log)
	srv := httpserver.New(cfg.Addr, httpapi.NewRouter(handler, limitMiddleware))

	sweeper := ratelimitworker.New(sweepTarget, rlCfg.SweepInterval,
		ratelimitworker.WithLogger(log),
		ratelimitworker.WithMetrics(m),
	)
	drain := auditworker.NewWorker(auditStore, auditPublisher.Inbox(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting gatekeeper", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error { return drain.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Info("gatekeeper stopped")
}
