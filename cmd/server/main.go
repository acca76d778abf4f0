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

	"inkwell/internal/guard"
	guardmetrics "inkwell/internal/guard/metrics"
	"inkwell/internal/idempotency"
	"inkwell/internal/platform/config"
	"inkwell/internal/platform/logger"
	"inkwell/internal/platform/middleware"
	"inkwell/internal/ratelimit"
	"inkwell/internal/store/sqlite"
	"inkwell/internal/token"
	httptransport "inkwell/internal/transport/http"
)

const sweepInterval = 5 * time.Minute

// main wires dependencies and keeps the server lifecycle small. The
// trust layer and the record store live in internal packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	tokens, err := token.New(cfg.SigningSecret, cfg.SigningAlgorithm, cfg.AdminUsername,
		cfg.AdminPasswordHash, cfg.Issuer, cfg.Audience, cfg.TokenTTL)
	if err != nil {
		log.Error("token service init failed", "error", err)
		os.Exit(1)
	}

	cache := idempotency.New(cfg.IdempotencyTTL, cfg.IdempotencyCapacity)
	limits := &ratelimit.Config{Limits: map[ratelimit.Category][]ratelimit.Window{
		ratelimit.CategoryComment: {
			{Cap: cfg.CommentPerMinute, Span: time.Minute},
			{Cap: cfg.CommentPerHour, Span: time.Hour},
		},
		ratelimit.CategoryReaction: {
			{Cap: cfg.ReactionPerMinute, Span: time.Minute},
			{Cap: cfg.ReactionPerHour, Span: time.Hour},
		},
	}}
	limiter := ratelimit.New(limits, ratelimit.WithLogger(log))
	g := guard.New(tokens, limiter, cache, guardmetrics.New(), log)

	records, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Error("store init failed", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer records.Close()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:   log,
		Guard:    g,
		Tokens:   tokens,
		Store:    records,
		Metadata: middleware.NewMetadata(cfg.TrustedProxies),
		Metrics:  httptransport.NewMetrics(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return cache.RunSweeper(ctx, sweepInterval)
	})

	group.Go(func() error {
		return limiter.RunSweeper(ctx, sweepInterval)
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
