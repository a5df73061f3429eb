package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mesa-campaigns/internal/adapter/http"
	"mesa-campaigns/internal/adapter/memory"
	"mesa-campaigns/internal/adapter/postgres"
	redisadapter "mesa-campaigns/internal/adapter/redis"
	"mesa-campaigns/internal/adapter/usecase"
	"mesa-campaigns/internal/adapter/worker"
	"mesa-campaigns/internal/config"
	"mesa-campaigns/internal/core/port"
	"mesa-campaigns/internal/db"
)

// main is the entry point of the campaign scheduling service. It loads
// configuration, optionally runs database migrations, initializes the
// database pool, Redis and the use cases, then starts the HTTP server and
// the scheduler ticker. On receiving a termination signal it gracefully
// shuts both down.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(cfg.Log.Handler(os.Stdout)).With(slog.String("env", cfg.Env))

	if err = run(cfg, logger); err != nil {
		logger.Error("service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if cfg.Psql.RunMigrations {
		if err := db.Migrate(cfg.Psql.Addr.String()); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		logger.Info("migrations applied successfully")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pool.Close()

	campaigns := postgres.NewCampaignStore(pool)
	users := postgres.NewUserStore(pool)

	if cfg.Psql.Seed {
		if err = db.Seed(ctx, campaigns, users, time.Now()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("demo data seeded")
	}

	var (
		locker port.PlacementLocker = memory.NewLocker()
		views  port.ImpressionLog   = memory.NewImpressionLog()
	)
	if cfg.Redis.Enabled {
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connection: %w", err)
		}
		defer client.Close()
		locker = redisadapter.NewLocker(client, cfg.Redis.LockTTL, cfg.Redis.LockWait, logger)
		views = redisadapter.NewImpressionLog(client, cfg.Redis.ViewTTL)
	} else {
		logger.Warn("redis disabled, placement locks and impression log are process-local")
	}

	queue := usecase.NewQueueManager(campaigns, locker, logger)
	scheduler := usecase.NewScheduler(queue, logger)

	handler := httpadapter.NewHandler(httpadapter.Services{
		Scheduler: scheduler,
		Queue:     queue,
		Targeting: usecase.NewTargetingEvaluator(campaigns, users, views, logger),
		Analytics: usecase.NewAnalytics(campaigns, views, logger),
	}, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Scheduler.Enabled {
		ticker := worker.NewTicker(scheduler, cfg.Scheduler.TickInterval, cfg.Scheduler.Timeout(), logger)
		g.Go(func() error { return ticker.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server gracefully stopped")
		return nil
	})
	return g.Wait()
}
