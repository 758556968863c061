package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Osman8a/TDAH-REST-API/internal/cache"
	"github.com/Osman8a/TDAH-REST-API/internal/config"
	"github.com/Osman8a/TDAH-REST-API/internal/database"
	"github.com/Osman8a/TDAH-REST-API/internal/events"
	"github.com/Osman8a/TDAH-REST-API/internal/handlers"
	"github.com/Osman8a/TDAH-REST-API/internal/jobs"
	"github.com/Osman8a/TDAH-REST-API/internal/log"
	"github.com/Osman8a/TDAH-REST-API/internal/metrics"
	"github.com/Osman8a/TDAH-REST-API/internal/repository"
	"github.com/Osman8a/TDAH-REST-API/internal/security"
	"github.com/Osman8a/TDAH-REST-API/internal/server"
	"github.com/Osman8a/TDAH-REST-API/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	users, sessions, dbPool, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open storage")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	var publisher events.Publisher = events.Nop{}
	if redisClient != nil {
		publisher = events.NewRedisPublisher(redisClient, cfg.Redis.Stream)
	} else {
		logger.Info().Msg("redis not configured, session events disabled")
	}

	hasher, err := security.NewPasswordHasher(security.PasswordOptions{
		Scheme:     cfg.Security.PasswordScheme,
		BcryptCost: cfg.Security.BcryptCost,
		MinLength:  cfg.Security.PasswordMinLength,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid password settings")
	}

	codec, err := security.NewJWTCodec(cfg.Security.TokenSecret, cfg.Security.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid token settings")
	}

	m := metrics.New()
	accounts := service.NewAccountService(service.Deps{
		Users:          users,
		Sessions:       sessions,
		Hasher:         hasher,
		Codec:          codec,
		Events:         publisher,
		Metrics:        m,
		FingerprintKey: security.FingerprintKey(cfg.Security.TokenSecret),
		Log:            logger,
	})

	handlerSet := handlers.NewHandlerSet(logger, cfg.Environment, accounts, dbPool, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, m)

	scheduler := jobs.NewScheduler(accounts, cfg.Jobs.PruneSchedule, cfg.Security.TokenTTL > 0, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (service.UserStore, service.SessionStore, *pgxpool.Pool, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn().Msg("memory storage driver: accounts are lost on restart")
		store := repository.NewMemoryStore()
		return store, store, nil, nil
	case config.StorageDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Postgres.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
		}
		return repository.NewUserRepository(pool), repository.NewSessionRepository(pool), pool, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
