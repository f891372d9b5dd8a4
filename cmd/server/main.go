package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/database"
	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/logger"
	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/queue"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/router"
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/utils"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "json")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	users, products, db, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; using in-memory rate limiter and no response cache")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	issuer := utils.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.AccessTTLMin)*time.Minute)
	authSvc := service.NewAuthService(users, utils.NewPasswordHasher(cfg.BcryptCost), issuer)

	opts := []service.ProductOption{service.WithLogger(log)}
	if ev := config.LoadEventsConfig(); ev.Enabled {
		opts = append(opts, service.WithEvents(queue.NewPublisher(ev, log)))
		go func() {
			if err := queue.StartConsumer(ctx, ev, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("event consumer stopped")
			}
		}()
	}
	productSvc := service.NewProductService(products, cfg.OwnershipEnforced(), opts...)

	cacheCfg := config.LoadCacheConfig()
	e := router.New(router.Deps{
		Log:       log,
		Issuer:    issuer,
		Auth:      handler.NewAuthHandler(authSvc),
		Products:  handler.NewProductHandler(productSvc, cfg.APILinks),
		RateLimit: middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, log),
		Cache: router.ProductCache{
			Read:  middleware.NewRedisCache(cacheCfg, rdb),
			Purge: middleware.PurgeOnSuccess(cacheCfg, rdb, log),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).
			Str("ownership", cfg.ProductOwnership).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStores selects the persistence backend.  The returned *sql.DB is nil
// for the memory driver.
func openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (service.UserStore, service.ProductStore, *sql.DB, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return repository.NewMemoryUserStore(), repository.NewMemoryProductStore(), nil, nil
	}

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		log.Info().Msg("migrations applied")
	}
	return repository.NewUserRepo(db), repository.NewProductRepo(db), db, nil
}
