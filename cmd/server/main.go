package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/catalog"
	"github.com/iliyamo/festival-booking/internal/config"
	"github.com/iliyamo/festival-booking/internal/database"
	"github.com/iliyamo/festival-booking/internal/handler"
	"github.com/iliyamo/festival-booking/internal/ledger"
	"github.com/iliyamo/festival-booking/internal/lock"
	"github.com/iliyamo/festival-booking/internal/logger"
	"github.com/iliyamo/festival-booking/internal/middleware"
	"github.com/iliyamo/festival-booking/internal/notify"
	"github.com/iliyamo/festival-booking/internal/queue"
	"github.com/iliyamo/festival-booking/internal/repository"
	"github.com/iliyamo/festival-booking/internal/router"
	"github.com/iliyamo/festival-booking/internal/service"
	"github.com/iliyamo/festival-booking/internal/ticket"
	"github.com/iliyamo/festival-booking/internal/worker"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	// Redis: required for the ledger or lock when configured so, optional
	// otherwise (catalog cache, rate limiting, response cache).
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		if cfg.NeedsRedis() {
			return errors.New("redis unreachable but LEDGER_BACKEND/LOCK_BACKEND need it")
		}
		zl.Warn("redis unreachable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var db *sql.DB
	if cfg.NeedsMySQL() {
		var err error
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	store := newStore(cfg, db, zl)
	seats := newLedger(cfg, db, rdb)
	locker := newLocker(cfg, rdb, zl)
	src, err := newCatalog(cfg, db)
	if err != nil {
		return err
	}
	cat := catalog.NewCached(src, rdb, cfg.CatalogCacheTTL, zl)

	pub := queue.NewPublisher(cfg.AMQPURL, cfg.MailQueue, zl)
	defer pub.Close()

	svc := service.NewBookingService(service.Deps{
		Store:    store,
		Catalog:  cat,
		Ledger:   seats,
		Locker:   locker,
		Notifier: notify.NewMailer(pub, cfg.FromEmail, cfg.FestivalName),
		Tickets:  ticket.NewHTMLRenderer(cfg.FestivalName),
		Logger:   zl,
	}, service.Options{
		TokenTTL:   cfg.TokenTTL,
		ConfirmURL: cfg.ConfirmURL,
	})

	go worker.NewExpirySweeper(svc, cfg.SweepInterval, cfg.SweepBatch, zl).Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(zl))

	mw := router.Middlewares{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, zl),
	}
	catalogHandler := handler.NewCatalogHandler(cat, zl)
	router.RegisterRoutes(e)
	router.RegisterPublic(e, catalogHandler, mw)
	router.RegisterBooking(e, handler.NewBookingHandler(svc, zl), mw)
	router.RegisterAdmin(e, handler.NewAdminHandler(svc, handler.AdminAuth{
		PasswordHash: cfg.AdminPasswordHash,
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
	}, zl), catalogHandler, cfg.JWTSecret, mw)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		zl.Info("listening",
			zap.String("addr", addr),
			zap.String("store", cfg.StoreBackend),
			zap.String("ledger", cfg.LedgerBackend),
			zap.String("lock", cfg.LockBackend),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newStore(cfg config.Config, db *sql.DB, zl *zap.Logger) service.BookingStore {
	if cfg.StoreBackend == config.BackendMemory {
		zl.Warn("bookings are kept in memory and lost on restart")
		return repository.NewMemoryBookingRepo()
	}
	return repository.NewBookingRepo(db)
}

func newLedger(cfg config.Config, db *sql.DB, rdb *redis.Client) ledger.Ledger {
	switch cfg.LedgerBackend {
	case config.BackendRedis:
		return ledger.NewRedisLedger(rdb, "")
	case config.BackendMemory:
		return ledger.NewMemory()
	default:
		return repository.NewLedgerRepo(db)
	}
}

// newLocker: the Redis lock serialises confirms across server instances;
// the local mutex only within this process.
func newLocker(cfg config.Config, rdb *redis.Client, zl *zap.Logger) lock.Locker {
	if cfg.LockBackend == config.BackendLocal {
		return lock.NewKeyedMutex()
	}
	return lock.NewRedisLocker(rdb, "", 0, 0, zl)
}

func newCatalog(cfg config.Config, db *sql.DB) (catalog.Source, error) {
	if cfg.CatalogFile != "" {
		return catalog.LoadFile(cfg.CatalogFile)
	}
	return repository.NewShowtimeRepo(db), nil
}
