package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/cache"
	"github.com/Domenick1991/tripbooking/internal/clock"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/repository/memstore"
	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/Domenick1991/tripbooking/internal/service/catalog"
	"github.com/Domenick1991/tripbooking/internal/service/inventory"
	"github.com/Domenick1991/tripbooking/internal/service/promo"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const publishRetries = 2

// Services is the wired booking core plus the connections it owns.
type Services struct {
	Catalog  *catalog.CatalogService
	Promos   *promo.Service
	Bookings *booking.BookingService
	Producer *kafka.Producer

	closers []func() error
}

// Close releases every connection opened by NewServices.
func (s *Services) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i]())
	}
	return err
}

// NewServices opens storage, the optional cache and the optional event
// producer, and builds the booking services on top of them.
func NewServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	s := &Services{}

	store, err := s.openStore(ctx, cfg, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	var catalogCache catalog.Cache
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CatalogCacheTTL())
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, catalog reads go to storage until it recovers", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		s.closers = append(s.closers, redisCache.Close)
		catalogCache = redisCache
	}

	taxRate, err := cfg.Booking.TaxRateDecimal()
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	loc, err := cfg.Booking.Location()
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	clk := clock.System{}
	inv := inventory.New(clk, logger.Named("inventory"))
	ledger := promo.NewLedger(clk, promo.WithLocation(loc), promo.WithLogger(logger.Named("promo")))

	s.Catalog = catalog.NewCatalogService(store, catalogCache, clk, logger.Named("catalog"))
	s.Promos = promo.NewService(store, s.Catalog, ledger, logger.Named("promo"))

	opts := []booking.BookingServiceOption{
		booking.WithClock(clk),
		booking.WithTaxRate(taxRate),
		booking.WithCurrency(cfg.Booking.Currency),
		booking.WithLogger(logger.Named("booking")),
	}
	if cfg.Kafka.Enabled() {
		s.Producer = kafka.NewProducer(cfg.Kafka.Brokers, logger.Named("kafka"))
		s.closers = append(s.closers, s.Producer.Close)
		if err := s.Producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka unreachable, booking events will be dropped until it recovers", zap.Error(err))
		}
		producer := kafka.RetryingProducer{Producer: s.Producer, MaxRetries: publishRetries}
		opts = append(opts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
	}
	s.Bookings = booking.NewBookingService(store, s.Catalog, inv, ledger, opts...)

	return s, nil
}

func (s *Services) openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })

		store := repository.NewPGStore(pool, repository.RetryPolicy{
			Attempts: cfg.Booking.TxRetryAttempts,
			Backoff:  cfg.Booking.TxRetryBackoff(),
		})
		if cfg.Database.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		logger.Info("using postgres store", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Name))
		return store, nil

	case "memory":
		store := memstore.New()
		if cfg.Database.SeedFile != "" {
			if err := store.LoadSeed(cfg.Database.SeedFile); err != nil {
				return nil, err
			}
		}
		logger.Info("using in-memory store", zap.String("seed", cfg.Database.SeedFile))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
