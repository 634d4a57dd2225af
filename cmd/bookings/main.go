package main

import (
	"radiantgo/internal/bookings/handler"
	"radiantgo/internal/bookings/publisher"
	"radiantgo/internal/bookings/repository"
	"radiantgo/internal/bookings/service"
	"radiantgo/internal/bookings/validator"
	"radiantgo/pkg/app"
	"radiantgo/pkg/cache"
	"radiantgo/pkg/config"
	"radiantgo/pkg/kafka"
	kafka_config "radiantgo/pkg/kafka/config"
	"radiantgo/pkg/kvstore"
	"radiantgo/pkg/lock"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Bookings service")

	cfg.SetMongo()
	kv := initKVStore(cfg)

	producer, err := kafka.NewProducer(kafka_config.Load())
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event producer", "error", err)
	}

	outboxRepo := repository.NewMongoOutboxRepository(cfg)
	worker := publisher.NewWorker(outboxRepo, producer, cfg)
	worker.Start()

	bookingService := initServices(cfg, kv, outboxRepo)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, kv, cfg.Log),
	)
	serverApp.OnShutdown(worker.Stop)
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close event producer", "error", err)
		}
	})
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.Run()
}

// initKVStore picks the lock/cache backend. Redis is the production
// default; the in-memory store serves single-instance and local runs.
func initKVStore(cfg *config.Config) kvstore.Store {
	switch cfg.KVBackend {
	case config.KVBackendMemory:
		cfg.Log.Warn("Using in-memory KV store, locks do not span instances")
		return kvstore.NewMemoryStore()
	default:
		cfg.SetRedis()
		return kvstore.NewRedisStore(cfg.Client.Redis)
	}
}

func initServices(cfg *config.Config, kv kvstore.Store, outboxRepo repository.OutboxRepository) service.BookingService {
	locks := lock.NewManager(kv, cfg.Log, lock.Options{
		BaseDelay:  cfg.LockBaseDelay,
		MaxDelay:   cfg.LockMaxDelay,
		DefaultTTL: cfg.LockTTL,
		MaxRetries: cfg.LockMaxRetries,
	})
	readCache := cache.New(kv, cfg.Log)
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		outboxRepo,
		locks,
		readCache,
		bookingValidator,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
