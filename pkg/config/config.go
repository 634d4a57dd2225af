package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"radiantgo/pkg/client"
	"radiantgo/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	KVBackend     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LockTTL        time.Duration
	LockMaxRetries int
	LockBaseDelay  time.Duration
	LockMaxDelay   time.Duration

	CacheDetailTTL time.Duration
	CacheListTTL   time.Duration

	OutboxDrainInterval   time.Duration
	OutboxDrainBatch      int
	OutboxCleanupInterval time.Duration
	OutboxRetentionDays   int

	BulkBatchSize   int
	BulkConcurrency int

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		KVBackend:     getEnvStr(EnvKVBackend, DefaultKVBackend),
		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		LockTTL:        getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockMaxRetries: getEnvNum(EnvLockMaxRetries, DefaultLockMaxRetries),
		LockBaseDelay:  getEnvDuration(EnvLockBaseDelay, DefaultLockBaseDelay),
		LockMaxDelay:   getEnvDuration(EnvLockMaxDelay, DefaultLockMaxDelay),

		CacheDetailTTL: getEnvDuration(EnvCacheDetailTTL, DefaultCacheDetailTTL),
		CacheListTTL:   getEnvDuration(EnvCacheListTTL, DefaultCacheListTTL),

		OutboxDrainInterval:   getEnvDuration(EnvOutboxDrainInterval, DefaultOutboxDrainInterval),
		OutboxDrainBatch:      getEnvNum(EnvOutboxDrainBatch, DefaultOutboxDrainBatch),
		OutboxCleanupInterval: getEnvDuration(EnvOutboxCleanupInterval, DefaultOutboxCleanupInterval),
		OutboxRetentionDays:   getEnvNum(EnvOutboxRetentionDays, DefaultOutboxRetentionDays),

		BulkBatchSize:   getEnvNum(EnvBulkBatchSize, DefaultBulkBatchSize),
		BulkConcurrency: getEnvNum(EnvBulkConcurrency, DefaultBulkConcurrency),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.KVBackend != KVBackendRedis && cfg.KVBackend != KVBackendMemory {
		errors = append(errors, fmt.Sprintf("KVBackend must be %q or %q, got: %s", KVBackendRedis, KVBackendMemory, cfg.KVBackend))
	}
	if cfg.KVBackend == KVBackendRedis && cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty when KVBackend is redis")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}
	if cfg.LockMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("LockMaxRetries cannot be negative, got: %d", cfg.LockMaxRetries))
	}
	if cfg.LockBaseDelay <= 0 {
		errors = append(errors, fmt.Sprintf("LockBaseDelay must be positive, got: %s", cfg.LockBaseDelay))
	}
	if cfg.LockMaxDelay < cfg.LockBaseDelay {
		errors = append(errors, fmt.Sprintf("LockMaxDelay (%s) must be >= LockBaseDelay (%s)", cfg.LockMaxDelay, cfg.LockBaseDelay))
	}

	if cfg.CacheDetailTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CacheDetailTTL must be positive, got: %s", cfg.CacheDetailTTL))
	}
	if cfg.CacheListTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CacheListTTL must be positive, got: %s", cfg.CacheListTTL))
	}

	if cfg.OutboxDrainInterval <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxDrainInterval must be positive, got: %s", cfg.OutboxDrainInterval))
	}
	if cfg.OutboxDrainBatch <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxDrainBatch must be positive, got: %d", cfg.OutboxDrainBatch))
	}
	if cfg.OutboxCleanupInterval <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxCleanupInterval must be positive, got: %s", cfg.OutboxCleanupInterval))
	}
	if cfg.OutboxRetentionDays < 1 {
		errors = append(errors, fmt.Sprintf("OutboxRetentionDays must be at least 1, got: %d", cfg.OutboxRetentionDays))
	}

	if cfg.BulkBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("BulkBatchSize must be positive, got: %d", cfg.BulkBatchSize))
	}
	if cfg.BulkConcurrency <= 0 {
		errors = append(errors, fmt.Sprintf("BulkConcurrency must be positive, got: %d", cfg.BulkConcurrency))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"kv_backend", cfg.KVBackend,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"lock_ttl", cfg.LockTTL,
		"lock_max_retries", cfg.LockMaxRetries,
		"lock_base_delay", cfg.LockBaseDelay,
		"lock_max_delay", cfg.LockMaxDelay,
		"cache_detail_ttl", cfg.CacheDetailTTL,
		"cache_list_ttl", cfg.CacheListTTL,
		"outbox_drain_interval", cfg.OutboxDrainInterval,
		"outbox_drain_batch", cfg.OutboxDrainBatch,
		"outbox_cleanup_interval", cfg.OutboxCleanupInterval,
		"outbox_retention_days", cfg.OutboxRetentionDays,
		"bulk_batch_size", cfg.BulkBatchSize,
		"bulk_concurrency", cfg.BulkConcurrency,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
