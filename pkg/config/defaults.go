package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "radiantgo"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	// KV backends. Redis is the production choice; memory is the
	// single-process fallback when no Redis is reachable.
	KVBackendRedis  = "redis"
	KVBackendMemory = "memory"

	DefaultKVBackend = KVBackendRedis
	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultLockTTL        = 10 * time.Second
	DefaultLockMaxRetries = 5
	DefaultLockBaseDelay  = 50 * time.Millisecond
	DefaultLockMaxDelay   = 2 * time.Second

	DefaultCacheDetailTTL = 5 * time.Minute
	DefaultCacheListTTL   = 1 * time.Minute

	DefaultOutboxDrainInterval   = 5 * time.Second
	DefaultOutboxDrainBatch      = 100
	DefaultOutboxCleanupInterval = 1 * time.Hour
	DefaultOutboxRetentionDays   = 7

	DefaultBulkBatchSize   = 50
	DefaultBulkConcurrency = 10

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 5 * 1024 * 1024 // 5MB, bulk payloads can be large

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel = "info"

	DefaultPaginationLimit = 100
)
