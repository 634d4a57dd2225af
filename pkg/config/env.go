package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvKVBackend     = "KV_BACKEND"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvLockTTL        = "LOCK_TTL"
	EnvLockMaxRetries = "LOCK_MAX_RETRIES"
	EnvLockBaseDelay  = "LOCK_BASE_DELAY"
	EnvLockMaxDelay   = "LOCK_MAX_DELAY"

	EnvCacheDetailTTL = "CACHE_DETAIL_TTL"
	EnvCacheListTTL   = "CACHE_LIST_TTL"

	EnvOutboxDrainInterval   = "OUTBOX_DRAIN_INTERVAL"
	EnvOutboxDrainBatch      = "OUTBOX_DRAIN_BATCH"
	EnvOutboxCleanupInterval = "OUTBOX_CLEANUP_INTERVAL"
	EnvOutboxRetentionDays   = "OUTBOX_RETENTION_DAYS"

	EnvBulkBatchSize   = "BULK_BATCH_SIZE"
	EnvBulkConcurrency = "BULK_CONCURRENCY"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
