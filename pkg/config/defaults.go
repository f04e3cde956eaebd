package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "receptionist"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort          = "8080"
	DefaultLogLevel      = "info"
	DefaultStorageDriver = StorageMongo

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultReservationTTL = 5 * time.Minute

	// Zero means half of the reservation TTL.
	DefaultSweepInterval  = 0
	DefaultSweepBatchSize = 500

	DefaultRedisAddr = ""
	DefaultRedisDB   = 0

	DefaultKafkaEnabled          = false
	DefaultKafkaBookingsTopic    = "bookings.events"
	DefaultKafkaBookingsDLQTopic = "bookings.events.dlq"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)
