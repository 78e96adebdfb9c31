package config

import "time"

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const (
	DefaultStorageDriver = StorageMongo

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "campsite"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPostgresDSN = "postgres://localhost:5432/campsite?sslmode=disable"

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMaxStayDays               = 3
	DefaultMinDaysAhead              = 1
	DefaultDefaultAvailabilityMonths = 1
	DefaultMaxAvailabilityMonths     = 2

	DefaultAdmissionTimeout      = 5 * time.Second
	DefaultAdmissionLeaseEnabled = false
	DefaultAdmissionLeaseTTL     = 30 * time.Second

	DefaultReservationEventsTopic    = "campsite.reservations"
	DefaultReservationEventsDLQTopic = "campsite.reservations.dlq"

	DefaultOccupancyReportSchedule = "@hourly"

	DefaultCORSAllowedOrigins = ""
)
