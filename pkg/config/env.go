package config

const (
	EnvStorageDriver = "STORAGE_DRIVER"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresDSN = "POSTGRES_DSN"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvMaxStayDays               = "MAX_STAY_DAYS"
	EnvMinDaysAhead              = "MIN_DAYS_AHEAD"
	EnvDefaultAvailabilityMonths = "DEFAULT_AVAILABILITY_MONTHS"
	EnvMaxAvailabilityMonths     = "MAX_AVAILABILITY_MONTHS"

	EnvAdmissionTimeout      = "ADMISSION_TIMEOUT"
	EnvAdmissionLeaseEnabled = "ADMISSION_LEASE_ENABLED"
	EnvAdmissionLeaseTTL     = "ADMISSION_LEASE_TTL"

	EnvReservationEventsTopic    = "RESERVATION_EVENTS_TOPIC"
	EnvReservationEventsDLQTopic = "RESERVATION_EVENTS_DLQ_TOPIC"

	EnvOccupancyReportSchedule = "OCCUPANCY_REPORT_SCHEDULE"

	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"
)
