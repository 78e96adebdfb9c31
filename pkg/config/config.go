package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"campsite/pkg/client"
	kafka_config "campsite/pkg/kafka/config"
	"campsite/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	StorageDriver string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresDSN string

	Port string

	// CORSAllowedOrigins is empty when cross-origin requests are not allowed.
	CORSAllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MaxStayDays               int
	MinDaysAhead              int
	DefaultAvailabilityMonths int
	MaxAvailabilityMonths     int

	AdmissionTimeout      time.Duration
	AdmissionLeaseEnabled bool
	AdmissionLeaseTTL     time.Duration

	ReservationEventsTopic    string
	ReservationEventsDLQTopic string

	OccupancyReportSchedule string

	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the configuration from the environment, after loading a local
// .env file if one exists. Invalid configuration is fatal.
func Load(serviceName string) *Config {
	envFileErr := godotenv.Load()

	cfg := &Config{
		StorageDriver: strings.ToLower(getEnvStr(EnvStorageDriver, DefaultStorageDriver)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresDSN: getEnvStr(EnvPostgresDSN, DefaultPostgresDSN),

		Port: getEnvStr(EnvPort, DefaultPort),

		CORSAllowedOrigins: getEnvList(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		MaxStayDays:               getEnvNum(EnvMaxStayDays, DefaultMaxStayDays),
		MinDaysAhead:              getEnvNum(EnvMinDaysAhead, DefaultMinDaysAhead),
		DefaultAvailabilityMonths: getEnvNum(EnvDefaultAvailabilityMonths, DefaultDefaultAvailabilityMonths),
		MaxAvailabilityMonths:     getEnvNum(EnvMaxAvailabilityMonths, DefaultMaxAvailabilityMonths),

		AdmissionTimeout:      getEnvDuration(EnvAdmissionTimeout, DefaultAdmissionTimeout),
		AdmissionLeaseEnabled: getEnvBool(EnvAdmissionLeaseEnabled, DefaultAdmissionLeaseEnabled),
		AdmissionLeaseTTL:     getEnvDuration(EnvAdmissionLeaseTTL, DefaultAdmissionLeaseTTL),

		ReservationEventsTopic:    getEnvStr(EnvReservationEventsTopic, DefaultReservationEventsTopic),
		ReservationEventsDLQTopic: getEnvStr(EnvReservationEventsDLQTopic, DefaultReservationEventsDLQTopic),

		OccupancyReportSchedule: getEnvStr(EnvOccupancyReportSchedule, DefaultOccupancyReportSchedule),

		Kafka: kafka_config.Load(),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    getEnvStr(EnvLogFormat, logger.JSON),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envFileErr != nil && !errors.Is(envFileErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to load .env file", "error", envFileErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// ConnectStorage opens the connection required by the configured storage driver.
func (cfg *Config) ConnectStorage() {
	switch cfg.StorageDriver {
	case StorageMongo:
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	case StoragePostgres:
		cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.MongoConnTimeout)
	case StorageMemory:
		cfg.Log.Warn("Using in-memory storage, reservations will not survive a restart")
	}
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageDriver {
	case StorageMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StoragePostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresDSN) {
			errors = append(errors, fmt.Sprintf("PostgresDSN must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresDSN)))
		}
	case StorageMemory:
	default:
		errors = append(errors, fmt.Sprintf("StorageDriver must be one of %s, %s, %s, got: %s", StorageMongo, StoragePostgres, StorageMemory, cfg.StorageDriver))
	}

	if cfg.AdmissionLeaseEnabled && cfg.StorageDriver != StorageMongo {
		errors = append(errors, "AdmissionLeaseEnabled requires the mongo storage driver")
	}

	positiveDurations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"AdmissionTimeout", cfg.AdmissionTimeout},
		{"AdmissionLeaseTTL", cfg.AdmissionLeaseTTL},
	}
	for _, d := range positiveDurations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.MaxStayDays <= 0 {
		errors = append(errors, fmt.Sprintf("MaxStayDays must be positive, got: %d", cfg.MaxStayDays))
	}
	if cfg.MinDaysAhead < 0 {
		errors = append(errors, fmt.Sprintf("MinDaysAhead cannot be negative, got: %d", cfg.MinDaysAhead))
	}
	if cfg.DefaultAvailabilityMonths <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultAvailabilityMonths must be positive, got: %d", cfg.DefaultAvailabilityMonths))
	}
	if cfg.MaxAvailabilityMonths < cfg.DefaultAvailabilityMonths {
		errors = append(errors, fmt.Sprintf("MaxAvailabilityMonths (%d) must be >= DefaultAvailabilityMonths (%d)", cfg.MaxAvailabilityMonths, cfg.DefaultAvailabilityMonths))
	}

	if cfg.OccupancyReportSchedule != "" {
		if _, err := cron.ParseStandard(cfg.OccupancyReportSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("OccupancyReportSchedule is not a valid cron spec: %s", cfg.OccupancyReportSchedule))
		}
	}

	if cfg.Kafka != nil {
		if err := cfg.Kafka.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
		if cfg.Kafka.Enabled() && cfg.ReservationEventsTopic == "" {
			errors = append(errors, "ReservationEventsTopic cannot be empty when Kafka brokers are configured")
		}
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
		"storage_driver", cfg.StorageDriver,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_dsn", redactURI(cfg.PostgresDSN),
		"port", cfg.Port,
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"max_stay_days", cfg.MaxStayDays,
		"min_days_ahead", cfg.MinDaysAhead,
		"default_availability_months", cfg.DefaultAvailabilityMonths,
		"max_availability_months", cfg.MaxAvailabilityMonths,
		"admission_timeout", cfg.AdmissionTimeout,
		"admission_lease_enabled", cfg.AdmissionLeaseEnabled,
		"reservation_events_topic", cfg.ReservationEventsTopic,
		"kafka_enabled", cfg.Kafka != nil && cfg.Kafka.Enabled(),
		"occupancy_report_schedule", cfg.OccupancyReportSchedule,
	)
}

func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`^([a-z+]+://)[^:/@]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key, fallback string) []string {
	var out []string
	for _, item := range strings.Split(getEnvStr(key, fallback), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
	cfg.Client.GracefulShutdown()
}
