package kafka_config

import "time"

const (
	// No brokers by default: events are dropped by a no-op publisher.
	DefaultKafkaBrokers = ""

	// Producer defaults
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
	DefaultPublishTimeout       = 5 * time.Second

	// Middleware defaults
	DefaultEnableMiddleware = true
)
