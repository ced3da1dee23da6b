package config

import (
	"errors"
	"fmt"
	"time"
)

// Transport backends
const (
	TransportHTTP  = "http"
	TransportKafka = "kafka"
)

// Options holds runtime configuration for a shipper instance.
type Options struct {
	// AppName identifies this shipper to the collector
	AppName string

	// Transport selects the delivery backend: http or kafka
	Transport string

	// Endpoint is the HTTP collector address
	Endpoint string

	// AuthToken authenticates HTTP requests to the collector
	AuthToken string

	// KafkaBrokers and KafkaTopic configure the kafka transport
	KafkaBrokers []string
	KafkaTopic   string

	// Compression codec for the kafka transport
	Compression string

	// MaxQueueRecords caps the in-memory queue; overflow drops new records
	MaxQueueRecords int

	// MaxBatchRecords caps records per delivery
	MaxBatchRecords int

	// MaxMessageBytes bounds a single record's rough serialized size;
	// longer messages are truncated. Zero disables truncation.
	MaxMessageBytes int

	// FlushInterval is the maximum time records wait before delivery
	FlushInterval time.Duration

	// SendTimeout bounds a single transport send attempt
	SendTimeout time.Duration

	// MaxRetries is the total number of send attempts per batch,
	// including the first
	MaxRetries int

	// BackoffBase is the delay before the first retry; it doubles per
	// attempt up to BackoffCap
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// ShutdownTimeout bounds the final flush on Close
	ShutdownTimeout time.Duration

	// LogLevel for the shipper's own diagnostics
	LogLevel string

	// MetricsAddr, when set, exposes prometheus metrics on this
	// address (e.g. ":9090"). Empty disables the listener.
	MetricsAddr string
}

// Default returns options suitable for a typical deployment.
func Default() Options {
	return Options{
		AppName:         "logship",
		Transport:       TransportHTTP,
		MaxQueueRecords: 10000,
		MaxBatchRecords: 100,
		MaxMessageBytes: 1 << 20, // 1MiB
		FlushInterval:   time.Second,
		SendTimeout:     10 * time.Second,
		MaxRetries:      3,
		BackoffBase:     200 * time.Millisecond,
		BackoffCap:      5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
	}
}

// Validation errors
var (
	ErrEmptyAppName     = errors.New("app_name cannot be empty")
	ErrInvalidTransport = errors.New("transport must be http or kafka")
	ErrEmptyEndpoint    = errors.New("endpoint is required for the http transport")
	ErrEmptyBrokers     = errors.New("kafka_brokers is required for the kafka transport")
	ErrEmptyTopic       = errors.New("kafka_topic is required for the kafka transport")
)

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if o.AppName == "" {
		return ErrEmptyAppName
	}
	switch o.Transport {
	case TransportHTTP:
		if o.Endpoint == "" {
			return ErrEmptyEndpoint
		}
	case TransportKafka:
		if len(o.KafkaBrokers) == 0 {
			return ErrEmptyBrokers
		}
		if o.KafkaTopic == "" {
			return ErrEmptyTopic
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, o.Transport)
	}
	if o.MaxQueueRecords <= 0 {
		return fmt.Errorf("max_queue_records must be positive, got %d", o.MaxQueueRecords)
	}
	if o.MaxBatchRecords <= 0 {
		return fmt.Errorf("max_batch_records must be positive, got %d", o.MaxBatchRecords)
	}
	if o.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be positive, got %s", o.FlushInterval)
	}
	if o.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", o.MaxRetries)
	}
	return nil
}
