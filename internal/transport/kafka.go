package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"logship/internal/metrics"
	"logship/internal/models"
)

var ErrTransportClosed = errors.New("transport is closed")

// Kafka delivers batches to a Kafka topic instead of an HTTP collector,
// for deployments that already run their log pipeline off a broker.
// Each record becomes one message; batch identity and common metadata
// travel in message headers.
type Kafka struct {
	writer  *kafka.Writer
	appName string
	closed  atomic.Bool
}

// KafkaConfig configures a Kafka transport.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	AppName string

	// Compression codec name: gzip, snappy, lz4, zstd or empty.
	Compression string
}

// NewKafka creates a Kafka transport.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}

	writer := &kafka.Writer{
		Addr:        kafka.TCP(cfg.Brokers...),
		Topic:       cfg.Topic,
		Balancer:    &kafka.Hash{}, // Partition by key
		Compression: getCompression(cfg.Compression),
		// The delivery worker owns retry policy; one attempt per Send.
		MaxAttempts: 1,
		Async:       false,
	}

	return &Kafka{
		writer:  writer,
		appName: cfg.AppName,
	}, nil
}

// getCompression returns the kafka compression codec
func getCompression(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "snappy":
		return compress.Snappy
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.None // no compression
	}
}

// Send implements Transport.
func (t *Kafka) Send(ctx context.Context, batch *models.Batch) error {
	if t.closed.Load() {
		return Permanent(ErrTransportClosed)
	}

	commonMeta, err := json.Marshal(batch.CommonMetadata)
	if err != nil {
		return Permanent(fmt.Errorf("%w: %v", ErrSerializeFailed, err))
	}

	messages := make([]kafka.Message, 0, len(batch.Records))
	bytesTotal := 0
	for i := range batch.Records {
		data, err := json.Marshal(&batch.Records[i])
		if err != nil {
			return Permanent(fmt.Errorf("%w: %v", ErrSerializeFailed, err))
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(batch.AppName), // Partition by application
			Value: data,
			Headers: []kafka.Header{
				{Key: "batch_id", Value: []byte(batch.ID)},
				{Key: "app_name", Value: []byte(batch.AppName)},
				{Key: "metadata", Value: commonMeta},
			},
		})
		bytesTotal += len(data)
	}

	// Broker unavailability, leader elections and timeouts are all
	// transient from the shipper's point of view: plain errors, retried
	// by the worker.
	if err := t.writer.WriteMessages(ctx, messages...); err != nil {
		return err
	}

	metrics.BytesSent.WithLabelValues(t.appName).Add(float64(bytesTotal))
	return nil
}

// Close implements Transport.
func (t *Kafka) Close() error {
	if t.closed.Swap(true) {
		return nil // Already closed
	}
	return t.writer.Close()
}
