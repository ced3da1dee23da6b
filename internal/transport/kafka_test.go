package transport

import (
	"context"
	"testing"

	"logship/internal/models"
)

func TestNewKafka_Validation(t *testing.T) {
	if _, err := NewKafka(KafkaConfig{Topic: "logs"}); err == nil {
		t.Error("expected error for missing brokers")
	}
	if _, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("expected error for missing topic")
	}
}

func TestKafka_UnserializableRecordIsPermanent(t *testing.T) {
	tr, err := NewKafka(KafkaConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "logs",
		AppName: "test-app",
	})
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}
	defer tr.Close()

	batch := models.NewBatch("test-app", []models.LogRecord{
		{Message: "bad", Extra: map[string]any{"ch": make(chan int)}},
	}, nil, 0)

	// Serialization fails before any network I/O happens.
	sendErr := tr.Send(context.Background(), batch)
	if sendErr == nil {
		t.Fatal("expected serialization error")
	}
	if !IsPermanent(sendErr) {
		t.Errorf("serialization failures must be permanent, got %v", sendErr)
	}
}

func TestKafka_SendAfterClose(t *testing.T) {
	tr, err := NewKafka(KafkaConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "logs",
		AppName: "test-app",
	})
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	sendErr := tr.Send(context.Background(), models.NewBatch("test-app", nil, nil, 0))
	if !IsPermanent(sendErr) {
		t.Errorf("send on closed transport must be permanent, got %v", sendErr)
	}
}
