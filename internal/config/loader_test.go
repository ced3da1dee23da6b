package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	opts := Default()

	if opts.Transport != TransportHTTP {
		t.Errorf("expected http transport by default, got %s", opts.Transport)
	}
	if opts.MaxQueueRecords != 10000 {
		t.Errorf("expected 10000 queue records, got %d", opts.MaxQueueRecords)
	}
	if opts.MaxBatchRecords != 100 {
		t.Errorf("expected 100 batch records, got %d", opts.MaxBatchRecords)
	}
	if opts.FlushInterval != time.Second {
		t.Errorf("expected 1s flush interval, got %s", opts.FlushInterval)
	}
	if opts.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", opts.MaxRetries)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	opts, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.MaxQueueRecords != Default().MaxQueueRecords {
		t.Errorf("empty path should return defaults, got %+v", opts)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	content := `
app_name: billing
endpoint: logs.example.com
auth_token: tok-123
flush_interval_ms: 250
max_batch_records: 25
max_retries: 5
backoff_base_ms: 50
`
	path := filepath.Join(t.TempDir(), "logship.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if opts.AppName != "billing" {
		t.Errorf("expected app_name billing, got %s", opts.AppName)
	}
	if opts.Endpoint != "logs.example.com" {
		t.Errorf("expected endpoint override, got %s", opts.Endpoint)
	}
	if opts.FlushInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms flush interval, got %s", opts.FlushInterval)
	}
	if opts.MaxBatchRecords != 25 {
		t.Errorf("expected 25 batch records, got %d", opts.MaxBatchRecords)
	}
	if opts.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", opts.MaxRetries)
	}
	if opts.BackoffBase != 50*time.Millisecond {
		t.Errorf("expected 50ms backoff base, got %s", opts.BackoffBase)
	}
	// Untouched keys keep their defaults.
	if opts.MaxQueueRecords != 10000 {
		t.Errorf("expected default queue size, got %d", opts.MaxQueueRecords)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	content := `
app_name: billing
transport: carrier-pigeon
`
	path := filepath.Join(t.TempDir(), "logship.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unknown transport")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	opts := Default()
	opts.Endpoint = "logs.example.com"
	if err := opts.Validate(); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}

	opts = Default()
	if err := opts.Validate(); err == nil {
		t.Error("http transport without endpoint should fail validation")
	}

	opts = Default()
	opts.Transport = TransportKafka
	opts.KafkaBrokers = []string{"localhost:9092"}
	if err := opts.Validate(); err == nil {
		t.Error("kafka transport without topic should fail validation")
	}

	opts = Default()
	opts.Endpoint = "logs.example.com"
	opts.MaxBatchRecords = 0
	if err := opts.Validate(); err == nil {
		t.Error("zero batch size should fail validation")
	}
}
