package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileOptions is the YAML schema. Durations are expressed in
// milliseconds; pointer fields distinguish "absent" from "zero" so the
// file only overrides what it names.
type fileOptions struct {
	AppName      *string  `yaml:"app_name"`
	Transport    *string  `yaml:"transport"`
	Endpoint     *string  `yaml:"endpoint"`
	AuthToken    *string  `yaml:"auth_token"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   *string  `yaml:"kafka_topic"`
	Compression  *string  `yaml:"compression"`

	MaxQueueRecords *int `yaml:"max_queue_records"`
	MaxBatchRecords *int `yaml:"max_batch_records"`
	MaxMessageBytes *int `yaml:"max_message_bytes"`

	FlushIntervalMs   *int `yaml:"flush_interval_ms"`
	SendTimeoutMs     *int `yaml:"send_timeout_ms"`
	MaxRetries        *int `yaml:"max_retries"`
	BackoffBaseMs     *int `yaml:"backoff_base_ms"`
	BackoffCapMs      *int `yaml:"backoff_cap_ms"`
	ShutdownTimeoutMs *int `yaml:"shutdown_timeout_ms"`

	LogLevel    *string `yaml:"log_level"`
	MetricsAddr *string `yaml:"metrics_addr"`
}

// Load reads options from a YAML file layered over the defaults. An
// empty path returns the defaults unchanged.
func Load(path string) (Options, error) {
	opts := Default()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading config file: %w", err)
	}

	var file fileOptions
	if err := yaml.Unmarshal(data, &file); err != nil {
		return opts, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	file.apply(&opts)

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return opts, nil
}

func (f *fileOptions) apply(opts *Options) {
	setString(&opts.AppName, f.AppName)
	setString(&opts.Transport, f.Transport)
	setString(&opts.Endpoint, f.Endpoint)
	setString(&opts.AuthToken, f.AuthToken)
	setString(&opts.KafkaTopic, f.KafkaTopic)
	setString(&opts.Compression, f.Compression)
	setString(&opts.LogLevel, f.LogLevel)
	setString(&opts.MetricsAddr, f.MetricsAddr)
	if len(f.KafkaBrokers) > 0 {
		opts.KafkaBrokers = f.KafkaBrokers
	}

	setInt(&opts.MaxQueueRecords, f.MaxQueueRecords)
	setInt(&opts.MaxBatchRecords, f.MaxBatchRecords)
	setInt(&opts.MaxMessageBytes, f.MaxMessageBytes)
	setInt(&opts.MaxRetries, f.MaxRetries)

	setDuration(&opts.FlushInterval, f.FlushIntervalMs)
	setDuration(&opts.SendTimeout, f.SendTimeoutMs)
	setDuration(&opts.BackoffBase, f.BackoffBaseMs)
	setDuration(&opts.BackoffCap, f.BackoffCapMs)
	setDuration(&opts.ShutdownTimeout, f.ShutdownTimeoutMs)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, ms *int) {
	if ms != nil {
		*dst = time.Duration(*ms) * time.Millisecond
	}
}
