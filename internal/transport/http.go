package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"logship/internal/metrics"
	"logship/internal/models"
)

// HTTPDoer abstracts the HTTP client for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ HTTPDoer = (*http.Client)(nil)

const logsPath = "/api/v1/logs"

// gzip level 6 trades a bit of compression for speed; the default (9)
// is the slowest.
const gzipLevel = 6

var (
	ErrSerializeFailed = errors.New("failed to serialize batch")
	ErrServerRejected  = errors.New("server rejected batch")
)

// HTTP posts gzip-compressed JSON batches to a collection endpoint with
// bearer-token auth. Responses are classified: timeouts, connection
// errors, 429 and 5xx are retryable; any other non-2xx status is
// permanent.
type HTTP struct {
	client  HTTPDoer
	url     string
	appName string
	token   string
}

// HTTPConfig configures an HTTP transport.
type HTTPConfig struct {
	// Endpoint is the collector base address, e.g. "logs.example.com"
	// or "https://logs.example.com". The logs API path is appended.
	Endpoint string
	AppName  string
	Token    string

	// Client overrides the HTTP client, mainly for tests.
	Client HTTPDoer
}

// NewHTTP creates an HTTP transport.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	url := cfg.Endpoint
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	url = strings.TrimRight(url, "/") + logsPath

	client := cfg.Client
	if client == nil {
		// Per-request deadlines come from the Send context.
		client = &http.Client{}
	}

	return &HTTP{
		client:  client,
		url:     url,
		appName: cfg.AppName,
		token:   cfg.Token,
	}, nil
}

// Send implements Transport.
func (t *HTTP) Send(ctx context.Context, batch *models.Batch) error {
	body, err := encodeBatch(batch)
	if err != nil {
		return Permanent(fmt.Errorf("%w: %v", ErrSerializeFailed, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("X-Application-Name", t.appName)
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		// Connection refused, DNS failure, deadline exceeded: all worth
		// retrying once the network recovers.
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.BytesSent.WithLabelValues(t.appName).Add(float64(len(body)))
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrServerRejected, resp.StatusCode)
	default:
		// Auth or validation failure: the batch will never go through.
		return Permanent(fmt.Errorf("%w: status %d", ErrServerRejected, resp.StatusCode))
	}
}

// Close implements Transport.
func (t *HTTP) Close() error {
	return nil
}

// encodeBatch serializes the batch as compact JSON and compresses it.
func encodeBatch(batch *models.Batch) ([]byte, error) {
	raw, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzipLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
