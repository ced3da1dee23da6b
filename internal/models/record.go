package models

import (
	"errors"
	"time"
)

// Severity represents log severity levels
type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// IsValid checks if the severity level is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	default:
		return false
	}
}

// Input is the framework-agnostic shape of a log event entering the
// shipper. Integration shims (slog handlers, zerolog hooks, ...) convert
// their native record into an Input before calling Handle.
type Input struct {
	// Timestamp when the log was generated. Zero means "now".
	Timestamp time.Time

	// Severity level of the log
	Severity Severity

	// Name of the logger that produced the event
	Logger string

	// Log message content
	Message string
}

// LogRecord is the canonical record shipped to the collector. It is
// built once by the normalizer and never mutated afterwards, except for
// the serial number the queue stamps on admission.
type LogRecord struct {
	// Monotonic per-shipper serial number, assigned on enqueue. Gaps
	// observed by the collector correspond to dropped records.
	SerialNo uint64 `json:"serial_no"`

	// Milliseconds since the Unix epoch, UTC
	Timestamp int64 `json:"timestamp"`

	Severity Severity `json:"severity"`

	Logger string `json:"logger,omitempty"`

	Message string `json:"message"`

	// Caller-supplied structured fields merged over the per-record
	// extra-fields hook output. On key collision the caller wins.
	Extra map[string]any `json:"extra,omitempty"`
}

var ErrInvalidSeverity = errors.New("invalid severity level")

// Truncate shortens the record message so that the record's rough
// serialized size stays under maxBytes. Long extra string values are cut
// as well. Returns whether anything was truncated.
func (r *LogRecord) Truncate(maxBytes int) bool {
	if maxBytes <= 0 || r.approxSize() <= maxBytes {
		return false
	}

	const minimum = 80
	long := 0
	if len(r.Message) > minimum {
		long++
	}
	for _, v := range r.Extra {
		if s, ok := v.(string); ok && len(s) > minimum {
			long++
		}
	}
	if long == 0 {
		return false
	}

	// Leave a KB of headroom for short fields and encoding overhead.
	maxField := (maxBytes - 1024) / long
	if maxField < minimum {
		maxField = minimum
	}

	truncated := false
	if len(r.Message) > maxField {
		r.Message = r.Message[:maxField]
		truncated = true
	}
	for k, v := range r.Extra {
		if s, ok := v.(string); ok && len(s) > maxField {
			r.Extra[k] = s[:maxField]
			truncated = true
		}
	}
	if truncated {
		if r.Extra == nil {
			r.Extra = make(map[string]any, 1)
		}
		r.Extra["truncated"] = true
	}
	return truncated
}

// approxSize estimates the serialized size of the record from its string
// payloads. Exact JSON length is not needed, the cap is advisory.
func (r *LogRecord) approxSize() int {
	n := len(r.Message) + len(r.Logger) + 64
	for k, v := range r.Extra {
		n += len(k) + 8
		if s, ok := v.(string); ok {
			n += len(s)
		}
	}
	return n
}
