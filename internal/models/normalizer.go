package models

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"logship/internal/metrics"
)

// ExtraFieldsFunc returns per-record fields to merge into a record's
// extra map. Supplied by the embedding application.
type ExtraFieldsFunc func(in Input) map[string]any

// Normalizer converts framework inputs into canonical LogRecords. It
// never returns an error and never blocks: a panicking hook is recovered
// and the record proceeds with whatever fields were gathered.
type Normalizer struct {
	app         string
	extraFields ExtraFieldsFunc
	maxBytes    int
	log         zerolog.Logger
}

// NewNormalizer creates a normalizer. extraFields may be nil. maxBytes
// bounds the rough serialized size of a single record; zero disables
// truncation.
func NewNormalizer(app string, extraFields ExtraFieldsFunc, maxBytes int, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		app:         app,
		extraFields: extraFields,
		maxBytes:    maxBytes,
		log:         log,
	}
}

// Normalize builds a LogRecord from a framework input plus the extra
// fields supplied at the logging call site. Caller extras win over the
// extra-fields hook on key collision.
func (n *Normalizer) Normalize(in Input, extra map[string]any) LogRecord {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	sev := Severity(strings.ToUpper(strings.TrimSpace(string(in.Severity))))
	if !sev.IsValid() {
		sev = SeverityInfo
	}

	merged := n.hookFields(in)
	if len(extra) > 0 {
		if merged == nil {
			merged = make(map[string]any, len(extra))
		}
		for k, v := range extra {
			merged[k] = v
		}
	}

	rec := LogRecord{
		Timestamp: ts.UTC().UnixMilli(),
		Severity:  sev,
		Logger:    in.Logger,
		Message:   in.Message,
		Extra:     merged,
	}

	if rec.Truncate(n.maxBytes) {
		metrics.RecordsTruncated.WithLabelValues(n.app).Inc()
	}
	return rec
}

// hookFields calls the extra-fields hook, shielding the caller from any
// panic it raises.
func (n *Normalizer) hookFields(in Input) (fields map[string]any) {
	if n.extraFields == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.HookPanics.WithLabelValues(n.app, "extra_fields").Inc()
			n.log.Warn().
				Interface("panic", r).
				Msg("extra fields hook panicked, record proceeds without hook fields")
			fields = nil
		}
	}()

	out := n.extraFields(in)
	if len(out) == 0 {
		return nil
	}
	// Copy so later merging never aliases hook-owned maps.
	fields = make(map[string]any, len(out))
	for k, v := range out {
		fields[k] = v
	}
	return fields
}

// SafeMetadata invokes a batch-metadata hook, recovering panics the same
// way record hooks are recovered. Used by the delivery worker once per
// batch.
func SafeMetadata(app string, hook func() map[string]any, log zerolog.Logger) (meta map[string]any) {
	if hook == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.HookPanics.WithLabelValues(app, "metadata").Inc()
			log.Warn().
				Interface("panic", r).
				Msg("metadata hook panicked, batch proceeds without common metadata")
			meta = nil
		}
	}()
	return hook()
}
