package models

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNormalize_Defaults(t *testing.T) {
	n := NewNormalizer("test-app", nil, 0, zerolog.Nop())

	before := time.Now().UTC().UnixMilli()
	rec := n.Normalize(Input{Severity: "info", Message: "hello"}, nil)
	after := time.Now().UTC().UnixMilli()

	if rec.Severity != SeverityInfo {
		t.Errorf("expected severity INFO, got %s", rec.Severity)
	}
	if rec.Timestamp < before || rec.Timestamp > after {
		t.Errorf("zero input timestamp should default to now, got %d", rec.Timestamp)
	}
	if rec.Message != "hello" {
		t.Errorf("unexpected message %q", rec.Message)
	}
}

func TestNormalize_UnknownSeverity(t *testing.T) {
	n := NewNormalizer("test-app", nil, 0, zerolog.Nop())
	rec := n.Normalize(Input{Severity: "TRACE", Message: "x"}, nil)
	if rec.Severity != SeverityInfo {
		t.Errorf("unknown severity should fall back to INFO, got %s", rec.Severity)
	}
}

func TestNormalize_CallerExtraWinsOverHook(t *testing.T) {
	hook := func(in Input) map[string]any {
		return map[string]any{"region": "hook", "host": "hook-host"}
	}
	n := NewNormalizer("test-app", hook, 0, zerolog.Nop())

	rec := n.Normalize(Input{Severity: SeverityInfo, Message: "x"}, map[string]any{"region": "caller"})

	if rec.Extra["region"] != "caller" {
		t.Errorf("caller extra should win on collision, got %v", rec.Extra["region"])
	}
	if rec.Extra["host"] != "hook-host" {
		t.Errorf("non-colliding hook field should survive, got %v", rec.Extra["host"])
	}
}

func TestNormalize_HookPanicRecovered(t *testing.T) {
	hook := func(in Input) map[string]any {
		panic("hook exploded")
	}
	n := NewNormalizer("test-app", hook, 0, zerolog.Nop())

	rec := n.Normalize(Input{Severity: SeverityError, Message: "still here"}, map[string]any{"k": "v"})

	if rec.Message != "still here" {
		t.Errorf("record should survive a panicking hook, got %q", rec.Message)
	}
	if rec.Extra["k"] != "v" {
		t.Errorf("caller extras should survive a panicking hook, got %v", rec.Extra)
	}
}

func TestNormalize_HookMapNotAliased(t *testing.T) {
	shared := map[string]any{"a": 1}
	hook := func(in Input) map[string]any { return shared }
	n := NewNormalizer("test-app", hook, 0, zerolog.Nop())

	rec := n.Normalize(Input{Severity: SeverityInfo, Message: "x"}, map[string]any{"a": 2})

	if shared["a"] != 1 {
		t.Error("normalize must not mutate the hook's map")
	}
	if rec.Extra["a"] != 2 {
		t.Errorf("expected caller value 2, got %v", rec.Extra["a"])
	}
}

func TestNormalize_Truncation(t *testing.T) {
	n := NewNormalizer("test-app", nil, 4096, zerolog.Nop())

	rec := n.Normalize(Input{
		Severity: SeverityInfo,
		Message:  strings.Repeat("x", 10000),
	}, nil)

	if len(rec.Message) >= 10000 {
		t.Errorf("expected message truncated, got %d bytes", len(rec.Message))
	}
	if rec.Extra["truncated"] != true {
		t.Error("truncated record should be flagged")
	}
}

func TestNormalize_ShortMessageNotTruncated(t *testing.T) {
	n := NewNormalizer("test-app", nil, 4096, zerolog.Nop())
	rec := n.Normalize(Input{Severity: SeverityInfo, Message: "short"}, nil)
	if rec.Message != "short" {
		t.Errorf("short message should be untouched, got %q", rec.Message)
	}
	if _, ok := rec.Extra["truncated"]; ok {
		t.Error("short record must not carry the truncated flag")
	}
}

func TestSafeMetadata_PanicRecovered(t *testing.T) {
	meta := SafeMetadata("test-app", func() map[string]any { panic("no metadata today") }, zerolog.Nop())
	if meta != nil {
		t.Errorf("expected nil metadata after panic, got %v", meta)
	}

	meta = SafeMetadata("test-app", func() map[string]any { return map[string]any{"dc": "eu-1"} }, zerolog.Nop())
	if meta["dc"] != "eu-1" {
		t.Errorf("expected metadata passthrough, got %v", meta)
	}
}
