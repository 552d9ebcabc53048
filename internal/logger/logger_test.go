package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
}

func TestSetup_IncludesLevelField(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Warn("warning test")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v\nraw: %s", err, buf.String())
	}

	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
}

// エラーレベルのレコードだけがリングに記録されることを検証
func TestSetupWithRing_CapturesErrorRecords(t *testing.T) {
	var buf bytes.Buffer
	ring := NewErrorRing(5)
	l := SetupWithRing(&buf, ring)

	l.Info("not captured")
	l.Error("store unreachable", slog.String("identifier", "0xABC"))

	recent := ring.Recent()
	if len(recent) != 1 {
		t.Fatalf("ring length = %d, want 1", len(recent))
	}
	if recent[0].Message != "store unreachable" {
		t.Errorf("message = %q, want %q", recent[0].Message, "store unreachable")
	}

	// JSON出力にも両方のレコードが出ていること
	if !bytes.Contains(buf.Bytes(), []byte("not captured")) {
		t.Error("info record should still reach the JSON handler")
	}
}

// 容量を超えたとき最古のレコードが上書きされることを検証
func TestErrorRing_OverwritesOldestWhenFull(t *testing.T) {
	ring := NewErrorRing(3)
	var buf bytes.Buffer
	l := SetupWithRing(&buf, ring)

	l.Error("e1")
	l.Error("e2")
	l.Error("e3")
	l.Error("e4")

	recent := ring.Recent()
	if len(recent) != 3 {
		t.Fatalf("ring length = %d, want 3", len(recent))
	}
	want := []string{"e2", "e3", "e4"}
	for i, w := range want {
		if recent[i].Message != w {
			t.Errorf("recent[%d] = %q, want %q", i, recent[i].Message, w)
		}
	}
}

func TestErrorRing_EmptyReturnsNoRecords(t *testing.T) {
	ring := NewErrorRing(0) // 0は既定容量にフォールバック

	if got := len(ring.Recent()); got != 0 {
		t.Errorf("Recent() length = %d, want 0", got)
	}
}
