package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithRequestIDAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := New(Config{Level: "debug", Encoding: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := ContextWithActorID(ContextWithRequestID(context.Background(), "req-1"), "42")
	WithRequestID(ctx, base).Info("hello")
	_ = base.Sync()

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-1" || entry["actor_id"] != "42" || entry["msg"] != "hello" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("expected timestamp key, got %v", entry)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, _ := New(Config{Level: "loud", Output: &buf})
	log.Debug("hidden")
	log.Info("shown")
	_ = log.Sync()

	if bytes.Contains(buf.Bytes(), []byte("hidden")) || !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
