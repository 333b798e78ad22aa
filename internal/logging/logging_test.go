package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "placement")).Info(context.Background(), "batch committed",
		Int("placed", 3),
		Duration("elapsed", 2*time.Millisecond),
		Err(errors.New("partial")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["msg"] != "batch committed" || rec["component"] != "placement" {
		t.Fatalf("record = %+v", rec)
	}
	if rec["placed"] != float64(3) || rec["error"] != "partial" {
		t.Fatalf("fields = %+v", rec)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestEnsureRequestIDIsStable(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if len(id) != 36 {
		t.Fatalf("request id %q is not a uuid", id)
	}
	_, again := EnsureRequestID(ctx)
	if again != id {
		t.Fatalf("EnsureRequestID() = %q, want existing %q", again, id)
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatalf("empty context should carry no request id")
	}
}

func TestLoggerFromContext(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger on bare context")
	}
	ctx := ContextWithLogger(context.Background(), nil)
	if _, ok := LoggerFromContext(ctx).(noopLogger); !ok {
		t.Fatalf("nil logger should be stored as noop")
	}
}

func TestInventoryFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Output: &buf})
	log.Info(context.Background(), "item placed",
		ItemID("w1"),
		ContainerID("lab1"),
		UserID("crew"),
		Zone("preferred_zone", ""),
		Date("mission_date", time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	want := map[string]string{
		"item_id":        "w1",
		"container_id":   "lab1",
		"user_id":        "crew",
		"preferred_zone": "any",
		"mission_date":   "2025-03-04",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("%s = %v, want %q (record %+v)", k, rec[k], v, rec)
		}
	}
}
