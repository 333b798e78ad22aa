package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/stowage/internal/logging"
)

const simManifest = `{
	"containers": [
		{"containerId": "shelf", "zone": "Crew Quarters", "width": 40, "depth": 40, "height": 40},
		{"containerId": "pod", "zone": "Airlock", "width": 40, "depth": 40, "height": 40}
	],
	"items": [
		{"itemId": "milk", "name": "Milk", "width": 10, "depth": 10, "height": 10, "mass": 2, "priority": 50, "expiryDate": "2025-01-03", "preferredZone": "Crew Quarters"},
		{"itemId": "filter", "name": "Filter", "width": 10, "depth": 10, "height": 10, "mass": 3, "priority": 60, "usageLimit": 2, "preferredZone": "Crew Quarters"},
		{"itemId": "tool", "name": "Tool", "width": 10, "depth": 10, "height": 10, "mass": 1, "priority": 40}
	]
}`

// TestIntegration_ManifestMission runs a short offline mission end to end.
func TestIntegration_ManifestMission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(simManifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	var out bytes.Buffer
	err := run(context.Background(), &out, logging.Noop(), options{
		ManifestPath: path,
		Start:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:         4,
		Daily:        []string{"filter"},
		Undock:       "pod",
		MaxWeight:    10,
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"placed=3 rearranged=0 failed=0",
		"[2025-01-02] used=1 expired=0 depleted=0",
		"[2025-01-03] used=1 expired=0 depleted=1",
		"expired milk (Milk)",
		"depleted filter (Filter)",
		"Waste items: 2",
		"Return plan to pod: 2 items, 5.0 kg",
		"Mission day 4",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunMissingManifest(t *testing.T) {
	err := run(context.Background(), &bytes.Buffer{}, logging.Noop(), options{
		ManifestPath: filepath.Join(t.TempDir(), "nope.json"),
		Days:         1,
	})
	if err == nil {
		t.Fatalf("run() with missing manifest returned nil error")
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" a, b,,c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("splitIDs() = %v", got)
	}
	if splitIDs("") != nil {
		t.Fatalf("splitIDs(\"\") should be nil")
	}
}
