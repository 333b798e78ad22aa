package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/stowage/internal/api"
	"github.com/signalsfoundry/stowage/internal/api/types"
	"github.com/signalsfoundry/stowage/internal/config"
	"github.com/signalsfoundry/stowage/internal/logging"
)

const testManifest = `{
	"containers": [
		{"containerId": "contA", "zone": "Crew Quarters", "width": 100, "depth": 85, "height": 200}
	],
	"items": [
		{"itemId": "001", "name": "Food Packet", "width": 10, "depth": 10, "height": 20, "mass": 5, "priority": 80, "expiryDate": "2025-01-03", "usageLimit": 30, "preferredZone": "Crew Quarters"},
		{"itemId": "002", "name": "Oxygen Cylinder", "width": 15, "depth": 15, "height": 50, "mass": 30, "priority": 95, "usageLimit": 100, "preferredZone": "Airlock"}
	]
}`

type testServer struct {
	client *api.Client
	cancel context.CancelFunc
	errCh  chan error
}

func startServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		t.Fatalf("net.Listen: %v", err)
	}

	log := logging.New(logging.Config{Level: "warn", Format: "text"})
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	client, conn, err := api.Dial(lis.Addr().String())
	if err != nil {
		cancel()
		t.Fatalf("api.Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testServer{client: client, cancel: cancel, errCh: errCh}
}

func (s *testServer) stop(t *testing.T) {
	t.Helper()
	s.cancel()
	if err := <-s.errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestCargoServerStartupSmoke(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(manifest, []byte(testManifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	cfg := config.Default()
	cfg.Mission.StartDate = "2025-01-01"
	cfg.ActivityLog.Backend = config.BackendSQLite
	cfg.ActivityLog.Path = filepath.Join(dir, "activity.db")
	cfg.Manifest.Path = manifest

	srv := startServer(t, cfg)
	ctx := context.Background()

	sum, err := srv.client.Summary(ctx, &types.SummaryRequest{})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Date != "2025-01-01" || sum.Counts.Items != 2 || sum.Counts.Containers != 1 {
		t.Fatalf("Summary = %+v", sum)
	}

	logs, err := srv.client.Logs(ctx, &types.LogsRequest{ActionType: "add_cargo"})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs.Logs) != 2 {
		t.Fatalf("add_cargo log entries = %d, want 2", len(logs.Logs))
	}

	srv.stop(t)

	if _, err := os.Stat(cfg.ActivityLog.Path); err != nil {
		t.Fatalf("activity database missing: %v", err)
	}
}

func TestCargoServerAutopilotAdvancesDays(t *testing.T) {
	cfg := config.Default()
	cfg.Mission.StartDate = "2025-01-01"
	cfg.Mission.AutoAdvance = 20 * time.Millisecond

	srv := startServer(t, cfg)
	ctx := context.Background()

	deadline := time.Now().Add(3 * time.Second)
	for {
		sum, err := srv.client.Summary(ctx, &types.SummaryRequest{})
		if err != nil {
			t.Fatalf("Summary: %v", err)
		}
		if sum.MissionDay >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("mission day = %d after 3s, want >= 2", sum.MissionDay)
		}
		time.Sleep(10 * time.Millisecond)
	}

	logs, err := srv.client.Logs(ctx, &types.LogsRequest{UserID: autopilotUser})
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs.Logs) == 0 {
		t.Fatalf("autopilot wrote no simulation entries")
	}

	srv.stop(t)
}

func TestRunRejectsUnreadableManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Manifest.Path = filepath.Join(t.TempDir(), "missing.json")

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer lis.Close()

	if err := run(context.Background(), cfg, logging.Noop(), lis); err == nil {
		t.Fatalf("run() with missing manifest returned nil error")
	}
}
