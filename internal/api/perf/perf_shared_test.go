//go:build perf || perf_large

package perf

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/signalsfoundry/stowage/internal/api"
	"github.com/signalsfoundry/stowage/internal/api/types"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/internal/sim/state"
	"github.com/signalsfoundry/stowage/kb"
	"github.com/signalsfoundry/stowage/timectrl"
)

type perfConfig struct {
	Containers     int
	Items          int
	Zones          int
	Searches       int
	SimulationDays int
}

var zoneNames = []string{"Crew Quarters", "Airlock", "Laboratory", "Medical Bay", "Storage Bay", "Command Center"}

func newCargoService() *api.CargoService {
	st := state.NewCargoState(
		kb.NewKnowledgeBase(),
		timectrl.NewMissionClock(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)),
		logging.Noop(),
	)
	return api.NewCargoService(st, logging.Noop())
}

func containers(cfg perfConfig) []types.Container {
	out := make([]types.Container, 0, cfg.Containers)
	for i := 0; i < cfg.Containers; i++ {
		out = append(out, types.Container{
			ContainerID: fmt.Sprintf("cont-%04d", i),
			Zone:        zoneNames[i%max(1, min(cfg.Zones, len(zoneNames)))],
			Width:       100,
			Depth:       85,
			Height:      200,
		})
	}
	return out
}

func items(cfg perfConfig) []types.Item {
	out := make([]types.Item, 0, cfg.Items)
	for i := 0; i < cfg.Items; i++ {
		side := float64(5 + i%20)
		limit := 1 + i%10
		out = append(out, types.Item{
			ItemID:        fmt.Sprintf("item-%05d", i),
			Name:          fmt.Sprintf("Item %d", i),
			Width:         side,
			Depth:         side,
			Height:        side * 2,
			Mass:          float64(1 + i%30),
			Priority:      1 + i%100,
			PreferredZone: zoneNames[i%len(zoneNames)],
			UsageLimit:    &limit,
			ExpiryDate:    time.Date(2025, time.January, 2+i%60, 0, 0, 0, 0, time.UTC).Format(types.DateLayout),
		})
	}
	return out
}

func seeded(b *testing.B, cfg perfConfig) *api.CargoService {
	b.Helper()
	svc := newCargoService()
	if _, err := svc.Placement(context.Background(), &types.PlacementRequest{
		Items:      items(cfg),
		Containers: containers(cfg),
	}); err != nil {
		b.Fatalf("Placement: %v", err)
	}
	return svc
}

func benchmarkPlacement(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		svc := newCargoService()
		req := &types.PlacementRequest{Items: items(cfg), Containers: containers(cfg)}

		b.ResetTimer()
		if _, err := svc.Placement(ctx, req); err != nil {
			b.Fatalf("Placement: %v", err)
		}
		b.StopTimer()
	}
}

func benchmarkSearch(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		svc := seeded(b, cfg)

		b.ResetTimer()
		for j := 0; j < cfg.Searches; j++ {
			id := fmt.Sprintf("item-%05d", j%cfg.Items)
			if _, err := svc.Search(ctx, &types.SearchRequest{ItemID: id}); err != nil {
				b.Fatalf("Search(%s): %v", id, err)
			}
		}
		b.StopTimer()
	}
}

func benchmarkSimulation(b *testing.B, cfg perfConfig) {
	ctx := context.Background()
	b.ReportAllocs()

	daily := make([]string, 0, cfg.Items/10)
	for j := 0; j < cfg.Items; j += 10 {
		daily = append(daily, fmt.Sprintf("item-%05d", j))
	}

	for i := 0; i < b.N; i++ {
		svc := seeded(b, cfg)

		b.ResetTimer()
		if _, err := svc.SimulateDay(ctx, &types.SimulateDayRequest{
			NumOfDays:           cfg.SimulationDays,
			ItemsToBeUsedPerDay: []types.UsageDay{{Day: 0, ItemIDs: daily}},
		}); err != nil {
			b.Fatalf("SimulateDay: %v", err)
		}
		if _, err := svc.ReturnPlan(ctx, &types.ReturnPlanRequest{MaxWeight: 500}); err != nil {
			b.Fatalf("ReturnPlan: %v", err)
		}
		b.StopTimer()
	}
}
