package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/kb"
	"github.com/signalsfoundry/stowage/model"
	"github.com/signalsfoundry/stowage/timectrl"
)

var missionStart = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func newTestState(t *testing.T, opts ...CargoStateOption) *CargoState {
	t.Helper()
	return NewCargoState(kb.NewKnowledgeBase(), timectrl.NewMissionClock(missionStart), logging.Noop(), opts...)
}

func cube(id string, side float64, priority int, zone model.Zone) *model.Item {
	return &model.Item{
		ID:            id,
		Name:          id,
		Dimensions:    model.Dimensions{Width: side, Depth: side, Height: side},
		Mass:          1,
		Priority:      priority,
		PreferredZone: zone,
	}
}

func box(w, d, h float64) model.Dimensions {
	return model.Dimensions{Width: w, Depth: d, Height: h}
}

func container(id string, zone model.Zone, dims model.Dimensions) model.Container {
	return model.Container{ID: id, Zone: zone, Dimensions: dims}
}

func mustAddContainer(t *testing.T, s *CargoState, c model.Container) {
	t.Helper()
	if err := s.AddContainer(context.Background(), c); err != nil {
		t.Fatalf("AddContainer(%q) error = %v", c.ID, err)
	}
}

func mustAddCargo(t *testing.T, s *CargoState, it *model.Item) {
	t.Helper()
	if err := s.AddCargo(context.Background(), it, "tester"); err != nil {
		t.Fatalf("AddCargo(%q) error = %v", it.ID, err)
	}
}

func mustPlace(t *testing.T, s *CargoState, itemID, containerID string, start model.Coordinates, dims model.Dimensions) {
	t.Helper()
	err := s.Place(context.Background(), PlaceRequest{
		ItemID:      itemID,
		UserID:      "tester",
		ContainerID: containerID,
		Position:    model.PositionAt(start, dims),
	})
	if err != nil {
		t.Fatalf("Place(%q) error = %v", itemID, err)
	}
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

// assertNoOverlaps checks every pair of items sharing a container and that
// each box lies inside its container.
func assertNoOverlaps(t *testing.T, s *CargoState) {
	t.Helper()
	for _, c := range s.ListContainers() {
		items := s.KB().ItemsInContainer(c.ID)
		for i, a := range items {
			if !a.Placed() {
				t.Fatalf("item %q has container %q but no position", a.ID, c.ID)
			}
			if !core.WithinBounds(c, *a.Position) {
				t.Fatalf("item %q at %+v is outside container %q", a.ID, *a.Position, c.ID)
			}
			if !core.MatchesDimensions(*a.Position, a.Dimensions) {
				t.Fatalf("item %q position %+v does not match dims %+v", a.ID, *a.Position, a.Dimensions)
			}
			for _, b := range items[i+1:] {
				if core.BoxesOverlap(*a.Position, *b.Position) {
					t.Fatalf("items %q and %q overlap in %q", a.ID, b.ID, c.ID)
				}
			}
		}
	}
}

type stubMetricsRecorder struct {
	items, placed, waste, containers int
	day                              int
	activity                         map[string]int
}

func (r *stubMetricsRecorder) SetInventoryCounts(items, placed, waste, containers int) {
	r.items, r.placed, r.waste, r.containers = items, placed, waste, containers
}

func (r *stubMetricsRecorder) SetMissionDay(day int) { r.day = day }

func (r *stubMetricsRecorder) RecordActivity(action string, n int) {
	if r.activity == nil {
		r.activity = make(map[string]int)
	}
	r.activity[action] += n
}

var errStorage = errors.New("disk full")

// failingStore rejects every append.
type failingStore struct{ activity.MemoryStore }

func (f *failingStore) Append(context.Context, ...activity.Entry) error { return errStorage }

type stubPlannerRecorder struct {
	runs       int
	rearranged int
	failed     int
	selected   int
}

func (r *stubPlannerRecorder) ObservePlacement(_ time.Duration, rearranged, failed int) {
	r.runs++
	r.rearranged += rearranged
	r.failed += failed
}

func (r *stubPlannerRecorder) SetReturnPlanSelected(count int) { r.selected = count }
