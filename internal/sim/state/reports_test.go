package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/model"
)

func TestSummaryAggregatesInventory(t *testing.T) {
	s := newTestState(t, WithNearExpiryDays(3))
	ctx := context.Background()
	mustAddContainer(t, s, container("lab", "Lab", box(10, 10, 10)))
	mustAddContainer(t, s, container("crew", "Crew", box(20, 10, 10)))

	soon := cube("soon", 10, 50, "Lab")
	soon.ExpiryDate = timePtr(missionStart.AddDate(0, 0, 2))
	later := cube("later", 10, 50, "Crew")
	later.ExpiryDate = timePtr(missionStart.AddDate(0, 0, 30))
	for _, it := range []*model.Item{soon, later, cube("tool", 10, 50, "Crew")} {
		mustAddCargo(t, s, it)
	}
	mustPlace(t, s, "soon", "lab", model.Coordinates{}, box(10, 10, 10))
	mustPlace(t, s, "later", "crew", model.Coordinates{}, box(10, 10, 10))
	mustPlace(t, s, "tool", "crew", model.Coordinates{Width: 10}, box(10, 10, 10))

	for i := 0; i < 2; i++ {
		if err := s.Retrieve(ctx, "tool", "astro", missionStart); err != nil {
			t.Fatalf("Retrieve(tool) error = %v", err)
		}
		mustPlace(t, s, "tool", "crew", model.Coordinates{Width: 10}, box(10, 10, 10))
	}

	sum := s.Summary()
	if sum.Counts.Items != 3 || sum.Counts.Placed != 3 || sum.Counts.Containers != 2 {
		t.Fatalf("Counts = %+v", sum.Counts)
	}
	if len(sum.NearExpiry) != 1 || sum.NearExpiry[0].ID != "soon" {
		t.Fatalf("NearExpiry = %+v, want soon", sum.NearExpiry)
	}
	if len(sum.MostRetrieved) != 1 || sum.MostRetrieved[0].ID != "tool" || sum.MostRetrieved[0].RetrievalCount != 2 {
		t.Fatalf("MostRetrieved = %+v", sum.MostRetrieved)
	}
	if sum.ItemsByZone["Crew"] != 2 || sum.ItemsByZone["Lab"] != 1 {
		t.Fatalf("ItemsByZone = %+v", sum.ItemsByZone)
	}
	if len(sum.Utilization) != 2 {
		t.Fatalf("Utilization = %+v", sum.Utilization)
	}
	for _, u := range sum.Utilization {
		if u.Ratio != 1 || u.UsedVolume != u.TotalVolume {
			t.Fatalf("container %q utilisation = %+v, want full", u.ContainerID, u)
		}
	}
}

func TestArrangementOrderedByContainer(t *testing.T) {
	s := newTestState(t)
	mustAddContainer(t, s, container("b", "Crew", box(20, 20, 20)))
	mustAddContainer(t, s, container("a", "Lab", box(20, 20, 20)))
	for _, id := range []string{"x", "y", "z"} {
		mustAddCargo(t, s, cube(id, 10, 50, ""))
	}
	mustPlace(t, s, "y", "b", model.Coordinates{}, box(10, 10, 10))
	mustPlace(t, s, "x", "b", model.Coordinates{Width: 10}, box(10, 10, 10))
	mustPlace(t, s, "z", "a", model.Coordinates{}, box(10, 10, 10))

	rows := s.Arrangement()
	var got []string
	for _, r := range rows {
		got = append(got, r.ContainerID+"/"+r.ItemID)
	}
	want := []string{"a/z", "b/x", "b/y"}
	if len(got) != len(want) {
		t.Fatalf("Arrangement() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Arrangement() = %v, want %v", got, want)
		}
	}
	if rows[0].Zone != "Lab" {
		t.Fatalf("zone = %q, want Lab", rows[0].Zone)
	}
}

func TestLogsFilterByWindow(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()
	mustAddContainer(t, s, container("c", "Lab", box(20, 20, 20)))
	mustAddCargo(t, s, cube("a", 10, 50, ""))

	day1 := missionStart.Add(time.Hour)
	day3 := missionStart.AddDate(0, 0, 2)
	if err := s.Place(ctx, PlaceRequest{ItemID: "a", UserID: "u1", Timestamp: day1, ContainerID: "c", Position: model.PositionAt(model.Coordinates{}, box(10, 10, 10))}); err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if err := s.Retrieve(ctx, "a", "u2", day3); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	entries, err := s.Logs(ctx, activity.Filter{Start: missionStart.Add(time.Minute), End: missionStart.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Action != activity.ActionPlacement || entries[0].UserID != "u1" {
		t.Fatalf("Logs(window) = %+v, want the placement", entries)
	}
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()
	mustAddContainer(t, s, container("c", "Lab", box(100, 100, 100)))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				it := cube(string(rune('a'+w))+string(rune('0'+i)), 5, 1+w*10+i, "Lab")
				if _, err := s.Placement(ctx, PlacementRequest{Items: []*model.Item{it}}); err != nil {
					t.Errorf("Placement() error = %v", err)
					return
				}
				_ = s.Summary()
				_ = s.Arrangement()
			}
		}(w)
	}
	wg.Wait()

	if n := len(s.Arrangement()); n != 40 {
		t.Fatalf("placed items = %d, want 40", n)
	}
	assertNoOverlaps(t, s)
}
