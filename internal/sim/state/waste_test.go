package state

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/model"
)

func TestIdentifyWastePersistsFlag(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	expired := cube("expired", 10, 10, "")
	expired.ExpiryDate = timePtr(missionStart.AddDate(0, 0, -2))
	today := cube("today", 10, 10, "")
	today.ExpiryDate = timePtr(missionStart)
	fresh := cube("fresh", 10, 10, "")
	for _, it := range []*model.Item{expired, today, fresh} {
		mustAddCargo(t, s, it)
	}

	records, err := s.IdentifyWaste(ctx)
	if err != nil {
		t.Fatalf("IdentifyWaste() error = %v", err)
	}
	if len(records) != 1 || records[0].Item.ID != "expired" || records[0].Reason != model.WasteExpired {
		t.Fatalf("records = %+v, want only expired", records)
	}
	got, _ := s.GetItem("expired")
	if !got.Waste || got.WasteReason != model.WasteExpired {
		t.Fatalf("waste flag not persisted: %+v", got)
	}
	if got, _ := s.GetItem("today"); got.Waste {
		t.Fatalf("item expiring today must not be waste yet")
	}
}

func TestReturnPlanNeverExceedsMassBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := newTestState(t)
	for i := 0; i < 25; i++ {
		it := cube(fmt.Sprintf("w%02d", i), 5, 10, "")
		it.Mass = float64(rng.Intn(50) + 1)
		it.ExpiryDate = timePtr(missionStart.AddDate(0, 0, -1))
		mustAddCargo(t, s, it)
	}

	for _, budget := range []float64{1, 7.5, 40, 100, 333, 10000} {
		res, err := s.ReturnPlan(context.Background(), ReturnPlanRequest{MaxWeight: budget})
		if err != nil {
			t.Fatalf("ReturnPlan(%v) error = %v", budget, err)
		}
		sum := 0.0
		for _, st := range res.Plan.Steps {
			if st.Action != model.ActionReturn {
				t.Fatalf("step action = %v, want return", st.Action)
			}
			it, _ := s.GetItem(st.ItemID)
			sum += it.Mass
		}
		if sum > budget {
			t.Fatalf("budget %v: selected mass %v exceeds it", budget, sum)
		}
		if sum != res.Plan.TotalMass {
			t.Fatalf("budget %v: TotalMass %v, steps sum to %v", budget, res.Plan.TotalMass, sum)
		}
	}

	if _, err := s.ReturnPlan(context.Background(), ReturnPlanRequest{MaxWeight: 0}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("ReturnPlan(0) error = %v, want validation", err)
	}
}

func TestReturnPlanStagesAndUndockIsIdempotent(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()
	mustAddContainer(t, s, container("rack", "Storage", box(10, 30, 10)))
	mustAddContainer(t, s, container("undock", "Airlock", box(100, 100, 100)))

	keep := cube("keep", 10, 80, "Storage")
	old := cube("old", 10, 20, "Storage")
	old.ExpiryDate = timePtr(missionStart.AddDate(0, 0, -1))
	heavy := cube("heavy", 10, 20, "Storage")
	heavy.Mass = 500
	heavy.UsageLimit = intPtr(1)
	for _, it := range []*model.Item{keep, old, heavy} {
		mustAddCargo(t, s, it)
	}
	mustPlace(t, s, "keep", "rack", model.Coordinates{}, box(10, 10, 10))
	mustPlace(t, s, "old", "rack", model.Coordinates{Depth: 10}, box(10, 10, 10))
	if _, err := s.UseItem(ctx, "heavy", 1, "astro", missionStart); err != nil {
		t.Fatalf("UseItem(heavy) error = %v", err)
	}

	res, err := s.ReturnPlan(ctx, ReturnPlanRequest{UndockingContainerID: "undock", MaxWeight: 10})
	if err != nil {
		t.Fatalf("ReturnPlan() error = %v", err)
	}
	if len(res.Plan.Selected) != 1 || res.Plan.Selected[0].Item.ID != "old" {
		t.Fatalf("Selected = %+v, want old only", res.Plan.Selected)
	}
	if res.Plan.Steps[0].ContainerID != "rack" {
		t.Fatalf("return step source = %q, want rack", res.Plan.Steps[0].ContainerID)
	}
	if len(res.RetrievalSteps) != 3 || res.RetrievalSteps[0].ItemID != "keep" || res.RetrievalSteps[1].ItemID != "old" {
		t.Fatalf("RetrievalSteps = %+v", res.RetrievalSteps)
	}
	if res.Manifest.UndockingContainerID != "undock" || res.Manifest.TotalWeight != 1 {
		t.Fatalf("Manifest = %+v", res.Manifest)
	}
	staged, _ := s.GetItem("old")
	if staged.ReturnContainerID != "undock" {
		t.Fatalf("old not staged: %+v", staged)
	}

	removed, err := s.CompleteUndocking(ctx, "undock", "astro", missionStart)
	if err != nil {
		t.Fatalf("CompleteUndocking() error = %v", err)
	}
	if removed != 1 {
		t.Fatalf("first CompleteUndocking() = %d, want 1", removed)
	}
	if _, err := s.GetItem("old"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("old still present: %v", err)
	}
	removed, err = s.CompleteUndocking(ctx, "undock", "astro", missionStart)
	if err != nil || removed != 0 {
		t.Fatalf("second CompleteUndocking() = %d, %v; want 0, nil", removed, err)
	}

	if _, err := s.GetItem("heavy"); err != nil {
		t.Fatalf("unselected waste was removed: %v", err)
	}
	if _, err := s.CompleteUndocking(ctx, "nowhere", "astro", missionStart); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("CompleteUndocking(unknown) error = %v, want not found", err)
	}

	entries, _ := s.Logs(ctx, activity.Filter{Action: activity.ActionDisposal})
	if len(entries) != 1 || entries[0].ItemID != "old" || entries[0].Details.Reason != "Expired" {
		t.Fatalf("disposal log = %+v", entries)
	}
}

func TestUndockRemovesUnflaggedExpiredItems(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()
	mustAddContainer(t, s, container("pod", "Airlock", box(50, 50, 50)))
	stale := cube("stale", 10, 10, "")
	stale.ExpiryDate = timePtr(missionStart.AddDate(0, 0, -1))
	mustAddCargo(t, s, stale)
	mustAddCargo(t, s, cube("fresh", 10, 10, ""))
	mustPlace(t, s, "stale", "pod", model.Coordinates{}, box(10, 10, 10))
	mustPlace(t, s, "fresh", "pod", model.Coordinates{Width: 10}, box(10, 10, 10))

	removed, err := s.CompleteUndocking(ctx, "pod", "crew", missionStart)
	if err != nil || removed != 1 {
		t.Fatalf("CompleteUndocking() = %d, %v; want 1, nil", removed, err)
	}
	for id, want := range map[string]bool{"stale": false, "fresh": true} {
		res, err := s.Search(ctx, id)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", id, err)
		}
		if res.Found != want {
			t.Fatalf("Search(%q).Found = %v, want %v", id, res.Found, want)
		}
	}

	logs, err := s.Logs(ctx, activity.Filter{ItemID: "stale"})
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if len(logs) == 0 || logs[len(logs)-1].Action != activity.ActionDisposal {
		t.Fatalf("logs = %+v, want a trailing disposal entry", logs)
	}
}

func TestUndockRemovesWasteAlreadyInContainer(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()
	mustAddContainer(t, s, container("pod", "Airlock", box(50, 50, 50)))
	w := cube("w", 10, 10, "")
	w.ExpiryDate = timePtr(missionStart.AddDate(0, 0, -1))
	mustAddCargo(t, s, w)
	mustAddCargo(t, s, cube("ok", 10, 10, ""))
	mustPlace(t, s, "w", "pod", model.Coordinates{}, box(10, 10, 10))
	mustPlace(t, s, "ok", "pod", model.Coordinates{Width: 10}, box(10, 10, 10))

	if _, err := s.IdentifyWaste(ctx); err != nil {
		t.Fatalf("IdentifyWaste() error = %v", err)
	}
	removed, err := s.CompleteUndocking(ctx, "pod", "", missionStart)
	if err != nil || removed != 1 {
		t.Fatalf("CompleteUndocking() = %d, %v; want 1, nil", removed, err)
	}
	if got := core.IdentifyWaste(s.ListItems(), s.Now()); len(got) != 0 {
		t.Fatalf("waste left after undocking: %+v", got)
	}
}
