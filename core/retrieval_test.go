package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/stowage/model"
)

func TestPlanRetrievalMirrorsRemovals(t *testing.T) {
	target := placedAt(item("t", 10, 10, 10, 50, ""), "c", pos(0, 30, 0, 10, 40, 10))
	others := []*model.Item{
		placedAt(item("far", 10, 10, 10, 50, ""), "c", pos(0, 20, 0, 10, 30, 10)),
		placedAt(item("near", 10, 10, 10, 50, ""), "c", pos(0, 0, 0, 10, 10, 10)),
		placedAt(item("beside", 10, 10, 10, 50, ""), "c", pos(10, 0, 0, 20, 10, 10)),
		placedAt(item("behind", 10, 10, 10, 50, ""), "c", pos(0, 40, 0, 10, 50, 10)),
		placedAt(item("elsewhere", 10, 10, 10, 50, ""), "other", pos(0, 0, 0, 10, 10, 10)),
		target,
	}

	steps, err := PlanRetrieval(target, others)
	if err != nil {
		t.Fatalf("PlanRetrieval() error = %v", err)
	}
	want := []struct {
		action model.StepAction
		id     string
	}{
		{model.ActionRemove, "near"},
		{model.ActionRemove, "far"},
		{model.ActionRetrieve, "t"},
		{model.ActionPlaceBack, "far"},
		{model.ActionPlaceBack, "near"},
	}
	if len(steps) != len(want) {
		t.Fatalf("steps = %+v", steps)
	}
	for i, w := range want {
		if steps[i].Action != w.action || steps[i].ItemID != w.id || steps[i].Number != i+1 {
			t.Fatalf("step %d = %+v, want %v %s", i+1, steps[i], w.action, w.id)
		}
	}
}

func TestPlanRetrievalUnobstructed(t *testing.T) {
	target := placedAt(item("t", 10, 10, 10, 50, ""), "c", pos(0, 0, 0, 10, 10, 10))
	steps, err := PlanRetrieval(target, []*model.Item{target})
	if err != nil {
		t.Fatalf("PlanRetrieval() error = %v", err)
	}
	if len(steps) != 1 || steps[0].Action != model.ActionRetrieve {
		t.Fatalf("steps = %+v, want a single retrieve", steps)
	}
}

func TestPlanRetrievalFailures(t *testing.T) {
	if _, err := PlanRetrieval(nil, nil); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("nil target error = %v", err)
	}
	if _, err := PlanRetrieval(item("u", 1, 1, 1, 1, ""), nil); !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("unplaced target error = %v", err)
	}
}

func TestObstructionsUsesFootprintOverlap(t *testing.T) {
	target := placedAt(item("t", 10, 10, 10, 50, ""), "c", pos(0, 30, 0, 10, 40, 10))
	others := []*model.Item{
		placedAt(item("offset", 10, 10, 10, 50, ""), "c", pos(5, 10, 5, 15, 20, 15)),
		placedAt(item("above", 10, 10, 10, 50, ""), "c", pos(0, 0, 10, 10, 10, 20)),
		placedAt(item("front", 10, 10, 10, 50, ""), "c", pos(2, 0, 2, 8, 5, 8)),
		item("loose", 10, 10, 10, 50, ""),
		nil,
		target,
	}

	got := Obstructions(target, others)
	if len(got) != 2 || got[0].ID != "front" || got[1].ID != "offset" {
		ids := make([]string, 0, len(got))
		for _, it := range got {
			ids = append(ids, it.ID)
		}
		t.Fatalf("Obstructions() = %v, want [front offset]", ids)
	}
	if Obstructions(item("u", 1, 1, 1, 1, ""), others) != nil {
		t.Fatalf("unplaced target should have no obstructions")
	}
}
