package core

import (
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/stowage/model"
)

func TestWasteReasonAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	zero, two := 0, 2
	yesterday := now.AddDate(0, 0, -1)

	tests := []struct {
		name   string
		item   model.Item
		want   model.WasteReason
		wantOK bool
	}{
		{name: "fresh", item: model.Item{}, want: model.WasteNone},
		{name: "expires today", item: model.Item{ExpiryDate: &now}, want: model.WasteNone},
		{name: "expired", item: model.Item{ExpiryDate: &yesterday}, want: model.WasteExpired, wantOK: true},
		{name: "depleted", item: model.Item{UsageLimit: &two, RemainingUses: &zero}, want: model.WasteDepleted, wantOK: true},
		{name: "expiry wins", item: model.Item{ExpiryDate: &yesterday, UsageLimit: &two, RemainingUses: &zero}, want: model.WasteExpired, wantOK: true},
		{name: "uses left", item: model.Item{UsageLimit: &two, RemainingUses: &two}, want: model.WasteNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := WasteReasonAt(&tc.item, now)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("WasteReasonAt() = %v, %v; want %v, %v", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func wasteRecord(id string, mass, side float64) WasteRecord {
	it := item(id, side, side, side, 1, "")
	it.Mass = mass
	return WasteRecord{Item: it, Reason: model.WasteExpired}
}

func TestPlanReturnGreedyByMass(t *testing.T) {
	records := []WasteRecord{
		wasteRecord("heavy", 30, 1),
		wasteRecord("b", 5, 1),
		wasteRecord("a", 5, 1),
		wasteRecord("mid", 12, 1),
	}
	plan, err := PlanReturn(records, ReturnBudget{MaxWeight: 25})
	if err != nil {
		t.Fatalf("PlanReturn() error = %v", err)
	}
	var ids []string
	for _, st := range plan.Steps {
		ids = append(ids, st.ItemID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "mid" {
		t.Fatalf("selected %v, want [a b mid]", ids)
	}
	if plan.TotalMass != 22 {
		t.Fatalf("TotalMass = %v, want 22", plan.TotalMass)
	}
}

func TestPlanReturnVolumeBudgetSkips(t *testing.T) {
	records := []WasteRecord{
		wasteRecord("bulky", 1, 10),
		wasteRecord("small", 2, 1),
	}
	plan, err := PlanReturn(records, ReturnBudget{MaxWeight: 100, MaxVolume: 50})
	if err != nil {
		t.Fatalf("PlanReturn() error = %v", err)
	}
	if len(plan.Selected) != 1 || plan.Selected[0].Item.ID != "small" {
		t.Fatalf("Selected = %+v, want small only", plan.Selected)
	}
	if plan.TotalVolume != 1 {
		t.Fatalf("TotalVolume = %v, want 1", plan.TotalVolume)
	}
}

func TestPlanReturnRejectsBadBudget(t *testing.T) {
	for _, b := range []ReturnBudget{{MaxWeight: 0}, {MaxWeight: -1}, {MaxWeight: 1, MaxVolume: -1}} {
		if _, err := PlanReturn(nil, b); !errors.Is(err, ErrInvalidBudget) || !errors.Is(err, model.ErrValidation) {
			t.Fatalf("PlanReturn(%+v) error = %v, want ErrInvalidBudget", b, err)
		}
	}
}
