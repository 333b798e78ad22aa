package core

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/signalsfoundry/stowage/model"
)

// ErrInvalidBudget indicates a return plan was requested with a
// non-positive mass budget or a negative volume budget.
var ErrInvalidBudget = fmt.Errorf("%w: invalid return budget", model.ErrValidation)

// WasteReasonAt evaluates an item against the mission date. Expiry wins when
// both conditions hold.
func WasteReasonAt(it *model.Item, now time.Time) (model.WasteReason, bool) {
	if it == nil {
		return model.WasteNone, false
	}
	if it.ExpiryDate != nil && now.After(*it.ExpiryDate) {
		return model.WasteExpired, true
	}
	if it.Limited() && *it.RemainingUses <= 0 {
		return model.WasteDepleted, true
	}
	return model.WasteNone, false
}

// WasteRecord pairs a waste item with the reason it qualifies.
type WasteRecord struct {
	Item   *model.Item
	Reason model.WasteReason
}

// IdentifyWaste scans items and returns every waste item ordered by id. Items
// already flagged keep their recorded reason. It does not modify the items.
func IdentifyWaste(items []*model.Item, now time.Time) []WasteRecord {
	var out []WasteRecord
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Waste {
			out = append(out, WasteRecord{Item: it, Reason: it.WasteReason})
			continue
		}
		if reason, ok := WasteReasonAt(it, now); ok {
			out = append(out, WasteRecord{Item: it, Reason: reason})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out
}

// ReturnBudget bounds a return plan. MaxVolume <= 0 means unconstrained.
type ReturnBudget struct {
	MaxWeight float64
	MaxVolume float64
}

// Validate rejects a non-positive mass budget or a negative volume budget.
func (b ReturnBudget) Validate() error {
	if math.IsNaN(b.MaxWeight) || b.MaxWeight <= 0 {
		return fmt.Errorf("%w: maxWeight must be > 0", ErrInvalidBudget)
	}
	if math.IsNaN(b.MaxVolume) || b.MaxVolume < 0 {
		return fmt.Errorf("%w: maxVolume must be >= 0", ErrInvalidBudget)
	}
	return nil
}

// ReturnPlan is the selected subset of waste and the steps to move it.
type ReturnPlan struct {
	Steps       []model.Step
	Selected    []WasteRecord
	TotalMass   float64
	TotalVolume float64
}

// PlanReturn picks waste greedily by ascending mass (id breaks ties), which
// maximises the number of items returned under the mass budget. When a
// volume budget is set, items that would exceed it are skipped and the scan
// continues with the next item.
func PlanReturn(records []WasteRecord, budget ReturnBudget) (*ReturnPlan, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}

	candidates := append([]WasteRecord(nil), records...)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Item, candidates[j].Item
		if a.Mass != b.Mass {
			return a.Mass < b.Mass
		}
		return a.ID < b.ID
	})

	plan := &ReturnPlan{}
	for _, rec := range candidates {
		it := rec.Item
		if plan.TotalMass+it.Mass > budget.MaxWeight+Epsilon {
			// Sorted by mass: nothing later fits either.
			break
		}
		vol := it.Dimensions.Volume()
		if budget.MaxVolume > 0 && plan.TotalVolume+vol > budget.MaxVolume+Epsilon {
			continue
		}
		plan.TotalMass += it.Mass
		plan.TotalVolume += vol
		plan.Selected = append(plan.Selected, rec)
		plan.Steps = append(plan.Steps, model.Step{
			Number:      len(plan.Steps) + 1,
			Action:      model.ActionReturn,
			ItemID:      it.ID,
			ItemName:    it.Name,
			ContainerID: it.ContainerID,
		})
	}
	return plan, nil
}
