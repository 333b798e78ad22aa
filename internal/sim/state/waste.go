package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/model"
)

// IdentifyWaste evaluates every item against the mission date, persists the
// waste flag on items that newly qualify and returns all waste ordered by ID.
func (s *CargoState) IdentifyWaste(ctx context.Context) ([]core.WasteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.beginLocked(s.clock.Now())
	records := s.identifyWasteLocked(t)
	if err := s.commitLocked(ctx, t); err != nil {
		return nil, err
	}
	if n := len(t.order); n > 0 {
		s.logger(ctx).Info(ctx, "waste flagged", logging.Int("newly_flagged", n), logging.Int("total", len(records)))
	}
	return records, nil
}

// identifyWasteLocked stages the waste flag on newly qualifying items and
// returns every waste record with the staged copies.
func (s *CargoState) identifyWasteLocked(t *txn) []core.WasteRecord {
	records := core.IdentifyWaste(s.kb.ListItems(), s.clock.Now())
	for _, rec := range records {
		if rec.Item.Waste {
			continue
		}
		it := rec.Item
		it.Waste = true
		it.WasteReason = rec.Reason
		t.stage(it)
	}
	return records
}

// ReturnPlanRequest bounds a return plan. When UndockingContainerID is set the
// selected items are staged for that container and CompleteUndocking on it
// will dispose of them.
type ReturnPlanRequest struct {
	UndockingContainerID string
	MaxWeight            float64
	MaxVolume            float64
	UserID               string
	Timestamp            time.Time
}

// ReturnManifest lists what leaves with the undocking container.
type ReturnManifest struct {
	UndockingContainerID string
	UndockingDate        time.Time
	Items                []core.WasteRecord
	TotalVolume          float64
	TotalWeight          float64
}

// ReturnPlanResult carries the selection, the per-item return steps and, for
// each selected placed item, the retrieval steps needed to reach it.
type ReturnPlanResult struct {
	Plan           *core.ReturnPlan
	RetrievalSteps []model.Step
	Manifest       ReturnManifest
}

// ReturnPlan selects waste for return under the mass (and optional volume)
// budget. Newly qualifying waste is flagged first.
func (s *CargoState) ReturnPlan(ctx context.Context, req ReturnPlanRequest) (*ReturnPlanResult, error) {
	budget := core.ReturnBudget{MaxWeight: req.MaxWeight, MaxVolume: req.MaxVolume}
	if err := budget.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	undock := strings.TrimSpace(req.UndockingContainerID)
	if undock != "" {
		if _, ok := s.kb.GetContainer(undock); !ok {
			return nil, fmt.Errorf("%w: %q", ErrContainerNotFound, undock)
		}
	}

	t := s.beginLocked(req.Timestamp)
	records := s.identifyWasteLocked(t)
	plan, err := core.PlanReturn(records, budget)
	if err != nil {
		return nil, err
	}

	res := &ReturnPlanResult{
		Plan: plan,
		Manifest: ReturnManifest{
			UndockingContainerID: undock,
			UndockingDate:        t.now,
			Items:                plan.Selected,
			TotalVolume:          plan.TotalVolume,
			TotalWeight:          plan.TotalMass,
		},
	}
	for _, rec := range plan.Selected {
		it := rec.Item
		if it.Placed() {
			steps, err := core.PlanRetrieval(it, s.kb.ItemsInContainer(it.ContainerID))
			if err != nil {
				return nil, err
			}
			for _, st := range steps {
				st.Number = len(res.RetrievalSteps) + 1
				res.RetrievalSteps = append(res.RetrievalSteps, st)
			}
		}
		if undock != "" && it.ReturnContainerID != undock {
			it.ReturnContainerID = undock
			t.stage(it)
		}
	}

	if err := s.commitLocked(ctx, t); err != nil {
		return nil, err
	}
	s.logger(ctx).Info(ctx, "return plan built",
		logging.Int("selected", len(plan.Selected)),
		logging.Float("total_mass", plan.TotalMass),
		logging.Float("total_volume", plan.TotalVolume),
		logging.String("undocking_container_id", undock),
	)
	if s.planner != nil {
		s.planner.SetReturnPlanSelected(len(plan.Selected))
	}
	return res, nil
}

// CompleteUndocking permanently removes every waste item placed in or staged
// for the container and returns how many were removed. Items that qualify as
// waste at the mission date count even if they were never flagged. Repeating the call is
// not an error and removes nothing.
func (s *CargoState) CompleteUndocking(ctx context.Context, containerID, userID string, ts time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kb.GetContainer(containerID); !ok {
		return 0, fmt.Errorf("%w: %q", ErrContainerNotFound, containerID)
	}

	t := s.beginLocked(ts)
	for _, rec := range s.identifyWasteLocked(t) {
		it := rec.Item
		if it.ContainerID != containerID && it.ReturnContainerID != containerID {
			continue
		}
		t.deletes = append(t.deletes, it.ID)
		t.record(userID, activity.ActionDisposal, it.ID, activity.Details{
			FromContainer: it.ContainerID,
			ToContainer:   containerID,
			Reason:        it.WasteReason.String(),
		})
	}
	if err := s.commitLocked(ctx, t); err != nil {
		return 0, err
	}
	s.logger(ctx).Info(ctx, "undocking completed",
		logging.ContainerID(containerID),
		logging.Int("items_removed", len(t.deletes)),
	)
	return len(t.deletes), nil
}
