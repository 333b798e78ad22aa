package core

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/stowage/model"
)

var (
	// ErrItemMissing indicates the retrieval target does not exist.
	ErrItemMissing = fmt.Errorf("%w: item", model.ErrNotFound)
	// ErrItemNotPlaced indicates the target has no container (never placed
	// or already retrieved).
	ErrItemNotPlaced = fmt.Errorf("%w: item is not in a container", model.ErrInvalidState)
)

// Obstructions returns the items that must come out before target can be
// extracted: same container, entirely between the opening (depth 0) and the
// target's front face, with a width x height footprint that overlaps the
// target's. The result is ordered nearest the opening first.
func Obstructions(target *model.Item, others []*model.Item) []*model.Item {
	if !target.Placed() {
		return nil
	}
	front := target.Position.Start.Depth

	var blocking []*model.Item
	for _, o := range others {
		if o == nil || o.ID == target.ID || !o.Placed() || o.ContainerID != target.ContainerID {
			continue
		}
		if o.Position.End.Depth > front+Epsilon {
			continue
		}
		if !FootprintsOverlap(*o.Position, *target.Position) {
			continue
		}
		blocking = append(blocking, o)
	}

	sort.SliceStable(blocking, func(i, j int) bool {
		a, b := blocking[i].Position.Start.Depth, blocking[j].Position.Start.Depth
		if a != b {
			return a < b
		}
		return blocking[i].ID < blocking[j].ID
	})
	return blocking
}

// PlanRetrieval builds the advisory extraction plan for target: one remove
// step per obstruction (nearest first), the retrieve step, then place-back
// steps mirroring the removals in reverse so the prior arrangement is
// restored. others may include target; it is skipped.
func PlanRetrieval(target *model.Item, others []*model.Item) ([]model.Step, error) {
	if target == nil {
		return nil, ErrItemMissing
	}
	if !target.Placed() {
		return nil, fmt.Errorf("%w: %q", ErrItemNotPlaced, target.ID)
	}

	blocking := Obstructions(target, others)
	steps := make([]model.Step, 0, 2*len(blocking)+1)
	next := func(action model.StepAction, it *model.Item) {
		steps = append(steps, model.Step{
			Number:      len(steps) + 1,
			Action:      action,
			ItemID:      it.ID,
			ItemName:    it.Name,
			ContainerID: it.ContainerID,
		})
	}

	for _, b := range blocking {
		next(model.ActionRemove, b)
	}
	next(model.ActionRetrieve, target)
	for i := len(blocking) - 1; i >= 0; i-- {
		next(model.ActionPlaceBack, blocking[i])
	}
	return steps, nil
}

// CountObstructions is the number of remove steps a retrieval of target
// would need.
func CountObstructions(target *model.Item, others []*model.Item) int {
	return len(Obstructions(target, others))
}
