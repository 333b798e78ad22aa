package state

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/model"
)

// PlaceRequest is a manual placement confirmed by an operator.
type PlaceRequest struct {
	ItemID      string
	UserID      string
	Timestamp   time.Time
	ContainerID string
	Position    model.Position
}

// Place puts an item at an explicit position. The item may already be placed
// elsewhere, in which case it moves. Waste items may be placed manually, e.g.
// to stage them in an undocking container.
func (s *CargoState) Place(ctx context.Context, req PlaceRequest) error {
	if err := core.ValidatePosition(req.Position); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.kb.GetItem(req.ItemID)
	if it == nil {
		return fmt.Errorf("%w: %q", ErrItemNotFound, req.ItemID)
	}
	c, ok := s.kb.GetContainer(req.ContainerID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrContainerNotFound, req.ContainerID)
	}
	if !core.MatchesDimensions(req.Position, it.Dimensions) {
		return fmt.Errorf("%w: item %q", ErrDimensionMismatch, it.ID)
	}
	if !core.WithinBounds(c, req.Position) {
		return fmt.Errorf("%w: item %q in %q", ErrOutOfBounds, it.ID, c.ID)
	}
	for _, other := range s.kb.ItemsInContainer(c.ID) {
		if other.ID == it.ID || !other.Placed() {
			continue
		}
		if core.BoxesOverlap(*other.Position, req.Position) {
			return fmt.Errorf("%w: %q would overlap %q in %q", ErrOverlap, it.ID, other.ID, c.ID)
		}
	}

	from := it.ContainerID
	t := s.beginLocked(req.Timestamp)
	it.PlaceAt(c.ID, req.Position)
	t.stage(it)
	t.record(req.UserID, activity.ActionPlacement, it.ID, activity.Details{FromContainer: from, ToContainer: c.ID})
	if err := s.commitLocked(ctx, t); err != nil {
		return err
	}
	s.logger(ctx).Info(ctx, "item placed",
		logging.ItemID(it.ID),
		logging.ContainerID(c.ID),
		logging.UserID(req.UserID),
	)
	return nil
}

// Retrieve takes a placed item out of its container. Only the target moves;
// the obstruction steps reported by Search are operator guidance.
func (s *CargoState) Retrieve(ctx context.Context, itemID, userID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.kb.GetItem(itemID)
	if it == nil {
		return fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	if !it.Placed() {
		return fmt.Errorf("%w: %q", ErrItemNotPlaced, itemID)
	}

	t := s.beginLocked(ts)
	from := it.ContainerID
	it.Unplace()
	it.LastRetrieved = &model.Retrieval{UserID: userID, Timestamp: t.now}
	it.RetrievalCount++
	t.stage(it)
	t.record(userID, activity.ActionRetrieval, it.ID, activity.Details{FromContainer: from})
	if err := s.commitLocked(ctx, t); err != nil {
		return err
	}
	s.logger(ctx).Info(ctx, "item retrieved",
		logging.ItemID(it.ID),
		logging.ContainerID(from),
		logging.UserID(userID),
	)
	return nil
}

// PlacementRequest asks the optimizer to place a batch of items. Unknown
// containers are registered; unknown items are created. Known items keep
// their stored record and are only looked up by ID.
type PlacementRequest struct {
	Items      []*model.Item
	Containers []model.Container
	UserID     string
	Timestamp  time.Time
}

// Placement runs the optimizer over the requested items and commits every
// successful placement and rearrangement. Items that cannot be placed are
// reported in the result's Failures and stay unplaced. Invalid records fail
// the whole request before anything changes.
func (s *CargoState) Placement(ctx context.Context, req PlacementRequest) (*core.BatchResult, error) {
	for _, c := range req.Containers {
		if err := core.ValidateContainer(c); err != nil {
			return nil, err
		}
	}
	seen := make(map[string]struct{}, len(req.Items))
	for _, it := range req.Items {
		if err := core.ValidateItem(it); err != nil {
			return nil, err
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: item %q listed twice", model.ErrValidation, it.ID)
		}
		seen[it.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.beginLocked(req.Timestamp)

	containers := s.kb.ListContainers()
	known := make(map[string]model.Container, len(containers))
	for _, c := range containers {
		known[c.ID] = c
	}
	for _, c := range req.Containers {
		if existing, ok := known[c.ID]; ok {
			if existing != c {
				return nil, fmt.Errorf("%w: %q", ErrContainerMismatch, c.ID)
			}
			continue
		}
		known[c.ID] = c
		containers = append(containers, c)
		t.newContainers = append(t.newContainers, c)
	}

	current := s.kb.ListItems()
	byID := make(map[string]*model.Item, len(current)+len(req.Items))
	for _, it := range current {
		byID[it.ID] = it
	}
	batch := make([]*model.Item, 0, len(req.Items))
	for _, in := range req.Items {
		if it, ok := byID[in.ID]; ok {
			batch = append(batch, it)
			continue
		}
		it := newCargo(in)
		t.add(it)
		t.record(req.UserID, activity.ActionAddCargo, it.ID, activity.Details{})
		byID[it.ID] = it
		batch = append(batch, it)
	}

	layout := core.NewLayout(containers, current)
	started := time.Now()
	res := layout.PlaceBatch(batch)
	elapsed := time.Since(started)

	rearranged := make(map[string]bool, len(res.Rearrangements))
	for _, r := range res.Rearrangements {
		rearranged[r.ItemID] = true
		t.record(req.UserID, activity.ActionRearrangement, r.ItemID, activity.Details{
			FromContainer: r.FromContainer,
			ToContainer:   r.ToContainer,
			Reason:        r.Reason,
		})
	}
	positions := layout.Positions()
	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := positions[id]
		it := byID[id]
		if it == nil {
			continue
		}
		if it.Placed() && it.ContainerID == p.ContainerID && *it.Position == p.Position {
			continue
		}
		from := it.ContainerID
		it.PlaceAt(p.ContainerID, p.Position)
		t.stage(it)
		if !rearranged[id] || from == "" {
			t.record(req.UserID, activity.ActionPlacement, id, activity.Details{FromContainer: from, ToContainer: p.ContainerID})
		}
	}

	if err := s.commitLocked(ctx, t); err != nil {
		return nil, err
	}
	s.logger(ctx).Info(ctx, "placement batch committed",
		logging.Int("placed", len(res.Placements)),
		logging.Int("rearranged", len(res.Rearrangements)),
		logging.Int("failed", len(res.Failures)),
		logging.Duration("elapsed", elapsed),
	)
	if s.planner != nil {
		s.planner.ObservePlacement(elapsed, len(res.Rearrangements), len(res.Failures))
	}
	return res, nil
}
