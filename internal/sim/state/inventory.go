package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/model"
)

// AddContainer registers a new container.
func (s *CargoState) AddContainer(ctx context.Context, c model.Container) error {
	if err := core.ValidateContainer(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.kb.GetContainer(c.ID); exists {
		return fmt.Errorf("%w: %q", ErrContainerExists, c.ID)
	}
	t := s.beginLocked(s.clock.Now())
	t.newContainers = append(t.newContainers, c)
	if err := s.commitLocked(ctx, t); err != nil {
		return err
	}
	s.logger(ctx).Debug(ctx, "container added",
		logging.ContainerID(c.ID),
		logging.Zone("zone", string(c.Zone)),
	)
	return nil
}

// ListContainers returns every container ordered by ID.
func (s *CargoState) ListContainers() []model.Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kb.ListContainers()
}

// GetItem returns a copy of the item.
func (s *CargoState) GetItem(id string) (*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it := s.kb.GetItem(id)
	if it == nil {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, id)
	}
	return it, nil
}

// ListItems returns copies of all items ordered by ID.
func (s *CargoState) ListItems() []*model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kb.ListItems()
}

// AddCargo registers a new, unplaced item. RemainingUses is initialised from
// UsageLimit; placement and waste fields on the input are ignored.
func (s *CargoState) AddCargo(ctx context.Context, it *model.Item, userID string) error {
	if err := core.ValidateItem(it); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kb.GetItem(it.ID) != nil {
		return fmt.Errorf("%w: %q", ErrItemExists, it.ID)
	}
	t := s.beginLocked(s.clock.Now())
	t.add(newCargo(it))
	t.record(userID, activity.ActionAddCargo, it.ID, activity.Details{})
	if err := s.commitLocked(ctx, t); err != nil {
		return err
	}
	s.logger(ctx).Info(ctx, "cargo added",
		logging.ItemID(it.ID),
		logging.Zone("preferred_zone", string(it.PreferredZone)),
		logging.Int("priority", it.Priority),
	)
	return nil
}

// newCargo returns the stored form of a freshly imported item.
func newCargo(in *model.Item) *model.Item {
	it := in.Clone()
	it.Unplace()
	it.Waste = false
	it.WasteReason = model.WasteNone
	it.ReturnContainerID = ""
	it.LastRetrieved = nil
	it.RetrievalCount = 0
	if it.UsageLimit != nil {
		remaining := *it.UsageLimit
		it.RemainingUses = &remaining
	} else {
		it.RemainingUses = nil
	}
	return it
}

// ImportError describes one manifest record that was rejected.
type ImportError struct {
	Record string
	Err    error
}

// ImportResult reports what a manifest import added.
type ImportResult struct {
	ContainersImported int
	ItemsImported      int
	Errors             []ImportError
}

// ImportManifest adds every container and item of m. Each record is its own
// transaction: a rejected record is reported and the rest still import.
func (s *CargoState) ImportManifest(ctx context.Context, m *core.Manifest, userID string) *ImportResult {
	res := &ImportResult{}
	if m == nil {
		return res
	}
	for _, c := range m.Containers {
		if err := s.AddContainer(ctx, c); err != nil {
			res.Errors = append(res.Errors, ImportError{Record: "container " + c.ID, Err: err})
			continue
		}
		res.ContainersImported++
	}
	for _, it := range m.Items {
		if err := s.AddCargo(ctx, it, userID); err != nil {
			id := ""
			if it != nil {
				id = it.ID
			}
			res.Errors = append(res.Errors, ImportError{Record: "item " + id, Err: err})
			continue
		}
		res.ItemsImported++
	}
	s.logger(ctx).Info(ctx, "manifest imported",
		logging.Int("containers", res.ContainersImported),
		logging.Int("items", res.ItemsImported),
		logging.Int("rejected", len(res.Errors)),
	)
	return res
}

// SearchResult locates an item and carries the steps needed to take it out.
type SearchResult struct {
	Found     bool
	Item      *model.Item
	Container *model.Container
	Steps     []model.Step
}

// Search looks an item up by ID. A missing item is reported with Found=false
// rather than an error.
func (s *CargoState) Search(ctx context.Context, itemID string) (*SearchResult, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, fmt.Errorf("%w: itemId is required", model.ErrValidation)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	it := s.kb.GetItem(itemID)
	if it == nil {
		return &SearchResult{}, nil
	}
	return s.describeLocked(it)
}

// SearchByName finds items by case-insensitive name. When several match, the
// placed one with the fewest obstructions wins (ID breaks ties); unplaced
// matches are only returned when none is placed.
func (s *CargoState) SearchByName(ctx context.Context, name string) (*SearchResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: itemName is required", model.ErrValidation)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.kb.FindItemsByName(name)
	if len(matches) == 0 {
		return &SearchResult{}, nil
	}

	var best *model.Item
	bestCount := -1
	for _, it := range matches {
		if !it.Placed() {
			continue
		}
		n := core.CountObstructions(it, s.kb.ItemsInContainer(it.ContainerID))
		if best == nil || n < bestCount {
			best, bestCount = it, n
		}
	}
	if best == nil {
		best = matches[0]
	}
	return s.describeLocked(best)
}

func (s *CargoState) describeLocked(it *model.Item) (*SearchResult, error) {
	res := &SearchResult{Found: true, Item: it}
	if !it.Placed() {
		return res, nil
	}
	if c, ok := s.kb.GetContainer(it.ContainerID); ok {
		res.Container = &c
	}
	steps, err := core.PlanRetrieval(it, s.kb.ItemsInContainer(it.ContainerID))
	if err != nil {
		return nil, err
	}
	res.Steps = steps
	return res, nil
}
