package kb

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/signalsfoundry/stowage/model"
)

var (
	// ErrItemExists indicates an item with the same ID is already stored.
	ErrItemExists = fmt.Errorf("%w: item already exists", model.ErrConflict)
	// ErrItemNotFound indicates a requested item was not found.
	ErrItemNotFound = fmt.Errorf("%w: item", model.ErrNotFound)
	// ErrContainerExists indicates a container with the same ID is already stored.
	ErrContainerExists = fmt.Errorf("%w: container already exists", model.ErrConflict)
	// ErrContainerNotFound indicates a requested container was not found.
	ErrContainerNotFound = fmt.Errorf("%w: container", model.ErrNotFound)
)

// KnowledgeBase is an in-memory, thread-safe store for containers and items.
//
// Items are stored by value semantics: every getter returns a clone and
// ApplyBatch stores clones, so callers can stage edits freely and commit them
// as one batch.
type KnowledgeBase struct {
	mu sync.RWMutex

	containers map[string]model.Container
	items      map[string]*model.Item
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		containers: make(map[string]model.Container),
		items:      make(map[string]*model.Item),
	}
}

// GetContainer returns the container with the given ID.
func (kb *KnowledgeBase) GetContainer(id string) (model.Container, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	c, ok := kb.containers[id]
	return c, ok
}

// ListContainers returns all containers ordered by ID.
func (kb *KnowledgeBase) ListContainers() []model.Container {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Container, 0, len(kb.containers))
	for _, c := range kb.containers {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// GetItem returns a copy of the item with the given ID, or nil if not found.
func (kb *KnowledgeBase) GetItem(id string) *model.Item {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.items[id].Clone()
}

// FindItemsByName returns copies of items whose name matches
// case-insensitively, ordered by ID.
func (kb *KnowledgeBase) FindItemsByName(name string) []*model.Item {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var res []*model.Item
	for _, it := range kb.items {
		if strings.EqualFold(it.Name, name) {
			res = append(res, it.Clone())
		}
	}
	sortItems(res)
	return res
}

// ListItems returns copies of all items ordered by ID.
func (kb *KnowledgeBase) ListItems() []*model.Item {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]*model.Item, 0, len(kb.items))
	for _, it := range kb.items {
		res = append(res, it.Clone())
	}
	sortItems(res)
	return res
}

// ItemsInContainer returns copies of the items placed in a container.
func (kb *KnowledgeBase) ItemsInContainer(containerID string) []*model.Item {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var res []*model.Item
	for _, it := range kb.items {
		if it.ContainerID == containerID {
			res = append(res, it.Clone())
		}
	}
	sortItems(res)
	return res
}

// Batch groups writes that must land together.
type Batch struct {
	Containers []model.Container
	NewItems   []*model.Item
	Updates    []*model.Item
	Deletes    []string
}

// CheckBatch reports the error ApplyBatch would return without writing.
func (kb *KnowledgeBase) CheckBatch(b Batch) error {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.checkBatchLocked(b)
}

// ApplyBatch writes containers, new items, updates and deletes in that order.
// Either the whole batch is applied or, on error, nothing is.
func (kb *KnowledgeBase) ApplyBatch(b Batch) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if err := kb.checkBatchLocked(b); err != nil {
		return err
	}
	for _, c := range b.Containers {
		kb.containers[c.ID] = c
	}
	for _, it := range b.NewItems {
		kb.items[it.ID] = it.Clone()
	}
	for _, it := range b.Updates {
		kb.items[it.ID] = it.Clone()
	}
	for _, id := range b.Deletes {
		delete(kb.items, id)
	}
	return nil
}

func (kb *KnowledgeBase) checkBatchLocked(b Batch) error {
	containers := make(map[string]bool, len(b.Containers))
	for _, c := range b.Containers {
		if _, exists := kb.containers[c.ID]; exists || containers[c.ID] {
			return fmt.Errorf("%w: %q", ErrContainerExists, c.ID)
		}
		containers[c.ID] = true
	}
	knownContainer := func(id string) bool {
		if id == "" || containers[id] {
			return true
		}
		_, ok := kb.containers[id]
		return ok
	}

	added := make(map[string]bool, len(b.NewItems))
	for _, it := range b.NewItems {
		if _, exists := kb.items[it.ID]; exists || added[it.ID] {
			return fmt.Errorf("%w: %q", ErrItemExists, it.ID)
		}
		if !knownContainer(it.ContainerID) {
			return fmt.Errorf("%w: %q", ErrContainerNotFound, it.ContainerID)
		}
		added[it.ID] = true
	}
	for _, it := range b.Updates {
		if _, ok := kb.items[it.ID]; !ok && !added[it.ID] {
			return fmt.Errorf("%w: %q", ErrItemNotFound, it.ID)
		}
		if !knownContainer(it.ContainerID) {
			return fmt.Errorf("%w: %q", ErrContainerNotFound, it.ContainerID)
		}
	}
	return nil
}

// Counts summarises the store for metrics.
type Counts struct {
	Items      int
	Placed     int
	Waste      int
	Containers int
}

// Counts returns current record counts.
func (kb *KnowledgeBase) Counts() Counts {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	c := Counts{Items: len(kb.items), Containers: len(kb.containers)}
	for _, it := range kb.items {
		if it.Placed() {
			c.Placed++
		}
		if it.Waste {
			c.Waste++
		}
	}
	return c
}

func sortItems(items []*model.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
