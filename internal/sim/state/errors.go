package state

import (
	"fmt"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/kb"
	"github.com/signalsfoundry/stowage/model"
	"github.com/signalsfoundry/stowage/timectrl"
)

// Re-export the store and planner sentinels so callers can depend on state.*
// instead of reaching into kb or core.
var (
	// ErrItemExists indicates an item with the same ID already exists.
	ErrItemExists = kb.ErrItemExists
	// ErrItemNotFound indicates a requested item was not found.
	ErrItemNotFound = kb.ErrItemNotFound
	// ErrContainerExists indicates a container with the same ID already exists.
	ErrContainerExists = kb.ErrContainerExists
	// ErrContainerNotFound indicates a requested container was not found.
	ErrContainerNotFound = kb.ErrContainerNotFound
	// ErrItemNotPlaced indicates the item is not in any container.
	ErrItemNotPlaced = core.ErrItemNotPlaced
	// ErrNoContainer indicates placement failed even after rearrangement.
	ErrNoContainer = core.ErrNoContainer
)

var (
	// ErrOverlap indicates a manual placement would intersect another item.
	ErrOverlap = fmt.Errorf("%w: position overlaps another item", model.ErrConflict)
	// ErrOutOfBounds indicates a manual placement leaves the container.
	ErrOutOfBounds = fmt.Errorf("%w: position is outside the container", model.ErrValidation)
	// ErrDimensionMismatch indicates a position that is not an orientation
	// of the item's dimensions.
	ErrDimensionMismatch = fmt.Errorf("%w: position does not match item dimensions", model.ErrValidation)
	// ErrContainerMismatch indicates a re-submitted container whose zone or
	// dimensions differ from the registered one.
	ErrContainerMismatch = fmt.Errorf("%w: container differs from registered definition", model.ErrConflict)
	// ErrUnlimitedItem indicates a usage event for an item without a usage
	// limit.
	ErrUnlimitedItem = fmt.Errorf("%w: item has no usage limit", model.ErrInvalidState)
	// ErrAlreadyWaste indicates an operation that is not allowed on waste.
	ErrAlreadyWaste = fmt.Errorf("%w: item is already waste", model.ErrInvalidState)
	// ErrInvalidDays indicates a simulation of zero or negative days.
	ErrInvalidDays = fmt.Errorf("%w: %w", model.ErrInvalidState, timectrl.ErrInvalidDays)
	// ErrInvalidCount indicates a non-positive usage count.
	ErrInvalidCount = fmt.Errorf("%w: usage count must be >= 1", model.ErrValidation)
	// ErrInvalidSchedule indicates a usage schedule day outside the batch.
	ErrInvalidSchedule = fmt.Errorf("%w: invalid usage schedule", model.ErrValidation)
)
