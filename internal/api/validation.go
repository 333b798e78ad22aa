package api

import (
	"fmt"
	"strings"

	"github.com/signalsfoundry/stowage/internal/api/types"
	"github.com/signalsfoundry/stowage/model"
)

// ErrInvalidRequest marks requests that are structurally incomplete.
var ErrInvalidRequest = fmt.Errorf("%w: invalid request", model.ErrValidation)

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	return nil
}

// ValidatePlaceRequest checks the fields a manual placement needs before the
// inventory applies its own bounds and overlap checks.
func ValidatePlaceRequest(req *types.PlaceRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if err := requireID("itemId", req.ItemID); err != nil {
		return err
	}
	if err := requireID("containerId", req.ContainerID); err != nil {
		return err
	}
	if req.Position == (types.Position{}) {
		return fmt.Errorf("%w: position is required", ErrInvalidRequest)
	}
	return nil
}

// ValidatePlacementRequest rejects empty batches.
func ValidatePlacementRequest(req *types.PlacementRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidRequest)
	}
	return nil
}

// ValidateSearchRequest requires an id or a name.
func ValidateSearchRequest(req *types.SearchRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.ItemID) == "" && strings.TrimSpace(req.ItemName) == "" {
		return fmt.Errorf("%w: itemId or itemName is required", ErrInvalidRequest)
	}
	return nil
}

// ValidateSimulateRequest checks schedule entries are well formed. Day range
// checks happen in the inventory.
func ValidateSimulateRequest(req *types.SimulateDayRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	for i, d := range req.ItemsToBeUsedPerDay {
		for _, id := range d.ItemIDs {
			if strings.TrimSpace(id) == "" {
				return fmt.Errorf("%w: itemsToBeUsedPerDay[%d] has an empty itemId", ErrInvalidRequest, i)
			}
		}
	}
	return nil
}
