package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/signalsfoundry/stowage/model"
)

var (
	// ErrInvalidItem indicates an item record failed validation.
	ErrInvalidItem = fmt.Errorf("%w: invalid item", model.ErrValidation)
	// ErrInvalidContainer indicates a container record failed validation.
	ErrInvalidContainer = fmt.Errorf("%w: invalid container", model.ErrValidation)
	// ErrInvalidPosition indicates a malformed position.
	ErrInvalidPosition = fmt.Errorf("%w: invalid position", model.ErrValidation)
)

// ValidateItem checks the static fields of a new item.
func ValidateItem(it *model.Item) error {
	if it == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}
	var problems []string
	if strings.TrimSpace(it.ID) == "" {
		problems = append(problems, "itemId is required")
	}
	if !finiteDims(it.Dimensions) || !it.Dimensions.Valid() {
		problems = append(problems, "width, depth and height must be > 0")
	}
	if math.IsNaN(it.Mass) || math.IsInf(it.Mass, 0) || it.Mass <= 0 {
		problems = append(problems, "mass must be > 0")
	}
	if it.Priority < model.MinPriority || it.Priority > model.MaxPriority {
		problems = append(problems, fmt.Sprintf("priority must be in [%d,%d]", model.MinPriority, model.MaxPriority))
	}
	if it.UsageLimit != nil && *it.UsageLimit < 1 {
		problems = append(problems, "usageLimit must be >= 1 when set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidItem, it.ID, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateContainer checks a new container record.
func ValidateContainer(c model.Container) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: containerId is required", ErrInvalidContainer)
	}
	if !finiteDims(c.Dimensions) || !c.Dimensions.Valid() {
		return fmt.Errorf("%w %q: width, depth and height must be > 0", ErrInvalidContainer, c.ID)
	}
	return nil
}

// ValidatePosition checks that p is a proper box (End > Start on every axis,
// no negative coordinates).
func ValidatePosition(p model.Position) error {
	ext := p.Extents()
	if !finiteDims(ext) || !ext.Valid() {
		return fmt.Errorf("%w: end must exceed start on every axis", ErrInvalidPosition)
	}
	if p.Start.Width < -Epsilon || p.Start.Depth < -Epsilon || p.Start.Height < -Epsilon {
		return fmt.Errorf("%w: negative start coordinate", ErrInvalidPosition)
	}
	return nil
}

func finiteDims(d model.Dimensions) bool {
	for _, v := range []float64{d.Width, d.Depth, d.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
