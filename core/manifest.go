// core/manifest.go
package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signalsfoundry/stowage/model"
)

// Manifest is the set of containers and items read from an import file.
// Records are returned as-is; the inventory validates them on insertion.
type Manifest struct {
	Containers []model.Container
	Items      []*model.Item
}

// internal JSON shapes – keep them unexported so we’re free to evolve them.
type manifestJSON struct {
	Containers []containerJSON `json:"containers"`
	Items      []itemJSON      `json:"items"`
}

type containerJSON struct {
	ContainerID string  `json:"containerId"`
	Zone        string  `json:"zone"`
	Width       float64 `json:"width"`
	Depth       float64 `json:"depth"`
	Height      float64 `json:"height"`
}

type itemJSON struct {
	ItemID        string  `json:"itemId"`
	Name          string  `json:"name"`
	Width         float64 `json:"width"`
	Depth         float64 `json:"depth"`
	Height        float64 `json:"height"`
	Mass          float64 `json:"mass"`
	Priority      int     `json:"priority"`
	PreferredZone string  `json:"preferredZone"`
	// UsageLimit of 0 or absent means unlimited.
	UsageLimit int    `json:"usageLimit,omitempty"`
	ExpiryDate string `json:"expiryDate,omitempty"`
}

// LoadManifest decodes a JSON manifest from r.
//
// It fails only on JSON / structural errors (empty ids, unparseable dates).
// Range checks are left to the inventory so that manifest loading and direct
// AddCargo calls behave the same way.
func LoadManifest(r io.Reader) (*Manifest, error) {
	var payload manifestJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadManifest: decode failed: %w", err)
	}

	m := &Manifest{
		Containers: make([]model.Container, 0, len(payload.Containers)),
		Items:      make([]*model.Item, 0, len(payload.Items)),
	}

	for _, c := range payload.Containers {
		if strings.TrimSpace(c.ContainerID) == "" {
			return nil, fmt.Errorf("LoadManifest: container with empty containerId")
		}
		m.Containers = append(m.Containers, model.Container{
			ID:         c.ContainerID,
			Zone:       model.Zone(strings.TrimSpace(c.Zone)),
			Dimensions: model.Dimensions{Width: c.Width, Depth: c.Depth, Height: c.Height},
		})
	}

	for _, js := range payload.Items {
		if strings.TrimSpace(js.ItemID) == "" {
			return nil, fmt.Errorf("LoadManifest: item with empty itemId")
		}
		it := &model.Item{
			ID:            js.ItemID,
			Name:          js.Name,
			Dimensions:    model.Dimensions{Width: js.Width, Depth: js.Depth, Height: js.Height},
			Mass:          js.Mass,
			Priority:      js.Priority,
			PreferredZone: model.Zone(strings.TrimSpace(js.PreferredZone)),
		}
		if js.UsageLimit > 0 {
			limit := js.UsageLimit
			it.UsageLimit = &limit
		}
		if js.ExpiryDate != "" {
			exp, err := ParseDate(js.ExpiryDate)
			if err != nil {
				return nil, fmt.Errorf("LoadManifest: item %q: %w", js.ItemID, err)
			}
			it.ExpiryDate = &exp
		}
		m.Items = append(m.Items, it)
	}

	return m, nil
}

// ParseDate accepts either a calendar date (2006-01-02) or an RFC 3339
// timestamp and returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparseable date %q", model.ErrValidation, s)
	}
	return t.UTC(), nil
}
