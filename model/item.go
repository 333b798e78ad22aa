package model

import "time"

// Priority bounds. Higher priority items are placed closer to the opening.
const (
	MinPriority = 1
	MaxPriority = 100
)

// WasteReason explains why an item was classified as waste.
type WasteReason int

const (
	// WasteNone is the zero value; the item is not waste.
	WasteNone WasteReason = iota
	// WasteExpired means the expiry date has passed.
	WasteExpired
	// WasteDepleted means the usage allowance is exhausted.
	WasteDepleted
)

func (r WasteReason) String() string {
	switch r {
	case WasteExpired:
		return "Expired"
	case WasteDepleted:
		return "Depleted"
	default:
		return ""
	}
}

// Retrieval records who last took an item out and when.
type Retrieval struct {
	UserID    string
	Timestamp time.Time
}

// Item is a single cargo record.
//
// ContainerID and Position are set together: an empty ContainerID means the
// item is unplaced (never stowed, or retrieved). Waste and WasteReason are
// derived from ExpiryDate / RemainingUses and are only written by the waste
// engine and the time simulator.
type Item struct {
	ID            string
	Name          string
	Dimensions    Dimensions
	Mass          float64
	Priority      int
	PreferredZone Zone

	// UsageLimit is nil for unlimited items. RemainingUses is non-nil iff
	// UsageLimit is, and only ever decreases.
	UsageLimit    *int
	RemainingUses *int
	ExpiryDate    *time.Time

	ContainerID string
	Position    *Position

	Waste       bool
	WasteReason WasteReason
	// ReturnContainerID is set when a return plan staged the item for
	// undocking with that container.
	ReturnContainerID string

	LastRetrieved  *Retrieval
	RetrievalCount int
}

// Placed reports whether the item currently sits in a container.
func (it *Item) Placed() bool {
	return it != nil && it.ContainerID != "" && it.Position != nil
}

// Limited reports whether the item has a usage allowance.
func (it *Item) Limited() bool {
	return it != nil && it.UsageLimit != nil && it.RemainingUses != nil
}

// Clone returns a deep copy so callers can stage changes without touching
// the stored record.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	cp := *it
	if it.UsageLimit != nil {
		v := *it.UsageLimit
		cp.UsageLimit = &v
	}
	if it.RemainingUses != nil {
		v := *it.RemainingUses
		cp.RemainingUses = &v
	}
	if it.ExpiryDate != nil {
		v := *it.ExpiryDate
		cp.ExpiryDate = &v
	}
	if it.Position != nil {
		v := *it.Position
		cp.Position = &v
	}
	if it.LastRetrieved != nil {
		v := *it.LastRetrieved
		cp.LastRetrieved = &v
	}
	return &cp
}

// Unplace clears the container assignment.
func (it *Item) Unplace() {
	it.ContainerID = ""
	it.Position = nil
}

// PlaceAt assigns the item to a container position.
func (it *Item) PlaceAt(containerID string, pos Position) {
	p := pos
	it.ContainerID = containerID
	it.Position = &p
}
