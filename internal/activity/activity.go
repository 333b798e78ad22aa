// Package activity is the append-only record of everything that changed the
// inventory: additions, placements, retrievals, rearrangements, usage,
// disposals and simulated time.
package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/stowage/model"
)

// Action is the closed set of logged action types.
type Action string

const (
	ActionAddCargo      Action = "add_cargo"
	ActionPlacement     Action = "placement"
	ActionRetrieval     Action = "retrieval"
	ActionRearrangement Action = "rearrangement"
	ActionUsage         Action = "usage"
	ActionDisposal      Action = "disposal"
	ActionSimulation    Action = "simulation"
)

// Actions lists every valid action in a stable order.
var Actions = []Action{
	ActionAddCargo,
	ActionPlacement,
	ActionRetrieval,
	ActionRearrangement,
	ActionUsage,
	ActionDisposal,
	ActionSimulation,
}

// ParseAction validates an action name. The empty string is accepted and
// means "any action" in filters.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return "", nil
	}
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown action type %q", model.ErrValidation, s)
}

// Details carries the action-specific context of an entry.
type Details struct {
	FromContainer string `json:"fromContainer,omitempty"`
	ToContainer   string `json:"toContainer,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Entry is one log record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId,omitempty"`
	Action    Action    `json:"actionType"`
	ItemID    string    `json:"itemId,omitempty"`
	Details   Details   `json:"details"`
}

// NewEntry stamps a fresh entry with a random ID.
func NewEntry(ts time.Time, userID string, action Action, itemID string, details Details) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: ts.UTC(),
		UserID:    userID,
		Action:    action,
		ItemID:    itemID,
		Details:   details,
	}
}

// Filter selects entries. Zero-valued fields match everything; Start and End
// are inclusive.
type Filter struct {
	Start  time.Time
	End    time.Time
	ItemID string
	UserID string
	Action Action
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Timestamp.After(f.End) {
		return false
	}
	if f.ItemID != "" && e.ItemID != f.ItemID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return true
}

// Store persists entries. Append must be all-or-nothing for the entries of
// a single call.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore returns an empty in-memory log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, entries ...Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

// Query implements Store. Results are ordered by timestamp, then insertion.
func (m *MemoryStore) Query(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
