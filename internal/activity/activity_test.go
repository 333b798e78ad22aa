package activity

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()

	entries := []Entry{
		NewEntry(day, "astro1", ActionPlacement, "i1", Details{ToContainer: "c1"}),
		NewEntry(day.AddDate(0, 0, 1), "astro2", ActionRetrieval, "i1", Details{FromContainer: "c1"}),
		NewEntry(day.AddDate(0, 0, 2), "astro1", ActionPlacement, "i2", Details{ToContainer: "c2"}),
	}
	if err := store.Append(ctx, entries...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"by item", Filter{ItemID: "i1"}, 2},
		{"by user", Filter{UserID: "astro1"}, 2},
		{"by action", Filter{Action: ActionRetrieval}, 1},
		{"date range inclusive", Filter{Start: day.AddDate(0, 0, 1), End: day.AddDate(0, 0, 2)}, 2},
		{"combined", Filter{UserID: "astro1", Action: ActionPlacement, ItemID: "i2"}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.Query(ctx, tc.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("Query returned %d entries, want %d", len(got), tc.want)
			}
		})
	}
	if store.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", store.Len())
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions {
		got, err := ParseAction(string(a))
		if err != nil || got != a {
			t.Fatalf("ParseAction(%q) = %q, %v", a, got, err)
		}
	}
	if got, err := ParseAction(""); err != nil || got != "" {
		t.Fatalf("ParseAction(\"\") = %q, %v; want any", got, err)
	}
	if _, err := ParseAction("teleport"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestNewEntryAssignsUniqueIDs(t *testing.T) {
	now := time.Now()
	a := NewEntry(now, "", ActionUsage, "i1", Details{})
	b := NewEntry(now, "", ActionUsage, "i1", Details{})
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp not normalised to UTC")
	}
}
