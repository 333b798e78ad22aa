package state

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/model"
	"github.com/signalsfoundry/stowage/timectrl"
)

// UsageDay schedules usage events. Day is 1-based within the batch; Day 0
// repeats the events on every simulated day. An ID listed twice is used twice.
type UsageDay struct {
	Day     int
	ItemIDs []string
}

// SimulateRequest advances mission time.
type SimulateRequest struct {
	Days     int
	Schedule []UsageDay
	UserID   string
}

// ItemChange reports an item affected by a simulated day.
type ItemChange struct {
	ItemID        string
	Name          string
	Date          time.Time
	RemainingUses *int
}

// SimulateResult is the outcome of a simulation batch. Expired and Depleted
// list each item once, on the day it first qualified.
type SimulateResult struct {
	NewDate  time.Time
	Used     []ItemChange
	Expired  []ItemChange
	Depleted []ItemChange
}

// SimulateDays applies the usage schedule day by day and advances the clock.
// Unknown item IDs or a bad day count fail the call before anything changes.
func (s *CargoState) SimulateDays(ctx context.Context, req SimulateRequest) (*SimulateResult, error) {
	if req.Days <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDays, req.Days)
	}
	for _, d := range req.Schedule {
		if d.Day < 0 || d.Day > req.Days {
			return nil, fmt.Errorf("%w: day %d outside 1..%d", ErrInvalidSchedule, d.Day, req.Days)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range req.Schedule {
		for _, id := range d.ItemIDs {
			if s.kb.GetItem(id) == nil {
				return nil, fmt.Errorf("%w: %q", ErrItemNotFound, id)
			}
		}
	}

	start := s.clock.Now()
	items := s.kb.ListItems()
	byID := make(map[string]*model.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	res := &SimulateResult{}
	var t *txn
	for day := 1; day <= req.Days; day++ {
		date := start.Add(time.Duration(day) * timectrl.Day)
		if t == nil {
			t = s.beginLocked(date)
		}
		t.now = date

		for _, d := range req.Schedule {
			if d.Day != 0 && d.Day != day {
				continue
			}
			for _, id := range d.ItemIDs {
				it := byID[id]
				if it.Waste {
					continue
				}
				if it.Limited() {
					if *it.RemainingUses > 0 {
						*it.RemainingUses--
					}
					t.stage(it)
				}
				res.Used = append(res.Used, ItemChange{
					ItemID:        it.ID,
					Name:          it.Name,
					Date:          date,
					RemainingUses: copyInt(it.RemainingUses),
				})
				t.record(req.UserID, activity.ActionUsage, it.ID, activity.Details{Reason: "simulated usage"})
			}
		}

		for _, it := range items {
			if it.Waste {
				continue
			}
			reason, ok := core.WasteReasonAt(it, date)
			if !ok {
				continue
			}
			it.Waste = true
			it.WasteReason = reason
			t.stage(it)
			change := ItemChange{ItemID: it.ID, Name: it.Name, Date: date, RemainingUses: copyInt(it.RemainingUses)}
			switch reason {
			case model.WasteExpired:
				res.Expired = append(res.Expired, change)
			case model.WasteDepleted:
				res.Depleted = append(res.Depleted, change)
			}
		}
	}

	res.NewDate = t.now
	t.record(req.UserID, activity.ActionSimulation, "", activity.Details{
		Reason: fmt.Sprintf("advanced %d day(s) to %s", req.Days, res.NewDate.Format("2006-01-02")),
	})
	if err := s.commitLocked(ctx, t); err != nil {
		return nil, err
	}
	if _, err := s.clock.AdvanceDays(req.Days); err != nil {
		// Unreachable: Days was checked above.
		return nil, err
	}
	s.updateMetricsLocked()

	s.logger(ctx).Info(ctx, "simulation advanced",
		logging.Int("days", req.Days),
		logging.Date("new_date", res.NewDate),
		logging.Int("usage_events", len(res.Used)),
		logging.Int("expired", len(res.Expired)),
		logging.Int("depleted", len(res.Depleted)),
	)
	return res, nil
}

// UseResult reports the outcome of a usage event.
type UseResult struct {
	ItemID        string
	RemainingUses int
	BecameWaste   bool
}

// UseItem records count uses of an item. The counter is clamped at zero and
// the item becomes Depleted waste when it reaches zero. Unlimited items and
// items that already qualify as waste are rejected.
func (s *CargoState) UseItem(ctx context.Context, itemID string, count int, userID string, ts time.Time) (*UseResult, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.kb.GetItem(itemID)
	if it == nil {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	if !it.Limited() {
		return nil, fmt.Errorf("%w: %q", ErrUnlimitedItem, itemID)
	}
	if it.Waste {
		return nil, fmt.Errorf("%w: %q (%s)", ErrAlreadyWaste, itemID, it.WasteReason)
	}
	if reason, ok := core.WasteReasonAt(it, s.clock.Now()); ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrAlreadyWaste, itemID, reason)
	}

	t := s.beginLocked(ts)
	remaining := *it.RemainingUses - count
	if remaining < 0 {
		remaining = 0
	}
	*it.RemainingUses = remaining
	res := &UseResult{ItemID: it.ID, RemainingUses: remaining}
	if remaining == 0 {
		it.Waste = true
		it.WasteReason = model.WasteDepleted
		res.BecameWaste = true
	}
	t.stage(it)
	t.record(userID, activity.ActionUsage, it.ID, activity.Details{
		Reason: fmt.Sprintf("used %d, %d remaining", count, remaining),
	})
	if err := s.commitLocked(ctx, t); err != nil {
		return nil, err
	}
	s.logger(ctx).Info(ctx, "item used",
		logging.ItemID(it.ID),
		logging.Int("count", count),
		logging.Int("remaining_uses", remaining),
		logging.Bool("became_waste", res.BecameWaste),
	)
	return res, nil
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
