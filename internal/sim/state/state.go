// internal/sim/state/state.go
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/kb"
	"github.com/signalsfoundry/stowage/model"
	"github.com/signalsfoundry/stowage/timectrl"
)

// DefaultNearExpiryDays is the look-ahead used by Summary when no option
// overrides it.
const DefaultNearExpiryDays = 7

// CargoState is the single logical owner of the inventory. It coordinates the
// knowledge base, the mission clock and the activity log so that each
// externally triggered operation runs as one transaction.
type CargoState struct {
	// mu is the coarse inventory lock. Take this before touching the KB to
	// maintain the lock ordering CargoState -> KB.
	mu sync.RWMutex

	kb    *kb.KnowledgeBase
	clock *timectrl.MissionClock

	// activity receives one or more entries per committed mutation.
	activity activity.Store

	// log is an optional structured logger for state-level events.
	log logging.Logger

	// metrics is an optional recorder for Prometheus-friendly gauges.
	metrics CargoMetricsRecorder

	// planner observes optimizer runs.
	planner PlannerMetricsRecorder

	nearExpiryDays int
}

// CargoMetricsRecorder receives inventory updates after every commit.
type CargoMetricsRecorder interface {
	SetInventoryCounts(items, placed, waste, containers int)
	SetMissionDay(day int)
	RecordActivity(action string, n int)
}

// PlannerMetricsRecorder receives optimizer and return-planner observations.
type PlannerMetricsRecorder interface {
	ObservePlacement(d time.Duration, rearranged, failed int)
	SetReturnPlanSelected(count int)
}

// CargoStateOption customises CargoState construction.
type CargoStateOption func(*CargoState)

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m CargoMetricsRecorder) CargoStateOption {
	return func(s *CargoState) {
		s.metrics = m
	}
}

// WithPlannerMetrics attaches an optional optimizer metrics recorder.
func WithPlannerMetrics(m PlannerMetricsRecorder) CargoStateOption {
	return func(s *CargoState) {
		s.planner = m
	}
}

// WithActivityStore replaces the default in-memory activity log.
func WithActivityStore(store activity.Store) CargoStateOption {
	return func(s *CargoState) {
		if store != nil {
			s.activity = store
		}
	}
}

// WithNearExpiryDays sets the window Summary uses for near-expiry items.
func WithNearExpiryDays(days int) CargoStateOption {
	return func(s *CargoState) {
		if days > 0 {
			s.nearExpiryDays = days
		}
	}
}

// NewCargoState wires the knowledge base and mission clock together. A nil
// clock starts the mission today.
func NewCargoState(store *kb.KnowledgeBase, clock *timectrl.MissionClock, log logging.Logger, opts ...CargoStateOption) *CargoState {
	if log == nil {
		log = logging.Noop()
	}
	if store == nil {
		store = kb.NewKnowledgeBase()
	}
	if clock == nil {
		clock = timectrl.NewMissionClock(time.Now())
	}
	s := &CargoState{
		kb:             store,
		clock:          clock,
		activity:       activity.NewMemoryStore(),
		log:            log,
		nearExpiryDays: DefaultNearExpiryDays,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.updateMetricsLocked()
	return s
}

// KB exposes the underlying knowledge base. Writes must go through
// CargoState to keep the activity log consistent.
func (s *CargoState) KB() *kb.KnowledgeBase {
	return s.kb
}

// Clock returns the read-only view of mission time.
func (s *CargoState) Clock() timectrl.SimClock {
	return s.clock
}

// Now returns the current mission date.
func (s *CargoState) Now() time.Time {
	return s.clock.Now()
}

// WithReadLock executes fn while holding the CargoState read lock.
// Callers must not invoke other CargoState methods from inside fn.
func (s *CargoState) WithReadLock(fn func() error) error {
	if fn == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// txn collects the effects of one operation. Nothing reaches the KB or the
// activity log until commitLocked.
type txn struct {
	now time.Time

	newContainers []model.Container
	newItems      []*model.Item
	newIndex      map[string]int
	staged        map[string]*model.Item
	order         []string
	deletes       []string
	entries       []activity.Entry
}

func (s *CargoState) beginLocked(ts time.Time) *txn {
	if ts.IsZero() {
		ts = s.clock.Now()
	}
	return &txn{now: ts, newIndex: make(map[string]int), staged: make(map[string]*model.Item)}
}

// add records an item that does not exist in the KB yet.
func (t *txn) add(it *model.Item) {
	t.newIndex[it.ID] = len(t.newItems)
	t.newItems = append(t.newItems, it)
}

// stage records the new version of an item. Staging the same ID twice keeps
// the latest version.
func (t *txn) stage(it *model.Item) {
	if i, ok := t.newIndex[it.ID]; ok {
		t.newItems[i] = it
		return
	}
	if _, ok := t.staged[it.ID]; !ok {
		t.order = append(t.order, it.ID)
	}
	t.staged[it.ID] = it
}

func (t *txn) record(userID string, action activity.Action, itemID string, d activity.Details) {
	t.entries = append(t.entries, activity.NewEntry(t.now, userID, action, itemID, d))
}

// batch collects the staged KB writes in commit order.
func (t *txn) batch() kb.Batch {
	b := kb.Batch{
		Containers: t.newContainers,
		NewItems:   t.newItems,
		Deletes:    t.deletes,
	}
	for _, id := range t.order {
		b.Updates = append(b.Updates, t.staged[id])
	}
	return b
}

// commitLocked checks the staged KB writes, appends the activity entries and
// then applies the writes. A rejected batch or a log failure aborts the
// operation with nothing written. Caller must hold s.mu for writing, so the
// checked batch cannot go stale before it is applied.
func (s *CargoState) commitLocked(ctx context.Context, t *txn) error {
	b := t.batch()
	if err := s.kb.CheckBatch(b); err != nil {
		return err
	}
	if err := s.activity.Append(ctx, t.entries...); err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	if err := s.kb.ApplyBatch(b); err != nil {
		return err
	}

	if s.metrics != nil {
		counts := make(map[activity.Action]int)
		for _, e := range t.entries {
			counts[e.Action]++
		}
		for action, n := range counts {
			s.metrics.RecordActivity(string(action), n)
		}
	}
	s.updateMetricsLocked()
	return nil
}

func (s *CargoState) updateMetricsLocked() {
	if s.metrics == nil {
		return
	}
	c := s.kb.Counts()
	s.metrics.SetInventoryCounts(c.Items, c.Placed, c.Waste, c.Containers)
	s.metrics.SetMissionDay(s.clock.Elapsed())
}

func (s *CargoState) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}
