package state

import (
	"context"
	"sort"
	"time"

	"github.com/signalsfoundry/stowage/core"
	"github.com/signalsfoundry/stowage/internal/activity"
	"github.com/signalsfoundry/stowage/kb"
	"github.com/signalsfoundry/stowage/model"
	"github.com/signalsfoundry/stowage/timectrl"
)

// mostRetrievedLimit caps the Summary's most-retrieved list.
const mostRetrievedLimit = 5

// Logs queries the activity log.
func (s *CargoState) Logs(ctx context.Context, f activity.Filter) ([]activity.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activity.Query(ctx, f)
}

// ArrangementRow is one placed item in the current arrangement.
type ArrangementRow struct {
	ItemID      string
	Name        string
	ContainerID string
	Zone        model.Zone
	Position    model.Position
}

// Arrangement exports every placed item ordered by container, then item.
func (s *CargoState) Arrangement() []ArrangementRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []ArrangementRow
	for _, c := range s.kb.ListContainers() {
		for _, it := range s.kb.ItemsInContainer(c.ID) {
			if !it.Placed() {
				continue
			}
			rows = append(rows, ArrangementRow{
				ItemID:      it.ID,
				Name:        it.Name,
				ContainerID: c.ID,
				Zone:        c.Zone,
				Position:    *it.Position,
			})
		}
	}
	return rows
}

// ContainerUtilization is the fill level of one container.
type ContainerUtilization struct {
	ContainerID string
	Zone        model.Zone
	ItemCount   int
	UsedVolume  float64
	TotalVolume float64
	Ratio       float64
}

// Summary is the dashboard view of the inventory.
type Summary struct {
	Date           time.Time
	MissionDay     int
	Counts         kb.Counts
	NearExpiry     []*model.Item
	Utilization    []ContainerUtilization
	MostRetrieved  []*model.Item
	ItemsByZone    map[model.Zone]int
	NearExpiryDays int
}

// Summary aggregates counts, near-expiry items, per-container utilisation,
// the most retrieved items and placed items per zone.
func (s *CargoState) Summary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	horizon := now.Add(time.Duration(s.nearExpiryDays) * timectrl.Day)
	items := s.kb.ListItems()
	containers := s.kb.ListContainers()

	sum := &Summary{
		Date:           now,
		MissionDay:     s.clock.Elapsed(),
		Counts:         s.kb.Counts(),
		ItemsByZone:    make(map[model.Zone]int),
		NearExpiryDays: s.nearExpiryDays,
	}

	zones := make(map[string]model.Zone, len(containers))
	for _, c := range containers {
		zones[c.ID] = c.Zone
	}

	var retrieved []*model.Item
	for _, it := range items {
		if !it.Waste && it.ExpiryDate != nil && !now.After(*it.ExpiryDate) && !it.ExpiryDate.After(horizon) {
			sum.NearExpiry = append(sum.NearExpiry, it)
		}
		if it.RetrievalCount > 0 {
			retrieved = append(retrieved, it)
		}
		if it.Placed() {
			sum.ItemsByZone[zones[it.ContainerID]]++
		}
	}
	sort.SliceStable(sum.NearExpiry, func(i, j int) bool {
		a, b := sum.NearExpiry[i], sum.NearExpiry[j]
		if !a.ExpiryDate.Equal(*b.ExpiryDate) {
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		return a.ID < b.ID
	})
	sort.SliceStable(retrieved, func(i, j int) bool {
		if retrieved[i].RetrievalCount != retrieved[j].RetrievalCount {
			return retrieved[i].RetrievalCount > retrieved[j].RetrievalCount
		}
		return retrieved[i].ID < retrieved[j].ID
	})
	if len(retrieved) > mostRetrievedLimit {
		retrieved = retrieved[:mostRetrievedLimit]
	}
	sum.MostRetrieved = retrieved

	layout := core.NewLayout(containers, items)
	for _, c := range containers {
		load := layout.Load(c.ID)
		u := ContainerUtilization{
			ContainerID: c.ID,
			Zone:        c.Zone,
			ItemCount:   len(load.Occupants),
			UsedVolume:  load.UsedVolume(),
			TotalVolume: c.Dimensions.Volume(),
		}
		if u.TotalVolume > 0 {
			u.Ratio = u.UsedVolume / u.TotalVolume
		}
		sum.Utilization = append(sum.Utilization, u)
	}
	return sum
}
