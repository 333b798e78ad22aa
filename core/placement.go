package core

import (
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/stowage/model"
)

var (
	// ErrNoContainer indicates no container can hold an item, even after
	// displacing lower-priority cargo.
	ErrNoContainer = fmt.Errorf("%w: no container can hold item", model.ErrExhausted)
	// ErrWasteNotPlaceable indicates the optimizer was asked to position a
	// waste item.
	ErrWasteNotPlaceable = fmt.Errorf("%w: waste items are not placed by the optimizer", model.ErrInvalidState)
)

// Occupant is a box already sitting in a container.
type Occupant struct {
	ItemID   string
	Priority int
	Waste    bool
	Position model.Position
}

// ContainerLoad is the occupancy of a single container.
type ContainerLoad struct {
	Container model.Container
	Occupants []Occupant
}

// UsedVolume sums the volume of every occupant.
func (cl *ContainerLoad) UsedVolume() float64 {
	used := 0.0
	for _, o := range cl.Occupants {
		used += o.Position.Volume()
	}
	return used
}

// FreeVolume is the container volume not taken by occupants.
func (cl *ContainerLoad) FreeVolume() float64 {
	return cl.Container.Dimensions.Volume() - cl.UsedVolume()
}

// Collides reports whether p overlaps any occupant other than ignoreID.
func (cl *ContainerLoad) Collides(p model.Position, ignoreID string) bool {
	for _, o := range cl.Occupants {
		if o.ItemID == ignoreID {
			continue
		}
		if BoxesOverlap(o.Position, p) {
			return true
		}
	}
	return false
}

// FindSpot scans candidate anchors nearest the opening first and returns the
// first box of extents d (in any allowed orientation) that fits the container
// and collides with nothing.
func (cl *ContainerLoad) FindSpot(d model.Dimensions) (model.Position, bool) {
	orientations := Fits(cl.Container, d)
	if len(orientations) == 0 {
		return model.Position{}, false
	}
	for _, anchor := range cl.anchors() {
		for _, o := range orientations {
			pos := model.PositionAt(anchor, o)
			if !WithinBounds(cl.Container, pos) {
				continue
			}
			if cl.Collides(pos, "") {
				continue
			}
			return pos, true
		}
	}
	return model.Position{}, false
}

// anchors returns the container origin plus the three outward corners of
// every occupant, deduplicated and ordered by (depth, height, width).
func (cl *ContainerLoad) anchors() []model.Coordinates {
	type key struct{ w, d, h int64 }
	seen := make(map[key]struct{}, 1+3*len(cl.Occupants))
	points := make([]model.Coordinates, 0, 1+3*len(cl.Occupants))

	add := func(c model.Coordinates) {
		k := key{round6(c.Width), round6(c.Depth), round6(c.Height)}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		points = append(points, c)
	}

	add(model.Coordinates{})
	for _, o := range cl.Occupants {
		s, e := o.Position.Start, o.Position.End
		add(model.Coordinates{Width: e.Width, Depth: s.Depth, Height: s.Height})
		add(model.Coordinates{Width: s.Width, Depth: e.Depth, Height: s.Height})
		add(model.Coordinates{Width: s.Width, Depth: s.Depth, Height: e.Height})
	}

	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Height != b.Height {
			return a.Height < b.Height
		}
		return a.Width < b.Width
	})
	return points
}

func round6(v float64) int64 {
	return int64(math.Round(v * 1e6))
}

func (cl *ContainerLoad) add(o Occupant) {
	cl.Occupants = append(cl.Occupants, o)
}

func (cl *ContainerLoad) remove(itemID string) (Occupant, bool) {
	for i, o := range cl.Occupants {
		if o.ItemID == itemID {
			cl.Occupants = append(cl.Occupants[:i], cl.Occupants[i+1:]...)
			return o, true
		}
	}
	return Occupant{}, false
}

func (cl *ContainerLoad) clone() *ContainerLoad {
	cp := &ContainerLoad{Container: cl.Container}
	cp.Occupants = append([]Occupant(nil), cl.Occupants...)
	return cp
}

// displaceable lists non-waste occupants with strictly lower priority than
// the incoming item: lowest priority first, then nearest the opening.
func (cl *ContainerLoad) displaceable(priority int) []Occupant {
	var out []Occupant
	for _, o := range cl.Occupants {
		if !o.Waste && o.Priority < priority {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Position.Start.Depth != b.Position.Start.Depth {
			return a.Position.Start.Depth < b.Position.Start.Depth
		}
		return a.ItemID < b.ItemID
	})
	return out
}

// Layout is a working copy of the occupancy of every container. The
// optimizer mutates a Layout; callers commit the resulting placements to the
// inventory only once an operation has fully succeeded.
type Layout struct {
	loads map[string]*ContainerLoad
	ids   []string
}

// NewLayout builds the occupancy view from container records and the items
// currently placed in them. Items referencing unknown containers are ignored.
func NewLayout(containers []model.Container, items []*model.Item) *Layout {
	l := &Layout{loads: make(map[string]*ContainerLoad, len(containers))}
	for _, c := range containers {
		if _, dup := l.loads[c.ID]; dup {
			continue
		}
		l.loads[c.ID] = &ContainerLoad{Container: c}
		l.ids = append(l.ids, c.ID)
	}
	sort.Strings(l.ids)

	for _, it := range items {
		if !it.Placed() {
			continue
		}
		load, ok := l.loads[it.ContainerID]
		if !ok {
			continue
		}
		load.add(Occupant{
			ItemID:   it.ID,
			Priority: it.Priority,
			Waste:    it.Waste,
			Position: *it.Position,
		})
	}
	return l
}

// Load returns the occupancy of one container, or nil.
func (l *Layout) Load(containerID string) *ContainerLoad {
	return l.loads[containerID]
}

// Clone deep-copies the layout.
func (l *Layout) Clone() *Layout {
	cp := &Layout{
		loads: make(map[string]*ContainerLoad, len(l.loads)),
		ids:   append([]string(nil), l.ids...),
	}
	for id, load := range l.loads {
		cp.loads[id] = load.clone()
	}
	return cp
}

// Locate finds where an item currently sits in the layout.
func (l *Layout) Locate(itemID string) (string, Occupant, bool) {
	for _, id := range l.ids {
		for _, o := range l.loads[id].Occupants {
			if o.ItemID == itemID {
				return id, o, true
			}
		}
	}
	return "", Occupant{}, false
}

// Positions returns the current location of every item in the layout.
func (l *Layout) Positions() map[string]Placement {
	out := make(map[string]Placement)
	for _, id := range l.ids {
		for _, o := range l.loads[id].Occupants {
			out[o.ItemID] = Placement{ItemID: o.ItemID, ContainerID: id, Position: o.Position}
		}
	}
	return out
}

// rank orders containers: those in zone first (when zone is non-empty), then
// the rest; each group by free volume descending and id ascending.
func (l *Layout) rank(zone model.Zone, keep func(*ContainerLoad) bool) []*ContainerLoad {
	out := make([]*ContainerLoad, 0, len(l.ids))
	free := make(map[string]float64, len(l.ids))
	for _, id := range l.ids {
		load := l.loads[id]
		if keep != nil && !keep(load) {
			continue
		}
		out = append(out, load)
		free[id] = load.FreeVolume()
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		am := zone != "" && a.Container.Zone == zone
		bm := zone != "" && b.Container.Zone == zone
		if am != bm {
			return am
		}
		fa, fb := free[a.Container.ID], free[b.Container.ID]
		if math.Abs(fa-fb) > Epsilon {
			return fa > fb
		}
		return a.Container.ID < b.Container.ID
	})
	return out
}

// Placement is the position chosen for one item.
type Placement struct {
	ItemID      string
	ContainerID string
	Position    model.Position
}

// Rearrangement records a lower-priority item moved to make room.
type Rearrangement struct {
	Step          int
	ItemID        string
	FromContainer string
	FromPosition  model.Position
	ToContainer   string
	ToPosition    model.Position
	Reason        string
}

// PlacementResult is the outcome of placing a single item.
type PlacementResult struct {
	Placement      Placement
	Rearrangements []Rearrangement
}

// Place positions one unplaced item in the layout. On failure the layout is
// left unchanged.
func (l *Layout) Place(it *model.Item) (*PlacementResult, error) {
	if it == nil {
		return nil, fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}
	if it.Waste {
		return nil, fmt.Errorf("%w: %q", ErrWasteNotPlaceable, it.ID)
	}

	fitsSomewhere := false
	for _, load := range l.rank(it.PreferredZone, nil) {
		if len(Fits(load.Container, it.Dimensions)) == 0 {
			continue
		}
		fitsSomewhere = true
		if pos, ok := load.FindSpot(it.Dimensions); ok {
			load.add(Occupant{ItemID: it.ID, Priority: it.Priority, Position: pos})
			return &PlacementResult{
				Placement: Placement{ItemID: it.ID, ContainerID: load.Container.ID, Position: pos},
			}, nil
		}
	}

	if fitsSomewhere {
		if res, ok := l.placeWithRearrangement(it); ok {
			return res, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoContainer, it.ID)
}

// placeWithRearrangement virtually removes lower-priority occupants from
// preferred-zone containers, one more at a time, until the incoming item fits
// and every displaced item can be moved to a container outside the zone.
func (l *Layout) placeWithRearrangement(it *model.Item) (*PlacementResult, bool) {
	if it.PreferredZone == "" {
		return nil, false
	}
	inZone := func(cl *ContainerLoad) bool { return cl.Container.Zone == it.PreferredZone }

	for _, load := range l.rank(it.PreferredZone, inZone) {
		if len(Fits(load.Container, it.Dimensions)) == 0 {
			continue
		}
		candidates := load.displaceable(it.Priority)
		for k := 1; k <= len(candidates); k++ {
			trial := l.Clone()
			tload := trial.loads[load.Container.ID]

			displaced := make([]Occupant, 0, k)
			for _, c := range candidates[:k] {
				if o, ok := tload.remove(c.ItemID); ok {
					displaced = append(displaced, o)
				}
			}

			pos, ok := tload.FindSpot(it.Dimensions)
			if !ok {
				continue
			}
			tload.add(Occupant{ItemID: it.ID, Priority: it.Priority, Position: pos})

			moves, ok := trial.relocate(displaced, load.Container.ID, it)
			if !ok {
				continue
			}

			*l = *trial
			return &PlacementResult{
				Placement:      Placement{ItemID: it.ID, ContainerID: load.Container.ID, Position: pos},
				Rearrangements: moves,
			}, true
		}
	}
	return nil, false
}

// relocate moves displaced occupants into the best containers outside the
// incoming item's preferred zone, higher priority first.
func (l *Layout) relocate(displaced []Occupant, from string, incoming *model.Item) ([]Rearrangement, bool) {
	order := append([]Occupant(nil), displaced...)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Priority != order[j].Priority {
			return order[i].Priority > order[j].Priority
		}
		return order[i].ItemID < order[j].ItemID
	})

	outside := func(cl *ContainerLoad) bool { return cl.Container.Zone != incoming.PreferredZone }
	moves := make([]Rearrangement, 0, len(order))
	for _, o := range order {
		placed := false
		for _, target := range l.rank("", outside) {
			pos, ok := target.FindSpot(o.Position.Extents())
			if !ok {
				continue
			}
			target.add(Occupant{ItemID: o.ItemID, Priority: o.Priority, Waste: o.Waste, Position: pos})
			moves = append(moves, Rearrangement{
				ItemID:        o.ItemID,
				FromContainer: from,
				FromPosition:  o.Position,
				ToContainer:   target.Container.ID,
				ToPosition:    pos,
				Reason: fmt.Sprintf("displaced by higher-priority item %s; moved to non-preferred zone %s",
					incoming.ID, target.Container.Zone),
			})
			placed = true
			break
		}
		if !placed {
			return nil, false
		}
	}
	return moves, true
}

// PlacementFailure reports an item the batch could not place.
type PlacementFailure struct {
	ItemID string
	Err    error
}

// BatchResult aggregates a batch placement run.
type BatchResult struct {
	Placements     []Placement
	Rearrangements []Rearrangement
	Failures       []PlacementFailure
}

// PlaceBatch places items in descending priority order (item id breaks ties)
// so that high-priority cargo gets first choice of positions near the
// opening. Items already present in the layout keep their position. Failures
// are reported per item and do not affect the others.
func (l *Layout) PlaceBatch(items []*model.Item) *BatchResult {
	order := make([]*model.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			order = append(order, it)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Priority != order[j].Priority {
			return order[i].Priority > order[j].Priority
		}
		return order[i].ID < order[j].ID
	})

	res := &BatchResult{}
	for _, it := range order {
		if _, _, ok := l.Locate(it.ID); ok {
			res.Placements = append(res.Placements, Placement{ItemID: it.ID})
			continue
		}
		r, err := l.Place(it)
		if err != nil {
			res.Failures = append(res.Failures, PlacementFailure{ItemID: it.ID, Err: err})
			continue
		}
		res.Placements = append(res.Placements, r.Placement)
		for _, m := range r.Rearrangements {
			m.Step = len(res.Rearrangements) + 1
			res.Rearrangements = append(res.Rearrangements, m)
		}
	}

	// Rearrangements may have moved items reported earlier in the batch.
	for i := range res.Placements {
		if cid, o, ok := l.Locate(res.Placements[i].ItemID); ok {
			res.Placements[i].ContainerID = cid
			res.Placements[i].Position = o.Position
		}
	}
	return res
}
