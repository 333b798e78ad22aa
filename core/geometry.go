package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/stowage/model"
)

// Epsilon is the tolerance used for all box comparisons (centimetres).
// Boxes that touch at a face are not considered overlapping.
const Epsilon = 1e-9

// matchTolerance is the looser tolerance used when checking user-supplied
// positions against item dimensions.
const matchTolerance = 1e-6

// intervalsOverlap reports whether the open intervals (a0,a1) and (b0,b1)
// share any interior point.
func intervalsOverlap(a0, a1, b0, b1 float64) bool {
	return a0 < b1-Epsilon && b0 < a1-Epsilon
}

// BoxesOverlap applies the separating-axis test on the three container axes:
// two boxes overlap iff their intervals overlap on every axis.
func BoxesOverlap(a, b model.Position) bool {
	return intervalsOverlap(a.Start.Width, a.End.Width, b.Start.Width, b.End.Width) &&
		intervalsOverlap(a.Start.Depth, a.End.Depth, b.Start.Depth, b.End.Depth) &&
		intervalsOverlap(a.Start.Height, a.End.Height, b.Start.Height, b.End.Height)
}

// FootprintsOverlap compares the width x height projections of two boxes,
// i.e. what an operator sees looking into the container opening.
func FootprintsOverlap(a, b model.Position) bool {
	return intervalsOverlap(a.Start.Width, a.End.Width, b.Start.Width, b.End.Width) &&
		intervalsOverlap(a.Start.Height, a.End.Height, b.Start.Height, b.End.Height)
}

// Orientations returns the distinct axis permutations of d, ordered with the
// shortest extent along width first, then depth, then height.
func Orientations(d model.Dimensions) []model.Dimensions {
	perms := []model.Dimensions{
		{Width: d.Width, Depth: d.Depth, Height: d.Height},
		{Width: d.Width, Depth: d.Height, Height: d.Depth},
		{Width: d.Depth, Depth: d.Width, Height: d.Height},
		{Width: d.Depth, Depth: d.Height, Height: d.Width},
		{Width: d.Height, Depth: d.Width, Height: d.Depth},
		{Width: d.Height, Depth: d.Depth, Height: d.Width},
	}
	sort.SliceStable(perms, func(i, j int) bool {
		a, b := perms[i], perms[j]
		if a.Width != b.Width {
			return a.Width < b.Width
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.Height < b.Height
	})

	out := perms[:0]
	for _, p := range perms {
		if len(out) > 0 && sameDimensions(out[len(out)-1], p, Epsilon) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Fits returns the orientations of d whose extents do not exceed the
// container's. An empty result means the item cannot go in at all.
func Fits(c model.Container, d model.Dimensions) []model.Dimensions {
	all := Orientations(d)
	valid := make([]model.Dimensions, 0, len(all))
	for _, o := range all {
		if o.Width <= c.Dimensions.Width+Epsilon &&
			o.Depth <= c.Dimensions.Depth+Epsilon &&
			o.Height <= c.Dimensions.Height+Epsilon {
			valid = append(valid, o)
		}
	}
	return valid
}

// WithinBounds reports whether p lies entirely inside the container.
func WithinBounds(c model.Container, p model.Position) bool {
	return p.Start.Width >= -Epsilon && p.Start.Depth >= -Epsilon && p.Start.Height >= -Epsilon &&
		p.End.Width <= c.Dimensions.Width+Epsilon &&
		p.End.Depth <= c.Dimensions.Depth+Epsilon &&
		p.End.Height <= c.Dimensions.Height+Epsilon
}

// MatchesDimensions reports whether the box p is some orientation of d.
func MatchesDimensions(p model.Position, d model.Dimensions) bool {
	ext := p.Extents()
	for _, o := range Orientations(d) {
		if sameDimensions(ext, o, matchTolerance) {
			return true
		}
	}
	return false
}

func sameDimensions(a, b model.Dimensions, tol float64) bool {
	return math.Abs(a.Width-b.Width) <= tol &&
		math.Abs(a.Depth-b.Depth) <= tol &&
		math.Abs(a.Height-b.Height) <= tol
}
