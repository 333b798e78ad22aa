package model

// Zone is a named storage category (e.g. "Medical", "Food Storage") used as a
// soft placement preference.
type Zone string

// Dimensions are box extents in centimetres along the container axes.
// Depth is measured from the container opening (depth 0) inwards.
type Dimensions struct {
	Width  float64
	Depth  float64
	Height float64
}

// Volume returns Width*Depth*Height in cubic centimetres.
func (d Dimensions) Volume() float64 {
	return d.Width * d.Depth * d.Height
}

// Valid reports whether every extent is strictly positive.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Depth > 0 && d.Height > 0
}

// Container is a fixed-size storage volume in a zone. Containers are
// immutable once created; resizing means remove and recreate.
type Container struct {
	ID         string
	Zone       Zone
	Dimensions Dimensions
}

// Coordinates is a point inside a container, in centimetres.
type Coordinates struct {
	Width  float64
	Depth  float64
	Height float64
}

// Add returns c offset by the given extents.
func (c Coordinates) Add(d Dimensions) Coordinates {
	return Coordinates{
		Width:  c.Width + d.Width,
		Depth:  c.Depth + d.Depth,
		Height: c.Height + d.Height,
	}
}

// Position is the axis-aligned box an item occupies inside its container.
type Position struct {
	Start Coordinates
	End   Coordinates
}

// PositionAt builds the box anchored at start with the given oriented extents.
func PositionAt(start Coordinates, d Dimensions) Position {
	return Position{Start: start, End: start.Add(d)}
}

// Extents returns End-Start along each axis.
func (p Position) Extents() Dimensions {
	return Dimensions{
		Width:  p.End.Width - p.Start.Width,
		Depth:  p.End.Depth - p.Start.Depth,
		Height: p.End.Height - p.Start.Height,
	}
}

// Volume of the occupied box.
func (p Position) Volume() float64 {
	return p.Extents().Volume()
}
