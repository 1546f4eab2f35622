package grid

import "fmt"

// Quadrant is the quarter of the hovered cell the cursor sits in.
type Quadrant int

const (
	QuadrantNone Quadrant = iota
	QuadrantTopLeft
	QuadrantTopRight
	QuadrantBottomLeft
	QuadrantBottomRight
)

var quadrantNames = map[Quadrant]string{
	QuadrantTopLeft:     "top_left",
	QuadrantTopRight:    "top_right",
	QuadrantBottomLeft:  "bottom_left",
	QuadrantBottomRight: "bottom_right",
}

func (q Quadrant) String() string {
	if s, ok := quadrantNames[q]; ok {
		return s
	}
	return "none"
}

// ParseQuadrant maps "top_left", "top_right", "bottom_left" and
// "bottom_right" to their Quadrant.
func ParseQuadrant(s string) (Quadrant, error) {
	for q, name := range quadrantNames {
		if name == s {
			return q, nil
		}
	}
	return QuadrantNone, fmt.Errorf("parse quadrant %q: %w", s, ErrInvalidQuadrant)
}

func (q Quadrant) right() bool  { return q == QuadrantTopRight || q == QuadrantBottomRight }
func (q Quadrant) bottom() bool { return q == QuadrantBottomLeft || q == QuadrantBottomRight }

// ResolveAnchor converts the hovered cell plus quadrant into the top-left
// origin for a footprint centred on the cursor. For even dimensions the
// right/bottom quadrants shift the origin by one so the extra half cell
// falls on the cursor's side. The result may lie outside the grid.
func ResolveAnchor(cell Coord, q Quadrant, fp Footprint) (Coord, error) {
	if _, ok := quadrantNames[q]; !ok {
		return Coord{X: -1, Y: -1}, fmt.Errorf("resolve anchor at (%d,%d): %w", cell.X, cell.Y, ErrInvalidQuadrant)
	}
	evenW, evenH := 0, 0
	if fp.W%2 == 0 {
		evenW = 1
	}
	if fp.H%2 == 0 {
		evenH = 1
	}
	origin := Coord{X: cell.X - fp.W/2, Y: cell.Y - fp.H/2}
	if q.right() {
		origin.X += evenW
	}
	if q.bottom() {
		origin.Y += evenH
	}
	return origin, nil
}
