package grid

// ItemID references a record owned by the authoritative item source.
// The grid never invents or destroys identity; it only stores references.
type ItemID string

// ItemType is the exact type tag used for stack compatibility.
type ItemType string

// CellIndex is a row-major linear cell index.
type CellIndex int

// NoIndex marks an absent cell reference (empty cell, external hover origin).
const NoIndex CellIndex = -1

// Coord is a grid-relative cell coordinate with origin at top-left.
// Components may be negative while a cursor-driven anchor is being resolved.
type Coord struct {
	X int
	Y int
}

// Add returns c offset by (dx, dy).
func (c Coord) Add(dx, dy int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// Footprint is the rectangular cell area an item occupies.
type Footprint struct {
	W int
	H int
}

// Area returns the number of cells covered.
func (f Footprint) Area() int { return f.W * f.H }

// Square reports whether rotation leaves the footprint unchanged.
func (f Footprint) Square() bool { return f.W == f.H }

// Valid reports whether both dimensions are positive.
func (f Footprint) Valid() bool { return f.W > 0 && f.H > 0 }

// EffectiveDims returns base with its axes swapped when rotated.
// 1x1 and square footprints are returned as-is.
func EffectiveDims(base Footprint, rotated bool) Footprint {
	if !rotated || base.Square() {
		return base
	}
	return Footprint{W: base.H, H: base.W}
}

// StackRule describes how many units of an item fit in one placement.
type StackRule struct {
	Stackable bool
	MaxStack  int
}

// Limit returns the per-placement unit cap (1 for non-stackable items).
func (r StackRule) Limit() int {
	if !r.Stackable || r.MaxStack < 1 {
		return 1
	}
	return r.MaxStack
}

// MaxFill returns how many more units fit on top of current, never negative.
func MaxFill(rule StackRule, current int) int {
	room := rule.Limit() - current
	if room < 0 {
		return 0
	}
	return room
}

// TypesMatch compares type identity exactly. No wildcard or prefix matching.
func TypesMatch(a, b ItemType) bool {
	return a == b
}

// Item is the descriptor the authoritative source hands to the grid.
type Item struct {
	ID        ItemID
	Type      ItemType
	Footprint Footprint // base (unrotated) dimensions
	Rule      StackRule
	Rotated   bool
}

// Dims returns the footprint with rotation applied.
func (it Item) Dims() Footprint {
	return EffectiveDims(it.footprint(), it.Rotated)
}

// footprint defaults a zero footprint to 1x1.
func (it Item) footprint() Footprint {
	if !it.Footprint.Valid() {
		return Footprint{W: 1, H: 1}
	}
	return it.Footprint
}

// WithRotation returns a copy of it with the rotation flag set to rotated.
func (it Item) WithRotation(rotated bool) Item {
	it.Rotated = rotated && !it.footprint().Square()
	return it
}

// Stackable is shorthand for it.Rule.Stackable.
func (it Item) Stackable() bool { return it.Rule.Stackable }
