package grid

// RegionKind is the outcome of testing a candidate footprint against occupancy.
type RegionKind int

const (
	RegionFree RegionKind = iota
	RegionSingleOccupant
	RegionBlocked
	RegionOutOfBounds
)

func (k RegionKind) String() string {
	switch k {
	case RegionFree:
		return "free"
	case RegionSingleOccupant:
		return "single_occupant"
	case RegionBlocked:
		return "blocked"
	case RegionOutOfBounds:
		return "out_of_bounds"
	}
	return "unknown"
}

// RegionState is a classification result. Occupant fields are set only for
// RegionSingleOccupant.
type RegionState struct {
	Kind       RegionKind
	Occupant   Item
	UpperLeft  CellIndex
	StackCount int
}

// Mergeable reports whether the single occupant can still absorb units:
// stackable and below its max. A non-mergeable single occupant is a
// whole-item swap candidate only.
func (s RegionState) Mergeable() bool {
	return s.Kind == RegionSingleOccupant &&
		s.Occupant.Rule.Stackable &&
		s.StackCount < s.Occupant.Rule.Limit()
}

// Room returns how many units the occupant can still take.
func (s RegionState) Room() int {
	if s.Kind != RegionSingleOccupant {
		return 0
	}
	return MaxFill(s.Occupant.Rule, s.StackCount)
}

// ClassifyRegion reports whether [origin, origin+fp) is free, covered by
// exactly one placed item, or straddles two or more items.
func (m *Model) ClassifyRegion(origin Coord, fp Footprint) RegionState {
	if !m.InBounds(origin, fp) {
		return RegionState{Kind: RegionOutOfBounds, UpperLeft: NoIndex}
	}
	if m.IsRegionFree(origin, fp) {
		return RegionState{Kind: RegionFree, UpperLeft: NoIndex}
	}

	anchors := make([]CellIndex, 0, 2)
	m.forEach(origin, fp, func(i CellIndex) {
		c := m.cells[i]
		if !c.Occupied() {
			return
		}
		for _, a := range anchors {
			if a == c.UpperLeft {
				return
			}
		}
		anchors = append(anchors, c.UpperLeft)
	})

	if len(anchors) != 1 {
		return RegionState{Kind: RegionBlocked, UpperLeft: NoIndex}
	}
	anchor := anchors[0]
	return RegionState{
		Kind:       RegionSingleOccupant,
		Occupant:   m.resident[anchor],
		UpperLeft:  anchor,
		StackCount: m.cells[anchor].StackCount,
	}
}
