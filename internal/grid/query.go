package grid

import "fmt"

// SlotFill is one entry of a placement plan.
type SlotFill struct {
	Index    CellIndex // anchor of the target stack or origin of a new placement
	Amount   int
	Existing bool // true when Amount merges into a resident stack
}

// PlacementPlan is the read-only answer to "where would amount units go".
// TotalFillable+Remainder == Requested and the fill amounts sum to TotalFillable.
type PlacementPlan struct {
	Requested     int
	TotalFillable int
	Remainder     int
	Fills         []SlotFill
}

// Fits reports whether the whole requested amount has a home.
func (p PlacementPlan) Fits() bool { return p.Remainder == 0 }

// FindRoomFor plans where amount units of item would go without touching the
// grid. Cells are scanned in ascending row-major order; a resident stack of
// the same type is filled when the scan reaches its anchor and free regions
// take new placements, so the result is deterministic for a given grid.
func (m *Model) FindRoomFor(item Item, amount int) PlacementPlan {
	if amount < 0 {
		amount = 0
	}
	plan := PlacementPlan{Requested: amount}
	fp := item.Dims()
	limit := item.Rule.Limit()
	claimed := make([]bool, len(m.cells))
	remaining := amount

	for idx := 0; idx < len(m.cells) && remaining > 0; idx++ {
		if claimed[idx] {
			continue
		}
		i := CellIndex(idx)

		if r, ok := m.residentAnchoredAt(i); ok {
			// Merge candidates are judged on the occupant's own footprint so a
			// stack resident in the other orientation still merges.
			if !TypesMatch(r.Item.Type, item.Type) || !r.Item.Rule.Stackable || !item.Rule.Stackable {
				continue
			}
			rfp := r.Item.Dims()
			if m.regionClaimed(claimed, r.Origin, rfp) {
				continue
			}
			st := m.ClassifyRegion(r.Origin, rfp)
			if st.Kind != RegionSingleOccupant {
				continue
			}
			room := MaxFill(item.Rule, st.StackCount)
			if room == 0 {
				continue
			}
			fill := min(remaining, room)
			m.claim(claimed, r.Origin, rfp)
			plan.Fills = append(plan.Fills, SlotFill{Index: i, Amount: fill, Existing: true})
			plan.TotalFillable += fill
			remaining -= fill
			continue
		}

		origin := m.Coord(i)
		if !m.InBounds(origin, fp) || m.regionClaimed(claimed, origin, fp) {
			continue
		}
		if st := m.ClassifyRegion(origin, fp); st.Kind != RegionFree {
			continue
		}
		fill := min(remaining, limit)
		m.claim(claimed, origin, fp)
		plan.Fills = append(plan.Fills, SlotFill{Index: i, Amount: fill})
		plan.TotalFillable += fill
		remaining -= fill
	}

	plan.Remainder = remaining
	return plan
}

// HasRoomFor reports whether all amount units of item fit right now.
func (m *Model) HasRoomFor(item Item, amount int) bool {
	return m.FindRoomFor(item, amount).Fits()
}

// Commit applies plan for item. Every fill is validated against the current
// grid before the first write; a plan that no longer matches is rejected
// with ErrPlanStale and nothing changes.
func (m *Model) Commit(item Item, plan PlacementPlan) error {
	if item.ID == "" {
		return fmt.Errorf("commit: %w", ErrInvalidItem)
	}
	fp := item.Dims()
	limit := item.Rule.Limit()
	claimed := make([]bool, len(m.cells))
	pending := make(map[CellIndex]int)

	for n, f := range plan.Fills {
		if f.Amount < 1 {
			return fmt.Errorf("commit fill %d amount %d: %w", n, f.Amount, ErrPlanStale)
		}
		if f.Existing {
			r, ok := m.residentAnchoredAt(f.Index)
			if !ok || !TypesMatch(r.Item.Type, item.Type) || !r.Item.Rule.Stackable {
				return fmt.Errorf("commit fill %d at index %d: %w", n, f.Index, ErrPlanStale)
			}
			if r.StackCount+pending[f.Index]+f.Amount > limit {
				return fmt.Errorf("commit fill %d at index %d overflows stack: %w", n, f.Index, ErrPlanStale)
			}
			pending[f.Index] += f.Amount
			continue
		}
		origin := m.Coord(f.Index)
		if f.Amount > limit || !m.IsRegionFree(origin, fp) || m.regionClaimed(claimed, origin, fp) {
			return fmt.Errorf("commit fill %d at index %d: %w", n, f.Index, ErrPlanStale)
		}
		m.claim(claimed, origin, fp)
	}

	for _, f := range plan.Fills {
		if f.Existing {
			anchor := f.Index
			m.cells[anchor].StackCount += f.Amount
			r := m.resident[anchor]
			m.notify(SlotsChanged{Anchor: anchor, Footprint: r.Dims(), Item: r.ID, StackCount: m.cells[anchor].StackCount})
			continue
		}
		if err := m.Place(item, m.Coord(f.Index), f.Amount); err != nil {
			return fmt.Errorf("commit place at index %d: %w", f.Index, err)
		}
	}
	return nil
}

// residentAnchoredAt returns the resident whose anchor is exactly i.
func (m *Model) residentAnchoredAt(i CellIndex) (Resident, bool) {
	if !m.validIndex(i) || m.cells[i].UpperLeft != i {
		return Resident{}, false
	}
	return m.ResidentAt(i)
}

func (m *Model) regionClaimed(claimed []bool, origin Coord, fp Footprint) bool {
	hit := false
	m.forEach(origin, fp, func(i CellIndex) {
		if claimed[i] {
			hit = true
		}
	})
	return hit
}

func (m *Model) claim(claimed []bool, origin Coord, fp Footprint) {
	m.forEach(origin, fp, func(i CellIndex) {
		claimed[i] = true
	})
}
