package grid

import "fmt"

// CountByType sums the stack counts of every resident of type t.
func (m *Model) CountByType(t ItemType) int {
	total := 0
	for anchor, item := range m.resident {
		if TypesMatch(item.Type, t) {
			total += m.cells[anchor].StackCount
		}
	}
	return total
}

// ConsumeByType removes up to amount units of type t, draining stacks in
// ascending anchor order. Stacks that reach zero are cleared. Returns the
// number of units actually consumed.
func (m *Model) ConsumeByType(t ItemType, amount int) (int, error) {
	if amount < 1 {
		return 0, fmt.Errorf("consume %s amount %d: %w", t, amount, ErrInvalidAmount)
	}
	consumed := 0
	for _, r := range m.Residents() {
		if consumed == amount {
			break
		}
		if !TypesMatch(r.Item.Type, t) {
			continue
		}
		take := min(amount-consumed, r.StackCount)
		consumed += take
		if m.onConsume != nil {
			m.onConsume(StackConsumed{Item: r.Item.ID, Anchor: r.Anchor, Amount: take})
		}
		if take == r.StackCount {
			m.removeAnchor(r.Anchor)
			continue
		}
		m.cells[r.Anchor].StackCount -= take
		m.notify(SlotsChanged{Anchor: r.Anchor, Footprint: r.Item.Dims(), Item: r.Item.ID, StackCount: r.StackCount - take})
	}
	return consumed, nil
}

// Move relocates the item covering cell from so that its anchor becomes to.
// Rotation and stack count are kept. The destination may overlap the item's
// own cells but nothing else.
func (m *Model) Move(from CellIndex, to Coord) error {
	r, ok := m.ResidentAt(from)
	if !ok {
		return fmt.Errorf("move from index %d: %w", from, ErrEmptyRegion)
	}
	fp := r.Item.Dims()
	if !m.InBounds(to, fp) {
		return fmt.Errorf("move %s to (%d,%d): %w", r.Item.ID, to.X, to.Y, ErrOutOfBounds)
	}
	blocked := false
	m.forEach(to, fp, func(i CellIndex) {
		if c := m.cells[i]; c.Occupied() && c.UpperLeft != r.Anchor {
			blocked = true
		}
	})
	if blocked {
		return fmt.Errorf("move %s to (%d,%d): %w", r.Item.ID, to.X, to.Y, ErrOccupied)
	}
	if m.Index(to) == r.Anchor {
		return nil
	}
	removed := m.removeAnchor(r.Anchor)
	return m.Place(removed.Item, to, removed.StackCount)
}
