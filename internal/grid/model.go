package grid

import (
	"fmt"
	"sort"
)

// Cell is one grid unit. Only the anchor (upper-left) cell of a placement
// stores the stack count; Model.Cell mirrors it onto the other cells.
type Cell struct {
	Item       ItemID
	UpperLeft  CellIndex
	StackCount int
	Available  bool
}

// Occupied reports whether an item references this cell.
func (c Cell) Occupied() bool { return c.Item != "" }

// Resident describes one placed item, keyed by its anchor cell.
type Resident struct {
	Item       Item
	Anchor     CellIndex
	Origin     Coord
	StackCount int
}

// RemovedItem is what Remove hands back to the caller (usually a hover pickup).
type RemovedItem = Resident

// Model owns the cells of one grid and the occupancy bitmap that mirrors them.
// Not safe for concurrent use; the owning input loop is the only writer.
type Model struct {
	cols     int
	rows     int
	cells    []Cell
	bits     occupancy
	resident map[CellIndex]Item

	onChange  func(SlotsChanged)
	onConsume func(StackConsumed)
}

// NewModel creates an empty cols x rows grid.
func NewModel(cols, rows int) *Model {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	n := cols * rows
	m := &Model{
		cols:     cols,
		rows:     rows,
		cells:    make([]Cell, n),
		bits:     newOccupancy(n),
		resident: make(map[CellIndex]Item),
	}
	for i := range m.cells {
		m.cells[i] = emptyCell()
	}
	return m
}

func emptyCell() Cell {
	return Cell{UpperLeft: NoIndex, Available: true}
}

// Columns returns the grid width in cells.
func (m *Model) Columns() int { return m.cols }

// Rows returns the grid height in cells.
func (m *Model) Rows() int { return m.rows }

// Len returns the number of cells.
func (m *Model) Len() int { return len(m.cells) }

// Index converts an in-grid coordinate to its linear index.
// Returns NoIndex when c lies outside the grid.
func (m *Model) Index(c Coord) CellIndex {
	if c.X < 0 || c.Y < 0 || c.X >= m.cols || c.Y >= m.rows {
		return NoIndex
	}
	return CellIndex(c.Y*m.cols + c.X)
}

// Coord converts a linear index back to a coordinate.
func (m *Model) Coord(i CellIndex) Coord {
	if m.cols == 0 {
		return Coord{}
	}
	return Coord{X: int(i) % m.cols, Y: int(i) / m.cols}
}

func (m *Model) validIndex(i CellIndex) bool {
	return i >= 0 && int(i) < len(m.cells)
}

// InBounds reports whether [origin, origin+fp) lies entirely inside the grid.
func (m *Model) InBounds(origin Coord, fp Footprint) bool {
	if !fp.Valid() || origin.X < 0 || origin.Y < 0 {
		return false
	}
	return origin.X+fp.W <= m.cols && origin.Y+fp.H <= m.rows
}

// forEach calls fn for every cell of an in-bounds region, row by row.
func (m *Model) forEach(origin Coord, fp Footprint, fn func(CellIndex)) {
	for y := origin.Y; y < origin.Y+fp.H; y++ {
		row := y * m.cols
		for x := origin.X; x < origin.X+fp.W; x++ {
			fn(CellIndex(row + x))
		}
	}
}

// Cell returns a copy of cell i with the anchor's stack count mirrored in.
func (m *Model) Cell(i CellIndex) Cell {
	if !m.validIndex(i) {
		return emptyCell()
	}
	c := m.cells[i]
	if c.Occupied() {
		c.StackCount = m.cells[c.UpperLeft].StackCount
	}
	return c
}

// Occupied reports the occupancy bit of cell i.
func (m *Model) Occupied(i CellIndex) bool {
	return m.validIndex(i) && m.bits.get(int(i))
}

// IsRegionFree checks the bitmap only. Out-of-bounds regions are never free.
func (m *Model) IsRegionFree(origin Coord, fp Footprint) bool {
	if !m.InBounds(origin, fp) {
		return false
	}
	for y := origin.Y; y < origin.Y+fp.H; y++ {
		row := y * m.cols
		for x := origin.X; x < origin.X+fp.W; x++ {
			if m.bits.get(row + x) {
				return false
			}
		}
	}
	return true
}

// Place writes item into every cell of [origin, origin+item.Dims()) and sets
// the matching bits. It is the unconditional writer: callers classify first.
func (m *Model) Place(item Item, origin Coord, amount int) error {
	if item.ID == "" {
		return fmt.Errorf("place: %w", ErrInvalidItem)
	}
	fp := item.Dims()
	if !m.InBounds(origin, fp) {
		return fmt.Errorf("place %s at (%d,%d) %dx%d: %w", item.ID, origin.X, origin.Y, fp.W, fp.H, ErrOutOfBounds)
	}
	if amount < 1 || amount > item.Rule.Limit() {
		return fmt.Errorf("place %s amount %d (limit %d): %w", item.ID, amount, item.Rule.Limit(), ErrInvalidAmount)
	}
	if !m.IsRegionFree(origin, fp) {
		return fmt.Errorf("place %s at (%d,%d): %w", item.ID, origin.X, origin.Y, ErrOccupied)
	}

	anchor := m.Index(origin)
	m.forEach(origin, fp, func(i CellIndex) {
		m.cells[i] = Cell{Item: item.ID, UpperLeft: anchor}
		m.bits.set(int(i), true)
	})
	m.cells[anchor].StackCount = amount
	m.resident[anchor] = item

	m.notify(SlotsChanged{Anchor: anchor, Footprint: fp, Item: item.ID, StackCount: amount})
	return nil
}

// Remove clears the item anchored at origin. fp must match the resident's
// current footprint; a region holding nothing yields ErrEmptyRegion.
func (m *Model) Remove(origin Coord, fp Footprint) (RemovedItem, error) {
	if !m.InBounds(origin, fp) {
		return RemovedItem{}, fmt.Errorf("remove at (%d,%d) %dx%d: %w", origin.X, origin.Y, fp.W, fp.H, ErrOutOfBounds)
	}
	if m.IsRegionFree(origin, fp) {
		return RemovedItem{}, fmt.Errorf("remove at (%d,%d): %w", origin.X, origin.Y, ErrEmptyRegion)
	}
	anchor := m.Index(origin)
	item, ok := m.resident[anchor]
	if !ok || item.Dims() != fp {
		return RemovedItem{}, fmt.Errorf("remove at (%d,%d) %dx%d: %w", origin.X, origin.Y, fp.W, fp.H, ErrRegionMismatch)
	}
	return m.removeAnchor(anchor), nil
}

// RemoveAt clears whichever item covers cell i.
func (m *Model) RemoveAt(i CellIndex) (RemovedItem, error) {
	anchor, ok := m.anchorOf(i)
	if !ok {
		return RemovedItem{}, fmt.Errorf("remove at index %d: %w", i, ErrEmptyRegion)
	}
	return m.removeAnchor(anchor), nil
}

func (m *Model) removeAnchor(anchor CellIndex) RemovedItem {
	item := m.resident[anchor]
	origin := m.Coord(anchor)
	fp := item.Dims()
	removed := RemovedItem{
		Item:       item,
		Anchor:     anchor,
		Origin:     origin,
		StackCount: m.cells[anchor].StackCount,
	}
	m.forEach(origin, fp, func(i CellIndex) {
		m.cells[i] = emptyCell()
		m.bits.set(int(i), false)
	})
	delete(m.resident, anchor)

	m.notify(SlotsChanged{Anchor: anchor, Footprint: fp, Item: item.ID, Cleared: true})
	return removed
}

// anchorOf resolves any cell of a placed item to its upper-left index.
func (m *Model) anchorOf(i CellIndex) (CellIndex, bool) {
	if !m.validIndex(i) || !m.cells[i].Occupied() {
		return NoIndex, false
	}
	return m.cells[i].UpperLeft, true
}

// StackCountAt reads the stack count through the anchor of the item at i.
func (m *Model) StackCountAt(i CellIndex) int {
	anchor, ok := m.anchorOf(i)
	if !ok {
		return 0
	}
	return m.cells[anchor].StackCount
}

// SetStackCount writes n through the anchor of the item at i.
func (m *Model) SetStackCount(i CellIndex, n int) error {
	anchor, ok := m.anchorOf(i)
	if !ok {
		return fmt.Errorf("set stack count at index %d: %w", i, ErrEmptyRegion)
	}
	item := m.resident[anchor]
	if n < 1 || n > item.Rule.Limit() {
		return fmt.Errorf("set stack count %d on %s (limit %d): %w", n, item.ID, item.Rule.Limit(), ErrInvalidAmount)
	}
	m.cells[anchor].StackCount = n
	m.notify(SlotsChanged{Anchor: anchor, Footprint: item.Dims(), Item: item.ID, StackCount: n})
	return nil
}

// ResidentAt returns the item covering cell i.
func (m *Model) ResidentAt(i CellIndex) (Resident, bool) {
	anchor, ok := m.anchorOf(i)
	if !ok {
		return Resident{}, false
	}
	return Resident{
		Item:       m.resident[anchor],
		Anchor:     anchor,
		Origin:     m.Coord(anchor),
		StackCount: m.cells[anchor].StackCount,
	}, true
}

// Residents lists every placed item in ascending anchor order.
func (m *Model) Residents() []Resident {
	anchors := make([]int, 0, len(m.resident))
	for a := range m.resident {
		anchors = append(anchors, int(a))
	}
	sort.Ints(anchors)
	out := make([]Resident, 0, len(anchors))
	for _, a := range anchors {
		r, _ := m.ResidentAt(CellIndex(a))
		out = append(out, r)
	}
	return out
}

// CellSnapshot is the per-cell state handed to the render collaborator.
type CellSnapshot struct {
	Index      CellIndex
	Item       ItemID
	UpperLeft  CellIndex
	StackCount int
	Available  bool
}

// Snapshot copies every cell, mirroring stack counts from anchors.
func (m *Model) Snapshot() []CellSnapshot {
	out := make([]CellSnapshot, len(m.cells))
	for i := range m.cells {
		c := m.Cell(CellIndex(i))
		out[i] = CellSnapshot{
			Index:      CellIndex(i),
			Item:       c.Item,
			UpperLeft:  c.UpperLeft,
			StackCount: c.StackCount,
			Available:  c.Available,
		}
	}
	return out
}

func (m *Model) notify(ev SlotsChanged) {
	if m.onChange != nil {
		m.onChange(ev)
	}
}

// occupancy is one bit per cell, packed into words.
type occupancy []uint64

func newOccupancy(n int) occupancy {
	return make(occupancy, (n+63)/64)
}

func (o occupancy) get(i int) bool {
	return o[i>>6]&(1<<(uint(i)&63)) != 0
}

func (o occupancy) set(i int, v bool) {
	if v {
		o[i>>6] |= 1 << (uint(i) & 63)
	} else {
		o[i>>6] &^= 1 << (uint(i) & 63)
	}
}
