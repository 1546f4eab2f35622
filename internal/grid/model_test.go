package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stackable(id ItemID, typ ItemType, w, h, max int) Item {
	return Item{ID: id, Type: typ, Footprint: Footprint{W: w, H: h}, Rule: StackRule{Stackable: true, MaxStack: max}}
}

func single(id ItemID, typ ItemType, w, h int) Item {
	return Item{ID: id, Type: typ, Footprint: Footprint{W: w, H: h}}
}

// requireBitmapConsistent checks bit(i) == cell(i) occupied for every cell.
func requireBitmapConsistent(t *testing.T, m *Model) {
	t.Helper()
	for i := 0; i < m.Len(); i++ {
		idx := CellIndex(i)
		require.Equal(t, m.Cell(idx).Occupied(), m.Occupied(idx), "cell %d", i)
	}
}

func TestPlaceWritesEveryCell(t *testing.T) {
	m := NewModel(4, 4)
	require.NoError(t, m.Place(stackable("a1", "A", 2, 2, 10), Coord{X: 1, Y: 1}, 3))

	for _, i := range []CellIndex{5, 6, 9, 10} {
		c := m.Cell(i)
		assert.Equal(t, ItemID("a1"), c.Item)
		assert.Equal(t, CellIndex(5), c.UpperLeft)
		assert.Equal(t, 3, c.StackCount, "count mirrors the anchor")
	}
	assert.False(t, m.Occupied(0))
	assert.Equal(t, 3, m.StackCountAt(10))
	requireBitmapConsistent(t, m)
}

func TestPlaceErrors(t *testing.T) {
	m := NewModel(4, 4)
	require.NoError(t, m.Place(single("s1", "S", 2, 2), Coord{}, 1))

	tests := []struct {
		name   string
		item   Item
		origin Coord
		amount int
		want   error
	}{
		{"crosses right edge", single("s2", "S", 2, 1), Coord{X: 3, Y: 3}, 1, ErrOutOfBounds},
		{"negative origin", single("s2", "S", 1, 1), Coord{X: -1, Y: 0}, 1, ErrOutOfBounds},
		{"overlaps resident", single("s2", "S", 2, 2), Coord{X: 1, Y: 1}, 1, ErrOccupied},
		{"non-stackable amount", single("s2", "S", 1, 1), Coord{X: 3, Y: 0}, 2, ErrInvalidAmount},
		{"over max stack", stackable("a", "A", 1, 1, 5), Coord{X: 3, Y: 0}, 6, ErrInvalidAmount},
		{"missing id", single("", "S", 1, 1), Coord{X: 3, Y: 0}, 1, ErrInvalidItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := m.Snapshot()
			err := m.Place(tt.item, tt.origin, tt.amount)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, m.Snapshot())
		})
	}
}

func TestRemove(t *testing.T) {
	m := NewModel(4, 4)
	require.NoError(t, m.Place(stackable("a1", "A", 2, 2, 10), Coord{X: 1, Y: 1}, 3))

	_, err := m.Remove(Coord{X: 1, Y: 1}, Footprint{W: 1, H: 1})
	require.ErrorIs(t, err, ErrRegionMismatch)

	_, err = m.Remove(Coord{X: 3, Y: 0}, Footprint{W: 1, H: 1})
	require.ErrorIs(t, err, ErrEmptyRegion)

	_, err = m.Remove(Coord{X: 3, Y: 3}, Footprint{W: 2, H: 2})
	require.ErrorIs(t, err, ErrOutOfBounds)

	removed, err := m.Remove(Coord{X: 1, Y: 1}, Footprint{W: 2, H: 2})
	require.NoError(t, err)
	assert.Equal(t, ItemID("a1"), removed.Item.ID)
	assert.Equal(t, CellIndex(5), removed.Anchor)
	assert.Equal(t, 3, removed.StackCount)
	assert.Empty(t, m.Residents())
	requireBitmapConsistent(t, m)
}

func TestSetStackCountGoesThroughAnchor(t *testing.T) {
	m := NewModel(3, 3)
	require.NoError(t, m.Place(stackable("a1", "A", 2, 2, 10), Coord{}, 2))

	require.NoError(t, m.SetStackCount(4, 9))
	assert.Equal(t, 9, m.StackCountAt(0))
	assert.Equal(t, 9, m.Cell(4).StackCount)

	require.ErrorIs(t, m.SetStackCount(0, 11), ErrInvalidAmount)
	require.ErrorIs(t, m.SetStackCount(0, 0), ErrInvalidAmount)
	require.ErrorIs(t, m.SetStackCount(8, 1), ErrEmptyRegion)
}

func TestBitmapConsistencyAcrossSequence(t *testing.T) {
	m := NewModel(5, 3)
	items := []struct {
		item   Item
		origin Coord
	}{
		{single("w1", "W", 1, 3), Coord{X: 0, Y: 0}},
		{stackable("a1", "A", 2, 1, 5), Coord{X: 1, Y: 0}},
		{single("c1", "C", 2, 2), Coord{X: 3, Y: 1}},
		{stackable("b1", "B", 1, 1, 20), Coord{X: 4, Y: 0}},
	}
	for _, it := range items {
		require.NoError(t, m.Place(it.item, it.origin, 1))
		requireBitmapConsistent(t, m)
	}
	_, err := m.RemoveAt(2)
	require.NoError(t, err)
	requireBitmapConsistent(t, m)
	_, err = m.RemoveAt(14)
	require.NoError(t, err)
	requireBitmapConsistent(t, m)
	require.NoError(t, m.Place(single("c2", "C", 2, 2), Coord{X: 1, Y: 1}, 1))
	requireBitmapConsistent(t, m)

	anchors := make([]CellIndex, 0)
	for _, r := range m.Residents() {
		anchors = append(anchors, r.Anchor)
	}
	assert.Equal(t, []CellIndex{0, 4, 6}, anchors)
}

func TestIndexAndCoord(t *testing.T) {
	m := NewModel(4, 3)
	assert.Equal(t, CellIndex(7), m.Index(Coord{X: 3, Y: 1}))
	assert.Equal(t, NoIndex, m.Index(Coord{X: 4, Y: 0}))
	assert.Equal(t, NoIndex, m.Index(Coord{X: 0, Y: -1}))
	assert.Equal(t, Coord{X: 3, Y: 1}, m.Coord(7))
}
