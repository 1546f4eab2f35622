package grid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/helluna/gridinv/internal/core/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecords struct {
	next  int
	fail  error
	calls []int
}

func (f *fakeRecords) SplitRecord(source Item, amount int) (ItemID, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.next++
	f.calls = append(f.calls, amount)
	return ItemID(fmt.Sprintf("%s-split-%d", source.ID, f.next)), nil
}

type recorder struct {
	released []ItemReleased
	splits   []SplitRequested
	merged   []StackMerged
	hovers   []HoverState
}

func newTestGrid(t *testing.T, cols, rows int, opts ...Option) (*Grid, *event.Bus, *recorder) {
	t.Helper()
	bus := event.NewBus()
	rec := &recorder{}
	event.Subscribe(bus, func(e ItemReleased) { rec.released = append(rec.released, e) })
	event.Subscribe(bus, func(e SplitRequested) { rec.splits = append(rec.splits, e) })
	event.Subscribe(bus, func(e StackMerged) { rec.merged = append(rec.merged, e) })
	event.Subscribe(bus, func(e HoverChanged) { rec.hovers = append(rec.hovers, e.State) })
	opts = append([]Option{WithName("test"), WithBus(bus)}, opts...)
	return New(cols, rows, opts...), bus, rec
}

func TestPickUpAndDropOnFree(t *testing.T) {
	g, bus, rec := newTestGrid(t, 4, 4)
	item := single("w1", "W", 1, 2)
	require.NoError(t, g.Model().Place(item, Coord{}, 1))

	h, err := g.PickUp(4)
	require.NoError(t, err)
	assert.Equal(t, CellIndex(0), h.Origin)
	assert.Equal(t, HoverHolding, g.State())
	assert.Empty(t, g.Model().Residents(), "held item is in no cell")

	_, err = g.PickUp(0)
	require.ErrorIs(t, err, ErrHoverAlreadyActive)

	out, err := g.Drop(Coord{X: 3, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, DropPlaced, out.Kind)
	assert.Equal(t, CellIndex(11), out.Anchor)
	assert.False(t, out.Holding)
	assert.Equal(t, HoverDropped, g.State())
	_, held := g.Hover()
	assert.False(t, held)
	assert.Equal(t, ItemID("w1"), g.Model().Cell(15).Item)
	requireBitmapConsistent(t, g.Model())

	bus.Flush(4)
	assert.Equal(t, []HoverState{HoverHolding, HoverDropped}, rec.hovers)
}

func TestDropOutOfBoundsAndBlockedLeaveGridUnchanged(t *testing.T) {
	g, _, _ := newTestGrid(t, 3, 3)
	require.NoError(t, g.Model().Place(single("s1", "S", 1, 1), Coord{X: 1, Y: 0}, 1))
	require.NoError(t, g.Model().Place(single("s2", "S", 1, 1), Coord{X: 1, Y: 1}, 1))
	_, err := g.PickUpExternal(single("c1", "C", 2, 2), 1)
	require.NoError(t, err)

	before := g.Model().Snapshot()
	out, err := g.Drop(Coord{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, DropRejected, out.Kind)
	assert.Equal(t, RegionBlocked, out.Region.Kind)
	assert.Equal(t, before, g.Model().Snapshot())
	assert.Equal(t, HoverHolding, g.State())

	out, err = g.Drop(Coord{X: 2, Y: 2})
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, DropRejected, out.Kind)
	assert.Equal(t, before, g.Model().Snapshot())
	assert.Equal(t, HoverHolding, g.State())
}

func TestDropOnStackSubCases(t *testing.T) {
	tests := []struct {
		name        string
		target      int
		held        int
		wantKind    DropKind
		wantTarget  int
		wantHeld    int
		wantHolding bool
	}{
		{"consume", 4, 5, DropConsumed, 9, 0, false},
		{"consume to exactly max", 4, 6, DropConsumed, 10, 0, false},
		{"fill then remainder", 7, 7, DropFilled, 10, 4, true},
		{"swap counts", 10, 3, DropSwappedCounts, 3, 10, true},
		{"both full", 10, 10, DropTargetFull, 10, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, _ := newTestGrid(t, 4, 4)
			a := stackable("a1", "A", 2, 2, 10)
			require.NoError(t, g.Model().Place(a, Coord{}, tt.target))
			_, err := g.PickUpExternal(stackable("a2", "A", 2, 2, 10), tt.held)
			require.NoError(t, err)

			out, err := g.Drop(Coord{X: 0, Y: 0})
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantHolding, out.Holding)
			assert.Equal(t, tt.wantTarget, g.Model().StackCountAt(0))

			h, ok := g.Hover()
			assert.Equal(t, tt.wantHolding, ok)
			if tt.wantHolding {
				assert.Equal(t, tt.wantHeld, h.StackCount)
				assert.Equal(t, HoverHolding, g.State())
			} else {
				assert.Equal(t, HoverDropped, g.State())
			}
		})
	}
}

func TestDropOnStackFromOverlappingOrigin(t *testing.T) {
	g, _, _ := newTestGrid(t, 3, 3)
	require.NoError(t, g.Model().Place(stackable("a1", "A", 2, 2, 10), Coord{}, 7))
	_, err := g.PickUpExternal(stackable("a2", "A", 2, 2, 10), 7)
	require.NoError(t, err)

	out, err := g.Drop(Coord{X: 1, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, DropFilled, out.Kind)
	assert.Equal(t, CellIndex(0), out.Anchor)
	assert.Equal(t, 10, g.Model().StackCountAt(0))
	h, ok := g.Hover()
	require.True(t, ok)
	assert.Equal(t, 4, h.StackCount)
}

func TestDropSwapsWholeItem(t *testing.T) {
	g, _, _ := newTestGrid(t, 4, 4)
	require.NoError(t, g.Model().Place(single("s1", "S", 1, 1), Coord{X: 2, Y: 2}, 1))
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 10), Coord{X: 0, Y: 0}, 6))

	_, err := g.PickUp(0)
	require.NoError(t, err)

	out, err := g.Drop(Coord{X: 2, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, DropSwapped, out.Kind)
	assert.True(t, out.Holding)
	assert.Equal(t, ItemID("a1"), g.Model().Cell(10).Item)
	assert.Equal(t, 6, g.Model().StackCountAt(10))

	h, ok := g.Hover()
	require.True(t, ok)
	assert.Equal(t, ItemID("s1"), h.Item.ID)
	assert.Equal(t, CellIndex(0), h.Origin, "origin of the first pickup is kept")
	assert.Equal(t, HoverHolding, g.State())

	out, err = g.Drop(Coord{})
	require.NoError(t, err)
	assert.Equal(t, DropPlaced, out.Kind)
	requireBitmapConsistent(t, g.Model())
}

func TestRotationIdempotence(t *testing.T) {
	g, _, _ := newTestGrid(t, 4, 4)
	_, err := g.ToggleRotation()
	require.ErrorIs(t, err, ErrNoActiveHover)

	_, err = g.PickUpExternal(single("w1", "W", 1, 3), 1)
	require.NoError(t, err)
	h, _ := g.Hover()
	start := h.Footprint()

	rot, err := g.ToggleRotation()
	require.NoError(t, err)
	assert.True(t, rot)
	h, _ = g.Hover()
	assert.Equal(t, Footprint{W: 3, H: 1}, h.Footprint())

	rot, err = g.ToggleRotation()
	require.NoError(t, err)
	assert.False(t, rot)
	h, _ = g.Hover()
	assert.Equal(t, start, h.Footprint())
}

func TestRotationIgnoredForSquare(t *testing.T) {
	g, _, _ := newTestGrid(t, 4, 4)
	_, err := g.PickUpExternal(single("c1", "C", 2, 2), 1)
	require.NoError(t, err)
	rot, err := g.ToggleRotation()
	require.NoError(t, err)
	assert.False(t, rot)
}

func TestRotatedDropUsesRotatedFootprint(t *testing.T) {
	g, _, _ := newTestGrid(t, 3, 2)
	_, err := g.PickUpExternal(single("w1", "W", 1, 3), 1)
	require.NoError(t, err)

	_, err = g.Drop(Coord{})
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = g.ToggleRotation()
	require.NoError(t, err)
	out, err := g.Drop(Coord{X: 0, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, DropPlaced, out.Kind)
	for _, i := range []CellIndex{3, 4, 5} {
		assert.Equal(t, CellIndex(3), g.Model().Cell(i).UpperLeft)
	}
}

func TestCancelExternalDiscards(t *testing.T) {
	g, bus, rec := newTestGrid(t, 3, 3)
	_, err := g.PickUpExternal(stackable("e1", "E", 1, 1, 20), 12)
	require.NoError(t, err)

	out, err := g.Cancel()
	require.NoError(t, err)
	assert.Equal(t, 12, out.Released)
	assert.Equal(t, HoverCancelled, g.State())
	for _, c := range g.Model().Snapshot() {
		assert.NotEqual(t, ItemID("e1"), c.Item)
	}

	bus.Flush(4)
	require.Len(t, rec.released, 1)
	assert.Equal(t, ItemReleased{Grid: "test", Item: "e1", Amount: 12}, rec.released[0])

	_, err = g.Cancel()
	require.ErrorIs(t, err, ErrNoActiveHover)
}

func TestCancelRestoresWithPickupRotation(t *testing.T) {
	g, _, _ := newTestGrid(t, 3, 3)
	w := single("w1", "W", 1, 3).WithRotation(true)
	require.NoError(t, g.Model().Place(w, Coord{X: 0, Y: 2}, 1))

	_, err := g.PickUp(7)
	require.NoError(t, err)
	_, err = g.ToggleRotation()
	require.NoError(t, err)

	out, err := g.Cancel()
	require.NoError(t, err)
	assert.True(t, out.Plan.Fits())
	r, ok := g.Model().ResidentAt(0)
	require.True(t, ok)
	assert.True(t, r.Item.Rotated)
	assert.Equal(t, Footprint{W: 3, H: 1}, r.Item.Dims())
	assert.Equal(t, HoverCancelled, g.State())
}

func TestCancelReleasesWhatNoLongerFits(t *testing.T) {
	g, bus, rec := newTestGrid(t, 2, 1)
	a := stackable("a1", "A", 1, 1, 5)
	require.NoError(t, g.Model().Place(a, Coord{}, 4))
	_, err := g.PickUp(0)
	require.NoError(t, err)

	require.NoError(t, g.Model().Place(single("s1", "S", 1, 1), Coord{}, 1))
	require.NoError(t, g.Model().Place(stackable("a9", "A", 1, 1, 5), Coord{X: 1}, 3))

	out, err := g.Cancel()
	require.NoError(t, err)
	assert.Equal(t, 2, out.Plan.TotalFillable)
	assert.Equal(t, 2, out.Released)
	assert.Equal(t, 5, g.Model().StackCountAt(1))

	bus.Flush(4)
	require.Len(t, rec.released, 1)
	assert.Equal(t, 2, rec.released[0].Amount)
}

func TestSplitAndDropOnFreeMintsRecord(t *testing.T) {
	records := &fakeRecords{}
	g, bus, rec := newTestGrid(t, 4, 1, WithRecordSource(records))
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 20), Coord{}, 9))

	h, err := g.Split(0, 4)
	require.NoError(t, err)
	assert.True(t, h.IsSplit)
	assert.Equal(t, ItemID("a1"), h.SplitSource)
	assert.Equal(t, HoverSplitHolding, g.State())
	assert.Equal(t, 5, g.Model().StackCountAt(0))

	out, err := g.Drop(Coord{X: 2})
	require.NoError(t, err)
	assert.Equal(t, DropPlaced, out.Kind)
	assert.Equal(t, ItemID("a1-split-1"), g.Model().Cell(2).Item)
	assert.Equal(t, 4, g.Model().StackCountAt(2))
	assert.Equal(t, 9, g.Model().CountByType("A"))

	bus.Flush(4)
	require.Len(t, rec.splits, 1)
	assert.Equal(t, SplitRequested{Grid: "test", Source: "a1", NewItem: "a1-split-1", Amount: 4, Anchor: 2}, rec.splits[0])
}

func TestSplitDropWithoutRecordSourceIsRejected(t *testing.T) {
	g, _, _ := newTestGrid(t, 4, 1)
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 20), Coord{}, 9))
	_, err := g.Split(0, 4)
	require.NoError(t, err)

	before := g.Model().Snapshot()
	out, err := g.Drop(Coord{X: 2})
	require.ErrorIs(t, err, ErrNoRecordSource)
	assert.Equal(t, DropRejected, out.Kind)
	assert.Equal(t, before, g.Model().Snapshot())
	assert.Equal(t, HoverSplitHolding, g.State())
}

func TestSplitRecordFailureLeavesHover(t *testing.T) {
	boom := errors.New("ledger closed")
	g, _, _ := newTestGrid(t, 4, 1, WithRecordSource(&fakeRecords{fail: boom}))
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 20), Coord{}, 9))
	_, err := g.Split(0, 3)
	require.NoError(t, err)

	_, err = g.Drop(Coord{X: 3})
	require.ErrorIs(t, err, boom)
	h, ok := g.Hover()
	require.True(t, ok)
	assert.Equal(t, 3, h.StackCount)
}

func TestSplitMergeIntoStack(t *testing.T) {
	records := &fakeRecords{}
	g, bus, rec := newTestGrid(t, 4, 1, WithRecordSource(records))
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 20), Coord{}, 9))
	require.NoError(t, g.Model().Place(stackable("a2", "A", 1, 1, 20), Coord{X: 3}, 2))

	_, err := g.Split(0, 4)
	require.NoError(t, err)
	out, err := g.Drop(Coord{X: 3})
	require.NoError(t, err)
	assert.Equal(t, DropConsumed, out.Kind)
	assert.Equal(t, 6, g.Model().StackCountAt(3))
	assert.Empty(t, records.calls, "no new record for merged units")

	bus.Flush(4)
	require.Len(t, rec.merged, 1)
	assert.Equal(t, StackMerged{Grid: "test", Source: "a1", Target: "a2", Anchor: 3, Amount: 4, Split: true}, rec.merged[0])
}

func TestSplitCancelMergesBack(t *testing.T) {
	g, _, _ := newTestGrid(t, 4, 1)
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 20), Coord{}, 9))
	_, err := g.Split(0, 4)
	require.NoError(t, err)

	out, err := g.Cancel()
	require.NoError(t, err)
	assert.Equal(t, []SlotFill{{Index: 0, Amount: 4, Existing: true}}, out.Plan.Fills)
	assert.Equal(t, 9, g.Model().StackCountAt(0))
	assert.Len(t, g.Model().Residents(), 1)
}

func TestSplitValidation(t *testing.T) {
	g, _, _ := newTestGrid(t, 3, 1)
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 20), Coord{}, 5))
	require.NoError(t, g.Model().Place(single("s1", "S", 1, 1), Coord{X: 1}, 1))

	_, err := g.Split(0, 5)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = g.Split(0, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = g.Split(1, 1)
	require.ErrorIs(t, err, ErrNotStackable)
	_, err = g.Split(2, 1)
	require.ErrorIs(t, err, ErrEmptyRegion)
	assert.Equal(t, 5, g.Model().StackCountAt(0))
	assert.Equal(t, HoverEmpty, g.State())
}

func TestQuickSplit(t *testing.T) {
	g, _, _ := newTestGrid(t, 3, 1)
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 20), Coord{}, 7))
	require.NoError(t, g.Model().Place(stackable("b1", "B", 1, 1, 20), Coord{X: 1}, 1))

	_, err := g.QuickSplit(1)
	require.ErrorIs(t, err, ErrInvalidAmount)

	h, err := g.QuickSplit(0)
	require.NoError(t, err)
	assert.Equal(t, 4, h.StackCount)
	assert.Equal(t, 3, g.Model().StackCountAt(0))
	assert.Equal(t, 1, HalfSplit(1))
	assert.Equal(t, 1, HalfSplit(2))
}

func TestPickUpExternalValidation(t *testing.T) {
	g, _, _ := newTestGrid(t, 3, 1)
	_, err := g.PickUpExternal(single("", "S", 1, 1), 1)
	require.ErrorIs(t, err, ErrInvalidItem)
	_, err = g.PickUpExternal(stackable("a", "A", 1, 1, 5), 6)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = g.PickUpExternal(single("s", "S", 1, 1), 2)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = g.Drop(Coord{})
	require.ErrorIs(t, err, ErrNoActiveHover)
}

func TestAddItem(t *testing.T) {
	g, _, _ := newTestGrid(t, 2, 1)
	a := stackable("a1", "A", 1, 1, 5)

	plan, err := g.AddItem(a, 12)
	require.NoError(t, err)
	assert.Equal(t, 10, plan.TotalFillable)
	assert.Equal(t, 2, plan.Remainder)
	assert.Equal(t, 10, g.Model().CountByType("A"))

	_, err = g.AddItem(a, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAddItemOntoOtherRecordPublishesMerge(t *testing.T) {
	g, bus, rec := newTestGrid(t, 2, 1)
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 5), Coord{}, 3))

	plan, err := g.AddItem(stackable("a2", "A", 1, 1, 5), 4)
	require.NoError(t, err)
	assert.Equal(t, []SlotFill{{Index: 0, Amount: 2, Existing: true}, {Index: 1, Amount: 2}}, plan.Fills)

	bus.Flush(4)
	require.Len(t, rec.merged, 1)
	assert.Equal(t, StackMerged{Grid: "test", Source: "a2", Target: "a1", Anchor: 0, Amount: 2}, rec.merged[0])
}

func TestSlotsChangedCarriesGridName(t *testing.T) {
	g, bus, _ := newTestGrid(t, 2, 1)
	var got []SlotsChanged
	event.Subscribe(bus, func(e SlotsChanged) { got = append(got, e) })

	require.NoError(t, g.Model().Place(single("s1", "S", 1, 1), Coord{X: 1}, 1))
	_, err := g.Model().RemoveAt(1)
	require.NoError(t, err)
	bus.Flush(2)

	require.Len(t, got, 2)
	assert.Equal(t, "test", got[0].Grid)
	assert.False(t, got[0].Cleared)
	assert.True(t, got[1].Cleared)
}

func TestSplitHoverNeverSwapsCounts(t *testing.T) {
	g, _, _ := newTestGrid(t, 2, 1, WithRecordSource(&fakeRecords{}))
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 10), Coord{}, 8))
	require.NoError(t, g.Model().Place(stackable("a2", "A", 1, 1, 10), Coord{X: 1}, 10))
	_, err := g.Split(0, 3)
	require.NoError(t, err)

	out, err := g.Drop(Coord{X: 1})
	require.NoError(t, err)
	assert.Equal(t, DropTargetFull, out.Kind)
	assert.Equal(t, 10, g.Model().StackCountAt(1))
	assert.Equal(t, HoverSplitHolding, g.State())
}

func TestSwapCountsReportsExchange(t *testing.T) {
	g, bus, _ := newTestGrid(t, 2, 1)
	var got []CountsExchanged
	event.Subscribe(bus, func(e CountsExchanged) { got = append(got, e) })
	require.NoError(t, g.Model().Place(stackable("a1", "A", 1, 1, 10), Coord{}, 10))
	_, err := g.PickUpExternal(stackable("a2", "A", 1, 1, 10), 3)
	require.NoError(t, err)

	_, err = g.Drop(Coord{})
	require.NoError(t, err)
	bus.Flush(2)
	require.Len(t, got, 1)
	assert.Equal(t, CountsExchanged{Grid: "test", Target: "a1", Held: "a2", Anchor: 0, TargetCount: 3, HeldCount: 10}, got[0])
}
