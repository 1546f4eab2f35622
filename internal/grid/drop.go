package grid

import (
	"fmt"

	"go.uber.org/zap"
)

// DropKind is what a drop did to the grid and the hover.
type DropKind int

const (
	// DropRejected: target blocked or out of bounds. Nothing changed.
	DropRejected DropKind = iota
	// DropPlaced: held item placed on free cells. Hover ends.
	DropPlaced
	// DropConsumed: all held units merged into the target stack. Hover ends.
	DropConsumed
	// DropFilled: target topped up to max, the rest stays held.
	DropFilled
	// DropSwappedCounts: target was full but held less than max; counts
	// exchanged. Split hovers never swap counts.
	DropSwappedCounts
	// DropSwapped: held item placed, the former occupant is now held.
	DropSwapped
	// DropTargetFull: target full and no count swap applies. Nothing changed.
	DropTargetFull
)

func (k DropKind) String() string {
	switch k {
	case DropRejected:
		return "rejected"
	case DropPlaced:
		return "placed"
	case DropConsumed:
		return "consumed"
	case DropFilled:
		return "filled"
	case DropSwappedCounts:
		return "swapped_counts"
	case DropSwapped:
		return "swapped"
	case DropTargetFull:
		return "target_full"
	}
	return "unknown"
}

// DropOutcome reports the result of Drop.
type DropOutcome struct {
	Kind    DropKind
	Region  RegionState
	Anchor  CellIndex // anchor that received units, NoIndex when none did
	Moved   int       // units that left the hover
	Holding bool      // hover still active afterwards
}

// Drop releases the hover at origin. The target region is classified with
// the held item's current footprint and the outcome follows from it:
// free cells take the item, a single compatible stack merges, a single
// incompatible item swaps with the hover, anything else is rejected.
func (g *Grid) Drop(origin Coord) (DropOutcome, error) {
	if g.hover == nil {
		return DropOutcome{Kind: DropRejected, Anchor: NoIndex}, fmt.Errorf("drop: %w", ErrNoActiveHover)
	}
	h := g.hover
	st := g.model.ClassifyRegion(origin, h.Footprint())
	rejected := DropOutcome{Kind: DropRejected, Region: st, Anchor: NoIndex, Holding: true}

	switch st.Kind {
	case RegionOutOfBounds:
		return rejected, fmt.Errorf("drop %s at (%d,%d): %w", h.Item.ID, origin.X, origin.Y, ErrOutOfBounds)
	case RegionBlocked:
		g.log.Debug("drop blocked",
			zap.String("item", string(h.Item.ID)),
			zap.Int("x", origin.X), zap.Int("y", origin.Y),
		)
		return rejected, nil
	case RegionFree:
		return g.dropOnFree(origin, st)
	}

	if TypesMatch(st.Occupant.Type, h.Item.Type) && st.Occupant.Rule.Stackable && h.Item.Rule.Stackable {
		return g.dropOnStack(st), nil
	}
	return g.swapWithOccupant(origin, st)
}

// placementItem returns the item to write for the held units, minting a new
// record through the RecordSource when the hover is a split.
func (g *Grid) placementItem() (Item, error) {
	h := g.hover
	item := h.Item
	if !h.IsSplit {
		return item, nil
	}
	if g.records == nil {
		return Item{}, fmt.Errorf("split of %s: %w", h.SplitSource, ErrNoRecordSource)
	}
	id, err := g.records.SplitRecord(item, h.StackCount)
	if err != nil {
		return Item{}, fmt.Errorf("split record for %s: %w", h.SplitSource, err)
	}
	item.ID = id
	return item, nil
}

func (g *Grid) dropOnFree(origin Coord, st RegionState) (DropOutcome, error) {
	h := g.hover
	item, err := g.placementItem()
	if err != nil {
		return DropOutcome{Kind: DropRejected, Region: st, Anchor: NoIndex, Holding: true}, err
	}
	if err := g.model.Place(item, origin, h.StackCount); err != nil {
		return DropOutcome{Kind: DropRejected, Region: st, Anchor: NoIndex, Holding: true}, fmt.Errorf("drop: %w", err)
	}
	anchor := g.model.Index(origin)
	if h.IsSplit {
		publish(g, SplitRequested{Grid: g.name, Source: h.SplitSource, NewItem: item.ID, Amount: h.StackCount, Anchor: anchor})
	}
	moved := h.StackCount
	g.finish(HoverDropped)
	g.log.Debug("item dropped",
		zap.String("item", string(item.ID)),
		zap.Int("anchor", int(anchor)),
		zap.Int("count", moved),
	)
	return DropOutcome{Kind: DropPlaced, Region: st, Anchor: anchor, Moved: moved}, nil
}

func (g *Grid) dropOnStack(st RegionState) DropOutcome {
	h := g.hover
	room := st.Room()
	held := h.StackCount
	limit := st.Occupant.Rule.Limit()
	out := DropOutcome{Region: st, Anchor: st.UpperLeft}

	switch {
	case room == 0 && held < limit && !h.IsSplit:
		g.model.cells[st.UpperLeft].StackCount = held
		g.model.notify(SlotsChanged{Anchor: st.UpperLeft, Footprint: st.Occupant.Dims(), Item: st.Occupant.ID, StackCount: held})
		h.StackCount = st.StackCount
		publish(g, CountsExchanged{Grid: g.name, Target: st.Occupant.ID, Held: h.Item.ID, Anchor: st.UpperLeft, TargetCount: held, HeldCount: st.StackCount})
		g.emitHover()
		out.Kind, out.Moved, out.Holding = DropSwappedCounts, held, true

	case room == 0:
		out.Kind, out.Anchor, out.Holding = DropTargetFull, NoIndex, true

	case held <= room:
		g.model.cells[st.UpperLeft].StackCount += held
		g.model.notify(SlotsChanged{Anchor: st.UpperLeft, Footprint: st.Occupant.Dims(), Item: st.Occupant.ID, StackCount: st.StackCount + held})
		g.merged(st, held)
		g.finish(HoverDropped)
		out.Kind, out.Moved = DropConsumed, held

	default:
		g.model.cells[st.UpperLeft].StackCount = limit
		g.model.notify(SlotsChanged{Anchor: st.UpperLeft, Footprint: st.Occupant.Dims(), Item: st.Occupant.ID, StackCount: limit})
		g.merged(st, room)
		h.StackCount = held - room
		g.emitHover()
		out.Kind, out.Moved, out.Holding = DropFilled, room, true
	}

	g.log.Debug("drop on stack",
		zap.String("outcome", out.Kind.String()),
		zap.String("target", string(st.Occupant.ID)),
		zap.Int("anchor", int(st.UpperLeft)),
		zap.Int("moved", out.Moved),
	)
	return out
}

func (g *Grid) merged(st RegionState, amount int) {
	h := g.hover
	publish(g, StackMerged{
		Grid:   g.name,
		Source: h.Item.ID,
		Target: st.Occupant.ID,
		Anchor: st.UpperLeft,
		Amount: amount,
		Split:  h.IsSplit,
	})
}

func (g *Grid) swapWithOccupant(origin Coord, st RegionState) (DropOutcome, error) {
	h := g.hover
	item, err := g.placementItem()
	if err != nil {
		return DropOutcome{Kind: DropRejected, Region: st, Anchor: NoIndex, Holding: true}, err
	}

	removed := g.model.removeAnchor(st.UpperLeft)
	if err := g.model.Place(item, origin, h.StackCount); err != nil {
		if rerr := g.model.Place(removed.Item, removed.Origin, removed.StackCount); rerr != nil {
			return DropOutcome{}, fmt.Errorf("swap restore %s: %w", removed.Item.ID, rerr)
		}
		return DropOutcome{Kind: DropRejected, Region: st, Anchor: NoIndex, Holding: true}, fmt.Errorf("swap: %w", err)
	}
	anchor := g.model.Index(origin)
	if h.IsSplit {
		publish(g, SplitRequested{Grid: g.name, Source: h.SplitSource, NewItem: item.ID, Amount: h.StackCount, Anchor: anchor})
	}

	next := &Hover{
		Item:          removed.Item,
		StackCount:    removed.StackCount,
		Origin:        h.Origin,
		pickupRotated: removed.Item.Rotated,
	}
	if next.Origin == NoIndex {
		next.Origin = removed.Anchor
	}
	moved := h.StackCount
	g.begin(next, HoverHolding)

	g.log.Debug("item swapped",
		zap.String("placed", string(item.ID)),
		zap.String("held", string(removed.Item.ID)),
		zap.Int("anchor", int(anchor)),
	)
	return DropOutcome{Kind: DropSwapped, Region: st, Anchor: anchor, Moved: moved, Holding: true}, nil
}

// CancelOutcome reports where cancelled units went.
type CancelOutcome struct {
	Plan     PlacementPlan
	Released int // units handed back through ItemReleased
}

// Cancel ends the hover. An item with an origin is put back wherever the
// placement query finds room, in the orientation it had when picked up;
// whatever does not fit is released. An external item is released whole.
func (g *Grid) Cancel() (CancelOutcome, error) {
	if g.hover == nil {
		return CancelOutcome{}, fmt.Errorf("cancel: %w", ErrNoActiveHover)
	}
	h := g.hover

	if !h.HasOrigin() {
		publish(g, ItemReleased{Grid: g.name, Item: h.Item.ID, Amount: h.StackCount})
		released := h.StackCount
		g.finish(HoverCancelled)
		return CancelOutcome{Released: released}, nil
	}

	// Re-query with the rotation held at pickup, not the unrotated
	// footprint, so a rotated item returns as it was.
	item := h.Item.WithRotation(h.pickupRotated)
	if h.IsSplit {
		item.ID = h.SplitSource
	}
	plan := g.model.FindRoomFor(item, h.StackCount)
	if err := g.model.Commit(item, plan); err != nil {
		return CancelOutcome{}, fmt.Errorf("cancel %s: %w", item.ID, err)
	}
	g.mergedFills(item, plan)
	out := CancelOutcome{Plan: plan}
	if plan.Remainder > 0 {
		g.log.Warn("cancel left units without room",
			zap.String("item", string(item.ID)),
			zap.Int("remainder", plan.Remainder),
		)
		publish(g, ItemReleased{Grid: g.name, Item: item.ID, Amount: plan.Remainder})
		out.Released = plan.Remainder
	}
	g.finish(HoverCancelled)
	return out, nil
}
