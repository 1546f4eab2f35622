package grid

import (
	"fmt"

	"go.uber.org/zap"
)

// HoverState is the hover transaction's lifecycle position.
type HoverState int

const (
	HoverEmpty HoverState = iota
	HoverHolding
	HoverSplitHolding
	HoverDropped
	HoverCancelled
)

func (s HoverState) String() string {
	switch s {
	case HoverEmpty:
		return "empty"
	case HoverHolding:
		return "holding"
	case HoverSplitHolding:
		return "split_holding"
	case HoverDropped:
		return "dropped"
	case HoverCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Active reports whether an item is currently held.
func (s HoverState) Active() bool {
	return s == HoverHolding || s == HoverSplitHolding
}

// Hover is the item held by the cursor. While it exists the item is in no
// grid cell.
type Hover struct {
	Item        Item // Rotated is the current preview orientation
	StackCount  int
	Origin      CellIndex // NoIndex when the item came from outside the grid
	IsSplit     bool
	SplitSource ItemID

	pickupRotated bool
}

// HasOrigin reports whether cancel should try to put the item back.
func (h Hover) HasOrigin() bool { return h.Origin != NoIndex }

// Footprint returns the preview footprint.
func (h Hover) Footprint() Footprint { return h.Item.Dims() }

// Hover returns a copy of the active hover.
func (g *Grid) Hover() (Hover, bool) {
	if g.hover == nil {
		return Hover{}, false
	}
	return *g.hover, true
}

// State returns the hover state.
func (g *Grid) State() HoverState { return g.state }

// PickUp lifts the whole item covering cell i into a new hover.
func (g *Grid) PickUp(i CellIndex) (Hover, error) {
	if g.state.Active() {
		return Hover{}, fmt.Errorf("pick up at index %d: %w", i, ErrHoverAlreadyActive)
	}
	removed, err := g.model.RemoveAt(i)
	if err != nil {
		return Hover{}, fmt.Errorf("pick up: %w", err)
	}
	g.begin(&Hover{
		Item:          removed.Item,
		StackCount:    removed.StackCount,
		Origin:        removed.Anchor,
		pickupRotated: removed.Item.Rotated,
	}, HoverHolding)
	g.log.Debug("item picked up",
		zap.String("item", string(removed.Item.ID)),
		zap.Int("anchor", int(removed.Anchor)),
		zap.Int("count", removed.StackCount),
	)
	return *g.hover, nil
}

// PickUpExternal starts a hover for an item that is not in this grid.
// Cancelling it discards the hover and releases the units back.
func (g *Grid) PickUpExternal(item Item, amount int) (Hover, error) {
	if g.state.Active() {
		return Hover{}, fmt.Errorf("pick up external %s: %w", item.ID, ErrHoverAlreadyActive)
	}
	if item.ID == "" {
		return Hover{}, fmt.Errorf("pick up external: %w", ErrInvalidItem)
	}
	if amount < 1 || amount > item.Rule.Limit() {
		return Hover{}, fmt.Errorf("pick up external %s amount %d (limit %d): %w", item.ID, amount, item.Rule.Limit(), ErrInvalidAmount)
	}
	item = item.WithRotation(item.Rotated)
	g.begin(&Hover{
		Item:          item,
		StackCount:    amount,
		Origin:        NoIndex,
		pickupRotated: item.Rotated,
	}, HoverHolding)
	return *g.hover, nil
}

// Split takes amount units off the stack covering cell i into a split hover.
// The source keeps count-amount units; amount must leave at least one.
func (g *Grid) Split(i CellIndex, amount int) (Hover, error) {
	if g.state.Active() {
		return Hover{}, fmt.Errorf("split at index %d: %w", i, ErrHoverAlreadyActive)
	}
	r, ok := g.model.ResidentAt(i)
	if !ok {
		return Hover{}, fmt.Errorf("split at index %d: %w", i, ErrEmptyRegion)
	}
	if !r.Item.Rule.Stackable {
		return Hover{}, fmt.Errorf("split %s: %w", r.Item.ID, ErrNotStackable)
	}
	if amount < 1 || amount >= r.StackCount {
		return Hover{}, fmt.Errorf("split %s amount %d of %d: %w", r.Item.ID, amount, r.StackCount, ErrInvalidAmount)
	}
	if err := g.model.SetStackCount(r.Anchor, r.StackCount-amount); err != nil {
		return Hover{}, fmt.Errorf("split: %w", err)
	}
	g.begin(&Hover{
		Item:          r.Item,
		StackCount:    amount,
		Origin:        r.Anchor,
		IsSplit:       true,
		SplitSource:   r.Item.ID,
		pickupRotated: r.Item.Rotated,
	}, HoverSplitHolding)
	g.log.Debug("stack split",
		zap.String("item", string(r.Item.ID)),
		zap.Int("anchor", int(r.Anchor)),
		zap.Int("amount", amount),
		zap.Int("left", r.StackCount-amount),
	)
	return *g.hover, nil
}

// QuickSplit splits off the larger half, ceil(count/2), of the stack at i.
func (g *Grid) QuickSplit(i CellIndex) (Hover, error) {
	count := g.model.StackCountAt(i)
	if count == 0 {
		return Hover{}, fmt.Errorf("quick split at index %d: %w", i, ErrEmptyRegion)
	}
	return g.Split(i, HalfSplit(count))
}

// HalfSplit is the default quick-split amount for a stack of count units.
func HalfSplit(count int) int {
	return (count + 1) / 2
}

// ToggleRotation flips the held item's orientation and returns the new
// value. Square footprints never rotate.
func (g *Grid) ToggleRotation() (bool, error) {
	if g.hover == nil {
		return false, fmt.Errorf("toggle rotation: %w", ErrNoActiveHover)
	}
	g.hover.Item = g.hover.Item.WithRotation(!g.hover.Item.Rotated)
	g.emitHover()
	return g.hover.Item.Rotated, nil
}

func (g *Grid) begin(h *Hover, state HoverState) {
	g.hover = h
	g.state = state
	g.emitHover()
}

func (g *Grid) finish(state HoverState) {
	g.hover = nil
	g.state = state
	g.emitHover()
}

func (g *Grid) emitHover() {
	ev := HoverChanged{Grid: g.name, State: g.state}
	if g.hover != nil {
		ev.Item = g.hover.Item.ID
		ev.StackCount = g.hover.StackCount
		ev.Rotated = g.hover.Item.Rotated
	}
	publish(g, ev)
}
