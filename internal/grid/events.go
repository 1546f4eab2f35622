package grid

// Events published on the grid's event bus for the render collaborator and
// the authoritative item source. They are plain values; readers must not
// assume any ordering across event types.

// SlotsChanged is emitted for every placement, removal and stack update.
type SlotsChanged struct {
	Grid       string
	Anchor     CellIndex
	Footprint  Footprint
	Item       ItemID
	StackCount int
	Cleared    bool
}

// HoverChanged is emitted on every hover state transition.
type HoverChanged struct {
	Grid       string
	State      HoverState
	Item       ItemID
	StackCount int
	Rotated    bool
}

// SplitRequested asks the item source to back a split-off quantity with
// the record NewItem, already minted through the grid's RecordSource.
type SplitRequested struct {
	Grid    string
	Source  ItemID
	NewItem ItemID
	Amount  int
	Anchor  CellIndex
}

// StackMerged reports held units folded into a resident stack. Split is
// set when the units were split off Source rather than held whole.
type StackMerged struct {
	Grid   string
	Source ItemID
	Target ItemID
	Anchor CellIndex
	Amount int
	Split  bool
}

// CountsExchanged reports a full stack trading counts with the hover.
// Counts are the values after the exchange.
type CountsExchanged struct {
	Grid        string
	Target      ItemID
	Held        ItemID
	Anchor      CellIndex
	TargetCount int
	HeldCount   int
}

// StackConsumed reports units removed by ConsumeByType from one stack.
type StackConsumed struct {
	Grid   string
	Item   ItemID
	Anchor CellIndex
	Amount int
}

// ItemReleased hands units back to whichever external system supplied them
// (discarded external hover, or cancel leftovers that no longer fit).
type ItemReleased struct {
	Grid   string
	Item   ItemID
	Amount int
}
