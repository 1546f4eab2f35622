package session

import (
	"fmt"

	"github.com/helluna/gridinv/internal/grid"
)

// IntentKind is a high-level command from the input collaborator.
type IntentKind int

const (
	IntentPickUp IntentKind = iota
	IntentOffer             // hold units coming from outside the grid
	IntentDrop
	IntentSplit
	IntentQuickSplit
	IntentRotate
	IntentCancel
	IntentAdd
	IntentConsume
	IntentMove
)

var intentNames = map[IntentKind]string{
	IntentPickUp:     "pick_up",
	IntentOffer:      "offer",
	IntentDrop:       "drop",
	IntentSplit:      "split",
	IntentQuickSplit: "quick_split",
	IntentRotate:     "rotate",
	IntentCancel:     "cancel",
	IntentAdd:        "add",
	IntentConsume:    "consume",
	IntentMove:       "move",
}

func (k IntentKind) String() string {
	if s, ok := intentNames[k]; ok {
		return s
	}
	return fmt.Sprintf("intent(%d)", int(k))
}

// ParseIntentKind maps a name such as "quick_split" back to its kind.
func ParseIntentKind(s string) (IntentKind, error) {
	for k, name := range intentNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("parse intent %q: %w", s, ErrUnknownIntent)
}

// Intent carries grid-relative coordinates only. Cell addresses the item
// for PickUp, Split, QuickSplit and Move and the hovered cell for Drop.
type Intent struct {
	Kind     IntentKind
	Cell     grid.Coord
	Quadrant grid.Quadrant // Drop: QuadrantNone means Cell is the origin
	To       grid.Coord    // Move target origin
	Type     grid.ItemType // Offer, Add, Consume
	Amount   int           // Offer, Add, Consume, Split
}

func (in Intent) String() string {
	switch in.Kind {
	case IntentOffer, IntentAdd, IntentConsume:
		return fmt.Sprintf("%s %s x%d", in.Kind, in.Type, in.Amount)
	case IntentSplit:
		return fmt.Sprintf("%s (%d,%d) x%d", in.Kind, in.Cell.X, in.Cell.Y, in.Amount)
	case IntentDrop:
		return fmt.Sprintf("%s (%d,%d) %s", in.Kind, in.Cell.X, in.Cell.Y, in.Quadrant)
	case IntentMove:
		return fmt.Sprintf("%s (%d,%d)->(%d,%d)", in.Kind, in.Cell.X, in.Cell.Y, in.To.X, in.To.Y)
	case IntentRotate, IntentCancel:
		return in.Kind.String()
	}
	return fmt.Sprintf("%s (%d,%d)", in.Kind, in.Cell.X, in.Cell.Y)
}

// Result is what applying an intent produced. Only the fields relevant to
// the intent's kind are set.
type Result struct {
	Hover   grid.Hover
	Holding bool
	Drop    grid.DropOutcome
	Cancel  grid.CancelOutcome
	Plan    grid.PlacementPlan
	Rotated bool
	Count   int
	Record  grid.ItemID
}
