// Package grid implements the spatial slot-allocation engine: a fixed-size
// 2D cell model with an occupancy bitmap, region classification, the
// row-major placement query, cursor anchor resolution and the hover
// transaction used while an item is being dragged.
package grid

import (
	"github.com/helluna/gridinv/internal/core/event"
	"go.uber.org/zap"
)

// RecordSource is the authoritative item list. The grid asks it for a new
// record whenever split-off units are placed as their own stack.
type RecordSource interface {
	SplitRecord(source Item, amount int) (ItemID, error)
}

// Option configures grid construction.
type Option func(*Grid)

// WithName tags events and log lines with the grid's name.
func WithName(name string) Option {
	return func(g *Grid) { g.name = name }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(g *Grid) {
		if log != nil {
			g.log = log
		}
	}
}

// WithBus publishes grid events on b.
func WithBus(b *event.Bus) Option {
	return func(g *Grid) { g.bus = b }
}

// WithRecordSource sets the collaborator that backs split placements.
func WithRecordSource(rs RecordSource) Option {
	return func(g *Grid) { g.records = rs }
}

// Grid is one inventory grid instance: its cell model plus at most one
// hover transaction. Accessed only from the owning input loop.
type Grid struct {
	name    string
	model   *Model
	hover   *Hover
	state   HoverState
	records RecordSource
	bus     *event.Bus
	log     *zap.Logger
}

// New creates an empty cols x rows grid.
func New(cols, rows int, opts ...Option) *Grid {
	g := &Grid{
		name:  "grid",
		model: NewModel(cols, rows),
		state: HoverEmpty,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	g.log = g.log.With(zap.String("grid", g.name))
	g.model.onChange = func(ev SlotsChanged) {
		ev.Grid = g.name
		publish(g, ev)
	}
	g.model.onConsume = func(ev StackConsumed) {
		ev.Grid = g.name
		publish(g, ev)
	}
	return g
}

// Name returns the grid's name.
func (g *Grid) Name() string { return g.name }

// Model exposes the cell model for queries and direct mutation.
func (g *Grid) Model() *Model { return g.model }

// AddItem plans room for amount units of item and commits whatever fits.
// The returned plan's Remainder is what did not fit.
func (g *Grid) AddItem(item Item, amount int) (PlacementPlan, error) {
	if item.ID == "" {
		return PlacementPlan{}, ErrInvalidItem
	}
	if amount < 1 {
		return PlacementPlan{}, ErrInvalidAmount
	}
	plan := g.model.FindRoomFor(item, amount)
	if err := g.model.Commit(item, plan); err != nil {
		return PlacementPlan{}, err
	}
	g.mergedFills(item, plan)
	g.log.Debug("item added",
		zap.String("item", string(item.ID)),
		zap.String("type", string(item.Type)),
		zap.Int("requested", amount),
		zap.Int("placed", plan.TotalFillable),
		zap.Int("remainder", plan.Remainder),
	)
	return plan, nil
}

// mergedFills publishes StackMerged for committed fills that topped up a
// stack owned by another record.
func (g *Grid) mergedFills(item Item, plan PlacementPlan) {
	for _, f := range plan.Fills {
		if !f.Existing {
			continue
		}
		r, ok := g.model.ResidentAt(f.Index)
		if !ok || r.Item.ID == item.ID {
			continue
		}
		publish(g, StackMerged{Grid: g.name, Source: item.ID, Target: r.Item.ID, Anchor: f.Index, Amount: f.Amount})
	}
}

func publish[T any](g *Grid, ev T) {
	if g.bus != nil {
		event.Emit(g.bus, ev)
	}
}
