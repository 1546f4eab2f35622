// Package session drives one inventory grid from queued input intents. It
// owns the grid, the authoritative ledger and the event bus, and advances
// them through a phase-ordered system runner.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/helluna/gridinv/internal/config"
	"github.com/helluna/gridinv/internal/core/event"
	"github.com/helluna/gridinv/internal/core/system"
	"github.com/helluna/gridinv/internal/data"
	"github.com/helluna/gridinv/internal/grid"
	"github.com/helluna/gridinv/internal/world"
	"go.uber.org/zap"
)

var (
	ErrQueueFull     = errors.New("intent queue full")
	ErrUnknownIntent = errors.New("unknown intent")
)

// SplitPolicy picks the quick-split amount for a stack of count units.
type SplitPolicy interface {
	QuickSplitAmount(typ grid.ItemType, count int) int
}

// Stats counts applied and rejected intents.
type Stats struct {
	Applied  int
	Rejected int
}

// Session is single-writer: Apply, Tick and the systems run on one goroutine.
// Submit may be called from any goroutine.
type Session struct {
	cfg     config.SessionConfig
	grid    *grid.Grid
	ledger  *world.Ledger
	catalog *data.ItemTable
	bus     *event.Bus
	runner  *system.Runner
	intents chan Intent
	policy  SplitPolicy
	stats   Stats
	log     *zap.Logger
}

// New wires a session for the grid described by cfg.
func New(cfg *config.Config, catalog *data.ItemTable, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	bus := event.NewBus()
	ledger := world.NewLedger(catalog, log.Named("ledger"))
	ledger.Attach(bus)

	s := &Session{
		cfg:     cfg.Session,
		ledger:  ledger,
		catalog: catalog,
		bus:     bus,
		runner:  system.NewRunner(),
		intents: make(chan Intent, cfg.Session.IntentQueueSize),
		log:     log,
	}
	s.grid = grid.New(cfg.Grid.Columns, cfg.Grid.Rows,
		grid.WithName(cfg.Grid.Name),
		grid.WithLogger(log.Named("grid")),
		grid.WithBus(bus),
		grid.WithRecordSource(ledger),
	)
	s.runner.Register(NewIntentSystem(s))
	s.runner.Register(NewNotifySystem(s))
	return s
}

func (s *Session) Grid() *grid.Grid         { return s.grid }
func (s *Session) Ledger() *world.Ledger    { return s.ledger }
func (s *Session) Bus() *event.Bus          { return s.bus }
func (s *Session) Catalog() *data.ItemTable { return s.catalog }
func (s *Session) Stats() Stats             { return s.stats }

// SetSplitPolicy replaces the default ceil-half quick split.
func (s *Session) SetSplitPolicy(p SplitPolicy) { s.policy = p }

// Register adds an extra system to the session's runner.
func (s *Session) Register(sys system.System) { s.runner.Register(sys) }

// Submit queues an intent for the next tick.
func (s *Session) Submit(in Intent) error {
	select {
	case s.intents <- in:
		return nil
	default:
		return fmt.Errorf("submit %s: %w", in, ErrQueueFull)
	}
}

// Pending returns the number of queued intents.
func (s *Session) Pending() int { return len(s.intents) }

// Tick runs every system once: queued intents, update hooks, then event
// dispatch.
func (s *Session) Tick(dt time.Duration) {
	s.runner.Tick(dt)
}

// DrainInput runs only the input phase: queued intents are applied but no
// events are dispatched and the tick count does not advance.
func (s *Session) DrainInput(dt time.Duration) {
	s.runner.TickPhase(system.PhaseInput, dt)
}

// Ticks returns how many ticks have run.
func (s *Session) Ticks() uint64 { return s.runner.Ticks() }

// Apply executes one intent immediately.
func (s *Session) Apply(in Intent) (Result, error) {
	res, err := s.apply(in)
	if err != nil {
		s.stats.Rejected++
		event.Emit(s.bus, event.IntentRejected{Grid: s.grid.Name(), Intent: in.String(), Reason: err.Error()})
		s.log.Debug("intent rejected", zap.Stringer("intent", in), zap.Error(err))
		return res, err
	}
	s.stats.Applied++
	return res, nil
}

func (s *Session) apply(in Intent) (Result, error) {
	var res Result
	var err error
	g := s.grid
	m := g.Model()

	switch in.Kind {
	case IntentPickUp:
		res.Hover, err = g.PickUp(s.index(in.Cell))
		res.Holding = err == nil

	case IntentOffer:
		return s.offer(in)

	case IntentDrop:
		return s.drop(in)

	case IntentSplit:
		res.Hover, err = g.Split(s.index(in.Cell), in.Amount)
		res.Holding = err == nil

	case IntentQuickSplit:
		i := s.index(in.Cell)
		r, ok := m.ResidentAt(i)
		if !ok {
			return res, fmt.Errorf("quick split at (%d,%d): %w", in.Cell.X, in.Cell.Y, grid.ErrEmptyRegion)
		}
		res.Hover, err = g.Split(i, s.quickSplitAmount(r.Item.Type, r.StackCount))
		res.Holding = err == nil

	case IntentRotate:
		res.Rotated, err = g.ToggleRotation()
		res.Hover, res.Holding = g.Hover()

	case IntentCancel:
		res.Cancel, err = g.Cancel()

	case IntentAdd:
		return s.add(in)

	case IntentConsume:
		res.Count, err = m.ConsumeByType(in.Type, in.Amount)

	case IntentMove:
		err = m.Move(s.index(in.Cell), in.To)

	default:
		err = fmt.Errorf("apply %s: %w", in.Kind, ErrUnknownIntent)
	}
	return res, err
}

func (s *Session) index(c grid.Coord) grid.CellIndex {
	return s.grid.Model().Index(c)
}

func (s *Session) quickSplitAmount(typ grid.ItemType, count int) int {
	if s.policy != nil {
		return s.policy.QuickSplitAmount(typ, count)
	}
	return grid.HalfSplit(count)
}

// offer mints a record for units arriving from outside and holds them.
func (s *Session) offer(in Intent) (Result, error) {
	var res Result
	rec, err := s.ledger.Mint(in.Type, in.Amount)
	if err != nil {
		return res, fmt.Errorf("offer: %w", err)
	}
	item, err := s.ledger.Descriptor(rec.ID)
	if err != nil {
		return res, fmt.Errorf("offer: %w", err)
	}
	res.Hover, err = s.grid.PickUpExternal(item, in.Amount)
	if err != nil {
		if rerr := s.ledger.Release(rec.ID, in.Amount); rerr != nil {
			return res, errors.Join(err, rerr)
		}
		return res, err
	}
	res.Holding = true
	res.Record = rec.ID
	return res, nil
}

// add mints a record, places what fits and releases the rest.
func (s *Session) add(in Intent) (Result, error) {
	var res Result
	rec, err := s.ledger.Mint(in.Type, in.Amount)
	if err != nil {
		return res, fmt.Errorf("add: %w", err)
	}
	item, err := s.ledger.Descriptor(rec.ID)
	if err != nil {
		return res, fmt.Errorf("add: %w", err)
	}
	res.Record = rec.ID
	res.Plan, err = s.grid.AddItem(item, in.Amount)
	if err != nil {
		return res, err
	}
	res.Count = res.Plan.TotalFillable
	if res.Plan.Remainder > 0 {
		if err := s.ledger.Release(rec.ID, res.Plan.Remainder); err != nil {
			return res, fmt.Errorf("add remainder: %w", err)
		}
	}
	return res, nil
}

// drop resolves the anchor for the held footprint and releases the hover.
func (s *Session) drop(in Intent) (Result, error) {
	var res Result
	h, ok := s.grid.Hover()
	if !ok {
		return res, fmt.Errorf("drop: %w", grid.ErrNoActiveHover)
	}
	origin := in.Cell
	if in.Quadrant != grid.QuadrantNone {
		var err error
		origin, err = grid.ResolveAnchor(in.Cell, in.Quadrant, h.Footprint())
		if err != nil {
			return res, err
		}
	}
	out, err := s.grid.Drop(origin)
	res.Drop = out
	res.Hover, res.Holding = s.grid.Hover()
	if err != nil {
		return res, err
	}
	if out.Kind == grid.DropRejected || out.Kind == grid.DropTargetFull {
		s.log.Debug("drop had no effect",
			zap.String("outcome", out.Kind.String()),
			zap.String("region", out.Region.Kind.String()),
		)
	}
	return res, nil
}
