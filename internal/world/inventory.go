package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/helluna/gridinv/internal/core/event"
	"github.com/helluna/gridinv/internal/data"
	"github.com/helluna/gridinv/internal/grid"
	"go.uber.org/zap"
)

var (
	ErrUnknownRecord = errors.New("unknown item record")
	ErrInsufficient  = errors.New("record holds fewer units")
)

// Record is one authoritative item entry. Count is the total number of
// units the record backs, whether resident or held by the cursor.
type Record struct {
	ID     grid.ItemID
	Type   grid.ItemType
	Count  int
	Parent grid.ItemID // source record of a split, empty otherwise
}

// Ledger is the authoritative item list the grids reference.
// Accessed only from the session loop goroutine.
type Ledger struct {
	catalog *data.ItemTable
	records map[grid.ItemID]*Record
	order   []grid.ItemID
	log     *zap.Logger
}

// NewLedger creates an empty ledger backed by catalog.
func NewLedger(catalog *data.ItemTable, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		catalog: catalog,
		records: make(map[grid.ItemID]*Record, 64),
		order:   make([]grid.ItemID, 0, 64),
		log:     log,
	}
}

// Mint creates a record of count units of typ with a fresh UUID.
func (l *Ledger) Mint(typ grid.ItemType, count int) (*Record, error) {
	info, err := l.catalog.Lookup(typ)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	if count < 1 {
		return nil, fmt.Errorf("mint %s count %d: %w", typ, count, grid.ErrInvalidAmount)
	}
	return l.insert(info.Type, count, ""), nil
}

func (l *Ledger) insert(typ grid.ItemType, count int, parent grid.ItemID) *Record {
	r := &Record{
		ID:     grid.ItemID(uuid.NewString()),
		Type:   typ,
		Count:  count,
		Parent: parent,
	}
	l.records[r.ID] = r
	l.order = append(l.order, r.ID)
	return r
}

// Get returns a record by ID, or nil if not found.
func (l *Ledger) Get(id grid.ItemID) *Record {
	return l.records[id]
}

// Size returns the number of live records.
func (l *Ledger) Size() int {
	return len(l.records)
}

// Records copies every live record in creation order.
func (l *Ledger) Records() []Record {
	out := make([]Record, 0, len(l.records))
	for _, id := range l.order {
		if r, ok := l.records[id]; ok {
			out = append(out, *r)
		}
	}
	return out
}

// Descriptor builds the grid descriptor for record id.
func (l *Ledger) Descriptor(id grid.ItemID) (grid.Item, error) {
	r, ok := l.records[id]
	if !ok {
		return grid.Item{}, fmt.Errorf("descriptor %s: %w", id, ErrUnknownRecord)
	}
	info, err := l.catalog.Lookup(r.Type)
	if err != nil {
		return grid.Item{}, fmt.Errorf("descriptor %s: %w", id, err)
	}
	return info.Descriptor(r.ID), nil
}

// SplitRecord moves amount units off source's record into a new record.
// It satisfies grid.RecordSource.
func (l *Ledger) SplitRecord(source grid.Item, amount int) (grid.ItemID, error) {
	src, ok := l.records[source.ID]
	if !ok {
		return "", fmt.Errorf("split %s: %w", source.ID, ErrUnknownRecord)
	}
	if amount < 1 || amount > src.Count {
		return "", fmt.Errorf("split %s amount %d of %d: %w", source.ID, amount, src.Count, ErrInsufficient)
	}
	src.Count -= amount
	r := l.insert(src.Type, amount, src.ID)
	l.log.Debug("split record minted",
		zap.String("source", string(src.ID)),
		zap.String("record", string(r.ID)),
		zap.Int("amount", amount),
	)
	return r.ID, nil
}

// Transfer moves amount units from one record to another. A negative
// amount moves units the other way.
func (l *Ledger) Transfer(from, to grid.ItemID, amount int) error {
	if amount < 0 {
		from, to, amount = to, from, -amount
	}
	if amount == 0 || from == to {
		return nil
	}
	src, ok := l.records[from]
	if !ok {
		return fmt.Errorf("transfer from %s: %w", from, ErrUnknownRecord)
	}
	dst, ok := l.records[to]
	if !ok {
		return fmt.Errorf("transfer to %s: %w", to, ErrUnknownRecord)
	}
	if src.Count < amount {
		return fmt.Errorf("transfer %d from %s (%d): %w", amount, from, src.Count, ErrInsufficient)
	}
	src.Count -= amount
	dst.Count += amount
	if src.Count == 0 {
		l.drop(from)
	}
	return nil
}

// Release removes amount units from record id; an emptied record is deleted.
func (l *Ledger) Release(id grid.ItemID, amount int) error {
	r, ok := l.records[id]
	if !ok {
		return fmt.Errorf("release %s: %w", id, ErrUnknownRecord)
	}
	if amount < 1 {
		return fmt.Errorf("release %d from %s: %w", amount, id, grid.ErrInvalidAmount)
	}
	if amount > r.Count {
		return fmt.Errorf("release %d from %s (%d): %w", amount, id, r.Count, ErrInsufficient)
	}
	r.Count -= amount
	if r.Count == 0 {
		l.drop(id)
	}
	return nil
}

func (l *Ledger) drop(id grid.ItemID) {
	delete(l.records, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Attach keeps the ledger in step with grid events delivered on bus.
func (l *Ledger) Attach(bus *event.Bus) {
	event.Subscribe(bus, func(e grid.StackMerged) {
		l.apply("merge", l.Transfer(e.Source, e.Target, e.Amount))
	})
	event.Subscribe(bus, func(e grid.CountsExchanged) {
		l.apply("exchange", l.Transfer(e.Held, e.Target, e.TargetCount-e.HeldCount))
	})
	event.Subscribe(bus, func(e grid.ItemReleased) {
		l.apply("release", l.Release(e.Item, e.Amount))
	})
	event.Subscribe(bus, func(e grid.StackConsumed) {
		l.apply("consume", l.Release(e.Item, e.Amount))
	})
	event.Subscribe(bus, func(e grid.SplitRequested) {
		l.log.Debug("split placed",
			zap.String("grid", e.Grid),
			zap.String("record", string(e.NewItem)),
			zap.Int("anchor", int(e.Anchor)),
		)
	})
}

func (l *Ledger) apply(op string, err error) {
	if err != nil {
		l.log.Warn("ledger out of step", zap.String("op", op), zap.Error(err))
	}
}

// Mismatch is a record whose ledger count differs from what the grid holds.
type Mismatch struct {
	ID     grid.ItemID
	Ledger int
	Grid   int
}

// Reconcile compares record counts with the units resident in m plus the
// units held by hover, if any. Records and grid items with no counterpart
// show up with a zero on the missing side.
func (l *Ledger) Reconcile(m *grid.Model, hover *grid.Hover) []Mismatch {
	seen := make(map[grid.ItemID]int, len(l.records))
	for _, r := range m.Residents() {
		seen[r.Item.ID] += r.StackCount
	}
	if hover != nil {
		seen[hover.Item.ID] += hover.StackCount
	}

	var out []Mismatch
	for id, r := range l.records {
		if n := seen[id]; n != r.Count {
			out = append(out, Mismatch{ID: id, Ledger: r.Count, Grid: n})
		}
	}
	for id, n := range seen {
		if _, ok := l.records[id]; !ok {
			out = append(out, Mismatch{ID: id, Grid: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
