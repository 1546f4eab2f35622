package scripting

import (
	"fmt"

	"github.com/helluna/gridinv/internal/grid"
	"github.com/helluna/gridinv/internal/session"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerAPI installs the `inv` host table. Mutating calls return a
// result (or true) on success and nil plus an error string on rejection.
func (e *Engine) registerAPI() {
	inv := e.vm.NewTable()
	e.vm.SetFuncs(inv, map[string]lua.LGFunction{
		"add":         e.luaAdd,
		"offer":       e.luaOffer,
		"pick_up":     e.luaPickUp,
		"drop":        e.luaDrop,
		"split":       e.luaSplit,
		"quick_split": e.luaQuickSplit,
		"rotate":      e.luaRotate,
		"cancel":      e.luaCancel,
		"consume":     e.luaConsume,
		"move":        e.luaMove,
		"submit":      e.luaSubmit,
		"tick":        e.luaTick,
		"count":       e.luaCount,
		"stack_at":    e.luaStackAt,
		"holding":     e.luaHolding,
		"reconcile":   e.luaReconcile,
		"expect":      e.luaExpect,
		"log":         e.luaLog,
	})
	e.vm.SetGlobal("inv", inv)
}

func (e *Engine) apply(L *lua.LState, in session.Intent) (session.Result, bool) {
	res, err := e.sess.Apply(in)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return res, false
	}
	return res, true
}

func checkCoord(L *lua.LState, n int) grid.Coord {
	return grid.Coord{X: L.CheckInt(n), Y: L.CheckInt(n + 1)}
}

// inv.add(type, amount) -> placed, remainder
func (e *Engine) luaAdd(L *lua.LState) int {
	res, ok := e.apply(L, session.Intent{Kind: session.IntentAdd, Type: grid.ItemType(L.CheckString(1)), Amount: L.CheckInt(2)})
	if !ok {
		return 2
	}
	L.Push(lua.LNumber(res.Plan.TotalFillable))
	L.Push(lua.LNumber(res.Plan.Remainder))
	return 2
}

// inv.offer(type, amount) -> record id
func (e *Engine) luaOffer(L *lua.LState) int {
	res, ok := e.apply(L, session.Intent{Kind: session.IntentOffer, Type: grid.ItemType(L.CheckString(1)), Amount: L.CheckInt(2)})
	if !ok {
		return 2
	}
	L.Push(lua.LString(res.Record))
	return 1
}

// inv.pick_up(x, y) -> held count
func (e *Engine) luaPickUp(L *lua.LState) int {
	res, ok := e.apply(L, session.Intent{Kind: session.IntentPickUp, Cell: checkCoord(L, 1)})
	if !ok {
		return 2
	}
	L.Push(lua.LNumber(res.Hover.StackCount))
	return 1
}

// inv.drop(x, y [, quadrant]) -> outcome, still holding
func (e *Engine) luaDrop(L *lua.LState) int {
	in := session.Intent{Kind: session.IntentDrop, Cell: checkCoord(L, 1)}
	if q := L.OptString(3, ""); q != "" {
		quad, err := grid.ParseQuadrant(q)
		if err != nil {
			L.ArgError(3, err.Error())
			return 0
		}
		in.Quadrant = quad
	}
	res, ok := e.apply(L, in)
	if !ok {
		return 2
	}
	L.Push(lua.LString(res.Drop.Kind.String()))
	L.Push(lua.LBool(res.Holding))
	return 2
}

// inv.split(x, y, amount) -> held count
func (e *Engine) luaSplit(L *lua.LState) int {
	res, ok := e.apply(L, session.Intent{Kind: session.IntentSplit, Cell: checkCoord(L, 1), Amount: L.CheckInt(3)})
	if !ok {
		return 2
	}
	L.Push(lua.LNumber(res.Hover.StackCount))
	return 1
}

// inv.quick_split(x, y) -> held count
func (e *Engine) luaQuickSplit(L *lua.LState) int {
	res, ok := e.apply(L, session.Intent{Kind: session.IntentQuickSplit, Cell: checkCoord(L, 1)})
	if !ok {
		return 2
	}
	L.Push(lua.LNumber(res.Hover.StackCount))
	return 1
}

// inv.rotate() -> rotated
func (e *Engine) luaRotate(L *lua.LState) int {
	res, ok := e.apply(L, session.Intent{Kind: session.IntentRotate})
	if !ok {
		return 2
	}
	L.Push(lua.LBool(res.Rotated))
	return 1
}

// inv.cancel() -> released count
func (e *Engine) luaCancel(L *lua.LState) int {
	res, ok := e.apply(L, session.Intent{Kind: session.IntentCancel})
	if !ok {
		return 2
	}
	L.Push(lua.LNumber(res.Cancel.Released))
	return 1
}

// inv.consume(type, amount) -> consumed
func (e *Engine) luaConsume(L *lua.LState) int {
	res, ok := e.apply(L, session.Intent{Kind: session.IntentConsume, Type: grid.ItemType(L.CheckString(1)), Amount: L.CheckInt(2)})
	if !ok {
		return 2
	}
	L.Push(lua.LNumber(res.Count))
	return 1
}

// inv.move(x, y, to_x, to_y) -> true
func (e *Engine) luaMove(L *lua.LState) int {
	_, ok := e.apply(L, session.Intent{Kind: session.IntentMove, Cell: checkCoord(L, 1), To: checkCoord(L, 3)})
	if !ok {
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// inv.submit(kind, {x=, y=, to_x=, to_y=, type=, amount=, quadrant=}) queues
// an intent for the next tick.
func (e *Engine) luaSubmit(L *lua.LState) int {
	kind, err := session.ParseIntentKind(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	in := session.Intent{Kind: kind}
	if t, ok := L.Get(2).(*lua.LTable); ok {
		in.Cell = grid.Coord{X: tableInt(t, "x"), Y: tableInt(t, "y")}
		in.To = grid.Coord{X: tableInt(t, "to_x"), Y: tableInt(t, "to_y")}
		in.Type = grid.ItemType(lua.LVAsString(t.RawGetString("type")))
		in.Amount = tableInt(t, "amount")
		if q := lua.LVAsString(t.RawGetString("quadrant")); q != "" {
			quad, err := grid.ParseQuadrant(q)
			if err != nil {
				L.ArgError(2, err.Error())
				return 0
			}
			in.Quadrant = quad
		}
	}
	if err := e.sess.Submit(in); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func tableInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// inv.tick([n]) runs n session ticks (default 1) -> total ticks
func (e *Engine) luaTick(L *lua.LState) int {
	n := L.OptInt(1, 1)
	for i := 0; i < n; i++ {
		e.sess.Tick(e.tickRate)
	}
	L.Push(lua.LNumber(e.sess.Ticks()))
	return 1
}

// inv.count(type) -> resident units of type
func (e *Engine) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.sess.Grid().Model().CountByType(grid.ItemType(L.CheckString(1)))))
	return 1
}

// inv.stack_at(x, y) -> count, record id (0, nil when empty)
func (e *Engine) luaStackAt(L *lua.LState) int {
	m := e.sess.Grid().Model()
	r, ok := m.ResidentAt(m.Index(checkCoord(L, 1)))
	if !ok {
		L.Push(lua.LNumber(0))
		L.Push(lua.LNil)
		return 2
	}
	L.Push(lua.LNumber(r.StackCount))
	L.Push(lua.LString(r.Item.ID))
	return 2
}

// inv.holding() -> held?, count, state
func (e *Engine) luaHolding(L *lua.LState) int {
	h, ok := e.sess.Grid().Hover()
	L.Push(lua.LBool(ok))
	L.Push(lua.LNumber(h.StackCount))
	L.Push(lua.LString(e.sess.Grid().State().String()))
	return 3
}

// inv.reconcile() -> number of ledger/grid mismatches
func (e *Engine) luaReconcile(L *lua.LState) int {
	var held *grid.Hover
	if h, ok := e.sess.Grid().Hover(); ok {
		held = &h
	}
	mismatches := e.sess.Ledger().Reconcile(e.sess.Grid().Model(), held)
	for _, mm := range mismatches {
		e.log.Warn("ledger mismatch",
			zap.String("record", string(mm.ID)),
			zap.Int("ledger", mm.Ledger),
			zap.Int("grid", mm.Grid),
		)
	}
	L.Push(lua.LNumber(len(mismatches)))
	return 1
}

// inv.expect(cond, message) records a failure when cond is false.
func (e *Engine) luaExpect(L *lua.LState) int {
	if L.ToBool(1) {
		return 0
	}
	msg := L.OptString(2, "expectation failed")
	if dbg, ok := L.GetStack(1); ok {
		if _, err := L.GetInfo("l", dbg, lua.LNil); err == nil && dbg.CurrentLine > 0 {
			msg = fmt.Sprintf("line %d: %s", dbg.CurrentLine, msg)
		}
	}
	e.failures = append(e.failures, msg)
	e.log.Warn("scenario expectation failed", zap.String("msg", msg))
	return 0
}

// inv.log(message)
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("scenario", zap.String("msg", L.CheckString(1)))
	return 0
}
