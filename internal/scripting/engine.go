package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/helluna/gridinv/internal/core/system"
	"github.com/helluna/gridinv/internal/grid"
	"github.com/helluna/gridinv/internal/session"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM bound to one session. Scenario
// scripts drive the session through the `inv` table; hook scripts may
// override quick-split sizing and run per-tick logic.
// Single-goroutine access only (session loop).
type Engine struct {
	vm       *lua.LState
	sess     *session.Session
	log      *zap.Logger
	tickRate time.Duration
	ticks    uint64
	failures []string
}

// Report summarises a scenario run.
type Report struct {
	Script   string
	Failures []string
	Applied  int
	Rejected int
	Ticks    uint64
}

// Passed reports whether every expectation held.
func (r Report) Passed() bool { return len(r.Failures) == 0 }

// NewEngine creates a Lua engine for sess and loads hook scripts from
// scriptsDir/core. The engine registers itself as the session's split
// policy and as an update-phase system.
func NewEngine(scriptsDir string, sess *session.Session, tickRate time.Duration, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	if tickRate <= 0 {
		tickRate = 50 * time.Millisecond
	}
	e := &Engine{vm: vm, sess: sess, log: log, tickRate: tickRate}
	e.registerAPI()

	if err := e.loadDir(filepath.Join(scriptsDir, "core")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load core scripts: %w", err)
	}

	sess.SetSplitPolicy(e)
	sess.Register(e)
	return e, nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// RunScenario executes a scenario script and reports its expectations.
func (e *Engine) RunScenario(path string) (Report, error) {
	e.failures = e.failures[:0]
	before := e.sess.Stats()
	if err := e.vm.DoFile(path); err != nil {
		return Report{Script: path}, fmt.Errorf("run scenario %s: %w", path, err)
	}
	return e.report(path, before), nil
}

// RunString executes scenario source held in memory.
func (e *Engine) RunString(name, src string) (Report, error) {
	e.failures = e.failures[:0]
	before := e.sess.Stats()
	if err := e.vm.DoString(src); err != nil {
		return Report{Script: name}, fmt.Errorf("run scenario %s: %w", name, err)
	}
	return e.report(name, before), nil
}

func (e *Engine) report(name string, before session.Stats) Report {
	after := e.sess.Stats()
	return Report{
		Script:   name,
		Failures: append([]string(nil), e.failures...),
		Applied:  after.Applied - before.Applied,
		Rejected: after.Rejected - before.Rejected,
		Ticks:    e.sess.Ticks(),
	}
}

// QuickSplitAmount calls the Lua quick_split_amount(type, count) hook.
// Falls back to the larger half when the hook is missing or fails.
func (e *Engine) QuickSplitAmount(typ grid.ItemType, count int) int {
	fn := e.vm.GetGlobal("quick_split_amount")
	if fn == lua.LNil {
		return grid.HalfSplit(count)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(typ), lua.LNumber(count)); err != nil {
		e.log.Error("lua quick_split_amount error", zap.Error(err))
		return grid.HalfSplit(count)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua quick_split_amount returned non-number", zap.String("type", result.Type().String()))
		return grid.HalfSplit(count)
	}
	return int(n)
}

// Phase runs script tick hooks after input and before event dispatch.
func (e *Engine) Phase() system.Phase { return system.PhaseUpdate }

// Update calls the Lua on_tick(tick) hook if one is defined.
func (e *Engine) Update(_ time.Duration) {
	e.ticks++
	fn := e.vm.GetGlobal("on_tick")
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(e.ticks)); err != nil {
		e.log.Error("lua on_tick error", zap.Uint64("tick", e.ticks), zap.Error(err))
	}
}
