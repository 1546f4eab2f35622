package session

import (
	"time"

	"github.com/helluna/gridinv/internal/core/event"
	"github.com/helluna/gridinv/internal/core/system"
	"go.uber.org/zap"
)

// IntentSystem drains queued intents in Phase 0, at most MaxIntentsTick
// per tick.
type IntentSystem struct {
	s *Session
}

func NewIntentSystem(s *Session) *IntentSystem {
	return &IntentSystem{s: s}
}

func (sys *IntentSystem) Phase() system.Phase { return system.PhaseInput }

func (sys *IntentSystem) Update(_ time.Duration) {
	limit := sys.s.cfg.MaxIntentsTick
	for i := 0; i < limit; i++ {
		select {
		case in := <-sys.s.intents:
			// Errors are already counted and published by Apply.
			_, _ = sys.s.Apply(in)
		default:
			return
		}
	}
}

// NotifySystem publishes the tick summary, then swaps the bus and delivers
// everything emitted this tick to subscribers (ledger, render, scripts).
type NotifySystem struct {
	s        *Session
	tick     uint64
	lastSeen Stats
}

func NewNotifySystem(s *Session) *NotifySystem {
	return &NotifySystem{s: s}
}

func (sys *NotifySystem) Phase() system.Phase { return system.PhaseOutput }

func (sys *NotifySystem) Update(_ time.Duration) {
	sys.tick++
	st := sys.s.stats
	event.Emit(sys.s.bus, event.TickCompleted{
		Tick:     sys.tick,
		Applied:  st.Applied - sys.lastSeen.Applied,
		Rejected: st.Rejected - sys.lastSeen.Rejected,
	})
	sys.lastSeen = st

	sys.s.bus.SwapBuffers()
	n := sys.s.bus.DispatchAll()
	if n > 1 {
		sys.s.log.Debug("events dispatched", zap.Uint64("tick", sys.tick), zap.Int("count", n))
	}
}
