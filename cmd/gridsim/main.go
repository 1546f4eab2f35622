package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/helluna/gridinv/internal/config"
	"github.com/helluna/gridinv/internal/data"
	"github.com/helluna/gridinv/internal/grid"
	"github.com/helluna/gridinv/internal/scripting"
	"github.com/helluna/gridinv/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Display helpers ───────────────────────────────────────────────

func printBanner(gridName string, cols, rows int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             gridsim  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mgrid:\033[0m %s \033[90m(%dx%d)\033[0m\n\n", gridName, cols, rows)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printFail(msg string) {
	fmt.Printf("  \033[31m✗\033[0m %s\n", msg)
}

// printGrid draws one cell per column: '.' for free cells, a letter per
// resident item on its footprint, with the anchor's count listed below.
func printGrid(m *grid.Model) {
	residents := m.Residents()
	letters := make(map[grid.CellIndex]byte, len(residents))
	for i, r := range residents {
		letters[r.Anchor] = byte('A' + i%26)
	}
	for y := 0; y < m.Rows(); y++ {
		var b strings.Builder
		b.WriteString("  ")
		for x := 0; x < m.Columns(); x++ {
			c := m.Cell(m.Index(grid.Coord{X: x, Y: y}))
			if !c.Occupied() {
				b.WriteString(" .")
				continue
			}
			b.WriteByte(' ')
			b.WriteByte(letters[c.UpperLeft])
		}
		fmt.Println(b.String())
	}
	fmt.Println()
	for i, r := range residents {
		fp := r.Item.Dims()
		fmt.Printf("  %c  %-12s x%-3d %dx%d @(%d,%d)\n", 'A'+i%26, r.Item.Type, r.StackCount, fp.W, fp.H, r.Origin.X, r.Origin.Y)
	}
}

// ── Simulation ────────────────────────────────────────────────────

func run() error {
	cfgPath := flag.String("config", "", "config file (default $"+config.EnvPath+")")
	scenario := flag.String("scenario", "", "run a single scenario script instead of <scripts_dir>/scenarios")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Grid.Name, cfg.Grid.Columns, cfg.Grid.Rows)

	// 3. Load item catalog
	printSection("data")
	catalog, err := data.LoadItemTable(cfg.Data.ItemsPath)
	if err != nil {
		return fmt.Errorf("load item table: %w", err)
	}
	printStat("item types", catalog.Count())
	fmt.Println()

	// 4. Session + Lua engine
	sess := session.New(cfg, catalog, log)
	engine, err := scripting.NewEngine(cfg.Data.ScriptsDir, sess, cfg.Session.TickRate, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	scripts := []string{*scenario}
	if *scenario == "" {
		scripts, err = filepath.Glob(filepath.Join(cfg.Data.ScriptsDir, "scenarios", "*.lua"))
		if err != nil {
			return fmt.Errorf("list scenarios: %w", err)
		}
		sort.Strings(scripts)
	}
	if len(scripts) == 0 {
		return fmt.Errorf("no scenarios under %s", filepath.Join(cfg.Data.ScriptsDir, "scenarios"))
	}

	// 5. Run scenarios
	printSection("scenarios")
	failed := 0
	for _, path := range scripts {
		rep, err := engine.RunScenario(path)
		if err != nil {
			return err
		}
		settle(sess, cfg.Session)
		name := filepath.Base(path)
		if !rep.Passed() {
			failed++
			printFail(fmt.Sprintf("%s (%d applied, %d rejected)", name, rep.Applied, rep.Rejected))
			for _, f := range rep.Failures {
				fmt.Printf("      %s\n", f)
			}
			continue
		}
		printOK(fmt.Sprintf("%s (%d applied, %d rejected)", name, rep.Applied, rep.Rejected))
	}
	fmt.Println()

	// 6. Final state
	printSection("grid")
	printGrid(sess.Grid().Model())
	fmt.Println()

	printSection("ledger")
	printStat("records", sess.Ledger().Size())
	printStat("ticks", int(sess.Ticks()))
	var held *grid.Hover
	if h, ok := sess.Grid().Hover(); ok {
		held = &h
	}
	mismatches := sess.Ledger().Reconcile(sess.Grid().Model(), held)
	for _, mm := range mismatches {
		log.Warn("ledger mismatch",
			zap.String("record", string(mm.ID)),
			zap.Int("ledger", mm.Ledger),
			zap.Int("grid", mm.Grid),
		)
	}
	printStat("mismatches", len(mismatches))
	fmt.Println()

	if failed > 0 || len(mismatches) > 0 {
		return fmt.Errorf("%d scenario(s) failed, %d ledger mismatch(es)", failed, len(mismatches))
	}
	return nil
}

// settle applies whatever the scenario left queued, then runs full ticks
// until pending events drain, bounded by MaxTicks when set.
func settle(sess *session.Session, cfg config.SessionConfig) {
	for sess.Pending() > 0 {
		sess.DrainInput(cfg.TickRate)
	}
	limit := cfg.MaxTicks
	if limit <= 0 {
		limit = cfg.IntentQueueSize + 1
	}
	for i := 0; i < limit; i++ {
		sess.Tick(cfg.TickRate)
		if sess.Pending() == 0 && sess.Bus().Pending() == 0 {
			return
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
