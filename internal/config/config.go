package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "GRIDINV_CONFIG"

type Config struct {
	Grid    GridConfig    `toml:"grid"`
	Data    DataConfig    `toml:"data"`
	Session SessionConfig `toml:"session"`
	Logging LoggingConfig `toml:"logging"`
}

type GridConfig struct {
	Name    string `toml:"name"`
	Columns int    `toml:"columns"`
	Rows    int    `toml:"rows"`
}

type DataConfig struct {
	ItemsPath  string `toml:"items_path"`  // YAML item catalog
	ScriptsDir string `toml:"scripts_dir"` // Lua hooks + scenarios
}

type SessionConfig struct {
	TickRate        time.Duration `toml:"tick_rate"`
	IntentQueueSize int           `toml:"intent_queue_size"`
	MaxIntentsTick  int           `toml:"max_intents_per_tick"`
	MaxTicks        int           `toml:"max_ticks"` // 0 = until the scenario finishes
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads path on top of the defaults. An empty path falls back to
// $GRIDINV_CONFIG and then to the defaults alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	cfg := defaults()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Grid.Columns < 1 || c.Grid.Rows < 1 {
		errs = append(errs, fmt.Errorf("grid size %dx%d must be positive", c.Grid.Columns, c.Grid.Rows))
	}
	if c.Session.IntentQueueSize < 1 {
		errs = append(errs, fmt.Errorf("session.intent_queue_size %d must be positive", c.Session.IntentQueueSize))
	}
	if c.Session.MaxIntentsTick < 1 {
		errs = append(errs, fmt.Errorf("session.max_intents_per_tick %d must be positive", c.Session.MaxIntentsTick))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be console or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Grid: GridConfig{
			Name:    "backpack",
			Columns: 10,
			Rows:    6,
		},
		Data: DataConfig{
			ItemsPath:  "data/items.yaml",
			ScriptsDir: "scripts",
		},
		Session: SessionConfig{
			TickRate:        50 * time.Millisecond,
			IntentQueueSize: 64,
			MaxIntentsTick:  16,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
