package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"crateworks/internal/app/phase"
	"crateworks/internal/app/prompt"
	"crateworks/internal/domain/world"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

// Storage selects the repository backend. An empty MigrationsDir applies the
// migrations built into the binary.
type Storage struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	SQLitePath    string `yaml:"sqlite_path"`
	MigrationsDir string `yaml:"migrations_dir"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
}

type Config struct {
	HTTPAddr   string `yaml:"http_addr"`
	WSAddr     string `yaml:"ws_addr"`
	CORSOrigin string `yaml:"cors_origin"`

	TickPeriodMs       int     `yaml:"tick_period_ms"`
	PhaseEvery         int     `yaml:"phase_every"`
	CooldownTicks      int     `yaml:"cooldown_ticks"`
	PerceptionRadius   float64 `yaml:"perception_radius"`
	InventorySlots     int     `yaml:"inventory_slots"`
	PromptTimeoutTicks int     `yaml:"prompt_timeout_ticks"`
	BankFlushSeconds   int     `yaml:"bank_flush_seconds"`
	RandomSeed         int64   `yaml:"random_seed"`

	Storage   Storage `yaml:"storage"`
	LedgerDir string  `yaml:"ledger_dir"`
	SeedPath  string  `yaml:"seed_path"`

	Messages phase.Messages `yaml:"messages"`
	Prompts  prompt.Texts   `yaml:"prompts"`
}

func Default() Config {
	return Config{
		HTTPAddr:           ":8080",
		WSAddr:             ":8081",
		CORSOrigin:         "*",
		TickPeriodMs:       50,
		PhaseEvery:         phase.DefaultPhaseEvery,
		PerceptionRadius:   world.DefaultPerceptionPolicy().DefaultRadius,
		InventorySlots:     36,
		PromptTimeoutTicks: 1200,
		BankFlushSeconds:   30,
		Storage: Storage{
			Driver:       DriverMemory,
			SQLitePath:   "data/crateworks.db",
			MaxOpenConns: 10,
		},
		LedgerDir: "data/ledger",
		Messages:  phase.DefaultMessages(),
		Prompts:   prompt.DefaultTexts(),
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// CRATEWORKS_* environment variables win over both.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	c.HTTPAddr = stringEnv(getenv, "CRATEWORKS_HTTP_ADDR", c.HTTPAddr)
	c.WSAddr = stringEnv(getenv, "CRATEWORKS_WS_ADDR", c.WSAddr)
	c.CORSOrigin = stringEnv(getenv, "CRATEWORKS_CORS_ORIGIN", c.CORSOrigin)
	c.TickPeriodMs = intEnv(getenv, "CRATEWORKS_TICK_PERIOD_MS", c.TickPeriodMs)
	c.PhaseEvery = intEnv(getenv, "CRATEWORKS_PHASE_EVERY", c.PhaseEvery)
	c.CooldownTicks = intEnv(getenv, "CRATEWORKS_COOLDOWN_TICKS", c.CooldownTicks)
	c.InventorySlots = intEnv(getenv, "CRATEWORKS_INVENTORY_SLOTS", c.InventorySlots)
	c.Storage.Driver = stringEnv(getenv, "CRATEWORKS_STORAGE", c.Storage.Driver)
	c.Storage.DSN = stringEnv(getenv, "CRATEWORKS_DB_DSN", c.Storage.DSN)
	c.Storage.SQLitePath = stringEnv(getenv, "CRATEWORKS_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.MigrationsDir = stringEnv(getenv, "CRATEWORKS_MIGRATIONS_DIR", c.Storage.MigrationsDir)
	c.LedgerDir = stringEnv(getenv, "CRATEWORKS_LEDGER_DIR", c.LedgerDir)
	c.SeedPath = stringEnv(getenv, "CRATEWORKS_SEED", c.SeedPath)
	c.RandomSeed = int64(intEnv(getenv, "CRATEWORKS_RANDOM_SEED", int(c.RandomSeed)))
}

func (c Config) Validate() error {
	switch {
	case c.TickPeriodMs <= 0:
		return fmt.Errorf("%w: tick_period_ms must be positive", ErrInvalidConfig)
	case c.PhaseEvery <= 0:
		return fmt.Errorf("%w: phase_every must be positive", ErrInvalidConfig)
	case c.CooldownTicks < 0:
		return fmt.Errorf("%w: cooldown_ticks must not be negative", ErrInvalidConfig)
	case c.InventorySlots <= 0:
		return fmt.Errorf("%w: inventory_slots must be positive", ErrInvalidConfig)
	case c.PromptTimeoutTicks <= 0:
		return fmt.Errorf("%w: prompt_timeout_ticks must be positive", ErrInvalidConfig)
	case c.BankFlushSeconds <= 0:
		return fmt.Errorf("%w: bank_flush_seconds must be positive", ErrInvalidConfig)
	case c.PerceptionRadius < 0:
		return fmt.Errorf("%w: perception_radius must not be negative", ErrInvalidConfig)
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("%w: storage.dsn is required for postgres", ErrInvalidConfig)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return fmt.Errorf("%w: storage.sqlite_path is required for sqlite", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	return nil
}

func (c Config) TickPeriod() time.Duration {
	return time.Duration(c.TickPeriodMs) * time.Millisecond
}

func (c Config) BankFlushInterval() time.Duration {
	return time.Duration(c.BankFlushSeconds) * time.Second
}

func (c Config) Perception() world.PerceptionPolicy {
	return world.PerceptionPolicy{DefaultRadius: c.PerceptionRadius}
}

func stringEnv(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(getenv func(string) string, key string, fallback int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
