package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	World     WorldConfig     `toml:"world"`
	Frontend  FrontendConfig  `toml:"frontend"`
	Console   ConsoleConfig   `toml:"console"`
	Scripting ScriptingConfig `toml:"scripting"`
	Journal   JournalConfig   `toml:"journal"`
	Status    StatusConfig    `toml:"status"`
	Logging   LoggingConfig   `toml:"logging"`
}

type WorldConfig struct {
	MapPath       string         `toml:"map_path"` // empty = generated map, else built-in 3x3 map
	ViewWidth     int            `toml:"view_width"`
	ViewHeight    int            `toml:"view_height"`
	PlayerX       int            `toml:"player_x"`
	PlayerY       int            `toml:"player_y"`
	PlayerGlyph   string         `toml:"player_glyph"` // empty = first playable glyph
	ResetVelocity bool           `toml:"reset_velocity"`
	Workers       int            `toml:"workers"`
	Generate      GenerateConfig `toml:"generate"`
}

// GenerateConfig enables a noise-generated map when Width and Height are set.
type GenerateConfig struct {
	Width     int     `toml:"width"`
	Height    int     `toml:"height"`
	Seed      int64   `toml:"seed"`
	Scale     float64 `toml:"scale"`
	Threshold float64 `toml:"threshold"`
}

// Enabled reports whether a generated map was requested.
func (g GenerateConfig) Enabled() bool { return g.Width > 0 && g.Height > 0 }

// Frontend modes.
const (
	ModeStdin   = "stdin"
	ModeTUI     = "tui"
	ModeConsole = "console"
)

type FrontendConfig struct {
	Mode string `toml:"mode"`
}

type ConsoleConfig struct {
	BindAddress   string        `toml:"bind_address"`
	SSHAddress    string        `toml:"ssh_address"` // empty disables SSH
	HostKeyPath   string        `toml:"host_key_path"`
	PasswordHash  string        `toml:"password_hash"` // bcrypt; empty disables the gate
	LineQueueSize int           `toml:"line_queue_size"`
	WriteTimeout  time.Duration `toml:"write_timeout"`
	IdleTimeout   time.Duration `toml:"idle_timeout"`
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Journal drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type JournalConfig struct {
	Driver          string        `toml:"driver"`
	DSN             string        `toml:"dsn"` // empty disables the journal; a file path for sqlite
	FlushEvery      int           `toml:"flush_every"`
	MaxConns        int           `toml:"max_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type StatusConfig struct {
	BindAddress string `toml:"bind_address"` // empty disables the HTTP status endpoint
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	File   string `toml:"file"`   // empty = stderr
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML over the defaults. name is only used in errors.
func Parse(data []byte, name string) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		World: WorldConfig{
			ViewWidth:  10,
			ViewHeight: 10,
			Workers:    4,
		},
		Frontend: FrontendConfig{
			Mode: ModeStdin,
		},
		Console: ConsoleConfig{
			BindAddress:   "127.0.0.1:7070",
			HostKeyPath:   "data/ssh_host_ed25519",
			LineQueueSize: 64,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   10 * time.Minute,
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Journal: JournalConfig{
			Driver:          DriverPostgres,
			FlushEvery:      16,
			MaxConns:        4,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) validate() error {
	if c.World.ViewWidth <= 0 || c.World.ViewHeight <= 0 {
		return fmt.Errorf("world: view must be positive, got %dx%d", c.World.ViewWidth, c.World.ViewHeight)
	}
	if n := len([]rune(c.World.PlayerGlyph)); n > 1 {
		return fmt.Errorf("world: player_glyph must be one glyph, got %q", c.World.PlayerGlyph)
	}
	switch c.Frontend.Mode {
	case ModeStdin, ModeTUI, ModeConsole:
	default:
		return fmt.Errorf("frontend: unknown mode %q", c.Frontend.Mode)
	}
	if c.Frontend.Mode == ModeConsole && c.Console.BindAddress == "" && c.Console.SSHAddress == "" {
		return fmt.Errorf("console: bind_address or ssh_address required")
	}
	switch c.Journal.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("journal: unknown driver %q", c.Journal.Driver)
	}
	if g := c.World.Generate; (g.Width > 0) != (g.Height > 0) || g.Width < 0 || g.Height < 0 {
		return fmt.Errorf("world.generate: width and height must both be positive, got %dx%d", g.Width, g.Height)
	}
	if c.Journal.FlushEvery <= 0 {
		c.Journal.FlushEvery = 1
	}
	if c.World.Workers <= 0 {
		c.World.Workers = 1
	}
	return nil
}
