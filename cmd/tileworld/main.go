package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/tileworld/internal/config"
	coresys "github.com/l1jgo/tileworld/internal/core/system"
	"github.com/l1jgo/tileworld/internal/data"
	"github.com/l1jgo/tileworld/internal/input"
	gonet "github.com/l1jgo/tileworld/internal/net"
	"github.com/l1jgo/tileworld/internal/persist"
	"github.com/l1jgo/tileworld/internal/render"
	"github.com/l1jgo/tileworld/internal/scripting"
	"github.com/l1jgo/tileworld/internal/status"
	"github.com/l1jgo/tileworld/internal/system"
	"github.com/l1jgo/tileworld/internal/tui"
	"github.com/l1jgo/tileworld/internal/world"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultConfigPath = "config/tileworld.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfgPath := flag.String("config", defaultConfigPath, "path to the TOML config file")
	mapPath := flag.String("map", "", "map file (overrides world.map_path)")
	mode := flag.String("mode", "", "frontend: stdin, tui or console (overrides frontend.mode)")
	flag.Parse()

	// 1. Load config
	path := *cfgPath
	if p := os.Getenv("TILEWORLD_CONFIG"); p != "" {
		path = p
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *mapPath != "" {
		cfg.World.MapPath = *mapPath
	}
	if *mode != "" {
		cfg.Frontend.Mode = *mode
	}
	if cfg.Frontend.Mode == config.ModeTUI && cfg.Logging.File == "" {
		// the screen owns the terminal
		cfg.Logging.File = "tileworld.log"
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Load the map and build the world
	m, err := loadMap(cfg.World)
	if err != nil {
		return fmt.Errorf("map: %w", err)
	}
	log.Info("map loaded",
		zap.String("path", cfg.World.MapPath),
		zap.Int("width", m.Width),
		zap.Int("height", m.Height),
		zap.Int("actors", len(m.Actors)),
	)
	log.Debug("map classification", zap.String("glyphs", m.Classification()))

	opts := world.Options{
		ViewWidth:  cfg.World.ViewWidth,
		ViewHeight: cfg.World.ViewHeight,
		PlayerX:    cfg.World.PlayerX,
		PlayerY:    cfg.World.PlayerY,
	}
	if g := []rune(cfg.World.PlayerGlyph); len(g) == 1 {
		opts.PlayerGlyph = g[0]
	}
	ws, err := world.Build(m, opts)
	if err != nil {
		return fmt.Errorf("build world: %w", err)
	}

	// 4. Optional Lua command aliases
	var expander system.Expander
	if cfg.Scripting.Enabled {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		expander = engine
	}

	// 5. Frontend: where lines come from and frames go to
	fe, err := openFrontend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("frontend %s: %w", cfg.Frontend.Mode, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(fe.close))

	// 6. Create systems and register with runner
	runner := coresys.NewRunner(ws.Registry(), log)
	runner.Register(system.NewInputSystem(ws, fe.source, expander, log))
	runner.Register(system.NewCommandApplySystem(ws, log))
	runner.Register(system.NewMotionSystem(ws, cfg.World.Workers))
	runner.Register(system.NewViewFollowSystem(ws))
	if cfg.World.ResetVelocity {
		runner.Register(system.NewVelocityResetSystem(ws))
	}
	renderSys := system.NewRenderSystem(ws, fe.sink)
	runner.Register(renderSys)

	// 7. Optional tick journal
	if cfg.Journal.DSN != "" {
		journal, closeJournal, err := openJournal(ctx, ws, cfg.Journal, log)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer closeJournal()
		runner.Register(journal)
	}

	if err := runner.Build(); err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	// 8. Optional read-only HTTP status
	if cfg.Status.BindAddress != "" {
		statusSrv := status.NewServer(cfg.Status.BindAddress, renderSys, log)
		if err := statusSrv.Start(); err != nil {
			return fmt.Errorf("status endpoint: %w", err)
		}
		defer multierr.AppendInvoke(&err, multierr.Invoke(func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return statusSrv.Shutdown(shutdownCtx)
		}))
	}

	// 9. Show the world before the first command, then run ticks until
	// input ends, a signal arrives or a system fails.
	if err := renderSys.Draw(); err != nil {
		return fmt.Errorf("initial frame: %w", err)
	}
	log.Info("simulation running", zap.String("frontend", cfg.Frontend.Mode))

	for {
		tick, err := runner.Tick(ctx)
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, input.ErrClosed):
			log.Info("input closed", zap.Uint64("ticks", tick-1))
			return nil
		case ctx.Err() != nil:
			log.Info("shutdown signal", zap.Uint64("ticks", tick-1))
			return nil
		}
		var inv *world.InvariantError
		if errors.As(err, &inv) {
			log.Error("world invariant violated",
				zap.Uint64("tick", tick),
				zap.String("invariant", inv.Invariant),
				zap.String("role", inv.Role),
				zap.String("component", inv.Component),
			)
		}
		return fmt.Errorf("tick %d: %w", tick, err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == defaultConfigPath {
		return config.Defaults(), nil
	}
	return cfg, err
}

// loadMap reads the configured map file, generates one, or falls back to
// the built-in 3x3 map.
func loadMap(cfg config.WorldConfig) (*data.WorldMap, error) {
	switch {
	case cfg.MapPath != "":
		return data.LoadWorldMap(cfg.MapPath)
	case cfg.Generate.Enabled():
		return data.Generate(data.GenerateOptions{
			Width:     cfg.Generate.Width,
			Height:    cfg.Generate.Height,
			Seed:      cfg.Generate.Seed,
			Scale:     cfg.Generate.Scale,
			Threshold: cfg.Generate.Threshold,
		})
	default:
		return data.ParseWorldMap(nil)
	}
}

type frontend struct {
	source input.Source
	sink   render.Sink
	close  func() error
}

func openFrontend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*frontend, error) {
	switch cfg.Frontend.Mode {
	case config.ModeTUI:
		t, err := tui.NewTerminal(log)
		if err != nil {
			return nil, err
		}
		t.Start(ctx)
		return &frontend{source: t, sink: t, close: t.Close}, nil

	case config.ModeConsole:
		return openConsole(cfg.Console, log)

	default:
		return &frontend{
			source: input.NewLineReader(os.Stdin),
			sink:   render.NewTextSink(os.Stdout),
			close:  func() error { return nil },
		}, nil
	}
}

func openConsole(cfg config.ConsoleConfig, log *zap.Logger) (*frontend, error) {
	console, err := gonet.NewConsole(gonet.ConsoleOptions{
		PasswordHash:  cfg.PasswordHash,
		LineQueueSize: cfg.LineQueueSize,
		WriteTimeout:  cfg.WriteTimeout,
		IdleTimeout:   cfg.IdleTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	closers := []func() error{console.Close}

	if cfg.BindAddress != "" {
		srv, err := gonet.NewServer(cfg.BindAddress, console, log)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", cfg.BindAddress, err)
		}
		go srv.AcceptLoop()
		closers = append(closers, srv.Shutdown)
		log.Info("console listening", zap.String("addr", srv.Addr().String()))
	}
	if cfg.SSHAddress != "" {
		sshSrv, err := gonet.NewSSHServer(cfg.SSHAddress, cfg.HostKeyPath, console, cfg.IdleTimeout, log)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := sshSrv.ListenAndServe(); err != nil {
				log.Error("ssh console stopped", zap.Error(err))
			}
		}()
		closers = append(closers, sshSrv.Close)
	}

	return &frontend{
		source: console,
		sink:   console,
		close: func() error {
			var err error
			for _, c := range closers {
				err = multierr.Append(err, c())
			}
			return err
		},
	}, nil
}

// journalStore is what the journal writes through, whichever the driver.
type journalStore interface {
	system.JournalWriter
	RunID() int64
	LastTick(ctx context.Context) (uint64, error)
}

// openJournal opens the configured journal backend and returns the
// journal system plus a closer that flushes pending records and releases
// the backend.
func openJournal(ctx context.Context, ws *world.State, cfg config.JournalConfig, log *zap.Logger) (*system.JournalSystem, func(), error) {
	runID := time.Now().UnixNano()

	var (
		store   journalStore
		release func()
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		j, err := persist.OpenSQLiteJournal(cfg.DSN, runID, log)
		if err != nil {
			return nil, nil, err
		}
		store = j
		release = func() {
			if err := j.Close(); err != nil {
				log.Warn("sqlite journal close", zap.Error(err))
			}
		}

	default:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		db, err := persist.NewDB(connectCtx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if err := persist.RunMigrations(connectCtx, db.Pool, log); err != nil {
			db.Close()
			return nil, nil, err
		}
		store = persist.NewJournalRepo(db, runID)
		release = db.Close
	}

	journal := system.NewJournalSystem(ws, store, cfg.FlushEvery, log)
	log.Info("tick journal enabled",
		zap.String("driver", cfg.Driver),
		zap.Int64("run", store.RunID()),
		zap.Int("flush_every", cfg.FlushEvery),
	)

	closeFn := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		journal.Close(flushCtx)
		if last, err := store.LastTick(flushCtx); err == nil {
			log.Info("tick journal closed", zap.Uint64("last_tick", last))
		}
		release()
	}
	return journal, closeFn, nil
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
	out := "stderr"
	if cfg.File != "" {
		out = cfg.File
	}
	zapCfg.OutputPaths = []string{out}
	zapCfg.ErrorOutputPaths = []string{out}

	return zapCfg.Build()
}
