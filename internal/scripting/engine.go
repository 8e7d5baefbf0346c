package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM that rewrites command lines before
// they reach the command buffer.
// Single-goroutine access only (the Input stage runs one system).
//
// Scripts see two globals:
//
//	alias(name, expansion)    -- replace the word name with expansion
//	expand_command(line)      -- optional; return a string to replace line
type Engine struct {
	vm      *lua.LState
	aliases map[string]string
	log     *zap.Logger
}

// NewEngine creates a Lua engine and loads every script in scriptsDir,
// then scriptsDir/commands. Missing directories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "commands")} {
		if err := e.loadDir(dir); err != nil {
			e.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	e.log.Info("lua engine ready", zap.Int("aliases", len(e.aliases)))
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	e := &Engine{vm: vm, aliases: make(map[string]string), log: log}
	vm.SetGlobal("alias", vm.NewFunction(e.luaAlias))
	return e
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
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

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("lua: %w", err)
	}
	return nil
}

// luaAlias implements alias(name, expansion).
func (e *Engine) luaAlias(L *lua.LState) int {
	name := strings.ToLower(strings.TrimSpace(L.CheckString(1)))
	expansion := L.CheckString(2)
	if name == "" || strings.ContainsAny(name, " \t") {
		L.ArgError(1, "alias name must be a single word")
		return 0
	}
	e.aliases[name] = expansion
	return 0
}

// Aliases returns a copy of the registered aliases.
func (e *Engine) Aliases() map[string]string {
	out := make(map[string]string, len(e.aliases))
	for k, v := range e.aliases {
		out[k] = v
	}
	return out
}

// Expand replaces alias words in line, then passes the result through
// expand_command when a script defines it. Any script failure leaves the
// line as it was before the hook.
func (e *Engine) Expand(line string) string {
	line = e.expandAliases(line)

	fn := e.vm.GetGlobal("expand_command")
	if fn == lua.LNil {
		return line
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(line)); err != nil {
		e.log.Error("lua expand_command error", zap.String("line", line), zap.Error(err))
		return line
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	s, ok := result.(lua.LString)
	if !ok {
		// nil means "leave it alone"
		if result != lua.LNil {
			e.log.Warn("lua expand_command returned non-string", zap.String("type", result.Type().String()))
		}
		return line
	}
	return string(s)
}

func (e *Engine) expandAliases(line string) string {
	if len(e.aliases) == 0 {
		return line
	}
	fields := strings.Fields(line)
	changed := false
	for i, f := range fields {
		if exp, ok := e.aliases[strings.ToLower(f)]; ok {
			fields[i] = exp
			changed = true
		}
	}
	if !changed {
		return line
	}
	return strings.Join(fields, " ")
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
