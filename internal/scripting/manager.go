package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// ErrClosed is returned by calls on a Manager after Close.
var ErrClosed = errors.New("scripting: manager closed")

// CombatantInfo is the read-only view of a combatant handed to Lua.
type CombatantInfo struct {
	UID     string
	Name    string
	Kind    string
	Side    string
	Level   int
	HP      int
	MaxHP   int
	MP      int
	MaxMP   int
	Effects []string
}

// Manager owns one sandboxed LState shared by every loaded script.
//
// Manager is not safe for concurrent use. Hooks may re-enter the manager
// through engine.* functions on the same goroutine; nested calls share the
// instruction budget of the outermost call.
type Manager struct {
	state    *lua.LState
	limit    int
	depth    int
	provider *dice.Provider
	logger   *zap.Logger

	// Injected by the battle that owns the manager. nil means the engine.*
	// function returns nil or zero.
	GetCombatant func(uid string) *CombatantInfo
	GetAllies    func(uid string) []*CombatantInfo
	GetEnemies   func(uid string) []*CombatantInfo
	ApplyDamage  func(uid string, hp int) (int, error)
	Heal         func(uid string, hp int) (int, error)
	ApplyEffect  func(uid, effectID string, duration, stacks int) error
	RemoveEffect func(uid, effectID string) bool
}

// NewManager creates a Manager with the engine module registered.
//
// Precondition: provider and logger must be non-nil; instLimit >= 0 where 0
// selects DefaultInstructionLimit.
// Postcondition: Returns a Manager with no scripts loaded.
func NewManager(provider *dice.Provider, logger *zap.Logger, instLimit int) *Manager {
	if provider == nil {
		panic("scripting.NewManager: provider must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	m := &Manager{
		state:    newSandbox(),
		limit:    instLimit,
		provider: provider,
		logger:   logger,
	}
	m.RegisterModules(m.state)
	return m
}

// LoadDir executes every *.lua file in dir in lexicographic order. Each file
// gets its own instruction budget.
//
// Postcondition: Returns an error naming the first file that fails to load.
// Globals defined by files loaded before the failure remain defined.
func (m *Manager) LoadDir(dir string) error {
	if m.state == nil {
		return ErrClosed
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, path := range files {
		if err := m.run(func() error { return m.state.DoFile(path) }); err != nil {
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	m.logger.Info("scripts loaded", zap.String("dir", dir), zap.Int("files", len(files)))
	return nil
}

// LoadString executes src under the name chunk.
func (m *Manager) LoadString(chunk, src string) error {
	if m.state == nil {
		return ErrClosed
	}
	if err := m.run(func() error { return m.state.DoString(src) }); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", chunk, err)
	}
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	if m.state == nil {
		return false
	}
	_, ok := m.state.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the Lua global function hook with args. A missing hook is a
// no-op. Lua runtime errors, including an exhausted instruction budget, are
// logged at Warn and never propagated.
//
// Postcondition: Returns the hook's first return value, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	if m.state == nil {
		return lua.LNil, ErrClosed
	}
	fn, ok := m.state.GetGlobal(hook).(*lua.LFunction)
	if !ok {
		return lua.LNil, nil
	}
	var ret lua.LValue = lua.LNil
	err := m.run(func() error {
		if err := m.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = m.state.Get(-1)
		m.state.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("lua runtime error", zap.String("hook", hook), zap.Error(err))
		return lua.LNil, nil
	}
	return ret, nil
}

// run executes fn under the instruction budget. Only the outermost call
// installs a fresh budget.
func (m *Manager) run(fn func() error) error {
	if m.depth == 0 {
		ctx, cancel := newCountingContext(m.limit)
		m.state.SetContext(ctx)
		defer func() {
			cancel()
			m.state.RemoveContext()
		}()
	}
	m.depth++
	defer func() { m.depth-- }()
	return fn()
}

// Close releases the Lua state. Subsequent calls return ErrClosed.
func (m *Manager) Close() {
	if m.state == nil {
		return
	}
	m.state.Close()
	m.state = nil
}
