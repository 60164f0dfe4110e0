package effect

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNilDef is returned when AddEffect is called without a definition.
var ErrNilDef = errors.New("effect: definition must not be nil")

// Target is anything that can carry effects and absorb their per-round logic.
type Target interface {
	ID() string
	Effects() *Set
	// TakeDamage subtracts n HP (clamped at 0) and returns the amount removed.
	TakeDamage(n int) int
	// Heal adds n HP (clamped at max) and returns the amount restored.
	Heal(n int) int
}

// Reason explains why an effect left its target.
type Reason int

const (
	ReasonExpired Reason = iota
	ReasonCleansed
	ReasonRemoved
)

// String returns a human-readable reason label.
func (r Reason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonCleansed:
		return "cleansed"
	case ReasonRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Hooks observe effect lifecycle transitions.
type Hooks interface {
	OnApplied(t Target, a *Active)
	OnTick(t Target, a *Active, amount int)
	OnExpired(t Target, a *Active, reason Reason)
}

// HookFuncs adapts plain functions to Hooks. Nil fields are skipped.
type HookFuncs struct {
	Applied func(t Target, a *Active)
	Ticked  func(t Target, a *Active, amount int)
	Expired func(t Target, a *Active, reason Reason)
}

func (h HookFuncs) OnApplied(t Target, a *Active) {
	if h.Applied != nil {
		h.Applied(t, a)
	}
}

func (h HookFuncs) OnTick(t Target, a *Active, amount int) {
	if h.Ticked != nil {
		h.Ticked(t, a, amount)
	}
}

func (h HookFuncs) OnExpired(t Target, a *Active, reason Reason) {
	if h.Expired != nil {
		h.Expired(t, a, reason)
	}
}

// Options override a definition's defaults for one application. Zero values
// fall back to the definition.
type Options struct {
	Potency  int
	Duration int
	Stacks   int // stacks added on a stacking reapply; default 1
	SourceID string
}

// Application reports what AddEffect did.
type Application struct {
	EffectID  string
	New       bool
	Stacks    int
	Remaining int
}

// Tick reports one effect's per-round processing.
type Tick struct {
	EffectID string
	Kind     Kind
	Stacks   int
	Amount   int // HP actually removed (dot) or restored (hot); 0 for passive kinds
}

// Expiry reports an effect leaving its target.
type Expiry struct {
	EffectID string
	Reason   Reason
}

// Engine applies, processes, ticks and removes effects. It holds no
// per-combatant state; every Set lives on its Target.
type Engine struct {
	hooks  []Hooks
	logger *zap.Logger
}

// NewEngine creates an Engine. logger may be nil.
func NewEngine(logger *zap.Logger, hooks ...Hooks) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{hooks: hooks, logger: logger}
}

// AddHooks registers additional lifecycle observers.
func (e *Engine) AddHooks(h ...Hooks) {
	e.hooks = append(e.hooks, h...)
}

// AddEffect applies def to t.
//
// A new type is inserted and the on-applied hooks fire. Reapplying a
// non-stacking type refreshes its duration to the new value; reapplying a
// stacking type adds stacks (capped by MaxStacks when set) and refreshes the
// duration. No duplicate instance is ever created.
//
// Precondition: t.Effects() must be non-nil.
func (e *Engine) AddEffect(t Target, def *Def, opts Options) (Application, error) {
	if def == nil {
		return Application{}, ErrNilDef
	}
	set := t.Effects()
	if set == nil {
		return Application{}, fmt.Errorf("effect: target %q has no effect set", t.ID())
	}
	duration := opts.Duration
	if duration == 0 {
		duration = def.Duration
	}
	potency := opts.Potency
	if potency == 0 {
		potency = def.Potency
	}
	add := opts.Stacks
	if add <= 0 {
		add = 1
	}

	if existing, ok := set.Get(def.ID); ok {
		if def.Stacking {
			existing.Stacks = capStacks(def, existing.Stacks+add)
		}
		existing.Remaining = duration
		e.logger.Debug("effect refreshed",
			zap.String("target", t.ID()),
			zap.String("effect", def.ID),
			zap.Int("stacks", existing.Stacks),
			zap.Int("remaining", existing.Remaining),
		)
		return Application{EffectID: def.ID, Stacks: existing.Stacks, Remaining: existing.Remaining}, nil
	}

	stacks := 1
	if def.Stacking {
		stacks = capStacks(def, add)
	}
	a := &Active{
		Def:       def,
		Potency:   potency,
		Stacks:    stacks,
		Remaining: duration,
		SourceID:  opts.SourceID,
	}
	set.insert(a)
	e.logger.Debug("effect applied",
		zap.String("target", t.ID()),
		zap.String("effect", def.ID),
		zap.String("kind", string(def.Kind)),
		zap.Int("stacks", a.Stacks),
		zap.Int("remaining", a.Remaining),
	)
	for _, h := range e.hooks {
		h.OnApplied(t, a)
	}
	return Application{EffectID: def.ID, New: true, Stacks: a.Stacks, Remaining: a.Remaining}, nil
}

func capStacks(def *Def, n int) int {
	if def.MaxStacks > 0 && n > def.MaxStacks {
		return def.MaxStacks
	}
	return n
}

// ProcessEffects runs every active effect's per-round logic on t, oldest
// first. Called once when t's turn begins; durations are not touched.
//
// Postcondition: one Tick per effect present at call time and not removed by
// an earlier hook in the same pass, in insertion order.
func (e *Engine) ProcessEffects(t Target) []Tick {
	set := t.Effects()
	active := set.All()
	ticks := make([]Tick, 0, len(active))
	for _, a := range active {
		if !live(set, a) {
			continue
		}
		tick := Tick{EffectID: a.Def.ID, Kind: a.Def.Kind, Stacks: a.Stacks}
		switch a.Def.Kind {
		case KindDoT:
			tick.Amount = t.TakeDamage(a.Magnitude())
		case KindHoT:
			tick.Amount = t.Heal(a.Magnitude())
		}
		if tick.Amount != 0 {
			e.logger.Debug("effect tick",
				zap.String("target", t.ID()),
				zap.String("effect", a.Def.ID),
				zap.Int("amount", tick.Amount),
			)
		}
		for _, h := range e.hooks {
			h.OnTick(t, a, tick.Amount)
		}
		ticks = append(ticks, tick)
	}
	return ticks
}

// TickDurations decrements every timed effect on t by one round and removes
// those that reach zero. Called once per combatant at the end of the round.
// All decrements happen before any expiry hook runs, so an effect a hook
// applies or refreshes keeps its full duration.
//
// Postcondition: for every returned Expiry, t.Effects().Has(EffectID) is false
// and each effect id appears at most once.
func (e *Engine) TickDurations(t Target) []Expiry {
	set := t.Effects()
	var due []*Active
	for _, a := range set.All() {
		if a.Remaining == Permanent {
			continue
		}
		a.Remaining--
		if a.Remaining <= 0 {
			due = append(due, a)
		}
	}
	var expired []Expiry
	for _, a := range due {
		// An earlier hook may have removed or refreshed it.
		if !live(set, a) || a.Remaining > 0 {
			continue
		}
		if x, ok := e.drop(t, a.Def.ID, ReasonExpired); ok {
			expired = append(expired, x)
		}
	}
	return expired
}

// RemoveNegativeEffects cleanses every debuff, dot and cc effect from t.
// It is a no-op when none are present.
func (e *Engine) RemoveNegativeEffects(t Target) []Expiry {
	set := t.Effects()
	var removed []Expiry
	for _, a := range set.All() {
		if !a.Def.Kind.Negative() || !live(set, a) {
			continue
		}
		if x, ok := e.drop(t, a.Def.ID, ReasonCleansed); ok {
			removed = append(removed, x)
		}
	}
	return removed
}

// RemoveEffect explicitly removes effect id from t.
//
// Postcondition: returns false when the effect was not present.
func (e *Engine) RemoveEffect(t Target, id string) (Expiry, bool) {
	return e.drop(t, id, ReasonRemoved)
}

// drop removes id from t and fires the on-expired hooks.
//
// Postcondition: returns false, and fires no hooks, when id was not present.
func (e *Engine) drop(t Target, id string, reason Reason) (Expiry, bool) {
	a, ok := t.Effects().remove(id)
	if !ok {
		return Expiry{}, false
	}
	e.logger.Debug("effect removed",
		zap.String("target", t.ID()),
		zap.String("effect", id),
		zap.Stringer("reason", reason),
	)
	for _, h := range e.hooks {
		h.OnExpired(t, a, reason)
	}
	return Expiry{EffectID: id, Reason: reason}, true
}

// live reports whether a is still the instance t holds under its id.
func live(set *Set, a *Active) bool {
	cur, ok := set.Get(a.Def.ID)
	return ok && cur == a
}
