package ability

import (
	"errors"
	"fmt"
)

const (
	MinLevel = 1
	MaxLevel = 100
)

var (
	// ErrOnCooldown is returned when an active ability is triggered before
	// its cooldown counter reaches zero.
	ErrOnCooldown = errors.New("ability: on cooldown")
	// ErrNotActivatable is returned when a passive ability is triggered.
	ErrNotActivatable = errors.New("ability: passive abilities cannot be activated")
)

// XPToNext returns the experience needed to advance from level.
func XPToNext(level int) int {
	return level * 100
}

// Ability is a combatant's leveled instance of a Def.
type Ability struct {
	Def        *Def
	Level      int
	Experience int
	Cooldown   int // rounds remaining; 0 = ready
}

// New returns an Ability at level, clamped to [MinLevel, MaxLevel].
//
// Precondition: def must be non-nil.
func New(def *Def, level int) *Ability {
	if def == nil {
		panic("ability.New: def must not be nil")
	}
	return &Ability{Def: def, Level: clampLevel(level)}
}

func clampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// ID returns the definition ID.
func (a *Ability) ID() string { return a.Def.ID }

// Passive reports whether the ability is always-on.
func (a *Ability) Passive() bool { return a.Def.Type == TypePassive }

// Value returns the scaled magnitude at the current level.
func (a *Ability) Value() int {
	return a.Def.Scaling.Value(a.Level)
}

// Ready reports whether an active ability can be used now.
func (a *Ability) Ready() bool {
	return !a.Passive() && a.Cooldown == 0
}

// CheckReady reports why the ability cannot be used, without mutating it.
func (a *Ability) CheckReady() error {
	if a.Passive() {
		return fmt.Errorf("%s: %w", a.Def.ID, ErrNotActivatable)
	}
	if a.Cooldown > 0 {
		return fmt.Errorf("%s (%d rounds left): %w", a.Def.ID, a.Cooldown, ErrOnCooldown)
	}
	return nil
}

// Trigger starts the cooldown for a use of the ability.
//
// Postcondition: on success Cooldown == Def.Cooldown; on error the ability is unchanged.
func (a *Ability) Trigger() error {
	if err := a.CheckReady(); err != nil {
		return err
	}
	a.Cooldown = a.Def.Cooldown
	return nil
}

// TickCooldown advances the cooldown by one round.
func (a *Ability) TickCooldown() {
	if a.Cooldown > 0 {
		a.Cooldown--
	}
}

// GainExperience adds xp and returns the number of levels gained.
// Experience past MaxLevel is discarded.
func (a *Ability) GainExperience(xp int) int {
	if xp <= 0 || a.Level >= MaxLevel {
		return 0
	}
	a.Experience += xp
	gained := 0
	for a.Level < MaxLevel && a.Experience >= XPToNext(a.Level) {
		a.Experience -= XPToNext(a.Level)
		a.Level++
		gained++
	}
	if a.Level == MaxLevel {
		a.Experience = 0
	}
	return gained
}
