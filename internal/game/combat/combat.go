// Package combat implements round-based combat resolution: turn ordering,
// action resolution and the Battle that sequences them.
package combat

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// Kind distinguishes the four combatant variants.
type Kind string

const (
	KindPlayer    Kind = "player"
	KindCompanion Kind = "companion"
	KindEnemy     Kind = "enemy"
	KindBoss      Kind = "boss"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPlayer, KindCompanion, KindEnemy, KindBoss:
		return true
	}
	return false
}

// Side is the team a combatant fights for.
type Side int

const (
	SideParty Side = iota
	SideHostile
)

// String returns a human-readable side label.
func (s Side) String() string {
	if s == SideParty {
		return "party"
	}
	return "hostile"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideParty {
		return SideHostile
	}
	return SideParty
}

// Side returns the team for k: players and companions form the party.
func (k Kind) Side() Side {
	if k == KindPlayer || k == KindCompanion {
		return SideParty
	}
	return SideHostile
}

// ActionKind is the type of action a combatant takes on its turn.
type ActionKind string

const (
	ActionNone    ActionKind = ""
	ActionAttack  ActionKind = "attack"
	ActionDefend  ActionKind = "defend"
	ActionAbility ActionKind = "ability"
	ActionItem    ActionKind = "item"
	ActionFlee    ActionKind = "flee"
)

// Enrage is a boss's round-counter damage escalation.
type Enrage struct {
	Round   int `yaml:"round" json:"round"`     // first round the bonus applies; 0 = never
	Percent int `yaml:"percent" json:"percent"` // extra outgoing damage percent
}

// Active reports whether the enrage bonus applies in round.
func (e Enrage) Active(round int) bool {
	return e.Round > 0 && e.Percent != 0 && round >= e.Round
}

var (
	// ErrInsufficientMP is returned when an ability costs more MP than the actor has.
	ErrInsufficientMP = errors.New("combat: insufficient MP")
)

// Combatant represents one participant in a battle.
//
// Invariant: 0 <= CurrentHP <= MaxHP and 0 <= CurrentMP <= MaxMP.
type Combatant struct {
	UID        string
	TemplateID string
	Name       string
	Kind       Kind
	Level      int
	CurrentHP  int
	MaxHP      int
	CurrentMP  int
	MaxMP      int
	Speed      int
	SpeedMod   int // transient; recomputed at the start of every round
	Accuracy   int // percentage points
	CritChance int // percentage points
	Weapon     *inventory.WeaponDef
	Armor      *inventory.ArmorDef
	Abilities  *ability.Book
	Items      *inventory.Pouch
	LastAction ActionKind
	Defending  bool
	Enrage     Enrage

	effects *effect.Set
	order   int // registration index within a battle
}

// ID returns the combatant's unique instance ID.
func (c *Combatant) ID() string { return c.UID }

// Effects returns the live effect set, creating it on first use.
//
// Postcondition: Returns a non-nil *effect.Set.
func (c *Combatant) Effects() *effect.Set {
	if c.effects == nil {
		c.effects = effect.NewSet()
	}
	return c.effects
}

// Side returns the combatant's team.
func (c *Combatant) Side() Side { return c.Kind.Side() }

// IsAlive reports whether CurrentHP > 0.
func (c *Combatant) IsAlive() bool { return c.CurrentHP > 0 }

// IsBoss reports whether the combatant is a boss.
func (c *Combatant) IsBoss() bool { return c.Kind == KindBoss }

// TakeDamage reduces CurrentHP by n, flooring at zero.
// Precondition: n must be >= 0.
// Postcondition: Returns the HP actually removed; CurrentHP >= 0.
func (c *Combatant) TakeDamage(n int) int {
	if n <= 0 {
		return 0
	}
	if n > c.CurrentHP {
		n = c.CurrentHP
	}
	c.CurrentHP -= n
	return n
}

// Heal raises CurrentHP by n, capping at MaxHP. Dead combatants are not healed.
// Postcondition: Returns the HP actually restored; CurrentHP <= MaxHP.
func (c *Combatant) Heal(n int) int {
	if n <= 0 || !c.IsAlive() {
		return 0
	}
	if c.CurrentHP+n > c.MaxHP {
		n = c.MaxHP - c.CurrentHP
	}
	c.CurrentHP += n
	return n
}

// SpendMP deducts cost from CurrentMP.
// Postcondition: on error CurrentMP is unchanged.
func (c *Combatant) SpendMP(cost int) error {
	if cost > c.CurrentMP {
		return fmt.Errorf("%s needs %d MP, has %d: %w", c.Name, cost, c.CurrentMP, ErrInsufficientMP)
	}
	c.CurrentMP -= cost
	return nil
}

// RestoreMP raises CurrentMP by n, capping at MaxMP, and returns the amount restored.
func (c *Combatant) RestoreMP(n int) int {
	if n <= 0 {
		return 0
	}
	if c.CurrentMP+n > c.MaxMP {
		n = c.MaxMP - c.CurrentMP
	}
	c.CurrentMP += n
	return n
}

// Passive returns the combatant's passive bonus for stat, or 0 without abilities.
func (c *Combatant) Passive(stat ability.Stat) int {
	return c.Abilities.PassiveBonus(stat)
}
