package combat

import (
	"errors"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// ErrEmptyActSequence signals that no living combatant remains to act; the
// battle is over rather than in an error state.
var ErrEmptyActSequence = errors.New("combat: act sequence is empty")

// DefaultSpeedMods returns the next-round speed bias for each action kind.
// Kinds not listed contribute zero.
func DefaultSpeedMods() map[ActionKind]int {
	return map[ActionKind]int{
		ActionAttack: -3,
		ActionDefend: 3,
	}
}

// Scheduler derives turn order from effective speed.
type Scheduler struct {
	mods map[ActionKind]int
}

// NewScheduler returns a Scheduler using mods, or DefaultSpeedMods when nil.
func NewScheduler(mods map[ActionKind]int) *Scheduler {
	if mods == nil {
		mods = DefaultSpeedMods()
	}
	cp := make(map[ActionKind]int, len(mods))
	for k, v := range mods {
		cp[k] = v
	}
	return &Scheduler{mods: cp}
}

// Prepare resets each combatant's transient speed modifier and derives a new
// one from the action it took last round plus its effects' speed bonuses.
//
// Postcondition: every LastAction is ActionNone.
func (s *Scheduler) Prepare(combatants []*Combatant) {
	for _, c := range combatants {
		c.SpeedMod = s.mods[c.LastAction] + effect.SpeedBonus(c.Effects())
		c.LastAction = ActionNone
	}
}

// EffectiveSpeed returns max(1, Speed + SpeedMod).
//
// Postcondition: result >= 1.
func EffectiveSpeed(c *Combatant) int {
	if v := c.Speed + c.SpeedMod; v > 1 {
		return v
	}
	return 1
}

// Order returns the living combatants, fastest first. Ties keep registration
// order (the order combatants joined the battle).
//
// Postcondition: Returns ErrEmptyActSequence when nobody is alive.
func (s *Scheduler) Order(combatants []*Combatant) ([]*Combatant, error) {
	var living []*Combatant
	for _, c := range combatants {
		if c.IsAlive() {
			living = append(living, c)
		}
	}
	if len(living) == 0 {
		return nil, ErrEmptyActSequence
	}
	sortBySpeedDesc(living)
	return living, nil
}

// Record stores the action actor just took; it feeds next round's Prepare.
func (s *Scheduler) Record(actor *Combatant, kind ActionKind) {
	actor.LastAction = kind
}

// sortBySpeedDesc sorts combatants in place, fastest first. Insertion sort is
// stable; equal speeds fall back to registration order.
func sortBySpeedDesc(combatants []*Combatant) {
	for i := 1; i < len(combatants); i++ {
		for j := i; j > 0 && before(combatants[j], combatants[j-1]); j-- {
			combatants[j], combatants[j-1] = combatants[j-1], combatants[j]
		}
	}
}

func before(a, b *Combatant) bool {
	sa, sb := EffectiveSpeed(a), EffectiveSpeed(b)
	if sa != sb {
		return sa > sb
	}
	return a.order < b.order
}
