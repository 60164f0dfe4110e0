package combat

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// Snapshot is the persisted form of a Combatant.
type Snapshot struct {
	UID        string             `json:"uid" yaml:"uid"`
	TemplateID string             `json:"template_id,omitempty" yaml:"template_id,omitempty"`
	Name       string             `json:"name" yaml:"name"`
	Kind       Kind               `json:"kind" yaml:"kind"`
	Level      int                `json:"level" yaml:"level"`
	CurrentHP  int                `json:"current_hp" yaml:"current_hp"`
	MaxHP      int                `json:"max_hp" yaml:"max_hp"`
	CurrentMP  int                `json:"current_mp" yaml:"current_mp"`
	MaxMP      int                `json:"max_mp" yaml:"max_mp"`
	Speed      int                `json:"speed" yaml:"speed"`
	Accuracy   int                `json:"accuracy" yaml:"accuracy"`
	CritChance int                `json:"crit_chance" yaml:"crit_chance"`
	WeaponID   string             `json:"weapon_id,omitempty" yaml:"weapon_id,omitempty"`
	ArmorID    string             `json:"armor_id,omitempty" yaml:"armor_id,omitempty"`
	LastAction ActionKind         `json:"last_action,omitempty" yaml:"last_action,omitempty"`
	Defending  bool               `json:"defending,omitempty" yaml:"defending,omitempty"`
	Enrage     Enrage             `json:"enrage" yaml:"enrage"`
	Effects    []effect.Snapshot  `json:"effects" yaml:"effects"`
	Abilities  []ability.Snapshot `json:"abilities" yaml:"abilities"`
	Items      []inventory.Stack  `json:"items" yaml:"items"`
}

// Registries are the read-only catalogs needed to rebuild combatants.
type Registries struct {
	Effects   *effect.Registry
	Abilities *ability.Registry
	Items     *inventory.Registry
}

// Snapshot captures c for persistence.
func (c *Combatant) Snapshot() Snapshot {
	s := Snapshot{
		UID:        c.UID,
		TemplateID: c.TemplateID,
		Name:       c.Name,
		Kind:       c.Kind,
		Level:      c.Level,
		CurrentHP:  c.CurrentHP,
		MaxHP:      c.MaxHP,
		CurrentMP:  c.CurrentMP,
		MaxMP:      c.MaxMP,
		Speed:      c.Speed,
		Accuracy:   c.Accuracy,
		CritChance: c.CritChance,
		LastAction: c.LastAction,
		Defending:  c.Defending,
		Enrage:     c.Enrage,
		Effects:    c.Effects().Snapshot(),
		Abilities:  []ability.Snapshot{},
		Items:      []inventory.Stack{},
	}
	if c.Weapon != nil {
		s.WeaponID = c.Weapon.ID
	}
	if c.Armor != nil {
		s.ArmorID = c.Armor.ID
	}
	if c.Abilities != nil {
		s.Abilities = c.Abilities.Snapshot()
	}
	if c.Items != nil {
		s.Items = c.Items.Stacks()
	}
	return s
}

// Restore rebuilds a Combatant verbatim from s.
//
// Postcondition: Restore(s).Snapshot() equals s, or an error names the first
// unknown reference or broken invariant.
func Restore(s Snapshot, reg Registries) (*Combatant, error) {
	if !s.Kind.Valid() {
		return nil, fmt.Errorf("combat: snapshot %q has invalid kind %q", s.UID, s.Kind)
	}
	if s.MaxHP < 0 || s.CurrentHP < 0 || s.CurrentHP > s.MaxHP {
		return nil, fmt.Errorf("combat: snapshot %q has HP %d/%d", s.UID, s.CurrentHP, s.MaxHP)
	}
	if s.MaxMP < 0 || s.CurrentMP < 0 || s.CurrentMP > s.MaxMP {
		return nil, fmt.Errorf("combat: snapshot %q has MP %d/%d", s.UID, s.CurrentMP, s.MaxMP)
	}
	c := &Combatant{
		UID:        s.UID,
		TemplateID: s.TemplateID,
		Name:       s.Name,
		Kind:       s.Kind,
		Level:      s.Level,
		CurrentHP:  s.CurrentHP,
		MaxHP:      s.MaxHP,
		CurrentMP:  s.CurrentMP,
		MaxMP:      s.MaxMP,
		Speed:      s.Speed,
		Accuracy:   s.Accuracy,
		CritChance: s.CritChance,
		LastAction: s.LastAction,
		Defending:  s.Defending,
		Enrage:     s.Enrage,
	}
	if s.WeaponID != "" {
		if c.Weapon = reg.Items.Weapon(s.WeaponID); c.Weapon == nil {
			return nil, fmt.Errorf("combat: snapshot %q references unknown weapon %q", s.UID, s.WeaponID)
		}
	}
	if s.ArmorID != "" {
		a, ok := reg.Items.Armor(s.ArmorID)
		if !ok {
			return nil, fmt.Errorf("combat: snapshot %q references unknown armor %q", s.UID, s.ArmorID)
		}
		c.Armor = a
	}
	set, err := effect.Restore(reg.Effects, s.Effects)
	if err != nil {
		return nil, fmt.Errorf("combat: snapshot %q: %w", s.UID, err)
	}
	c.effects = set
	if c.Abilities, err = ability.RestoreBook(reg.Abilities, s.Abilities); err != nil {
		return nil, fmt.Errorf("combat: snapshot %q: %w", s.UID, err)
	}
	if c.Items, err = inventory.RestorePouch(reg.Items, s.Items); err != nil {
		return nil, fmt.Errorf("combat: snapshot %q: %w", s.UID, err)
	}
	return c, nil
}

// BattleSnapshot is the persisted form of a Battle between rounds.
type BattleSnapshot struct {
	ID           string     `json:"id" yaml:"id"`
	Round        int        `json:"round" yaml:"round"`
	FleeAttempts int        `json:"flee_attempts" yaml:"flee_attempts"`
	Fled         bool       `json:"fled,omitempty" yaml:"fled,omitempty"`
	Combatants   []Snapshot `json:"combatants" yaml:"combatants"`
}

// Snapshot captures the battle; combatants keep registration order.
func (b *Battle) Snapshot() BattleSnapshot {
	s := BattleSnapshot{
		ID:           b.ID,
		Round:        b.Round,
		FleeAttempts: b.fleeAttempts,
		Fled:         b.fled,
		Combatants:   make([]Snapshot, 0, len(b.combatants)),
	}
	for _, c := range b.combatants {
		s.Combatants = append(s.Combatants, c.Snapshot())
	}
	return s
}

// RestoreBattle rebuilds a Battle from s.
func RestoreBattle(s BattleSnapshot, reg Registries, resolver *Resolver, scheduler *Scheduler) (*Battle, error) {
	combatants := make([]*Combatant, 0, len(s.Combatants))
	for _, cs := range s.Combatants {
		c, err := Restore(cs, reg)
		if err != nil {
			return nil, err
		}
		combatants = append(combatants, c)
	}
	b, err := NewBattle(resolver, scheduler, resolver.logger, combatants...)
	if err != nil {
		return nil, err
	}
	b.ID = s.ID
	b.Round = s.Round
	b.fleeAttempts = s.FleeAttempts
	b.fled = s.Fled
	return b, nil
}
