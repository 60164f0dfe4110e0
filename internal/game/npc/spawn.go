package npc

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// Spawn builds a full-health combatant from tmpl with a fresh instance ID.
// Armor speed penalties are applied to the base speed here.
//
// Precondition: tmpl must have passed Validate; reg.Abilities and reg.Items
// must be non-nil.
// Postcondition: Returns an error naming the first weapon, armor, ability or
// item reference that reg cannot resolve.
func Spawn(tmpl *Template, reg combat.Registries) (*combat.Combatant, error) {
	c := &combat.Combatant{
		UID:        uuid.New().String(),
		TemplateID: tmpl.ID,
		Name:       tmpl.Name,
		Kind:       tmpl.Kind,
		Level:      tmpl.Level,
		CurrentHP:  tmpl.MaxHP,
		MaxHP:      tmpl.MaxHP,
		CurrentMP:  tmpl.MaxMP,
		MaxMP:      tmpl.MaxMP,
		Speed:      tmpl.Speed,
		Accuracy:   tmpl.Accuracy,
		CritChance: tmpl.CritChance,
		Enrage:     tmpl.Enrage,
	}
	if tmpl.Weapon != "" {
		if c.Weapon = reg.Items.Weapon(tmpl.Weapon); c.Weapon == nil {
			return nil, fmt.Errorf("npc %q: unknown weapon %q", tmpl.ID, tmpl.Weapon)
		}
	}
	if tmpl.Armor != "" {
		a, ok := reg.Items.Armor(tmpl.Armor)
		if !ok {
			return nil, fmt.Errorf("npc %q: unknown armor %q", tmpl.ID, tmpl.Armor)
		}
		c.Armor = a
		c.Speed -= a.SpeedPenalty
		if c.Speed < 0 {
			c.Speed = 0
		}
	}

	book, err := ability.NewBook()
	if err != nil {
		return nil, err
	}
	for _, ref := range tmpl.Abilities {
		def, ok := reg.Abilities.Get(ref.ID)
		if !ok {
			return nil, fmt.Errorf("npc %q: unknown ability %q", tmpl.ID, ref.ID)
		}
		if err := book.Add(ability.New(def, ref.Level)); err != nil {
			return nil, fmt.Errorf("npc %q: %w", tmpl.ID, err)
		}
	}
	c.Abilities = book

	pouch := inventory.NewPouch()
	for _, grant := range tmpl.Items {
		def, ok := reg.Items.Item(grant.ID)
		if !ok {
			return nil, fmt.Errorf("npc %q: unknown item %q", tmpl.ID, grant.ID)
		}
		if err := pouch.Add(def, grant.Qty); err != nil {
			return nil, fmt.Errorf("npc %q: %w", tmpl.ID, err)
		}
	}
	c.Items = pouch
	return c, nil
}
