package inventory

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Target constants for ItemDef.Target.
const (
	TargetSelf  = "self"
	TargetAlly  = "ally"
	TargetEnemy = "enemy"
)

// DefaultMaxStack caps a pouch entry when an ItemDef leaves MaxStack unset.
const DefaultMaxStack = 99

// DamageRange is an inclusive damage range for offensive consumables.
type DamageRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// ItemEffect applies an effect when a consumable is used.
type ItemEffect struct {
	ID       string `yaml:"id"`
	Duration int    `yaml:"duration"`
	Stacks   int    `yaml:"stacks"`
}

// ItemDef defines a single-use consumable. Any combination of uses may be
// declared; they resolve in the order heal, restore MP, cleanse, damage, effect.
type ItemDef struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Target      string       `yaml:"target"`
	HealDice    string       `yaml:"heal_dice"`
	RestoreMP   int          `yaml:"restore_mp"`
	Cleanse     bool         `yaml:"cleanse"`
	Effect      *ItemEffect  `yaml:"effect"`
	Damage      *DamageRange `yaml:"damage"`
	MaxStack    int          `yaml:"max_stack"`
	Value       int          `yaml:"value"`
}

// StackLimit returns MaxStack, or DefaultMaxStack when unset.
func (d *ItemDef) StackLimit() int {
	if d.MaxStack > 0 {
		return d.MaxStack
	}
	return DefaultMaxStack
}

// Offensive reports whether the item is used on an opponent.
func (d *ItemDef) Offensive() bool {
	return d.Target == TargetEnemy
}

// Validate checks that the ItemDef satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	switch d.Target {
	case TargetSelf, TargetAlly, TargetEnemy:
	default:
		errs = append(errs, fmt.Errorf("target must be one of self, ally, enemy; got %q", d.Target))
	}
	if d.HealDice != "" {
		if _, err := dice.Parse(d.HealDice); err != nil {
			errs = append(errs, fmt.Errorf("heal_dice: %w", err))
		}
	}
	if d.RestoreMP < 0 {
		errs = append(errs, errors.New("restore_mp must be >= 0"))
	}
	if d.Effect != nil && d.Effect.ID == "" {
		errs = append(errs, errors.New("effect.id must not be empty"))
	}
	if d.Damage != nil {
		if d.Damage.Min < 0 || d.Damage.Max < d.Damage.Min {
			errs = append(errs, fmt.Errorf("damage range [%d,%d] is invalid", d.Damage.Min, d.Damage.Max))
		}
		if d.Target != TargetEnemy {
			errs = append(errs, errors.New("damage items must target an enemy"))
		}
	}
	if d.HealDice == "" && d.RestoreMP == 0 && !d.Cleanse && d.Effect == nil && d.Damage == nil {
		errs = append(errs, errors.New("item has no use"))
	}
	if d.MaxStack < 0 {
		errs = append(errs, errors.New("max_stack must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// LoadItems loads every consumable definition in dir.
func LoadItems(dir string) ([]*ItemDef, error) {
	return loadDefs[ItemDef](dir, "item")
}
