// Package inventory provides definitions and loaders for weapons, armor and
// consumable items, and the per-combatant Pouch that counts carried items.
package inventory

import (
	"errors"
	"fmt"
)

// OnHit describes an effect a weapon may inflict on a successful, unevaded hit.
type OnHit struct {
	Effect   string  `yaml:"effect"`
	Chance   float64 `yaml:"chance"`   // 0 = always
	Duration int     `yaml:"duration"` // 0 = effect default
}

// WeaponDef defines the static properties of a weapon loaded from YAML.
type WeaponDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	DamageMin   int    `yaml:"damage_min"`
	DamageMax   int    `yaml:"damage_max"`
	Accuracy    int    `yaml:"accuracy"`    // percentage points added to the wielder's hit roll
	CritChance  int    `yaml:"crit_chance"` // percentage points added to the wielder's crit roll
	OnHit       *OnHit `yaml:"on_hit"`
}

// Validate checks that the WeaponDef satisfies its invariants.
// Precondition: w is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if w.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if w.DamageMin < 0 {
		errs = append(errs, errors.New("damage_min must be >= 0"))
	}
	if w.DamageMax < w.DamageMin {
		errs = append(errs, fmt.Errorf("damage_max %d must be >= damage_min %d", w.DamageMax, w.DamageMin))
	}
	if w.OnHit != nil {
		if w.OnHit.Effect == "" {
			errs = append(errs, errors.New("on_hit.effect must not be empty"))
		}
		if w.OnHit.Chance < 0 || w.OnHit.Chance > 1 {
			errs = append(errs, fmt.Errorf("on_hit.chance must be in [0,1], got %v", w.OnHit.Chance))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// LoadWeapons loads every weapon definition in dir.
func LoadWeapons(dir string) ([]*WeaponDef, error) {
	return loadDefs[WeaponDef](dir, "weapon")
}
