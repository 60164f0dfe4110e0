package inventory

import (
	"errors"
	"fmt"
)

// ArmorDef defines the static properties of an armor piece loaded from YAML.
type ArmorDef struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Defense      int    `yaml:"defense"`       // flat incoming damage reduction
	Evasion      int    `yaml:"evasion"`       // percentage points
	SpeedPenalty int    `yaml:"speed_penalty"` // subtracted from base speed at spawn
}

// Validate reports an error if the ArmorDef is missing required fields or contains illegal values.
// Precondition: def is non-nil.
// Postcondition: Returns nil iff the def is well-formed.
func (a *ArmorDef) Validate() error {
	var errs []error
	if a.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if a.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if a.Defense < 0 {
		errs = append(errs, errors.New("defense must be >= 0"))
	}
	if a.Evasion < 0 || a.Evasion > 100 {
		errs = append(errs, fmt.Errorf("evasion must be in [0,100], got %d", a.Evasion))
	}
	if a.SpeedPenalty < 0 {
		errs = append(errs, errors.New("speed_penalty must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("armor validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// LoadArmors loads every armor definition in dir.
func LoadArmors(dir string) ([]*ArmorDef, error) {
	return loadDefs[ArmorDef](dir, "armor")
}
