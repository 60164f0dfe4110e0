// Package effect implements timed combat effects: buffs, debuffs,
// damage-over-time, heal-over-time and crowd-control. Definitions are data
// loaded from YAML; an Engine applies, processes, ticks and cleanses the live
// instances each combatant carries.
package effect

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is both the behaviour variant of an effect and the category tag used
// for bulk removal.
type Kind string

const (
	KindBuff   Kind = "buff"
	KindDebuff Kind = "debuff"
	KindDoT    Kind = "dot"
	KindHoT    Kind = "hot"
	KindCC     Kind = "cc"
)

// Permanent marks an effect that is never ticked down.
const Permanent = -1

// Negative reports whether effects of this kind are removed by a cleanse.
func (k Kind) Negative() bool {
	return k == KindDebuff || k == KindDoT || k == KindCC
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBuff, KindDebuff, KindDoT, KindHoT, KindCC:
		return true
	}
	return false
}

// Modifiers are the passive stat adjustments an effect contributes while
// active. Every value is multiplied by the instance's stack count.
type Modifiers struct {
	Accuracy         int `yaml:"accuracy"`          // percentage points
	CritChance       int `yaml:"crit_chance"`       // percentage points
	DamagePercent    int `yaml:"damage_percent"`    // outgoing damage
	Defense          int `yaml:"defense"`           // flat incoming reduction
	ReductionPercent int `yaml:"reduction_percent"` // incoming damage
	Evasion          int `yaml:"evasion"`           // percentage points
	Speed            int `yaml:"speed"`
}

// Scripts names the Lua globals invoked at each lifecycle point. Empty names
// are skipped.
type Scripts struct {
	OnApply  string `yaml:"on_apply"`
	OnTick   string `yaml:"on_tick"`
	OnExpire string `yaml:"on_expire"`
}

// Def is the static definition of an effect type.
type Def struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	Description     string    `yaml:"description"`
	Kind            Kind      `yaml:"kind"`
	Potency         int       `yaml:"potency"`
	Duration        int       `yaml:"duration"` // rounds; -1 = permanent
	Stacking        bool      `yaml:"stacking"`
	MaxStacks       int       `yaml:"max_stacks"` // 0 = uncapped
	SkipTurn        bool      `yaml:"skip_turn"`
	RestrictActions []string  `yaml:"restrict_actions"`
	Modifiers       Modifiers `yaml:"modifiers"`
	Scripts         Scripts   `yaml:"scripts"`
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil iff the definition is usable by the Engine.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !d.Kind.Valid() {
		errs = append(errs, fmt.Errorf("kind must be one of buff, debuff, dot, hot, cc; got %q", d.Kind))
	}
	if d.Duration == 0 || d.Duration < Permanent {
		errs = append(errs, fmt.Errorf("duration must be >= 1 or -1, got %d", d.Duration))
	}
	if d.Potency < 0 {
		errs = append(errs, fmt.Errorf("potency must be >= 0, got %d", d.Potency))
	}
	if d.MaxStacks < 0 {
		errs = append(errs, fmt.Errorf("max_stacks must be >= 0, got %d", d.MaxStacks))
	}
	if !d.Stacking && d.MaxStacks > 0 {
		errs = append(errs, errors.New("max_stacks requires stacking: true"))
	}
	if (d.Kind == KindDoT || d.Kind == KindHoT) && d.Potency == 0 {
		errs = append(errs, fmt.Errorf("%s effects need a potency", d.Kind))
	}
	if len(errs) > 0 {
		return fmt.Errorf("effect %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// Registry holds every known Def keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates def and adds it.
//
// Postcondition: Get(def.ID) returns def, or an error for an invalid or
// duplicate definition.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.defs[def.ID]; exists {
		return fmt.Errorf("effect %q already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the Def for id.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every Def ordered by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir as one Def each.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Registry, or the first parse/validation error.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), ".yaml") || strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&def); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
