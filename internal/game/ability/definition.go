// Package ability models leveled combat abilities. Active abilities carry a
// cooldown and MP cost and resolve as an action; passive abilities expose a
// level-scaled bonus that the action resolver folds into its calculations.
package ability

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Type distinguishes activatable abilities from always-on ones.
type Type string

const (
	TypeActive  Type = "active"
	TypePassive Type = "passive"
)

// Stat names the quantity a passive ability contributes to.
type Stat string

const (
	StatAccuracy               Stat = "accuracy"                 // percentage points
	StatCritChance             Stat = "crit_chance"              // percentage points, may be negative
	StatCritMultiplier         Stat = "crit_multiplier"          // hundredths added to the crit multiplier
	StatDamagePercent          Stat = "damage_percent"           // outgoing damage percent
	StatDamageReduction        Stat = "damage_reduction"         // flat incoming reduction
	StatDamageReductionPercent Stat = "damage_reduction_percent" // incoming damage percent
	StatEvasion                Stat = "evasion"                  // percentage points
)

func (s Stat) valid() bool {
	switch s {
	case StatAccuracy, StatCritChance, StatCritMultiplier, StatDamagePercent,
		StatDamageReduction, StatDamageReductionPercent, StatEvasion:
		return true
	}
	return false
}

// Action is what an active ability does to its target.
type Action string

const (
	ActionDamage  Action = "damage"
	ActionHeal    Action = "heal"
	ActionApply   Action = "apply"
	ActionCleanse Action = "cleanse"
)

// Targeting restricts who an active ability may be aimed at.
type Targeting string

const (
	TargetEnemy Targeting = "enemy"
	TargetAlly  Targeting = "ally"
	TargetSelf  Targeting = "self"
)

// Range is an inclusive magnitude range.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// EffectRef applies an effect on a successful use.
type EffectRef struct {
	ID       string  `yaml:"id"`
	Chance   float64 `yaml:"chance"`   // 0 = always
	Duration int     `yaml:"duration"` // 0 = effect default
	Stacks   int     `yaml:"stacks"`
}

// Def is the static definition of an ability.
type Def struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Type        Type       `yaml:"type"`
	Scaling     Scaling    `yaml:"scaling"`
	Stat        Stat       `yaml:"stat"`       // passive only
	PartyWide   bool       `yaml:"party_wide"` // passive accuracy only
	Action      Action     `yaml:"action"`     // active only
	Target      Targeting  `yaml:"target"`
	Cooldown    int        `yaml:"cooldown"`
	MPCost      int        `yaml:"mp_cost"`
	Accuracy    int        `yaml:"accuracy"` // bonus percentage points on the hit roll
	Range       *Range     `yaml:"range"`    // nil = use the weapon
	ApplyEffect *EffectRef `yaml:"apply_effect"`
}

// Targeting returns the declared target class, defaulting by action.
func (d *Def) Targeting() Targeting {
	if d.Target != "" {
		return d.Target
	}
	switch d.Action {
	case ActionHeal, ActionCleanse:
		return TargetAlly
	default:
		return TargetEnemy
	}
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil iff the definition is internally consistent.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if err := d.Scaling.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch d.Type {
	case TypePassive:
		if !d.Stat.valid() {
			errs = append(errs, fmt.Errorf("passive stat %q is not recognised", d.Stat))
		}
		if d.PartyWide && d.Stat != StatAccuracy {
			errs = append(errs, errors.New("party_wide is only supported for accuracy"))
		}
		if d.Action != "" || d.Cooldown != 0 || d.MPCost != 0 {
			errs = append(errs, errors.New("passive abilities take no action, cooldown or mp_cost"))
		}
	case TypeActive:
		switch d.Action {
		case ActionDamage, ActionHeal, ActionCleanse:
		case ActionApply:
			if d.ApplyEffect == nil {
				errs = append(errs, errors.New("apply action needs apply_effect"))
			}
		default:
			errs = append(errs, fmt.Errorf("action %q is not recognised", d.Action))
		}
		if d.Action == ActionHeal && d.Range == nil {
			errs = append(errs, errors.New("heal action needs a range"))
		}
		switch d.Target {
		case "", TargetEnemy, TargetAlly, TargetSelf:
		default:
			errs = append(errs, fmt.Errorf("target %q is not recognised", d.Target))
		}
		if d.Cooldown < 0 {
			errs = append(errs, fmt.Errorf("cooldown must be >= 0, got %d", d.Cooldown))
		}
		if d.MPCost < 0 {
			errs = append(errs, fmt.Errorf("mp_cost must be >= 0, got %d", d.MPCost))
		}
		if d.Stat != "" {
			errs = append(errs, errors.New("active abilities do not declare a stat"))
		}
	default:
		errs = append(errs, fmt.Errorf("type must be active or passive, got %q", d.Type))
	}
	if d.Range != nil && (d.Range.Min < 0 || d.Range.Min > d.Range.Max) {
		errs = append(errs, fmt.Errorf("range [%d,%d] is invalid", d.Range.Min, d.Range.Max))
	}
	if ref := d.ApplyEffect; ref != nil {
		if ref.ID == "" {
			errs = append(errs, errors.New("apply_effect.id must not be empty"))
		}
		if ref.Chance < 0 || ref.Chance > 1 {
			errs = append(errs, fmt.Errorf("apply_effect.chance must be in [0,1], got %v", ref.Chance))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("ability %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// Registry holds every known ability Def.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register validates def and adds it, rejecting duplicate IDs.
func (r *Registry) Register(def *Def) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, ok := r.defs[def.ID]; ok {
		return fmt.Errorf("ability %q already registered", def.ID)
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

// LoadDirectory parses every .yaml file in dir as an ability Def.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Registry or the first error encountered.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
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
