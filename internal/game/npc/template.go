// Package npc provides combatant templates, spawning, decision making and
// loot generation for everyone the arena puts on the field.
package npc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// AbilityRef grants a known ability at a starting level.
type AbilityRef struct {
	ID    string `yaml:"id"`
	Level int    `yaml:"level"` // 0 = level 1
}

// Behavior is one weighted entry of a template's decision table.
type Behavior struct {
	Action  combat.ActionKind `yaml:"action"`
	Ability string            `yaml:"ability"` // action: ability
	Item    string            `yaml:"item"`    // action: item
	Weight  int               `yaml:"weight"`
}

// Template defines a reusable combatant archetype loaded from YAML.
type Template struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Kind        combat.Kind   `yaml:"kind"`
	Level       int           `yaml:"level"`
	MaxHP       int           `yaml:"max_hp"`
	MaxMP       int           `yaml:"max_mp"`
	Speed       int           `yaml:"speed"`
	Accuracy    int           `yaml:"accuracy"`
	CritChance  int           `yaml:"crit_chance"`
	Weapon      string        `yaml:"weapon"`
	Armor       string        `yaml:"armor"`
	Abilities   []AbilityRef  `yaml:"abilities"`
	Items       []ItemGrant   `yaml:"items"`
	Enrage      combat.Enrage `yaml:"enrage"`
	Behavior    []Behavior    `yaml:"behavior"`
	// Script names a Lua decision hook consulted before the behavior table.
	Script string     `yaml:"script"`
	Loot   *LootTable `yaml:"loot"`
}

// ItemGrant puts Qty of an item into a spawned combatant's pouch.
type ItemGrant struct {
	ID  string `yaml:"id"`
	Qty int    `yaml:"qty"`
}

// Validate checks that the template satisfies its invariants. References to
// other catalogs are resolved by Spawn and the catalog loader.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff every field is internally consistent;
// otherwise all violations are joined into one error.
func (t *Template) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if t.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !t.Kind.Valid() {
		errs = append(errs, fmt.Errorf("kind %q is not one of player, companion, enemy, boss", t.Kind))
	}
	if t.Level < 1 {
		errs = append(errs, fmt.Errorf("level must be >= 1, got %d", t.Level))
	}
	if t.MaxHP < 1 {
		errs = append(errs, fmt.Errorf("max_hp must be >= 1, got %d", t.MaxHP))
	}
	if t.MaxMP < 0 {
		errs = append(errs, fmt.Errorf("max_mp must be >= 0, got %d", t.MaxMP))
	}
	if t.Speed < 0 {
		errs = append(errs, fmt.Errorf("speed must be >= 0, got %d", t.Speed))
	}
	for i, a := range t.Abilities {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("abilities[%d]: id must not be empty", i))
		}
		if a.Level < 0 {
			errs = append(errs, fmt.Errorf("abilities[%d]: level must be >= 0, got %d", i, a.Level))
		}
	}
	for i, it := range t.Items {
		if it.ID == "" {
			errs = append(errs, fmt.Errorf("items[%d]: id must not be empty", i))
		}
		if it.Qty < 1 {
			errs = append(errs, fmt.Errorf("items[%d]: qty must be >= 1, got %d", i, it.Qty))
		}
	}
	if t.Enrage.Round < 0 {
		errs = append(errs, fmt.Errorf("enrage.round must be >= 0, got %d", t.Enrage.Round))
	}
	if t.Enrage.Round > 0 && t.Kind != combat.KindBoss {
		errs = append(errs, errors.New("enrage is only valid for bosses"))
	}
	errs = append(errs, t.validateBehavior()...)
	if t.Loot != nil {
		if err := t.Loot.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("npc template %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

func (t *Template) validateBehavior() []error {
	var errs []error
	for i, b := range t.Behavior {
		if b.Weight < 0 {
			errs = append(errs, fmt.Errorf("behavior[%d]: weight must be >= 0, got %d", i, b.Weight))
		}
		switch b.Action {
		case combat.ActionAttack, combat.ActionDefend:
		case combat.ActionFlee:
			if t.Kind.Side() != combat.SideParty {
				errs = append(errs, fmt.Errorf("behavior[%d]: only party templates may flee", i))
			}
		case combat.ActionAbility:
			if b.Ability == "" {
				errs = append(errs, fmt.Errorf("behavior[%d]: ability action needs an ability id", i))
			} else if !t.knows(b.Ability) {
				errs = append(errs, fmt.Errorf("behavior[%d]: ability %q is not granted by the template", i, b.Ability))
			}
		case combat.ActionItem:
			if b.Item == "" {
				errs = append(errs, fmt.Errorf("behavior[%d]: item action needs an item id", i))
			}
		default:
			errs = append(errs, fmt.Errorf("behavior[%d]: unknown action %q", i, b.Action))
		}
	}
	return errs
}

func (t *Template) knows(abilityID string) bool {
	for _, a := range t.Abilities {
		if a.ID == abilityID {
			return true
		}
	}
	return false
}

// LoadTemplateFromBytes parses a single template from raw YAML bytes,
// rejecting unknown keys.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir in name order and returns the
// parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// Registry indexes templates by ID.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Register adds t.
//
// Postcondition: Returns an error if a template with the same ID exists.
func (r *Registry) Register(t *Template) error {
	if _, ok := r.templates[t.ID]; ok {
		return fmt.Errorf("npc: duplicate template %q", t.ID)
	}
	r.templates[t.ID] = t
	return nil
}

// Get returns the template with id.
func (r *Registry) Get(id string) (*Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// All returns every template sorted by ID.
func (r *Registry) All() []*Template {
	out := make([]*Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
