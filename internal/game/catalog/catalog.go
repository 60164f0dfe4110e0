// Package catalog loads every content registry the arena needs and checks
// that definitions only reference content that exists.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
)

// Catalog holds the read-only content registries.
type Catalog struct {
	Effects   *effect.Registry
	Abilities *ability.Registry
	Items     *inventory.Registry
	NPCs      *npc.Registry
}

// Load reads every content directory named by cfg and cross-validates the result.
//
// Precondition: every directory in cfg except Scripts must be readable.
// Postcondition: Returns a Catalog whose references all resolve, or an error
// listing every dangling reference.
func Load(cfg config.ContentConfig, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	effects, err := effect.LoadDirectory(cfg.Effects)
	if err != nil {
		return nil, fmt.Errorf("loading effects: %w", err)
	}
	abilities, err := ability.LoadDirectory(cfg.Abilities)
	if err != nil {
		return nil, fmt.Errorf("loading abilities: %w", err)
	}
	items, err := inventory.Load(cfg.Weapons, cfg.Armor, cfg.Items)
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}
	templates, err := npc.LoadTemplates(cfg.NPCs)
	if err != nil {
		return nil, fmt.Errorf("loading npcs: %w", err)
	}
	npcs := npc.NewRegistry()
	for _, t := range templates {
		if err := npcs.Register(t); err != nil {
			return nil, err
		}
	}

	c := &Catalog{Effects: effects, Abilities: abilities, Items: items, NPCs: npcs}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger.Info("content loaded",
		zap.Int("effects", len(effects.All())),
		zap.Int("abilities", len(abilities.All())),
		zap.Int("weapons", len(items.AllWeapons())),
		zap.Int("items", len(items.AllItems())),
		zap.Int("npcs", len(templates)),
	)
	return c, nil
}

// Registries returns the subset of the catalog combat needs to rebuild combatants.
func (c *Catalog) Registries() combat.Registries {
	return combat.Registries{Effects: c.Effects, Abilities: c.Abilities, Items: c.Items}
}

// Validate checks every cross-registry reference.
//
// Postcondition: Returns nil iff every effect, ability, weapon, armor and
// item ID named anywhere in the catalog is registered.
func (c *Catalog) Validate() error {
	var errs []error
	hasEffect := func(owner, id string) {
		if _, ok := c.Effects.Get(id); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown effect %q", owner, id))
		}
	}
	hasItem := func(owner, id string) {
		if _, ok := c.Items.Item(id); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown item %q", owner, id))
		}
	}

	for _, w := range c.Items.AllWeapons() {
		if w.OnHit != nil {
			hasEffect("weapon "+w.ID, w.OnHit.Effect)
		}
	}
	for _, d := range c.Items.AllItems() {
		if d.Effect != nil {
			hasEffect("item "+d.ID, d.Effect.ID)
		}
	}
	for _, d := range c.Abilities.All() {
		if d.ApplyEffect != nil {
			hasEffect("ability "+d.ID, d.ApplyEffect.ID)
		}
	}
	for _, t := range c.NPCs.All() {
		owner := "npc " + t.ID
		if t.Weapon != "" && c.Items.Weapon(t.Weapon) == nil {
			errs = append(errs, fmt.Errorf("%s: unknown weapon %q", owner, t.Weapon))
		}
		if t.Armor != "" {
			if _, ok := c.Items.Armor(t.Armor); !ok {
				errs = append(errs, fmt.Errorf("%s: unknown armor %q", owner, t.Armor))
			}
		}
		for _, ref := range t.Abilities {
			if _, ok := c.Abilities.Get(ref.ID); !ok {
				errs = append(errs, fmt.Errorf("%s: unknown ability %q", owner, ref.ID))
			}
		}
		for _, grant := range t.Items {
			hasItem(owner, grant.ID)
		}
		for _, b := range t.Behavior {
			if b.Action == combat.ActionItem {
				hasItem(owner, b.Item)
			}
		}
		if t.Loot != nil {
			for _, id := range t.Loot.ItemIDs() {
				hasItem(owner+" loot", id)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("catalog validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// ScriptHooks returns the sorted, de-duplicated Lua global names the content
// expects to be defined.
func (c *Catalog) ScriptHooks() []string {
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" {
			seen[name] = true
		}
	}
	for _, d := range c.Effects.All() {
		add(d.Scripts.OnApply)
		add(d.Scripts.OnTick)
		add(d.Scripts.OnExpire)
	}
	for _, t := range c.NPCs.All() {
		add(t.Script)
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
