package inventory

import (
	"fmt"
	"sort"
)

// Registry holds all loaded weapon, armor, and item definitions indexed by ID.
type Registry struct {
	weapons map[string]*WeaponDef
	armors  map[string]*ArmorDef
	items   map[string]*ItemDef
}

// NewRegistry returns an empty Registry.
//
// Postcondition: all internal maps are initialised.
func NewRegistry() *Registry {
	return &Registry{
		weapons: make(map[string]*WeaponDef),
		armors:  make(map[string]*ArmorDef),
		items:   make(map[string]*ItemDef),
	}
}

// Load reads weapons, armor and items from their directories into a new Registry.
//
// Postcondition: every returned definition passed Validate; IDs are unique per kind.
func Load(weaponDir, armorDir, itemDir string) (*Registry, error) {
	r := NewRegistry()
	weapons, err := LoadWeapons(weaponDir)
	if err != nil {
		return nil, err
	}
	for _, w := range weapons {
		if err := r.RegisterWeapon(w); err != nil {
			return nil, err
		}
	}
	armors, err := LoadArmors(armorDir)
	if err != nil {
		return nil, err
	}
	for _, a := range armors {
		if err := r.RegisterArmor(a); err != nil {
			return nil, err
		}
	}
	items, err := LoadItems(itemDir)
	if err != nil {
		return nil, err
	}
	for _, d := range items {
		if err := r.RegisterItem(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterWeapon adds w to the registry.
//
// Precondition:  w must not be nil.
// Postcondition: Weapon(w.ID) returns w; returns error if w.ID already registered.
func (r *Registry) RegisterWeapon(w *WeaponDef) error {
	if _, exists := r.weapons[w.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterWeapon: weapon ID %q already registered", w.ID)
	}
	r.weapons[w.ID] = w
	return nil
}

// RegisterArmor adds a to the registry.
//
// Precondition:  a must not be nil.
// Postcondition: Armor(a.ID) returns (a, true); returns error if a.ID already registered.
func (r *Registry) RegisterArmor(a *ArmorDef) error {
	if _, exists := r.armors[a.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterArmor: armor ID %q already registered", a.ID)
	}
	r.armors[a.ID] = a
	return nil
}

// RegisterItem adds d to the registry.
//
// Precondition:  d must not be nil.
// Postcondition: Item(d.ID) returns (d, true); returns error if d.ID already registered.
func (r *Registry) RegisterItem(d *ItemDef) error {
	if _, exists := r.items[d.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterItem: item ID %q already registered", d.ID)
	}
	r.items[d.ID] = d
	return nil
}

// Weapon returns the WeaponDef for the given id, or nil if not found.
func (r *Registry) Weapon(id string) *WeaponDef {
	return r.weapons[id]
}

// Armor returns the ArmorDef for the given id and whether it was found.
func (r *Registry) Armor(id string) (*ArmorDef, bool) {
	a, ok := r.armors[id]
	return a, ok
}

// Item returns the ItemDef for the given id and whether it was found.
//
// Postcondition: ok is true iff the id is registered.
func (r *Registry) Item(id string) (*ItemDef, bool) {
	d, ok := r.items[id]
	return d, ok
}

// AllItems returns all registered ItemDefs ordered by ID.
func (r *Registry) AllItems() []*ItemDef {
	out := make([]*ItemDef, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllWeapons returns all registered WeaponDefs in unspecified order.
//
// Postcondition: len(result) == number of registered weapons.
func (r *Registry) AllWeapons() []*WeaponDef {
	out := make([]*WeaponDef, 0, len(r.weapons))
	for _, w := range r.weapons {
		out = append(out, w)
	}
	return out
}
