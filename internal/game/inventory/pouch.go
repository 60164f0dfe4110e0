package inventory

import (
	"errors"
	"fmt"
)

// ErrEmpty is returned when taking an item the pouch does not hold.
var ErrEmpty = errors.New("inventory: none left")

// Stack is one pouch entry.
type Stack struct {
	ItemID string `json:"item_id" yaml:"item_id"`
	Count  int    `json:"count" yaml:"count"`
}

// Pouch counts the consumables a combatant carries into battle, in the
// order each item was first added.
type Pouch struct {
	stacks []Stack
}

// NewPouch returns an empty Pouch.
func NewPouch() *Pouch {
	return &Pouch{}
}

// Add places quantity units of def into the pouch. It is atomic: if the
// stack limit would be exceeded, no state is modified.
//
// Precondition: quantity > 0.
// Postcondition: on success Count(def.ID) increases by quantity.
func (p *Pouch) Add(def *ItemDef, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("pouch: quantity must be > 0")
	}
	i := p.index(def.ID)
	current := 0
	if i >= 0 {
		current = p.stacks[i].Count
	}
	if current+quantity > def.StackLimit() {
		return fmt.Errorf("pouch: adding %d of %q would exceed stack limit %d", quantity, def.ID, def.StackLimit())
	}
	if i >= 0 {
		p.stacks[i].Count += quantity
		return nil
	}
	p.stacks = append(p.stacks, Stack{ItemID: def.ID, Count: quantity})
	return nil
}

// Take removes one unit of itemID.
//
// Postcondition: returns ErrEmpty and leaves the pouch unchanged if none are held.
func (p *Pouch) Take(itemID string) error {
	i := p.index(itemID)
	if i < 0 {
		return fmt.Errorf("%q: %w", itemID, ErrEmpty)
	}
	p.stacks[i].Count--
	if p.stacks[i].Count == 0 {
		p.stacks = append(p.stacks[:i], p.stacks[i+1:]...)
	}
	return nil
}

// Count returns how many units of itemID are held.
func (p *Pouch) Count(itemID string) int {
	if i := p.index(itemID); i >= 0 {
		return p.stacks[i].Count
	}
	return 0
}

// Stacks returns a copy of the pouch contents.
func (p *Pouch) Stacks() []Stack {
	if p == nil {
		return nil
	}
	out := make([]Stack, len(p.stacks))
	copy(out, p.stacks)
	return out
}

// RestorePouch rebuilds a pouch from stacks, checking each item is known.
func RestorePouch(reg *Registry, stacks []Stack) (*Pouch, error) {
	p := NewPouch()
	for _, s := range stacks {
		def, ok := reg.Item(s.ItemID)
		if !ok {
			return nil, fmt.Errorf("pouch: restoring unknown item %q", s.ItemID)
		}
		if err := p.Add(def, s.Count); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Pouch) index(itemID string) int {
	if p == nil {
		return -1
	}
	for i, s := range p.stacks {
		if s.ItemID == itemID {
			return i
		}
	}
	return -1
}
