package ability

import "fmt"

// Book is the ordered set of abilities a combatant knows.
type Book struct {
	order []*Ability
	byID  map[string]*Ability
}

// NewBook returns a Book holding abilities in the order given.
//
// Postcondition: returns an error if two abilities share an ID.
func NewBook(abilities ...*Ability) (*Book, error) {
	b := &Book{byID: make(map[string]*Ability)}
	for _, a := range abilities {
		if err := b.Add(a); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add appends a to the book.
func (b *Book) Add(a *Ability) error {
	if _, ok := b.byID[a.ID()]; ok {
		return fmt.Errorf("ability %q already known", a.ID())
	}
	b.order = append(b.order, a)
	b.byID[a.ID()] = a
	return nil
}

// Get returns the ability with id.
func (b *Book) Get(id string) (*Ability, bool) {
	if b == nil {
		return nil, false
	}
	a, ok := b.byID[id]
	return a, ok
}

// All returns every ability in learn order.
func (b *Book) All() []*Ability {
	if b == nil {
		return nil
	}
	out := make([]*Ability, len(b.order))
	copy(out, b.order)
	return out
}

// Actives returns the active abilities in learn order.
func (b *Book) Actives() []*Ability {
	var out []*Ability
	for _, a := range b.All() {
		if !a.Passive() {
			out = append(out, a)
		}
	}
	return out
}

// PassiveBonus sums the scaled value of every passive contributing to stat.
func (b *Book) PassiveBonus(stat Stat) int {
	total := 0
	for _, a := range b.All() {
		if a.Passive() && a.Def.Stat == stat {
			total += a.Value()
		}
	}
	return total
}

// PartyBonus sums only the party-wide passives contributing to stat; these
// also apply to the owner's living allies.
func (b *Book) PartyBonus(stat Stat) int {
	total := 0
	for _, a := range b.All() {
		if a.Passive() && a.Def.PartyWide && a.Def.Stat == stat {
			total += a.Value()
		}
	}
	return total
}

// TickCooldowns advances every active ability's cooldown by one round.
func (b *Book) TickCooldowns() {
	for _, a := range b.All() {
		a.TickCooldown()
	}
}
