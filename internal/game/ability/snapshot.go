package ability

import "fmt"

// Snapshot is the persisted progress of one Ability.
type Snapshot struct {
	ID         string `json:"id" yaml:"id"`
	Level      int    `json:"level" yaml:"level"`
	Experience int    `json:"experience" yaml:"experience"`
	Cooldown   int    `json:"cooldown" yaml:"cooldown"`
}

// Snapshot captures the book in learn order.
func (b *Book) Snapshot() []Snapshot {
	all := b.All()
	out := make([]Snapshot, 0, len(all))
	for _, a := range all {
		out = append(out, Snapshot{ID: a.ID(), Level: a.Level, Experience: a.Experience, Cooldown: a.Cooldown})
	}
	return out
}

// RestoreBook rebuilds a Book from snapshots.
//
// Postcondition: restored.Snapshot() equals snaps, or an error names the
// first unknown ability or out-of-range value.
func RestoreBook(reg *Registry, snaps []Snapshot) (*Book, error) {
	b, _ := NewBook()
	for _, s := range snaps {
		def, ok := reg.Get(s.ID)
		if !ok {
			return nil, fmt.Errorf("ability: restoring unknown ability %q", s.ID)
		}
		if s.Level < MinLevel || s.Level > MaxLevel || s.Experience < 0 || s.Cooldown < 0 {
			return nil, fmt.Errorf("ability: snapshot for %q out of range", s.ID)
		}
		if err := b.Add(&Ability{Def: def, Level: s.Level, Experience: s.Experience, Cooldown: s.Cooldown}); err != nil {
			return nil, err
		}
	}
	return b, nil
}
