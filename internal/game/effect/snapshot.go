package effect

import "fmt"

// Snapshot is the persisted form of one Active instance.
type Snapshot struct {
	ID        string `json:"id" yaml:"id"`
	Remaining int    `json:"remaining" yaml:"remaining"`
	Stacks    int    `json:"stacks" yaml:"stacks"`
	Potency   int    `json:"potency" yaml:"potency"`
	SourceID  string `json:"source_id,omitempty" yaml:"source_id,omitempty"`
}

// Snapshot captures s in insertion order.
func (s *Set) Snapshot() []Snapshot {
	all := s.All()
	out := make([]Snapshot, 0, len(all))
	for _, a := range all {
		out = append(out, Snapshot{
			ID:        a.Def.ID,
			Remaining: a.Remaining,
			Stacks:    a.Stacks,
			Potency:   a.Potency,
			SourceID:  a.SourceID,
		})
	}
	return out
}

// Restore rebuilds a Set from snapshots without firing any hooks.
//
// Postcondition: restored.Snapshot() equals snaps, or an error names the
// first unknown or duplicate effect type.
func Restore(reg *Registry, snaps []Snapshot) (*Set, error) {
	set := NewSet()
	for _, snap := range snaps {
		def, ok := reg.Get(snap.ID)
		if !ok {
			return nil, fmt.Errorf("effect: restoring unknown effect %q", snap.ID)
		}
		if set.Has(snap.ID) {
			return nil, fmt.Errorf("effect: duplicate effect %q in snapshot", snap.ID)
		}
		if snap.Stacks < 1 {
			return nil, fmt.Errorf("effect: %q snapshot has %d stacks", snap.ID, snap.Stacks)
		}
		set.insert(&Active{
			Def:       def,
			Potency:   snap.Potency,
			Stacks:    snap.Stacks,
			Remaining: snap.Remaining,
			SourceID:  snap.SourceID,
		})
	}
	return set, nil
}
