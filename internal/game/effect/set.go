package effect

// Active is one live effect instance on a combatant.
type Active struct {
	Def       *Def
	Potency   int
	Stacks    int
	Remaining int // rounds left; Permanent = never ticks
	SourceID  string
}

// Magnitude is the per-round amount a DoT or HoT instance applies.
func (a *Active) Magnitude() int {
	return a.Potency * a.Stacks
}

// Set holds the effects applied to one combatant in insertion order.
// It is not safe for concurrent use; the caller must serialise access.
//
// Invariant: at most one Active per Def.ID.
type Set struct {
	order []*Active
	byID  map[string]*Active
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{byID: make(map[string]*Active)}
}

// Get returns the live instance of effect id.
func (s *Set) Get(id string) (*Active, bool) {
	if s == nil {
		return nil, false
	}
	a, ok := s.byID[id]
	return a, ok
}

// Has reports whether effect id is active.
func (s *Set) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Stacks returns the stack count of effect id, or 0 if absent.
func (s *Set) Stacks(id string) int {
	if a, ok := s.Get(id); ok {
		return a.Stacks
	}
	return 0
}

// Len returns the number of live effects.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// All returns the live effects oldest first. The slice is a copy; the
// pointed-to instances are shared and must not be mutated by callers.
func (s *Set) All() []*Active {
	if s == nil {
		return nil
	}
	out := make([]*Active, len(s.order))
	copy(out, s.order)
	return out
}

// insert appends a new instance.
//
// Precondition: no instance with a.Def.ID is present.
func (s *Set) insert(a *Active) {
	s.order = append(s.order, a)
	s.byID[a.Def.ID] = a
}

// remove deletes effect id while preserving the order of the rest.
func (s *Set) remove(id string) (*Active, bool) {
	a, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	delete(s.byID, id)
	for i, x := range s.order {
		if x == a {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return a, true
}
