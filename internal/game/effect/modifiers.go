package effect

// sum adds pick(mods) × stacks over every active effect in s.
func sum(s *Set, pick func(Modifiers) int) int {
	total := 0
	for _, a := range s.All() {
		total += pick(a.Def.Modifiers) * a.Stacks
	}
	return total
}

// AccuracyBonus returns the net accuracy adjustment in percentage points.
// Blinding crowd-control contributes negative values.
func AccuracyBonus(s *Set) int {
	return sum(s, func(m Modifiers) int { return m.Accuracy })
}

// CritChanceBonus returns the net critical-chance adjustment in percentage points.
func CritChanceBonus(s *Set) int {
	return sum(s, func(m Modifiers) int { return m.CritChance })
}

// DamagePercent returns the net outgoing damage percentage from buffs and debuffs.
func DamagePercent(s *Set) int {
	return sum(s, func(m Modifiers) int { return m.DamagePercent })
}

// DefenseBonus returns the net flat incoming-damage reduction.
func DefenseBonus(s *Set) int {
	return sum(s, func(m Modifiers) int { return m.Defense })
}

// ReductionPercent returns the net percentage incoming-damage reduction.
func ReductionPercent(s *Set) int {
	return sum(s, func(m Modifiers) int { return m.ReductionPercent })
}

// EvasionBonus returns the net evasion adjustment in percentage points.
func EvasionBonus(s *Set) int {
	return sum(s, func(m Modifiers) int { return m.Evasion })
}

// SpeedBonus returns the net speed adjustment fed into turn ordering.
func SpeedBonus(s *Set) int {
	return sum(s, func(m Modifiers) int { return m.Speed })
}

// SkipsTurn reports whether any active effect prevents its owner from acting.
func SkipsTurn(s *Set) bool {
	for _, a := range s.All() {
		if a.Def.SkipTurn {
			return true
		}
	}
	return false
}

// IsActionRestricted reports whether action is blocked by any active effect.
func IsActionRestricted(s *Set, action string) bool {
	for _, a := range s.All() {
		for _, r := range a.Def.RestrictActions {
			if r == action {
				return true
			}
		}
	}
	return false
}
