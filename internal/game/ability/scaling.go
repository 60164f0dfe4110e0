package ability

import (
	"errors"
	"fmt"
)

// ScalingKind selects how an ability's magnitude grows with its level.
type ScalingKind string

const (
	// ScalingLinear yields Base + PerLevel × (level-1).
	ScalingLinear ScalingKind = "linear"
	// ScalingTier yields the value of the highest tier whose MinLevel <= level.
	ScalingTier ScalingKind = "tier"
)

// Tier is one step of a tier-based scaling table.
type Tier struct {
	MinLevel int `yaml:"min_level"`
	Value    int `yaml:"value"`
}

// Scaling maps an ability level to an integer magnitude. Interpretation of the
// magnitude (percentage points, percent power, hundredths of a multiplier)
// belongs to the stat or action that reads it.
type Scaling struct {
	Kind     ScalingKind `yaml:"kind"`
	Base     int         `yaml:"base"`
	PerLevel int         `yaml:"per_level"`
	Tiers    []Tier      `yaml:"tiers"`
}

// Value returns the magnitude at level.
//
// Precondition: s has passed Validate.
// Postcondition: a tier table returns 0 below its first tier.
func (s Scaling) Value(level int) int {
	switch s.Kind {
	case ScalingTier:
		v := 0
		for _, t := range s.Tiers {
			if t.MinLevel > level {
				break
			}
			v = t.Value
		}
		return v
	default:
		return s.Base + s.PerLevel*(level-1)
	}
}

// Validate checks the scaling parameters.
func (s Scaling) Validate() error {
	switch s.Kind {
	case "", ScalingLinear:
		if len(s.Tiers) > 0 {
			return errors.New("linear scaling must not declare tiers")
		}
		return nil
	case ScalingTier:
		if len(s.Tiers) == 0 {
			return errors.New("tier scaling needs at least one tier")
		}
		prev := 0
		for i, t := range s.Tiers {
			if t.MinLevel < MinLevel || t.MinLevel > MaxLevel {
				return fmt.Errorf("tier %d: min_level %d out of range [%d,%d]", i, t.MinLevel, MinLevel, MaxLevel)
			}
			if t.MinLevel <= prev {
				return fmt.Errorf("tier %d: min_level must be strictly ascending", i)
			}
			prev = t.MinLevel
		}
		return nil
	default:
		return fmt.Errorf("unknown scaling kind %q", s.Kind)
	}
}
