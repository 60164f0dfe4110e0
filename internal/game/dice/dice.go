// Package dice is the randomness provider for the combat core. Every random
// number the engine consumes is drawn through a Provider so that a fixed seed
// reproduces an entire battle and the underlying algorithm can be swapped by
// name without touching callers.
package dice

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a range draw is requested with min > max,
	// or a sample asks for more elements than exist.
	ErrInvalidRange = errors.New("dice: invalid range")
	// ErrInvalidDistribution is returned by weighted selection over an empty,
	// negative, or all-zero weight set.
	ErrInvalidDistribution = errors.New("dice: invalid distribution")
	// ErrUnknownAlgorithm is returned when an algorithm name is not registered.
	ErrUnknownAlgorithm = errors.New("dice: unknown algorithm")
)

// Source is a pluggable pseudo-random algorithm.
//
// Implementations need not be safe for concurrent use; Provider serialises
// access.
type Source interface {
	// Intn returns a uniformly distributed int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a uniformly distributed float64 in [0, 1).
	Float64() float64
}

// RollResult holds the audit trail for one dice-expression evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // original expression string, e.g. "2d6+3"
	Dice       []int  // kept die results before modifier
	Modifier   int
}

// Total returns the sum of all kept dice plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "2d6+3 → [4 5] +3 = 12".
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}
