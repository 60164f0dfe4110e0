package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse bounds. They keep Min and Max far from integer overflow.
const (
	MaxDiceCount = 100
	MaxDieSides  = 1000
	MaxModifier  = 1_000_000
)

// Expression is a parsed dice expression ready to be rolled.
type Expression struct {
	Raw         string
	Count       int
	Sides       int
	Modifier    int
	KeepHighest int // 0 keeps every die
}

// Min returns the lowest total the expression can produce.
func (e Expression) Min() int {
	kept := e.Count
	if e.KeepHighest > 0 {
		kept = e.KeepHighest
	}
	return kept + e.Modifier
}

// Max returns the highest total the expression can produce.
func (e Expression) Max() int {
	kept := e.Count
	if e.KeepHighest > 0 {
		kept = e.KeepHighest
	}
	return kept*e.Sides + e.Modifier
}

// Parse parses "d20", "2d6", "2d6+3", "4d8-2" and "4d6kh3" forms.
//
// Postcondition: on success 1 <= Count <= MaxDiceCount, 2 <= Sides <= MaxDieSides,
// |Modifier| <= MaxModifier and 0 <= KeepHighest < Count.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	countStr, rest, ok := strings.Cut(s, "d")
	if !ok {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", expr)
	}

	out := Expression{Raw: expr, Count: 1}
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil || n < 1 || n > MaxDiceCount {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q (1..%d)", expr, MaxDiceCount)
		}
		out.Count = n
	}

	// Split off the trailing modifier; the sign belongs to the modifier.
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		mod, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
		if mod > MaxModifier || mod < -MaxModifier {
			return Expression{}, fmt.Errorf("dice: modifier %d in %q exceeds %d", mod, expr, MaxModifier)
		}
		out.Modifier = mod
		rest = rest[:i]
	}

	if sidesStr, khStr, found := strings.Cut(rest, "kh"); found {
		kh, err := strconv.Atoi(khStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid kh value in %q: %w", expr, err)
		}
		if kh <= 0 || kh >= out.Count {
			return Expression{}, fmt.Errorf("dice: kh value %d must be > 0 and < count %d in %q", kh, out.Count, expr)
		}
		out.KeepHighest = kh
		rest = sidesStr
	}

	sides, err := strconv.Atoi(rest)
	if err != nil || sides < 2 || sides > MaxDieSides {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q (2..%d)", expr, MaxDieSides)
	}
	out.Sides = sides
	return out, nil
}
