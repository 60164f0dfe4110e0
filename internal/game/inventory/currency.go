package inventory

import (
	"fmt"
	"strings"
)

const (
	// CopperPerSilver is the number of base-unit copper coins in one silver.
	CopperPerSilver = 10
	// CopperPerGold is the number of copper coins in one gold (10 silver).
	CopperPerGold = 100
)

// DecomposeCoins converts a copper total into display denominations.
//
// Precondition: total >= 0.
// Postcondition: gold*100 + silver*10 + copper == total; 0 <= silver < 10; 0 <= copper < 10.
func DecomposeCoins(total int) (gold, silver, copper int) {
	gold = total / CopperPerGold
	remainder := total % CopperPerGold
	silver = remainder / CopperPerSilver
	copper = remainder % CopperPerSilver
	return gold, silver, copper
}

// FormatCoins returns a human-readable purse string for a copper total.
//
// Precondition: total >= 0.
// Postcondition: zero-valued gold and silver are omitted; copper appears
// whenever it is non-zero or the total is zero.
func FormatCoins(total int) string {
	gold, silver, copper := DecomposeCoins(total)

	var parts []string
	if gold > 0 {
		parts = append(parts, fmt.Sprintf("%d gold", gold))
	}
	if silver > 0 {
		parts = append(parts, fmt.Sprintf("%d silver", silver))
	}
	if copper > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d copper", copper))
	}
	return strings.Join(parts, ", ")
}
