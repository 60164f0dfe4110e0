package inventory

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestCurrency_Decompose_Zero(t *testing.T) {
	gold, silver, copper := DecomposeCoins(0)
	if gold != 0 || silver != 0 || copper != 0 {
		t.Fatalf("expected 0,0,0 got %d,%d,%d", gold, silver, copper)
	}
}

func TestCurrency_Decompose_ExactGold(t *testing.T) {
	gold, silver, copper := DecomposeCoins(100)
	if gold != 1 || silver != 0 || copper != 0 {
		t.Fatalf("expected 1,0,0 got %d,%d,%d", gold, silver, copper)
	}
}

func TestCurrency_Decompose_Mixed(t *testing.T) {
	gold, silver, copper := DecomposeCoins(237)
	if gold != 2 || silver != 3 || copper != 7 {
		t.Fatalf("expected 2,3,7 got %d,%d,%d", gold, silver, copper)
	}
}

func TestCurrency_FormatCoins(t *testing.T) {
	cases := map[int]string{
		0:   "0 copper",
		7:   "7 copper",
		40:  "4 silver",
		100: "1 gold",
		105: "1 gold, 5 copper",
		237: "2 gold, 3 silver, 7 copper",
	}
	for total, want := range cases {
		if got := FormatCoins(total); got != want {
			t.Fatalf("FormatCoins(%d): expected %q got %q", total, want, got)
		}
	}
}

// Property: decomposition always recombines to the original total.
func TestCurrency_Property_DecomposeRecombines(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 1_000_000).Draw(t, "total")
		gold, silver, copper := DecomposeCoins(total)
		if gold*CopperPerGold+silver*CopperPerSilver+copper != total {
			t.Fatalf("%d,%d,%d does not recombine to %d", gold, silver, copper, total)
		}
		if silver < 0 || silver >= 10 || copper < 0 || copper >= 10 {
			t.Fatalf("denominations out of range: %d,%d", silver, copper)
		}
	})
}

// Property: the formatted purse is never empty and never mentions a zero tier
// unless the total is zero.
func TestCurrency_Property_FormatOmitsZeroTiers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(1, 1_000_000).Draw(t, "total")
		got := FormatCoins(total)
		if got == "" || strings.Contains(got, " 0 ") || strings.HasPrefix(got, "0 ") {
			t.Fatalf("FormatCoins(%d) = %q", total, got)
		}
	})
}
