package inventory_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

func potionDef() *inventory.ItemDef {
	return &inventory.ItemDef{ID: "potion", Name: "Potion", Target: inventory.TargetAlly, HealDice: "2d8+4", MaxStack: 5}
}

func TestItemDef_Validate_Valid(t *testing.T) {
	if err := potionDef().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestItemDef_Validate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(d *inventory.ItemDef)
		want   string
	}{
		{"bad target", func(d *inventory.ItemDef) { d.Target = "room" }, "target must be"},
		{"bad dice", func(d *inventory.ItemDef) { d.HealDice = "2x8" }, "heal_dice"},
		{"no use", func(d *inventory.ItemDef) { d.HealDice = "" }, "item has no use"},
		{"friendly bomb", func(d *inventory.ItemDef) { d.Damage = &inventory.DamageRange{Min: 5, Max: 10} }, "must target an enemy"},
		{"empty effect", func(d *inventory.ItemDef) { d.Effect = &inventory.ItemEffect{} }, "effect.id"},
		{"negative mp", func(d *inventory.ItemDef) { d.RestoreMP = -3 }, "restore_mp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := potionDef()
			tc.mutate(d)
			err := d.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestItemDef_StackLimitDefault(t *testing.T) {
	d := potionDef()
	d.MaxStack = 0
	if got := d.StackLimit(); got != inventory.DefaultMaxStack {
		t.Fatalf("expected default stack limit, got %d", got)
	}
}

func TestLoadItems_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := `id: firebomb
name: Firebomb
target: enemy
damage: {min: 12, max: 18}
effect:
  id: burning
  duration: 2
`
	if err := os.WriteFile(filepath.Join(dir, "firebomb.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	items, err := inventory.LoadItems(dir)
	if err != nil {
		t.Fatalf("LoadItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if !it.Offensive() || it.Damage.Max != 18 || it.Effect.ID != "burning" {
		t.Fatalf("unexpected item: %+v", it)
	}
}
