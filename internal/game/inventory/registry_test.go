package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

func TestRegistry_RegisterWeapon_Lookup(t *testing.T) {
	r := inventory.NewRegistry()
	def := swordDef()
	if err := r.RegisterWeapon(def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := r.Weapon(def.ID)
	if got == nil || got.ID != def.ID {
		t.Fatalf("expected %q, got %+v", def.ID, got)
	}
	if r.Weapon("does-not-exist") != nil {
		t.Fatal("expected nil for unknown weapon")
	}
}

func TestRegistry_CollisionErrors(t *testing.T) {
	r := inventory.NewRegistry()
	if err := r.RegisterWeapon(swordDef()); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterWeapon(swordDef()); err == nil {
		t.Fatal("expected weapon collision error")
	}
	a := &inventory.ArmorDef{ID: "leather", Name: "Leather"}
	if err := r.RegisterArmor(a); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterArmor(a); err == nil {
		t.Fatal("expected armor collision error")
	}
	if err := r.RegisterItem(potionDef()); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterItem(potionDef()); err == nil {
		t.Fatal("expected item collision error")
	}
}

func TestLoad_AllKinds(t *testing.T) {
	root := t.TempDir()
	write := func(sub, name, body string) string {
		dir := filepath.Join(root, sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return dir
	}
	wd := write("weapons", "club.yaml", "id: club\nname: Club\ndamage_min: 3\ndamage_max: 6\n")
	ad := write("armor", "hide.yaml", "id: hide\nname: Hide\ndefense: 1\n")
	id := write("items", "tonic.yaml", "id: tonic\nname: Tonic\ntarget: self\nrestore_mp: 10\n")

	r, err := inventory.Load(wd, ad, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Weapon("club") == nil {
		t.Fatal("club not loaded")
	}
	if _, ok := r.Armor("hide"); !ok {
		t.Fatal("hide not loaded")
	}
	if _, ok := r.Item("tonic"); !ok {
		t.Fatal("tonic not loaded")
	}
	if len(r.AllWeapons()) != 1 || len(r.AllItems()) != 1 {
		t.Fatal("unexpected registry sizes")
	}
}
