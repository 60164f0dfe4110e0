package npc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
)

// seqSource replays scripted draws; an exhausted queue yields 0.
type seqSource struct {
	ints   []int
	floats []float64
}

func (s *seqSource) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v >= n {
		return n - 1
	}
	return v
}

func (s *seqSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func testRegistries(t testing.TB) combat.Registries {
	t.Helper()
	effects := effect.NewRegistry()
	require.NoError(t, effects.Register(&effect.Def{ID: "silence", Name: "Silence", Kind: effect.KindDebuff, Duration: 2, RestrictActions: []string{"ability"}}))

	items := inventory.NewRegistry()
	require.NoError(t, items.RegisterWeapon(&inventory.WeaponDef{ID: "club", Name: "Club", DamageMin: 3, DamageMax: 6}))
	require.NoError(t, items.RegisterArmor(&inventory.ArmorDef{ID: "hide", Name: "Hide", Defense: 1}))
	require.NoError(t, items.RegisterArmor(&inventory.ArmorDef{ID: "plate", Name: "Plate", Defense: 5, SpeedPenalty: 4}))
	require.NoError(t, items.RegisterItem(&inventory.ItemDef{ID: "potion", Name: "Potion", Target: inventory.TargetAlly, HealDice: "2d4"}))
	require.NoError(t, items.RegisterItem(&inventory.ItemDef{ID: "bomb", Name: "Bomb", Target: inventory.TargetEnemy, Damage: &inventory.DamageRange{Min: 5, Max: 5}}))

	abilities := ability.NewRegistry()
	require.NoError(t, abilities.Register(&ability.Def{ID: "bash", Name: "Bash", Type: ability.TypeActive, Action: ability.ActionDamage,
		Scaling: ability.Scaling{Kind: ability.ScalingLinear, Base: 10}, Cooldown: 2, MPCost: 4}))
	require.NoError(t, abilities.Register(&ability.Def{ID: "mend", Name: "Mend", Type: ability.TypeActive, Action: ability.ActionHeal,
		Range: &ability.Range{Min: 4, Max: 4}}))
	require.NoError(t, abilities.Register(&ability.Def{ID: "tough", Name: "Tough", Type: ability.TypePassive, Stat: ability.StatDamageReduction,
		Scaling: ability.Scaling{Kind: ability.ScalingLinear, Base: 1}}))
	return combat.Registries{Effects: effects, Abilities: abilities, Items: items}
}

func gobbo() *npc.Template {
	return &npc.Template{
		ID:         "gobbo",
		Name:       "Gobbo",
		Kind:       combat.KindEnemy,
		Level:      3,
		MaxHP:      30,
		MaxMP:      10,
		Speed:      12,
		Accuracy:   70,
		CritChance: 5,
		Weapon:     "club",
		Armor:      "hide",
		Abilities:  []npc.AbilityRef{{ID: "bash", Level: 2}, {ID: "tough"}},
		Items:      []npc.ItemGrant{{ID: "bomb", Qty: 2}},
		Behavior: []npc.Behavior{
			{Action: combat.ActionAttack, Weight: 3},
			{Action: combat.ActionAbility, Ability: "bash", Weight: 1},
		},
	}
}

func TestLoadTemplates_ValidDir(t *testing.T) {
	dir := t.TempDir()
	yaml := `id: warlord
name: Warlord
description: A scarred goblin chief.
kind: boss
level: 5
max_hp: 120
max_mp: 20
speed: 9
accuracy: 80
crit_chance: 10
weapon: club
armor: hide
abilities:
  - id: bash
    level: 3
items:
  - id: potion
    qty: 2
enrage:
  round: 4
  percent: 50
behavior:
  - action: attack
    weight: 2
  - action: ability
    ability: bash
    weight: 1
script: warlord_decide
loot:
  currency:
    min: 10
    max: 30
  one_of:
    - item: potion
      weight: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warlord.yaml"), []byte(yaml), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644))

	templates, err := npc.LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)

	tmpl := templates[0]
	assert.Equal(t, "warlord", tmpl.ID)
	assert.Equal(t, combat.KindBoss, tmpl.Kind)
	assert.Equal(t, 120, tmpl.MaxHP)
	assert.Equal(t, 20, tmpl.MaxMP)
	assert.Equal(t, []npc.AbilityRef{{ID: "bash", Level: 3}}, tmpl.Abilities)
	assert.Equal(t, []npc.ItemGrant{{ID: "potion", Qty: 2}}, tmpl.Items)
	assert.Equal(t, combat.Enrage{Round: 4, Percent: 50}, tmpl.Enrage)
	require.Len(t, tmpl.Behavior, 2)
	assert.Equal(t, combat.ActionAbility, tmpl.Behavior[1].Action)
	assert.Equal(t, "warlord_decide", tmpl.Script)
	require.NotNil(t, tmpl.Loot)
	assert.Equal(t, []string{"potion"}, tmpl.Loot.ItemIDs())
}

func TestLoadTemplates_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	templates, err := npc.LoadTemplates(dir)
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestLoadTemplates_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":::invalid"), 0644))
	_, err := npc.LoadTemplates(dir)
	assert.Error(t, err)
}

func TestLoadTemplates_MissingDir(t *testing.T) {
	_, err := npc.LoadTemplates(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestTemplate_Property_IDAndNameNonEmpty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.StringMatching(`[a-z][a-z_]{0,15}`).Draw(rt, "id")
		name := rapid.StringMatching(`[A-Z][a-z]{0,15}`).Draw(rt, "name")
		hp := rapid.IntRange(1, 1000).Draw(rt, "hp")
		tmpl := &npc.Template{ID: id, Name: name, Kind: combat.KindEnemy, Level: 1, MaxHP: hp}
		require.NoError(rt, tmpl.Validate())
		tmpl.ID = ""
		assert.Error(rt, tmpl.Validate())
	})
}

func TestRegistry(t *testing.T) {
	reg := npc.NewRegistry()
	b := gobbo()
	a := gobbo()
	a.ID = "archer"
	require.NoError(t, reg.Register(b))
	require.NoError(t, reg.Register(a))
	assert.Error(t, reg.Register(gobbo()))

	got, ok := reg.Get("gobbo")
	require.True(t, ok)
	assert.Same(t, b, got)
	_, ok = reg.Get("missing")
	assert.False(t, ok)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "archer", all[0].ID)
	assert.Equal(t, "gobbo", all[1].ID)
}

func TestSpawn_BuildsFullHealthCombatant(t *testing.T) {
	reg := testRegistries(t)
	c, err := npc.Spawn(gobbo(), reg)
	require.NoError(t, err)

	assert.NotEmpty(t, c.UID)
	assert.Equal(t, "gobbo", c.TemplateID)
	assert.Equal(t, "Gobbo", c.Name)
	assert.Equal(t, combat.KindEnemy, c.Kind)
	assert.Equal(t, 30, c.CurrentHP)
	assert.Equal(t, 30, c.MaxHP)
	assert.Equal(t, 10, c.CurrentMP)
	assert.Equal(t, 12, c.Speed)
	assert.Equal(t, 70, c.Accuracy)
	assert.Equal(t, 5, c.CritChance)
	require.NotNil(t, c.Weapon)
	assert.Equal(t, "club", c.Weapon.ID)
	require.NotNil(t, c.Armor)
	assert.Equal(t, "hide", c.Armor.ID)

	bash, ok := c.Abilities.Get("bash")
	require.True(t, ok)
	assert.Equal(t, 2, bash.Level)
	tough, ok := c.Abilities.Get("tough")
	require.True(t, ok)
	assert.Equal(t, ability.MinLevel, tough.Level)
	assert.Equal(t, 1, c.Passive(ability.StatDamageReduction))
	assert.Equal(t, 2, c.Items.Count("bomb"))
	assert.Empty(t, c.Effects().All())
}

func TestSpawn_FreshUIDs(t *testing.T) {
	reg := testRegistries(t)
	a, err := npc.Spawn(gobbo(), reg)
	require.NoError(t, err)
	b, err := npc.Spawn(gobbo(), reg)
	require.NoError(t, err)
	assert.NotEqual(t, a.UID, b.UID)
}

func TestSpawn_UnresolvedReferences(t *testing.T) {
	reg := testRegistries(t)
	cases := map[string]func(*npc.Template){
		"weapon":  func(t *npc.Template) { t.Weapon = "axe" },
		"armor":   func(t *npc.Template) { t.Armor = "mithril" },
		"ability": func(t *npc.Template) { t.Abilities = append(t.Abilities, npc.AbilityRef{ID: "fireball"}) },
		"item":    func(t *npc.Template) { t.Items = []npc.ItemGrant{{ID: "elixir", Qty: 1}} },
		"stack":   func(t *npc.Template) { t.Items = []npc.ItemGrant{{ID: "bomb", Qty: inventory.DefaultMaxStack + 1}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tmpl := gobbo()
			mutate(tmpl)
			_, err := npc.Spawn(tmpl, reg)
			assert.Error(t, err)
		})
	}
}

func TestSpawn_Unarmed(t *testing.T) {
	tmpl := gobbo()
	tmpl.Weapon, tmpl.Armor = "", ""
	c, err := npc.Spawn(tmpl, testRegistries(t))
	require.NoError(t, err)
	assert.Nil(t, c.Weapon)
	assert.Nil(t, c.Armor)
}

func TestSpawn_ArmorSlowsWearer(t *testing.T) {
	tmpl := gobbo()
	tmpl.Armor = "plate"
	c, err := npc.Spawn(tmpl, testRegistries(t))
	require.NoError(t, err)
	assert.Equal(t, 8, c.Speed)

	tmpl.Speed = 2
	c, err = npc.Spawn(tmpl, testRegistries(t))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Speed)
}
