package ability_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
)

func fireball() *ability.Def {
	return &ability.Def{
		ID: "fireball", Name: "Fireball", Type: ability.TypeActive,
		Action: ability.ActionDamage, Cooldown: 2, MPCost: 6,
		Range:   &ability.Range{Min: 8, Max: 12},
		Scaling: ability.Scaling{Kind: ability.ScalingLinear, Base: 10, PerLevel: 2},
	}
}

func eagleEye() *ability.Def {
	return &ability.Def{
		ID: "eagle_eye", Name: "Eagle Eye", Type: ability.TypePassive,
		Stat: ability.StatAccuracy, PartyWide: true,
		Scaling: ability.Scaling{Kind: ability.ScalingLinear, Base: 5, PerLevel: 1},
	}
}

func precision() *ability.Def {
	return &ability.Def{
		ID: "precision", Name: "Precision", Type: ability.TypePassive,
		Stat: ability.StatCritChance,
		Scaling: ability.Scaling{Kind: ability.ScalingTier, Tiers: []ability.Tier{
			{MinLevel: 1, Value: -10}, {MinLevel: 10, Value: 0}, {MinLevel: 25, Value: 15},
		}},
	}
}

func TestScaling_Linear(t *testing.T) {
	s := ability.Scaling{Kind: ability.ScalingLinear, Base: 10, PerLevel: 2}
	assert.Equal(t, 10, s.Value(1))
	assert.Equal(t, 28, s.Value(10))
}

func TestScaling_DefaultKindIsLinear(t *testing.T) {
	s := ability.Scaling{Base: 3, PerLevel: 1}
	require.NoError(t, s.Validate())
	assert.Equal(t, 7, s.Value(5))
}

func TestScaling_Tier(t *testing.T) {
	s := precision().Scaling
	assert.Equal(t, -10, s.Value(1))
	assert.Equal(t, -10, s.Value(9))
	assert.Equal(t, 0, s.Value(10))
	assert.Equal(t, 15, s.Value(100))
}

func TestScaling_TierBelowFirstIsZero(t *testing.T) {
	s := ability.Scaling{Kind: ability.ScalingTier, Tiers: []ability.Tier{{MinLevel: 5, Value: 20}}}
	assert.Equal(t, 0, s.Value(4))
	assert.Equal(t, 20, s.Value(5))
}

func TestScaling_Validate(t *testing.T) {
	assert.Error(t, ability.Scaling{Kind: ability.ScalingTier}.Validate())
	assert.Error(t, ability.Scaling{Kind: "exponential"}.Validate())
	assert.Error(t, ability.Scaling{Kind: ability.ScalingTier, Tiers: []ability.Tier{
		{MinLevel: 10, Value: 1}, {MinLevel: 5, Value: 2},
	}}.Validate())
	assert.Error(t, ability.Scaling{Kind: ability.ScalingLinear, Tiers: []ability.Tier{{MinLevel: 1}}}.Validate())
}

func TestProperty_LinearScalingIsMonotonicForPositiveSlope(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.IntRange(-50, 50).Draw(rt, "base")
		per := rapid.IntRange(0, 5).Draw(rt, "per_level")
		lvl := rapid.IntRange(ability.MinLevel, ability.MaxLevel-1).Draw(rt, "level")
		s := ability.Scaling{Kind: ability.ScalingLinear, Base: base, PerLevel: per}
		assert.LessOrEqual(rt, s.Value(lvl), s.Value(lvl+1))
		assert.Equal(rt, base, s.Value(1))
	})
}

func TestNew_ClampsLevel(t *testing.T) {
	assert.Equal(t, 1, ability.New(fireball(), 0).Level)
	assert.Equal(t, 100, ability.New(fireball(), 250).Level)
	assert.Panics(t, func() { ability.New(nil, 1) })
}

func TestTrigger_StartsCooldownAndRejectsReuse(t *testing.T) {
	a := ability.New(fireball(), 1)
	require.True(t, a.Ready())
	require.NoError(t, a.Trigger())
	assert.Equal(t, 2, a.Cooldown)
	assert.False(t, a.Ready())

	err := a.Trigger()
	assert.True(t, errors.Is(err, ability.ErrOnCooldown))
	assert.Equal(t, 2, a.Cooldown, "rejected use must not touch the counter")

	a.TickCooldown()
	assert.ErrorIs(t, a.Trigger(), ability.ErrOnCooldown)
	a.TickCooldown()
	assert.NoError(t, a.Trigger())
}

func TestTickCooldown_StopsAtZero(t *testing.T) {
	a := ability.New(fireball(), 1)
	a.TickCooldown()
	assert.Equal(t, 0, a.Cooldown)
}

func TestTrigger_PassiveNotActivatable(t *testing.T) {
	a := ability.New(eagleEye(), 1)
	assert.ErrorIs(t, a.Trigger(), ability.ErrNotActivatable)
	assert.False(t, a.Ready())
}

func TestGainExperience_LevelsUp(t *testing.T) {
	a := ability.New(fireball(), 1)
	assert.Equal(t, 0, a.GainExperience(99))
	assert.Equal(t, 1, a.Level)
	assert.Equal(t, 1, a.GainExperience(1))
	assert.Equal(t, 2, a.Level)
	assert.Equal(t, 0, a.Experience)

	// 200 to reach 3, 300 to reach 4, 50 left over
	assert.Equal(t, 2, a.GainExperience(550))
	assert.Equal(t, 4, a.Level)
	assert.Equal(t, 50, a.Experience)
}

func TestGainExperience_CapsAtMax(t *testing.T) {
	a := ability.New(fireball(), 99)
	assert.Equal(t, 1, a.GainExperience(1_000_000))
	assert.Equal(t, ability.MaxLevel, a.Level)
	assert.Equal(t, 0, a.Experience)
	assert.Equal(t, 0, a.GainExperience(500))
}

func TestProperty_GainExperience_StaysInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := ability.New(fireball(), rapid.IntRange(1, 100).Draw(rt, "level"))
		for _, xp := range rapid.SliceOf(rapid.IntRange(-10, 5000)).Draw(rt, "gains") {
			a.GainExperience(xp)
			assert.GreaterOrEqual(rt, a.Level, ability.MinLevel)
			assert.LessOrEqual(rt, a.Level, ability.MaxLevel)
			assert.GreaterOrEqual(rt, a.Experience, 0)
			if a.Level < ability.MaxLevel {
				assert.Less(rt, a.Experience, ability.XPToNext(a.Level))
			}
		}
	})
}

func TestBook_PassiveAndPartyBonus(t *testing.T) {
	solo := &ability.Def{
		ID: "steady_aim", Name: "Steady Aim", Type: ability.TypePassive,
		Stat: ability.StatAccuracy, Scaling: ability.Scaling{Base: 3},
	}
	b, err := ability.NewBook(
		ability.New(fireball(), 1),
		ability.New(eagleEye(), 6),
		ability.New(solo, 1),
		ability.New(precision(), 30),
	)
	require.NoError(t, err)
	assert.Equal(t, 13, b.PassiveBonus(ability.StatAccuracy))
	assert.Equal(t, 10, b.PartyBonus(ability.StatAccuracy))
	assert.Equal(t, 15, b.PassiveBonus(ability.StatCritChance))
	assert.Equal(t, 0, b.PassiveBonus(ability.StatEvasion))
	assert.Len(t, b.Actives(), 1)
}

func TestBook_RejectsDuplicate(t *testing.T) {
	_, err := ability.NewBook(ability.New(fireball(), 1), ability.New(fireball(), 2))
	assert.Error(t, err)
}

func TestBook_NilSafe(t *testing.T) {
	var b *ability.Book
	assert.Equal(t, 0, b.PassiveBonus(ability.StatAccuracy))
	_, ok := b.Get("fireball")
	assert.False(t, ok)
}

func TestBook_TickCooldowns(t *testing.T) {
	fb := ability.New(fireball(), 1)
	b, err := ability.NewBook(fb, ability.New(eagleEye(), 1))
	require.NoError(t, err)
	require.NoError(t, fb.Trigger())
	b.TickCooldowns()
	assert.Equal(t, 1, fb.Cooldown)
}

func TestBook_SnapshotRestore(t *testing.T) {
	reg := ability.NewRegistry()
	require.NoError(t, reg.Register(fireball()))
	require.NoError(t, reg.Register(eagleEye()))
	fb := ability.New(fireball(), 7)
	fb.Experience = 42
	fb.Cooldown = 1
	b, err := ability.NewBook(fb, ability.New(eagleEye(), 3))
	require.NoError(t, err)

	snaps := b.Snapshot()
	restored, err := ability.RestoreBook(reg, snaps)
	require.NoError(t, err)
	assert.Equal(t, snaps, restored.Snapshot())

	_, err = ability.RestoreBook(reg, []ability.Snapshot{{ID: "unknown", Level: 1}})
	assert.Error(t, err)
	_, err = ability.RestoreBook(reg, []ability.Snapshot{{ID: "fireball", Level: 0}})
	assert.Error(t, err)
}
