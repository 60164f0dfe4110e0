package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

func snapshotRegistry(t require.TestingT) *effect.Registry {
	reg := effect.NewRegistry()
	for _, d := range []*effect.Def{poison(), bleed(), regen(), rally(), stun(), weaken()} {
		require.NoError(t, reg.Register(d))
	}
	return reg
}

func TestRestore_UnknownEffect(t *testing.T) {
	_, err := effect.Restore(snapshotRegistry(t), []effect.Snapshot{{ID: "ghost", Remaining: 1, Stacks: 1}})
	assert.ErrorContains(t, err, "unknown effect")
}

func TestRestore_Duplicate(t *testing.T) {
	snaps := []effect.Snapshot{{ID: "bleed", Remaining: 1, Stacks: 1}, {ID: "bleed", Remaining: 2, Stacks: 1}}
	_, err := effect.Restore(snapshotRegistry(t), snaps)
	assert.ErrorContains(t, err, "duplicate")
}

func TestRestore_ZeroStacks(t *testing.T) {
	_, err := effect.Restore(snapshotRegistry(t), []effect.Snapshot{{ID: "bleed", Remaining: 1}})
	assert.Error(t, err)
}

func TestProperty_SnapshotRestore_RoundTrip(t *testing.T) {
	ids := []string{"poison", "bleed", "regen", "rally", "stun", "weaken"}
	rapid.Check(t, func(rt *rapid.T) {
		reg := snapshotRegistry(rt)
		eng := effect.NewEngine(nil)
		tgt := newTarget(100)
		n := rapid.IntRange(0, 12).Draw(rt, "applications")
		for i := 0; i < n; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, "id")
			def, _ := reg.Get(id)
			_, err := eng.AddEffect(tgt, def, effect.Options{Duration: rapid.IntRange(1, 6).Draw(rt, "duration")})
			require.NoError(rt, err)
		}
		snaps := tgt.set.Snapshot()
		restored, err := effect.Restore(reg, snaps)
		require.NoError(rt, err)
		assert.Equal(rt, snaps, restored.Snapshot())
		assert.Equal(rt, tgt.set.Len(), restored.Len())
	})
}
