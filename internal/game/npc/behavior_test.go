package npc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func hero() *npc.Template {
	return &npc.Template{
		ID:        "hero",
		Name:      "Hero",
		Kind:      combat.KindPlayer,
		Level:     1,
		MaxHP:     50,
		MaxMP:     10,
		Speed:     10,
		Accuracy:  80,
		Abilities: []npc.AbilityRef{{ID: "mend"}},
		Items:     []npc.ItemGrant{{ID: "potion", Qty: 1}},
		Behavior:  []npc.Behavior{{Action: combat.ActionAbility, Ability: "mend", Weight: 1}},
	}
}

type arena struct {
	rng     *dice.Provider
	reg     combat.Registries
	engine  *effect.Engine
	battle  *combat.Battle
	decider *npc.Decider
	party   []*combat.Combatant
	hostile []*combat.Combatant
}

// newArena spawns party and hostile templates, in that order, into one battle.
func newArena(t testing.TB, src dice.Source, scripts *scripting.Manager, party, hostile []*npc.Template) *arena {
	t.Helper()
	a := &arena{rng: dice.NewProvider(src, nil), reg: testRegistries(t), engine: effect.NewEngine(nil)}
	a.rng.EnableStats(true)
	var all []*combat.Combatant
	for _, tmpl := range party {
		c, err := npc.Spawn(tmpl, a.reg)
		require.NoError(t, err)
		a.party = append(a.party, c)
		all = append(all, c)
	}
	for _, tmpl := range hostile {
		c, err := npc.Spawn(tmpl, a.reg)
		require.NoError(t, err)
		a.hostile = append(a.hostile, c)
		all = append(all, c)
	}
	res := combat.NewResolver(a.rng, a.engine, a.reg.Effects, a.reg.Items, combat.DefaultRules(), nil)
	b, err := combat.NewBattle(res, combat.NewScheduler(nil), nil, all...)
	require.NoError(t, err)
	a.battle = b
	a.decider = npc.NewDecider(a.rng, a.reg.Items, scripts, zap.NewNop())
	return a
}

func TestNewDecider_PanicsOnNil(t *testing.T) {
	reg := testRegistries(t)
	assert.Panics(t, func() { npc.NewDecider(nil, reg.Items, nil, nil) })
	assert.Panics(t, func() { npc.NewDecider(seeded(t, 1), nil, nil, nil) })
}

func TestChooseAction_EmptyTableAttacksWithoutDrawing(t *testing.T) {
	tmpl := gobbo()
	tmpl.Behavior = nil
	a := newArena(t, &seqSource{}, nil, []*npc.Template{hero()}, []*npc.Template{tmpl})

	got := a.decider.ChooseAction(tmpl, a.hostile[0], a.battle)
	assert.Equal(t, combat.ActionAttack, got.Action)
	assert.Equal(t, int64(0), a.rng.Stats().Total)
}

func TestChooseAction_WeightedPick(t *testing.T) {
	// weights [3, 1]: draws 0..2 pick attack, 3 picks bash.
	for draw, want := range map[int]combat.ActionKind{0: combat.ActionAttack, 2: combat.ActionAttack, 3: combat.ActionAbility} {
		a := newArena(t, &seqSource{ints: []int{draw}}, nil, []*npc.Template{hero()}, []*npc.Template{gobbo()})
		got := a.decider.ChooseAction(gobbo(), a.hostile[0], a.battle)
		assert.Equal(t, want, got.Action, "draw %d", draw)
		assert.Equal(t, int64(1), a.rng.Stats().Weighted)
	}
}

func TestChooseAction_UnusableAbilityFallsBackToAttack(t *testing.T) {
	cases := map[string]func(*arena){
		"cooldown": func(a *arena) {
			bash, _ := a.hostile[0].Abilities.Get("bash")
			bash.Cooldown = 1
		},
		"mp": func(a *arena) { a.hostile[0].CurrentMP = 3 },
		"silenced": func(a *arena) {
			def, _ := a.reg.Effects.Get("silence")
			_, err := a.engine.AddEffect(a.hostile[0], def, effect.Options{})
			require.NoError(t, err)
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			a := newArena(t, &seqSource{ints: []int{3}}, nil, []*npc.Template{hero()}, []*npc.Template{gobbo()})
			setup(a)
			got := a.decider.ChooseAction(gobbo(), a.hostile[0], a.battle)
			assert.Equal(t, combat.ActionAttack, got.Action)
		})
	}
}

func TestChooseAction_ItemNeedsStock(t *testing.T) {
	tmpl := hero()
	tmpl.Behavior = []npc.Behavior{{Action: combat.ActionItem, Item: "potion", Weight: 1}}
	a := newArena(t, &seqSource{}, nil, []*npc.Template{tmpl}, []*npc.Template{gobbo()})

	assert.Equal(t, combat.ActionItem, a.decider.ChooseAction(tmpl, a.party[0], a.battle).Action)
	require.NoError(t, a.party[0].Items.Take("potion"))
	assert.Equal(t, combat.ActionAttack, a.decider.ChooseAction(tmpl, a.party[0], a.battle).Action)
}

func TestChooseAction_FleeBlockedByBoss(t *testing.T) {
	tmpl := hero()
	tmpl.Behavior = []npc.Behavior{{Action: combat.ActionFlee, Weight: 1}}

	a := newArena(t, &seqSource{}, nil, []*npc.Template{tmpl}, []*npc.Template{gobbo()})
	assert.Equal(t, combat.ActionFlee, a.decider.ChooseAction(tmpl, a.party[0], a.battle).Action)

	boss := gobbo()
	boss.Kind = combat.KindBoss
	a = newArena(t, &seqSource{}, nil, []*npc.Template{tmpl}, []*npc.Template{boss})
	assert.Equal(t, combat.ActionAttack, a.decider.ChooseAction(tmpl, a.party[0], a.battle).Action)
}

func TestChooseTarget(t *testing.T) {
	a := newArena(t, &seqSource{ints: []int{1}}, nil, []*npc.Template{hero(), hero()}, []*npc.Template{gobbo()})

	_, err := a.decider.ChooseTarget(nil)
	assert.ErrorIs(t, err, npc.ErrNoTarget)
	assert.Equal(t, int64(0), a.rng.Stats().Samples)

	got, err := a.decider.ChooseTarget(a.party)
	require.NoError(t, err)
	assert.Same(t, a.party[1], got)
	assert.Equal(t, int64(1), a.rng.Stats().Samples)
}

func TestDecide_AttackTargetsLivingOpponent(t *testing.T) {
	a := newArena(t, &seqSource{ints: []int{0, 1}}, nil, []*npc.Template{hero(), hero()}, []*npc.Template{gobbo()})

	req, err := a.decider.Decide(gobbo(), a.hostile[0], a.battle)
	require.NoError(t, err)
	assert.Equal(t, combat.ActionRequest{Kind: combat.ActionAttack, TargetID: a.party[1].UID}, req)
}

func TestDecide_SkipsDeadOpponents(t *testing.T) {
	a := newArena(t, &seqSource{}, nil, []*npc.Template{hero(), hero()}, []*npc.Template{gobbo()})
	a.party[0].CurrentHP = 0

	req, err := a.decider.Fallback(a.hostile[0], a.battle)
	require.NoError(t, err)
	assert.Equal(t, a.party[1].UID, req.TargetID)
}

func TestDecide_HealTargetsMostWoundedAlly(t *testing.T) {
	companion := hero()
	companion.ID, companion.Kind = "squire", combat.KindCompanion
	a := newArena(t, &seqSource{}, nil, []*npc.Template{hero(), companion}, []*npc.Template{gobbo()})
	a.party[0].CurrentHP = 40
	a.party[1].CurrentHP = 10

	req, err := a.decider.Decide(hero(), a.party[0], a.battle)
	require.NoError(t, err)
	assert.Equal(t, combat.ActionAbility, req.Kind)
	assert.Equal(t, "mend", req.AbilityID)
	assert.Equal(t, a.party[1].UID, req.TargetID)

	// The chosen request resolves cleanly.
	_, err = a.battle.ResolveAction(a.party[0], req)
	require.NoError(t, err)
	assert.Equal(t, 14, a.party[1].CurrentHP)
}

func TestDecide_OffensiveItemTargetsOpponent(t *testing.T) {
	tmpl := gobbo()
	tmpl.Behavior = []npc.Behavior{{Action: combat.ActionItem, Item: "bomb", Weight: 1}}
	a := newArena(t, &seqSource{}, nil, []*npc.Template{hero()}, []*npc.Template{tmpl})

	req, err := a.decider.Decide(tmpl, a.hostile[0], a.battle)
	require.NoError(t, err)
	assert.Equal(t, combat.ActionRequest{Kind: combat.ActionItem, ItemID: "bomb", TargetID: a.party[0].UID}, req)
}

func TestDecide_DefendNeedsNoTarget(t *testing.T) {
	tmpl := gobbo()
	tmpl.Behavior = []npc.Behavior{{Action: combat.ActionDefend, Weight: 1}}
	a := newArena(t, &seqSource{}, nil, []*npc.Template{hero()}, []*npc.Template{tmpl})

	req, err := a.decider.Decide(tmpl, a.hostile[0], a.battle)
	require.NoError(t, err)
	assert.Equal(t, combat.ActionRequest{Kind: combat.ActionDefend}, req)
}

const decideScript = `
function gobbo_decide(uid, round)
  if round == 0 then
    return { action = "defend" }
  end
  if round == 1 then
    return { action = "ability", ability = "bash" }
  end
  if round == 2 then
    return { action = "attack", target = "chosen" }
  end
  return nil
end
`

func TestDecide_ScriptHookFirst(t *testing.T) {
	mgrRNG := seeded(t, 5)
	mgr := scripting.NewManager(mgrRNG, zap.NewNop(), scripting.DefaultInstructionLimit)
	t.Cleanup(mgr.Close)
	require.NoError(t, mgr.LoadString("decide", decideScript))

	tmpl := gobbo()
	tmpl.Script = "gobbo_decide"
	a := newArena(t, &seqSource{ints: []int{1}}, mgr, []*npc.Template{hero(), hero()}, []*npc.Template{tmpl})
	g := a.hostile[0]

	a.battle.Round = 0
	req, err := a.decider.Decide(tmpl, g, a.battle)
	require.NoError(t, err)
	assert.Equal(t, combat.ActionRequest{Kind: combat.ActionDefend}, req)

	a.battle.Round = 1
	req, err = a.decider.Decide(tmpl, g, a.battle)
	require.NoError(t, err)
	assert.Equal(t, combat.ActionRequest{Kind: combat.ActionAbility, AbilityID: "bash", TargetID: a.party[1].UID}, req)

	a.battle.Round = 2
	req, err = a.decider.Decide(tmpl, g, a.battle)
	require.NoError(t, err)
	assert.Equal(t, "chosen", req.TargetID)
	assert.Equal(t, int64(0), a.rng.Stats().Weighted)

	a.battle.Round = 3
	req, err = a.decider.Decide(tmpl, g, a.battle)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.rng.Stats().Weighted, "nil answer defers to the behavior table")
	assert.NotEmpty(t, req.Kind)
}

func TestDecide_MissingHookUsesTable(t *testing.T) {
	mgr := scripting.NewManager(seeded(t, 5), zap.NewNop(), 0)
	t.Cleanup(mgr.Close)
	tmpl := gobbo()
	tmpl.Script = "not_loaded"
	a := newArena(t, &seqSource{}, mgr, []*npc.Template{hero()}, []*npc.Template{tmpl})

	req, err := a.decider.Decide(tmpl, a.hostile[0], a.battle)
	require.NoError(t, err)
	assert.Equal(t, combat.ActionAttack, req.Kind)
	assert.Equal(t, int64(1), a.rng.Stats().Weighted)
}

func TestProperty_Decide_AlwaysResolvable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		rng, err := dice.NewSeededProvider(dice.AlgorithmPCG, seed, zap.NewNop())
		require.NoError(rt, err)
		reg := testRegistries(t)
		var cs []*combat.Combatant
		for _, tmpl := range []*npc.Template{hero(), hero(), gobbo(), gobbo()} {
			c, err := npc.Spawn(tmpl, reg)
			require.NoError(rt, err)
			cs = append(cs, c)
		}
		res := combat.NewResolver(rng, effect.NewEngine(nil), reg.Effects, reg.Items, combat.DefaultRules(), nil)
		b, err := combat.NewBattle(res, combat.NewScheduler(nil), nil, cs...)
		require.NoError(rt, err)
		decider := npc.NewDecider(rng, reg.Items, nil, nil)
		templates := map[string]*npc.Template{"hero": hero(), "gobbo": gobbo()}

		for b.Outcome() == combat.OutcomeOngoing && b.Round < 30 {
			order, err := b.StartRound()
			require.NoError(rt, err)
			for _, c := range order {
				if !c.IsAlive() || b.Outcome() != combat.OutcomeOngoing {
					continue
				}
				start, err := b.BeginTurn(c)
				require.NoError(rt, err)
				if !start.CanAct {
					continue
				}
				req, err := decider.Decide(templates[c.TemplateID], c, b)
				require.NoError(rt, err)
				_, err = b.ResolveAction(c, req)
				require.NoError(rt, err, "decided %+v", req)
			}
			b.EndRound()
		}
	})
}
