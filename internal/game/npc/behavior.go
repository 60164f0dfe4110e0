package npc

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// ErrNoTarget is returned when no living combatant can be chosen.
var ErrNoTarget = errors.New("npc: no living target")

var attack = Behavior{Action: combat.ActionAttack, Weight: 1}

// Decider chooses actions for combatants driven by their templates.
// It draws only through its Provider, so a seeded Provider makes every
// decision reproducible.
type Decider struct {
	rng     *dice.Provider
	items   *inventory.Registry
	scripts *scripting.Manager
	logger  *zap.Logger
}

// NewDecider creates a Decider. scripts may be nil, in which case template
// script hooks are ignored.
//
// Precondition: rng and items must be non-nil.
func NewDecider(rng *dice.Provider, items *inventory.Registry, scripts *scripting.Manager, logger *zap.Logger) *Decider {
	if rng == nil || items == nil {
		panic("npc.NewDecider: rng and items must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decider{rng: rng, items: items, scripts: scripts, logger: logger}
}

// ChooseAction picks one entry of tmpl's behavior table by weight. An entry
// the actor cannot currently perform falls back to a plain attack, as does
// an empty table.
//
// Postcondition: the returned Behavior is usable by actor right now.
func (d *Decider) ChooseAction(tmpl *Template, actor *combat.Combatant, b *combat.Battle) Behavior {
	if len(tmpl.Behavior) == 0 {
		return attack
	}
	weights := make([]int, len(tmpl.Behavior))
	for i, entry := range tmpl.Behavior {
		weights[i] = entry.Weight
	}
	idx, err := d.rng.WeightedIndex(weights)
	if err != nil {
		d.logger.Debug("behavior table unusable", zap.String("template", tmpl.ID), zap.Error(err))
		return attack
	}
	choice := tmpl.Behavior[idx]
	if !d.usable(choice, actor, b) {
		d.logger.Debug("behavior falls back to attack",
			zap.String("actor", actor.UID),
			zap.String("action", string(choice.Action)),
			zap.String("ability", choice.Ability),
			zap.String("item", choice.Item),
		)
		return attack
	}
	return choice
}

func (d *Decider) usable(choice Behavior, actor *combat.Combatant, b *combat.Battle) bool {
	if effect.IsActionRestricted(actor.Effects(), string(choice.Action)) {
		return false
	}
	switch choice.Action {
	case combat.ActionAbility:
		ab, ok := actor.Abilities.Get(choice.Ability)
		return ok && ab.CheckReady() == nil && ab.Def.MPCost <= actor.CurrentMP
	case combat.ActionItem:
		_, ok := d.items.Item(choice.Item)
		return ok && actor.Items.Count(choice.Item) > 0
	case combat.ActionFlee:
		if actor.Side() != combat.SideParty {
			return false
		}
		for _, c := range b.Living(actor.Side().Opposite()) {
			if c.IsBoss() {
				return false
			}
		}
		return true
	}
	return true
}

// ChooseTarget picks one of candidates uniformly at random.
//
// Postcondition: Returns ErrNoTarget when candidates is empty.
func (d *Decider) ChooseTarget(candidates []*combat.Combatant) (*combat.Combatant, error) {
	if len(candidates) == 0 {
		return nil, ErrNoTarget
	}
	picked, err := d.rng.Sample(len(candidates), 1)
	if err != nil {
		return nil, err
	}
	return candidates[picked[0]], nil
}

// Decide builds a complete request for actor. A template script hook, when
// loaded, is consulted first; a nil or empty answer defers to the behavior
// table.
//
// Precondition: actor is alive and belongs to b.
func (d *Decider) Decide(tmpl *Template, actor *combat.Combatant, b *combat.Battle) (combat.ActionRequest, error) {
	if req, ok := d.scripted(tmpl, actor, b); ok {
		if req.TargetID == "" {
			return d.target(req, actor, b)
		}
		return req, nil
	}
	choice := d.ChooseAction(tmpl, actor, b)
	return d.target(combat.ActionRequest{
		Kind:      choice.Action,
		AbilityID: choice.Ability,
		ItemID:    choice.Item,
	}, actor, b)
}

// Fallback returns a plain attack on a random living opponent.
func (d *Decider) Fallback(actor *combat.Combatant, b *combat.Battle) (combat.ActionRequest, error) {
	return d.target(combat.ActionRequest{Kind: combat.ActionAttack}, actor, b)
}

// target fills in TargetID for req according to what the action aims at.
func (d *Decider) target(req combat.ActionRequest, actor *combat.Combatant, b *combat.Battle) (combat.ActionRequest, error) {
	var aim string
	switch req.Kind {
	case combat.ActionAttack:
		aim = string(ability.TargetEnemy)
	case combat.ActionAbility:
		ab, ok := actor.Abilities.Get(req.AbilityID)
		if !ok {
			return req, nil
		}
		aim = string(ab.Def.Targeting())
	case combat.ActionItem:
		def, ok := d.items.Item(req.ItemID)
		if !ok {
			return req, nil
		}
		aim = def.Target
	default:
		return req, nil
	}

	switch aim {
	case inventory.TargetEnemy:
		t, err := d.ChooseTarget(b.Living(actor.Side().Opposite()))
		if err != nil {
			return combat.ActionRequest{}, fmt.Errorf("%s: %w", actor.Name, err)
		}
		req.TargetID = t.UID
	case inventory.TargetAlly:
		req.TargetID = mostWounded(b.Living(actor.Side())).UID
	default:
		req.TargetID = actor.UID
	}
	return req, nil
}

// mostWounded returns the ally with the lowest HP fraction, earliest first on ties.
//
// Precondition: allies is non-empty.
func mostWounded(allies []*combat.Combatant) *combat.Combatant {
	best := allies[0]
	for _, c := range allies[1:] {
		if c.CurrentHP*best.MaxHP < best.CurrentHP*c.MaxHP {
			best = c
		}
	}
	return best
}

// scripted asks tmpl's Lua hook for a decision. The hook receives the actor
// UID and the round number and may return a table with action, ability,
// item and target fields.
func (d *Decider) scripted(tmpl *Template, actor *combat.Combatant, b *combat.Battle) (combat.ActionRequest, bool) {
	if tmpl.Script == "" || d.scripts == nil || !d.scripts.HasHook(tmpl.Script) {
		return combat.ActionRequest{}, false
	}
	ret, err := d.scripts.CallHook(tmpl.Script, lua.LString(actor.UID), lua.LNumber(b.Round))
	if err != nil {
		d.logger.Warn("decision hook failed", zap.String("hook", tmpl.Script), zap.Error(err))
		return combat.ActionRequest{}, false
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return combat.ActionRequest{}, false
	}
	req := combat.ActionRequest{
		Kind:      combat.ActionKind(field(tbl, "action")),
		AbilityID: field(tbl, "ability"),
		ItemID:    field(tbl, "item"),
		TargetID:  field(tbl, "target"),
	}
	if req.Kind == combat.ActionNone {
		return combat.ActionRequest{}, false
	}
	d.logger.Debug("scripted decision",
		zap.String("actor", actor.UID),
		zap.String("hook", tmpl.Script),
		zap.String("action", string(req.Kind)),
	)
	return req, true
}

func field(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}
