package combat

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// ScriptHooks forwards effect lifecycle events to the Lua functions named in
// each definition's scripts block.
//
// Hook signatures:
//
//	on_apply(target_uid, effect_id, stacks)
//	on_tick(target_uid, effect_id, stacks, amount)
//	on_expire(target_uid, effect_id, reason)
type ScriptHooks struct {
	mgr *scripting.Manager
}

// NewScriptHooks returns hooks dispatching to mgr.
//
// Precondition: mgr must be non-nil.
func NewScriptHooks(mgr *scripting.Manager) *ScriptHooks {
	if mgr == nil {
		panic("combat.NewScriptHooks: manager must not be nil")
	}
	return &ScriptHooks{mgr: mgr}
}

func (h *ScriptHooks) OnApplied(t effect.Target, a *effect.Active) {
	h.call(a.Def.Scripts.OnApply, lua.LString(t.ID()), lua.LString(a.Def.ID), lua.LNumber(a.Stacks))
}

func (h *ScriptHooks) OnTick(t effect.Target, a *effect.Active, amount int) {
	h.call(a.Def.Scripts.OnTick, lua.LString(t.ID()), lua.LString(a.Def.ID), lua.LNumber(a.Stacks), lua.LNumber(amount))
}

func (h *ScriptHooks) OnExpired(t effect.Target, a *effect.Active, reason effect.Reason) {
	h.call(a.Def.Scripts.OnExpire, lua.LString(t.ID()), lua.LString(a.Def.ID), lua.LString(reason.String()))
}

func (h *ScriptHooks) call(hook string, args ...lua.LValue) {
	if hook == "" {
		return
	}
	// Runtime errors are logged by the manager; a closed manager is ignored.
	_, _ = h.mgr.CallHook(hook, args...)
}

// BindScripts points mgr's engine.* callbacks at this battle. Damage and
// healing from scripts bypass mitigation; effects go through the resolver's
// effect engine so their hooks fire normally.
func (b *Battle) BindScripts(mgr *scripting.Manager) {
	mgr.GetCombatant = func(uid string) *scripting.CombatantInfo {
		c := b.Combatant(uid)
		if c == nil {
			return nil
		}
		return combatantInfo(c)
	}
	mgr.GetAllies = func(uid string) []*scripting.CombatantInfo {
		c := b.Combatant(uid)
		if c == nil {
			return nil
		}
		return infos(b.Living(c.Side()))
	}
	mgr.GetEnemies = func(uid string) []*scripting.CombatantInfo {
		c := b.Combatant(uid)
		if c == nil {
			return nil
		}
		return infos(b.Living(c.Side().Opposite()))
	}
	mgr.ApplyDamage = func(uid string, hp int) (int, error) {
		c, err := b.scriptTarget(uid)
		if err != nil {
			return 0, err
		}
		return c.TakeDamage(hp), nil
	}
	mgr.Heal = func(uid string, hp int) (int, error) {
		c, err := b.scriptTarget(uid)
		if err != nil {
			return 0, err
		}
		return c.Heal(hp), nil
	}
	mgr.ApplyEffect = func(uid, effectID string, duration, stacks int) error {
		c, err := b.scriptTarget(uid)
		if err != nil {
			return err
		}
		def, ok := b.resolver.defs.Get(effectID)
		if !ok {
			return fmt.Errorf("combat: script applied unknown effect %q", effectID)
		}
		_, err = b.resolver.Effects().AddEffect(c, def, effect.Options{Duration: duration, Stacks: stacks})
		return err
	}
	mgr.RemoveEffect = func(uid, effectID string) bool {
		c := b.Combatant(uid)
		if c == nil {
			return false
		}
		_, ok := b.resolver.Effects().RemoveEffect(c, effectID)
		return ok
	}
}

func (b *Battle) scriptTarget(uid string) (*Combatant, error) {
	c := b.Combatant(uid)
	if c == nil || !c.IsAlive() {
		return nil, fmt.Errorf("%q: %w", uid, ErrInvalidTarget)
	}
	return c, nil
}

func combatantInfo(c *Combatant) *scripting.CombatantInfo {
	active := c.Effects().All()
	ids := make([]string, len(active))
	for i, a := range active {
		ids[i] = a.Def.ID
	}
	return &scripting.CombatantInfo{
		UID:     c.UID,
		Name:    c.Name,
		Kind:    string(c.Kind),
		Side:    c.Side().String(),
		Level:   c.Level,
		HP:      c.CurrentHP,
		MaxHP:   c.MaxHP,
		MP:      c.CurrentMP,
		MaxMP:   c.MaxMP,
		Effects: ids,
	}
}

func infos(cs []*Combatant) []*scripting.CombatantInfo {
	out := make([]*scripting.CombatantInfo, len(cs))
	for i, c := range cs {
		out[i] = combatantInfo(c)
	}
	return out
}
