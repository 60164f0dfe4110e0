package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the engine global and its log, dice, entity and
// combat sub-tables into L.
//
// Precondition: L must come from the sandbox constructor.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "entity", m.entityModule(L))
	L.SetField(engine, "combat", m.combatModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	emit := func(log func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			log(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}
	}
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": emit(m.logger.Debug),
		"info":  emit(m.logger.Info),
		"warn":  emit(m.logger.Warn),
		"error": emit(m.logger.Error),
	})
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		// roll(expr) -> {dice, modifier, total, text}
		"roll": func(L *lua.LState) int {
			res, err := m.provider.RollExpr(L.CheckString(1))
			if err != nil {
				L.RaiseError("engine.dice.roll: %v", err)
				return 0
			}
			sum := 0
			for _, d := range res.Dice {
				sum += d
			}
			t := L.NewTable()
			L.SetField(t, "dice", lua.LNumber(sum))
			L.SetField(t, "modifier", lua.LNumber(res.Modifier))
			L.SetField(t, "total", lua.LNumber(res.Total()))
			L.SetField(t, "text", lua.LString(res.String()))
			return pushOne(L, t)
		},
		"range": func(L *lua.LState) int {
			n, err := m.provider.Roll(L.CheckInt(1), L.CheckInt(2))
			if err != nil {
				L.RaiseError("engine.dice.range: %v", err)
				return 0
			}
			return pushOne(L, lua.LNumber(n))
		},
		"chance": func(L *lua.LState) int {
			return pushOne(L, lua.LBool(m.provider.Chance(float64(L.CheckNumber(1)))))
		},
	})
}

func (m *Manager) entityModule(L *lua.LState) *lua.LTable {
	field := func(pick func(*CombatantInfo) lua.LValue) lua.LGFunction {
		return func(L *lua.LState) int {
			uid := L.CheckString(1)
			if m.GetCombatant == nil {
				return pushOne(L, lua.LNil)
			}
			info := m.GetCombatant(uid)
			if info == nil {
				return pushOne(L, lua.LNil)
			}
			return pushOne(L, pick(info))
		}
	}
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get_name":   field(func(c *CombatantInfo) lua.LValue { return lua.LString(c.Name) }),
		"get_hp":     field(func(c *CombatantInfo) lua.LValue { return lua.LNumber(c.HP) }),
		"get_max_hp": field(func(c *CombatantInfo) lua.LValue { return lua.LNumber(c.MaxHP) }),
		"get_mp":     field(func(c *CombatantInfo) lua.LValue { return lua.LNumber(c.MP) }),
		"get_effects": field(func(c *CombatantInfo) lua.LValue {
			t := L.NewTable()
			for _, id := range c.Effects {
				t.Append(lua.LString(id))
			}
			return t
		}),
	})
}

func (m *Manager) combatModule(L *lua.LState) *lua.LTable {
	list := func(get func() func(string) []*CombatantInfo) lua.LGFunction {
		return func(L *lua.LState) int {
			uid := L.CheckString(1)
			fn := get()
			if fn == nil {
				return pushOne(L, lua.LNil)
			}
			t := L.NewTable()
			for _, c := range fn(uid) {
				t.Append(combatantToTable(L, c))
			}
			return pushOne(L, t)
		}
	}
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"query_combatant": func(L *lua.LState) int {
			uid := L.CheckString(1)
			if m.GetCombatant == nil {
				return pushOne(L, lua.LNil)
			}
			info := m.GetCombatant(uid)
			if info == nil {
				return pushOne(L, lua.LNil)
			}
			return pushOne(L, combatantToTable(L, info))
		},
		"get_allies":  list(func() func(string) []*CombatantInfo { return m.GetAllies }),
		"get_enemies": list(func() func(string) []*CombatantInfo { return m.GetEnemies }),
		// damage(uid, hp) -> hp actually lost
		"damage": func(L *lua.LState) int {
			uid, hp := L.CheckString(1), L.CheckInt(2)
			if m.ApplyDamage == nil {
				return pushOne(L, lua.LNumber(0))
			}
			dealt, err := m.ApplyDamage(uid, hp)
			if err != nil {
				L.RaiseError("engine.combat.damage: %v", err)
				return 0
			}
			return pushOne(L, lua.LNumber(dealt))
		},
		"heal": func(L *lua.LState) int {
			uid, hp := L.CheckString(1), L.CheckInt(2)
			if m.Heal == nil {
				return pushOne(L, lua.LNumber(0))
			}
			healed, err := m.Heal(uid, hp)
			if err != nil {
				L.RaiseError("engine.combat.heal: %v", err)
				return 0
			}
			return pushOne(L, lua.LNumber(healed))
		},
		// apply_effect(uid, effect_id, duration[, stacks]) -> true
		"apply_effect": func(L *lua.LState) int {
			uid, id, duration := L.CheckString(1), L.CheckString(2), L.CheckInt(3)
			stacks := L.OptInt(4, 1)
			if m.ApplyEffect == nil {
				return pushOne(L, lua.LFalse)
			}
			if err := m.ApplyEffect(uid, id, duration, stacks); err != nil {
				L.RaiseError("engine.combat.apply_effect: %v", err)
				return 0
			}
			return pushOne(L, lua.LTrue)
		},
		"remove_effect": func(L *lua.LState) int {
			uid, id := L.CheckString(1), L.CheckString(2)
			if m.RemoveEffect == nil {
				return pushOne(L, lua.LFalse)
			}
			return pushOne(L, lua.LBool(m.RemoveEffect(uid, id)))
		},
	})
}

func combatantToTable(L *lua.LState, c *CombatantInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "uid", lua.LString(c.UID))
	L.SetField(t, "name", lua.LString(c.Name))
	L.SetField(t, "kind", lua.LString(c.Kind))
	L.SetField(t, "side", lua.LString(c.Side))
	L.SetField(t, "level", lua.LNumber(c.Level))
	L.SetField(t, "hp", lua.LNumber(c.HP))
	L.SetField(t, "max_hp", lua.LNumber(c.MaxHP))
	L.SetField(t, "mp", lua.LNumber(c.MP))
	L.SetField(t, "max_mp", lua.LNumber(c.MaxMP))
	effects := L.NewTable()
	for _, id := range c.Effects {
		effects.Append(lua.LString(id))
	}
	L.SetField(t, "effects", effects)
	return t
}

func pushOne(L *lua.LState, v lua.LValue) int {
	L.Push(v)
	return 1
}
