package arena

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/catalog"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// NewProvider builds the battle's randomness source from cfg. A zero seed
// is replaced with a fresh one so the run can still be replayed from the log.
//
// Postcondition: Returns a Provider or an error for an unknown algorithm.
func NewProvider(cfg config.RNGConfig, logger *zap.Logger) (*dice.Provider, error) {
	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = dice.NewSeed(); err != nil {
			return nil, fmt.Errorf("drawing seed: %w", err)
		}
	}
	p, err := dice.NewSeededProvider(cfg.Algorithm, seed, logger)
	if err != nil {
		return nil, err
	}
	p.EnableStats(cfg.TrackStats)
	logger.Info("rng ready", zap.String("algorithm", cfg.Algorithm), zap.Uint64("seed", seed))
	return p, nil
}

// NewScripts creates the Lua manager and loads every script under
// content.Scripts. An empty directory setting disables scripting and
// returns a nil manager.
//
// Postcondition: on success the returned cleanup is non-nil and closes the manager.
func NewScripts(cfg config.ScriptingConfig, content config.ContentConfig, p *dice.Provider, logger *zap.Logger) (*scripting.Manager, func(), error) {
	if content.Scripts == "" {
		return nil, func() {}, nil
	}
	mgr := scripting.NewManager(p, logger, cfg.InstructionLimit)
	if err := mgr.LoadDir(content.Scripts); err != nil {
		mgr.Close()
		return nil, nil, err
	}
	return mgr, mgr.Close, nil
}

// NewCatalog loads every content registry and checks that each script hook
// the content names is defined.
func NewCatalog(content config.ContentConfig, scripts *scripting.Manager, logger *zap.Logger) (*catalog.Catalog, error) {
	cat, err := catalog.Load(content, logger)
	if err != nil {
		return nil, err
	}
	if scripts != nil {
		for _, hook := range cat.ScriptHooks() {
			if !scripts.HasHook(hook) {
				logger.Warn("script hook not defined", zap.String("hook", hook))
			}
		}
	}
	return cat, nil
}

// NewRules converts the combat config section into resolver rules.
// Speed modifier keys name action kinds.
func NewRules(cfg config.CombatConfig) combat.Rules {
	mods := make(map[combat.ActionKind]int, len(cfg.SpeedMods))
	for k, v := range cfg.SpeedMods {
		mods[combat.ActionKind(k)] = v
	}
	return combat.Rules{
		DamageFloor:            cfg.DamageFloor,
		CritMultiplier:         cfg.CritMultiplier,
		UnarmedMin:             cfg.UnarmedMin,
		UnarmedMax:             cfg.UnarmedMax,
		DefendReductionPercent: cfg.DefendReductionPercent,
		FleeBaseChance:         cfg.FleeBaseChance,
		FleeStep:               cfg.FleeStep,
		AbilityXPPerUse:        cfg.AbilityXPPerUse,
		SpeedMods:              mods,
	}
}

// NewEffectEngine returns an engine that forwards lifecycle events to Lua
// when scripts is non-nil.
func NewEffectEngine(scripts *scripting.Manager, logger *zap.Logger) *effect.Engine {
	if scripts == nil {
		return effect.NewEngine(logger)
	}
	return effect.NewEngine(logger, combat.NewScriptHooks(scripts))
}

// NewResolver builds the action resolver over the catalog's registries.
func NewResolver(p *dice.Provider, engine *effect.Engine, cat *catalog.Catalog, rules combat.Rules, logger *zap.Logger) *combat.Resolver {
	return combat.NewResolver(p, engine, cat.Effects, cat.Items, rules, logger)
}

// NewScheduler builds the turn scheduler from the rules' speed modifiers.
func NewScheduler(rules combat.Rules) *combat.Scheduler {
	return combat.NewScheduler(rules.SpeedMods)
}

// NewDecider builds the template-driven decision maker.
func NewDecider(p *dice.Provider, cat *catalog.Catalog, scripts *scripting.Manager, logger *zap.Logger) *npc.Decider {
	return npc.NewDecider(p, cat.Items, scripts, logger)
}
