package combat

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

var (
	// ErrAbilityOnCooldown is returned when an active ability is used before
	// its cooldown reaches zero. No randomness is drawn.
	ErrAbilityOnCooldown = ability.ErrOnCooldown
	// ErrNotActivatable is returned when a passive ability is used as an action.
	ErrNotActivatable = ability.ErrNotActivatable

	ErrInvalidTarget    = errors.New("combat: invalid target")
	ErrInvalidActor     = errors.New("combat: invalid actor")
	ErrUnknownAbility   = errors.New("combat: ability not known by actor")
	ErrUnknownItem      = errors.New("combat: unknown item")
	ErrItemUnavailable  = errors.New("combat: item not carried")
	ErrActionRestricted = errors.New("combat: action restricted by an effect")
	ErrIncapacitated    = errors.New("combat: actor cannot act this turn")
	ErrUnknownAction    = errors.New("combat: unknown action")
)

// Rules are the tunable constants of action resolution.
type Rules struct {
	DamageFloor            int
	CritMultiplier         float64
	UnarmedMin             int
	UnarmedMax             int
	DefendReductionPercent int
	FleeBaseChance         float64
	FleeStep               float64
	AbilityXPPerUse        int
	SpeedMods              map[ActionKind]int
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		DamageFloor:            1,
		CritMultiplier:         1.5,
		UnarmedMin:             1,
		UnarmedMax:             4,
		DefendReductionPercent: 50,
		FleeBaseChance:         0.5,
		FleeStep:               0.15,
		AbilityXPPerUse:        10,
		SpeedMods:              DefaultSpeedMods(),
	}
}

// ActionRequest is one actor's chosen action.
type ActionRequest struct {
	Kind      ActionKind
	TargetID  string
	AbilityID string
	ItemID    string
}

// Check records one percentile roll so narration can reuse the exact value.
type Check struct {
	Threshold int
	Roll      int
	Success   bool
}

// Result is the structured outcome of a resolved action.
type Result struct {
	ActorID   string
	Kind      ActionKind
	TargetID  string
	AbilityID string
	ItemID    string

	Accuracy *Check // nil when the action needs no hit roll
	Critical *Check
	Evasion  *Check

	Hit        bool
	Crit       bool
	Evaded     bool
	BaseRoll   int
	LevelBonus int
	Damage     int // HP actually removed from the target
	Healed     int
	MPRestored int
	Defeated   bool

	Applied  []effect.Application
	Cleansed []effect.Expiry

	FleeChance float64
	Fled       bool
}

// Field is the battle context an action resolves within.
type Field struct {
	Round      int
	Combatants []*Combatant
}

func (f Field) find(id string) *Combatant {
	for _, c := range f.Combatants {
		if c.UID == id {
			return c
		}
	}
	return nil
}

// Resolver turns actions into outcomes. All randomness comes from its Provider.
type Resolver struct {
	rng     *dice.Provider
	effects *effect.Engine
	defs    *effect.Registry
	items   *inventory.Registry
	rules   Rules
	logger  *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: rng, effects and defs must be non-nil; items may be nil when
// no consumables are in play; logger may be nil.
func NewResolver(rng *dice.Provider, effects *effect.Engine, defs *effect.Registry, items *inventory.Registry, rules Rules, logger *zap.Logger) *Resolver {
	if rng == nil || effects == nil || defs == nil {
		panic("combat.NewResolver: rng, effects and defs must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if items == nil {
		items = inventory.NewRegistry()
	}
	return &Resolver{rng: rng, effects: effects, defs: defs, items: items, rules: rules, logger: logger}
}

// Rules returns the active rule set.
func (r *Resolver) Rules() Rules { return r.rules }

// Provider returns the randomness provider shared with the battle.
func (r *Resolver) Provider() *dice.Provider { return r.rng }

// Effects returns the effect engine.
func (r *Resolver) Effects() *effect.Engine { return r.effects }

// Resolve executes req for actor. Flee is handled by Battle.
//
// Precondition: actor is alive and present in f.
// Postcondition: on error no combatant state has changed and no randomness was drawn.
func (r *Resolver) Resolve(actor *Combatant, req ActionRequest, f Field) (Result, error) {
	if actor == nil || !actor.IsAlive() {
		return Result{}, ErrInvalidActor
	}
	if effect.SkipsTurn(actor.Effects()) {
		return Result{}, fmt.Errorf("%s: %w", actor.Name, ErrIncapacitated)
	}
	if effect.IsActionRestricted(actor.Effects(), string(req.Kind)) {
		return Result{}, fmt.Errorf("%s cannot %s: %w", actor.Name, req.Kind, ErrActionRestricted)
	}
	var (
		res Result
		err error
	)
	switch req.Kind {
	case ActionAttack:
		res, err = r.resolveAttack(actor, req, f)
	case ActionDefend:
		actor.Defending = true
		res = Result{ActorID: actor.UID, Kind: ActionDefend}
	case ActionAbility:
		res, err = r.resolveAbility(actor, req, f)
	case ActionItem:
		res, err = r.resolveItem(actor, req, f)
	default:
		return Result{}, fmt.Errorf("%q: %w", req.Kind, ErrUnknownAction)
	}
	if err != nil {
		return Result{}, err
	}
	r.logger.Debug("action resolved",
		zap.String("actor", actor.UID),
		zap.String("kind", string(res.Kind)),
		zap.String("target", res.TargetID),
		zap.Bool("hit", res.Hit),
		zap.Bool("crit", res.Crit),
		zap.Bool("evaded", res.Evaded),
		zap.Int("damage", res.Damage),
		zap.Int("healed", res.Healed),
	)
	return res, nil
}

func (r *Resolver) resolveAttack(actor *Combatant, req ActionRequest, f Field) (Result, error) {
	target, err := opponent(actor, req.TargetID, f)
	if err != nil {
		return Result{}, err
	}
	res := Result{ActorID: actor.UID, Kind: ActionAttack, TargetID: target.UID}
	r.strike(actor, target, nil, f, &res)
	if res.Hit && !res.Evaded && target.IsAlive() {
		if w := actor.Weapon; w != nil && w.OnHit != nil {
			r.applyEffect(target, actor, w.OnHit.Effect, w.OnHit.Chance, w.OnHit.Duration, 0, &res)
		}
	}
	return res, nil
}

// strike runs the hit, magnitude, crit, layering and mitigation pipeline and
// applies the damage. ab is nil for a weapon attack.
func (r *Resolver) strike(actor, target *Combatant, ab *ability.Ability, f Field, res *Result) {
	threshold := r.accuracy(actor, ab, f)
	roll, ok := r.rng.Percent(threshold)
	res.Accuracy = &Check{Threshold: threshold, Roll: roll, Success: ok}
	if !ok {
		return
	}
	res.Hit = true

	lo, hi := r.damageRange(actor, ab)
	base, _ := r.rng.Roll(lo, hi)
	res.BaseRoll = base
	res.LevelBonus = actor.Level / 2
	dmg := float64(base + res.LevelBonus)

	critThreshold := actor.CritChance + actor.Passive(ability.StatCritChance) + effect.CritChanceBonus(actor.Effects())
	if actor.Weapon != nil {
		critThreshold += actor.Weapon.CritChance
	}
	critRoll, crit := r.rng.Percent(critThreshold)
	res.Critical = &Check{Threshold: critThreshold, Roll: critRoll, Success: crit}
	if crit {
		res.Crit = true
		dmg *= r.rules.CritMultiplier + float64(actor.Passive(ability.StatCritMultiplier))/100
	}

	if ab != nil {
		dmg = layer(dmg, ab.Value())
	}
	dmg = layer(dmg, actor.Passive(ability.StatDamagePercent))
	dmg = layer(dmg, effect.DamagePercent(actor.Effects()))
	if actor.IsBoss() && actor.Enrage.Active(f.Round) {
		dmg = layer(dmg, actor.Enrage.Percent)
	}

	final := r.mitigate(target, int(math.Floor(dmg)), res)
	res.Damage = target.TakeDamage(final)
	res.Defeated = !target.IsAlive()
}

// layer scales v by (100 + pct)%, never below zero.
func layer(v float64, pct int) float64 {
	factor := float64(100+pct) / 100
	if factor < 0 {
		factor = 0
	}
	return v * factor
}

// accuracy sums every contribution to the hit threshold. The value is not
// clamped; anything above 100 always hits.
func (r *Resolver) accuracy(actor *Combatant, ab *ability.Ability, f Field) int {
	acc := actor.Accuracy + actor.Passive(ability.StatAccuracy) + effect.AccuracyBonus(actor.Effects())
	if actor.Weapon != nil {
		acc += actor.Weapon.Accuracy
	}
	for _, ally := range f.Combatants {
		if ally != actor && ally.IsAlive() && ally.Side() == actor.Side() {
			acc += ally.Abilities.PartyBonus(ability.StatAccuracy)
		}
	}
	if ab != nil {
		acc += ab.Def.Accuracy
	}
	return acc
}

func (r *Resolver) damageRange(actor *Combatant, ab *ability.Ability) (int, int) {
	switch {
	case ab != nil && ab.Def.Range != nil:
		return ab.Def.Range.Min, ab.Def.Range.Max
	case actor.Weapon != nil:
		return actor.Weapon.DamageMin, actor.Weapon.DamageMax
	default:
		return r.rules.UnarmedMin, r.rules.UnarmedMax
	}
}

// mitigate applies the target's evasion, flat and percentage reductions.
//
// Postcondition: result is 0 when evaded, otherwise >= DamageFloor.
func (r *Resolver) mitigate(target *Combatant, dmg int, res *Result) int {
	evasion := target.Passive(ability.StatEvasion) + effect.EvasionBonus(target.Effects())
	if target.Armor != nil {
		evasion += target.Armor.Evasion
	}
	if evasion > 0 && !target.Defending {
		roll, ok := r.rng.Percent(evasion)
		res.Evasion = &Check{Threshold: evasion, Roll: roll, Success: ok}
		if ok {
			res.Evaded = true
			return 0
		}
	}

	flat := target.Passive(ability.StatDamageReduction) + effect.DefenseBonus(target.Effects())
	if target.Armor != nil {
		flat += target.Armor.Defense
	}
	dmg -= flat

	pct := target.Passive(ability.StatDamageReductionPercent) + effect.ReductionPercent(target.Effects())
	if target.Defending {
		pct += r.rules.DefendReductionPercent
	}
	if pct > 100 {
		pct = 100
	}
	dmg = dmg * (100 - pct) / 100

	if dmg < r.rules.DamageFloor {
		dmg = r.rules.DamageFloor
	}
	return dmg
}

func (r *Resolver) resolveAbility(actor *Combatant, req ActionRequest, f Field) (Result, error) {
	ab, ok := actor.Abilities.Get(req.AbilityID)
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", req.AbilityID, ErrUnknownAbility)
	}
	if err := ab.CheckReady(); err != nil {
		return Result{}, err
	}
	if ab.Def.MPCost > actor.CurrentMP {
		return Result{}, fmt.Errorf("%s costs %d MP, %s has %d: %w", ab.Def.ID, ab.Def.MPCost, actor.Name, actor.CurrentMP, ErrInsufficientMP)
	}
	target, err := abilityTarget(actor, ab.Def, req.TargetID, f)
	if err != nil {
		return Result{}, err
	}

	// Every rejection is above this line; from here on the use is committed.
	if err := ab.Trigger(); err != nil {
		return Result{}, err
	}
	_ = actor.SpendMP(ab.Def.MPCost)
	if gained := ab.GainExperience(r.rules.AbilityXPPerUse); gained > 0 {
		r.logger.Debug("ability levelled",
			zap.String("actor", actor.UID),
			zap.String("ability", ab.ID()),
			zap.Int("level", ab.Level),
		)
	}

	res := Result{ActorID: actor.UID, Kind: ActionAbility, AbilityID: ab.ID(), TargetID: target.UID}
	def := ab.Def
	switch def.Action {
	case ability.ActionDamage:
		r.strike(actor, target, ab, f, &res)
	case ability.ActionHeal:
		base, _ := r.rng.Roll(def.Range.Min, def.Range.Max)
		res.BaseRoll = base
		res.LevelBonus = actor.Level / 2
		amount := int(math.Floor(layer(float64(base+res.LevelBonus), ab.Value())))
		res.Healed = target.Heal(amount)
		res.Hit = true
	case ability.ActionApply:
		if target.Side() != actor.Side() {
			threshold := r.accuracy(actor, ab, f)
			roll, ok := r.rng.Percent(threshold)
			res.Accuracy = &Check{Threshold: threshold, Roll: roll, Success: ok}
			res.Hit = ok
		} else {
			res.Hit = true
		}
	case ability.ActionCleanse:
		res.Cleansed = r.effects.RemoveNegativeEffects(target)
		res.Hit = true
	}

	if ref := def.ApplyEffect; ref != nil && res.Hit && !res.Evaded && target.IsAlive() {
		r.applyEffect(target, actor, ref.ID, ref.Chance, ref.Duration, ref.Stacks, &res)
	}
	return res, nil
}

func (r *Resolver) resolveItem(actor *Combatant, req ActionRequest, f Field) (Result, error) {
	def, ok := r.items.Item(req.ItemID)
	if !ok {
		return Result{}, fmt.Errorf("%q: %w", req.ItemID, ErrUnknownItem)
	}
	if actor.Items.Count(def.ID) == 0 {
		return Result{}, fmt.Errorf("%s has no %s: %w", actor.Name, def.ID, ErrItemUnavailable)
	}
	var (
		target *Combatant
		err    error
	)
	switch def.Target {
	case inventory.TargetEnemy:
		target, err = opponent(actor, req.TargetID, f)
	case inventory.TargetAlly:
		target, err = ally(actor, req.TargetID, f)
	default:
		target, err = self(actor, req.TargetID)
	}
	if err != nil {
		return Result{}, err
	}
	var heal dice.Expression
	if def.HealDice != "" {
		if heal, err = dice.Parse(def.HealDice); err != nil {
			return Result{}, fmt.Errorf("item %s: %w", def.ID, err)
		}
	}
	if err := actor.Items.Take(def.ID); err != nil {
		return Result{}, fmt.Errorf("%s: %w", err, ErrItemUnavailable)
	}

	res := Result{ActorID: actor.UID, Kind: ActionItem, ItemID: def.ID, TargetID: target.UID, Hit: true}
	if def.HealDice != "" {
		roll := r.rng.RollExpression(heal)
		res.BaseRoll = roll.Total()
		res.Healed = target.Heal(roll.Total())
	}
	if def.RestoreMP > 0 {
		res.MPRestored = target.RestoreMP(def.RestoreMP)
	}
	if def.Cleanse {
		res.Cleansed = r.effects.RemoveNegativeEffects(target)
	}
	if def.Damage != nil {
		base, _ := r.rng.Roll(def.Damage.Min, def.Damage.Max)
		res.BaseRoll = base
		final := r.mitigate(target, base, &res)
		res.Damage = target.TakeDamage(final)
		res.Defeated = !target.IsAlive()
	}
	if e := def.Effect; e != nil && !res.Evaded && target.IsAlive() {
		r.applyEffect(target, actor, e.ID, 1, e.Duration, e.Stacks, &res)
	}
	return res, nil
}

// applyEffect rolls chance (0 meaning always) and applies effect id to target.
func (r *Resolver) applyEffect(target, source *Combatant, id string, chance float64, duration, stacks int, res *Result) {
	def, ok := r.defs.Get(id)
	if !ok {
		r.logger.Warn("on-hit effect not loaded", zap.String("effect", id))
		return
	}
	if chance == 0 {
		chance = 1
	}
	if !r.rng.Chance(chance) {
		return
	}
	app, err := r.effects.AddEffect(target, def, effect.Options{Duration: duration, Stacks: stacks, SourceID: source.UID})
	if err != nil {
		r.logger.Warn("applying effect", zap.String("effect", id), zap.Error(err))
		return
	}
	res.Applied = append(res.Applied, app)
}

func opponent(actor *Combatant, id string, f Field) (*Combatant, error) {
	t := f.find(id)
	if t == nil || !t.IsAlive() || t.Side() == actor.Side() {
		return nil, fmt.Errorf("%q is not a living opponent of %s: %w", id, actor.Name, ErrInvalidTarget)
	}
	return t, nil
}

func ally(actor *Combatant, id string, f Field) (*Combatant, error) {
	if id == "" {
		return actor, nil
	}
	t := f.find(id)
	if t == nil || !t.IsAlive() || t.Side() != actor.Side() {
		return nil, fmt.Errorf("%q is not a living ally of %s: %w", id, actor.Name, ErrInvalidTarget)
	}
	return t, nil
}

func self(actor *Combatant, id string) (*Combatant, error) {
	if id != "" && id != actor.UID {
		return nil, fmt.Errorf("%s can only target itself: %w", actor.Name, ErrInvalidTarget)
	}
	return actor, nil
}

func abilityTarget(actor *Combatant, def *ability.Def, id string, f Field) (*Combatant, error) {
	switch def.Targeting() {
	case ability.TargetAlly:
		return ally(actor, id, f)
	case ability.TargetSelf:
		return self(actor, id)
	default:
		return opponent(actor, id, f)
	}
}
