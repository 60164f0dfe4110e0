package combat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

var (
	// ErrCombatOver is returned when an action is attempted after the battle ended.
	ErrCombatOver = errors.New("combat: battle is over")
	// ErrCannotFlee is returned when fleeing is not allowed for the actor.
	ErrCannotFlee = errors.New("combat: cannot flee")
	// ErrTurnTaken is returned when an actor begins its turn or acts a second
	// time in the same round.
	ErrTurnTaken = errors.New("combat: turn already taken this round")
)

// turn records how far an actor got through its turn this round.
type turn uint8

const (
	turnBegun turn = 1 << iota
	turnActed
)

// Outcome is the battle's terminal state, if any.
type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeVictory
	OutcomeDefeat
	OutcomeFled
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeOngoing:
		return "ongoing"
	case OutcomeVictory:
		return "victory"
	case OutcomeDefeat:
		return "defeat"
	case OutcomeFled:
		return "fled"
	default:
		return "unknown"
	}
}

// TurnStart reports the start-of-turn effect processing for one actor.
type TurnStart struct {
	ActorID string
	Ticks   []effect.Tick
	// CanAct is false when the actor died from a tick or is incapacitated.
	CanAct bool
}

// RoundSummary reports the end-of-round bookkeeping.
type RoundSummary struct {
	Round   int
	Expired map[string][]effect.Expiry
	Outcome Outcome
}

// Battle holds the live state of one encounter. It is not safe for
// concurrent use; the caller serialises access.
type Battle struct {
	ID    string
	Round int

	combatants   []*Combatant
	scheduler    *Scheduler
	resolver     *Resolver
	logger       *zap.Logger
	fleeAttempts int
	fled         bool
	turns        map[string]turn
}

// NewBattle creates a battle with combatants registered in the order given.
// Combatants without a UID receive a fresh one.
//
// Precondition: resolver and scheduler must be non-nil.
// Postcondition: Returns an error for duplicate UIDs or an empty roster.
func NewBattle(resolver *Resolver, scheduler *Scheduler, logger *zap.Logger, combatants ...*Combatant) (*Battle, error) {
	if resolver == nil || scheduler == nil {
		panic("combat.NewBattle: resolver and scheduler must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(combatants) == 0 {
		return nil, fmt.Errorf("combat: battle needs combatants: %w", ErrEmptyActSequence)
	}
	b := &Battle{
		ID:        uuid.New().String(),
		scheduler: scheduler,
		resolver:  resolver,
		logger:    logger,
		turns:     make(map[string]turn),
	}
	for _, c := range combatants {
		if err := b.add(c); err != nil {
			return nil, err
		}
	}
	b.logger.Info("battle started",
		zap.String("battle", b.ID),
		zap.Int("party", len(b.Living(SideParty))),
		zap.Int("hostile", len(b.Living(SideHostile))),
	)
	return b, nil
}

func (b *Battle) add(c *Combatant) error {
	if !c.Kind.Valid() {
		return fmt.Errorf("combat: combatant %q has invalid kind %q", c.Name, c.Kind)
	}
	if c.UID == "" {
		c.UID = uuid.New().String()
	}
	if b.Combatant(c.UID) != nil {
		return fmt.Errorf("combat: duplicate combatant %q", c.UID)
	}
	c.order = len(b.combatants)
	b.combatants = append(b.combatants, c)
	return nil
}

// Combatants returns every combatant in registration order.
func (b *Battle) Combatants() []*Combatant {
	out := make([]*Combatant, len(b.combatants))
	copy(out, b.combatants)
	return out
}

// Combatant returns the combatant with uid, or nil.
func (b *Battle) Combatant(uid string) *Combatant {
	return b.field().find(uid)
}

// Living returns the living combatants on side in registration order.
func (b *Battle) Living(side Side) []*Combatant {
	var out []*Combatant
	for _, c := range b.combatants {
		if c.IsAlive() && c.Side() == side {
			out = append(out, c)
		}
	}
	return out
}

// FleeAttempts returns the number of failed flee attempts so far.
func (b *Battle) FleeAttempts() int { return b.fleeAttempts }

func (b *Battle) field() Field {
	return Field{Round: b.Round, Combatants: b.combatants}
}

// Outcome reports whether the battle has ended and how.
func (b *Battle) Outcome() Outcome {
	switch {
	case b.fled:
		return OutcomeFled
	case len(b.Living(SideParty)) == 0:
		return OutcomeDefeat
	case len(b.Living(SideHostile)) == 0:
		return OutcomeVictory
	default:
		return OutcomeOngoing
	}
}

// StartRound advances the round counter, recomputes speed modifiers and
// returns this round's act sequence. Every living combatant may again begin
// one turn and resolve one action.
//
// Postcondition: Returns ErrCombatOver once an outcome is reached, or
// ErrEmptyActSequence when nobody is alive.
func (b *Battle) StartRound() ([]*Combatant, error) {
	if o := b.Outcome(); o != OutcomeOngoing {
		return nil, fmt.Errorf("%s: %w", o, ErrCombatOver)
	}
	b.Round++
	clear(b.turns)
	b.scheduler.Prepare(b.combatants)
	order, err := b.scheduler.Order(b.combatants)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(order))
	for i, c := range order {
		ids[i] = c.Name
	}
	b.logger.Info("round started",
		zap.String("battle", b.ID),
		zap.Int("round", b.Round),
		zap.Strings("order", ids),
	)
	return order, nil
}

// BeginTurn clears the actor's defend stance and processes its effects.
//
// Precondition: actor belongs to this battle and is alive.
// Postcondition: Returns ErrTurnTaken when actor already began its turn or
// acted this round; its effects are not processed again.
func (b *Battle) BeginTurn(actor *Combatant) (TurnStart, error) {
	if err := b.checkActor(actor); err != nil {
		return TurnStart{}, err
	}
	if b.turns[actor.UID] != 0 {
		return TurnStart{}, fmt.Errorf("%s: %w", actor.Name, ErrTurnTaken)
	}
	b.turns[actor.UID] |= turnBegun
	actor.Defending = false
	ticks := b.resolver.Effects().ProcessEffects(actor)
	return TurnStart{
		ActorID: actor.UID,
		Ticks:   ticks,
		CanAct:  actor.IsAlive() && !effect.SkipsTurn(actor.Effects()),
	}, nil
}

// ResolveAction executes req for actor and records it for next round's
// speed modifier.
//
// Postcondition: on error the action is not recorded and actor may try
// again; after a success further actions this round return ErrTurnTaken.
func (b *Battle) ResolveAction(actor *Combatant, req ActionRequest) (Result, error) {
	if o := b.Outcome(); o != OutcomeOngoing {
		return Result{}, fmt.Errorf("%s: %w", o, ErrCombatOver)
	}
	if err := b.checkActor(actor); err != nil {
		return Result{}, err
	}
	if b.turns[actor.UID]&turnActed != 0 {
		return Result{}, fmt.Errorf("%s: %w", actor.Name, ErrTurnTaken)
	}
	var (
		res Result
		err error
	)
	if req.Kind == ActionFlee {
		res, err = b.flee(actor)
	} else {
		res, err = b.resolver.Resolve(actor, req, b.field())
	}
	if err != nil {
		return Result{}, err
	}
	b.turns[actor.UID] |= turnActed
	b.scheduler.Record(actor, req.Kind)
	if res.Defeated {
		b.logger.Info("combatant defeated",
			zap.String("battle", b.ID),
			zap.String("target", res.TargetID),
			zap.String("by", actor.UID),
		)
	}
	return res, nil
}

// flee resolves an escape attempt. Chance grows by FleeStep per failed attempt.
func (b *Battle) flee(actor *Combatant) (Result, error) {
	if actor.Side() != SideParty {
		return Result{}, fmt.Errorf("%s: only the party may flee: %w", actor.Name, ErrCannotFlee)
	}
	if effect.SkipsTurn(actor.Effects()) {
		return Result{}, fmt.Errorf("%s: %w", actor.Name, ErrIncapacitated)
	}
	if effect.IsActionRestricted(actor.Effects(), string(ActionFlee)) {
		return Result{}, fmt.Errorf("%s cannot flee: %w", actor.Name, ErrActionRestricted)
	}
	for _, c := range b.Living(SideHostile) {
		if c.IsBoss() {
			return Result{}, fmt.Errorf("%s blocks the escape: %w", c.Name, ErrCannotFlee)
		}
	}
	rules := b.resolver.Rules()
	chance := rules.FleeBaseChance + rules.FleeStep*float64(b.fleeAttempts)
	if chance > 1 {
		chance = 1
	}
	res := Result{ActorID: actor.UID, Kind: ActionFlee, FleeChance: chance}
	if b.resolver.Provider().Chance(chance) {
		res.Fled = true
		b.fled = true
		b.logger.Info("party fled", zap.String("battle", b.ID), zap.Int("round", b.Round))
	} else {
		b.fleeAttempts++
	}
	return res, nil
}

// EndRound ticks every living combatant's effect durations and ability
// cooldowns, in registration order.
func (b *Battle) EndRound() RoundSummary {
	sum := RoundSummary{Round: b.Round, Expired: make(map[string][]effect.Expiry)}
	for _, c := range b.combatants {
		if !c.IsAlive() {
			continue
		}
		if exp := b.resolver.Effects().TickDurations(c); len(exp) > 0 {
			sum.Expired[c.UID] = exp
		}
		c.Abilities.TickCooldowns()
	}
	sum.Outcome = b.Outcome()
	if sum.Outcome != OutcomeOngoing {
		b.logger.Info("battle ended",
			zap.String("battle", b.ID),
			zap.Int("rounds", b.Round),
			zap.Stringer("outcome", sum.Outcome),
		)
	}
	return sum
}

func (b *Battle) checkActor(actor *Combatant) error {
	if actor == nil || b.Combatant(actor.UID) != actor || !actor.IsAlive() {
		return ErrInvalidActor
	}
	return nil
}
