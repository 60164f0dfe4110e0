// Package arena runs unattended battles between a party and an encounter
// spawned from NPC templates, driving every combatant with the template
// decision tables and Lua hooks.
package arena

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/catalog"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

// Store persists finished or interrupted battles.
type Store interface {
	Save(ctx context.Context, rec *postgres.BattleRecord) error
	AddLoot(ctx context.Context, battleID string, loot npc.LootResult) error
}

// Report summarises one battle run.
type Report struct {
	BattleID  string
	Outcome   combat.Outcome
	Rounds    int
	Survivors []string
	Loot      npc.LootResult
	Algorithm string
	Seed      uint64
	Stats     dice.Stats
}

// Arena owns everything needed to fight battles. It is not safe for
// concurrent use.
type Arena struct {
	roster    config.ArenaConfig
	maxRounds int
	cat       *catalog.Catalog
	rng       *dice.Provider
	scripts   *scripting.Manager
	resolver  *combat.Resolver
	scheduler *combat.Scheduler
	decider   *npc.Decider
	store     Store
	logger    *zap.Logger
}

// New assembles an Arena. scripts may be nil.
//
// Precondition: cat, rng, resolver, scheduler and decider must be non-nil.
func New(
	roster config.ArenaConfig,
	rules config.CombatConfig,
	cat *catalog.Catalog,
	rng *dice.Provider,
	scripts *scripting.Manager,
	resolver *combat.Resolver,
	scheduler *combat.Scheduler,
	decider *npc.Decider,
	logger *zap.Logger,
) *Arena {
	if cat == nil || rng == nil || resolver == nil || scheduler == nil || decider == nil {
		panic("arena.New: catalog, rng, resolver, scheduler and decider must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arena{
		roster:    roster,
		maxRounds: rules.MaxRounds,
		cat:       cat,
		rng:       rng,
		scripts:   scripts,
		resolver:  resolver,
		scheduler: scheduler,
		decider:   decider,
		logger:    logger,
	}
}

// SetStore enables persistence of every battle this Arena fights.
func (a *Arena) SetStore(s Store) {
	a.store = s
}

// Spawn builds the configured party followed by the encounter. When a
// template appears more than once its combatants are numbered.
//
// Postcondition: Returns an error naming the first unknown template.
func (a *Arena) Spawn() ([]*combat.Combatant, error) {
	ids := append(append([]string{}, a.roster.Party...), a.roster.Encounter...)
	total := make(map[string]int, len(ids))
	for _, id := range ids {
		total[id]++
	}
	seen := make(map[string]int, len(ids))
	out := make([]*combat.Combatant, 0, len(ids))
	for _, id := range ids {
		tmpl, ok := a.cat.NPCs.Get(id)
		if !ok {
			return nil, fmt.Errorf("arena: unknown npc template %q", id)
		}
		c, err := npc.Spawn(tmpl, a.cat.Registries())
		if err != nil {
			return nil, err
		}
		if total[id] > 1 {
			seen[id]++
			c.Name = fmt.Sprintf("%s %d", c.Name, seen[id])
		}
		out = append(out, c)
	}
	return out, nil
}

// Run spawns the roster and fights until an outcome or the round cap.
func (a *Arena) Run(ctx context.Context) (Report, error) {
	roster, err := a.Spawn()
	if err != nil {
		return Report{}, err
	}
	b, err := combat.NewBattle(a.resolver, a.scheduler, a.logger, roster...)
	if err != nil {
		return Report{}, err
	}
	return a.Fight(ctx, b)
}

// Resume rebuilds a stored battle and fights it to completion.
func (a *Arena) Resume(ctx context.Context, snap combat.BattleSnapshot) (Report, error) {
	b, err := combat.RestoreBattle(snap, a.cat.Registries(), a.resolver, a.scheduler)
	if err != nil {
		return Report{}, fmt.Errorf("arena: restoring battle %q: %w", snap.ID, err)
	}
	a.logger.Info("battle resumed", zap.String("battle", b.ID), zap.Int("round", b.Round))
	return a.Fight(ctx, b)
}

// Fight plays rounds of b until it ends, the round cap is hit or ctx is
// cancelled. The battle is stored in every case when a Store is set.
//
// Postcondition: on cancellation the partial report is returned with ctx.Err().
func (a *Arena) Fight(ctx context.Context, b *combat.Battle) (Report, error) {
	if a.scripts != nil {
		b.BindScripts(a.scripts)
	}
	var runErr error
	for b.Outcome() == combat.OutcomeOngoing {
		if a.maxRounds > 0 && b.Round >= a.maxRounds {
			a.logger.Warn("round limit reached", zap.String("battle", b.ID), zap.Int("rounds", b.Round))
			break
		}
		if runErr = ctx.Err(); runErr != nil {
			break
		}
		if err := a.round(b); err != nil {
			return Report{}, err
		}
	}

	rep := a.report(b)
	if rep.Outcome == combat.OutcomeVictory {
		loot, err := a.loot(b)
		if err != nil {
			return rep, err
		}
		rep.Loot = loot
	}
	if err := a.persist(context.WithoutCancel(ctx), b, rep); err != nil {
		return rep, err
	}
	a.logger.Info("battle summary",
		zap.String("battle", rep.BattleID),
		zap.Stringer("outcome", rep.Outcome),
		zap.Int("rounds", rep.Rounds),
		zap.Strings("survivors", rep.Survivors),
		zap.Int("currency", rep.Loot.Currency),
		zap.Int("loot_items", len(rep.Loot.Items)),
		zap.Any("rng_stats", rep.Stats),
	)
	return rep, runErr
}

func (a *Arena) round(b *combat.Battle) error {
	order, err := b.StartRound()
	if err != nil {
		return err
	}
	for _, c := range order {
		if b.Outcome() != combat.OutcomeOngoing {
			break
		}
		if !c.IsAlive() {
			continue
		}
		start, err := b.BeginTurn(c)
		if err != nil {
			return err
		}
		for _, t := range start.Ticks {
			a.logger.Debug("effect tick",
				zap.String("actor", c.Name),
				zap.String("effect", t.EffectID),
				zap.Int("amount", t.Amount),
			)
		}
		if !start.CanAct || b.Outcome() != combat.OutcomeOngoing {
			continue
		}
		a.act(c, b)
	}
	b.EndRound()
	return nil
}

// act resolves the decided action, falling back to a plain attack and then
// to defending when the resolver rejects a choice.
func (a *Arena) act(c *combat.Combatant, b *combat.Battle) {
	tmpl, ok := a.cat.NPCs.Get(c.TemplateID)
	if !ok {
		tmpl = &npc.Template{ID: c.TemplateID}
	}
	attempts := []func() (combat.ActionRequest, error){
		func() (combat.ActionRequest, error) { return a.decider.Decide(tmpl, c, b) },
		func() (combat.ActionRequest, error) { return a.decider.Fallback(c, b) },
		func() (combat.ActionRequest, error) { return combat.ActionRequest{Kind: combat.ActionDefend}, nil },
	}
	for _, next := range attempts {
		req, err := next()
		if err == nil {
			var res combat.Result
			if res, err = b.ResolveAction(c, req); err == nil {
				a.logResult(c, res)
				return
			}
		}
		a.logger.Debug("action rejected",
			zap.String("actor", c.Name),
			zap.String("action", string(req.Kind)),
			zap.Error(err),
		)
	}
	a.logger.Warn("no legal action", zap.String("actor", c.Name), zap.Int("round", b.Round))
}

func (a *Arena) logResult(c *combat.Combatant, res combat.Result) {
	fields := []zap.Field{
		zap.String("actor", c.Name),
		zap.String("action", string(res.Kind)),
	}
	if res.TargetID != "" {
		fields = append(fields, zap.String("target", res.TargetID))
	}
	if res.AbilityID != "" {
		fields = append(fields, zap.String("ability", res.AbilityID))
	}
	if res.ItemID != "" {
		fields = append(fields, zap.String("item", res.ItemID))
	}
	fields = append(fields,
		zap.Bool("hit", res.Hit),
		zap.Bool("crit", res.Crit),
		zap.Int("damage", res.Damage),
		zap.Int("healed", res.Healed),
	)
	if res.Kind == combat.ActionFlee {
		fields = append(fields, zap.Float64("flee_chance", res.FleeChance), zap.Bool("fled", res.Fled))
	}
	a.logger.Debug("action resolved", fields...)
}

func (a *Arena) report(b *combat.Battle) Report {
	alg, seed := a.rng.Algorithm()
	rep := Report{
		BattleID:  b.ID,
		Outcome:   b.Outcome(),
		Rounds:    b.Round,
		Algorithm: alg,
		Seed:      seed,
		Stats:     a.rng.Stats(),
	}
	for _, c := range b.Combatants() {
		if c.IsAlive() {
			rep.Survivors = append(rep.Survivors, c.Name)
		}
	}
	return rep
}

// loot rolls the loot table of every defeated hostile, in registration order.
func (a *Arena) loot(b *combat.Battle) (npc.LootResult, error) {
	var out npc.LootResult
	for _, c := range b.Combatants() {
		if c.Side() != combat.SideHostile || c.IsAlive() {
			continue
		}
		tmpl, ok := a.cat.NPCs.Get(c.TemplateID)
		if !ok || tmpl.Loot == nil {
			continue
		}
		res, err := npc.GenerateLoot(*tmpl.Loot, a.rng)
		if err != nil {
			return out, fmt.Errorf("arena: loot for %s: %w", c.Name, err)
		}
		out.Currency += res.Currency
		out.Items = append(out.Items, res.Items...)
	}
	return out, nil
}

func (a *Arena) persist(ctx context.Context, b *combat.Battle, rep Report) error {
	if a.store == nil {
		return nil
	}
	rec := &postgres.BattleRecord{
		Outcome:   rep.Outcome.String(),
		Algorithm: rep.Algorithm,
		Seed:      rep.Seed,
		Snapshot:  b.Snapshot(),
	}
	if err := a.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("arena: saving battle: %w", err)
	}
	if rep.Loot.Currency > 0 || len(rep.Loot.Items) > 0 {
		if err := a.store.AddLoot(ctx, rec.ID, rep.Loot); err != nil {
			return fmt.Errorf("arena: saving loot: %w", err)
		}
	}
	a.logger.Info("battle saved", zap.String("battle", rec.ID))
	return nil
}
