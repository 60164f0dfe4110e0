package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func setupBattleRepo(t *testing.T) *postgres.BattleRepository {
	t.Helper()
	return postgres.NewBattleRepository(testutil.NewPool(t))
}

func makeSnapshot(round int) combat.BattleSnapshot {
	return combat.BattleSnapshot{
		ID:           uuid.New().String(),
		Round:        round,
		FleeAttempts: 1,
		Combatants: []combat.Snapshot{
			{
				UID:        uuid.New().String(),
				TemplateID: "knight",
				Name:       "Knight",
				Kind:       combat.KindPlayer,
				Level:      5,
				CurrentHP:  64,
				MaxHP:      110,
				CurrentMP:  8,
				MaxMP:      20,
				Speed:      8,
				Accuracy:   75,
				CritChance: 5,
				WeaponID:   "longsword",
				ArmorID:    "chainmail",
				LastAction: combat.ActionDefend,
				Defending:  true,
				Effects:    []effect.Snapshot{{ID: "poison", Remaining: 2, Stacks: 3, Potency: 3}},
				Abilities:  []ability.Snapshot{{ID: "power_strike", Level: 3, Experience: 40, Cooldown: 1}},
				Items:      []inventory.Stack{{ItemID: "healing_potion", Count: 2}},
			},
			{
				UID:       uuid.New().String(),
				Name:      "Goblin Warlord",
				Kind:      combat.KindBoss,
				Level:     8,
				CurrentHP: 0,
				MaxHP:     220,
				Enrage:    combat.Enrage{Round: 6, Percent: 50},
				Effects:   []effect.Snapshot{},
				Abilities: []ability.Snapshot{},
				Items:     []inventory.Stack{},
			},
		},
	}
}

func TestBattleRepository_SaveAndGet(t *testing.T) {
	repo := setupBattleRepo(t)
	ctx := context.Background()

	rec := &postgres.BattleRecord{Outcome: "ongoing", Algorithm: "pcg", Seed: 42, Snapshot: makeSnapshot(3)}
	require.NoError(t, repo.Save(ctx, rec))
	assert.Equal(t, rec.Snapshot.ID, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Round)
	assert.Equal(t, "ongoing", got.Outcome)
	assert.Equal(t, "pcg", got.Algorithm)
	assert.Equal(t, uint64(42), got.Seed)
	assert.Equal(t, 0, got.Currency)
	assert.Equal(t, rec.Snapshot, got.Snapshot)
}

func TestBattleRepository_SaveUpdatesExisting(t *testing.T) {
	repo := setupBattleRepo(t)
	ctx := context.Background()

	rec := &postgres.BattleRecord{Outcome: "ongoing", Algorithm: "pcg", Seed: 1, Snapshot: makeSnapshot(1)}
	require.NoError(t, repo.Save(ctx, rec))
	created := rec.CreatedAt

	rec.Snapshot.Round = 7
	rec.Outcome = "victory"
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Round)
	assert.Equal(t, 7, got.Snapshot.Round)
	assert.Equal(t, "victory", got.Outcome)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.False(t, got.UpdatedAt.Before(created))
}

func TestBattleRepository_SaveRejectsNonUUID(t *testing.T) {
	repo := setupBattleRepo(t)
	snap := makeSnapshot(0)
	snap.ID = "arena-1"
	err := repo.Save(context.Background(), &postgres.BattleRecord{Outcome: "ongoing", Algorithm: "pcg", Snapshot: snap})
	assert.Error(t, err)
}

func TestBattleRepository_GetNotFound(t *testing.T) {
	repo := setupBattleRepo(t)
	_, err := repo.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, postgres.ErrBattleNotFound)
}

func TestBattleRepository_List(t *testing.T) {
	repo := setupBattleRepo(t)
	ctx := context.Background()

	first := &postgres.BattleRecord{Outcome: "defeat", Algorithm: "pcg", Snapshot: makeSnapshot(2)}
	require.NoError(t, repo.Save(ctx, first))
	second := &postgres.BattleRecord{Outcome: "victory", Algorithm: "chacha8", Snapshot: makeSnapshot(4)}
	require.NoError(t, repo.Save(ctx, second))

	all, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{all[0].ID, all[1].ID})
	assert.False(t, all[0].UpdatedAt.Before(all[1].UpdatedAt))

	one, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestBattleRepository_Delete(t *testing.T) {
	repo := setupBattleRepo(t)
	ctx := context.Background()

	rec := &postgres.BattleRecord{Outcome: "fled", Algorithm: "pcg", Snapshot: makeSnapshot(1)}
	require.NoError(t, repo.Save(ctx, rec))
	require.NoError(t, repo.Delete(ctx, rec.ID))
	_, err := repo.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, postgres.ErrBattleNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), postgres.ErrBattleNotFound)
}

func TestBattleRepository_Loot(t *testing.T) {
	repo := setupBattleRepo(t)
	ctx := context.Background()

	rec := &postgres.BattleRecord{Outcome: "victory", Algorithm: "pcg", Snapshot: makeSnapshot(5)}
	require.NoError(t, repo.Save(ctx, rec))

	potion := npc.LootItem{ItemDefID: "healing_potion", InstanceID: uuid.New().String(), Quantity: 2}
	ether := npc.LootItem{ItemDefID: "ether", InstanceID: uuid.New().String(), Quantity: 1}
	require.NoError(t, repo.AddLoot(ctx, rec.ID, npc.LootResult{Currency: 12, Items: []npc.LootItem{potion}}))
	require.NoError(t, repo.AddLoot(ctx, rec.ID, npc.LootResult{Currency: 30, Items: []npc.LootItem{ether}}))

	got, err := repo.Loot(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Currency)
	assert.Equal(t, []npc.LootItem{ether, potion}, got.Items)

	stored, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, stored.Currency)
}

func TestBattleRepository_AddLootUnknownBattle(t *testing.T) {
	repo := setupBattleRepo(t)
	err := repo.AddLoot(context.Background(), uuid.New().String(), npc.LootResult{Currency: 1})
	assert.ErrorIs(t, err, postgres.ErrBattleNotFound)
}

func TestBattleRepository_AddLootIsAtomic(t *testing.T) {
	repo := setupBattleRepo(t)
	ctx := context.Background()

	rec := &postgres.BattleRecord{Outcome: "victory", Algorithm: "pcg", Snapshot: makeSnapshot(5)}
	require.NoError(t, repo.Save(ctx, rec))

	bad := npc.LootResult{Currency: 10, Items: []npc.LootItem{
		{ItemDefID: "ether", InstanceID: uuid.New().String(), Quantity: 1},
		{ItemDefID: "ether", InstanceID: uuid.New().String(), Quantity: 0},
	}}
	require.Error(t, repo.AddLoot(ctx, rec.ID, bad))

	got, err := repo.Loot(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Currency)
	assert.Empty(t, got.Items)
}

func TestBattleRepository_Property_SeedRoundTrip(t *testing.T) {
	repo := setupBattleRepo(t)
	ctx := context.Background()
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		rec := &postgres.BattleRecord{Outcome: "ongoing", Algorithm: "pcg", Seed: seed, Snapshot: makeSnapshot(0)}
		require.NoError(rt, repo.Save(ctx, rec))
		got, err := repo.Get(ctx, rec.ID)
		require.NoError(rt, err)
		assert.Equal(rt, seed, got.Seed)
	})
}
