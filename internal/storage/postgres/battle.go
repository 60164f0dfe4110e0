package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
)

// ErrBattleNotFound is returned when a battle lookup yields no results.
var ErrBattleNotFound = errors.New("battle not found")

// BattleRecord is one stored battle: its latest snapshot plus the RNG
// settings needed to replay it.
type BattleRecord struct {
	ID        string
	Round     int
	Outcome   string
	Algorithm string
	Seed      uint64
	Currency  int
	Snapshot  combat.BattleSnapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BattleRepository persists battle snapshots and their loot.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// Save inserts rec or replaces the stored round, outcome and snapshot of an
// existing battle with the same ID.
//
// Precondition: rec.Snapshot.ID must be a UUID.
// Postcondition: rec.ID, CreatedAt and UpdatedAt reflect the stored row.
func (r *BattleRepository) Save(ctx context.Context, rec *BattleRecord) error {
	id, err := uuid.Parse(rec.Snapshot.ID)
	if err != nil {
		return fmt.Errorf("battle id %q: %w", rec.Snapshot.ID, err)
	}
	body, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("encoding battle snapshot: %w", err)
	}
	// The seed is stored as the int64 with the same bit pattern.
	err = r.db.QueryRow(ctx, `
		INSERT INTO battles (id, round, outcome, rng_algorithm, rng_seed, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET round = EXCLUDED.round,
		    outcome = EXCLUDED.outcome,
		    snapshot = EXCLUDED.snapshot,
		    updated_at = NOW()
		RETURNING created_at, updated_at`,
		id, rec.Snapshot.Round, rec.Outcome, rec.Algorithm, int64(rec.Seed), body,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving battle: %w", err)
	}
	rec.ID = id.String()
	rec.Round = rec.Snapshot.Round
	return nil
}

// Get returns the battle with the given ID.
//
// Postcondition: Returns ErrBattleNotFound if no such battle exists.
func (r *BattleRepository) Get(ctx context.Context, id string) (*BattleRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, round, outcome, rng_algorithm, rng_seed, currency, snapshot, created_at, updated_at
		FROM battles WHERE id = $1`, id)
	rec, err := scanBattle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBattleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying battle: %w", err)
	}
	return rec, nil
}

// List returns up to limit battles, most recently updated first.
//
// Precondition: limit must be > 0.
func (r *BattleRepository) List(ctx context.Context, limit int) ([]*BattleRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, round, outcome, rng_algorithm, rng_seed, currency, snapshot, created_at, updated_at
		FROM battles ORDER BY updated_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing battles: %w", err)
	}
	defer rows.Close()

	var out []*BattleRecord
	for rows.Next() {
		rec, err := scanBattle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning battle: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a battle and its loot.
//
// Postcondition: Returns ErrBattleNotFound if no row was deleted.
func (r *BattleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM battles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBattleNotFound
	}
	return nil
}

// AddLoot records loot dropped in a battle in a single transaction.
//
// Precondition: the battle must already be saved.
// Postcondition: the battle's currency grows by loot.Currency and every item is stored.
func (r *BattleRepository) AddLoot(ctx context.Context, battleID string, loot npc.LootResult) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning loot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE battles SET currency = currency + $2, updated_at = NOW() WHERE id = $1`,
		battleID, loot.Currency)
	if err != nil {
		return fmt.Errorf("updating battle currency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBattleNotFound
	}
	for _, item := range loot.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO battle_loot (battle_id, instance_id, item_id, quantity)
			VALUES ($1, $2, $3, $4)`,
			battleID, item.InstanceID, item.ItemDefID, item.Quantity,
		); err != nil {
			return fmt.Errorf("inserting loot %q: %w", item.ItemDefID, err)
		}
	}
	return tx.Commit(ctx)
}

// Loot returns the currency and items recorded for a battle, items ordered by item ID.
//
// Postcondition: Returns ErrBattleNotFound if the battle does not exist.
func (r *BattleRepository) Loot(ctx context.Context, battleID string) (npc.LootResult, error) {
	var out npc.LootResult
	err := r.db.QueryRow(ctx, `SELECT currency FROM battles WHERE id = $1`, battleID).Scan(&out.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, ErrBattleNotFound
	}
	if err != nil {
		return out, fmt.Errorf("querying battle currency: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT instance_id, item_id, quantity FROM battle_loot
		WHERE battle_id = $1 ORDER BY item_id, instance_id`, battleID)
	if err != nil {
		return out, fmt.Errorf("listing loot: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item     npc.LootItem
			instance uuid.UUID
		)
		if err := rows.Scan(&instance, &item.ItemDefID, &item.Quantity); err != nil {
			return out, fmt.Errorf("scanning loot: %w", err)
		}
		item.InstanceID = instance.String()
		out.Items = append(out.Items, item)
	}
	return out, rows.Err()
}

func scanBattle(row pgx.Row) (*BattleRecord, error) {
	var (
		rec  BattleRecord
		id   uuid.UUID
		seed int64
		body []byte
	)
	if err := row.Scan(&id, &rec.Round, &rec.Outcome, &rec.Algorithm, &seed, &rec.Currency,
		&body, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("decoding battle snapshot: %w", err)
	}
	rec.ID = id.String()
	rec.Seed = uint64(seed)
	return &rec, nil
}
