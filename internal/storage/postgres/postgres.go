// Package postgres persists battle snapshots and loot in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// applicationName tags every battle store session in pg_stat_activity.
const applicationName = "skirmish"

// A freshly started server refuses connections for a moment; NewPool pings
// up to connectAttempts times, doubling the wait from connectBackoff.
const (
	connectAttempts = 5
	connectBackoff  = 200 * time.Millisecond
)

// Pool is the connection pool shared by every battle repository.
type Pool struct {
	db *pgxpool.Pool
}

// Usage is a point-in-time view of pool connections.
type Usage struct {
	Total    int32
	Idle     int32
	Acquired int32
}

// NewPool opens a pool for cfg and waits until the server answers a ping.
//
// Precondition: cfg must pass config validation.
// Postcondition: Returns a pool that has answered a ping, or an error
// wrapping the last ping failure.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	pcfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	db, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("opening battle store pool: %w", err)
	}
	if err := waitReady(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Pool{db: db}, nil
}

func waitReady(ctx context.Context, db *pgxpool.Pool) error {
	wait := connectBackoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = db.Ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			return fmt.Errorf("pinging database after %d attempts: %w", attempt, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for database: %w", ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// Health pings the database, giving up after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.db.Ping(ctx)
}

// Usage reports how many connections are open, idle and in use.
func (p *Pool) Usage() Usage {
	st := p.db.Stat()
	return Usage{Total: st.TotalConns(), Idle: st.IdleConns(), Acquired: st.AcquiredConns()}
}

// Close releases every connection. The pool is unusable afterwards.
func (p *Pool) Close() {
	p.db.Close()
}

// DB returns the underlying pgxpool.Pool for repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.db
}
