package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taskshare/taskshare/migrations"
)

// migrationLockID serializes concurrent migrators on one database.
const migrationLockID = 727372

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// AppliedMigrations returns the names of applied migrations in order.
func (r *Repository) AppliedMigrations(ctx context.Context) ([]string, error) {
	if _, err := r.pool.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT name FROM schema_migrations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan applied migrations: %w", err)
	}
	return names, nil
}

// MigrateUp applies every pending migration, each in its own transaction.
// It returns the names it applied.
func (r *Repository) MigrateUp(ctx context.Context, all []migrations.Migration) ([]string, error) {
	var applied []string
	err := r.withMigrationLock(ctx, func(conn *pgx.Conn) error {
		done, err := appliedSet(ctx, conn)
		if err != nil {
			return err
		}

		for _, m := range all {
			if done[m.Name] {
				continue
			}
			err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, m.Up); err != nil {
					return err
				}
				_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name)
				return err
			})
			if err != nil {
				return fmt.Errorf("apply %s: %w", m.Name, err)
			}
			applied = append(applied, m.Name)
		}
		return nil
	})
	return applied, err
}

// MigrateDown reverts the last steps applied migrations, newest first.
func (r *Repository) MigrateDown(ctx context.Context, all []migrations.Migration, steps int) ([]string, error) {
	if steps <= 0 {
		return nil, errors.New("steps must be positive")
	}

	var reverted []string
	err := r.withMigrationLock(ctx, func(conn *pgx.Conn) error {
		done, err := appliedSet(ctx, conn)
		if err != nil {
			return err
		}

		for i := len(all) - 1; i >= 0 && len(reverted) < steps; i-- {
			m := all[i]
			if !done[m.Name] {
				continue
			}
			err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
				if _, err := tx.Exec(ctx, m.Down); err != nil {
					return err
				}
				_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE name = $1`, m.Name)
				return err
			})
			if err != nil {
				return fmt.Errorf("revert %s: %w", m.Name, err)
			}
			reverted = append(reverted, m.Name)
		}
		return nil
	})
	return reverted, err
}

func (r *Repository) withMigrationLock(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	if _, err := conn.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return fn(conn.Conn())
}

func appliedSet(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan applied migrations: %w", err)
	}

	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}
