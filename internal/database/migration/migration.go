package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"demoapi/internal/model"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id    INTEGER PRIMARY KEY,
  name  TEXT    NOT NULL,
  email TEXT    NOT NULL,
  role  TEXT    NOT NULL DEFAULT 'user'
);`,
	},
	{
		Name: "create_table_products",
		SQL: `CREATE TABLE IF NOT EXISTS products (
  id    INTEGER          PRIMARY KEY,
  name  TEXT             NOT NULL,
  price DOUBLE PRECISION NOT NULL CHECK (price >= 0),
  stock INTEGER          NOT NULL CHECK (stock >= 0)
);`,
	},
}

// Seed is the fixture data inserted into a freshly created schema.
type Seed struct {
	Users    []model.User
	Products []model.Product
}

// EnsureMigrated creates the schema and inserts the seed when the users table does not exist yet.
func EnsureMigrated(ctx context.Context, db *sql.DB, seed Seed, log *zap.Logger) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"))

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.users') IS NOT NULL").Scan(&exists); err != nil {
		log.Error("db_migration_failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if exists {
		log.Info("db_migration_skip", zap.Duration("duration", time.Since(start)))
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed", zap.String("migration_step", step.Name), zap.Error(err))
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step", zap.String("migration_step", step.Name), zap.Duration("step_duration", time.Since(stepStart)))
	}

	for _, u := range seed.Users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)`,
			u.ID, u.Name, u.Email, u.Role,
		); err != nil {
			return fmt.Errorf("seed user %d: %w", u.ID, err)
		}
	}
	for _, p := range seed.Products {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (id, name, price, stock) VALUES ($1, $2, $3, $4)`,
			p.ID, p.Name, p.Price, p.Stock,
		); err != nil {
			return fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	log.Info("db_migration_success",
		zap.Int("seed_users", len(seed.Users)),
		zap.Int("seed_products", len(seed.Products)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
