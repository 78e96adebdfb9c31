package postgres

import (
	"context"
	"fmt"

	"campsite/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// Statements are idempotent and run in order inside one transaction.
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS reservations (
		id            BIGSERIAL PRIMARY KEY,
		contact_email TEXT        NOT NULL CHECK (length(contact_email) > 0),
		contact_name  TEXT        NOT NULL CHECK (length(contact_name) > 0),
		start_date    DATE        NOT NULL,
		end_date      DATE        NOT NULL,
		cancelled     BOOLEAN     NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT reservations_dates_ordered CHECK (end_date > start_date)
	)`,
	`CREATE INDEX IF NOT EXISTS reservations_active_dates_idx
		ON reservations (start_date, end_date)
		WHERE cancelled = FALSE`,
	`CREATE INDEX IF NOT EXISTS reservations_contact_email_idx
		ON reservations (contact_email)`,
}

func RunMigration(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
	log.Info("Running Postgres migrations", "statements", len(Statements))

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	log.Info("All Postgres migrations applied")
	return nil
}
