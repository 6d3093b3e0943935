package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					payee_name TEXT,
					amount TEXT NOT NULL,
					is_credit BOOLEAN NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'PENDING',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_tenant_date ON transactions(tenant_id, date)`,
				`CREATE INDEX idx_transactions_status ON transactions(status)`,

				`CREATE TABLE IF NOT EXISTS payee_patterns (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL,
					canonical_name TEXT NOT NULL,
					account_code TEXT,
					account_name TEXT,
					confidence_boost REAL NOT NULL DEFAULT 10,
					match_count INTEGER NOT NULL DEFAULT 0,
					is_recurring BOOLEAN NOT NULL DEFAULT 0,
					expected_amount TEXT,
					amount_tolerance TEXT,
					version INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(tenant_id, canonical_name)
				)`,
				`CREATE INDEX idx_patterns_tenant ON payee_patterns(tenant_id)`,

				`CREATE TABLE IF NOT EXISTS pattern_aliases (
					pattern_id TEXT NOT NULL,
					alias TEXT NOT NULL,
					position INTEGER NOT NULL,
					PRIMARY KEY (pattern_id, alias),
					FOREIGN KEY (pattern_id) REFERENCES payee_patterns(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_aliases_alias ON pattern_aliases(alias)`,

				`CREATE TABLE IF NOT EXISTS categorizations (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					tenant_id TEXT NOT NULL,
					account_code TEXT,
					account_name TEXT,
					source TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					vat_type TEXT NOT NULL DEFAULT 'STANDARD',
					reasoning TEXT,
					is_split BOOLEAN NOT NULL DEFAULT 0,
					split_amount TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_categorizations_transaction ON categorizations(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add audit log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS audit_log (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					tenant_id TEXT NOT NULL,
					action TEXT NOT NULL,
					entity TEXT NOT NULL,
					entity_id TEXT NOT NULL,
					detail TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_audit_tenant_entity ON audit_log(tenant_id, entity, entity_id)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add accuracy metrics",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS accuracy_metrics (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					tenant_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					event TEXT NOT NULL,
					source TEXT NOT NULL,
					account_code TEXT,
					previous_account_code TEXT,
					confidence REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_metrics_tenant_event ON accuracy_metrics(tenant_id, event)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Add reviewed_at to categorizations and search indexes",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE categorizations ADD COLUMN reviewed_at DATETIME`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_description ON transactions(description)`,
				`CREATE INDEX IF NOT EXISTS idx_categorizations_tenant ON categorizations(tenant_id)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
