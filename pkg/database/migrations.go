package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are applied in order; versions must be unique and ascending.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_vendors",
		SQL: `CREATE TABLE IF NOT EXISTS vendors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			currency TEXT NOT NULL DEFAULT '',
			tax_id TEXT NOT NULL DEFAULT '',
			credit_limit TEXT NOT NULL DEFAULT '',
			payment_terms TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_vendors_name ON vendors(name COLLATE NOCASE);`,
	},
	{
		Version: 2,
		Name:    "create_purchase_orders",
		SQL: `CREATE TABLE IF NOT EXISTS purchase_orders (
			number TEXT PRIMARY KEY,
			vendor_id TEXT NOT NULL,
			amount TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (vendor_id) REFERENCES vendors(id)
		);
		CREATE TABLE IF NOT EXISTS goods_receipts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			po_number TEXT NOT NULL,
			quantity TEXT NOT NULL DEFAULT '0',
			received_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (po_number) REFERENCES purchase_orders(number)
		);
		CREATE INDEX IF NOT EXISTS idx_receipts_po ON goods_receipts(po_number);`,
	},
	{
		Version: 3,
		Name:    "create_invoices",
		SQL: `CREATE TABLE IF NOT EXISTS invoices (
			id TEXT PRIMARY KEY,
			vendor_id TEXT NOT NULL,
			invoice_number TEXT NOT NULL,
			total TEXT NOT NULL DEFAULT '',
			seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_invoices_vendor_number
			ON invoices(vendor_id, invoice_number);`,
	},
	{
		Version: 4,
		Name:    "create_workflow_instances",
		SQL: `CREATE TABLE IF NOT EXISTS workflow_instances (
			id TEXT PRIMARY KEY,
			document_path TEXT NOT NULL,
			state TEXT NOT NULL,
			status TEXT NOT NULL,
			current_step TEXT NOT NULL DEFAULT '',
			previous_step TEXT NOT NULL DEFAULT '',
			retry_count INTEGER NOT NULL DEFAULT 0,
			max_retries INTEGER NOT NULL DEFAULT 3,
			requires_human_review INTEGER NOT NULL DEFAULT 0,
			error_details TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			claimed INTEGER NOT NULL DEFAULT 0,
			document_json TEXT,
			result_json TEXT,
			history_json TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_instances_state ON workflow_instances(state);
		CREATE INDEX IF NOT EXISTS idx_instances_claimed ON workflow_instances(claimed, state);`,
	},
	{
		Version: 5,
		Name:    "create_validation_results",
		SQL: `CREATE TABLE IF NOT EXISTS validation_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instance_id TEXT NOT NULL,
			passed INTEGER NOT NULL,
			confidence_score REAL NOT NULL,
			rules_version TEXT NOT NULL DEFAULT '',
			result_json TEXT NOT NULL,
			validated_at DATETIME NOT NULL,
			FOREIGN KEY (instance_id) REFERENCES workflow_instances(id)
		);
		CREATE INDEX IF NOT EXISTS idx_results_instance ON validation_results(instance_id, validated_at);`,
	},
}

// Migrator applies pending migrations in version order.
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a migrator for the given database.
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// RunMigrations applies all pending migrations.
func (m *Migrator) RunMigrations() error {
	if err := m.createMigrationsTable(); err != nil {
		return err
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name))

		err := m.db.WithTransaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(mig.SQL); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", mig.Version, mig.Name, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
				mig.Version, mig.Name,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", mig.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
