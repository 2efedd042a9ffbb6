package database

import (
	"context"
	"embed"
	"fmt"
	"path"
	"strings"

	"climadex/pkg/logging"
)

//go:embed migrations
var migrationFiles embed.FS

// columnSpec describes a column added to an existing table when it is absent.
// SQLite has no ADD COLUMN IF NOT EXISTS, so presence is checked first.
type columnSpec struct {
	table       string
	column      string
	sqliteDef   string
	postgresDef string
}

type migration struct {
	name    string
	columns []columnSpec
	file    string
}

// Every step is idempotent, so Migrate can run on each start and from the
// recompute path without bookkeeping tables.
var migrations = []migration{
	{
		name: "001_create_factories",
		file: "001_create_factories.sql",
	},
	{
		name: "002_temperature_risk",
		columns: []columnSpec{
			{
				table:       "factories",
				column:      "temperature_risk",
				sqliteDef:   "TEXT NOT NULL DEFAULT 'Undefined'",
				postgresDef: "TEXT NOT NULL DEFAULT 'Undefined'",
			},
			{
				table:       "factories",
				column:      "temperature_risk_updated_at",
				sqliteDef:   "TIMESTAMP",
				postgresDef: "TIMESTAMPTZ",
			},
		},
		file: "002_index_temperature_risk.sql",
	},
}

// Migrate brings the schema up to date.
func (d *DB) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		for _, col := range m.columns {
			if err := d.ensureColumn(ctx, col); err != nil {
				return fmt.Errorf("migration %s: %w", m.name, err)
			}
		}

		if m.file == "" {
			continue
		}
		if err := d.execFile(ctx, m.file); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}

	d.logger.Debug(ctx, "[DB_MIGRATE] Schema up to date", logging.Fields{
		"driver":     d.config.Driver,
		"migrations": len(migrations),
	})
	return nil
}

func (d *DB) execFile(ctx context.Context, name string) error {
	content, err := migrationFiles.ReadFile(path.Join("migrations", d.config.Driver, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	for _, stmt := range strings.Split(string(content), "-- migrate") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing [%s]: %w", stmt, err)
		}
	}
	return nil
}

func (d *DB) ensureColumn(ctx context.Context, col columnSpec) error {
	exists, err := d.HasColumn(ctx, col.table, col.column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	def := col.sqliteDef
	if d.config.Driver == DriverPostgres {
		def = col.postgresDef
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.column, def)
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add column %s.%s: %w", col.table, col.column, err)
	}

	d.logger.Info(ctx, "[DB_MIGRATE] Column added", logging.Fields{
		"table":  col.table,
		"column": col.column,
	})
	return nil
}

// HasColumn reports whether table has a column with the given name.
func (d *DB) HasColumn(ctx context.Context, table, column string) (bool, error) {
	var query string
	switch d.config.Driver {
	case DriverSQLite:
		query = `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	case DriverPostgres:
		query = `
			SELECT COUNT(*) FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`
	default:
		return false, fmt.Errorf("unsupported database driver %q", d.config.Driver)
	}

	var count int
	if err := d.GetContext(ctx, "has_column", &count, query, table, column); err != nil {
		return false, fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	return count > 0, nil
}
