package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// migrationFile is one ordered SQL file on disk, named
// {version}_{name}.up.sql (golang-migrate convention).
type migrationFile struct {
	version  string
	filename string
}

// Migrator applies the ordered SQL files under a migrations directory and
// records what ran in public.schema_migrations.
type Migrator struct {
	db  *sql.DB
	dir string
}

func NewMigrator(db *sql.DB, dir string) *Migrator {
	return &Migrator{db: db, dir: dir}
}

// Up applies every pending up-migration, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("load applied versions: %w", err)
	}

	pending, err := m.scanDir(".up.sql")
	if err != nil {
		return fmt.Errorf("scan %s: %w", m.dir, err)
	}

	for _, mf := range pending {
		if applied[mf.version] {
			continue
		}
		err := m.runFile(ctx, mf.filename, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO public.schema_migrations (version, filename) VALUES ($1, $2)`,
				mf.version, mf.filename)
			return err
		})
		if err != nil {
			return err
		}
		log.Printf("INFO: applied migration %s", mf.filename)
	}
	return nil
}

// Down rolls back the most recently applied migration using its paired
// .down.sql file. A clean database is not an error.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	var version, upFile string
	err := m.db.QueryRowContext(ctx,
		`SELECT version, filename FROM public.schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &upFile)
	if err == sql.ErrNoRows {
		log.Println("INFO: nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find last migration: %w", err)
	}

	downFile := strings.Replace(upFile, ".up.sql", ".down.sql", 1)
	err = m.runFile(ctx, downFile, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM public.schema_migrations WHERE version = $1`, version)
		return err
	})
	if err != nil {
		return err
	}
	log.Printf("INFO: rolled back migration %s", downFile)
	return nil
}

// runFile executes one SQL file plus a bookkeeping statement in a single
// transaction.
func (m *Migrator) runFile(
	ctx context.Context,
	filename string,
	record func(context.Context, *sql.Tx) error,
) error {
	sqlText, err := os.ReadFile(filepath.Join(m.dir, filename))
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", filename, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(sqlText)); err != nil {
		return fmt.Errorf("exec %s: %w", filename, err)
	}
	if err := record(ctx, tx); err != nil {
		return fmt.Errorf("record %s: %w", filename, err)
	}
	return tx.Commit()
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS public.schema_migrations (
			version    TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM public.schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// scanDir lists migration files with the given suffix in version order.
func (m *Migrator) scanDir(suffix string) ([]migrationFile, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		version, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			version = e.Name()
		}
		files = append(files, migrationFile{version: version, filename: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}
