package sqlstore

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/upb/contact-directory/config"
	"go.uber.org/zap"
)

// embedMigrations holds one goose migration directory per dialect.
//
//go:embed migrations/sqlite3/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// RunMigrations executes all pending goose migrations for the connection's dialect.
func (db *DB) RunMigrations(ctx context.Context) error {
	dir := "migrations/" + db.driver
	db.logger.Info("running database migrations", zap.String("dir", dir))

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(db.driver); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if db.driver == config.DriverSQLite {
		if err := db.upgradeLegacyUsers(ctx); err != nil {
			return err
		}
	}

	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}

	db.logger.Info("migrations completed successfully", zap.Int64("version", version))
	return nil
}

// upgradeLegacyUsers adds the role column to users tables created before roles existed.
// Rows it touches get their role from the startup backfill.
func (db *DB) upgradeLegacyUsers(ctx context.Context) error {
	var tables int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'users'`).Scan(&tables)
	if err != nil {
		return fmt.Errorf("inspect legacy schema: %w", err)
	}
	if tables == 0 {
		return nil
	}

	var roleColumns int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('users') WHERE name = 'role'`).Scan(&roleColumns)
	if err != nil {
		return fmt.Errorf("inspect users columns: %w", err)
	}
	if roleColumns > 0 {
		return nil
	}

	if _, err := db.ExecContext(ctx, `ALTER TABLE users ADD COLUMN role TEXT`); err != nil {
		return fmt.Errorf("add users.role column: %w", err)
	}
	db.logger.Warn("upgraded legacy users table with role column")
	return nil
}
