package sqlstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps dialect and base FS in package state.
var gooseMu sync.Mutex

// Migrate applies all pending migrations for the store dialect.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	if s == nil || s.db == nil {
		return errors.New("sqlstore: nil db")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dialect, dir := "postgres", "migrations/postgres"
	if s.dialect == DialectSQLite {
		dialect, dir = "sqlite3", "migrations/sqlite"
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("sqlstore: migrations dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, dir); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return fmt.Errorf("sqlstore: migration version: %w", err)
	}
	logger.Info("migrations_applied", "dialect", string(s.dialect), "version", version)
	return nil
}

type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
	os.Exit(1)
}
