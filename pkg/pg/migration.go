package pg

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/pressly/goose/v3"
)

// Migrate runs a goose command (up, down, status, version, redo, reset)
// against the write database using the SQL files in dir.
func Migrate(ctx context.Context, cfg Config, dir string, command string, args ...string) error {
	if command == "" {
		command = "up"
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("running migrations", "command", command, "dir", dir)
	if err = goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
