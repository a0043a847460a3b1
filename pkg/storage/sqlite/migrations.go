// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/lanternid/lantern/pkg/logger"
)

//go:embed migrations/*.sql
var embedded embed.FS

// migrate brings the schema up to the latest version. Migrations are
// embedded in the binary and applied with goose on every open.
func migrate(ctx context.Context, db *sql.DB) error {
	// goose wants the .sql files at the root of the filesystem.
	src, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(database.DialectSQLite3, db, src)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if len(results) > 0 {
		logger.Infow("applied database migrations", "count", len(results))
	}
	return nil
}
