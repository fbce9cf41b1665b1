package store

import (
	"context"
	_ "embed"
	"fmt"
)

// schemaSQL is the idempotent DDL for the reports table. Statements are
// plain CREATE ... IF NOT EXISTS so running it at every startup is safe.
//
//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the reports table and its indexes if they do not
// exist. Called once on startup before the store is used.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply reports schema: %w", err)
	}
	s.log.Debug().Msg("reports schema ensured")
	return nil
}
