package db

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed migrations/0001_schema.sql
var schemaSQL string

// Migrate applies the embedded schema. Every statement is idempotent
// (CREATE TABLE/INDEX IF NOT EXISTS), so this is safe to call on every
// service startup rather than needing a separate versioned-migration
// framework.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("db: apply schema: %w", err)
	}
	return nil
}
