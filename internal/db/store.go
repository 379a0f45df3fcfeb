// Package db is the Postgres access layer, built on pgx/v5. It implements
// manifest.Inserter, loads the in-memory snapshots internal/enrich,
// internal/resolve, and internal/manifest's Preflight need, and owns the
// transaction bookkeeping (transactions, outputs, raw_files) and the
// advisory lock that serializes ingestion against concurrent writers.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/objstore"
)

// ingestionLockKey is the pg_advisory_xact_lock key every transaction
// acquires before touching hierarchy or deployment tables, serializing
// concurrent ingestion attempts per spec §4.8's "one transaction commits at
// a time" requirement.
const ingestionLockKey = 0x73617066 // "sapf" packed into an int64-safe value

// Store wraps a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Tx begins a pgx transaction and acquires the ingestion advisory lock
// within it, returning a Tx scoped to the lifetime of the caller's
// transaction. The advisory lock is released automatically on commit or
// rollback since it is a transaction-scoped (xact) lock.
func (s *Store) Tx(ctx context.Context) (*Tx, error) {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("db: begin: %w", err)
	}
	if _, err := pgxTx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(ingestionLockKey)); err != nil {
		pgxTx.Rollback(ctx)
		return nil, fmt.Errorf("db: acquire ingestion lock: %w", err)
	}
	return &Tx{pgxTx: pgxTx}, nil
}

// InsertTransactionPending writes the transaction's audit row outside any
// mutating database transaction, autocommitting immediately — per spec
// §4.8 step 2, so later raw_files FK inserts always have a valid
// transaction id to reference, even if everything after this fails.
func (s *Store) InsertTransactionPending(ctx context.Context, t model.Transaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transactions (id, username, message, attempted_at, outcome, receipt) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.User, t.Message, t.AttemptedAt, string(t.Outcome), t.Receipt)
	if err != nil {
		return fmt.Errorf("db: insert pending transaction: %w", err)
	}
	return nil
}

// LiveObjectKeys returns every object-store key still referenced by a row
// in raw_files or outputs, for internal/objstore's GC reconciliation —
// anything the bucket holds outside this set is an orphan left by the
// upload-first rule (an object written before its referencing row committed,
// in a transaction that then failed or rolled back).
func (s *Store) LiveObjectKeys(ctx context.Context) (map[string]bool, error) {
	live := map[string]bool{}

	rows, err := s.pool.Query(ctx, `SELECT hash FROM raw_files`)
	if err != nil {
		return nil, fmt.Errorf("db: list live raw file hashes: %w", err)
	}
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			rows.Close()
			return nil, err
		}
		live[objstore.RawFileKey(hash)] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT artifact_key, repro_bundle_key FROM outputs`)
	if err != nil {
		return nil, fmt.Errorf("db: list live output keys: %w", err)
	}
	for rows.Next() {
		var artifactKey, reproKey string
		if err := rows.Scan(&artifactKey, &reproKey); err != nil {
			rows.Close()
			return nil, err
		}
		live[artifactKey] = true
		live[reproKey] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return live, nil
}

// GetOutput loads one output row by id, for the download endpoint to
// resolve which object-store keys a requested output id actually names.
func (s *Store) GetOutput(ctx context.Context, id uuid.UUID) (*model.Output, error) {
	var out model.Output
	err := s.pool.QueryRow(ctx,
		`SELECT id, transaction_id, artifact_key, repro_bundle_key, row_count, is_latest, created_at
		 FROM outputs WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.TransactionID, &out.ArtifactKey, &out.ReproBundleKey, &out.RowCount, &out.IsLatest, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db: get output %s: %w", id, err)
	}
	return &out, nil
}

// UpdateTransactionOutcome finalizes a transaction row's outcome and
// receipt in place, autocommitting. Called whether the transaction was
// accepted, rejected, or (for dry runs) rolled back everywhere else.
func (s *Store) UpdateTransactionOutcome(ctx context.Context, id uuid.UUID, outcome model.TransactionOutcome, receipt []byte) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE transactions SET outcome = $2, receipt = $3 WHERE id = $1`,
		id, string(outcome), receipt)
	if err != nil {
		return fmt.Errorf("db: update transaction outcome: %w", err)
	}
	return nil
}
