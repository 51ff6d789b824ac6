package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateImport indicates a source file that was already ingested.
var ErrDuplicateImport = errors.New("import file already processed")

// ImportLedger tracks which source files have been ingested so a re-posted
// import cannot create duplicate purchase-order versions.
type ImportLedger struct {
	pool *pgxpool.Pool
}

// NewImportLedger constructs the ledger.
func NewImportLedger(pool *pgxpool.Pool) *ImportLedger {
	return &ImportLedger{pool: pool}
}

// Claim records the filename, failing with ErrDuplicateImport when it was
// claimed before.
func (l *ImportLedger) Claim(ctx context.Context, filename string) error {
	if l == nil {
		return errors.New("import ledger not initialised")
	}
	if filename == "" {
		return errors.New("import filename required")
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO po_import_files (filename, created_at) VALUES ($1, $2)`,
		filename, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateImport
		}
		return err
	}
	return nil
}

// Release removes a claim, typically after the import itself failed.
func (l *ImportLedger) Release(ctx context.Context, filename string) error {
	if l == nil {
		return nil
	}
	_, err := l.pool.Exec(ctx, `DELETE FROM po_import_files WHERE filename = $1`, filename)
	return err
}
