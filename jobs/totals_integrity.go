package jobs

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/povault/povault/internal/purchase"
)

// TotalsIntegrity re-derives each current version's total from its stored
// line set and reports rows whose header total has drifted. It never repairs
// rows; a drifted total means either a bug or an out-of-band edit, and both
// deserve human eyes.
type TotalsIntegrity struct {
	pool   *pgxpool.Pool
	repo   *purchase.Repository
	logger *slog.Logger
}

// NewTotalsIntegrity constructs the scan job.
func NewTotalsIntegrity(pool *pgxpool.Pool, logger *slog.Logger) *TotalsIntegrity {
	return &TotalsIntegrity{pool: pool, repo: purchase.NewRepository(pool), logger: logger}
}

// Handle runs one full scan.
func (j *TotalsIntegrity) Handle(ctx context.Context, t *asynq.Task) error {
	const query = `
		SELECT po.id, COALESCE(po.order_type, 'standard'), COALESCE(po.vat_percent, 0), COALESCE(po.total_amount, 0)
		FROM purchase_orders po
		JOIN (
			SELECT po_number, MAX(id) AS id
			FROM purchase_orders
			GROUP BY po_number
		) latest ON latest.id = po.id`

	rows, err := j.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	type header struct {
		id         int64
		orderType  string
		vatPercent float64
		total      float64
	}
	var headers []header
	for rows.Next() {
		var h header
		if err := rows.Scan(&h.id, &h.orderType, &h.vatPercent, &h.total); err != nil {
			return err
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	start := time.Now()
	var drifted int
	for _, h := range headers {
		lines, err := j.repo.GetLines(ctx, h.id)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			continue
		}
		summary := purchase.Summarize(lines, purchase.OrderType(h.orderType), h.vatPercent)
		if math.Abs(summary.Sum-h.total) > driftTolerance(len(lines)) {
			drifted++
			j.logger.Warn("header total drifted from line set",
				slog.Int64("purchase_order_id", h.id),
				slog.Float64("stored", h.total),
				slog.Float64("derived", summary.Sum),
			)
		}
	}

	j.logger.Info("totals integrity scan finished",
		slog.Int("scanned", len(headers)),
		slog.Int("drifted", drifted),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// driftTolerance bounds the gap between the stored header total, which is
// rounded once at the aggregate, and the per-line-rounded derivation. Each
// line can contribute up to half a cent of rounding difference.
func driftTolerance(lineCount int) float64 {
	return 0.01 + 0.005*float64(lineCount)
}

// ImportLedgerSweep deletes import-ledger rows past the retention window. The
// ledger only needs to block short-term replays; old filenames never recur.
type ImportLedgerSweep struct {
	pool      *pgxpool.Pool
	logger    *slog.Logger
	retention time.Duration
}

// NewImportLedgerSweep constructs the retention job.
func NewImportLedgerSweep(pool *pgxpool.Pool, logger *slog.Logger, retention time.Duration) *ImportLedgerSweep {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &ImportLedgerSweep{pool: pool, logger: logger, retention: retention}
}

// Handle removes expired rows.
func (j *ImportLedgerSweep) Handle(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().Add(-j.retention)
	tag, err := j.pool.Exec(ctx, `DELETE FROM po_import_files WHERE created_at < $1`, cutoff)
	if err != nil {
		return err
	}
	j.logger.Info("import ledger sweep finished", slog.Int64("removed", tag.RowsAffected()))
	return nil
}
