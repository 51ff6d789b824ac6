package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTotalsIntegrity re-checks stored header totals against line sets.
	TaskTotalsIntegrity = "po:totals_integrity"
	// TaskImportLedgerSweep trims old import-ledger rows.
	TaskImportLedgerSweep = "po:import_ledger_sweep"
)

// NewTotalsIntegrityTask constructs the totals-integrity scan task.
func NewTotalsIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTotalsIntegrity, nil)
}

// NewImportLedgerSweepTask constructs the ledger-retention task.
func NewImportLedgerSweepTask() *asynq.Task {
	return asynq.NewTask(TaskImportLedgerSweep, nil)
}
