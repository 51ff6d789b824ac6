package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/povault/povault/internal/shared"
)

// RepositoryPort describes the repository operations the service relies on.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetVersion(ctx context.Context, id int64) (Version, error)
	GetLines(ctx context.Context, versionID int64) ([]Line, error)
	LatestVersionID(ctx context.Context, poNumber string) (int64, error)
	ListVersions(ctx context.Context, poNumber string) ([]Version, error)
	ListCurrent(ctx context.Context, limit, offset int, filters ListFilters) ([]ListItem, int, error)
}

// TxRepository exposes the write operations available inside one atomic unit
// of work.
type TxRepository interface {
	UpdateHeaderColumns(ctx context.Context, id int64, fragments []string, args []any) error
	UpdateTotals(ctx context.Context, id int64, totals Totals) error
	InsertVersion(ctx context.Context, v Version) (int64, error)
	DeleteLines(ctx context.Context, versionID int64) error
	InsertLine(ctx context.Context, line Line) error
	UpsertUnit(ctx context.Context, unit string) error
}

// AuditPort records mutating operations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts domain events for the metrics registry.
type MetricsPort interface {
	CountVersionFork()
	CountImportReject()
}

// ListFilters narrows the purchase-order listing.
type ListFilters struct {
	OrderBook  string
	SupplierID int64
	Search     string
	SortBy     string
	SortDir    string
}

// ListItem is one row of the purchase-order listing (current versions only).
type ListItem struct {
	ID           int64     `json:"id"`
	PONumber     string    `json:"po_number"`
	OrderBook    string    `json:"order_book"`
	SupplierCode string    `json:"supplier_code"`
	SupplierName string    `json:"supplier_name"`
	OrderDate    string    `json:"order_date"`
	OrderType    OrderType `json:"order_type"`
	TotalAmount  float64   `json:"total_amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service orchestrates purchase-order versioning and reconciliation.
type Service struct {
	repo    RepositoryPort
	columns ColumnSet
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the service. The column set describes which optional
// header columns this deployment carries.
func NewService(repo RepositoryPort, columns ColumnSet, audit AuditPort) *Service {
	return &Service{repo: repo, columns: columns, audit: audit, now: time.Now}
}

// SetMetrics attaches domain-event counters. The service works without them.
func (s *Service) SetMetrics(m MetricsPort) {
	s.metrics = m
}

// UpdateHeaderInput is a partial header edit against one version.
type UpdateHeaderInput struct {
	PurchaseOrderID int64
	Fields          HeaderUpdate
	ActorID         int64
}

// UpdateHeader applies a partial edit to the current version of a purchase
// order. Edits against any non-latest version are rejected without touching
// stored state.
func (s *Service) UpdateHeader(ctx context.Context, input UpdateHeaderInput) (Version, error) {
	version, err := s.repo.GetVersion(ctx, input.PurchaseOrderID)
	if err != nil {
		return Version{}, err
	}
	if err := s.assertLatest(ctx, version); err != nil {
		return Version{}, err
	}

	fields := input.Fields
	if fields.OrderDate != nil {
		normalized, err := NormalizeDate(*fields.OrderDate)
		if err != nil {
			return Version{}, fmt.Errorf("%w: order date must be YYYY-MM-DD", ErrValidation)
		}
		fields.OrderDate = &normalized
	}

	fragments, args, err := ProjectUpdate(s.columns, fields)
	if err != nil {
		return Version{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateHeaderColumns(ctx, version.ID, fragments, args)
	})
	if err != nil {
		return Version{}, err
	}

	s.recordAudit(ctx, input.ActorID, "PO_HEADER_UPDATE", version.ID, map[string]any{
		"po_number": version.PONumber,
		"columns":   len(fragments),
	})
	return s.repo.GetVersion(ctx, version.ID)
}

// ReplaceLinesInput is a whole-set line replacement against one version.
type ReplaceLinesInput struct {
	PurchaseOrderID int64
	VatPercent      float64
	Lines           json.RawMessage
	// UpdateCurrentHeader mutates the current version in place; otherwise the
	// header is forked into a new version and the old one is preserved.
	UpdateCurrentHeader bool
	ActorID             int64
}

// ReplaceLinesResult reports where the reconciled lines ended up.
type ReplaceLinesResult struct {
	VersionID   int64
	TotalAmount float64
}

// ReplaceLines reconciles the submitted line set and atomically replaces the
// lines of the target purchase order, either in place on the current version
// or on a freshly forked one. On any failure stored state is left exactly as
// it was.
func (s *Service) ReplaceLines(ctx context.Context, input ReplaceLinesInput) (ReplaceLinesResult, error) {
	version, err := s.repo.GetVersion(ctx, input.PurchaseOrderID)
	if err != nil {
		return ReplaceLinesResult{}, err
	}
	if err := s.assertLatest(ctx, version); err != nil {
		return ReplaceLinesResult{}, err
	}

	// The layout is owned by the PO number, never by the submission.
	orderType := version.OrderType
	if orderType == "" {
		orderType = OrderTypeStandard
	}

	lineInputs, err := DecodeLineInputs(input.Lines, orderType)
	if err != nil {
		return ReplaceLinesResult{}, err
	}
	reconciled, err := Reconcile(lineInputs, orderType, input.VatPercent)
	if err != nil {
		return ReplaceLinesResult{}, err
	}
	totals := reconciled.Totals(input.VatPercent)

	targetID := version.ID
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.UpdateCurrentHeader {
			if err := tx.UpdateTotals(ctx, version.ID, totals); err != nil {
				return err
			}
			if err := tx.DeleteLines(ctx, version.ID); err != nil {
				return err
			}
		} else {
			forked := version.Fork(totals, s.now())
			id, err := tx.InsertVersion(ctx, forked)
			if err != nil {
				return err
			}
			targetID = id
		}
		if err := insertLineSet(ctx, tx, targetID, version, reconciled.Lines); err != nil {
			return err
		}
		return upsertLineUnits(ctx, tx, reconciled.Lines)
	})
	if err != nil {
		return ReplaceLinesResult{}, err
	}
	if !input.UpdateCurrentHeader && s.metrics != nil {
		s.metrics.CountVersionFork()
	}

	s.recordAudit(ctx, input.ActorID, "PO_LINES_REPLACE", targetID, map[string]any{
		"po_number": version.PONumber,
		"lines":     len(reconciled.Lines),
		"forked":    !input.UpdateCurrentHeader,
		"total":     totals.TotalAmount,
	})
	return ReplaceLinesResult{VersionID: targetID, TotalAmount: totals.TotalAmount}, nil
}

// Get returns one version with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Version, []Line, error) {
	version, err := s.repo.GetVersion(ctx, id)
	if err != nil {
		return Version{}, nil, err
	}
	lines, err := s.repo.GetLines(ctx, id)
	if err != nil {
		return Version{}, nil, err
	}
	return version, lines, nil
}

// History returns every saved version of a PO number, oldest first.
func (s *Service) History(ctx context.Context, poNumber string) ([]Version, error) {
	if strings.TrimSpace(poNumber) == "" {
		return nil, fmt.Errorf("%w: po number required", ErrValidation)
	}
	return s.repo.ListVersions(ctx, poNumber)
}

// List returns current versions only.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]ListItem, int, error) {
	return s.repo.ListCurrent(ctx, limit, offset, filters)
}

// SummarizeVersion recomputes the display total for one version's line set.
func (s *Service) SummarizeVersion(ctx context.Context, id int64) (Summary, error) {
	version, err := s.repo.GetVersion(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	lines, err := s.repo.GetLines(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(lines, version.OrderType, version.VatPercent), nil
}

// CreateVersionInput is a plain header insert from the external API or the
// import pipeline. No reconciliation runs; lines, when present, are stored as
// given apart from dense renumbering.
type CreateVersionInput struct {
	Version Version
	Lines   []Line
}

// CreateVersion appends a new version row. For an existing PO number the
// order type is always re-derived from the prior version; a submitted value
// only matters for the very first version and defaults to standard.
func (s *Service) CreateVersion(ctx context.Context, input CreateVersionInput) (int64, error) {
	v := input.Version
	if strings.TrimSpace(v.PONumber) == "" {
		return 0, fmt.Errorf("%w: po number required", ErrValidation)
	}
	if v.OrderDate != "" {
		normalized, err := NormalizeDate(v.OrderDate)
		if err != nil {
			return 0, fmt.Errorf("%w: order date must be YYYY-MM-DD", ErrValidation)
		}
		v.OrderDate = normalized
	}

	priorID, err := s.repo.LatestVersionID(ctx, v.PONumber)
	switch {
	case err == nil:
		prior, err := s.repo.GetVersion(ctx, priorID)
		if err != nil {
			return 0, err
		}
		v.OrderType = prior.OrderType
	case errors.Is(err, ErrNotFound):
		v.OrderType = ParseOrderType(string(v.OrderType))
	default:
		return 0, err
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}

	var newID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertVersion(ctx, v)
		if err != nil {
			return err
		}
		newID = id
		renumbered := renumber(input.Lines, v.OrderType)
		if err := insertLineSet(ctx, tx, id, v, renumbered); err != nil {
			return err
		}
		return upsertLineUnits(ctx, tx, renumbered)
	})
	if err != nil {
		return 0, err
	}

	s.recordAudit(ctx, 0, "PO_VERSION_INSERT", newID, map[string]any{
		"po_number": v.PONumber,
		"source":    v.SourceFilename,
	})
	return newID, nil
}

// BulkReplaceLines replaces a version's stored line set with pre-computed
// lines, without reconciliation. The latest-version guard still applies.
func (s *Service) BulkReplaceLines(ctx context.Context, versionID int64, lines []Line) (int, error) {
	version, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return 0, err
	}
	if err := s.assertLatest(ctx, version); err != nil {
		return 0, err
	}
	renumbered := renumber(lines, version.OrderType)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteLines(ctx, version.ID); err != nil {
			return err
		}
		if err := insertLineSet(ctx, tx, version.ID, version, renumbered); err != nil {
			return err
		}
		return upsertLineUnits(ctx, tx, renumbered)
	})
	if err != nil {
		return 0, err
	}

	s.recordAudit(ctx, 0, "PO_LINES_IMPORT", version.ID, map[string]any{
		"po_number": version.PONumber,
		"lines":     len(renumbered),
	})
	return len(renumbered), nil
}

func (s *Service) assertLatest(ctx context.Context, version Version) error {
	latest, err := s.repo.LatestVersionID(ctx, version.PONumber)
	if err != nil {
		return err
	}
	if latest != version.ID {
		return ErrStaleVersion
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

func insertLineSet(ctx context.Context, tx TxRepository, versionID int64, v Version, lines []Line) error {
	for _, line := range lines {
		line.PurchaseOrderID = versionID
		line.PONumber = v.PONumber
		line.SupplierCode = v.SupplierCode
		line.SupplierName = v.SupplierName
		if err := tx.InsertLine(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func upsertLineUnits(ctx context.Context, tx TxRepository, lines []Line) error {
	seen := map[string]struct{}{}
	for _, line := range lines {
		if line.LineType != OrderTypeStandard || line.Unit == "" {
			continue
		}
		if _, ok := seen[line.Unit]; ok {
			continue
		}
		seen[line.Unit] = struct{}{}
		if err := tx.UpsertUnit(ctx, line.Unit); err != nil {
			return err
		}
	}
	return nil
}

func renumber(lines []Line, orderType OrderType) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, line := range lines {
		line.LineNo = i + 1
		line.LineType = orderType
		out[i] = line
	}
	return out
}
