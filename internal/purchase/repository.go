package purchase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/povault/povault/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for PO versions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a single transaction; any error rolls the
// whole unit of work back.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const versionColumns = `id, po_number, COALESCE(order_book, ''), COALESCE(order_sheet_no, ''),
	COALESCE(supplier_id, 0), COALESCE(supplier_code, ''), COALESCE(supplier_name, ''),
	order_date, COALESCE(cost_code, ''), COALESCE(cost_code_description, ''),
	COALESCE(terms, ''), COALESCE(reference, ''), order_type,
	COALESCE(subtotal, 0), COALESCE(vat_percent, 0), COALESCE(vat_amount, 0),
	COALESCE(misc_label, ''), COALESCE(misc_amount, 0), COALESCE(total_amount, 0),
	COALESCE(created_by, ''), COALESCE(source_filename, ''), created_at`

// GetVersion fetches one version row by id.
func (r *Repository) GetVersion(ctx context.Context, id int64) (Version, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+versionColumns+` FROM purchase_orders WHERE id = $1`, id)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Version{}, ErrNotFound
		}
		return Version{}, err
	}
	return v, nil
}

// LatestVersionID returns the current version id for a PO number.
func (r *Repository) LatestVersionID(ctx context.Context, poNumber string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM purchase_orders WHERE po_number = $1`, poNumber).Scan(&id)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

const lineColumns = `id, purchase_order_id, COALESCE(po_number, ''), COALESCE(supplier_code, ''),
	COALESCE(supplier_name, ''), line_no, line_type, is_vatable,
	COALESCE(item_code, ''), COALESCE(description, ''), COALESCE(quantity, 0),
	COALESCE(unit, ''), COALESCE(unit_price, 0), COALESCE(discount_percent, 0),
	COALESCE(net_price, 0), line_date, COALESCE(deposit_amount, 0),
	COALESCE(ex_vat_amount, 0), COALESCE(vat_amount, 0), COALESCE(total_amount, 0)`

// GetLines returns a version's line set ordered by line number.
func (r *Repository) GetLines(ctx context.Context, versionID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lineColumns+` FROM purchase_order_lines WHERE purchase_order_id = $1 ORDER BY line_no`,
		versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListVersions returns every version of a PO number, oldest first.
func (r *Repository) ListVersions(ctx context.Context, poNumber string) ([]Version, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+versionColumns+` FROM purchase_orders WHERE po_number = $1 ORDER BY id`, poNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	return versions, nil
}

// ListCurrent returns latest versions only, with filters and paging.
func (r *Repository) ListCurrent(ctx context.Context, limit, offset int, filters ListFilters) ([]ListItem, int, error) {
	where := ` WHERE p.id = latest.id`
	args := []any{}
	argNum := 1

	if filters.OrderBook != "" {
		where += ` AND p.order_book = $` + itoa(argNum)
		args = append(args, filters.OrderBook)
		argNum++
	}
	if filters.SupplierID > 0 {
		where += ` AND p.supplier_id = $` + itoa(argNum)
		args = append(args, filters.SupplierID)
		argNum++
	}
	if filters.Search != "" {
		where += ` AND (p.po_number ILIKE $` + itoa(argNum) + ` OR p.supplier_name ILIKE $` + itoa(argNum) + `)`
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	from := ` FROM purchase_orders p
		JOIN (SELECT po_number, MAX(id) AS id FROM purchase_orders GROUP BY po_number) latest
		ON latest.po_number = p.po_number`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT p.id, p.po_number, COALESCE(p.order_book, ''), COALESCE(p.supplier_code, ''),
		COALESCE(p.supplier_name, ''), p.order_date, p.order_type, COALESCE(p.total_amount, 0), p.created_at` +
		from + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir) +
		` LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []ListItem
	for rows.Next() {
		var (
			item      ListItem
			orderDate pgtype.Date
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.PONumber, &item.OrderBook, &item.SupplierCode,
			&item.SupplierName, &orderDate, &item.OrderType, &item.TotalAmount, &createdAt); err != nil {
			return nil, 0, err
		}
		item.OrderDate = formatDate(orderDate)
		if createdAt.Valid {
			item.CreatedAt = createdAt.Time
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (tx *txRepo) UpdateHeaderColumns(ctx context.Context, id int64, fragments []string, args []any) error {
	next := len(args) + 1
	sql := `UPDATE purchase_orders SET ` + strings.Join(fragments, ", ") +
		`, updated_at = $` + itoa(next) + ` WHERE id = $` + itoa(next+1)
	args = append(args, time.Now(), id)
	tag, err := tx.tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) UpdateTotals(ctx context.Context, id int64, totals Totals) error {
	tag, err := tx.tx.Exec(ctx,
		`UPDATE purchase_orders
		SET subtotal = $1, vat_percent = $2, vat_amount = $3, total_amount = $4, updated_at = $5
		WHERE id = $6`,
		totals.Subtotal, totals.VatPercent, totals.VatAmount, totals.TotalAmount, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) InsertVersion(ctx context.Context, v Version) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx,
		`INSERT INTO purchase_orders (
			po_number, order_book, order_sheet_no, supplier_id, supplier_code, supplier_name,
			order_date, cost_code, cost_code_description, terms, reference, order_type,
			subtotal, vat_percent, vat_amount, misc_label, misc_amount, total_amount,
			created_by, source_filename, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $21)
		RETURNING id`,
		v.PONumber, v.OrderBook, v.OrderSheetNo, nullInt(v.SupplierID), v.SupplierCode, v.SupplierName,
		nullDate(v.OrderDate), v.CostCode, v.CostCodeDesc, v.Terms, v.Reference, string(v.OrderType),
		v.Subtotal, v.VatPercent, v.VatAmount, v.MiscLabel, v.MiscAmount, v.TotalAmount,
		v.CreatedBy, v.SourceFilename, timestamp(v.CreatedAt)).Scan(&id)
	return id, err
}

func (tx *txRepo) DeleteLines(ctx context.Context, versionID int64) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE purchase_order_id = $1`, versionID)
	return err
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) error {
	var vatable pgtype.Bool
	if line.IsVatable != nil {
		vatable = pgtype.Bool{Bool: *line.IsVatable, Valid: true}
	}
	_, err := tx.tx.Exec(ctx,
		`INSERT INTO purchase_order_lines (
			purchase_order_id, po_number, supplier_code, supplier_name, line_no, line_type, is_vatable,
			item_code, description, quantity, unit, unit_price, discount_percent, net_price,
			line_date, deposit_amount, ex_vat_amount, vat_amount, total_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		line.PurchaseOrderID, line.PONumber, line.SupplierCode, line.SupplierName, line.LineNo,
		string(line.LineType), vatable,
		line.ItemCode, line.Description, line.Quantity, line.Unit, line.UnitPrice,
		line.DiscountPercent, line.NetPrice,
		nullDate(line.LineDate), line.DepositAmount, line.ExVatAmount, line.LineVatAmount,
		line.LineTotalAmount)
	return err
}

// UpsertUnit records a unit label with insert-or-ignore semantics; the unit
// catalogue is an auxiliary index, never authoritative.
func (tx *txRepo) UpsertUnit(ctx context.Context, unit string) error {
	_, err := tx.tx.Exec(ctx,
		`INSERT INTO units (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		unit, time.Now())
	return err
}

func scanVersion(row pgx.Row) (Version, error) {
	var (
		v         Version
		orderDate pgtype.Date
		orderType string
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(&v.ID, &v.PONumber, &v.OrderBook, &v.OrderSheetNo,
		&v.SupplierID, &v.SupplierCode, &v.SupplierName,
		&orderDate, &v.CostCode, &v.CostCodeDesc,
		&v.Terms, &v.Reference, &orderType,
		&v.Subtotal, &v.VatPercent, &v.VatAmount,
		&v.MiscLabel, &v.MiscAmount, &v.TotalAmount,
		&v.CreatedBy, &v.SourceFilename, &createdAt)
	if err != nil {
		return Version{}, err
	}
	v.OrderDate = formatDate(orderDate)
	v.OrderType = OrderType(orderType)
	if createdAt.Valid {
		v.CreatedAt = createdAt.Time
	}
	return v, nil
}

func scanLine(row pgx.Row) (Line, error) {
	var (
		line     Line
		lineType string
		vatable  pgtype.Bool
		lineDate pgtype.Date
	)
	err := row.Scan(&line.ID, &line.PurchaseOrderID, &line.PONumber, &line.SupplierCode,
		&line.SupplierName, &line.LineNo, &lineType, &vatable,
		&line.ItemCode, &line.Description, &line.Quantity,
		&line.Unit, &line.UnitPrice, &line.DiscountPercent,
		&line.NetPrice, &lineDate, &line.DepositAmount,
		&line.ExVatAmount, &line.LineVatAmount, &line.LineTotalAmount)
	if err != nil {
		return Line{}, err
	}
	line.LineType = OrderType(lineType)
	if vatable.Valid {
		line.IsVatable = &vatable.Bool
	}
	line.LineDate = formatDate(lineDate)
	return line, nil
}

func formatDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

func nullDate(s string) pgtype.Date {
	if s == "" {
		return pgtype.Date{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func nullInt(v int64) pgtype.Int8 {
	if v == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: v, Valid: true}
}

func timestamp(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		t = time.Now()
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func sortOrder(sortBy, sortDir string) string {
	dir := "DESC"
	if sortDir == "asc" {
		dir = "ASC"
	}
	switch sortBy {
	case "po_number":
		return "p.po_number " + dir
	case "supplier":
		return "p.supplier_name " + dir
	case "order_date":
		return "p.order_date " + dir
	case "total":
		return "p.total_amount " + dir
	default:
		return "p.created_at DESC"
	}
}
