package costcodes

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/povault/povault/internal/masterdata/shared"
)

type Repository interface {
	Lookup(ctx context.Context, term string, limit int) ([]CostCode, error)
	GetByCode(ctx context.Context, code string) (CostCode, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Lookup matches the term against code and description so operators can find
// an allocation by either.
func (r *repository) Lookup(ctx context.Context, term string, limit int) ([]CostCode, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, code, COALESCE(description, ''), created_at
		FROM cost_codes
		WHERE code ILIKE $1 OR description ILIKE $1
		ORDER BY code
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, "%"+term+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []CostCode
	for rows.Next() {
		var c CostCode
		if err := rows.Scan(&c.ID, &c.Code, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *repository) GetByCode(ctx context.Context, code string) (CostCode, error) {
	query := `SELECT id, code, COALESCE(description, ''), created_at FROM cost_codes WHERE code = $1`
	var c CostCode
	err := r.db.QueryRow(ctx, query, code).Scan(&c.ID, &c.Code, &c.Description, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CostCode{}, shared.ErrNotFound
	}
	return c, err
}
