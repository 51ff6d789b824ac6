package orderbooks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/povault/povault/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]OrderBook, error)
	GetByCode(ctx context.Context, code string) (OrderBook, error)
	Create(ctx context.Context, book OrderBook) (OrderBook, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]OrderBook, error) {
	query := `SELECT id, code, COALESCE(description, ''), is_active, created_at, updated_at FROM order_books`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY code`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []OrderBook
	for rows.Next() {
		var b OrderBook
		if err := rows.Scan(&b.ID, &b.Code, &b.Description, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *repository) GetByCode(ctx context.Context, code string) (OrderBook, error) {
	query := `SELECT id, code, COALESCE(description, ''), is_active, created_at, updated_at FROM order_books WHERE code = $1`
	var b OrderBook
	err := r.db.QueryRow(ctx, query, code).Scan(&b.ID, &b.Code, &b.Description, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderBook{}, shared.ErrNotFound
	}
	return b, err
}

func (r *repository) Create(ctx context.Context, book OrderBook) (OrderBook, error) {
	query := `
		INSERT INTO order_books (code, description, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $3)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	err := r.db.QueryRow(ctx, query, book.Code, book.Description, now).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return OrderBook{}, err
	}
	book.IsActive = true
	return book, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE order_books SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
