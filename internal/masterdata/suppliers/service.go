package suppliers

import (
	"context"
	"fmt"
	"strings"

	"github.com/povault/povault/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Upsert(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier.Code = strings.TrimSpace(supplier.Code)
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Code == "" {
		return Supplier{}, fmt.Errorf("%w: code", shared.ErrValidation)
	}
	if supplier.Name == "" {
		return Supplier{}, fmt.Errorf("%w: name", shared.ErrValidation)
	}
	return s.repo.Upsert(ctx, supplier)
}
