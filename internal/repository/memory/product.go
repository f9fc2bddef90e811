package memory

import (
	"context"
	"sort"
	"sync"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
)

type ProductRepository struct {
	mu       sync.Mutex
	products map[int64]*model.Product
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[int64]*model.Product)}
}

func (r *ProductRepository) SaveProduct(_ context.Context, product *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.products[product.ID]; ok {
		existing.Name = product.Name
		existing.Price = product.Price
		return nil
	}
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *ProductRepository) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepository) GetProducts(_ context.Context, ids []int64) (map[int64]*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]*model.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *ProductRepository) ListProducts(_ context.Context) ([]*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Product, 0, len(r.products))
	for _, p := range r.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProductRepository) DecrementStock(_ context.Context, id int64, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return apperrors.ErrProductNotFound
	}
	if p.Stock < quantity {
		return apperrors.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (r *ProductRepository) IncrementStock(_ context.Context, id int64, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return apperrors.ErrProductNotFound
	}
	p.Stock += quantity
	return nil
}
