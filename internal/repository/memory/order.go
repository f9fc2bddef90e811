package memory

import (
	"context"
	"sort"
	"sync"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
)

type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]*model.Order
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*model.Order)}
}

func copyOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return &cp
}

func (r *OrderRepository) CreateOrder(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *OrderRepository) GetOrder(_ context.Context, id string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (r *OrderRepository) ListOrdersByUser(_ context.Context, userID string) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
