package repository

import (
	"context"

	"commerce-core/internal/model"
)

// OrderRepository defines the interface for order data operations
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*model.Order, error)
}
