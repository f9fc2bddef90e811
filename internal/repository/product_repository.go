package repository

import (
	"context"

	"commerce-core/internal/model"
)

// ProductRepository defines the interface for catalog data operations
type ProductRepository interface {
	// SaveProduct inserts a product, or updates name and price if it exists. Stock is only
	// set on insert.
	SaveProduct(ctx context.Context, product *model.Product) error

	// GetProduct retrieves a product by its ID
	GetProduct(ctx context.Context, id int64) (*model.Product, error)

	// GetProducts retrieves the products with the given IDs; missing IDs are omitted
	GetProducts(ctx context.Context, ids []int64) (map[int64]*model.Product, error)

	// ListProducts retrieves the whole catalog ordered by ID
	ListProducts(ctx context.Context) ([]*model.Product, error)

	// DecrementStock atomically removes quantity from stock.
	// Returns ErrInsufficientStock if stock is lower than quantity.
	DecrementStock(ctx context.Context, id int64, quantity int64) error

	// IncrementStock puts quantity back into stock
	IncrementStock(ctx context.Context, id int64, quantity int64) error
}
