package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"commerce-core/internal/model"
	apperrors "commerce-core/pkg/errors"
)

// mongodbProductRepository implements ProductRepository using MongoDB
type mongodbProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a new MongoDB-based product repository
func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongodbProductRepository{
		collection: db.Collection("products"),
	}
}

// SaveProduct upserts a product; stock and created_at are only written on insert
func (r *mongodbProductRepository) SaveProduct(ctx context.Context, product *model.Product) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": product.ID},
		bson.M{
			"$set": bson.M{"name": product.Name, "price": product.Price},
			"$setOnInsert": bson.M{
				"stock":      product.Stock,
				"created_at": product.CreatedAt,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// GetProduct retrieves a product by its ID
func (r *mongodbProductRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves the products with the given IDs
func (r *mongodbProductRepository) GetProducts(ctx context.Context, ids []int64) (map[int64]*model.Product, error) {
	out := make(map[int64]*model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var product model.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, err
		}
		out[product.ID] = &product
	}
	return out, cursor.Err()
}

// ListProducts retrieves the whole catalog ordered by ID
func (r *mongodbProductRepository) ListProducts(ctx context.Context) ([]*model.Product, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := make([]*model.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// DecrementStock atomically decrements the stock of a product
func (r *mongodbProductRepository) DecrementStock(ctx context.Context, id int64, quantity int64) error {
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"_id":   id,
			"stock": bson.M{"$gte": quantity}, // Only update if stock >= quantity
		},
		bson.M{"$inc": bson.M{"stock": -quantity}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetProduct(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrInsufficientStock
	}
	return nil
}

// IncrementStock puts quantity back into stock
func (r *mongodbProductRepository) IncrementStock(ctx context.Context, id int64, quantity int64) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"stock": quantity}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrProductNotFound
	}
	return nil
}
