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

// mongodbOrderRepository implements OrderRepository using MongoDB
type mongodbOrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates a new MongoDB-based order repository
func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongodbOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (r *mongodbOrderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	_, err := r.collection.InsertOne(ctx, order)
	return err
}

func (r *mongodbOrderRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *mongodbOrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]*model.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
