package model

import "time"

// Product is a catalog item. Price is in minor currency units.
type Product struct {
	ID        int64     `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Price     int64     `bson:"price" json:"price"`
	Stock     int64     `bson:"stock" json:"stock"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
