package model

import "time"

type OrderStatus string

const (
	OrderPaid OrderStatus = "PAID"
)

// OrderItem is a priced order line. Price is captured at order time.
type OrderItem struct {
	ProductID int64  `bson:"product_id" json:"product_id"`
	Name      string `bson:"name" json:"name"`
	Price     int64  `bson:"price" json:"price"`
	Quantity  int64  `bson:"quantity" json:"quantity"`
}

// Order is a paid order
type Order struct {
	ID             string      `bson:"_id" json:"id"`
	UserID         string      `bson:"user_id" json:"user_id"`
	Items          []OrderItem `bson:"items" json:"items"`
	TotalAmount    int64       `bson:"total_amount" json:"total_amount"`
	DiscountAmount int64       `bson:"discount_amount" json:"discount_amount"`
	PaidAmount     int64       `bson:"paid_amount" json:"paid_amount"`
	UserCouponID   string      `bson:"user_coupon_id,omitempty" json:"user_coupon_id,omitempty"`
	Status         OrderStatus `bson:"status" json:"status"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
}

// OrderLineRequest is one requested product line
type OrderLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int64 `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderRequest represents the request to create and pay an order
type PlaceOrderRequest struct {
	UserID       string             `json:"user_id" binding:"required"`
	Items        []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
	UserCouponID string             `json:"user_coupon_id"`
}
