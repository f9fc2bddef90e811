package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
)

// SaleRecorder receives completed order lines.
type SaleRecorder interface {
	RecordSale(ctx context.Context, productID, quantity int64, at time.Time) error
}

type OrderServiceOptions struct {
	Products    repository.ProductRepository
	Orders      repository.OrderRepository
	Coupons     repository.CouponRepository
	UserCoupons repository.UserCouponRepository
	Balances    *BalanceService
	Sales       SaleRecorder
	Logger      logr.Logger
	Now         func() time.Time
}

// OrderService places and pays orders.
type OrderService struct {
	opts OrderServiceOptions
}

func NewOrderService(opts OrderServiceOptions) *OrderService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return &OrderService{opts: opts}
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.opts.Orders.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.opts.Orders.ListOrdersByUser(ctx, userID)
}

// compensations undo committed steps, newest first.
type compensations struct {
	undo   []func(ctx context.Context) error
	logger logr.Logger
}

func (c *compensations) add(fn func(ctx context.Context) error) {
	c.undo = append(c.undo, fn)
}

func (c *compensations) run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(c.undo) - 1; i >= 0; i-- {
		if err := c.undo[i](ctx); err != nil {
			c.logger.Error(err, "order compensation failed")
		}
	}
}

// PlaceOrder prices the items, applies the user coupon, takes stock and balance, then
// persists the order. On failure every step already taken is undone. Each paid line is
// reported to the sale recorder after the order is stored.
func (s *OrderService) PlaceOrder(ctx context.Context, req *model.PlaceOrderRequest) (order *model.Order, err error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("order has no items: %w", apperrors.ErrInvalidAmount)
	}
	now := s.opts.Now()
	log := s.opts.Logger.WithValues("userID", req.UserID)

	items, total, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var discount int64
	if req.UserCouponID != "" {
		discount, err = s.couponDiscount(ctx, req.UserID, req.UserCouponID, total, now)
		if err != nil {
			return nil, err
		}
	}

	undo := &compensations{logger: log}
	defer func() {
		if err != nil {
			undo.run(ctx)
		}
	}()

	for _, item := range items {
		item := item
		if err = s.opts.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, fmt.Errorf("reserve product %d: %w", item.ProductID, err)
		}
		undo.add(func(ctx context.Context) error {
			return s.opts.Products.IncrementStock(ctx, item.ProductID, item.Quantity)
		})
	}

	paid := total - discount
	if paid > 0 {
		if _, err = s.opts.Balances.Deduct(ctx, req.UserID, paid); err != nil {
			return nil, err
		}
		undo.add(func(ctx context.Context) error {
			_, rerr := s.opts.Balances.Refund(ctx, req.UserID, paid)
			return rerr
		})
	}

	if req.UserCouponID != "" {
		if err = s.opts.UserCoupons.MarkUsed(ctx, req.UserCouponID, now); err != nil {
			return nil, err
		}
		undo.add(func(ctx context.Context) error {
			return s.opts.UserCoupons.ReleaseUsed(ctx, req.UserCouponID)
		})
	}

	order = &model.Order{
		ID:             model.NewID(),
		UserID:         req.UserID,
		Items:          items,
		TotalAmount:    total,
		DiscountAmount: discount,
		PaidAmount:     paid,
		UserCouponID:   req.UserCouponID,
		Status:         model.OrderPaid,
		CreatedAt:      now,
	}
	if err = s.opts.Orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	if s.opts.Sales != nil {
		for _, item := range items {
			if serr := s.opts.Sales.RecordSale(ctx, item.ProductID, item.Quantity, now); serr != nil {
				// the order stands; only the ranking misses this line
				log.Error(serr, "record sale", "orderID", order.ID, "productID", item.ProductID)
			}
		}
	}

	log.Info("order paid", "orderID", order.ID, "total", total, "discount", discount, "paid", paid)
	return order, nil
}

func (s *OrderService) priceItems(ctx context.Context, lines []model.OrderLineRequest) ([]model.OrderItem, int64, error) {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, 0, fmt.Errorf("product %d quantity %d: %w", line.ProductID, line.Quantity, apperrors.ErrInvalidAmount)
		}
		ids = append(ids, line.ProductID)
	}

	products, err := s.opts.Products.GetProducts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]model.OrderItem, 0, len(lines))
	var total int64
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, 0, fmt.Errorf("product %d: %w", line.ProductID, apperrors.ErrProductNotFound)
		}
		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
		})
		total += p.Price * line.Quantity
	}
	return items, total, nil
}

func (s *OrderService) couponDiscount(ctx context.Context, userID, userCouponID string, total int64, now time.Time) (int64, error) {
	uc, err := s.opts.UserCoupons.GetUserCoupon(ctx, userCouponID)
	if err != nil {
		return 0, err
	}
	if uc.UserID != userID {
		return 0, apperrors.ErrUserCouponNotFound
	}
	coupon, err := s.opts.Coupons.GetCoupon(ctx, uc.CouponID)
	if err != nil {
		return 0, err
	}
	if uc.StatusAt(coupon.ExpiresAt, now) != model.UserCouponAvailable {
		return 0, apperrors.ErrUserCouponUnavailable
	}
	return coupon.CalculateDiscount(total), nil
}
