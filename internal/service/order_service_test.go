package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-core/internal/model"
	"commerce-core/internal/repository/memory"
	apperrors "commerce-core/pkg/errors"
	"commerce-core/pkg/lock"
)

type recordedSales struct {
	mu    sync.Mutex
	sales []model.SaleRecorded
}

func (r *recordedSales) RecordSale(_ context.Context, productID, quantity int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, model.SaleRecorded{ProductID: productID, Quantity: quantity, OccurredAt: at})
	return nil
}

type orderFixture struct {
	products *memory.ProductRepository
	orders   *memory.OrderRepository
	balances *BalanceService
	coupons  *CouponService
	sales    *recordedSales
	svc      *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	ctx := context.Background()
	couponRepo := memory.NewCouponRepository()
	userCoupons := memory.NewUserCouponRepository()

	f := &orderFixture{
		products: memory.NewProductRepository(),
		orders:   memory.NewOrderRepository(),
		balances: NewBalanceService(memory.NewBalanceRepository(), nil, logr.Discard()),
		sales:    &recordedSales{},
	}
	f.coupons = NewCouponService(couponRepo, userCoupons, CouponServiceOptions{
		Locker: lock.NewKeyedMutex(time.Second),
		Now:    func() time.Time { return now },
	})
	f.svc = NewOrderService(OrderServiceOptions{
		Products:    f.products,
		Orders:      f.orders,
		Coupons:     couponRepo,
		UserCoupons: userCoupons,
		Balances:    f.balances,
		Sales:       f.sales,
		Now:         func() time.Time { return now },
	})

	require.NoError(t, f.products.SaveProduct(ctx, &model.Product{ID: 1, Name: "keyboard", Price: 45000, Stock: 5}))
	require.NoError(t, f.products.SaveProduct(ctx, &model.Product{ID: 2, Name: "mouse", Price: 19000, Stock: 1}))
	return f
}

func (f *orderFixture) stock(t *testing.T, id int64) int64 {
	p, err := f.products.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *orderFixture) balance(t *testing.T, userID string) int64 {
	b, err := f.balances.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b.Amount
}

func TestPlaceOrderWithCoupon(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.balances.Charge(ctx, "user-1", 200000)
	require.NoError(t, err)
	c, err := f.coupons.CreateCoupon(ctx, &model.CreateCouponRequest{
		Name: "TENOFF", DiscountType: model.DiscountPercentage, DiscountValue: 10,
		TotalQuantity: 10, ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	info, err := f.coupons.IssueCoupon(ctx, "user-1", c.ID)
	require.NoError(t, err)

	order, err := f.svc.PlaceOrder(ctx, &model.PlaceOrderRequest{
		UserID:       "user-1",
		Items:        []model.OrderLineRequest{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
		UserCouponID: info.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(109000), order.TotalAmount)
	assert.Equal(t, int64(10900), order.DiscountAmount)
	assert.Equal(t, int64(98100), order.PaidAmount)
	assert.Equal(t, model.OrderPaid, order.Status)

	assert.Equal(t, int64(3), f.stock(t, 1))
	assert.Equal(t, int64(0), f.stock(t, 2))
	assert.Equal(t, int64(200000-98100), f.balance(t, "user-1"))

	held, err := f.coupons.GetUserCoupons(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, model.UserCouponUsed, held[0].Status)

	assert.Len(t, f.sales.sales, 2)

	stored, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaidAmount, stored.PaidAmount)

	// the used coupon cannot pay twice
	_, err = f.svc.PlaceOrder(ctx, &model.PlaceOrderRequest{
		UserID:       "user-1",
		Items:        []model.OrderLineRequest{{ProductID: 1, Quantity: 1}},
		UserCouponID: info.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrUserCouponUnavailable)
}

func TestPlaceOrderInsufficientBalanceRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	_, err := f.balances.Charge(ctx, "user-1", 1000)
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, &model.PlaceOrderRequest{
		UserID: "user-1",
		Items:  []model.OrderLineRequest{{ProductID: 1, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	assert.Equal(t, int64(5), f.stock(t, 1))
	assert.Equal(t, int64(1000), f.balance(t, "user-1"))
	assert.Empty(t, f.sales.sales)
}

func TestPlaceOrderInsufficientStockRestoresEarlierLines(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	_, err := f.balances.Charge(ctx, "user-1", 1000000)
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, &model.PlaceOrderRequest{
		UserID: "user-1",
		Items:  []model.OrderLineRequest{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 3}},
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, int64(5), f.stock(t, 1))
	assert.Equal(t, int64(1), f.stock(t, 2))
	assert.Equal(t, int64(1000000), f.balance(t, "user-1"))
}

type failingOrders struct {
	*memory.OrderRepository
}

func (failingOrders) CreateOrder(context.Context, *model.Order) error {
	return errors.New("disk full")
}

func TestPlaceOrderSaveFailureCompensatesEverything(t *testing.T) {
	f := newOrderFixture(t)
	f.svc.opts.Orders = failingOrders{f.orders}
	ctx := context.Background()

	_, err := f.balances.Charge(ctx, "user-1", 100000)
	require.NoError(t, err)
	c, err := f.coupons.CreateCoupon(ctx, &model.CreateCouponRequest{
		Name: "FIXED", DiscountType: model.DiscountFixed, DiscountValue: 5000,
		TotalQuantity: 1, ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	info, err := f.coupons.IssueCoupon(ctx, "user-1", c.ID)
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, &model.PlaceOrderRequest{
		UserID:       "user-1",
		Items:        []model.OrderLineRequest{{ProductID: 1, Quantity: 1}},
		UserCouponID: info.ID,
	})
	require.Error(t, err)

	assert.Equal(t, int64(5), f.stock(t, 1))
	assert.Equal(t, int64(100000), f.balance(t, "user-1"))
	held, err := f.coupons.GetUserCoupons(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.UserCouponAvailable, held[0].Status)
	assert.Empty(t, f.sales.sales)
}

func TestPlaceOrderRejectsForeignCouponAndUnknownProduct(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	c, err := f.coupons.CreateCoupon(ctx, &model.CreateCouponRequest{
		Name: "MINE", DiscountType: model.DiscountFixed, DiscountValue: 100,
		TotalQuantity: 1, ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	info, err := f.coupons.IssueCoupon(ctx, "owner", c.ID)
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, &model.PlaceOrderRequest{
		UserID:       "thief",
		Items:        []model.OrderLineRequest{{ProductID: 1, Quantity: 1}},
		UserCouponID: info.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrUserCouponNotFound)

	_, err = f.svc.PlaceOrder(ctx, &model.PlaceOrderRequest{
		UserID: "owner",
		Items:  []model.OrderLineRequest{{ProductID: 99, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)

	_, err = f.svc.PlaceOrder(ctx, &model.PlaceOrderRequest{UserID: "owner"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}
