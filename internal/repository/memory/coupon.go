// Package memory holds in-process repositories for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
)

// CouponRepository keeps coupons in a map. Supply changes go through the model's
// Issue and Restore under one mutex, so they are atomic.
type CouponRepository struct {
	mu      sync.Mutex
	coupons map[string]*model.Coupon
}

var _ repository.CouponRepository = (*CouponRepository)(nil)

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{coupons: make(map[string]*model.Coupon)}
}

func (r *CouponRepository) CreateCoupon(_ context.Context, coupon *model.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coupons {
		if c.Name == coupon.Name {
			return apperrors.ErrCouponAlreadyExists
		}
	}
	cp := *coupon
	r.coupons[coupon.ID] = &cp
	return nil
}

func (r *CouponRepository) GetCoupon(_ context.Context, id string) (*model.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return nil, apperrors.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CouponRepository) ListCoupons(_ context.Context) ([]*model.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *CouponRepository) IssueOne(_ context.Context, id string, now time.Time) (*model.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return nil, apperrors.ErrCouponNotFound
	}
	if err := c.Issue(now); err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (r *CouponRepository) RestoreOne(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[id]
	if !ok {
		return apperrors.ErrCouponNotFound
	}
	return c.Restore(now)
}
