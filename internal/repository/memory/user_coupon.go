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

type UserCouponRepository struct {
	mu  sync.Mutex
	ucs map[string]*model.UserCoupon
}

var _ repository.UserCouponRepository = (*UserCouponRepository)(nil)

func NewUserCouponRepository() *UserCouponRepository {
	return &UserCouponRepository{ucs: make(map[string]*model.UserCoupon)}
}

func copyUserCoupon(uc *model.UserCoupon) *model.UserCoupon {
	cp := *uc
	if uc.UsedAt != nil {
		t := *uc.UsedAt
		cp.UsedAt = &t
	}
	return &cp
}

func (r *UserCouponRepository) CreateUserCoupon(_ context.Context, uc *model.UserCoupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ucs[uc.ID] = copyUserCoupon(uc)
	return nil
}

func (r *UserCouponRepository) GetUserCoupon(_ context.Context, id string) (*model.UserCoupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uc, ok := r.ucs[id]
	if !ok {
		return nil, apperrors.ErrUserCouponNotFound
	}
	return copyUserCoupon(uc), nil
}

func (r *UserCouponRepository) filter(match func(*model.UserCoupon) bool) []*model.UserCoupon {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.UserCoupon, 0)
	for _, uc := range r.ucs {
		if match(uc) {
			out = append(out, copyUserCoupon(uc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out
}

func (r *UserCouponRepository) ListByUser(_ context.Context, userID string) ([]*model.UserCoupon, error) {
	return r.filter(func(uc *model.UserCoupon) bool { return uc.UserID == userID }), nil
}

func (r *UserCouponRepository) ListByUserAndCoupon(_ context.Context, userID, couponID string) ([]*model.UserCoupon, error) {
	return r.filter(func(uc *model.UserCoupon) bool {
		return uc.UserID == userID && uc.CouponID == couponID
	}), nil
}

func (r *UserCouponRepository) MarkUsed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	uc, ok := r.ucs[id]
	if !ok || uc.Status != model.UserCouponAvailable {
		return apperrors.ErrUserCouponUnavailable
	}
	uc.Status = model.UserCouponUsed
	uc.UsedAt = &at
	return nil
}

func (r *UserCouponRepository) ReleaseUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	uc, ok := r.ucs[id]
	if !ok || uc.Status != model.UserCouponUsed {
		return apperrors.ErrUserCouponUnavailable
	}
	uc.Status = model.UserCouponAvailable
	uc.UsedAt = nil
	return nil
}
