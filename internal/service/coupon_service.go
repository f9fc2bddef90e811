package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	apperrors "commerce-core/pkg/errors"
	"commerce-core/pkg/lock"
	"commerce-core/pkg/metrics"
)

const issueLockPrefix = "coupon:issue:"

type CouponServiceOptions struct {
	// Locker serializes issuance per coupon. Its wait bound becomes ErrLockTimeout.
	Locker  lock.Locker
	Metrics *metrics.Metrics
	Logger  logr.Logger
	Now     func() time.Time
}

// CouponService handles business logic for coupons
type CouponService struct {
	couponRepo     repository.CouponRepository
	userCouponRepo repository.UserCouponRepository
	locker         lock.Locker
	metrics        *metrics.Metrics
	logger         logr.Logger
	now            func() time.Time
}

// NewCouponService creates a new coupon service
func NewCouponService(couponRepo repository.CouponRepository, userCouponRepo repository.UserCouponRepository, opts CouponServiceOptions) *CouponService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return &CouponService{
		couponRepo:     couponRepo,
		userCouponRepo: userCouponRepo,
		locker:         opts.Locker,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		now:            opts.Now,
	}
}

// CreateCoupon creates a coupon with nothing issued yet
func (s *CouponService) CreateCoupon(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	coupon := &model.Coupon{
		ID:            model.NewID(),
		Name:          req.Name,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		TotalQuantity: req.TotalQuantity,
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.couponRepo.CreateCoupon(ctx, coupon); err != nil {
		return nil, err
	}
	s.logger.Info("coupon created", "couponID", coupon.ID, "name", coupon.Name, "total", coupon.TotalQuantity)
	return coupon, nil
}

func (s *CouponService) GetCoupon(ctx context.Context, id string) (*model.Coupon, error) {
	return s.couponRepo.GetCoupon(ctx, id)
}

func (s *CouponService) ListCoupons(ctx context.Context) ([]*model.Coupon, error) {
	return s.couponRepo.ListCoupons(ctx)
}

// IssueCoupon issues one unit of couponID to userID.
//
// Issuance of one coupon is serialized by a per-coupon lock; other coupons never wait.
// The error tells callers why issuance was refused: ErrSoldOut, ErrCouponExpired,
// ErrAlreadyIssued, ErrCouponNotFound or ErrLockTimeout. Supply is unchanged whenever an
// error is returned.
func (s *CouponService) IssueCoupon(ctx context.Context, userID, couponID string) (info *model.UserCouponInfo, err error) {
	defer func() {
		s.metrics.IssueResult(issueResult(err))
	}()

	err = lock.Run(ctx, s.locker, issueLockPrefix+couponID, func(ctx context.Context) error {
		var ierr error
		info, ierr = s.issueLocked(ctx, userID, couponID)
		return ierr
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) || errors.Is(err, lock.ErrLockLost) {
			return nil, fmt.Errorf("issue coupon %s: %w: %w", couponID, apperrors.ErrLockTimeout, err)
		}
		if errors.Is(err, apperrors.ErrInvalidState) {
			s.logger.Error(err, "coupon supply invariant violated", "couponID", couponID, "userID", userID)
		}
		return nil, err
	}
	return info, nil
}

func (s *CouponService) issueLocked(ctx context.Context, userID, couponID string) (*model.UserCouponInfo, error) {
	now := s.now()

	coupon, err := s.couponRepo.GetCoupon(ctx, couponID)
	if err != nil {
		return nil, err
	}

	held, err := s.userCouponRepo.ListByUserAndCoupon(ctx, userID, couponID)
	if err != nil {
		return nil, err
	}
	for _, uc := range held {
		if uc.StatusAt(coupon.ExpiresAt, now) != model.UserCouponExpired {
			return nil, apperrors.ErrAlreadyIssued
		}
	}

	coupon, err = s.couponRepo.IssueOne(ctx, couponID, now)
	if err != nil {
		return nil, err
	}

	uc := &model.UserCoupon{
		ID:       model.NewID(),
		UserID:   userID,
		CouponID: couponID,
		Status:   model.UserCouponAvailable,
		IssuedAt: now,
	}
	if err := s.createUserCoupon(ctx, uc); err != nil {
		if rerr := s.couponRepo.RestoreOne(context.WithoutCancel(ctx), couponID, s.now()); rerr != nil {
			s.logger.Error(rerr, "restore coupon supply after failed issue", "couponID", couponID, "userID", userID)
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}

	s.logger.V(1).Info("coupon issued", "couponID", couponID, "userID", userID,
		"remaining", coupon.RemainingQuantity())
	return model.NewUserCouponInfo(uc, coupon, now), nil
}

// createUserCoupon refuses to write once the issue lock has lapsed: another request for
// the same user may already be past the duplicate check.
func (s *CouponService) createUserCoupon(ctx context.Context, uc *model.UserCoupon) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return s.userCouponRepo.CreateUserCoupon(ctx, uc)
}

// GetUserCoupons lists every coupon the user holds, newest first
func (s *CouponService) GetUserCoupons(ctx context.Context, userID string) ([]*model.UserCouponInfo, error) {
	ucs, err := s.userCouponRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	coupons := make(map[string]*model.Coupon)
	infos := make([]*model.UserCouponInfo, 0, len(ucs))
	for _, uc := range ucs {
		coupon, ok := coupons[uc.CouponID]
		if !ok {
			coupon, err = s.couponRepo.GetCoupon(ctx, uc.CouponID)
			if err != nil {
				if errors.Is(err, apperrors.ErrCouponNotFound) {
					s.logger.Info("user coupon references missing coupon", "userCouponID", uc.ID, "couponID", uc.CouponID)
					continue
				}
				return nil, err
			}
			coupons[uc.CouponID] = coupon
		}
		infos = append(infos, model.NewUserCouponInfo(uc, coupon, now))
	}
	return infos, nil
}

func issueResult(err error) string {
	switch {
	case err == nil:
		return "issued"
	case errors.Is(err, apperrors.ErrSoldOut):
		return "sold_out"
	case errors.Is(err, apperrors.ErrCouponExpired):
		return "expired"
	case errors.Is(err, apperrors.ErrAlreadyIssued):
		return "already_issued"
	case errors.Is(err, apperrors.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, apperrors.ErrCouponNotFound):
		return "not_found"
	default:
		return "error"
	}
}
