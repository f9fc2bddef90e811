package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "commerce-core/pkg/errors"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Callers render distinct states per code, so sold out, expired and duplicate issues
// never collapse into one status.
var errorMappings = []errorMapping{
	{apperrors.ErrSoldOut, http.StatusConflict, "SOLD_OUT"},
	{apperrors.ErrAlreadyIssued, http.StatusConflict, "ALREADY_ISSUED"},
	{apperrors.ErrCouponAlreadyExists, http.StatusConflict, "COUPON_EXISTS"},
	{apperrors.ErrRollupInProgress, http.StatusConflict, "ROLLUP_IN_PROGRESS"},
	{apperrors.ErrWindowOpen, http.StatusConflict, "WINDOW_OPEN"},
	{apperrors.ErrCouponExpired, http.StatusGone, "COUPON_EXPIRED"},
	{apperrors.ErrCouponNotFound, http.StatusNotFound, "COUPON_NOT_FOUND"},
	{apperrors.ErrUserCouponNotFound, http.StatusNotFound, "USER_COUPON_NOT_FOUND"},
	{apperrors.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{apperrors.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{apperrors.ErrSnapshotNotFound, http.StatusNotFound, "SNAPSHOT_NOT_FOUND"},
	{apperrors.ErrLockTimeout, http.StatusServiceUnavailable, "LOCK_TIMEOUT"},
	{apperrors.ErrInsufficientStock, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
	{apperrors.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"},
	{apperrors.ErrUserCouponUnavailable, http.StatusUnprocessableEntity, "COUPON_UNAVAILABLE"},
	{apperrors.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
}

func writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": m.err.Error(), "code": m.code})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "INVALID_REQUEST"})
}
