package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce-core/internal/model"
	"commerce-core/internal/service"
)

// createCouponHandler handles POST /api/coupons
func createCouponHandler(svc *service.CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.CreateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			badRequest(c, err.Error())
			return
		}

		coupon, err := svc.CreateCoupon(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, coupon)
	}
}

// listCouponsHandler handles GET /api/coupons
func listCouponsHandler(svc *service.CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		coupons, err := svc.ListCoupons(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, coupons)
	}
}

// getCouponHandler handles GET /api/coupons/:id
func getCouponHandler(svc *service.CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		coupon, err := svc.GetCoupon(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"coupon":             coupon,
			"remaining_quantity": coupon.RemainingQuantity(),
		})
	}
}

// issueCouponHandler handles POST /api/coupons/:id/issue
func issueCouponHandler(svc *service.CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.IssueCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "user_id is required")
			return
		}

		info, err := svc.IssueCoupon(c.Request.Context(), req.UserID, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, info)
	}
}

// getUserCouponsHandler handles GET /api/users/:userId/coupons
func getUserCouponsHandler(svc *service.CouponService) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos, err := svc.GetUserCoupons(c.Request.Context(), c.Param("userId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, infos)
	}
}
