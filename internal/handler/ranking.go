package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"commerce-core/internal/model"
	"commerce-core/internal/service"
)

const defaultRankingLimit = 10

type recordSaleRequest struct {
	ProductID int64      `json:"product_id" binding:"required"`
	Quantity  int64      `json:"quantity" binding:"required,min=1"`
	Timestamp *time.Time `json:"timestamp"`
}

// recordSaleHandler handles POST /api/sales. The sale is queued, not yet counted.
func recordSaleHandler(svc *service.RankingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recordSaleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "product_id and a positive quantity are required")
			return
		}
		var at time.Time
		if req.Timestamp != nil {
			at = *req.Timestamp
		}
		if err := svc.RecordSale(c.Request.Context(), req.ProductID, req.Quantity, at); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}

// topProductsHandler handles GET /api/rankings/daily and /api/rankings/weekly
func topProductsHandler(svc *service.RankingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := model.ParseWindowKind(c.Param("kind"))
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		limit := defaultRankingLimit
		if raw := c.Query("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				badRequest(c, fmt.Sprintf("invalid limit %q", raw))
				return
			}
		}

		top, err := svc.GetTopProducts(c.Request.Context(), kind, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, top)
	}
}

// rollupHandler handles POST /api/rankings/:kind/rollup?date=2006-01-02.
// Without a date it closes the previous window.
func rollupHandler(svc *service.RankingService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := model.ParseWindowKind(c.Param("kind"))
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		date := model.WindowFor(kind, time.Now().In(loc)).Previous().Start
		if raw := c.Query("date"); raw != "" {
			date, err = time.ParseInLocation("2006-01-02", raw, loc)
			if err != nil {
				badRequest(c, fmt.Sprintf("invalid date %q", raw))
				return
			}
		}

		snapshot, err := svc.Rollup(c.Request.Context(), kind, date)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}
