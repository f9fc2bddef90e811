// Package handler exposes the services over HTTP with gin.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"commerce-core/internal/repository"
	"commerce-core/internal/service"
	"commerce-core/pkg/metrics"
)

// Deps are the collaborators behind the routes.
type Deps struct {
	Coupons  *service.CouponService
	Orders   *service.OrderService
	Balances *service.BalanceService
	Rankings *service.RankingService
	Products repository.ProductRepository
	Metrics  *metrics.Metrics

	// Location resolves rollup dates; defaults to UTC
	Location *time.Location
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Location == nil {
		d.Location = time.UTC
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.POST("/coupons", createCouponHandler(d.Coupons))
		api.GET("/coupons", listCouponsHandler(d.Coupons))
		api.GET("/coupons/:id", getCouponHandler(d.Coupons))
		api.POST("/coupons/:id/issue", issueCouponHandler(d.Coupons))

		api.GET("/users/:userId/coupons", getUserCouponsHandler(d.Coupons))
		api.GET("/users/:userId/balance", getBalanceHandler(d.Balances))
		api.POST("/users/:userId/balance/charge", chargeBalanceHandler(d.Balances))
		api.GET("/users/:userId/orders", listOrdersHandler(d.Orders))

		api.GET("/products", listProductsHandler(d.Products))
		api.POST("/orders", placeOrderHandler(d.Orders))
		api.GET("/orders/:id", getOrderHandler(d.Orders))

		api.POST("/sales", recordSaleHandler(d.Rankings))
		api.GET("/rankings/:kind", topProductsHandler(d.Rankings))
		api.POST("/rankings/:kind/rollup", rollupHandler(d.Rankings, d.Location))
	}

	return router
}
