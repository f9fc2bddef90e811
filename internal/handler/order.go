package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce-core/internal/model"
	"commerce-core/internal/repository"
	"commerce-core/internal/service"
)

func getBalanceHandler(svc *service.BalanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		balance, err := svc.GetBalance(c.Request.Context(), c.Param("userId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, balance)
	}
}

func chargeBalanceHandler(svc *service.BalanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ChargeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "amount is required")
			return
		}
		balance, err := svc.Charge(c.Request.Context(), c.Param("userId"), req.Amount)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, balance)
	}
}

func listProductsHandler(repo repository.ProductRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := repo.ListProducts(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// placeOrderHandler handles POST /api/orders
func placeOrderHandler(svc *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
		order, err := svc.PlaceOrder(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func getOrderHandler(svc *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := svc.GetOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func listOrdersHandler(svc *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := svc.ListOrders(c.Request.Context(), c.Param("userId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}
