package handler

import (
	"net/http"

	"procurement-backend/internal/middleware"
	"procurement-backend/internal/model"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(service service.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	managers := []string{model.StageProcurement, model.RoleSuperAdmin}
	viewers := append([]string{model.RoleSupplier}, managers...)

	orders := router.Group("/api/orders")
	{
		orders.POST("", middleware.RequireRole(managers...), h.CreateOrder)
		orders.GET("", middleware.RequireRole(viewers...), h.ListOrders)
		orders.GET("/status/:status", middleware.RequireRole(viewers...), h.ListOrdersByStatus)
		orders.GET("/tender/:tenderId", middleware.RequireRole(viewers...), h.ListOrdersByTender)
		orders.GET("/:id", middleware.RequireRole(viewers...), h.GetOrder)
		orders.PATCH("/:id/delivered", middleware.RequireRole(managers...), h.MarkDelivered)
		orders.PATCH("/:id/payment", middleware.RequireRole(managers...), h.RecordPayment)
		orders.PATCH("/:id/complete", middleware.RequireRole(managers...), h.MarkCompleted)
	}
}

// CreateOrder places a supplier order against an active tender
// @Summary      Create supplier order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrderDTO  true  "Order fields"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid order payload: "+err.Error()))
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessMessage("Order created successfully", order))
}

// ListOrders returns all orders with tender and supplier preloaded
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.service.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(orders, len(orders)))
}

// ListOrdersByStatus filters orders by fulfilment status
func (h *OrderHandler) ListOrdersByStatus(c *gin.Context) {
	orders, err := h.service.ListOrdersByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(orders, len(orders)))
}

// ListOrdersByTender returns the orders placed against one tender
func (h *OrderHandler) ListOrdersByTender(c *gin.Context) {
	orders, err := h.service.ListOrdersByTender(c.Request.Context(), c.Param("tenderId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(orders, len(orders)))
}

// GetOrder returns a single order by id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(order))
}

type deliverDTO struct {
	Payment decimal.Decimal `json:"payment"`
}

// MarkDelivered records delivery, optionally with a payment in the same step
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	var req deliverDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		// Delivery without a payment is a valid empty body
		req = deliverDTO{}
	}

	order, err := h.service.MarkDelivered(c.Request.Context(), c.Param("id"), req.Payment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessage("Order marked as delivered", order))
}

// RecordPayment applies a payment towards the order total
// @Summary      Record order payment
// @Description  Applies a positive payment no greater than the outstanding amount and rolls the payment status forward
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Order ID"
// @Param        payload  body      service.PaymentDTO  true  "Payment amount"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/orders/{id}/payment [patch]
func (h *OrderHandler) RecordPayment(c *gin.Context) {
	var req service.PaymentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid payment payload: "+err.Error()))
		return
	}

	order, err := h.service.RecordPayment(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessage("Payment recorded successfully", order))
}

// MarkCompleted closes out a delivered, fully paid order
func (h *OrderHandler) MarkCompleted(c *gin.Context) {
	order, err := h.service.MarkCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Order completed successfully", order))
}
