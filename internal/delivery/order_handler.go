package delivery

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"restaurant_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type OrderHandler struct {
	useCase domain.OrderUseCase
	log     *logrus.Logger
}

func NewOrderHandler(uc domain.OrderUseCase, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		useCase: uc,
		log:     logger,
	}
}

// RegisterRoutes wires the order routes. staffAuth guards the kitchen-side
// transition and listing routes; creation, tracking and the pay-later
// completion edge stay public.
func (h *OrderHandler) RegisterRoutes(router gin.IRouter, staffAuth gin.HandlerFunc) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrderByID)
		orders.PATCH("/:id/complete", h.CompleteOrder)
		orders.GET("/track/:phoneNumber", h.TrackOrders)
		orders.PATCH("/:id", staffAuth, h.UpdateOrderStatus)
		orders.GET("", staffAuth, h.ListOrders)
	}
}

func parseOrderID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return 0, false
	}
	return id, true
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input domain.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.log.Warnf("Failed to bind JSON for create order: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	createdOrder, err := h.useCase.CreateOrder(c.Request.Context(), &input)
	if err != nil {
		h.log.Warnf("Failed to create order for phone %s: %v", input.PhoneNumber, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to create order: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusCreated, "Order created successfully", createdOrder)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.useCase.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Failed to get order by ID %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve order: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var updateRequest struct {
		Status *domain.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&updateRequest); err != nil {
		h.log.Warnf("Failed to bind JSON for update order %d: %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if updateRequest.Status == nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: 'status' field is required")
		return
	}
	if !domain.IsValidStatus(*updateRequest.Status) {
		ErrorResponse(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: invalid status value '%s'", *updateRequest.Status))
		return
	}

	updatedOrder, err := h.useCase.Transition(c.Request.Context(), id, *updateRequest.Status)
	if err != nil {
		h.log.Warnf("Failed to update status for order ID %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update order status: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Order status updated successfully", updatedOrder)
}

// CompleteOrder serves the public pay-later completion flow and is restricted
// to that one forced edge.
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	updatedOrder, err := h.useCase.CompleteDirect(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Failed to complete order ID %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to complete order: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Order completed successfully", updatedOrder)
}

func (h *OrderHandler) TrackOrders(c *gin.Context) {
	phoneNumber := c.Param("phoneNumber")

	orders, err := h.useCase.TrackByPhone(c.Request.Context(), phoneNumber)
	if err != nil {
		h.log.Warnf("Failed to track orders for phone %s: %v", phoneNumber, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve orders: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	var statuses []domain.OrderStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, domain.OrderStatus(strings.TrimSpace(s)))
		}
	}

	orders, err := h.useCase.ListByStatus(c.Request.Context(), statuses)
	if err != nil {
		h.log.Warnf("Failed to list orders: %v", err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve orders: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}
