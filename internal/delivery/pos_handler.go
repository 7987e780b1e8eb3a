package delivery

import (
	"net/http"
	"strconv"

	"restaurant_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type POSHandler struct {
	useCase domain.PaymentUseCase
	log     *logrus.Logger
}

func NewPOSHandler(uc domain.PaymentUseCase, logger *logrus.Logger) *POSHandler {
	return &POSHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *POSHandler) RegisterRoutes(router gin.IRouter, staffAuth gin.HandlerFunc) {
	pos := router.Group("/pos", staffAuth)
	{
		pos.POST("/connection-token", h.ConnectionToken)
		pos.POST("/payment-intent/:id", h.CreatePaymentIntent)
		pos.POST("/payment-complete/:id", h.CompletePayment)
		pos.POST("/test-connection", h.TestConnection)
	}
}

func (h *POSHandler) ConnectionToken(c *gin.Context) {
	token, err := h.useCase.ConnectionToken(c.Request.Context())
	if err != nil {
		h.log.Errorf("Failed to create connection token: %v", err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to create connection token: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Connection token created", gin.H{"secret": token})
}

func (h *POSHandler) CreatePaymentIntent(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.useCase.CreateIntent(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Failed to create payment intent for order %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to create payment intent: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Payment intent created", order)
}

func (h *POSHandler) CompletePayment(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	var requestBody struct {
		IntentID string `json:"intentId"`
		Success  *bool  `json:"success"`
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		h.log.Warnf("Failed to bind JSON for payment completion of order %d: %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if requestBody.Success == nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: 'success' field is required")
		return
	}

	order, err := h.useCase.CompletePayment(c.Request.Context(), id, requestBody.IntentID, *requestBody.Success)
	if err != nil {
		h.log.Warnf("Failed to complete payment for order %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to complete payment: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Payment completed", order)
}

func (h *POSHandler) TestConnection(c *gin.Context) {
	if err := h.useCase.TestConnection(c.Request.Context()); err != nil {
		h.log.Warnf("Payment provider connection test failed: %v", err)
		ErrorResponse(c, mapErrorToStatus(err), "Payment provider unreachable: "+err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "Payment provider reachable", nil)
}
