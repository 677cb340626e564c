package httpserver

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"petshop/internal/domain"
	"petshop/internal/payment"
	"petshop/internal/service/checkout"
	ordersvc "petshop/internal/service/order"
)

const (
	idempotencyHeader = "Idempotency-Key"
	signatureHeader   = "Stripe-Signature"
	maxWebhookBytes   = 64 << 10
)

type paymentHandler struct {
	checkout checkoutService
	orders   orderService
	logger   *log.Logger
}

func (h *paymentHandler) createIntent(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if user := currentUser(c); user != nil {
		req.UserID = user.ID
	}
	req.IdempotencyKey = c.GetHeader(idempotencyHeader)

	res, err := h.checkout.CreatePaymentIntent(c.Request.Context(), req)
	if err != nil {
		var validation *checkout.ValidationError
		var invalidProducts *checkout.InvalidProductsError
		switch {
		case errors.As(err, &validation),
			errors.As(err, &invalidProducts),
			errors.Is(err, checkout.ErrAmountMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, checkout.ErrIdempotencyConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Printf("payments: create intent user_id=%d error=%v", req.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *paymentHandler) confirm(c *gin.Context) {
	var req ordersvc.ConfirmInput
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId and paymentMethod required"})
		return
	}
	if user := currentUser(c); user != nil {
		req.ViewerID = &user.ID
	}

	res, err := h.orders.Confirm(c.Request.Context(), req)
	if err != nil {
		var declined *payment.DeclinedError
		switch {
		case errors.Is(err, ordersvc.ErrMissingPaymentMethod):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.As(err, &declined):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": declined.Message, "code": declined.Code})
		default:
			h.logger.Printf("payments: confirm order_id=%d error=%v", req.OrderID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *paymentHandler) webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if err := h.orders.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader)); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		h.logger.Printf("payments: webhook error=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
