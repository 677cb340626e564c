package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"petshop/internal/domain"
	cartsvc "petshop/internal/service/cart"
)

type cartItemsRequest struct {
	Items []domain.CartItemInput `json:"items"`
}

type changeQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartHandler struct {
	svc cartService
}

func (h *cartHandler) get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), currentUser(c).ID)
	h.respond(c, view, err)
}

func (h *cartHandler) add(c *gin.Context) {
	var req domain.CartItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	view, err := h.svc.Add(c.Request.Context(), currentUser(c).ID, req)
	h.respond(c, view, err)
}

func (h *cartHandler) merge(c *gin.Context) {
	var req cartItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	view, err := h.svc.Merge(c.Request.Context(), currentUser(c).ID, req.Items)
	h.respond(c, view, err)
}

func (h *cartHandler) quote(c *gin.Context) {
	var req cartItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	view, err := h.svc.Quote(c.Request.Context(), req.Items)
	h.respond(c, view, err)
}

func (h *cartHandler) changeQuantity(c *gin.Context) {
	lineID, ok := int64Param(c, "lineId")
	if !ok {
		return
	}
	var req changeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity required"})
		return
	}
	view, err := h.svc.ChangeQuantity(c.Request.Context(), currentUser(c).ID, lineID, *req.Quantity)
	h.respond(c, view, err)
}

func (h *cartHandler) removeLine(c *gin.Context) {
	lineID, ok := int64Param(c, "lineId")
	if !ok {
		return
	}
	view, err := h.svc.RemoveLine(c.Request.Context(), currentUser(c).ID, lineID)
	h.respond(c, view, err)
}

func (h *cartHandler) clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
		h.respond(c, nil, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *cartHandler) respond(c *gin.Context, view *domain.CartView, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, view)
	case errors.Is(err, cartsvc.ErrInvalidQuantity),
		errors.Is(err, cartsvc.ErrProductIDRequired),
		errors.Is(err, cartsvc.ErrProductUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "cart line not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
	}
}
