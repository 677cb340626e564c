package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"petshop/internal/domain"
)

type orderHandler struct {
	svc orderService
}

func (h *orderHandler) get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var viewer *int64
	if user := currentUser(c); user != nil {
		viewer = &user.ID
	}
	order, err := h.svc.Get(c.Request.Context(), id, viewer)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *orderHandler) list(c *gin.Context) {
	orders, err := h.svc.ListForUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}
