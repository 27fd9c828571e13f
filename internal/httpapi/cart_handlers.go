package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleCartSummary(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	summary, err := s.Cart.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCartAdd(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.Cart.Add(c.Request.Context(), userID, req.ProductID)
	recordOperation("cart_add", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "added"})
}

func (s *Server) handleCartSetQuantity(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.Cart.SetQuantity(c.Request.Context(), userID, itemID, req.Quantity)
	recordOperation("cart_set_quantity", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

func (s *Server) handleCartRemove(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.Cart.Remove(c.Request.Context(), userID, itemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

func (s *Server) handleCartClear(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	if err := s.Cart.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cleared"})
}

func (s *Server) handleCheckout(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	var req struct {
		DeliveryAddress string `json:"delivery_address" binding:"required"`
		PaymentMode     string `json:"payment_mode" binding:"required,oneof=cod"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderIDs, err := s.Checkout.PlaceOrders(c.Request.Context(), userID, req.DeliveryAddress, req.PaymentMode)
	recordOperation("checkout", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order_ids": orderIDs})
}
