package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ecothread/marketplace/internal/service"
	"github.com/ecothread/marketplace/internal/store"
)

func (s *Server) handleOrdersList(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	role := store.OrderRoleBuyer
	if c.Query("role") == "seller" {
		role = store.OrderRoleSeller
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	page, err := s.Orders.ListByUser(c.Request.Context(), userID, role, c.Query("cursor"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleOrderGet(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := s.Orders.Get(c.Request.Context(), orderID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleOrderProgress(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := s.Orders.Get(c.Request.Context(), orderID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":   order.ID,
		"status":     order.Status,
		"milestones": service.Progress(order),
	})
}

func (s *Server) handleOrderAdvance(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=assigned picked_up in_transit delivered completed cancelled"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Ownership check before mutating anything.
	if _, err := s.Orders.Get(c.Request.Context(), orderID, userID); err != nil {
		respondError(c, err)
		return
	}

	actor := "user:" + strconv.FormatInt(userID, 10)
	order, err := s.Orders.Advance(c.Request.Context(), orderID, req.Status, actor, req.Note)
	recordOperation("order_advance", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleOrderAssign(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		AgentID int64 `json:"agent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.Orders.Get(c.Request.Context(), orderID, userID); err != nil {
		respondError(c, err)
		return
	}

	actor := "user:" + strconv.FormatInt(userID, 10)
	order, err := s.Orders.Assign(c.Request.Context(), orderID, req.AgentID, actor)
	recordOperation("order_assign", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
