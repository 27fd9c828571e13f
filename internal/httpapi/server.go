package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/service"
	"github.com/ecothread/marketplace/internal/store"
)

type Server struct {
	Cart           *service.CartService
	Checkout       *service.CheckoutService
	Orders         *service.OrderService
	Catalog        *service.CatalogService
	Sustainability *service.SustainabilityEngine
	Rewards        *service.RewardsService
	JWTSecret      string
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/leaderboard", s.handleLeaderboard)
	r.GET("/ngos", s.handleNgos)

	api := r.Group("/api")
	api.Use(AuthMiddleware(s.JWTSecret))
	{
		api.GET("/cart", s.handleCartSummary)
		api.POST("/cart/items", s.handleCartAdd)
		api.PUT("/cart/items/:id", s.handleCartSetQuantity)
		api.DELETE("/cart/items/:id", s.handleCartRemove)
		api.DELETE("/cart", s.handleCartClear)

		api.POST("/checkout", s.handleCheckout)

		api.GET("/orders", s.handleOrdersList)
		api.GET("/orders/:id", s.handleOrderGet)
		api.GET("/orders/:id/progress", s.handleOrderProgress)
		api.PUT("/orders/:id/status", s.handleOrderAdvance)
		api.PUT("/orders/:id/agent", s.handleOrderAssign)

		api.GET("/products", s.handleProductsList)
		api.POST("/products", s.handleProductPublish)
		api.GET("/products/mine", s.handleProductsMine)
		api.GET("/products/:id", s.handleProductGet)
		api.POST("/products/:id/recycle", s.handleProductRecycle)

		api.GET("/favorites", s.handleFavoritesList)
		api.POST("/favorites", s.handleFavoriteAdd)
		api.DELETE("/favorites/:productId", s.handleFavoriteRemove)

		api.GET("/sustainability", s.handleSustainabilityGet)
		api.GET("/sustainability/badges", s.handleSustainabilityBadges)

		api.GET("/rewards", s.handleRewardsList)
		api.POST("/rewards/:id/redeem", s.handleRewardRedeem)
		api.GET("/redemptions", s.handleRedemptionsList)
		api.POST("/redemptions/:id/cancel", s.handleRedemptionCancel)
	}

	return r
}

// respondError maps kernel failures onto HTTP statuses. The kernel never
// produces user-facing copy; clients own the messaging.
func respondError(c *gin.Context, err error) {
	var stale *service.StaleCartError
	if errors.As(err, &stale) {
		c.JSON(http.StatusConflict, gin.H{
			"error":       "stale_cart",
			"product_ids": stale.ProductIDs,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrNgoNotFound),
		errors.Is(err, database.ErrBadgeNotFound),
		errors.Is(err, database.ErrRewardNotFound),
		errors.Is(err, database.ErrRedemptionNotFound),
		errors.Is(err, database.ErrStatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrPaymentModeUnsupported),
		errors.Is(err, service.ErrNotDonation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case database.IsRetryable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, retry later"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func mustCaller(c *gin.Context) (int64, bool) {
	id, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	}
	return id, ok
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	order := store.LeaderboardByEcoPoints
	if c.Query("by") == "items_sold" {
		order = store.LeaderboardByItemsSold
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	stats, err := s.Sustainability.Leaderboard(c.Request.Context(), order, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": stats})
}

func (s *Server) handleNgos(c *gin.Context) {
	ngos, err := s.Catalog.Ngos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ngos": ngos})
}
