package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ecothread/marketplace/internal/store"
)

func (s *Server) handleProductsList(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	result, err := s.Catalog.ListAvailable(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleProductGet(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := s.Catalog.Get(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) handleProductsMine(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	products, err := s.Catalog.ListBySeller(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) handleProductPublish(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	var req struct {
		Title              string `json:"title" binding:"required"`
		Category           string `json:"category" binding:"required"`
		Condition          string `json:"condition" binding:"required,oneof=new like_new good fair damaged"`
		PriceMinor         int64  `json:"price_minor" binding:"min=0"`
		OriginalPriceMinor *int64 `json:"original_price_minor"`
		IsDonation         bool   `json:"is_donation"`
		NgoID              *int64 `json:"ngo_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := s.Catalog.Publish(c.Request.Context(), store.CreateProductParams{
		SellerID:           userID,
		Title:              req.Title,
		Category:           req.Category,
		Condition:          req.Condition,
		PriceMinor:         req.PriceMinor,
		OriginalPriceMinor: req.OriginalPriceMinor,
		IsDonation:         req.IsDonation,
		NgoID:              req.NgoID,
	})
	recordOperation("product_publish", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) handleProductRecycle(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := s.Catalog.Recycle(c.Request.Context(), userID, productID)
	recordOperation("product_recycle", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recycled"})
}

func (s *Server) handleFavoritesList(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}

	favorites, err := s.Catalog.Favorites(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

func (s *Server) handleFavoriteAdd(c *gin.Context) {
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

	if err := s.Catalog.Favorite(c.Request.Context(), userID, req.ProductID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "favorited"})
}

func (s *Server) handleFavoriteRemove(c *gin.Context) {
	userID, ok := mustCaller(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	if err := s.Catalog.Unfavorite(c.Request.Context(), userID, productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unfavorited"})
}
