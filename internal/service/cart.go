package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecothread/marketplace/internal/models"
	"github.com/ecothread/marketplace/internal/store"
)

// maxCartQuantity caps a single cart line. Anything above it is treated the
// same as a malformed quantity.
const maxCartQuantity = 1000

type CartService struct {
	db *sql.DB
}

func NewCartService(db *sql.DB) *CartService {
	return &CartService{db: db}
}

// Add puts a product in the user's cart with quantity 1. Repeated calls are
// no-ops: an existing row keeps its quantity.
func (s *CartService) Add(ctx context.Context, userID, productID int64) error {
	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		return err
	}
	if !product.IsAvailable {
		return ErrProductUnavailable
	}

	if _, err := store.AddCartItem(ctx, s.db, userID, productID); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}

	return nil
}

// SetQuantity writes a new quantity; zero or negative delegates to Remove.
func (s *CartService) SetQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, userID, itemID)
	}
	if quantity > maxCartQuantity {
		return ErrInvalidQuantity
	}

	return store.SetCartItemQuantity(ctx, s.db, userID, itemID, quantity)
}

// Remove deletes a cart line; a missing line is not an error.
func (s *CartService) Remove(ctx context.Context, userID, itemID int64) error {
	return store.DeleteCartItem(ctx, s.db, userID, itemID)
}

func (s *CartService) Clear(ctx context.Context, userID int64) error {
	return store.ClearCart(ctx, s.db, userID)
}

func (s *CartService) Summary(ctx context.Context, userID int64) (*models.CartSummary, error) {
	lines, err := store.ListCartLines(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return SummarizeCart(lines), nil
}

// SummarizeCart derives the cart totals from the current product snapshots.
// Lines whose product went unavailable stay in the summary, flagged, so the
// caller can prompt removal before checkout.
func SummarizeCart(lines []models.CartLine) *models.CartSummary {
	summary := &models.CartSummary{Lines: lines}
	for _, line := range lines {
		summary.TotalItems += line.Item.Quantity
		summary.TotalMinor += line.Product.PriceMinor * int64(line.Item.Quantity)
	}
	return summary
}
