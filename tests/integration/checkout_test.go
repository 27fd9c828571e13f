package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ecothread/marketplace/internal/models"
	"github.com/ecothread/marketplace/internal/service"
	"github.com/ecothread/marketplace/internal/store"
)

func TestCartAddIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	buyer := createTestUser(t, db, "buyer@example.com")
	seller := createTestUser(t, db, "seller@example.com")
	product := createTestProduct(t, db, seller.ID, 1000)

	cart := service.NewCartService(db)

	for i := 0; i < 3; i++ {
		if err := cart.Add(ctx, buyer.ID, product.ID); err != nil {
			t.Fatalf("Add attempt %d: %v", i, err)
		}
	}

	summary, err := cart.Summary(ctx, buyer.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Lines) != 1 {
		t.Fatalf("Expected 1 cart line, got %d", len(summary.Lines))
	}
	if summary.Lines[0].Item.Quantity != 1 {
		t.Errorf("Expected quantity 1, got %d", summary.Lines[0].Item.Quantity)
	}
}

func TestConcurrentCartAdd(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	buyer := createTestUser(t, db, "buyer@example.com")
	seller := createTestUser(t, db, "seller@example.com")
	product := createTestProduct(t, db, seller.ID, 1000)

	cart := service.NewCartService(db)

	concurrency := 10
	var wg sync.WaitGroup
	results := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- cart.Add(ctx, buyer.ID, product.ID)
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Errorf("Concurrent add: %v", err)
		}
	}

	summary, err := cart.Summary(ctx, buyer.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Lines) != 1 {
		t.Errorf("Expected 1 cart line, got %d", len(summary.Lines))
	}
}

func TestCartAddUnavailableProduct(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	buyer := createTestUser(t, db, "buyer@example.com")
	seller := createTestUser(t, db, "seller@example.com")
	product := createTestProduct(t, db, seller.ID, 1000)

	if err := store.SetProductAvailability(ctx, db, product.ID, false); err != nil {
		t.Fatalf("Set availability: %v", err)
	}

	cart := service.NewCartService(db)
	if err := cart.Add(ctx, buyer.ID, product.ID); !errors.Is(err, service.ErrProductUnavailable) {
		t.Errorf("Expected ErrProductUnavailable, got: %v", err)
	}
}

func TestCheckoutSingleItem(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	buyer := createTestUser(t, db, "buyer@example.com")
	seller := createTestUser(t, db, "seller@example.com")
	product := createTestProduct(t, db, seller.ID, 1000)

	cart := service.NewCartService(db)
	checkout := service.NewCheckoutService(db)

	if err := cart.Add(ctx, buyer.ID, product.ID); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}

	orderIDs, err := checkout.PlaceOrders(ctx, buyer.ID, "12 Park Street", models.PaymentModeCOD)
	if err != nil {
		t.Fatalf("Place orders: %v", err)
	}
	if len(orderIDs) != 1 {
		t.Fatalf("Expected 1 order, got %d", len(orderIDs))
	}

	order, err := store.GetOrder(ctx, db, orderIDs[0])
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if order.AmountMinor != 1000 {
		t.Errorf("Expected amount 1000, got %d", order.AmountMinor)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected status pending, got %s", order.Status)
	}
	if order.PickupAddress != models.PickupPending {
		t.Errorf("Expected pickup placeholder, got %q", order.PickupAddress)
	}
	if len(order.Trail) != 1 || order.Trail[0].Status != models.OrderStatusPending {
		t.Errorf("Expected a single pending trail entry, got %+v", order.Trail)
	}

	summary, err := cart.Summary(ctx, buyer.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Lines) != 0 {
		t.Errorf("Cart should be empty after checkout, got %d lines", len(summary.Lines))
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	buyer := createTestUser(t, db, "buyer@example.com")
	checkout := service.NewCheckoutService(db)

	_, err := checkout.PlaceOrders(context.Background(), buyer.ID, "12 Park Street", models.PaymentModeCOD)
	if !errors.Is(err, service.ErrEmptyCart) {
		t.Errorf("Expected ErrEmptyCart, got: %v", err)
	}
}

func TestCheckoutUnsupportedPaymentMode(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	buyer := createTestUser(t, db, "buyer@example.com")
	checkout := service.NewCheckoutService(db)

	_, err := checkout.PlaceOrders(context.Background(), buyer.ID, "12 Park Street", "card")
	if !errors.Is(err, service.ErrPaymentModeUnsupported) {
		t.Errorf("Expected ErrPaymentModeUnsupported, got: %v", err)
	}
}

func TestCheckoutStaleCartIsAtomic(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	buyer := createTestUser(t, db, "buyer@example.com")
	seller := createTestUser(t, db, "seller@example.com")
	product1 := createTestProduct(t, db, seller.ID, 1000)
	product2 := createTestProduct(t, db, seller.ID, 2000)

	cart := service.NewCartService(db)
	checkout := service.NewCheckoutService(db)

	if err := cart.Add(ctx, buyer.ID, product1.ID); err != nil {
		t.Fatalf("Add product 1: %v", err)
	}
	if err := cart.Add(ctx, buyer.ID, product2.ID); err != nil {
		t.Fatalf("Add product 2: %v", err)
	}

	// product2 sells elsewhere between add and checkout
	if err := store.SetProductAvailability(ctx, db, product2.ID, false); err != nil {
		t.Fatalf("Set availability: %v", err)
	}

	_, err := checkout.PlaceOrders(ctx, buyer.ID, "12 Park Street", models.PaymentModeCOD)
	var stale *service.StaleCartError
	if !errors.As(err, &stale) {
		t.Fatalf("Expected StaleCartError, got: %v", err)
	}
	if len(stale.ProductIDs) != 1 || stale.ProductIDs[0] != product2.ID {
		t.Errorf("Expected stale product %d, got %v", product2.ID, stale.ProductIDs)
	}

	// nothing was ordered and the cart is intact, stale line included
	var orderCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders WHERE buyer_id = $1`, buyer.ID).Scan(&orderCount); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	if orderCount != 0 {
		t.Errorf("Expected 0 orders after stale checkout, got %d", orderCount)
	}

	summary, err := cart.Summary(ctx, buyer.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Lines) != 2 {
		t.Errorf("Expected 2 cart lines after failed checkout, got %d", len(summary.Lines))
	}
}

func TestCheckoutRejectsOwnListing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "self@example.com")
	product := createTestProduct(t, db, user.ID, 1000)

	// the cart row exists from before the product was the user's own; insert
	// it directly to simulate that state
	if _, err := store.AddCartItem(ctx, db, user.ID, product.ID); err != nil {
		t.Fatalf("Add cart item: %v", err)
	}

	checkout := service.NewCheckoutService(db)
	_, err := checkout.PlaceOrders(ctx, user.ID, "12 Park Street", models.PaymentModeCOD)
	var stale *service.StaleCartError
	if !errors.As(err, &stale) {
		t.Fatalf("Expected StaleCartError for own listing, got: %v", err)
	}
}

func TestCheckoutMultipleSellersFanOut(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	buyer := createTestUser(t, db, "buyer@example.com")
	seller1 := createTestUser(t, db, "seller1@example.com")
	seller2 := createTestUser(t, db, "seller2@example.com")
	product1 := createTestProduct(t, db, seller1.ID, 1500)
	product2 := createTestProduct(t, db, seller2.ID, 2500)

	cart := service.NewCartService(db)
	checkout := service.NewCheckoutService(db)

	if err := cart.Add(ctx, buyer.ID, product1.ID); err != nil {
		t.Fatalf("Add product 1: %v", err)
	}
	if err := cart.Add(ctx, buyer.ID, product2.ID); err != nil {
		t.Fatalf("Add product 2: %v", err)
	}

	orderIDs, err := checkout.PlaceOrders(ctx, buyer.ID, "12 Park Street", models.PaymentModeCOD)
	if err != nil {
		t.Fatalf("Place orders: %v", err)
	}
	if len(orderIDs) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(orderIDs))
	}

	sellers := make(map[int64]bool)
	for _, id := range orderIDs {
		order, err := store.GetOrder(ctx, db, id)
		if err != nil {
			t.Fatalf("Get order %d: %v", id, err)
		}
		sellers[order.SellerID] = true
	}
	if !sellers[seller1.ID] || !sellers[seller2.ID] {
		t.Errorf("Expected one order per seller, got sellers %v", sellers)
	}
}
