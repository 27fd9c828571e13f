package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
	"github.com/ecothread/marketplace/internal/store"
)

type CheckoutService struct {
	db *sql.DB
}

func NewCheckoutService(db *sql.DB) *CheckoutService {
	return &CheckoutService{db: db}
}

// PlaceOrders fans the cart out into one order per line. Revalidation,
// order creation and cart clearing all happen in one serializable
// transaction: either every line becomes an order and the cart is empty, or
// nothing changed.
func (s *CheckoutService) PlaceOrders(ctx context.Context, userID int64, deliveryAddress, paymentMode string) ([]int64, error) {
	// Only cash-on-delivery settles in this release.
	if paymentMode != models.PaymentModeCOD {
		return nil, ErrPaymentModeUnsupported
	}

	var orderIDs []int64

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		orderIDs = orderIDs[:0]

		lines, err := store.ListCartLinesForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		var stale []int64
		for _, line := range lines {
			if !line.Product.IsAvailable || line.Product.SellerID == userID {
				stale = append(stale, line.Product.ID)
			}
		}
		if len(stale) > 0 {
			return &StaleCartError{ProductIDs: stale}
		}

		now := time.Now().UTC()
		for _, line := range lines {
			order, err := store.InsertOrder(ctx, tx, store.InsertOrderParams{
				BuyerID:         userID,
				SellerID:        line.Product.SellerID,
				ProductID:       line.Product.ID,
				Quantity:        line.Item.Quantity,
				AmountMinor:     line.Product.PriceMinor * int64(line.Item.Quantity),
				PaymentMode:     paymentMode,
				PickupAddress:   models.PickupPending,
				DeliveryAddress: deliveryAddress,
				Trail: []models.TrackingUpdate{
					{Status: models.OrderStatusPending, At: now},
				},
			})
			if err != nil {
				return err
			}
			orderIDs = append(orderIDs, order.ID)
		}

		return store.ClearCart(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	return orderIDs, nil
}
