package service

import (
	"errors"
	"fmt"
)

// Precondition failures surfaced by the kernel services. The transaction
// wrapper guarantees none of them leave partial state behind.
var (
	ErrProductUnavailable     = errors.New("product is not available")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrIllegalTransition      = errors.New("illegal order status transition")
	ErrInsufficientPoints     = errors.New("insufficient eco points")
	ErrOutOfStock             = errors.New("reward is out of stock")
	ErrPaymentModeUnsupported = errors.New("payment mode not supported")
	ErrNotDonation            = errors.New("product is not a donation listing")
	ErrForbidden              = errors.New("caller does not own this resource")
)

// StaleCartError reports the cart lines that failed checkout revalidation.
// No orders are written when it is returned.
type StaleCartError struct {
	ProductIDs []int64
}

func (e *StaleCartError) Error() string {
	return fmt.Sprintf("cart is stale, offending products: %v", e.ProductIDs)
}
