package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecothread/marketplace/internal/models"
)

func TestSummarizeCartEmpty(t *testing.T) {
	summary := SummarizeCart(nil)
	assert.Equal(t, 0, summary.TotalItems)
	assert.Equal(t, int64(0), summary.TotalMinor)
	assert.Empty(t, summary.Lines)
}

func TestSummarizeCart(t *testing.T) {
	lines := []models.CartLine{
		{
			Item:    models.CartItem{ID: 1, ProductID: 10, Quantity: 2},
			Product: models.Product{ID: 10, PriceMinor: 49900, IsAvailable: true},
		},
		{
			Item:    models.CartItem{ID: 2, ProductID: 11, Quantity: 1},
			Product: models.Product{ID: 11, PriceMinor: 120000, IsAvailable: true},
		},
	}

	summary := SummarizeCart(lines)
	assert.Equal(t, 3, summary.TotalItems)
	assert.Equal(t, int64(2*49900+120000), summary.TotalMinor)
	assert.Len(t, summary.Lines, 2)
}

func TestSummarizeCartKeepsUnavailableLines(t *testing.T) {
	lines := []models.CartLine{
		{
			Item:    models.CartItem{ID: 1, ProductID: 10, Quantity: 1},
			Product: models.Product{ID: 10, PriceMinor: 50000, IsAvailable: true},
		},
		{
			Item:        models.CartItem{ID: 2, ProductID: 11, Quantity: 1},
			Product:     models.Product{ID: 11, PriceMinor: 30000, IsAvailable: false},
			Unavailable: true,
		},
	}

	// totals include the stale line; checkout is where staleness rejects
	summary := SummarizeCart(lines)
	assert.Equal(t, 2, summary.TotalItems)
	assert.Equal(t, int64(80000), summary.TotalMinor)
	assert.True(t, summary.Lines[1].Unavailable)
}
