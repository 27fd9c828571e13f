package service

import (
	"context"
	"database/sql"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
	"github.com/ecothread/marketplace/internal/store"
)

// CatalogService handles listing publication, favorites and the donation /
// recycling entry points that feed the sustainability engine.
type CatalogService struct {
	db     *sql.DB
	engine *SustainabilityEngine
}

func NewCatalogService(db *sql.DB, engine *SustainabilityEngine) *CatalogService {
	return &CatalogService{db: db, engine: engine}
}

// Publish creates a listing. A donation listing (price zero, NGO set) also
// credits the seller's donation counter in the same transaction.
func (s *CatalogService) Publish(ctx context.Context, params store.CreateProductParams) (*models.Product, error) {
	if params.IsDonation && (params.PriceMinor != 0 || params.NgoID == nil) {
		return nil, ErrNotDonation
	}

	var result *models.Product

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		product, err := store.CreateProduct(ctx, tx, params)
		if err != nil {
			return err
		}
		if product.IsDonation {
			if err := s.engine.RecordDonationTx(ctx, tx, product); err != nil {
				return err
			}
		}
		result = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Recycle retires one of the seller's own listings to a recycling partner
// and credits the recycle counter atomically.
func (s *CatalogService) Recycle(ctx context.Context, userID, productID int64) error {
	return database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		product, err := store.GetProductForUpdate(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product.SellerID != userID {
			return ErrForbidden
		}
		if !product.IsAvailable {
			return ErrProductUnavailable
		}
		if err := store.SetProductAvailability(ctx, tx, productID, false); err != nil {
			return err
		}
		return s.engine.RecordRecycleTx(ctx, tx, userID)
	})
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	return store.GetProduct(ctx, s.db, id)
}

func (s *CatalogService) ListAvailable(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListAvailableProducts(ctx, s.db, page, pageSize)
}

func (s *CatalogService) ListBySeller(ctx context.Context, sellerID int64) ([]models.Product, error) {
	return store.ListProductsBySeller(ctx, s.db, sellerID)
}

func (s *CatalogService) Favorite(ctx context.Context, userID, productID int64) error {
	if _, err := store.GetProduct(ctx, s.db, productID); err != nil {
		return err
	}
	_, err := store.AddFavorite(ctx, s.db, userID, productID)
	return err
}

func (s *CatalogService) Unfavorite(ctx context.Context, userID, productID int64) error {
	return store.RemoveFavorite(ctx, s.db, userID, productID)
}

func (s *CatalogService) Favorites(ctx context.Context, userID int64) ([]models.Favorite, error) {
	return store.ListFavorites(ctx, s.db, userID)
}

func (s *CatalogService) Ngos(ctx context.Context) ([]models.Ngo, error) {
	return store.ListNgos(ctx, s.db)
}
