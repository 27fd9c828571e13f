package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
)

type CreateProductParams struct {
	SellerID           int64
	Title              string
	Category           string
	Condition          string
	PriceMinor         int64
	OriginalPriceMinor *int64
	IsDonation         bool
	NgoID              *int64
}

const productColumns = `id, seller_id, title, category, condition, price_minor,
	original_price_minor, is_donation, is_available, ngo_id, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.SellerID,
		&product.Title,
		&product.Category,
		&product.Condition,
		&product.PriceMinor,
		&product.OriginalPriceMinor,
		&product.IsDonation,
		&product.IsAvailable,
		&product.NgoID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func CreateProduct(ctx context.Context, q Querier, params CreateProductParams) (*models.Product, error) {
	query := `
		INSERT INTO products (seller_id, title, category, condition, price_minor,
		                      original_price_minor, is_donation, ngo_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query,
		params.SellerID,
		params.Title,
		params.Category,
		params.Condition,
		params.PriceMinor,
		params.OriginalPriceMinor,
		params.IsDonation,
		params.NgoID,
	))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q Querier, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetProductForUpdate locks the product row for the remainder of the
// transaction. Order advancement and checkout revalidation both go through
// here so concurrent transitions on the same garment serialize.
func GetProductForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	product, err := scanProduct(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	return product, nil
}

func SetProductAvailability(ctx context.Context, q Querier, id int64, available bool) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products SET is_available = $1, updated_at = NOW() WHERE id = $2`,
		available, id)
	if err != nil {
		return fmt.Errorf("set product availability: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListAvailableProducts(ctx context.Context, q Querier, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE is_available`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE is_available
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := q.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func ListProductsBySeller(ctx context.Context, q Querier, sellerID int64) ([]models.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE seller_id = $1
		ORDER BY created_at DESC`

	rows, err := q.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
