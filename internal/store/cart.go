package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
)

// AddCartItem inserts a row with quantity 1, or leaves an existing row
// untouched. The (user_id, product_id) unique constraint is the only
// coordination: two tabs adding the same product end up with one row.
// Returns true if a new row was inserted.
func AddCartItem(ctx context.Context, q Querier, userID, productID int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity, created_at)
		 VALUES ($1, $2, 1, NOW())
		 ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID)
	if err != nil {
		return false, fmt.Errorf("add cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func GetCartItem(ctx context.Context, q Querier, userID, itemID int64) (*models.CartItem, error) {
	item := &models.CartItem{}

	query := `
		SELECT id, user_id, product_id, quantity, created_at
		FROM cart_items
		WHERE id = $1 AND user_id = $2`

	err := q.QueryRowContext(ctx, query, itemID, userID).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	return item, nil
}

func SetCartItemQuantity(ctx context.Context, q Querier, userID, itemID int64, quantity int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3`,
		quantity, itemID, userID)
	if err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

// DeleteCartItem removes a row; a missing row is not an error.
func DeleteCartItem(ctx context.Context, q Querier, userID, itemID int64) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`,
		itemID, userID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func ClearCart(ctx context.Context, q Querier, userID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// ListCartLines returns the user's cart in insertion order, each line joined
// with the current product snapshot.
func ListCartLines(ctx context.Context, q Querier, userID int64) ([]models.CartLine, error) {
	return listCartLines(ctx, q, userID, false)
}

// ListCartLinesForUpdate additionally locks the product rows so checkout
// revalidation and a concurrent delivery on the same garment serialize.
func ListCartLinesForUpdate(ctx context.Context, tx *sql.Tx, userID int64) ([]models.CartLine, error) {
	return listCartLines(ctx, tx, userID, true)
}

func listCartLines(ctx context.Context, q Querier, userID int64, lock bool) ([]models.CartLine, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at,
		       ` + prefixedProductColumns("p") + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.id`
	if lock {
		query += `
		FOR UPDATE OF p`
	}

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var line models.CartLine
		err := rows.Scan(
			&line.Item.ID,
			&line.Item.UserID,
			&line.Item.ProductID,
			&line.Item.Quantity,
			&line.Item.CreatedAt,
			&line.Product.ID,
			&line.Product.SellerID,
			&line.Product.Title,
			&line.Product.Category,
			&line.Product.Condition,
			&line.Product.PriceMinor,
			&line.Product.OriginalPriceMinor,
			&line.Product.IsDonation,
			&line.Product.IsAvailable,
			&line.Product.NgoID,
			&line.Product.CreatedAt,
			&line.Product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		line.Unavailable = !line.Product.IsAvailable
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

func prefixedProductColumns(alias string) string {
	return alias + `.id, ` + alias + `.seller_id, ` + alias + `.title, ` + alias + `.category, ` +
		alias + `.condition, ` + alias + `.price_minor, ` + alias + `.original_price_minor, ` +
		alias + `.is_donation, ` + alias + `.is_available, ` + alias + `.ngo_id, ` +
		alias + `.created_at, ` + alias + `.updated_at`
}
