package store

import (
	"context"
	"fmt"

	"github.com/ecothread/marketplace/internal/models"
)

// AddFavorite is idempotent under the (user_id, product_id) unique
// constraint. Returns true if a new row was inserted.
func AddFavorite(ctx context.Context, q Querier, userID, productID int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO favorites (user_id, product_id, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID)
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func RemoveFavorite(ctx context.Context, q Querier, userID, productID int64) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func ListFavorites(ctx context.Context, q Querier, userID int64) ([]models.Favorite, error) {
	query := `
		SELECT id, user_id, product_id, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var favorites []models.Favorite
	for rows.Next() {
		var fav models.Favorite
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.ProductID, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, fav)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return favorites, nil
}
