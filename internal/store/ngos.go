package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
)

func CreateNgo(ctx context.Context, q Querier, name, city string) (*models.Ngo, error) {
	ngo := &models.Ngo{}

	query := `
		INSERT INTO ngos (name, city, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, name, city, created_at`

	err := q.QueryRowContext(ctx, query, name, city).Scan(
		&ngo.ID,
		&ngo.Name,
		&ngo.City,
		&ngo.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create ngo: %w", err)
	}

	return ngo, nil
}

func GetNgo(ctx context.Context, q Querier, id int64) (*models.Ngo, error) {
	ngo := &models.Ngo{}

	query := `
		SELECT id, name, city, created_at
		FROM ngos
		WHERE id = $1`

	err := q.QueryRowContext(ctx, query, id).Scan(
		&ngo.ID,
		&ngo.Name,
		&ngo.City,
		&ngo.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrNgoNotFound
		}
		return nil, fmt.Errorf("get ngo: %w", err)
	}

	return ngo, nil
}

func ListNgos(ctx context.Context, q Querier) ([]models.Ngo, error) {
	query := `
		SELECT id, name, city, created_at
		FROM ngos
		ORDER BY name`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ngos: %w", err)
	}
	defer rows.Close()

	var ngos []models.Ngo
	for rows.Next() {
		var ngo models.Ngo
		if err := rows.Scan(&ngo.ID, &ngo.Name, &ngo.City, &ngo.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ngo: %w", err)
		}
		ngos = append(ngos, ngo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ngos, nil
}
