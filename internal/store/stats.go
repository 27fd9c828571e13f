package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
)

const statColumns = `id, user_id, items_sold, items_donated, items_recycled,
	co2_offset_kg, water_saved_liters, trees_saved, total_impact_score, eco_points,
	created_at, updated_at`

func scanStat(row interface{ Scan(...any) error }) (*models.SustainabilityStat, error) {
	stat := &models.SustainabilityStat{}
	err := row.Scan(
		&stat.ID,
		&stat.UserID,
		&stat.ItemsSold,
		&stat.ItemsDonated,
		&stat.ItemsRecycled,
		&stat.CO2OffsetKg,
		&stat.WaterSavedL,
		&stat.TreesSaved,
		&stat.ImpactScore,
		&stat.EcoPoints,
		&stat.CreatedAt,
		&stat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return stat, nil
}

// EnsureStat creates the per-user accumulator row if it does not exist yet.
// The unique constraint makes concurrent first events safe.
func EnsureStat(ctx context.Context, q Querier, userID int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO sustainability_stats (user_id, created_at, updated_at)
		 VALUES ($1, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID)
	if err != nil {
		return fmt.Errorf("ensure stat: %w", err)
	}
	return nil
}

func GetStat(ctx context.Context, q Querier, userID int64) (*models.SustainabilityStat, error) {
	query := `SELECT ` + statColumns + ` FROM sustainability_stats WHERE user_id = $1`

	stat, err := scanStat(q.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrStatNotFound
		}
		return nil, fmt.Errorf("get stat: %w", err)
	}

	return stat, nil
}

// GetStatForUpdate locks the accumulator row. Every mutation of eco points or
// counters takes this lock so concurrent order completions cannot drift.
func GetStatForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (*models.SustainabilityStat, error) {
	query := `SELECT ` + statColumns + ` FROM sustainability_stats WHERE user_id = $1 FOR UPDATE`

	stat, err := scanStat(tx.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrStatNotFound
		}
		return nil, fmt.Errorf("lock stat: %w", err)
	}

	return stat, nil
}

func UpdateStat(ctx context.Context, q Querier, stat *models.SustainabilityStat) error {
	result, err := q.ExecContext(ctx,
		`UPDATE sustainability_stats
		 SET items_sold = $1, items_donated = $2, items_recycled = $3,
		     co2_offset_kg = $4, water_saved_liters = $5, trees_saved = $6,
		     total_impact_score = $7, eco_points = $8, updated_at = NOW()
		 WHERE user_id = $9`,
		stat.ItemsSold,
		stat.ItemsDonated,
		stat.ItemsRecycled,
		stat.CO2OffsetKg,
		stat.WaterSavedL,
		stat.TreesSaved,
		stat.ImpactScore,
		stat.EcoPoints,
		stat.UserID)
	if err != nil {
		return fmt.Errorf("update stat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrStatNotFound
	}

	return nil
}

// AddEcoPoints credits (or, with a negative delta, debits) eco points. The
// eco_points >= 0 guard in the WHERE clause makes an over-spend a no-op the
// caller can detect.
func AddEcoPoints(ctx context.Context, q Querier, userID, delta int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE sustainability_stats
		 SET eco_points = eco_points + $1, updated_at = NOW()
		 WHERE user_id = $2 AND eco_points + $1 >= 0`,
		delta, userID)
	if err != nil {
		return false, fmt.Errorf("add eco points: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// LeaderboardOrder selects the leaderboard ranking column.
type LeaderboardOrder string

const (
	LeaderboardByEcoPoints LeaderboardOrder = "eco_points"
	LeaderboardByItemsSold LeaderboardOrder = "items_sold"
)

func TopStats(ctx context.Context, q Querier, order LeaderboardOrder, limit int) ([]models.SustainabilityStat, error) {
	column := "eco_points"
	if order == LeaderboardByItemsSold {
		column = "items_sold"
	}

	query := `SELECT ` + statColumns + `
		FROM sustainability_stats
		ORDER BY ` + column + ` DESC, user_id
		LIMIT $1`

	rows, err := q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list top stats: %w", err)
	}
	defer rows.Close()

	var stats []models.SustainabilityStat
	for rows.Next() {
		stat, err := scanStat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		stats = append(stats, *stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}
