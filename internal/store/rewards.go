package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
)

type CreateRewardParams struct {
	Title         string
	Description   string
	EcoPointsCost int64
	Stock         *int
}

const rewardColumns = `id, title, description, eco_points_cost, stock_quantity, active, created_at`

func scanReward(row interface{ Scan(...any) error }) (*models.Reward, error) {
	reward := &models.Reward{}
	err := row.Scan(
		&reward.ID,
		&reward.Title,
		&reward.Description,
		&reward.EcoPointsCost,
		&reward.Stock,
		&reward.Active,
		&reward.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reward, nil
}

func CreateReward(ctx context.Context, q Querier, params CreateRewardParams) (*models.Reward, error) {
	query := `
		INSERT INTO rewards (title, description, eco_points_cost, stock_quantity, active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW())
		RETURNING ` + rewardColumns

	reward, err := scanReward(q.QueryRowContext(ctx, query,
		params.Title,
		params.Description,
		params.EcoPointsCost,
		params.Stock,
	))
	if err != nil {
		return nil, fmt.Errorf("create reward: %w", err)
	}

	return reward, nil
}

func GetReward(ctx context.Context, q Querier, id int64) (*models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`

	reward, err := scanReward(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrRewardNotFound
		}
		return nil, fmt.Errorf("get reward: %w", err)
	}

	return reward, nil
}

// GetRewardForUpdate locks the reward row so concurrent redemptions of the
// last unit serialize on it.
func GetRewardForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1 FOR UPDATE`

	reward, err := scanReward(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrRewardNotFound
		}
		return nil, fmt.Errorf("lock reward: %w", err)
	}

	return reward, nil
}

func ListActiveRewards(ctx context.Context, q Querier) ([]models.Reward, error) {
	query := `SELECT ` + rewardColumns + `
		FROM rewards
		WHERE active
		ORDER BY eco_points_cost`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *reward)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rewards, nil
}

// AdjustRewardStock adds delta to a finite stock and reports whether a row
// changed; NULL (unlimited) stock rows are left untouched and report false,
// so callers must skip them. The stock_quantity >= 0 check keeps a decrement
// of the last unit from going negative.
func AdjustRewardStock(ctx context.Context, q Querier, id int64, delta int) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE rewards
		 SET stock_quantity = stock_quantity + $1
		 WHERE id = $2
		   AND stock_quantity IS NOT NULL
		   AND stock_quantity + $1 >= 0`,
		delta, id)
	if err != nil {
		return false, fmt.Errorf("adjust reward stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

const redemptionColumns = `id, user_id, reward_id, eco_points_spent, redemption_code,
	status, points_refunded, redeemed_at, updated_at`

func scanRedemption(row interface{ Scan(...any) error }) (*models.Redemption, error) {
	redemption := &models.Redemption{}
	err := row.Scan(
		&redemption.ID,
		&redemption.UserID,
		&redemption.RewardID,
		&redemption.PointsSpent,
		&redemption.Code,
		&redemption.Status,
		&redemption.PointsRefunded,
		&redemption.RedeemedAt,
		&redemption.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return redemption, nil
}

func InsertRedemption(ctx context.Context, q Querier, userID, rewardID, pointsSpent int64, code string) (*models.Redemption, error) {
	query := `
		INSERT INTO reward_redemptions (user_id, reward_id, eco_points_spent, redemption_code,
		                                status, redeemed_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW(), NOW())
		RETURNING ` + redemptionColumns

	redemption, err := scanRedemption(q.QueryRowContext(ctx, query, userID, rewardID, pointsSpent, code))
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}

	return redemption, nil
}

func GetRedemptionForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Redemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM reward_redemptions WHERE id = $1 FOR UPDATE`

	redemption, err := scanRedemption(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("lock redemption: %w", err)
	}

	return redemption, nil
}

func UpdateRedemptionStatus(ctx context.Context, q Querier, id int64, status string, pointsRefunded bool) error {
	result, err := q.ExecContext(ctx,
		`UPDATE reward_redemptions
		 SET status = $1, points_refunded = $2, updated_at = NOW()
		 WHERE id = $3`,
		status, pointsRefunded, id)
	if err != nil {
		return fmt.Errorf("update redemption: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrRedemptionNotFound
	}

	return nil
}

func ListRedemptionsByUser(ctx context.Context, q Querier, userID int64) ([]models.Redemption, error) {
	query := `SELECT ` + redemptionColumns + `
		FROM reward_redemptions
		WHERE user_id = $1
		ORDER BY redeemed_at DESC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []models.Redemption
	for rows.Next() {
		redemption, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *redemption)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return redemptions, nil
}
