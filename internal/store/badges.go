package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
)

type CreateBadgeParams struct {
	Name            string
	Description     string
	Tier            string
	Counter         string
	Threshold       int
	EcoPointsReward int64
}

const badgeColumns = `id, name, description, tier, counter, threshold, eco_points_reward, created_at`

func scanBadge(row interface{ Scan(...any) error }) (*models.Badge, error) {
	badge := &models.Badge{}
	err := row.Scan(
		&badge.ID,
		&badge.Name,
		&badge.Description,
		&badge.Tier,
		&badge.Counter,
		&badge.Threshold,
		&badge.EcoPointsReward,
		&badge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return badge, nil
}

func CreateBadge(ctx context.Context, q Querier, params CreateBadgeParams) (*models.Badge, error) {
	query := `
		INSERT INTO badges (name, description, tier, counter, threshold, eco_points_reward, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + badgeColumns

	badge, err := scanBadge(q.QueryRowContext(ctx, query,
		params.Name,
		params.Description,
		params.Tier,
		params.Counter,
		params.Threshold,
		params.EcoPointsReward,
	))
	if err != nil {
		return nil, fmt.Errorf("create badge: %w", err)
	}

	return badge, nil
}

func GetBadge(ctx context.Context, q Querier, id int64) (*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE id = $1`

	badge, err := scanBadge(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrBadgeNotFound
		}
		return nil, fmt.Errorf("get badge: %w", err)
	}

	return badge, nil
}

// ListBadgesByCounter returns the badges whose criterion watches the given
// counter, cheapest threshold first.
func ListBadgesByCounter(ctx context.Context, q Querier, counter string) ([]models.Badge, error) {
	query := `SELECT ` + badgeColumns + `
		FROM badges
		WHERE counter = $1
		ORDER BY threshold`

	rows, err := q.QueryContext(ctx, query, counter)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, *badge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return badges, nil
}

// InsertUserBadge awards a badge. The (user_id, badge_id) unique constraint
// makes the award idempotent; returns true only for a fresh award.
func InsertUserBadge(ctx context.Context, q Querier, userID, badgeID int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO user_badges (user_id, badge_id, earned_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id, badge_id) DO NOTHING`,
		userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("insert user badge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func ListUserBadges(ctx context.Context, q Querier, userID int64) ([]models.UserBadge, error) {
	query := `
		SELECT id, user_id, badge_id, earned_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at DESC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	defer rows.Close()

	var userBadges []models.UserBadge
	for rows.Next() {
		var ub models.UserBadge
		if err := rows.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan user badge: %w", err)
		}
		userBadges = append(userBadges, ub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return userBadges, nil
}
