package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
	"github.com/ecothread/marketplace/internal/store"
)

type RewardsService struct {
	db *sql.DB
}

func NewRewardsService(db *sql.DB) *RewardsService {
	return &RewardsService{db: db}
}

var redemptionSeq atomic.Int64

// generateRedemptionCode returns a monotonically increasing code. The
// sequence tiebreaker keeps codes unique even when two redemptions land in
// the same nanosecond.
func generateRedemptionCode() string {
	return fmt.Sprintf("RDM-%d-%04d", time.Now().UnixNano(), redemptionSeq.Add(1)%10000)
}

func (s *RewardsService) List(ctx context.Context) ([]models.Reward, error) {
	return store.ListActiveRewards(ctx, s.db)
}

// Redeem spends points on a reward. Reward lookup, stock check, points
// deduction, stock decrement and redemption insert all run in one
// transaction; concurrent redemptions of the last unit serialize on the
// reward row lock and the loser sees OutOfStock.
func (s *RewardsService) Redeem(ctx context.Context, userID, rewardID int64) (*models.Redemption, error) {
	var result *models.Redemption

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		reward, err := store.GetRewardForUpdate(ctx, tx, rewardID)
		if err != nil {
			return err
		}
		if !reward.Active {
			return database.ErrRewardNotFound
		}
		if reward.Stock != nil && *reward.Stock <= 0 {
			return ErrOutOfStock
		}

		if err := store.EnsureStat(ctx, tx, userID); err != nil {
			return err
		}
		stat, err := store.GetStatForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if stat.EcoPoints < reward.EcoPointsCost {
			return ErrInsufficientPoints
		}

		deducted, err := store.AddEcoPoints(ctx, tx, userID, -reward.EcoPointsCost)
		if err != nil {
			return err
		}
		if !deducted {
			return ErrInsufficientPoints
		}

		if reward.Stock != nil {
			decremented, err := store.AdjustRewardStock(ctx, tx, rewardID, -1)
			if err != nil {
				return err
			}
			if !decremented {
				return ErrOutOfStock
			}
		}

		redemption, err := store.InsertRedemption(ctx, tx, userID, rewardID,
			reward.EcoPointsCost, generateRedemptionCode())
		if err != nil {
			return err
		}

		result = redemption
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *RewardsService) ListRedemptions(ctx context.Context, userID int64) ([]models.Redemption, error) {
	return store.ListRedemptionsByUser(ctx, s.db, userID)
}

// legal forward moves for a redemption; cancel is handled separately.
var redemptionSuccessor = map[string]string{
	models.RedemptionStatusPending:  models.RedemptionStatusApproved,
	models.RedemptionStatusApproved: models.RedemptionStatusCompleted,
}

// SetStatus advances a redemption along pending → approved → completed.
func (s *RewardsService) SetStatus(ctx context.Context, redemptionID int64, status string) (*models.Redemption, error) {
	var result *models.Redemption

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		redemption, err := store.GetRedemptionForUpdate(ctx, tx, redemptionID)
		if err != nil {
			return err
		}
		if redemption.Status == status {
			result = redemption
			return nil
		}
		if redemptionSuccessor[redemption.Status] != status {
			return ErrIllegalTransition
		}

		if err := store.UpdateRedemptionStatus(ctx, tx, redemptionID, status, redemption.PointsRefunded); err != nil {
			return err
		}
		redemption.Status = status
		result = redemption
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Cancel refunds the points and restocks the reward exactly once, guarded by
// the points_refunded flag. Cancelling an already cancelled redemption is a
// no-op.
func (s *RewardsService) Cancel(ctx context.Context, userID, redemptionID int64) (*models.Redemption, error) {
	var result *models.Redemption

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		redemption, err := store.GetRedemptionForUpdate(ctx, tx, redemptionID)
		if err != nil {
			return err
		}
		if redemption.UserID != userID {
			return ErrForbidden
		}
		if redemption.Status == models.RedemptionStatusCancelled {
			result = redemption
			return nil
		}

		if !redemption.PointsRefunded {
			refunded, err := store.AddEcoPoints(ctx, tx, userID, redemption.PointsSpent)
			if err != nil {
				return err
			}
			if !refunded {
				return fmt.Errorf("refund points for redemption %d: stat row missing", redemptionID)
			}
			if _, err := store.AdjustRewardStock(ctx, tx, redemption.RewardID, 1); err != nil {
				return err
			}
			redemption.PointsRefunded = true
		}

		if err := store.UpdateRedemptionStatus(ctx, tx, redemptionID,
			models.RedemptionStatusCancelled, redemption.PointsRefunded); err != nil {
			return err
		}
		redemption.Status = models.RedemptionStatusCancelled
		result = redemption
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
