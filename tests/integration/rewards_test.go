package integration

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/ecothread/marketplace/internal/models"
	"github.com/ecothread/marketplace/internal/service"
	"github.com/ecothread/marketplace/internal/store"
)

func grantPoints(t *testing.T, db *sql.DB, userID, points int64) {
	t.Helper()
	ctx := context.Background()
	if err := store.EnsureStat(ctx, db, userID); err != nil {
		t.Fatalf("Ensure stat: %v", err)
	}
	if _, err := store.AddEcoPoints(ctx, db, userID, points); err != nil {
		t.Fatalf("Add eco points: %v", err)
	}
}

func TestRedeemReward(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "user@example.com")
	grantPoints(t, db, user.ID, 100)

	stock := 5
	reward, err := store.CreateReward(ctx, db, store.CreateRewardParams{
		Title:         "Tote Bag",
		EcoPointsCost: 40,
		Stock:         &stock,
	})
	if err != nil {
		t.Fatalf("Create reward: %v", err)
	}

	rewards := service.NewRewardsService(db)
	redemption, err := rewards.Redeem(ctx, user.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if redemption.Status != models.RedemptionStatusPending {
		t.Errorf("Expected pending redemption, got %s", redemption.Status)
	}
	if redemption.PointsSpent != 40 {
		t.Errorf("Expected 40 points spent, got %d", redemption.PointsSpent)
	}
	if redemption.Code == "" {
		t.Error("Redemption code should not be empty")
	}

	stat, err := store.GetStat(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Get stat: %v", err)
	}
	if stat.EcoPoints != 60 {
		t.Errorf("Expected 60 points left, got %d", stat.EcoPoints)
	}

	rewardAfter, err := store.GetReward(ctx, db, reward.ID)
	if err != nil {
		t.Fatalf("Get reward: %v", err)
	}
	if rewardAfter.Stock == nil || *rewardAfter.Stock != 4 {
		t.Errorf("Expected stock 4, got %v", rewardAfter.Stock)
	}
}

func TestRedeemInsufficientPoints(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "user@example.com")
	grantPoints(t, db, user.ID, 10)

	reward, err := store.CreateReward(ctx, db, store.CreateRewardParams{
		Title:         "Tote Bag",
		EcoPointsCost: 40,
	})
	if err != nil {
		t.Fatalf("Create reward: %v", err)
	}

	rewards := service.NewRewardsService(db)
	if _, err := rewards.Redeem(ctx, user.ID, reward.ID); !errors.Is(err, service.ErrInsufficientPoints) {
		t.Errorf("Expected ErrInsufficientPoints, got: %v", err)
	}

	// balance untouched
	stat, err := store.GetStat(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Get stat: %v", err)
	}
	if stat.EcoPoints != 10 {
		t.Errorf("Expected 10 points, got %d", stat.EcoPoints)
	}
}

func TestConcurrentRedemptionLastUnit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user1 := createTestUser(t, db, "user1@example.com")
	user2 := createTestUser(t, db, "user2@example.com")
	grantPoints(t, db, user1.ID, 100)
	grantPoints(t, db, user2.ID, 100)

	stock := 1
	reward, err := store.CreateReward(ctx, db, store.CreateRewardParams{
		Title:         "Plant a Tree Kit",
		EcoPointsCost: 40,
		Stock:         &stock,
	})
	if err != nil {
		t.Fatalf("Create reward: %v", err)
	}

	rewards := service.NewRewardsService(db)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, userID := range []int64{user1.ID, user2.ID} {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, err := rewards.Redeem(ctx, uid, reward.ID)
			results <- err
		}(userID)
	}
	wg.Wait()
	close(results)

	successCount := 0
	outOfStockCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, service.ErrOutOfStock):
			outOfStockCount++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if successCount != 1 || outOfStockCount != 1 {
		t.Errorf("Expected 1 success and 1 out-of-stock, got %d/%d", successCount, outOfStockCount)
	}

	rewardAfter, err := store.GetReward(ctx, db, reward.ID)
	if err != nil {
		t.Fatalf("Get reward: %v", err)
	}
	if rewardAfter.Stock == nil || *rewardAfter.Stock != 0 {
		t.Errorf("Expected stock 0, got %v", rewardAfter.Stock)
	}

	// exactly one balance was debited
	var debited int
	for _, uid := range []int64{user1.ID, user2.ID} {
		stat, err := store.GetStat(ctx, db, uid)
		if err != nil {
			t.Fatalf("Get stat: %v", err)
		}
		if stat.EcoPoints == 60 {
			debited++
		} else if stat.EcoPoints != 100 {
			t.Errorf("Unexpected balance %d for user %d", stat.EcoPoints, uid)
		}
	}
	if debited != 1 {
		t.Errorf("Expected exactly 1 debited balance, got %d", debited)
	}
}

func TestCancelRedemptionRefundsOnce(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "user@example.com")
	grantPoints(t, db, user.ID, 100)

	stock := 3
	reward, err := store.CreateReward(ctx, db, store.CreateRewardParams{
		Title:         "Tote Bag",
		EcoPointsCost: 40,
		Stock:         &stock,
	})
	if err != nil {
		t.Fatalf("Create reward: %v", err)
	}

	rewards := service.NewRewardsService(db)
	redemption, err := rewards.Redeem(ctx, user.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	cancelled, err := rewards.Cancel(ctx, user.ID, redemption.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.RedemptionStatusCancelled {
		t.Errorf("Expected cancelled, got %s", cancelled.Status)
	}

	// cancelling again changes nothing
	if _, err := rewards.Cancel(ctx, user.ID, redemption.ID); err != nil {
		t.Fatalf("Repeat cancel: %v", err)
	}

	stat, err := store.GetStat(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Get stat: %v", err)
	}
	if stat.EcoPoints != 100 {
		t.Errorf("Expected full refund to 100 points, got %d", stat.EcoPoints)
	}

	rewardAfter, err := store.GetReward(ctx, db, reward.ID)
	if err != nil {
		t.Fatalf("Get reward: %v", err)
	}
	if rewardAfter.Stock == nil || *rewardAfter.Stock != 3 {
		t.Errorf("Expected stock restored to 3, got %v", rewardAfter.Stock)
	}
}

func TestCancelForeignRedemption(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, db, "owner@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")
	grantPoints(t, db, owner.ID, 100)

	reward, err := store.CreateReward(ctx, db, store.CreateRewardParams{
		Title:         "Tote Bag",
		EcoPointsCost: 40,
	})
	if err != nil {
		t.Fatalf("Create reward: %v", err)
	}

	rewards := service.NewRewardsService(db)
	redemption, err := rewards.Redeem(ctx, owner.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	if _, err := rewards.Cancel(ctx, stranger.ID, redemption.ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got: %v", err)
	}
}

func TestRedemptionStatusFlow(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "user@example.com")
	grantPoints(t, db, user.ID, 100)

	reward, err := store.CreateReward(ctx, db, store.CreateRewardParams{
		Title:         "Tote Bag",
		EcoPointsCost: 40,
	})
	if err != nil {
		t.Fatalf("Create reward: %v", err)
	}

	rewards := service.NewRewardsService(db)
	redemption, err := rewards.Redeem(ctx, user.ID, reward.ID)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	// pending → completed skips approval
	if _, err := rewards.SetStatus(ctx, redemption.ID, models.RedemptionStatusCompleted); !errors.Is(err, service.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition, got: %v", err)
	}

	approved, err := rewards.SetStatus(ctx, redemption.ID, models.RedemptionStatusApproved)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != models.RedemptionStatusApproved {
		t.Errorf("Expected approved, got %s", approved.Status)
	}

	completed, err := rewards.SetStatus(ctx, redemption.ID, models.RedemptionStatusCompleted)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != models.RedemptionStatusCompleted {
		t.Errorf("Expected completed, got %s", completed.Status)
	}
}
