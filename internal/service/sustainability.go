package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
	"github.com/ecothread/marketplace/internal/store"
	"github.com/shopspring/decimal"
)

// ImpactDelta is the per-garment ecological credit for one event.
type ImpactDelta struct {
	CO2Kg     decimal.Decimal
	WaterL    decimal.Decimal
	Trees     decimal.Decimal
	EcoPoints int64
}

// ImpactTable holds the operator-tunable deltas per event kind.
type ImpactTable struct {
	Sale     ImpactDelta
	Donation ImpactDelta
	Recycle  ImpactDelta
}

// DefaultImpactTable matches the accounting used in production: reselling or
// donating one garment offsets ~7kg CO2 and ~2700L of water; recycling about
// half that.
func DefaultImpactTable() ImpactTable {
	return ImpactTable{
		Sale: ImpactDelta{
			CO2Kg:     decimal.RequireFromString("7.0"),
			WaterL:    decimal.NewFromInt(2700),
			Trees:     decimal.RequireFromString("0.01"),
			EcoPoints: 10,
		},
		Donation: ImpactDelta{
			CO2Kg:     decimal.RequireFromString("7.0"),
			WaterL:    decimal.NewFromInt(2700),
			Trees:     decimal.RequireFromString("0.01"),
			EcoPoints: 15,
		},
		Recycle: ImpactDelta{
			CO2Kg:     decimal.RequireFromString("3.5"),
			WaterL:    decimal.NewFromInt(1500),
			Trees:     decimal.RequireFromString("0.005"),
			EcoPoints: 8,
		},
	}
}

// SustainabilityEngine owns every mutation of the per-user accumulator row.
// Event handlers are strictly additive and run inside the transaction of the
// triggering domain event, so a delivery confirmation either lands fully
// (status + counters + badges + points) or not at all.
type SustainabilityEngine struct {
	db    *sql.DB
	table ImpactTable
}

func NewSustainabilityEngine(db *sql.DB, table ImpactTable) *SustainabilityEngine {
	return &SustainabilityEngine{db: db, table: table}
}

// RecordSaleTx credits the seller for a delivered order. Must be called from
// inside the order transition transaction.
func (e *SustainabilityEngine) RecordSaleTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	return e.applyEvent(ctx, tx, order.SellerID, models.CounterItemsSold, e.table.Sale)
}

// RecordDonationTx credits the seller when a donation listing is published.
// Runs inside the transaction that writes the listing.
func (e *SustainabilityEngine) RecordDonationTx(ctx context.Context, tx *sql.Tx, product *models.Product) error {
	if !product.IsDonation || product.NgoID == nil {
		return ErrNotDonation
	}
	return e.applyEvent(ctx, tx, product.SellerID, models.CounterItemsDonated, e.table.Donation)
}

// RecordDonation is the standalone form of RecordDonationTx.
func (e *SustainabilityEngine) RecordDonation(ctx context.Context, product *models.Product) error {
	return database.WithRetry(ctx, e.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		return e.RecordDonationTx(ctx, tx, product)
	})
}

// RecordRecycleTx credits the current owner for handing a garment to a
// recycling partner.
func (e *SustainabilityEngine) RecordRecycleTx(ctx context.Context, tx *sql.Tx, ownerID int64) error {
	return e.applyEvent(ctx, tx, ownerID, models.CounterItemsRecycled, e.table.Recycle)
}

// RecordRecycle is the standalone form of RecordRecycleTx.
func (e *SustainabilityEngine) RecordRecycle(ctx context.Context, ownerID int64) error {
	return database.WithRetry(ctx, e.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		return e.RecordRecycleTx(ctx, tx, ownerID)
	})
}

func (e *SustainabilityEngine) applyEvent(ctx context.Context, tx *sql.Tx, userID int64, counter string, delta ImpactDelta) error {
	if err := store.EnsureStat(ctx, tx, userID); err != nil {
		return err
	}

	stat, err := store.GetStatForUpdate(ctx, tx, userID)
	if err != nil {
		return err
	}

	switch counter {
	case models.CounterItemsSold:
		stat.ItemsSold++
	case models.CounterItemsDonated:
		stat.ItemsDonated++
	case models.CounterItemsRecycled:
		stat.ItemsRecycled++
	default:
		return fmt.Errorf("unknown counter %q", counter)
	}

	stat.CO2OffsetKg = stat.CO2OffsetKg.Add(delta.CO2Kg)
	stat.WaterSavedL = stat.WaterSavedL.Add(delta.WaterL)
	stat.TreesSaved = stat.TreesSaved.Add(delta.Trees)
	stat.ImpactScore = ComputeImpactScore(stat)
	stat.EcoPoints += delta.EcoPoints

	// Threshold crossings on the counter that just moved. The unique
	// constraint on user_badges keeps double awards out even under replays.
	badges, err := store.ListBadgesByCounter(ctx, tx, counter)
	if err != nil {
		return err
	}
	for _, badge := range badges {
		if counterValue(stat, counter) < badge.Threshold {
			continue
		}
		awarded, err := store.InsertUserBadge(ctx, tx, userID, badge.ID)
		if err != nil {
			return err
		}
		if awarded {
			stat.EcoPoints += badge.EcoPointsReward
		}
	}

	return store.UpdateStat(ctx, tx, stat)
}

func counterValue(stat *models.SustainabilityStat, counter string) int {
	switch counter {
	case models.CounterItemsSold:
		return stat.ItemsSold
	case models.CounterItemsDonated:
		return stat.ItemsDonated
	case models.CounterItemsRecycled:
		return stat.ItemsRecycled
	}
	return 0
}

// ComputeImpactScore derives the display score from the raw counters:
// round(co2*10 + trees*1000 + donated*5 + recycled*3 + sold*2).
func ComputeImpactScore(stat *models.SustainabilityStat) int64 {
	score := stat.CO2OffsetKg.Mul(decimal.NewFromInt(10)).
		Add(stat.TreesSaved.Mul(decimal.NewFromInt(1000))).
		Add(decimal.NewFromInt(int64(stat.ItemsDonated) * 5)).
		Add(decimal.NewFromInt(int64(stat.ItemsRecycled) * 3)).
		Add(decimal.NewFromInt(int64(stat.ItemsSold) * 2))
	return score.Round(0).IntPart()
}

// Get returns the user's accumulator, creating the zero row on first read.
func (e *SustainabilityEngine) Get(ctx context.Context, userID int64) (*models.SustainabilityStat, error) {
	if err := store.EnsureStat(ctx, e.db, userID); err != nil {
		return nil, err
	}
	return store.GetStat(ctx, e.db, userID)
}

func (e *SustainabilityEngine) Badges(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	return store.ListUserBadges(ctx, e.db, userID)
}

func (e *SustainabilityEngine) Leaderboard(ctx context.Context, order store.LeaderboardOrder, limit int) ([]models.SustainabilityStat, error) {
	return store.TopStats(ctx, e.db, order, limit)
}
