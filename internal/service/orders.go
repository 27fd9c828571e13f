package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
	"github.com/ecothread/marketplace/internal/store"
)

// legalPredecessors maps each status to the statuses an order may advance
// from. Cancellation is reachable from any state before delivery; once the
// garment is delivered the sale credit has settled and only completion
// remains. Completed and cancelled are terminal.
var legalPredecessors = map[string][]string{
	models.OrderStatusAssigned:  {models.OrderStatusPending},
	models.OrderStatusPickedUp:  {models.OrderStatusAssigned},
	models.OrderStatusInTransit: {models.OrderStatusPickedUp},
	models.OrderStatusDelivered: {models.OrderStatusInTransit},
	models.OrderStatusCompleted: {models.OrderStatusDelivered},
	models.OrderStatusCancelled: {
		models.OrderStatusPending,
		models.OrderStatusAssigned,
		models.OrderStatusPickedUp,
		models.OrderStatusInTransit,
	},
}

// CanAdvance reports whether from → to is a legal transition.
func CanAdvance(from, to string) bool {
	for _, pred := range legalPredecessors[to] {
		if pred == from {
			return true
		}
	}
	return false
}

// CompletionPolicy decides when a delivered order may be auto-completed
// without the buyer confirming. The machine never hard-codes a timer.
type CompletionPolicy interface {
	ShouldComplete(order *models.Order, now time.Time) bool
}

// QuietPeriodPolicy completes a delivered order once it has sat unconfirmed
// for the configured period.
type QuietPeriodPolicy struct {
	Period time.Duration
}

func (p QuietPeriodPolicy) ShouldComplete(order *models.Order, now time.Time) bool {
	if order.Status != models.OrderStatusDelivered {
		return false
	}
	for i := len(order.Trail) - 1; i >= 0; i-- {
		if order.Trail[i].Status == models.OrderStatusDelivered {
			return !now.Before(order.Trail[i].At.Add(p.Period))
		}
	}
	return false
}

type OrderService struct {
	db     *sql.DB
	engine *SustainabilityEngine
	policy CompletionPolicy
}

func NewOrderService(db *sql.DB, engine *SustainabilityEngine, policy CompletionPolicy) *OrderService {
	return &OrderService{db: db, engine: engine, policy: policy}
}

// Advance moves an order to a new status. Advancing to the status the order
// already holds succeeds without touching the trail, so courier callbacks can
// retry safely. Entering delivered marks the garment unavailable and credits
// the seller, all inside the same transaction.
func (s *OrderService) Advance(ctx context.Context, orderID int64, to, actor, note string) (*models.Order, error) {
	var result *models.Order

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		order, err := s.advanceTx(ctx, tx, orderID, to, actor, note)
		if err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *OrderService) advanceTx(ctx context.Context, tx *sql.Tx, orderID int64, to, actor, note string) (*models.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == to {
		return order, nil
	}

	if !CanAdvance(order.Status, to) {
		return nil, ErrIllegalTransition
	}

	order.Trail = append(order.Trail, models.TrackingUpdate{
		Status: to,
		At:     time.Now().UTC(),
		Actor:  actor,
		Note:   note,
	})

	if err := store.UpdateOrderStatus(ctx, tx, order.ID, order.Status, to, order.Trail); err != nil {
		return nil, err
	}
	order.Status = to

	if to == models.OrderStatusDelivered {
		// Single-unit inventory: the garment leaves the shop floor the
		// moment it reaches the buyer.
		if err := store.SetProductAvailability(ctx, tx, order.ProductID, false); err != nil {
			return nil, err
		}
		if err := s.engine.RecordSaleTx(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// Assign sets the courier on an order and advances it to assigned, in one
// transaction.
func (s *OrderService) Assign(ctx context.Context, orderID, agentID int64, actor string) (*models.Order, error) {
	var result *models.Order

	err := database.WithRetry(ctx, s.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		if err := store.AssignOrderAgent(ctx, tx, orderID, agentID); err != nil {
			return err
		}
		order, err := s.advanceTx(ctx, tx, orderID, models.OrderStatusAssigned, actor, "")
		if err != nil {
			return err
		}
		order.AgentID = &agentID
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Get returns an order if the caller is its buyer, seller or assigned agent.
func (s *OrderService) Get(ctx context.Context, orderID, callerID int64) (*models.Order, error) {
	order, err := store.GetOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}

	if order.BuyerID != callerID && order.SellerID != callerID &&
		(order.AgentID == nil || *order.AgentID != callerID) {
		return nil, ErrForbidden
	}

	return order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID int64, role store.OrderRole, cursor string, limit int) (*store.CursorPage, error) {
	return store.ListOrdersCursor(ctx, s.db, userID, role, cursor, limit)
}

// CompleteDelivered sweeps delivered orders whose quiet period has elapsed
// and advances them to completed. The operator decides when to run it; there
// is no intrinsic timer. Returns how many orders were completed.
func (s *OrderService) CompleteDelivered(ctx context.Context, now time.Time, batchSize int) (int, error) {
	ids, err := store.ListDeliveredOrderIDsBefore(ctx, s.db, now, batchSize)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, id := range ids {
		order, err := store.GetOrder(ctx, s.db, id)
		if err != nil {
			return completed, err
		}
		if !s.policy.ShouldComplete(order, now) {
			continue
		}
		if _, err := s.Advance(ctx, id, models.OrderStatusCompleted, "system", "auto-completed after quiet period"); err != nil {
			return completed, err
		}
		completed++
	}

	return completed, nil
}

// MilestoneState tags each tracking milestone for display.
type MilestoneState string

const (
	MilestoneDone    MilestoneState = "done"
	MilestoneActive  MilestoneState = "active"
	MilestonePending MilestoneState = "pending"
)

type Milestone struct {
	Key   string         `json:"key"`
	State MilestoneState `json:"state"`
	At    *time.Time     `json:"at,omitempty"`
}

// milestoneKeys is the fixed checklist tracking screens render.
var milestoneKeys = []string{
	"confirmed",
	models.OrderStatusPickedUp,
	models.OrderStatusInTransit,
	models.OrderStatusDelivered,
	models.OrderStatusCompleted,
}

// statusMilestone maps an order status onto the milestone it represents.
// Assignment is part of the confirmation phase.
func statusMilestone(status string) int {
	switch status {
	case models.OrderStatusPending, models.OrderStatusAssigned:
		return 0
	case models.OrderStatusPickedUp:
		return 1
	case models.OrderStatusInTransit:
		return 2
	case models.OrderStatusDelivered:
		return 3
	case models.OrderStatusCompleted:
		return 4
	}
	return -1
}

// Progress derives the five-milestone checklist from an order's status and
// trail. This is the single source of truth for tracking screens.
func Progress(order *models.Order) []Milestone {
	milestones := make([]Milestone, len(milestoneKeys))
	for i, key := range milestoneKeys {
		milestones[i] = Milestone{Key: key, State: MilestonePending}
	}

	// Timestamps come from the trail where a matching entry exists. The
	// pending entry stamps the confirmed milestone.
	for _, update := range order.Trail {
		idx := statusMilestone(update.Status)
		if idx < 0 {
			continue
		}
		at := update.At
		if milestones[idx].At == nil {
			milestones[idx].At = &at
		}
	}

	if order.Status == models.OrderStatusCancelled {
		// A cancelled order keeps its reached milestones but nothing is in
		// progress anymore.
		for _, update := range order.Trail {
			if idx := statusMilestone(update.Status); idx >= 0 {
				milestones[idx].State = MilestoneDone
			}
		}
		return milestones
	}

	current := statusMilestone(order.Status)
	for i := range milestones {
		switch {
		case i < current:
			milestones[i].State = MilestoneDone
		case i == current:
			if order.Status == models.OrderStatusCompleted {
				milestones[i].State = MilestoneDone
			} else {
				milestones[i].State = MilestoneActive
			}
		}
	}

	return milestones
}
