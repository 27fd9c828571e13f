package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecothread/marketplace/internal/database"
	"github.com/ecothread/marketplace/internal/models"
)

type InsertOrderParams struct {
	BuyerID         int64
	SellerID        int64
	ProductID       int64
	Quantity        int
	AmountMinor     int64
	PaymentMode     string
	PickupAddress   string
	DeliveryAddress string
	Trail           []models.TrackingUpdate
}

const orderColumns = `id, buyer_id, seller_id, agent_id, product_id, quantity,
	amount_minor, payment_mode, pickup_address, delivery_address, status, trail,
	created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	order := &models.Order{}
	var trail []byte
	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&order.SellerID,
		&order.AgentID,
		&order.ProductID,
		&order.Quantity,
		&order.AmountMinor,
		&order.PaymentMode,
		&order.PickupAddress,
		&order.DeliveryAddress,
		&order.Status,
		&trail,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(trail, &order.Trail); err != nil {
		return nil, fmt.Errorf("decode trail: %w", err)
	}
	return order, nil
}

func InsertOrder(ctx context.Context, q Querier, params InsertOrderParams) (*models.Order, error) {
	trail, err := json.Marshal(params.Trail)
	if err != nil {
		return nil, fmt.Errorf("encode trail: %w", err)
	}

	query := `
		INSERT INTO orders (buyer_id, seller_id, product_id, quantity, amount_minor,
		                    payment_mode, pickup_address, delivery_address, status, trail,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, NOW(), NOW())
		RETURNING ` + orderColumns

	order, err := scanOrder(q.QueryRowContext(ctx, query,
		params.BuyerID,
		params.SellerID,
		params.ProductID,
		params.Quantity,
		params.AmountMinor,
		params.PaymentMode,
		params.PickupAddress,
		params.DeliveryAddress,
		trail,
	))
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	return order, nil
}

func GetOrder(ctx context.Context, q Querier, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// GetOrderForUpdate locks the order row; concurrent advances on the same
// order serialize here and the loser re-reads the new status.
func GetOrderForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	return order, nil
}

// UpdateOrderStatus writes the new status and the whole trail under a
// precondition on the current status. A zero rows-affected result means the
// caller's view was stale.
func UpdateOrderStatus(ctx context.Context, q Querier, id int64, fromStatus, toStatus string, trail []models.TrackingUpdate) error {
	encoded, err := json.Marshal(trail)
	if err != nil {
		return fmt.Errorf("encode trail: %w", err)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, trail = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		toStatus, encoded, id, fromStatus)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

func AssignOrderAgent(ctx context.Context, q Querier, id, agentID int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders SET agent_id = $1, updated_at = NOW() WHERE id = $2`,
		agentID, id)
	if err != nil {
		return fmt.Errorf("assign order agent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

// OrderRole selects which side of the order a listing is scoped to.
type OrderRole string

const (
	OrderRoleBuyer  OrderRole = "buyer"
	OrderRoleSeller OrderRole = "seller"
)

func ListOrdersCursor(ctx context.Context, q Querier, userID int64, role OrderRole, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	column := "buyer_id"
	if role == OrderRoleSeller {
		column = "seller_id"
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ` + column + ` = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := q.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListDeliveredOrderIDsBefore feeds the operator sweep that completes
// delivered orders whose quiet period has elapsed.
func ListDeliveredOrderIDsBefore(ctx context.Context, q Querier, cutoff time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM orders
		WHERE status = 'delivered' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`

	rows, err := q.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list delivered orders: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}
