package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Ngo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Product prices are integer minor units (paise/cents). A donation listing
// has PriceMinor 0 and an NgoID.
type Product struct {
	ID                 int64     `json:"id"`
	SellerID           int64     `json:"seller_id"`
	Title              string    `json:"title"`
	Category           string    `json:"category"`
	Condition          string    `json:"condition"`
	PriceMinor         int64     `json:"price_minor"`
	OriginalPriceMinor *int64    `json:"original_price_minor,omitempty"`
	IsDonation         bool      `json:"is_donation"`
	IsAvailable        bool      `json:"is_available"`
	NgoID              *int64    `json:"ngo_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionDamaged = "damaged"
)

type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is a cart item joined with the current product snapshot.
// Unavailable products stay in the line set, flagged, so the caller can
// prompt removal.
type CartLine struct {
	Item        CartItem `json:"item"`
	Product     Product  `json:"product"`
	Unavailable bool     `json:"unavailable"`
}

type CartSummary struct {
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"total_items"`
	TotalMinor int64      `json:"total_minor"`
}

type Favorite struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusAssigned  = "assigned"
	OrderStatusPickedUp  = "picked_up"
	OrderStatusInTransit = "in_transit"
	OrderStatusDelivered = "delivered"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentModeCOD = "cod"
)

// PickupPending is the free-text pickup address placeholder until the seller
// confirms one.
const PickupPending = "To be confirmed by seller"

// TrackingUpdate is one entry of an order's append-only trail.
type TrackingUpdate struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor,omitempty"`
	Note   string    `json:"note,omitempty"`
}

type Order struct {
	ID              int64            `json:"id"`
	BuyerID         int64            `json:"buyer_id"`
	SellerID        int64            `json:"seller_id"`
	AgentID         *int64           `json:"agent_id,omitempty"`
	ProductID       int64            `json:"product_id"`
	Quantity        int              `json:"quantity"`
	AmountMinor     int64            `json:"amount_minor"`
	PaymentMode     string           `json:"payment_mode"`
	PickupAddress   string           `json:"pickup_address"`
	DeliveryAddress string           `json:"delivery_address"`
	Status          string           `json:"status"`
	Trail           []TrackingUpdate `json:"trail"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// SustainabilityStat is the single per-user accumulator row. Fractional
// metrics are decimals so replayed event sums always match the stored value.
type SustainabilityStat struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	ItemsSold     int             `json:"items_sold"`
	ItemsDonated  int             `json:"items_donated"`
	ItemsRecycled int             `json:"items_recycled"`
	CO2OffsetKg   decimal.Decimal `json:"co2_offset_kg"`
	WaterSavedL   decimal.Decimal `json:"water_saved_liters"`
	TreesSaved    decimal.Decimal `json:"trees_saved"`
	ImpactScore   int64           `json:"total_impact_score"`
	EcoPoints     int64           `json:"eco_points"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

const (
	BadgeTierBronze   = "bronze"
	BadgeTierSilver   = "silver"
	BadgeTierGold     = "gold"
	BadgeTierPlatinum = "platinum"
)

// Counter names a badge criterion can reference.
const (
	CounterItemsSold     = "items_sold"
	CounterItemsDonated  = "items_donated"
	CounterItemsRecycled = "items_recycled"
)

type Badge struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Tier            string    `json:"tier"`
	Counter         string    `json:"counter"`
	Threshold       int       `json:"threshold"`
	EcoPointsReward int64     `json:"eco_points_reward"`
	CreatedAt       time.Time `json:"created_at"`
}

type UserBadge struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	BadgeID  int64     `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// Reward stock of nil means unlimited.
type Reward struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	EcoPointsCost int64     `json:"eco_points_cost"`
	Stock         *int      `json:"stock_quantity,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	RedemptionStatusPending   = "pending"
	RedemptionStatusApproved  = "approved"
	RedemptionStatusCompleted = "completed"
	RedemptionStatusCancelled = "cancelled"
)

type Redemption struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	RewardID       int64     `json:"reward_id"`
	PointsSpent    int64     `json:"eco_points_spent"`
	Code           string    `json:"redemption_code"`
	Status         string    `json:"status"`
	PointsRefunded bool      `json:"points_refunded"`
	RedeemedAt     time.Time `json:"redeemed_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
