package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order lifecycle statuses, in their forward order. CANCELED is a
// side-branch terminal state reachable only from PENDING or CONFIRMED.
const (
	OrderStatusPending        = "PENDING"
	OrderStatusConfirmed      = "CONFIRMED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReadyForPickup = "READY_FOR_PICKUP"
	OrderStatusCompleted      = "COMPLETED"
	OrderStatusCanceled       = "CANCELED"
)

// Payment statuses
const (
	PaymentStatusUnpaid   = "UNPAID"
	PaymentStatusPaid     = "PAID"
	PaymentStatusFailed   = "FAILED"
	PaymentStatusRefunded = "REFUNDED"
)

// Order types
const (
	OrderTypeDineIn = "DINE_IN"
	OrderTypePickup = "PICKUP"
)

// Order represents a customer order. Orders are never physically deleted;
// the lifecycle is expressed entirely through Status.
// Invariant: Total == sum(items price*quantity) - DiscountAmount.
type Order struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	Number              string            `gorm:"uniqueIndex;not null" json:"number"`
	CustomerID          uint              `gorm:"not null;index" json:"customer_id"`
	Customer            User              `gorm:"foreignKey:CustomerID" json:"customer"`
	Status              string            `gorm:"not null;default:'PENDING';index" json:"status"`
	PaymentStatus       string            `gorm:"not null;default:'UNPAID'" json:"payment_status"`
	PaymentMethod       *string           `json:"payment_method"` // nullable, recorded at payment confirmation
	OrderType           string            `gorm:"not null;default:'PICKUP'" json:"order_type"`
	Subtotal            decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	DiscountAmount      decimal.Decimal   `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	Total               decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"total"`
	PromotionID         *uint             `gorm:"index" json:"promotion_id,omitempty"`
	Notes               string            `gorm:"type:text" json:"notes"`
	EstimatedPickupTime *time.Time        `json:"estimated_pickup_time,omitempty"`
	PaymentIntentID     *string           `gorm:"uniqueIndex" json:"payment_intent_id,omitempty"` // external payment id, idempotency key
	ChargeID            *string           `json:"charge_id,omitempty"`
	Items               []OrderItem       `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	DeletedAt           gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// Cancelable reports whether the order is still in a state a customer may
// cancel from. Once preparation starts the order can no longer be canceled.
func (o *Order) Cancelable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// OrderItem is a single line of an order. UnitPrice is a snapshot of the
// catalog price at order-creation time and never changes afterwards.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderID      uint            `gorm:"not null;index" json:"order_id"`
	Order        Order           `gorm:"foreignKey:OrderID" json:"-"`
	MenuItemID   uint            `gorm:"not null;index" json:"menu_item_id"`
	MenuItem     MenuItem        `gorm:"foreignKey:MenuItemID" json:"menu_item"`
	Quantity     int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Instructions string          `gorm:"type:text" json:"instructions"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal returns UnitPrice * Quantity
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusUpdate is an append-only audit entry for an order status
// change. The order's current Status always equals the Status of its most
// recent update row.
type OrderStatusUpdate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Order     Order     `gorm:"foreignKey:OrderID" json:"-"`
	Status    string    `gorm:"not null" json:"status"`
	Note      string    `gorm:"type:text" json:"note"`
	ActorID   *uint     `gorm:"index" json:"actor_id,omitempty"` // nullable, system-generated entries carry no actor
	Actor     *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderStatusUpdate model
func (OrderStatusUpdate) TableName() string {
	return "order_status_updates"
}

// ValidOrderStatus reports whether status is one of the known lifecycle states
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReadyForPickup, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// ValidOrderType reports whether t is one of the known order types
func ValidOrderType(t string) bool {
	return t == OrderTypeDineIn || t == OrderTypePickup
}
