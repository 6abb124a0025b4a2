package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Promotion types
const (
	PromotionTypePercentage  = "PERCENTAGE"
	PromotionTypeFixedAmount = "FIXED_AMOUNT"
	PromotionTypeFreeItem    = "FREE_ITEM"
	PromotionTypeBOGO        = "BUY_ONE_GET_ONE"
)

// Promotion represents a discount rule evaluated at checkout.
// Invariant: UsageCount never exceeds UsageLimit when the latter is set.
type Promotion struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	Name          string              `gorm:"not null" json:"name"`
	Description   string              `gorm:"type:text" json:"description"`
	Type          string              `gorm:"not null" json:"type"` // PERCENTAGE, FIXED_AMOUNT, FREE_ITEM, BUY_ONE_GET_ONE
	Value         decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"value"`
	MinOrderValue decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"min_order_value"`
	StartDate     time.Time           `gorm:"not null" json:"start_date"`
	EndDate       time.Time           `gorm:"not null" json:"end_date"`
	IsActive      bool                `gorm:"not null;default:true" json:"is_active"`
	CouponCode    *string             `gorm:"uniqueIndex" json:"coupon_code,omitempty"`
	UsageLimit    *int                `json:"usage_limit,omitempty"`
	UsageCount    int                 `gorm:"not null;default:0" json:"usage_count"`
	AppliesToAll  bool                `gorm:"not null;default:true" json:"applies_to_all"`
	Categories    []Category          `gorm:"many2many:promotion_categories" json:"categories,omitempty"`
	Items         []MenuItem          `gorm:"many2many:promotion_items" json:"items,omitempty"`
	FreeItemID    *uint               `json:"free_item_id,omitempty"` // designated item for FREE_ITEM promotions
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	DeletedAt     gorm.DeletedAt      `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Promotion model
func (Promotion) TableName() string {
	return "promotions"
}

// ValidPromotionType reports whether t is one of the known promotion types
func ValidPromotionType(t string) bool {
	switch t {
	case PromotionTypePercentage, PromotionTypeFixedAmount,
		PromotionTypeFreeItem, PromotionTypeBOGO:
		return true
	}
	return false
}

// PromotionUsage records a single redemption of a promotion against an
// order. Written exactly once per order and never mutated; the unique
// index on OrderID is what keeps webhook redelivery from double-recording.
type PromotionUsage struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PromotionID    uint            `gorm:"not null;index" json:"promotion_id"`
	Promotion      Promotion       `gorm:"foreignKey:PromotionID" json:"-"`
	OrderID        uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Order          Order           `gorm:"foreignKey:OrderID" json:"-"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	OriginalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"original_amount"`
	FinalAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"final_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName specifies the table name for the PromotionUsage model
func (PromotionUsage) TableName() string {
	return "promotion_usages"
}
