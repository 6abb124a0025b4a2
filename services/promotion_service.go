package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/casaluna/casaluna-api/models"
)

// OrderLine is one cart line as seen by the promotion engine: the resolved
// catalog item plus the quantity and price snapshot it will be ordered at.
type OrderLine struct {
	Item      models.MenuItem
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineTotal returns UnitPrice * Quantity
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PromotionService evaluates promotion applicability and computes discounts
type PromotionService struct {
	db *gorm.DB
}

// NewPromotionService creates a promotion service bound to a database handle
func NewPromotionService(db *gorm.DB) *PromotionService {
	return &PromotionService{db: db}
}

// FindByCoupon looks up an active-or-not promotion by its coupon code.
// Preloads the scope lists so Evaluate can match against them.
func (s *PromotionService) FindByCoupon(code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := s.db.Preload("Categories").Preload("Items").
		Where("coupon_code = ?", code).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "promotion"}
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// Evaluate checks whether the promotion applies to the given order lines
// and, if so, returns the discount amount. A failed check is "not
// applicable" (applicable == false), never an error.
func (s *PromotionService) Evaluate(promo *models.Promotion, lines []OrderLine, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, bool) {
	if !promo.IsActive {
		return decimal.Zero, false
	}
	if now.Before(promo.StartDate) || now.After(promo.EndDate) {
		return decimal.Zero, false
	}
	if promo.MinOrderValue.Valid && subtotal.LessThan(promo.MinOrderValue.Decimal) {
		return decimal.Zero, false
	}
	if promo.UsageLimit != nil && promo.UsageCount >= *promo.UsageLimit {
		return decimal.Zero, false
	}

	qualifying := s.qualifyingLines(promo, lines)
	if len(qualifying) == 0 {
		return decimal.Zero, false
	}

	discount := s.discountFor(promo, qualifying, subtotal)
	if discount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}
	return discount, true
}

// qualifyingLines returns the order lines inside the promotion's scope.
// A promotion that applies to all items qualifies every line; otherwise a
// line qualifies when its item or its category is on the allow-list. Any
// qualifying line is sufficient for the promotion to apply.
func (s *PromotionService) qualifyingLines(promo *models.Promotion, lines []OrderLine) []OrderLine {
	if promo.AppliesToAll {
		return lines
	}

	allowedItems := make(map[uint]bool, len(promo.Items))
	for _, item := range promo.Items {
		allowedItems[item.ID] = true
	}
	allowedCategories := make(map[uint]bool, len(promo.Categories))
	for _, cat := range promo.Categories {
		allowedCategories[cat.ID] = true
	}

	var qualifying []OrderLine
	for _, line := range lines {
		if allowedItems[line.Item.ID] || allowedCategories[line.Item.CategoryID] {
			qualifying = append(qualifying, line)
		}
	}
	return qualifying
}

// discountFor computes the discount amount for the promotion type.
// Never returns a value greater than the subtotal.
func (s *PromotionService) discountFor(promo *models.Promotion, qualifying []OrderLine, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch promo.Type {
	case models.PromotionTypePercentage:
		discount = subtotal.Mul(promo.Value).Div(decimal.NewFromInt(100))

	case models.PromotionTypeFixedAmount:
		discount = decimal.Min(promo.Value, subtotal)

	case models.PromotionTypeFreeItem:
		if promo.FreeItemID == nil {
			return decimal.Zero
		}
		// Discount is the price of one unit of the designated item, if
		// the order actually contains it.
		for _, line := range qualifying {
			if line.Item.ID == *promo.FreeItemID {
				discount = line.UnitPrice
				break
			}
		}

	case models.PromotionTypeBOGO:
		// One unit of the cheapest qualifying line is free
		cheapest := qualifying[0].UnitPrice
		for _, line := range qualifying[1:] {
			if line.UnitPrice.LessThan(cheapest) {
				cheapest = line.UnitPrice
			}
		}
		discount = cheapest

	default:
		return decimal.Zero
	}

	return decimal.Min(discount, subtotal).Round(2)
}

// Reserve takes one usage slot for the promotion inside the caller's
// transaction. The counter is advanced with a conditional update so that
// two concurrent checkouts cannot both take the last slot; when the guard
// loses the race the promotion is reported as not applied rather than an
// error. Rolls back with the surrounding transaction.
func (s *PromotionService) Reserve(tx *gorm.DB, promo *models.Promotion) (bool, error) {
	query := tx.Model(&models.Promotion{}).
		Where("id = ?", promo.ID)
	if promo.UsageLimit != nil {
		query = query.Where("usage_count < ?", *promo.UsageLimit)
	}

	result := query.UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordUsage writes the redemption record for an order. Called inside the
// checkout transaction, after the order row exists.
func (s *PromotionService) RecordUsage(tx *gorm.DB, promo *models.Promotion, orderID uint, subtotal, discount decimal.Decimal) error {
	usage := models.PromotionUsage{
		PromotionID:    promo.ID,
		OrderID:        orderID,
		DiscountAmount: discount,
		OriginalAmount: subtotal,
		FinalAmount:    subtotal.Sub(discount),
	}
	return tx.Create(&usage).Error
}
