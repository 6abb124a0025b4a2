package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaluna/casaluna-api/models"
)

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

// activeWindow returns a start/end pair that brackets now
func activeWindow() (time.Time, time.Time) {
	now := time.Now()
	return now.Add(-time.Hour), now.Add(time.Hour)
}

func linesFor(items ...models.MenuItem) []OrderLine {
	lines := make([]OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, OrderLine{Item: item, Quantity: 1, UnitPrice: item.Price})
	}
	return lines
}

func subtotalOf(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

func TestEvaluate_PercentageDiscount(t *testing.T) {
	db := setupTestDB(t)
	service := NewPromotionService(db)
	start, end := activeWindow()

	promo := &models.Promotion{
		Name: "Ten Percent Off", Type: models.PromotionTypePercentage,
		Value: decimal.RequireFromString("10"), IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: true,
	}

	// 10% of a $25.00 subtotal is $2.50
	lines := []OrderLine{{
		Item:      models.MenuItem{ID: 1, Name: "Combo"},
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("25.00"),
	}}
	discount, applicable := service.Evaluate(promo, lines, decimal.RequireFromString("25.00"), time.Now())
	require.True(t, applicable)
	assert.True(t, discount.Equal(decimal.RequireFromString("2.50")), "discount was %s", discount)
}

func TestEvaluate_FixedAmountCappedAtSubtotal(t *testing.T) {
	db := setupTestDB(t)
	service := NewPromotionService(db)
	start, end := activeWindow()

	promo := &models.Promotion{
		Name: "Thirty Off", Type: models.PromotionTypeFixedAmount,
		Value: decimal.RequireFromString("30.00"), IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: true,
	}

	// A $30 discount on a $20 order is capped: total never goes negative
	subtotal := decimal.RequireFromString("20.00")
	lines := []OrderLine{{
		Item:      models.MenuItem{ID: 1},
		Quantity:  1,
		UnitPrice: subtotal,
	}}
	discount, applicable := service.Evaluate(promo, lines, subtotal, time.Now())
	require.True(t, applicable)
	assert.True(t, discount.Equal(subtotal))
	assert.True(t, subtotal.Sub(discount).IsZero())
}

func TestEvaluate_BuyOneGetOneFreesCheapestLine(t *testing.T) {
	db := setupTestDB(t)
	_, _, tacos, paella, horchata := seedCatalog(t, db)
	service := NewPromotionService(db)
	start, end := activeWindow()

	promo := &models.Promotion{
		Name: "BOGO", Type: models.PromotionTypeBOGO,
		Value: decimal.Zero, IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: true,
	}

	lines := linesFor(tacos, paella, horchata)
	discount, applicable := service.Evaluate(promo, lines, subtotalOf(lines), time.Now())
	require.True(t, applicable)
	// Horchata at $3.00 is the cheapest line
	assert.True(t, discount.Equal(horchata.Price), "discount was %s", discount)
}

func TestEvaluate_FreeItem(t *testing.T) {
	db := setupTestDB(t)
	_, _, tacos, _, horchata := seedCatalog(t, db)
	service := NewPromotionService(db)
	start, end := activeWindow()

	promo := &models.Promotion{
		Name: "Free Horchata", Type: models.PromotionTypeFreeItem,
		Value: decimal.Zero, IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: true,
		FreeItemID: &horchata.ID,
	}

	// Order contains the designated item: one unit is free
	lines := linesFor(tacos, horchata)
	discount, applicable := service.Evaluate(promo, lines, subtotalOf(lines), time.Now())
	require.True(t, applicable)
	assert.True(t, discount.Equal(horchata.Price))

	// Order without the designated item gets nothing
	lines = linesFor(tacos)
	_, applicable = service.Evaluate(promo, lines, subtotalOf(lines), time.Now())
	assert.False(t, applicable)
}

func TestEvaluate_NotApplicableChecks(t *testing.T) {
	db := setupTestDB(t)
	_, _, tacos, _, _ := seedCatalog(t, db)
	service := NewPromotionService(db)
	start, end := activeWindow()
	lines := linesFor(tacos)
	subtotal := subtotalOf(lines)

	tests := []struct {
		name  string
		promo models.Promotion
	}{
		{
			name: "inactive",
			promo: models.Promotion{
				Type: models.PromotionTypePercentage, Value: decimal.RequireFromString("10"),
				IsActive: false, StartDate: start, EndDate: end, AppliesToAll: true,
			},
		},
		{
			name: "not started yet",
			promo: models.Promotion{
				Type: models.PromotionTypePercentage, Value: decimal.RequireFromString("10"),
				IsActive: true, StartDate: end, EndDate: end.Add(time.Hour), AppliesToAll: true,
			},
		},
		{
			name: "expired",
			promo: models.Promotion{
				Type: models.PromotionTypePercentage, Value: decimal.RequireFromString("10"),
				IsActive: true, StartDate: start.Add(-time.Hour), EndDate: start, AppliesToAll: true,
			},
		},
		{
			name: "below minimum order value",
			promo: models.Promotion{
				Type: models.PromotionTypePercentage, Value: decimal.RequireFromString("10"),
				IsActive: true, StartDate: start, EndDate: end, AppliesToAll: true,
				MinOrderValue: decimal.NewNullDecimal(decimal.RequireFromString("100.00")),
			},
		},
		{
			name: "usage limit exhausted",
			promo: models.Promotion{
				Type: models.PromotionTypePercentage, Value: decimal.RequireFromString("10"),
				IsActive: true, StartDate: start, EndDate: end, AppliesToAll: true,
				UsageLimit: intptr(5), UsageCount: 5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, applicable := service.Evaluate(&tt.promo, lines, subtotal, time.Now())
			assert.False(t, applicable)
		})
	}
}

func TestEvaluate_ScopeMatching(t *testing.T) {
	db := setupTestDB(t)
	_, drinks, tacos, _, horchata := seedCatalog(t, db)
	service := NewPromotionService(db)
	start, end := activeWindow()

	categoryScoped := &models.Promotion{
		Name: "Drinks Deal", Type: models.PromotionTypePercentage,
		Value: decimal.RequireFromString("10"), IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: false,
		Categories: []models.Category{drinks},
	}

	// A drinks line qualifies the order
	lines := linesFor(tacos, horchata)
	_, applicable := service.Evaluate(categoryScoped, lines, subtotalOf(lines), time.Now())
	assert.True(t, applicable)

	// A mains-only order does not qualify for a drinks promotion
	lines = linesFor(tacos)
	_, applicable = service.Evaluate(categoryScoped, lines, subtotalOf(lines), time.Now())
	assert.False(t, applicable)

	itemScoped := &models.Promotion{
		Name: "Taco Tuesday", Type: models.PromotionTypePercentage,
		Value: decimal.RequireFromString("10"), IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: false,
		Items: []models.MenuItem{tacos},
	}

	lines = linesFor(tacos)
	_, applicable = service.Evaluate(itemScoped, lines, subtotalOf(lines), time.Now())
	assert.True(t, applicable)

	lines = linesFor(horchata)
	_, applicable = service.Evaluate(itemScoped, lines, subtotalOf(lines), time.Now())
	assert.False(t, applicable)
}

func TestReserve_StopsAtUsageLimit(t *testing.T) {
	db := setupTestDB(t)
	service := NewPromotionService(db)
	start, end := activeWindow()

	promo := models.Promotion{
		Name: "Limited", Type: models.PromotionTypePercentage,
		Value: decimal.RequireFromString("10"), IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: true,
		CouponCode: strptr("LIMITED"), UsageLimit: intptr(2),
	}
	require.NoError(t, db.Create(&promo).Error)

	for i := 0; i < 2; i++ {
		reserved, err := service.Reserve(db, &promo)
		require.NoError(t, err)
		assert.True(t, reserved, "reservation %d should succeed", i+1)
	}

	// The third attempt finds no free slot
	reserved, err := service.Reserve(db, &promo)
	require.NoError(t, err)
	assert.False(t, reserved)

	var current models.Promotion
	require.NoError(t, db.First(&current, promo.ID).Error)
	assert.Equal(t, 2, current.UsageCount)
}

func TestReserve_UnlimitedPromotion(t *testing.T) {
	db := setupTestDB(t)
	service := NewPromotionService(db)
	start, end := activeWindow()

	promo := models.Promotion{
		Name: "Evergreen", Type: models.PromotionTypePercentage,
		Value: decimal.RequireFromString("5"), IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: true,
	}
	require.NoError(t, db.Create(&promo).Error)

	for i := 0; i < 3; i++ {
		reserved, err := service.Reserve(db, &promo)
		require.NoError(t, err)
		assert.True(t, reserved)
	}
}

func TestFindByCoupon(t *testing.T) {
	db := setupTestDB(t)
	service := NewPromotionService(db)
	start, end := activeWindow()

	promo := models.Promotion{
		Name: "Welcome", Type: models.PromotionTypePercentage,
		Value: decimal.RequireFromString("15"), IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: true,
		CouponCode: strptr("WELCOME15"),
	}
	require.NoError(t, db.Create(&promo).Error)

	found, err := service.FindByCoupon("WELCOME15")
	require.NoError(t, err)
	assert.Equal(t, promo.ID, found.ID)

	_, err = service.FindByCoupon("MISSING")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCheckoutAppliesCouponAndRecordsUsage(t *testing.T) {
	db := setupTestDB(t)
	_, _, tacos, paella, _ := seedCatalog(t, db)
	customer := seedCustomer(t, db, "auth0|cust1", "cust1@example.com")
	start, end := activeWindow()

	promo := models.Promotion{
		Name: "Ten Percent Off", Type: models.PromotionTypePercentage,
		Value: decimal.RequireFromString("10"), IsActive: true,
		StartDate: start, EndDate: end, AppliesToAll: true,
		CouponCode: strptr("TENOFF"), UsageLimit: intptr(1),
	}
	require.NoError(t, db.Create(&promo).Error)

	service := NewOrderService(db)

	// Subtotal 18.00 + 2*4.50 = 27.00, 10% off is 2.70
	order, err := service.CreateOrder(CreateOrderInput{
		CustomerID: customer.ID,
		OrderType:  models.OrderTypePickup,
		Items: []CheckoutItem{
			{MenuItemID: paella.ID, Quantity: 1},
			{MenuItemID: tacos.ID, Quantity: 2},
		},
		CouponCode: "TENOFF",
	})
	require.NoError(t, err)
	assert.True(t, order.DiscountAmount.Equal(decimal.RequireFromString("2.70")),
		"discount was %s", order.DiscountAmount)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("24.30")))
	require.NotNil(t, order.PromotionID)
	assert.Equal(t, promo.ID, *order.PromotionID)

	var usage models.PromotionUsage
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&usage).Error)
	assert.True(t, usage.DiscountAmount.Equal(order.DiscountAmount))
	assert.True(t, usage.OriginalAmount.Equal(order.Subtotal))
	assert.True(t, usage.FinalAmount.Equal(order.Total))

	// The single usage slot is now taken; the next checkout pays full price
	second, err := service.CreateOrder(CreateOrderInput{
		CustomerID: customer.ID,
		OrderType:  models.OrderTypePickup,
		Items:      []CheckoutItem{{MenuItemID: tacos.ID, Quantity: 1}},
		CouponCode: "TENOFF",
	})
	require.NoError(t, err)
	assert.True(t, second.DiscountAmount.IsZero())
	assert.Nil(t, second.PromotionID)

	var count int64
	db.Model(&models.PromotionUsage{}).Count(&count)
	assert.EqualValues(t, 1, count)
}
