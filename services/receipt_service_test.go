package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaluna/casaluna-api/models"
)

func sampleOrder() *models.Order {
	method := "card"
	pickup := time.Date(2026, 8, 28, 19, 30, 0, 0, time.UTC)
	return &models.Order{
		Number:   "a1b2c3",
		Customer: models.User{Name: "Maria Flores"},
		Status:   models.OrderStatusConfirmed,
		Items: []models.OrderItem{
			{
				MenuItem:     models.MenuItem{Name: "Street Tacos"},
				Quantity:     2,
				UnitPrice:    decimal.RequireFromString("4.50"),
				Instructions: "no cilantro",
			},
			{
				MenuItem:  models.MenuItem{Name: "Horchata"},
				Quantity:  1,
				UnitPrice: decimal.RequireFromString("3.00"),
			},
		},
		OrderType:           models.OrderTypePickup,
		Subtotal:            decimal.RequireFromString("12.00"),
		DiscountAmount:      decimal.RequireFromString("1.20"),
		Total:               decimal.RequireFromString("10.80"),
		PaymentMethod:       &method,
		EstimatedPickupTime: &pickup,
		Notes:               "ring the bell",
		CreatedAt:           time.Date(2026, 8, 28, 17, 0, 0, 0, time.UTC),
	}
}

func TestRenderReceipt_IncludesPricesAndTotals(t *testing.T) {
	service := NewReceiptService()
	document, err := service.RenderReceipt(sampleOrder())
	require.NoError(t, err)

	html := string(document)
	assert.Contains(t, html, "Street Tacos")
	assert.Contains(t, html, "no cilantro")
	assert.Contains(t, html, "$4.50")
	assert.Contains(t, html, "$12.00")
	assert.Contains(t, html, "$1.20")
	assert.Contains(t, html, "$10.80")
	assert.Contains(t, html, "Maria Flores")
	assert.Contains(t, html, "Paid by card")
	assert.Contains(t, html, "window.print()")
}

func TestRenderReceipt_OmitsZeroDiscount(t *testing.T) {
	order := sampleOrder()
	order.DiscountAmount = decimal.Zero
	order.Total = order.Subtotal

	service := NewReceiptService()
	document, err := service.RenderReceipt(order)
	require.NoError(t, err)
	assert.NotContains(t, string(document), "Discount")
}

func TestRenderKitchenTicket_NoPrices(t *testing.T) {
	service := NewReceiptService()
	document, err := service.RenderKitchenTicket(sampleOrder())
	require.NoError(t, err)

	html := string(document)
	assert.Contains(t, html, "Street Tacos")
	assert.Contains(t, html, "no cilantro")
	assert.Contains(t, html, "ring the bell")
	assert.Contains(t, html, "2×")

	// The kitchen never sees money
	assert.NotContains(t, html, "$")
	assert.NotContains(t, html, "Total")
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		expected string
	}{
		{"4.50", "$4.50"},
		{"0", "$0.00"},
		{"1234.5", "$1,234.50"},
		{"10.8", "$10.80"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatMoney(decimal.RequireFromString(tt.amount)))
	}
}
