package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/models"
)

func createPaidOrder(t *testing.T, db *gorm.DB, customer *models.User, total string, daysAgo int) {
	order := models.Order{
		Number:        "CL-RPT-" + total + "-" + time.Now().Add(-time.Duration(daysAgo)*24*time.Hour).Format("20060102150405.000000000"),
		CustomerID:    customer.ID,
		OrderType:     models.OrderTypePickup,
		Status:        models.OrderStatusCompleted,
		PaymentStatus: models.PaymentStatusPaid,
		Subtotal:      decimal.RequireFromString(total),
		Total:         decimal.RequireFromString(total),
	}
	require.NoError(t, db.Create(&order).Error)
	createdAt := time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour)
	require.NoError(t, db.Model(&order).Update("created_at", createdAt).Error)
}

func TestGetRevenueByDay(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	customer := createTestUser(t, db, "auth0|rpt", "rpt@example.com", models.RoleCustomer)
	createPaidOrder(t, db, customer, "25.00", 1)
	createPaidOrder(t, db, customer, "40.00", 2)

	router := setupTestRouter()
	router.GET("/admin/reports/revenue-by-day", GetRevenueByDay)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/reports/revenue-by-day", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	assert.Equal(t, true, response["success"])
	data := response["data"].([]interface{})
	assert.Len(t, data, 2)
}

func TestGetRevenueByDay_ExplicitRange(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	customer := createTestUser(t, db, "auth0|rpt", "rpt@example.com", models.RoleCustomer)
	createPaidOrder(t, db, customer, "25.00", 1)
	createPaidOrder(t, db, customer, "40.00", 10)

	router := setupTestRouter()
	router.GET("/admin/reports/revenue-by-day", GetRevenueByDay)

	from := time.Now().Add(-3 * 24 * time.Hour).Format("2006-01-02")
	to := time.Now().Format("2006-01-02")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/reports/revenue-by-day?from="+from+"&to="+to, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	data := response["data"].([]interface{})
	assert.Len(t, data, 1)
}

func TestReportRange_Invalid(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	router := setupTestRouter()
	router.GET("/admin/reports/revenue-by-day", GetRevenueByDay)
	router.GET("/admin/reports/popular-items", GetPopularItems)

	tests := []struct {
		name string
		url  string
	}{
		{"garbage from", "/admin/reports/revenue-by-day?from=yesterday"},
		{"garbage to", "/admin/reports/revenue-by-day?to=eventually"},
		{"to before from", "/admin/reports/revenue-by-day?from=2026-08-20&to=2026-08-01"},
		{"garbage range on items", "/admin/reports/popular-items?from=not-a-date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", tt.url, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_DATE_RANGE", errorCode(t, w))
		})
	}
}

func TestGetPopularItems_RespectsLimit(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	customer := createTestUser(t, db, "auth0|rpt", "rpt@example.com", models.RoleCustomer)
	_, item := createTestCatalog(t, db)

	order := models.Order{
		Number:        "CL-RPT-POP",
		CustomerID:    customer.ID,
		OrderType:     models.OrderTypePickup,
		Status:        models.OrderStatusCompleted,
		PaymentStatus: models.PaymentStatusPaid,
		Subtotal:      decimal.RequireFromString("11.00"),
		Total:         decimal.RequireFromString("11.00"),
	}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderItem{
		OrderID:    order.ID,
		MenuItemID: item.ID,
		UnitPrice:  item.Price,
		Quantity:   1,
	}
	require.NoError(t, db.Create(&line).Error)

	router := setupTestRouter()
	router.GET("/admin/reports/popular-items", GetPopularItems)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/reports/popular-items?limit=1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	data := response["data"].([]interface{})
	require.Len(t, data, 1)
	entry := data[0].(map[string]interface{})
	assert.Equal(t, item.Name, entry["name"])
}

func TestGetCustomerSegments(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	customer := createTestUser(t, db, "auth0|rpt", "rpt@example.com", models.RoleCustomer)
	createPaidOrder(t, db, customer, "15.00", 1)

	router := setupTestRouter()
	router.GET("/admin/reports/customer-segments", GetCustomerSegments)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/reports/customer-segments", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	assert.Equal(t, true, response["success"])
}
