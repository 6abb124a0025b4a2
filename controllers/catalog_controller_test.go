package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/models"
	"github.com/casaluna/casaluna-api/services"
)

func TestListMenuItems_PublicView(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	services.SetImageService(nil)

	category, item := createTestCatalog(t, db)
	hidden := models.MenuItem{
		Name: "Off Menu", Price: decimal.RequireFromString("5.00"),
		CategoryID: category.ID, MenuID: item.MenuID, IsAvailable: false,
	}
	require.NoError(t, db.Create(&hidden).Error)

	router := setupTestRouter()
	router.GET("/menu-items", ListMenuItems)

	req := httptest.NewRequest(http.MethodGet, "/menu-items", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeResponse(t, w)["data"].([]interface{})
	require.Len(t, items, 1, "unavailable items must not be listed")
	assert.Equal(t, "Enchiladas", items[0].(map[string]interface{})["name"])
}

func TestListMenuItems_CategoryFilter(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	services.SetImageService(nil)

	category, item := createTestCatalog(t, db)
	drinks := models.Category{Name: "Drinks"}
	require.NoError(t, db.Create(&drinks).Error)
	agua := models.MenuItem{
		Name: "Agua Fresca", Price: decimal.RequireFromString("3.50"),
		CategoryID: drinks.ID, MenuID: item.MenuID, IsAvailable: true,
	}
	require.NoError(t, db.Create(&agua).Error)

	router := setupTestRouter()
	router.GET("/menu-items", ListMenuItems)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/menu-items?category_id=%d", drinks.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	items := decodeResponse(t, w)["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Agua Fresca", items[0].(map[string]interface{})["name"])
	_ = category
}

func TestGetMenuItem_IncludesImageURL(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	mock := services.NewMockImageService()
	services.SetImageService(mock)
	t.Cleanup(func() { services.SetImageService(nil) })

	_, item := createTestCatalog(t, db)
	key := "menu-items/123_enchiladas.png"
	require.NoError(t, db.Model(&item).Update("image_s3_key", &key).Error)

	router := setupTestRouter()
	router.GET("/menu-items/:id", GetMenuItem)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/menu-items/%d", item.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.NotEmpty(t, data["image_url"])
}

func TestGetMenuItem_NotFound(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	services.SetImageService(nil)

	router := setupTestRouter()
	router.GET("/menu-items/:id", GetMenuItem)

	req := httptest.NewRequest(http.MethodGet, "/menu-items/4242", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestCreateMenuItem(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	category, item := createTestCatalog(t, db)

	router := setupTestRouter()
	router.POST("/admin/menu-items", CreateMenuItem)

	payload := MenuItemRequest{
		Name:       "Mole Poblano",
		Price:      decimal.RequireFromString("16.50"),
		CategoryID: category.ID,
		MenuID:     item.MenuID,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/admin/menu-items", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Mole Poblano", data["name"])
	assert.Equal(t, true, data["is_available"])
}

func TestCreateMenuItem_Failures(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	category, item := createTestCatalog(t, db)

	router := setupTestRouter()
	router.POST("/admin/menu-items", CreateMenuItem)

	tests := []struct {
		name           string
		payload        string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "missing name",
			payload:        fmt.Sprintf(`{"price":"9.99","category_id":%d,"menu_id":%d}`, category.ID, item.MenuID),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "negative price",
			payload:        fmt.Sprintf(`{"name":"X","price":"-1.00","category_id":%d,"menu_id":%d}`, category.ID, item.MenuID),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_PRICE",
		},
		{
			name:           "unknown category",
			payload:        fmt.Sprintf(`{"name":"X","price":"9.99","category_id":4242,"menu_id":%d}`, item.MenuID),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "unknown menu",
			payload:        fmt.Sprintf(`{"name":"X","price":"9.99","category_id":%d,"menu_id":4242}`, category.ID),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/menu-items",
				bytes.NewBufferString(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, "body: %s", w.Body.String())
			assert.Equal(t, tt.expectedCode, errorCode(t, w))
		})
	}
}

func TestUpdateMenuItem_RepriceDoesNotTouchOrders(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	services.SetGatewayService(nil)
	category, item := createTestCatalog(t, db)
	customer := createTestUser(t, db, "auth0|cust", "cust@example.com", models.RoleCustomer)

	orderService := services.NewOrderService(db)
	order, err := orderService.CreateOrder(services.CreateOrderInput{
		CustomerID: customer.ID,
		OrderType:  models.OrderTypePickup,
		Items:      []services.CheckoutItem{{MenuItemID: item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	router := setupTestRouter()
	router.PUT("/admin/menu-items/:id", UpdateMenuItem)

	payload := fmt.Sprintf(`{"name":"Enchiladas","price":"14.00","category_id":%d,"menu_id":%d}`,
		category.ID, item.MenuID)
	req := httptest.NewRequest(http.MethodPut,
		fmt.Sprintf("/admin/menu-items/%d", item.ID), bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	// The existing order keeps its price snapshot
	reloaded, err := orderService.GetOrder(order.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Items[0].UnitPrice.Equal(decimal.RequireFromString("11.00")))
}

func TestDeleteMenu_InUseConflicts(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	_, item := createTestCatalog(t, db)

	router := setupTestRouter()
	router.DELETE("/admin/menus/:id", DeleteMenu)

	req := httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/admin/menus/%d", item.MenuID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "MENU_IN_USE", errorCode(t, w))
}

func TestDeleteCategory_InUseConflicts(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	category, _ := createTestCatalog(t, db)

	router := setupTestRouter()
	router.DELETE("/admin/categories/:id", DeleteCategory)

	req := httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/admin/categories/%d", category.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CATEGORY_IN_USE", errorCode(t, w))
}

func TestDeleteMenuItem_RemovesStoredImage(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	mock := services.NewMockImageService()
	services.SetImageService(mock)
	t.Cleanup(func() { services.SetImageService(nil) })

	_, item := createTestCatalog(t, db)
	key := "menu-items/123_enchiladas.png"
	require.NoError(t, db.Model(&item).Update("image_s3_key", &key).Error)

	router := setupTestRouter()
	router.DELETE("/admin/menu-items/:id", DeleteMenuItem)

	req := httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/admin/menu-items/%d", item.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, mock.DeletedKeys, key)
}
