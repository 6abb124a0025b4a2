package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/models"
	"github.com/casaluna/casaluna-api/services"
)

// MenuRequest represents the request body for creating or updating a menu
type MenuRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// CategoryRequest represents the request body for creating or updating a
// category
type CategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

// MenuItemRequest represents the request body for creating or updating a
// menu item
type MenuItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	CategoryID  uint            `json:"category_id" binding:"required"`
	MenuID      uint            `json:"menu_id" binding:"required"`
	IsAvailable *bool           `json:"is_available"`
}

// ListMenus handles GET /api/v1/menus - public
func ListMenus(c *gin.Context) {
	var menus []models.Menu
	if err := config.GetDB().Where("is_active = ?", true).Order("name").Find(&menus).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    menus,
	})
}

// ListCategories handles GET /api/v1/categories - public
func ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := config.GetDB().Order("display_order, name").Find(&categories).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    categories,
	})
}

// ListMenuItems handles GET /api/v1/menu-items - public, available items
// only, optionally filtered by ?category_id= or ?menu_id=
func ListMenuItems(c *gin.Context) {
	query := config.GetDB().Preload("Category").Where("is_available = ?", true)
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if menuID := c.Query("menu_id"); menuID != "" {
		query = query.Where("menu_id = ?", menuID)
	}

	var items []models.MenuItem
	if err := query.Order("name").Find(&items).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	attachImageURLs(items)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
	})
}

// GetMenuItem handles GET /api/v1/menu-items/:id - public
func GetMenuItem(c *gin.Context) {
	itemID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var item models.MenuItem
	err := config.GetDB().Preload("Category").First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		handleServiceError(c, &services.NotFoundError{Resource: "menu item"})
		return
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if item.ImageS3Key != nil {
		if imageService := services.GetImageService(); imageService != nil {
			if url, err := imageService.GetImageURL(*item.ImageS3Key); err == nil && url != "" {
				item.ImageURL = &url
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// CreateMenu handles POST /api/v1/admin/menus - admin/manager only
func CreateMenu(c *gin.Context) {
	var req MenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	menu := models.Menu{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		menu.IsActive = *req.IsActive
	}

	if err := config.GetDB().Create(&menu).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    menu,
	})
}

// UpdateMenu handles PUT /api/v1/admin/menus/:id - admin/manager only
func UpdateMenu(c *gin.Context) {
	menuID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req MenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var menu models.Menu
	if err := db.First(&menu, menuID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "menu"})
		return
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if err := db.Model(&menu).Updates(updates).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    menu,
	})
}

// DeleteMenu handles DELETE /api/v1/admin/menus/:id - admin/manager only.
// A menu with items still referencing it cannot be deleted.
func DeleteMenu(c *gin.Context) {
	menuID, ok := parseIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var menu models.Menu
	if err := db.First(&menu, menuID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "menu"})
		return
	}

	var itemCount int64
	if err := db.Model(&models.MenuItem{}).Where("menu_id = ?", menuID).Count(&itemCount).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	if itemCount > 0 {
		handleServiceError(c, &services.InvalidStateError{
			Code:    "MENU_IN_USE",
			Message: "Menu cannot be deleted while items reference it",
		})
		return
	}

	if err := db.Delete(&menu).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": menuID},
	})
}

// CreateCategory handles POST /api/v1/admin/categories - admin/manager only
func CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	category := models.Category{
		Name:         req.Name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
	}
	if err := config.GetDB().Create(&category).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    category,
	})
}

// UpdateCategory handles PUT /api/v1/admin/categories/:id - admin/manager
// only
func UpdateCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var category models.Category
	if err := db.First(&category, categoryID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "category"})
		return
	}

	updates := map[string]interface{}{
		"name":          req.Name,
		"description":   req.Description,
		"display_order": req.DisplayOrder,
	}
	if err := db.Model(&category).Updates(updates).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    category,
	})
}

// DeleteCategory handles DELETE /api/v1/admin/categories/:id - a category
// with items still referencing it cannot be deleted
func DeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var category models.Category
	if err := db.First(&category, categoryID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "category"})
		return
	}

	var itemCount int64
	if err := db.Model(&models.MenuItem{}).Where("category_id = ?", categoryID).Count(&itemCount).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	if itemCount > 0 {
		handleServiceError(c, &services.InvalidStateError{
			Code:    "CATEGORY_IN_USE",
			Message: "Category cannot be deleted while items reference it",
		})
		return
	}

	if err := db.Delete(&category).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": categoryID},
	})
}

// CreateMenuItem handles POST /api/v1/admin/menu-items - admin/manager only
func CreateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_PRICE",
				"message": "Price cannot be negative",
			},
		})
		return
	}

	db := config.GetDB()
	var category models.Category
	if err := db.First(&category, req.CategoryID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "category"})
		return
	}
	var menu models.Menu
	if err := db.First(&menu, req.MenuID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "menu"})
		return
	}

	item := models.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		MenuID:      req.MenuID,
		IsAvailable: true,
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := db.Create(&item).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	if err := db.Preload("Category").First(&item, item.ID).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// UpdateMenuItem handles PUT /api/v1/admin/menu-items/:id - admin/manager
// only. Price changes never touch existing orders; order lines keep the
// snapshot taken when they were placed.
func UpdateMenuItem(c *gin.Context) {
	itemID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_PRICE",
				"message": "Price cannot be negative",
			},
		})
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, itemID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "menu item"})
		return
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"price":       req.Price,
		"category_id": req.CategoryID,
		"menu_id":     req.MenuID,
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}
	if err := db.Model(&item).Updates(updates).Error; err != nil {
		handleServiceError(c, err)
		return
	}
	if err := db.Preload("Category").First(&item, item.ID).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// DeleteMenuItem handles DELETE /api/v1/admin/menu-items/:id - also
// removes the item's photo from storage
func DeleteMenuItem(c *gin.Context) {
	itemID, ok := parseIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, itemID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "menu item"})
		return
	}

	if err := db.Delete(&item).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	if item.ImageS3Key != nil {
		if imageService := services.GetImageService(); imageService != nil {
			if err := imageService.DeleteImage(*item.ImageS3Key); err != nil {
				log.Printf("Failed to delete image for menu item %d: %v", item.ID, err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": itemID},
	})
}

// attachImageURLs fills the computed ImageURL field on items with photos
func attachImageURLs(items []models.MenuItem) {
	imageService := services.GetImageService()
	if imageService == nil {
		return
	}
	for i := range items {
		if items[i].ImageS3Key == nil {
			continue
		}
		url, err := imageService.GetImageURL(*items[i].ImageS3Key)
		if err != nil {
			log.Printf("Failed to generate image URL for menu item %d: %v", items[i].ID, err)
			continue
		}
		if url != "" {
			items[i].ImageURL = &url
		}
	}
}

// respondValidationError writes the standard binding-failure response
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}
