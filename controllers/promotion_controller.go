package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/models"
	"github.com/casaluna/casaluna-api/services"
)

// PromotionRequest represents the request body for creating or updating a
// promotion
type PromotionRequest struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	Type          string           `json:"type" binding:"required"`
	Value         decimal.Decimal  `json:"value"`
	MinOrderValue *decimal.Decimal `json:"min_order_value"`
	StartDate     time.Time        `json:"start_date" binding:"required"`
	EndDate       time.Time        `json:"end_date" binding:"required"`
	IsActive      *bool            `json:"is_active"`
	CouponCode    *string          `json:"coupon_code"`
	UsageLimit    *int             `json:"usage_limit"`
	AppliesToAll  *bool            `json:"applies_to_all"`
	CategoryIDs   []uint           `json:"category_ids"`
	ItemIDs       []uint           `json:"item_ids"`
	FreeItemID    *uint            `json:"free_item_id"`
}

// validatePromotionRequest checks the cross-field rules binding can't
func validatePromotionRequest(req *PromotionRequest) *services.ValidationError {
	if !models.ValidPromotionType(req.Type) {
		return &services.ValidationError{Code: "INVALID_PROMOTION_TYPE", Message: "Unknown promotion type"}
	}
	if req.Value.IsNegative() {
		return &services.ValidationError{Code: "INVALID_VALUE", Message: "Promotion value cannot be negative"}
	}
	if req.EndDate.Before(req.StartDate) {
		return &services.ValidationError{Code: "INVALID_DATE_RANGE", Message: "End date must not precede start date"}
	}
	if req.UsageLimit != nil && *req.UsageLimit <= 0 {
		return &services.ValidationError{Code: "INVALID_USAGE_LIMIT", Message: "Usage limit must be positive"}
	}
	if req.Type == models.PromotionTypeFreeItem && req.FreeItemID == nil {
		return &services.ValidationError{Code: "MISSING_FREE_ITEM", Message: "Free-item promotions must designate the free item"}
	}
	return nil
}

// promotionFromRequest builds the model, resolving scope lists
func promotionFromRequest(c *gin.Context, req *PromotionRequest) (*models.Promotion, bool) {
	promo := models.Promotion{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Value:       req.Value,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsActive:    true,
		CouponCode:  req.CouponCode,
		UsageLimit:  req.UsageLimit,
		FreeItemID:  req.FreeItemID,
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}
	if req.MinOrderValue != nil {
		promo.MinOrderValue = decimal.NewNullDecimal(*req.MinOrderValue)
	}

	promo.AppliesToAll = len(req.CategoryIDs) == 0 && len(req.ItemIDs) == 0
	if req.AppliesToAll != nil {
		promo.AppliesToAll = *req.AppliesToAll
	}

	db := config.GetDB()
	if len(req.CategoryIDs) > 0 {
		if err := db.Find(&promo.Categories, req.CategoryIDs).Error; err != nil || len(promo.Categories) != len(req.CategoryIDs) {
			handleServiceError(c, &services.ValidationError{Code: "UNKNOWN_CATEGORY", Message: "One or more scoped categories do not exist"})
			return nil, false
		}
	}
	if len(req.ItemIDs) > 0 {
		if err := db.Find(&promo.Items, req.ItemIDs).Error; err != nil || len(promo.Items) != len(req.ItemIDs) {
			handleServiceError(c, &services.ValidationError{Code: "UNKNOWN_ITEM", Message: "One or more scoped items do not exist"})
			return nil, false
		}
	}

	return &promo, true
}

// ListPromotions handles GET /api/v1/admin/promotions - admin/manager only
func ListPromotions(c *gin.Context) {
	var promotions []models.Promotion
	err := config.GetDB().Preload("Categories").Preload("Items").
		Order("created_at DESC").Find(&promotions).Error
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    promotions,
	})
}

// CreatePromotion handles POST /api/v1/admin/promotions - admin/manager
// only
func CreatePromotion(c *gin.Context) {
	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if vErr := validatePromotionRequest(&req); vErr != nil {
		handleServiceError(c, vErr)
		return
	}

	promo, ok := promotionFromRequest(c, &req)
	if !ok {
		return
	}

	if err := config.GetDB().Create(promo).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    promo,
	})
}

// UpdatePromotion handles PUT /api/v1/admin/promotions/:id - admin/manager
// only. The running usage count is never writable through this endpoint.
func UpdatePromotion(c *gin.Context) {
	promoID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if vErr := validatePromotionRequest(&req); vErr != nil {
		handleServiceError(c, vErr)
		return
	}

	db := config.GetDB()
	var existing models.Promotion
	if err := db.First(&existing, promoID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "promotion"})
		return
	}

	promo, ok := promotionFromRequest(c, &req)
	if !ok {
		return
	}
	promo.ID = existing.ID
	promo.UsageCount = existing.UsageCount

	if err := db.Session(&gorm.Session{FullSaveAssociations: true}).Save(promo).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    promo,
	})
}

// DeletePromotion handles DELETE /api/v1/admin/promotions/:id -
// admin/manager only. Usage history is retained.
func DeletePromotion(c *gin.Context) {
	promoID, ok := parseIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var promo models.Promotion
	if err := db.First(&promo, promoID).Error; err != nil {
		handleServiceError(c, &services.NotFoundError{Resource: "promotion"})
		return
	}

	if err := db.Delete(&promo).Error; err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": promoID},
	})
}

// ValidateCoupon handles GET /api/v1/promotions/validate?code= - lets the
// client check a coupon before checkout. Full evaluation (scope, minimum,
// usage race) still happens inside the checkout transaction.
func ValidateCoupon(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_CODE",
				"message": "Coupon code is required",
			},
		})
		return
	}

	promoService := services.NewPromotionService(config.GetDB())
	promo, err := promoService.FindByCoupon(code)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	now := time.Now()
	applicable := promo.IsActive &&
		!now.Before(promo.StartDate) && !now.After(promo.EndDate) &&
		(promo.UsageLimit == nil || promo.UsageCount < *promo.UsageLimit)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"promotion":  promo,
			"applicable": applicable,
		},
	})
}
