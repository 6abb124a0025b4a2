package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/middleware"
	"github.com/casaluna/casaluna-api/models"
	"github.com/casaluna/casaluna-api/services"
)

// CreateOrderRequest represents the request body for checking out a cart
type CreateOrderRequest struct {
	Items      []services.CheckoutItem `json:"items" binding:"required,min=1,dive"`
	OrderType  string                  `json:"order_type" binding:"required"`
	Notes      string                  `json:"notes"`
	PickupTime *time.Time              `json:"pickup_time"`
	CouponCode string                  `json:"coupon_code"`
}

// UpdateOrderStatusRequest represents the request body for a staff status
// transition
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// CreateOrder handles POST /api/v1/orders - checks out the client-held
// cart into a pending order and opens a payment session (customers only)
func CreateOrder(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	if user.Role != models.RoleCustomer {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only customers can place orders",
			},
		})
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.CreateOrder(services.CreateOrderInput{
		CustomerID: user.ID,
		Items:      req.Items,
		OrderType:  req.OrderType,
		Notes:      req.Notes,
		PickupTime: req.PickupTime,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// Open a payment session; the webhook completes the payment
	// asynchronously. The order stays PENDING/UNPAID if the gateway is
	// down so checkout can be retried.
	var paymentURL *string
	if gateway := services.GetGatewayService(); gateway != nil {
		session, err := gateway.CreateCheckoutSession(order)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		paymentURL = &session.URL
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"order":       order,
			"payment_url": paymentURL,
		},
	})
}

// ListOrders handles GET /api/v1/orders - customers see their own orders,
// staff see all orders, optionally filtered by ?status=
func ListOrders(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	status := c.Query("status")
	if status != "" && !models.ValidOrderStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Unknown order status filter",
			},
		})
		return
	}

	customerID := user.ID
	if user.IsStaff() {
		customerID = 0
	}

	orderService := services.NewOrderService(config.GetDB())
	orders, err := orderService.ListOrders(customerID, status)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/orders/:id - visible to the owning
// customer and to staff
func GetOrder(c *gin.Context) {
	order, _, ok := loadOrderForViewer(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status - staff only.
// Writes the new status and appends an audit entry naming the actor.
func UpdateOrderStatus(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.UpdateStatus(orderID, req.Status, user, req.Note)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CancelOrder handles POST /api/v1/orders/:id/cancel - owning customer
// only, and only while the order is PENDING or CONFIRMED
func CancelOrder(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.Cancel(orderID, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// GetOrderAudit handles GET /api/v1/orders/:id/audit - staff only
func GetOrderAudit(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	updates, err := orderService.GetAuditTrail(orderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updates,
	})
}

// parseIDParam parses the :id path parameter, writing the error response
// itself on failure
func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid id parameter",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// loadOrderForViewer loads the order at :id and enforces that the caller
// is staff or the owning customer. Writes the error response itself when
// it returns ok == false.
func loadOrderForViewer(c *gin.Context) (*models.Order, *models.User, bool) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, nil, false
	}

	orderID, ok := parseIDParam(c)
	if !ok {
		return nil, nil, false
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.GetOrder(orderID)
	if err != nil {
		handleServiceError(c, err)
		return nil, nil, false
	}

	if !user.IsStaff() && order.CustomerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You can only view your own orders",
			},
		})
		return nil, nil, false
	}

	return order, user, true
}
