package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/services"
)

// GetReceipt handles GET /api/v1/orders/:id/receipt - a self-printing
// HTML receipt for the owning customer or staff
func GetReceipt(c *gin.Context) {
	order, _, ok := loadOrderForViewer(c)
	if !ok {
		return
	}

	receiptService := services.NewReceiptService()
	document, err := receiptService.RenderReceipt(order)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", document)
}

// GetKitchenTicket handles GET /api/v1/orders/:id/kitchen-ticket - the kitchen
// variant, staff only (route-gated): items and instructions, no prices
func GetKitchenTicket(c *gin.Context) {
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.GetOrder(orderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	receiptService := services.NewReceiptService()
	document, err := receiptService.RenderKitchenTicket(order)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", document)
}
