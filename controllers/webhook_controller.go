package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/services"
)

// PaymentWebhook handles POST /api/v1/webhooks/payment - the provider's
// asynchronous payment notifications.
//
// The signature is verified over the exact raw body before any parsing;
// a bad signature is a 400 so the provider redelivers. After that the
// event is always acknowledged with a 200, even when processing failed:
// processing is idempotent, and redelivery storms are worse than a logged
// partial failure.
func PaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_PAYLOAD",
				"message": "Could not read request body",
			},
		})
		return
	}

	cfg := config.GetConfig()
	signature := c.GetHeader("Stripe-Signature")
	if err := services.VerifySignature(payload, signature, cfg.PaymentWebhookSecret, time.Now()); err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_SIGNATURE",
				"message": "Webhook signature verification failed",
			},
		})
		return
	}

	var event services.PaymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("Failed to decode webhook envelope: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"received":  true,
			"processed": false,
		})
		return
	}

	paymentService := services.NewPaymentService(config.GetDB())
	if err := paymentService.ProcessEvent(&event); err != nil {
		log.Printf("Webhook event %s (%s) processed with errors: %v", event.ID, event.Type, err)
		c.JSON(http.StatusOK, gin.H{
			"received":  true,
			"processed": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"processed": true,
	})
}
