package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaluna/casaluna-api/services"
)

// handleServiceError maps the service error taxonomy onto HTTP responses.
// Validation and state errors surface their message verbatim; anything
// unexpected is reported generically without internal detail.
func handleServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    validationErr.Code,
				"message": validationErr.Message,
			},
		})
		return
	}

	var stateErr *services.InvalidStateError
	if errors.As(err, &stateErr) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    stateErr.Code,
				"message": stateErr.Message,
			},
		})
		return
	}

	var authErr *services.AuthorizationError
	if errors.As(err, &authErr) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    authErr.Code,
				"message": authErr.Message,
			},
		})
		return
	}

	var notFoundErr *services.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": notFoundErr.Error(),
			},
		})
		return
	}

	var externalErr *services.ExternalServiceError
	if errors.As(err, &externalErr) {
		log.Printf("External service failure: %v", externalErr)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EXTERNAL_SERVICE_ERROR",
				"message": "An external service is currently unavailable",
			},
		})
		return
	}

	log.Printf("Unexpected error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "An unexpected error occurred",
		},
	})
}
