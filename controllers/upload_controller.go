package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/models"
	"github.com/casaluna/casaluna-api/services"
	"github.com/casaluna/casaluna-api/utils"
)

// UploadMenuItemImage handles POST /api/v1/admin/menu-items/:id/image -
// uploads a photo for a menu item from the multipart field "image".
// Replaces any existing photo; the old object is removed from storage.
func UploadMenuItemImage(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOADS_DISABLED",
				"message": "Image storage is not configured",
			},
		})
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "Multipart field 'image' is required",
			},
		})
		return
	}

	key, err := imageService.UploadImage(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    uploadErr.Code,
					"message": uploadErr.Message,
				},
			})
			return
		}

		log.Printf("image upload failed for menu item %d: %v", item.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": "Failed to store image",
			},
		})
		return
	}

	oldKey := item.ImageS3Key
	if err := db.Model(&item).Update("image_s3_key", &key).Error; err != nil {
		// Keep storage consistent with the row we failed to update.
		if cleanupErr := imageService.DeleteImage(key); cleanupErr != nil {
			log.Printf("failed to clean up orphaned image %s: %v", key, cleanupErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image reference",
			},
		})
		return
	}

	if oldKey != nil && *oldKey != "" && *oldKey != key {
		if err := imageService.DeleteImage(*oldKey); err != nil {
			log.Printf("failed to delete replaced image %s: %v", *oldKey, err)
		}
	}

	if url, err := imageService.GetImageURL(key); err == nil && url != "" {
		item.ImageURL = &url
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// DeleteMenuItemImage handles DELETE /api/v1/admin/menu-items/:id/image
func DeleteMenuItemImage(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var item models.MenuItem
	if err := db.First(&item, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}

	if item.ImageS3Key == nil || *item.ImageS3Key == "" {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_IMAGE",
				"message": "Menu item has no image",
			},
		})
		return
	}

	key := *item.ImageS3Key
	if err := db.Model(&item).Update("image_s3_key", nil).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to remove image reference",
			},
		})
		return
	}

	if imageService := services.GetImageService(); imageService != nil {
		if err := imageService.DeleteImage(key); err != nil {
			log.Printf("failed to delete image %s: %v", key, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": true},
	})
}
