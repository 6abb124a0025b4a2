package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/casaluna/casaluna-api/config"
	"github.com/casaluna/casaluna-api/controllers"
	"github.com/casaluna/casaluna-api/middleware"
	"github.com/casaluna/casaluna-api/models"
	"github.com/casaluna/casaluna-api/services"
)

func main() {
	log.Println("Starting Casa Luna API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Menu{},
		&models.Category{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusUpdate{},
		&models.Promotion{},
		&models.PromotionUsage{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Optional integrations. The API serves without them; features that
	// need them respond with their own unavailable codes.
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service()
		if err != nil {
			log.Fatalf("Failed to initialize S3: %v", err)
		}
		services.InitImageService(s3Service)
	} else {
		log.Println("AWS_S3_BUCKET not set, image uploads disabled")
	}

	if _, err := services.InitCacheService(cfg.RedisURL); err != nil {
		log.Printf("Redis unavailable, report caching disabled: %v", err)
	}

	if services.InitGatewayService(cfg) == nil {
		log.Println("PAYMENT_GATEWAY_KEY not set, checkout sessions disabled")
	}

	router := setupRouter(cfg)

	addr := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the full route tree. Split out from main so tests
// can mount the same routes against an in-memory database.
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://casaluna.example.com"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)

		// Public catalog, no authentication
		v1.GET("/menus", controllers.ListMenus)
		v1.GET("/categories", controllers.ListCategories)
		v1.GET("/menu-items", controllers.ListMenuItems)
		v1.GET("/menu-items/:id", controllers.GetMenuItem)
		v1.GET("/promotions/validate", controllers.ValidateCoupon)

		// Payment provider webhook, authenticated by signature instead of JWT
		v1.POST("/webhooks/payment", controllers.PaymentWebhook)

		// Authenticated routes
		authenticated := v1.Group("")
		authenticated.Use(middleware.EnsureValidToken(cfg))
		{
			// Profile creation happens before a users row exists
			authenticated.POST("/users", controllers.CreateUser)
			authenticated.GET("/users/me", controllers.GetMyProfile)
			authenticated.PUT("/users/me", controllers.UpdateMyProfile)

			// Everything past this point needs an active users row
			account := authenticated.Group("")
			account.Use(middleware.RequireUser())
			{
				account.POST("/orders", controllers.CreateOrder)
				account.GET("/orders", controllers.ListOrders)
				account.GET("/orders/:id", controllers.GetOrder)
				account.POST("/orders/:id/cancel", controllers.CancelOrder)
				account.GET("/orders/:id/receipt", controllers.GetReceipt)

				staff := account.Group("")
				staff.Use(middleware.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleChef, models.RoleWaiter))
				{
					staff.PATCH("/orders/:id/status", controllers.UpdateOrderStatus)
					staff.GET("/orders/:id/audit", controllers.GetOrderAudit)
					staff.GET("/orders/:id/kitchen-ticket", controllers.GetKitchenTicket)
				}

				admin := account.Group("/admin")
				admin.Use(middleware.RequireRole(models.RoleAdmin, models.RoleManager))
				{
					admin.POST("/menus", controllers.CreateMenu)
					admin.PUT("/menus/:id", controllers.UpdateMenu)
					admin.DELETE("/menus/:id", controllers.DeleteMenu)

					admin.POST("/categories", controllers.CreateCategory)
					admin.PUT("/categories/:id", controllers.UpdateCategory)
					admin.DELETE("/categories/:id", controllers.DeleteCategory)

					admin.POST("/menu-items", controllers.CreateMenuItem)
					admin.PUT("/menu-items/:id", controllers.UpdateMenuItem)
					admin.DELETE("/menu-items/:id", controllers.DeleteMenuItem)
					admin.POST("/menu-items/:id/image", controllers.UploadMenuItemImage)
					admin.DELETE("/menu-items/:id/image", controllers.DeleteMenuItemImage)

					admin.GET("/promotions", controllers.ListPromotions)
					admin.POST("/promotions", controllers.CreatePromotion)
					admin.PUT("/promotions/:id", controllers.UpdatePromotion)
					admin.DELETE("/promotions/:id", controllers.DeletePromotion)

					admin.GET("/reports/revenue-by-day", controllers.GetRevenueByDay)
					admin.GET("/reports/revenue-by-type", controllers.GetRevenueByType)
					admin.GET("/reports/popular-items", controllers.GetPopularItems)
					admin.GET("/reports/completion-times", controllers.GetCompletionTimes)
					admin.GET("/reports/customer-segments", controllers.GetCustomerSegments)

					admin.GET("/users", controllers.ListUsers)
					admin.PATCH("/users/:id/role", controllers.UpdateUserRole)
					admin.PATCH("/users/:id/status", controllers.UpdateUserStatus)
				}
			}
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Casa Luna API is running",
	})
}
