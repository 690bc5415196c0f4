package main

import (
	"net/http"
	"time"

	"github.com/fasttech-foods/backoffice-api/middleware"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func newRouter(app *application) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:     app.cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.SessionHeader},
		ExposeHeaders:    []string{middleware.SessionHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
		v1.GET("/menu", app.catalog.Menu)
		if app.uploads != nil {
			v1.GET("/uploads/:filename", app.uploads.GetUploadedImage)
		}
	}

	api := v1.Group("")
	api.Use(middleware.Sessions(app.sessions, app.cfg.SessionTTL, app.cfg.IsProduction()))

	requireAuth := middleware.RequireAuth(app.validator)
	staff := middleware.RequireRole(models.RoleEmployee)
	manager := middleware.RequireRole(models.RoleManager)

	auth := api.Group("/auth")
	{
		auth.POST("/login", app.auth.Login)
		auth.POST("/register", app.auth.Register)
		auth.POST("/logout", app.auth.Logout)
		auth.GET("/session", app.auth.Session)
		auth.GET("/me", requireAuth, app.auth.Me)
		auth.GET("/token-info", requireAuth, app.auth.TokenInfo)
	}

	cart := api.Group("/cart")
	{
		cart.GET("", app.orders.GetCart)
		cart.POST("/items", app.orders.AddCartItem)
		cart.DELETE("/items/:productId", app.orders.RemoveCartItem)
	}

	orders := api.Group("/orders")
	{
		orders.POST("", app.orders.CreateOrder)
		orders.GET("", app.orders.ListOrders)
		orders.GET("/:id", app.orders.GetOrder)
		orders.GET("/:id/events", app.orders.Events)
		orders.DELETE("/:id/watch", app.orders.Unwatch)
		orders.POST("/:id/status", app.orders.UpdateStatus)
		orders.POST("/:id/confirm-delivery", app.orders.ConfirmDelivery)
	}

	chat := api.Group("/chat")
	{
		chat.GET("", app.chat.GetTranscript)
		chat.POST("/options", app.chat.SelectOption)
		chat.POST("/messages", app.chat.SendMessage)
		chat.DELETE("", app.chat.Reset)
	}

	kitchen := api.Group("/kitchen", requireAuth, staff)
	{
		kitchen.GET("/orders", app.kitchen.ListOrders)
		kitchen.GET("/orders/pending", app.kitchen.PendingOrders)
		kitchen.POST("/orders/:id/actions", app.kitchen.PerformAction)
	}

	catalog := api.Group("/catalog", requireAuth)
	{
		catalog.GET("/categories", app.catalog.ListCategories)
		catalog.POST("/categories", manager, app.catalog.CreateCategory)
		catalog.PUT("/categories/:id", manager, app.catalog.UpdateCategory)
		catalog.DELETE("/categories/:id", manager, app.catalog.DeleteCategory)

		catalog.GET("/products", app.catalog.ListProducts)
		catalog.GET("/products/:id", app.catalog.GetProduct)
		catalog.POST("/products", manager, app.catalog.CreateProduct)
		catalog.PUT("/products/:id", manager, app.catalog.UpdateProduct)
		catalog.PATCH("/products/:id/availability", manager, app.catalog.SetAvailability)
		catalog.PUT("/products/:id/image", manager, app.catalog.UploadProductImage)
		catalog.DELETE("/products/:id", manager, app.catalog.DeleteProduct)
	}

	api.GET("/dashboard", requireAuth, manager, app.dashboard.GetDashboard)

	users := api.Group("/users", requireAuth)
	{
		users.GET("/me", app.users.GetMyProfile)
		users.GET("", manager, app.users.ListEmployees)
		users.POST("", manager, app.users.CreateEmployee)
	}

	diagnostics := api.Group("/diagnostics", requireAuth, staff)
	{
		diagnostics.GET("/upstreams", app.diagnostics.Upstreams)
		diagnostics.GET("/instance", app.diagnostics.Instance)
		diagnostics.GET("/admin", app.diagnostics.AdminAccess)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "FastTech Foods back office API is running",
	})
}
