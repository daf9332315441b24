package routes

import (
	"time"

	"repairshop-backend/config"
	"repairshop-backend/controllers"
	"repairshop-backend/models"
	"repairshop-backend/services"
	"repairshop-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps carries the services the handlers are built on.
type Deps struct {
	Repairs       *services.RepairService
	Settings      *services.SettingsService
	Notifications *services.NotificationService
	Stats         *services.DashboardService
	// UploadDir is served under /uploads when images are stored locally.
	UploadDir string
}

func SetupRouter(cfg *config.Config, log *zap.Logger, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(config.PerformanceLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if deps.UploadDir != "" {
		r.Static("/uploads", deps.UploadDir)
	}

	authn := []gin.HandlerFunc{utils.AuthMiddleware(cfg.JWTSecret), controllers.LoadCurrentUser()}
	staffOnly := utils.RequireRole(string(models.RoleAdmin), string(models.RoleTechnician))
	adminOnly := utils.RequireRole(string(models.RoleAdmin))

	authController := &controllers.AuthController{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL()}
	repairController := &controllers.RepairController{Repairs: deps.Repairs}
	uploadController := &controllers.UploadController{Repairs: deps.Repairs}
	settingsController := &controllers.SettingsController{Settings: deps.Settings}
	reportController := &controllers.ReportController{Stats: deps.Stats, Log: log}
	notificationController := &controllers.NotificationController{Notifier: deps.Notifications}

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)

		auth.Use(authn...)
		auth.GET("/me", controllers.Me)
		auth.PUT("/profile", controllers.UpdateProfile)
		auth.PUT("/password", controllers.ChangePassword)
		auth.GET("/technicians", staffOnly, controllers.GetTechnicians)
	}

	repairs := api.Group("/repairs", authn...)
	{
		repairs.GET("", repairController.List)
		repairs.POST("", repairController.Create)
		repairs.GET("/:id", repairController.Get)
		repairs.PATCH("/:id", staffOnly, repairController.Update)
		repairs.PUT("/:id", staffOnly, repairController.Update)
		repairs.PATCH("/:id/status", repairController.UpdateStatus)
		repairs.POST("/:id/notes", repairController.AddNote)
		repairs.DELETE("/:id", adminOnly, repairController.Delete)
	}

	catalog := api.Group("/services", authn...)
	{
		catalog.GET("", controllers.GetServices)
		catalog.GET("/device-types", controllers.GetDeviceTypes)
		catalog.GET("/brands", controllers.GetBrands)
		catalog.GET("/:id", controllers.GetService)

		catalog.POST("", adminOnly, controllers.CreateService)
		catalog.PUT("/:id", adminOnly, controllers.UpdateService)
		catalog.DELETE("/:id", adminOnly, controllers.DeleteService)

		catalog.POST("/device-types", adminOnly, controllers.CreateDeviceType)
		catalog.PUT("/device-types/:id", adminOnly, controllers.UpdateDeviceType)
		catalog.DELETE("/device-types/:id", adminOnly, controllers.DeleteDeviceType)

		catalog.POST("/brands", adminOnly, controllers.CreateBrand)
		catalog.PUT("/brands/:id", adminOnly, controllers.UpdateBrand)
		catalog.DELETE("/brands/:id", adminOnly, controllers.DeleteBrand)
	}

	customers := api.Group("/customers", append(authn, adminOnly)...)
	{
		customers.GET("", controllers.GetCustomers)
		customers.POST("", controllers.CreateCustomer)
		customers.GET("/:id", controllers.GetCustomer)
		customers.GET("/:id/repairs", controllers.GetCustomerRepairs)
		customers.PUT("/:id", controllers.UpdateCustomer)
	}

	stats := api.Group("/stats", append(authn, adminOnly)...)
	{
		stats.GET("/dashboard", reportController.GetDashboard)
		stats.GET("/revenue", reportController.GetRevenue)
		stats.GET("/technicians", reportController.GetTechnicianStats)
		stats.GET("/export", reportController.ExportRepairs)
	}

	settings := api.Group("/settings", append(authn, adminOnly)...)
	{
		settings.GET("", settingsController.GetSettings)
		settings.PUT("", settingsController.UpdateSettings)
	}

	uploads := api.Group("/uploads", authn...)
	{
		uploads.POST("/repair/:repairId", uploadController.UploadRepairImages)
		uploads.DELETE("/:imageId", staffOnly, uploadController.DeleteImage)
	}

	notifications := api.Group("/notifications", append(authn, adminOnly)...)
	{
		notifications.GET("", notificationController.ListNotifications)
		notifications.POST("/process", notificationController.ProcessNotifications)
		notifications.POST("/:id/retry", notificationController.RetryNotification)
	}

	return r
}
