// internal/router/router.go
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/marketloop/marketloop-backend/internal/config"
	"github.com/marketloop/marketloop-backend/internal/handlers"
	"github.com/marketloop/marketloop-backend/internal/middleware"
	"github.com/marketloop/marketloop-backend/internal/search"
	"github.com/marketloop/marketloop-backend/internal/services"
	"github.com/marketloop/marketloop-backend/internal/utils"
)

// Setup wires services, handlers and routes onto a gin engine. index may be
// nil, which disables search entirely.
func Setup(db *gorm.DB, cfg *config.Config, index search.Index, log *logrus.Logger) (*gin.Engine, error) {
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	if err := search.RegisterTracking(db); err != nil {
		return nil, err
	}
	syncer := search.NewSyncer(index, log)

	pictureService, err := services.NewPictureService(cfg.Upload, log)
	if err != nil {
		return nil, err
	}
	userService := services.NewUserService(pictureService)
	productService := services.NewProductService(pictureService)
	searchService := services.NewSearchService(index, userService, productService, log)

	authHandler := handlers.NewAuthHandler(db, syncer, userService, cfg, log)
	userHandler := handlers.NewUserHandler(db, syncer, userService, log)
	productHandler := handlers.NewProductHandler(db, syncer, productService, userService, log)
	uploadHandler := handlers.NewUploadHandler(db, syncer, pictureService, productService, userService, log)
	searchHandler := handlers.NewSearchHandler(db, searchService)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))
	r.Use(middleware.RateLimitMiddleware())

	r.MaxMultipartMemory = cfg.Upload.MaxSizeMB * 1024 * 1024

	r.Static("/static", cfg.Upload.StaticRoot)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", middleware.AuthRateLimitMiddleware(), authHandler.Register)
		auth.POST("/login", middleware.AuthRateLimitMiddleware(), authHandler.Login)
		auth.GET("/me", middleware.AuthMiddleware(), authHandler.Me)
		auth.POST("/reset-password-request", middleware.AuthRateLimitMiddleware(), authHandler.RequestPasswordReset)
		auth.POST("/reset-password", middleware.AuthRateLimitMiddleware(), authHandler.ResetPassword)
	}

	users := v1.Group("/users")
	{
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
		users.GET("/:id/followers", userHandler.Followers)
		users.GET("/:id/followed", userHandler.Followed)

		users.POST("/:id/follow", middleware.AuthMiddleware(), userHandler.Follow)
		users.POST("/:id/unfollow", middleware.AuthMiddleware(), userHandler.Unfollow)
	}

	account := v1.Group("/account", middleware.AuthMiddleware())
	{
		account.PUT("/profile", userHandler.UpdateProfile)
		account.PUT("/password", userHandler.ChangePassword)
		account.DELETE("", userHandler.DeleteAccount)
	}

	products := v1.Group("/products")
	{
		products.GET("", productHandler.ListProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/user/:id", productHandler.UserProducts)
		products.GET("/:id/liked-users", productHandler.LikedUsers)

		products.POST("", middleware.AuthMiddleware(), productHandler.CreateProduct)
		products.PUT("/:id", middleware.AuthMiddleware(), productHandler.UpdateProduct)
		products.DELETE("/:id", middleware.AuthMiddleware(), productHandler.DeleteProduct)
		products.POST("/:id/cart", middleware.AuthMiddleware(), productHandler.AddToCart)
		products.DELETE("/:id/cart", middleware.AuthMiddleware(), productHandler.RemoveFromCart)
		products.POST("/:id/purchase", middleware.AuthMiddleware(), productHandler.Purchase)
	}

	v1.GET("/cart", middleware.AuthMiddleware(), productHandler.Cart)

	uploads := v1.Group("/uploads", middleware.AuthMiddleware(), middleware.UploadRateLimitMiddleware())
	{
		uploads.POST("/user-picture", uploadHandler.UploadUserPicture)
		uploads.POST("/products/:id/picture", uploadHandler.UploadProductPicture)
	}

	v1.GET("/search", searchHandler.Search)

	return r, nil
}
