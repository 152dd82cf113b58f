package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/echomed/echobank-backend/internal/config"
	"github.com/echomed/echobank-backend/internal/handler"
	"github.com/echomed/echobank-backend/internal/middleware"
	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/response"
	"github.com/echomed/echobank-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Question *handler.QuestionHandler
	Image    *handler.ImageHandler
	Batch    *handler.BatchHandler
	User     *handler.UserHandler
	Classify *handler.ClassifyHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Serve uploaded media statically when the local storage provider is
	// active; with object storage the asset URLs point at the bucket.
	if cfg.MinioEndpoint == "" {
		router.Static("/uploads", cfg.UploadDir)
	}

	// Health check with the database pool snapshot.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for auth routes, per IP per minute from config.
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/register", handlers.Auth.Register)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Questions ──────────────────────────────────────────────────
	questions := router.Group("/api/v1/questions")
	questions.Use(middleware.RequireAuth(authService))
	{
		questions.GET("", handlers.Question.List)
		questions.GET("/pending", middleware.RequireCapability(model.CapQuestionsReview), handlers.Question.PendingQueue)
		questions.GET("/:id", handlers.Question.Get)

		questions.POST("",
			middleware.RequireCapability(model.CapQuestionsWrite),
			handlers.Question.Create,
		)
		questions.PUT("/:id",
			middleware.RequireCapability(model.CapQuestionsWrite),
			handlers.Question.Update,
		)
		questions.DELETE("/:id",
			middleware.RequireCapability(model.CapQuestionsReview),
			handlers.Question.Delete,
		)
		questions.POST("/:id/review",
			middleware.RequireCapability(model.CapQuestionsReview),
			handlers.Question.Review,
		)

		questions.POST("/:id/descriptions",
			middleware.RequireCapability(model.CapQuestionsWrite),
			handlers.Question.AddDescription,
		)
		questions.DELETE("/:id/descriptions/:descriptionID",
			middleware.RequireCapability(model.CapQuestionsWrite),
			handlers.Question.DeleteDescription,
		)

		questions.POST("/:id/images",
			middleware.RequireCapability(model.CapImagesWrite),
			handlers.Question.AssociateImage,
		)
		questions.DELETE("/:id/images/:imageID",
			middleware.RequireCapability(model.CapImagesWrite),
			handlers.Question.RemoveImage,
		)
	}

	// ─── 3. Images ─────────────────────────────────────────────────────
	images := router.Group("/api/v1/images")
	images.Use(middleware.RequireAuth(authService))
	{
		images.GET("", handlers.Image.List)
		images.GET("/:id", handlers.Image.Get)

		images.POST("",
			middleware.RequireCapability(model.CapImagesWrite),
			handlers.Image.Upload,
		)
		images.POST("/url",
			middleware.RequireCapability(model.CapImagesWrite),
			handlers.Image.UploadFromURL,
		)
		images.PUT("/:id",
			middleware.RequireCapability(model.CapImagesWrite),
			handlers.Image.Update,
		)
		images.POST("/:id/review",
			middleware.RequireCapability(model.CapImagesReview),
			handlers.Image.Review,
		)
		images.DELETE("/:id",
			middleware.RequireCapability(model.CapImagesReview),
			handlers.Image.Delete,
		)
	}

	// ─── 4. Batches ────────────────────────────────────────────────────
	batches := router.Group("/api/v1/batches")
	batches.Use(middleware.RequireAuth(authService))
	{
		batches.GET("", handlers.Batch.List)
		batches.GET("/:id", handlers.Batch.Get)

		batches.POST("",
			middleware.RequireCapability(model.CapBatchesWrite),
			handlers.Batch.Import,
		)
		batches.DELETE("/:id",
			middleware.RequireCapability(model.CapAdmin),
			handlers.Batch.Delete,
		)
	}

	// ─── 5. Users (Admin) ──────────────────────────────────────────────
	users := router.Group("/api/v1/users")
	users.Use(middleware.RequireAuth(authService), middleware.RequireCapability(model.CapUsersManage))
	{
		users.GET("", handlers.User.List)
		users.POST("", handlers.User.Create)
		users.GET("/tokens", handlers.User.ListTokens)
		users.POST("/tokens", handlers.User.CreateToken)
		users.GET("/:id", handlers.User.Get)
		users.PUT("/:id", handlers.User.Update)
		users.DELETE("/:id", handlers.User.Deactivate)
	}

	// ─── 6. Classification ─────────────────────────────────────────────
	classify := router.Group("/api/v1/classify")
	classify.Use(middleware.RequireAuth(authService))
	{
		classify.POST("", handlers.Classify.Classify)
	}

	return router
}
