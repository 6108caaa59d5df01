package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Listd-Technologies/listd-prd/internal/api/handlers"
	"github.com/Listd-Technologies/listd-prd/internal/api/middleware"
	"github.com/Listd-Technologies/listd-prd/internal/cache"
	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/events"
	"github.com/Listd-Technologies/listd-prd/internal/services"
	"github.com/Listd-Technologies/listd-prd/internal/storage"
)

// Deps carries the externally constructed collaborators the router wires
// into handlers. Anything left nil falls back to a local default.
type Deps struct {
	Publisher      events.Publisher
	ValuationRetry services.ValuationPersistEnqueuer
	Storage        storage.IObjectStorage
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, deps Deps) *gin.Engine {
	// Initialize services needed by API handlers here.
	publisher := deps.Publisher
	if publisher == nil {
		publisher = &events.LoggingPublisher{}
	}
	storageService := deps.Storage
	if storageService == nil {
		var err error
		storageService, err = storage.NewS3Storage(cfg)
		if err != nil {
			log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
		}
	}

	handlers.ConfigureStoreRetries(cfg.StoreMaxRetries)

	countCache := cache.NewAreaCountCache(rdb, cfg.AreaCountTTL)

	userService := services.NewUserService(db, cfg)
	activityService := services.NewActivityService(db, cfg)
	listingService := services.NewListingService(db, cfg, activityService)
	searchService := services.NewSearchService(db, cfg, countCache)
	conversationService := services.NewConversationService(db, cfg, publisher)
	favoriteService := services.NewFavoriteService(db, cfg)
	paymentService := services.NewPaymentService(db, cfg, listingService)
	valuationService := services.NewValuationService(db, cfg, services.NewLinearEstimator(cfg), deps.ValuationRetry)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	listingHandler := handlers.NewListingHandler(listingService, storageService)
	searchHandler := handlers.NewSearchHandler(searchService)
	valuationHandler := handlers.NewValuationHandler(valuationService)
	conversationHandler := handlers.NewConversationHandler(conversationService, listingService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)
	userHandler := handlers.NewUserHandler(userService, activityService, paymentService, storageService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg.PaymentWebhookSecret)

	v1 := r.Group("/v1")
	{
		// Public routes (rate limiting already applied globally)
		v1.GET("/listing/search", searchHandler.SearchListings)
		v1.GET("/area/count", searchHandler.AreaCount)
		v1.GET("/area/resolve", searchHandler.ResolveArea)
		v1.GET("/listing/:id", listingHandler.GetListingByID)
		v1.GET("/listing/:id/image", listingHandler.ListImages)
		v1.GET("/user/:id", userHandler.GetUserByID)

		// Valuation is open to guests; authenticated callers get their
		// account attached to the snapshot.
		v1.POST("/valuation",
			middleware.OptionalAuthMiddleware(cfg.IdentityJwtSecret, userService),
			valuationHandler.RequestValuation)

		// Payment processor callback, authenticated by shared secret.
		v1.POST("/webhook/payment", paymentHandler.HandleWebhook)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.IdentityJwtSecret, userService))
		{
			authRequired.POST("/listing", listingHandler.CreateListing)
			authRequired.PUT("/listing/:id", listingHandler.UpdateListing)
			authRequired.POST("/listing/:id/status", listingHandler.TransitionListing)
			authRequired.POST("/listing/:id/image/presign", listingHandler.PresignImageUpload)
			authRequired.POST("/listing/:id/image", listingHandler.AttachImage)
			authRequired.DELETE("/listing/:id/image/:image_id", listingHandler.DetachImage)

			authRequired.POST("/conversation", conversationHandler.StartConversation)
			authRequired.GET("/conversation/:id/message", conversationHandler.ListMessages)
			authRequired.POST("/conversation/:id/message", conversationHandler.SendMessage)
			authRequired.POST("/conversation/:id/read", conversationHandler.MarkRead)
			authRequired.DELETE("/message/:id", conversationHandler.DeleteMessage)

			me := authRequired.Group("/me")
			{
				me.GET("", userHandler.GetProfile)
				me.PUT("", userHandler.UpdateProfile)
				me.DELETE("", userHandler.DeleteAccount)
				me.POST("/avatar/presign", userHandler.PresignAvatarUpload)
				me.POST("/avatar", userHandler.SetAvatar)
				me.GET("/listings", listingHandler.ListOwnListings)
				me.GET("/conversations", conversationHandler.ListConversations)
				me.GET("/unread", conversationHandler.UnreadCount)
				me.GET("/favorite", favoriteHandler.ListFavorites)
				me.PUT("/favorite/:listing_id", favoriteHandler.AddFavorite)
				me.DELETE("/favorite/:listing_id", favoriteHandler.RemoveFavorite)
				me.GET("/payments", userHandler.ListPayments)
				me.GET("/activity", userHandler.ListActivity)
				me.GET("/valuations", valuationHandler.ListOwnValuations)
			}
		}
	}

	return r
}
