package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/handler"
	"glowshot.app/glowshotcore/internal/middleware"
	"glowshot.app/glowshotcore/internal/repository"
	"glowshot.app/glowshotcore/internal/scheduler"
	"glowshot.app/glowshotcore/internal/service"
	"glowshot.app/glowshotcore/pkg/storage"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   *scheduler.Scheduler
	cfg         *config.Config
}

func NewServer(db *gorm.DB, redisClient *redis.Client, clk *clock.Clock, cfg *config.Config) *Server {
	userRepo := repository.NewUserRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	resultRepo := repository.NewResultRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	photoStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	notificationSvc := service.NewNotificationService(notificationRepo, service.NewRedisDeliverer(redisClient), clk, cfg)
	creditsSvc := service.NewCreditsService(statsRepo, userRepo, notificationSvc, clk, cfg)
	lifecycleSvc := service.NewLifecycleService(photoRepo, statsRepo, photoStorage, clk, cfg)
	votingSvc := service.NewVotingService(voteRepo, photoRepo, statsRepo, creditsSvc, redisClient, clk, cfg)
	rankingSvc := service.NewRankingService(photoRepo, resultRepo, userRepo, notificationSvc, clk, cfg)
	authSvc := service.NewAuthService(userRepo, cfg)

	authHandler := handler.NewAuthHandler(authSvc)
	photoHandler := handler.NewPhotoHandler(lifecycleSvc)
	voteHandler := handler.NewVoteHandler(votingSvc, redisClient, cfg)
	resultHandler := handler.NewResultHandler(rankingSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, redisClient)
	paymentHandler := handler.NewPaymentHandler(paymentRepo)
	creditsHandler := handler.NewCreditsHandler(creditsSvc, authSvc, clk)

	// Background dispatcher draining the notification outbox.
	go notificationSvc.StartDispatcher(context.Background())

	sched := scheduler.NewScheduler()
	sched.RegisterJob(scheduler.NewArchiveJob(lifecycleSvc, cfg.CronArchive))
	sched.RegisterJob(scheduler.NewFinalizeJob(lifecycleSvc, rankingSvc, clk, cfg.CronFinalize))
	sched.RegisterJob(scheduler.NewCreditsJob(creditsSvc, clk, cfg.CronCredits))

	router := gin.New()

	setupCORS(router, cfg)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/token", authHandler.Token)
	}
	api.POST("/payments/webhook", paymentHandler.Webhook)

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/photos/archive-sweep", photoHandler.AdminArchiveSweep)
			adminGroup.DELETE("/photos/:id", photoHandler.AdminDelete)
			adminGroup.POST("/results/:day/finalize", resultHandler.AdminFinalize)
			adminGroup.GET("/results/:day/recap", resultHandler.AdminRecap)
			adminGroup.GET("/notifications/due", notificationHandler.AdminDue)
			adminGroup.PUT("/notifications/:id/sent", notificationHandler.AdminMarkSent)
			adminGroup.PUT("/notifications/:id/failed", notificationHandler.AdminMarkFailed)
			adminGroup.GET("/notifications/pending-count", notificationHandler.AdminPendingCount)
			adminGroup.POST("/credits/grant/:day", creditsHandler.AdminGrantDaily)
			adminGroup.GET("/payments", paymentHandler.AdminList)
		}

		// Photo routes
		protected.POST("/photos", photoHandler.Submit)
		protected.GET("/photos/:id", photoHandler.Get)
		protected.POST("/photos/:id/view", voteHandler.RecordView)

		// Voting routes
		protected.POST("/votes", voteHandler.CastVote)
		protected.GET("/feed/next", voteHandler.NextPhoto)

		// Results routes
		protected.GET("/results/:day", resultHandler.GetResults)

		// Stats and referral routes
		protected.GET("/stats/me", creditsHandler.MyStats)
		protected.GET("/referrals/code", creditsHandler.MyReferralCode)
		protected.POST("/referrals", creditsHandler.RegisterReferral)

		// Notification routes
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   sched,
		cfg:         cfg,
	}
}

func (s *Server) Run(addr string) error {
	s.scheduler.Start()
	defer s.scheduler.Stop()
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, cfg *config.Config) {
	var origins []string
	if cfg.AllowedOrigins != "" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
