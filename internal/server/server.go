// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"scribio/internal/cache"
	"scribio/internal/config"
	"scribio/internal/database"
	"scribio/internal/mail"
	"scribio/internal/middleware"
	"scribio/internal/models"
	"scribio/internal/repository"
	"scribio/internal/service"
	"scribio/internal/speech"
	"scribio/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	userRepo         repository.UserRepository
	postRepo         repository.PostRepository
	appreciationRepo repository.AppreciationRepository
	saveRepo         repository.SaveRepository
	historyRepo      repository.HistoryRepository
	followRepo       repository.FollowRepository

	authService       *service.AuthService
	postService       *service.PostService
	engagementService *service.EngagementService
	profileService    *service.ProfileService
	followService     *service.FollowService
	userService       *service.UserService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	ctx := context.Background()

	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage init failed: %w", err)
	}
	uploader := storage.NewUploader(store)

	synth, err := speech.NewPollySynthesizer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("speech synthesizer init failed: %w", err)
	}
	narrator := speech.NewService(synth)

	mailer := mail.NewSMTPSender(cfg)

	return newServer(cfg, db, redisClient, uploader, narrator, mailer), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// substitutes the external providers.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	uploader service.MediaUploader,
	narrator service.Narrator,
	mailer mail.Sender,
) *Server {
	return newServer(cfg, db, redisClient, uploader, narrator, mailer)
}

func newServer(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	uploader service.MediaUploader,
	narrator service.Narrator,
	mailer mail.Sender,
) *Server {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	appreciationRepo := repository.NewAppreciationRepository(db)
	saveRepo := repository.NewSaveRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	followRepo := repository.NewFollowRepository(db)

	prom := middleware.InitMetrics("scribio-api")

	s := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		promMiddleware:   prom,
		userRepo:         userRepo,
		postRepo:         postRepo,
		appreciationRepo: appreciationRepo,
		saveRepo:         saveRepo,
		historyRepo:      historyRepo,
		followRepo:       followRepo,
	}

	codes := cache.NewVerificationStore()
	s.authService = service.NewAuthService(userRepo, codes, mailer, cfg)
	s.engagementService = service.NewEngagementService(appreciationRepo, saveRepo, postRepo, userRepo, historyRepo)
	s.postService = service.NewPostService(postRepo, userRepo, s.engagementService, uploader, narrator)
	s.profileService = service.NewProfileService(userRepo, postRepo, followRepo, historyRepo, saveRepo, uploader)
	s.followService = service.NewFollowService(followRepo, userRepo)
	s.userService = service.NewUserService(userRepo)

	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// OpenTelemetry spans
	app.Use(middleware.TracingMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup/init", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.SignupInit)
	auth.Post("/signup/finish", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "signup_finish"), s.SignupFinish)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/refresh", s.Refresh)
	auth.Post("/logout", s.Logout)
	auth.Post("/google", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "google_login"), s.GoogleLogin)
	auth.Post("/password-reset/init", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "password_reset"), s.PasswordResetInit)
	auth.Post("/password-reset/check", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "password_reset_check"), s.PasswordResetCheck)
	auth.Post("/password-reset/finish", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "password_reset_finish"), s.PasswordResetFinish)

	// Public post routes (browse/search)
	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetPosts)
	publicPosts.Get("/ids", s.GetPostIDs)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	publicPosts.Get("/:id/metrics", middleware.AuthOptional, s.GetPostMetrics)
	publicPosts.Post("/:id/view", middleware.AuthOptional, s.RegisterView)
	publicPosts.Get("/:id", s.GetPost)

	// Public user routes
	users := api.Group("/users")
	users.Get("/ids", s.GetUserIDs)
	// Specific /:id/:resource routes before generic /:id
	users.Get("/:id/description", s.GetUserDescription)
	users.Get("/:id/views", s.GetUserViews)
	users.Get("/:id/posts/ids", s.GetUserPostIDs)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id/followers", s.GetUserFollowers)
	users.Get("/:id/follow", middleware.AuthRequired, s.GetFollowStatus)
	users.Post("/:id/follow", middleware.AuthRequired, s.FollowUser)
	users.Delete("/:id/follow", middleware.AuthRequired, s.UnfollowUser)
	users.Get("/:id", s.GetUserProfile)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Protected post routes
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/upload", s.UploadEditorImage)
	posts.Post("/upload-by-url", s.UploadEditorImageByURL)
	// Specific /:id/:resource routes before generic /:id
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/dislike", s.DislikePost)
	posts.Delete("/:id/appreciation", s.RemoveAppreciation)
	posts.Post("/:id/save", s.SavePost)
	posts.Delete("/:id/save", s.UnsavePost)
	// Generic /:id routes (for update, delete)
	posts.Patch("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Profile routes (the signed-in user's own account)
	profile := protected.Group("/profile")
	profile.Get("/", s.GetProfile)
	profile.Patch("/avatar", s.UpdateAvatar)
	profile.Patch("/username", s.UpdateUsername)
	profile.Patch("/description", s.UpdateDescription)
	profile.Patch("/email/init", s.EmailUpdateInit)
	profile.Patch("/email/finish", s.EmailUpdateFinish)
	profile.Get("/history", s.GetHistory)
	profile.Delete("/history/:id", s.DeleteHistoryItem)
	profile.Delete("/history", s.ClearHistory)
	profile.Get("/saves", s.GetSavedPosts)
	profile.Get("/followers", s.GetMyFollowers)
	profile.Get("/followings", s.GetMyFollowings)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis holds the verification codes, so it is required for readiness
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "Scribio API",
		BodyLimit: 20 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, err)
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
