// Package server is the REST backend the Book dot client talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookdot/internal/auth"
	"bookdot/internal/cache"
	"bookdot/internal/config"
	"bookdot/internal/dao"
	"bookdot/internal/database"
	"bookdot/internal/docstore"
	"bookdot/internal/middleware"
	"bookdot/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	store          *database.Store
	daos           *dao.DAOs
	redis          *redis.Client
	cache          *cache.Cache
	issuer         *auth.Issuer
	docs           *docstore.Store
	promMiddleware *fiberprometheus.FiberPrometheus
	app            *fiber.App
	now            func() time.Time
}

// NewServerWithDeps builds a server over an already opened store and Redis
// client. The same Redis holds sessions, the document store and the cache.
func NewServerWithDeps(cfg *config.Config, store *database.Store, rdb *redis.Client) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("server requires a database store")
	}
	if rdb == nil {
		return nil, fmt.Errorf("server requires a redis client")
	}

	s := &Server{
		config:         cfg,
		store:          store,
		daos:           dao.New(store),
		redis:          rdb,
		cache:          cache.New(rdb),
		issuer:         auth.NewIssuer(rdb, cfg.JWTSecret, cfg.SessionTTL),
		docs:           docstore.New(rdb),
		promMiddleware: middleware.InitMetrics("bookdot-api"),
		now:            func() time.Time { return time.Now().UTC() },
	}

	app := fiber.New(fiber.Config{
		AppName:      "bookdot-api",
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return s, nil
}

// App exposes the configured fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Issuer hands out the anonymous sessions this server accepts.
func (s *Server) Issuer() *auth.Issuer { return s.issuer }

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	addr := ":" + s.config.Port
	observability.Logger.Info("starting api server", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
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

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api", middleware.AuthRequired(s.issuer))

	posts := api.Group("/posts")
	posts.Get("/feed", s.GetFeed)
	posts.Get("/user/:userId", s.GetUserPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post", middleware.FailOpen), s.CreatePost)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)

	users := api.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/search", s.SearchUsers)
	users.Get("/username/:username", s.GetUserByUsername)
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
	users.Get("/:id", s.GetUserProfile)

	conversations := api.Group("/conversations")
	conversations.Get("/:id/messages", s.GetMessages)
	conversations.Post("/:id/messages", middleware.RateLimit(s.redis, 30, time.Minute, "send_message", middleware.FailOpen), s.SendMessage)
	conversations.Put("/:id/read", s.MarkConversationRead)

	messages := api.Group("/messages")
	messages.Put("/:id/read", s.MarkMessageRead)
	messages.Delete("/:id", s.DeleteMessage)
}

// HealthCheck reports database and Redis reachability.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	status := fiber.StatusOK
	dbStatus := "healthy"
	if sqlDB, err := s.store.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}
	redisStatus := "healthy"
	if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	overall := "up"
	if status != fiber.StatusOK {
		overall = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   overall,
		"database": dbStatus,
		"redis":    redisStatus,
		"time":     s.now(),
	})
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return respondError(c, err)
}
