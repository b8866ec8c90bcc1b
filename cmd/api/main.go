package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tukangku-app/tukangku_be/internal/cache"
	"github.com/tukangku-app/tukangku_be/internal/config"
	"github.com/tukangku-app/tukangku_be/internal/db"
	"github.com/tukangku-app/tukangku_be/internal/handlers"
	"github.com/tukangku-app/tukangku_be/internal/middleware"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/repository"
	bidsvc "github.com/tukangku-app/tukangku_be/internal/services/bid"
	jobsvc "github.com/tukangku-app/tukangku_be/internal/services/job"
	ratingsvc "github.com/tukangku-app/tukangku_be/internal/services/rating"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg := config.Load()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.Bid{},
		&models.Conversation{},
		&models.Message{},
		&models.Rating{},
	); err != nil {
		log.Fatal().Err(err).Msg("automigrate failed")
	}

	rdb := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	store := repository.New(gdb)
	jobs := jobsvc.NewService(store, log)
	bids := bidsvc.NewService(store, log)
	ratings := ratingsvc.NewService(store, log)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	jobH := handlers.NewJobHandler(jobs)
	bidH := handlers.NewBidHandler(bids)
	chatH := handlers.NewChatHandler(gdb, cache.NewChatCache(rdb), log)
	ratingH := handlers.NewRatingHandler(ratings)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)

	// protected
	protected := api.Group("/", middleware.Authenticate(cfg.JWTSecret))

	protected.Get("/me", authH.Me)

	protected.Post("/jobs", middleware.RequireRoles(models.RoleCustomer), jobH.Create)
	protected.Get("/jobs", jobH.List)
	protected.Get("/jobs/:id", jobH.Get)
	protected.Put("/jobs/:id", jobH.Update)
	protected.Delete("/jobs/:id", jobH.Delete)
	protected.Post("/jobs/assign", middleware.RequireRoles(models.RoleCustomer), bidH.Assign)

	protected.Post("/bids", middleware.RequireRoles(models.RoleContractor), bidH.Create)
	protected.Get("/bids/job/:jobId", bidH.ListForJob)
	protected.Put("/bids/:id", middleware.RequireRoles(models.RoleContractor), bidH.Update)
	protected.Delete("/bids/:id", middleware.RequireRoles(models.RoleContractor), bidH.Delete)

	chat := protected.Group("/chat")
	chat.Post("/conversations", chatH.CreateOrGetConversation)
	chat.Get("/conversations", chatH.GetConversations)
	chat.Get("/conversations/:id/messages", chatH.GetMessages)
	chat.Post("/conversations/:id/messages", chatH.SendMessage)
	chat.Patch("/conversations/:id/read", chatH.MarkAsRead)

	protected.Post("/ratings", ratingH.Create)
	protected.Get("/ratings/user/:id", ratingH.ListForUser)

	log.Info().Str("port", cfg.AppPort).Msg("listening")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
