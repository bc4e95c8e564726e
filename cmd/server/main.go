package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/myrealm/backend/internal/config"
	"github.com/myrealm/backend/internal/database"
	"github.com/myrealm/backend/internal/events"
	"github.com/myrealm/backend/internal/handlers"
	"github.com/myrealm/backend/internal/middleware"
	"github.com/myrealm/backend/internal/models"
	"github.com/myrealm/backend/internal/services"
	"github.com/myrealm/backend/internal/storage"
	"github.com/myrealm/backend/pkg/logger"
	"github.com/myrealm/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	hub := events.NewHub()

	friendService := services.NewFriendService(db)
	searchService := services.NewSearchService(db, friendService)
	activityService := services.NewActivityService(db)

	authHandler := handlers.NewAuthHandler(db)
	usersHandler := handlers.NewUsersHandler(db, searchService)
	friendsHandler := handlers.NewFriendsHandler(db, friendService, activityService, hub)
	filesHandler := handlers.NewFilesHandler(db, storageClient, hub)
	serversHandler := handlers.NewServersHandler(db)
	activitiesHandler := handlers.NewActivitiesHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.SearchUsers)

	friendRoutes := api.Group("/friends", authMiddleware.RequireAuth)
	friendRoutes.Get("/", friendsHandler.List)
	friendRoutes.Get("/requests/incoming", friendsHandler.IncomingRequests)
	friendRoutes.Get("/requests/outgoing", friendsHandler.OutgoingRequests)
	friendRoutes.Post("/requests", friendsHandler.SendRequest)
	friendRoutes.Post("/requests/:id/respond", friendsHandler.RespondToRequest)
	friendRoutes.Delete("/requests/:id", friendsHandler.CancelRequest)
	friendRoutes.Delete("/:userID", friendsHandler.RemoveFriend)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Post("/upload", filesHandler.Upload)
	fileRoutes.Get("/", filesHandler.List)
	fileRoutes.Get("/:id/download-url", filesHandler.DownloadURL)
	fileRoutes.Delete("/:id", filesHandler.Delete)

	serverRoutes := api.Group("/servers", authMiddleware.RequireAuth)
	serverRoutes.Post("/", serversHandler.Create)
	serverRoutes.Get("/", serversHandler.List)
	serverRoutes.Get("/:id", serversHandler.Get)
	serverRoutes.Put("/:id", serversHandler.Update)
	serverRoutes.Delete("/:id", serversHandler.Delete)

	activityRoutes := api.Group("/activities", authMiddleware.RequireAuth)
	activityRoutes.Get("/", activitiesHandler.List)
	activityRoutes.Get("/unread-count", activitiesHandler.UnreadCount)
	activityRoutes.Put("/read-all", activitiesHandler.MarkAllRead)
	activityRoutes.Put("/:id/read", activitiesHandler.MarkRead)

	api.Use("/ws", authMiddleware.RequireAuth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		user, ok := conn.Locals(middleware.CurrentUserKey).(*models.User)
		if !ok {
			_ = conn.Close()
			return
		}
		events.NewClient(hub, conn, user.ID).Serve()
	}))

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
