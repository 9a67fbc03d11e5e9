package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"scene-store/internal/config"
	"scene-store/internal/platform"
	"scene-store/internal/scene"
	"scene-store/internal/scene/autosave"
	scenehttp "scene-store/internal/scene/http"
	"scene-store/internal/shared/eventbus"
	"scene-store/internal/shared/logger"
	"scene-store/internal/store"
	"scene-store/internal/store/localstore"
	"scene-store/internal/store/memorystore"
	"scene-store/internal/store/mongostore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLogger()
	appLogger.Infof("scene-store starting with %s backend", cfg.Store.Backend)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	documentStore, err := newStore(cfg, appLogger)
	if err != nil {
		appLogger.Fatalf("Failed to create document store: %v", err)
	}
	if err := documentStore.Initialize(ctx); err != nil {
		appLogger.Fatalf("Failed to initialize document store: %v", err)
	}
	defer func() {
		if err := documentStore.Close(context.Background()); err != nil {
			appLogger.Errorf("Failed to close document store: %v", err)
		}
	}()

	var listCache *scene.ListCache
	if cfg.Redis.Enabled {
		redisClient := config.NewRedisClient(cfg.Redis)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Warnf("Redis not reachable, listing cache disabled: %v", err)
		} else {
			listCache = scene.NewListCache(redisClient, cfg.Redis.TTL(), appLogger)
			appLogger.Info("Scene listing cache enabled")
		}
	}

	bus := eventbus.NewBus(appLogger)
	projects := platform.ContextProjectProvider{Fallback: cfg.ProjectID}
	repository := scene.NewRepository(documentStore, projects, bus, listCache, appLogger)
	sessions := autosave.NewManager(repository, platform.LogNotifier{Log: appLogger},
		bus, appLogger, cfg.Autosave.Debounce())

	app := fiber.New(fiber.Config{
		AppName:      "scene-store",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(scenehttp.ContextMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "backend": cfg.Store.Backend})
	})

	api := app.Group("/api/v1")
	scenehttp.NewHandler(repository, sessions, appLogger).RegisterRoutes(api)

	go func() {
		appLogger.Infof("Listening on %s", cfg.Server.Addr())
		if err := app.Listen(cfg.Server.Addr()); err != nil {
			appLogger.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Errorf("Server shutdown failed: %v", err)
	}
	sessions.CloseAll(context.Background())
}

// newStore selects the document store backend from configuration. Backend
// polymorphism is decided here, once, at startup.
func newStore(cfg *config.Config, appLogger logger.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		return mongostore.New(mongostore.Config{
			URI:      cfg.Store.MongoURI,
			Database: cfg.Store.MongoDatabase,
		}, appLogger), nil
	case config.BackendSQLite:
		return localstore.New(cfg.Store.SQLitePath, appLogger), nil
	case config.BackendMemory:
		return memorystore.New(appLogger), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}
