package main

import (
	"fmt"
	"os"

	redisclient "github.com/mzcATU/mzc-lp-backend-sub001/internal/clients/redis"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/db"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/handlers"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/middleware"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/repos"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/server"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/services"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	snapshotRepo := repos.NewSnapshotRepo(thePG, log)
	itemRepo := repos.NewItemRepo(thePG, log)
	refRepo := repos.NewLearningObjectRefRepo(thePG, log)
	relationRepo := repos.NewItemRelationRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)

	// Ordered-items cache is optional: without REDIS_ADDR every read
	// resolves the chain from postgres.
	var orderCache services.OrderedItemsCache
	if cache, err := redisclient.NewOrderCache(log); err != nil {
		log.Warn("Order cache disabled", "error", err)
	} else {
		orderCache = cache
	}

	// Services
	log.Info("Setting up services...")
	snapshotService := services.NewSnapshotService(thePG, log, snapshotRepo, itemRepo, refRepo, courseRepo)
	itemService := services.NewItemService(thePG, log, snapshotRepo, itemRepo, refRepo, orderCache)
	relationService := services.NewRelationService(thePG, log, snapshotRepo, itemRepo, relationRepo, orderCache)

	// Handlers
	snapshotHandler := handlers.NewSnapshotHandler(log, snapshotService)
	itemHandler := handlers.NewItemHandler(log, itemService)
	relationHandler := handlers.NewRelationHandler(log, relationService)
	tenantMiddleware := middleware.NewTenantMiddleware(log)

	router := server.NewRouter(server.RouterConfig{
		TenantMiddleware: tenantMiddleware,
		SnapshotHandler:  snapshotHandler,
		ItemHandler:      itemHandler,
		RelationHandler:  relationHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
