package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/handlers"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/middleware"
)

type RouterConfig struct {
	TenantMiddleware *middleware.TenantMiddleware
	SnapshotHandler  *handlers.SnapshotHandler
	ItemHandler      *handlers.ItemHandler
	RelationHandler  *handlers.RelationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Tenant-ID", "X-User-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.TenantMiddleware.RequireTenant())
	{
		// Snapshot lifecycle
		api.POST("/snapshots", cfg.SnapshotHandler.CreateSnapshot)
		api.POST("/snapshots/from-course", cfg.SnapshotHandler.CreateSnapshotFromCourse)
		api.GET("/snapshots", cfg.SnapshotHandler.ListSnapshots)
		api.GET("/snapshots/:snapshotId", cfg.SnapshotHandler.GetSnapshot)
		api.PATCH("/snapshots/:snapshotId", cfg.SnapshotHandler.UpdateSnapshot)
		api.POST("/snapshots/:snapshotId/publish", cfg.SnapshotHandler.Publish)
		api.POST("/snapshots/:snapshotId/complete", cfg.SnapshotHandler.Complete)
		api.POST("/snapshots/:snapshotId/archive", cfg.SnapshotHandler.Archive)

		// Item tree
		api.POST("/snapshots/:snapshotId/items", cfg.ItemHandler.CreateItem)
		api.GET("/snapshots/:snapshotId/items/tree", cfg.ItemHandler.GetHierarchy)
		api.GET("/snapshots/:snapshotId/items", cfg.ItemHandler.GetFlatItems)
		api.PATCH("/items/:itemId", cfg.ItemHandler.UpdateItemName)
		api.POST("/items/:itemId/move", cfg.ItemHandler.MoveItem)
		api.DELETE("/items/:itemId", cfg.ItemHandler.DeleteItem)

		// Learning path
		api.POST("/snapshots/:snapshotId/relations", cfg.RelationHandler.CreateRelation)
		api.POST("/snapshots/:snapshotId/relations/start", cfg.RelationHandler.SetStartItem)
		api.POST("/snapshots/:snapshotId/relations/auto", cfg.RelationHandler.AutoRelate)
		api.DELETE("/snapshots/:snapshotId/relations/:relationId", cfg.RelationHandler.DeleteRelation)
		api.GET("/snapshots/:snapshotId/relations", cfg.RelationHandler.GetRelations)
		api.GET("/snapshots/:snapshotId/ordered-items", cfg.RelationHandler.GetOrderedItems)
	}

	return router
}
