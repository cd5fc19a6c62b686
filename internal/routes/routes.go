package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "transaction-reconciliation-backend/internal/handlers"
	"transaction-reconciliation-backend/internal/middleware"
	"transaction-reconciliation-backend/internal/repository"
	"transaction-reconciliation-backend/internal/services/ledger"
	service "transaction-reconciliation-backend/internal/services/reconciliation"
)

// RegisterRoutes wires repositories, services, and handlers onto the engine.
// The returned service should be closed on shutdown to drain running jobs.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, workers int) (*service.Service, error) {
	jobRepo := repository.NewUploadJobRepository(db)
	resultRepo := repository.NewResultRepository(db)
	systemRepo := repository.NewSystemRecordRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	ledgerStore := ledger.NewStore(systemRepo, auditRepo)
	if err := ledgerStore.Load(); err != nil {
		return nil, err
	}

	reconService := service.NewService(jobRepo, resultRepo, ledgerStore, auditRepo, workers)

	reconHandler := handler.NewReconciliationHandler(reconService)
	adminHandler := handler.NewAdminHandler(reconService, ledgerStore, auditRepo)

	api := r.Group("/api")
	api.Use(middleware.Identity())

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api.POST("/upload", reconHandler.Upload)
	api.GET("/results/:jobId", reconHandler.GetResults)
	api.GET("/jobs/:jobId", reconHandler.GetJob)
	api.POST("/jobs/:jobId/cancel", reconHandler.CancelJob)
	api.PUT("/resolve/:id", reconHandler.Resolve)
	api.GET("/latest-job", reconHandler.GetLatestJob)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole("admin"))
	admin.POST("/system-upload", adminHandler.UploadSystemRecords)
	admin.GET("/jobs", adminHandler.ListJobs)
	admin.GET("/audit-logs", adminHandler.ListAuditLogs)

	return reconService, nil
}
