package main

import (
	"time"

	"transaction-reconciliation-backend/internal/config"
	"transaction-reconciliation-backend/internal/models"
	"transaction-reconciliation-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, relying on system env")
	}

	cfg := config.Load()
	db := config.InitDB()

	db.AutoMigrate(
		&models.SystemRecord{},
		&models.UploadJob{},
		&models.ReconciliationResult{},
		&models.AuditLog{},
	)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Actor", "X-Role"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	reconService, err := routes.RegisterRoutes(r, db, cfg.Workers)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize services")
	}
	defer reconService.Close()

	if err := r.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}
