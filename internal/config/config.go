package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config holds the server-level settings read from the environment.
type Config struct {
	Port       string
	CORSOrigin string
	// Workers bounds how many reconciliation runs execute concurrently.
	Workers int
}

func Load() Config {
	return Config{
		Port:       getenv("PORT", "8080"),
		CORSOrigin: getenv("CORS_ORIGIN", "http://localhost:3000"),
		Workers:    getenvInt("RECON_WORKERS", 4),
	}
}

// InitDB opens the Postgres connection from DB_* env vars.
func InitDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getenv("DB_HOST", "localhost"),
		getenv("DB_USER", "postgres"),
		getenv("DB_PASSWORD", "postgres"),
		getenv("DB_NAME", "reconciliation"),
		getenv("DB_PORT", "5432"),
		getenv("DB_SSLMODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	return db
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logrus.Warnf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
