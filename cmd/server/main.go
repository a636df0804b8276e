package main

import (
	"log"

	"glowshot.app/glowshotcore/internal/bootstrap"
	"glowshot.app/glowshotcore/internal/clock"
	"glowshot.app/glowshotcore/internal/config"
	"glowshot.app/glowshotcore/internal/server"
	"glowshot.app/glowshotcore/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	clk, err := clock.New(cfg.TimeZone)
	if err != nil {
		log.Fatalf("failed to load timezone %s: %v", cfg.TimeZone, err)
	}
	if err := clk.SetBonusWindow(cfg.HappyHourStart, cfg.HappyHourEnd); err != nil {
		log.Fatalf("invalid happy hour window: %v", err)
	}

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	redisClient := database.ConnectRedis()

	srv := server.NewServer(db, redisClient, clk, cfg)

	log.Printf("🚀 Server starting on port %s", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
