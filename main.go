package main

import (
	"context"
	"log"
	"time"

	"vennqca/internal/config"
	"vennqca/internal/container"
	"vennqca/internal/migration"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[Main] no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] configuration error: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Main] database connection failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("[Main] migration failed: %v", err)
	}
	log.Printf("[Main] schema migrated (version %s)", runner.Version())

	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("[Main] container setup failed: %v", err)
	}
	if err := c.InitWithDatabase(db); err != nil {
		log.Fatalf("[Main] container init failed: %v", err)
	}
	defer c.Close()

	if cfg.Ops.Enabled {
		go func() {
			log.Printf("[Main] ops sidecar listening on :%s", cfg.Ops.Port)
			if err := c.Ops.Run(cfg.Ops.Port); err != nil {
				log.Printf("[Main] ops sidecar stopped: %v", err)
			}
		}()
	}

	log.Printf("[Main] API listening on :%s", cfg.Server.Port)
	if err := c.API.Run(cfg.Server.Port); err != nil {
		log.Fatalf("[Main] server stopped: %v", err)
	}
}
