package main

import (
	"context"
	"log"
	"time"

	"vennqca/internal/config"
	"vennqca/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema migrated (version %s)", runner.Version())
}
