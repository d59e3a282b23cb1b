// Command export builds the truth table against the configured database and
// writes it to a file, for batch runs outside the web UI.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"vennqca/adapters/export"
	"vennqca/adapters/postgres"
	"vennqca/app"
	"vennqca/internal/config"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	out := flag.String("o", "truth_table.csv", "output path (.csv or .xlsx)")
	variables := flag.Bool("variables", false, "export per-variable columns instead of intersections")
	flag.Parse()

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

	variableRepo := postgres.NewVariableRepository(db)
	proxyRepo := postgres.NewProxyRepository(db)
	orgRepo := postgres.NewOrganizationRepository(db)
	matchRepo := postgres.NewMatchRepository(db)
	intersectionRepo := postgres.NewIntersectionRepository(db)

	intersections := app.NewIntersectionService(
		intersectionRepo, variableRepo, proxyRepo, matchRepo,
		cfg.Engine.VariableModeOperator,
		cfg.Engine.MaxExpressionDepth,
		cfg.Engine.TreeCacheTTL,
	)
	truthTable := app.NewTruthTableService(orgRepo, intersections, cfg.Engine.ExportParallelism)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var result *app.BuildResult
	if *variables {
		result, err = truthTable.VariableTable(ctx, variableRepo)
	} else {
		result, err = truthTable.Build(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to build truth table: %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}
	defer f.Close()

	if strings.HasSuffix(*out, ".xlsx") {
		err = export.WriteXLSX(f, result.Table)
	} else {
		err = export.WriteCSV(f, result.Table)
	}
	if err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}

	stats := result.Stats
	log.Printf("Wrote %s: %d cases x %d conditions, %d configurations, %.1f%% coverage",
		*out, stats.TotalCases, stats.TotalConditions, stats.DistinctConfigurations, stats.CoveragePercent)
}
