package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"climadex/internal/config"
	"climadex/internal/indicators"
	"climadex/internal/repository"
	"climadex/internal/risk"
	"climadex/internal/services"
	"climadex/pkg/database"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

func main() {
	filePath := flag.String("file", "./data/factories.csv", "CSV file of factories to import")
	batchSize := flag.Int("batch-size", 500, "Number of factories inserted per transaction")
	recompute := flag.Bool("recompute-risk", false, "Recompute the temperature risk of every factory after importing")
	skipImport := flag.Bool("skip-import", false, "Only recompute, do not import")
	verbose := flag.Bool("verbose", false, "Log at debug level regardless of LOG_LEVEL")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climadex-importer", "1.0.0", cfg.LogLevel())
	if *verbose {
		logger.SetLevel(logging.DebugLevel)
	}

	ctx := context.Background()
	logger.Info(ctx, "[IMPORTER_START] Starting factory import", logging.Fields{
		"version":        "1.0.0",
		"file":           *filePath,
		"batch_size":     *batchSize,
		"recompute_risk": *recompute,
		"skip_import":    *skipImport,
	})

	metricsCollector := metrics.NewCollector("climadex_importer")

	db, err := database.Open(cfg.DatabaseConfig(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[IMPORTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	factoryRepo := repository.NewFactoryRepository(db, logger, metricsCollector)
	if err := factoryRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal(ctx, "[IMPORTER_ERROR] Failed to migrate database", logging.Fields{}, err)
	}

	grid, err := indicators.LoadGrid(cfg.Indicators.Path, cfg.Indicators.Resolution)
	if err != nil {
		logger.Fatal(ctx, "[IMPORTER_ERROR] Failed to load indicator dataset", logging.Fields{
			"path": cfg.Indicators.Path,
		}, err)
	}

	evaluator := risk.NewEvaluator(grid, metricsCollector)

	if !*skipImport {
		importService := services.NewImportService(factoryRepo, evaluator, logger, metricsCollector)

		result, err := importService.ImportFile(ctx, *filePath, *batchSize)
		if err != nil {
			logger.Fatal(ctx, "[IMPORT_ERROR] Import failed", logging.Fields{
				"file": *filePath,
			}, err)
		}

		fmt.Println(strings.Repeat("=", 80))
		fmt.Println("IMPORT COMPLETE")
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Total Records:      %d\n", result.TotalRecords)
		fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
		fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
		fmt.Printf("Duration:           %v\n", result.Duration)

		if len(result.Errors) > 0 {
			fmt.Printf("\nErrors (%d):\n", len(result.Errors))
			for i, errMsg := range result.Errors {
				if i < 10 {
					fmt.Printf("  - %s\n", errMsg)
				}
			}
			if len(result.Errors) > 10 {
				fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
			}
		}
	}

	if *recompute {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Println("RECOMPUTING TEMPERATURE RISK")
		fmt.Println(strings.Repeat("=", 80))

		factoryService := services.NewFactoryService(factoryRepo, evaluator, logger, metricsCollector)
		result, err := factoryService.RecomputeAllRisk(ctx)
		if err != nil {
			logger.Error(ctx, "[RECOMPUTE_ERROR] Recompute failed", logging.Fields{
				"updated": result.Updated,
			}, err)
			fmt.Printf("Recompute failed after %d factories: %v\n", result.Updated, err)
			os.Exit(1)
		}
		fmt.Printf("%d factories updated in %v\n", result.Updated, result.Duration)
	}

	logger.Info(ctx, "[IMPORTER_COMPLETE] Importer finished", logging.Fields{})
}
