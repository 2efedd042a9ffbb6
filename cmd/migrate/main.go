package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"climadex/internal/config"
	"climadex/pkg/database"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

func main() {
	dbPath := flag.String("db", "", "SQLite database file (overrides DB_PATH)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Maximum time to spend migrating")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *dbPath != "" {
		cfg.Database.Driver = database.DriverSQLite
		cfg.Database.Path = *dbPath
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climadex-migrate", "1.0.0", cfg.LogLevel())

	db, err := database.Open(cfg.DatabaseConfig(), logger, metrics.NewCollector("climadex_migrate"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", db.Driver())

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migrations: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
