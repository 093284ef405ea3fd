package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/joho/godotenv"

	"github.com/peachstate-cre/propquery/pkg/candidate"
	"github.com/peachstate-cre/propquery/pkg/config"
	"github.com/peachstate-cre/propquery/pkg/constraints"
	"github.com/peachstate-cre/propquery/pkg/corrector"
	"github.com/peachstate-cre/propquery/pkg/database"
	"github.com/peachstate-cre/propquery/pkg/engine"
	"github.com/peachstate-cre/propquery/pkg/executor"
	"github.com/peachstate-cre/propquery/pkg/learning"
	"github.com/peachstate-cre/propquery/pkg/logging"
	"github.com/peachstate-cre/propquery/pkg/schema"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	showStats := flag.Bool("stats", false, "print the learning-store performance report and exit")
	candidateSQL := flag.String("sql", "", "candidate SQL to validate instead of generating one")
	flag.Parse()

	// Optional; a missing .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to open migration connection: %v", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	sqlDB.Close()

	vocabulary := schema.Default()
	if cfg.SchemaOverridesPath != "" {
		vocabulary, err = schema.Load(cfg.SchemaOverridesPath)
		if err != nil {
			log.Fatalf("Failed to load schema overrides: %v", err)
		}
	}

	store := learning.NewStore(db.Pool, logger)
	rdb, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}
	store = learning.WithCache(store, rdb, logger)

	eng := engine.New(
		cfg.Engine,
		constraints.NewExtractor(vocabulary),
		executor.New(db.Pool, cfg.Engine.ExecutionTimeout, logger),
		corrector.New(vocabulary, store, logger),
		store,
		logger,
	)

	if *showStats {
		report, err := eng.PerformanceReport(ctx)
		if err != nil {
			log.Fatalf("Failed to build report: %v", err)
		}
		fmt.Println(report)

		recs, err := eng.Recommendations(ctx)
		if err != nil {
			log.Fatalf("Failed to build recommendations: %v", err)
		}
		fmt.Println("Recommendations:")
		for _, r := range recs {
			fmt.Printf("  - %s\n", r)
		}
		return
	}

	utterance := flag.Arg(0)
	if utterance == "" {
		fmt.Fprintln(os.Stderr, `usage: propquery [-stats] [-sql <candidate sql>] "<question>"`)
		os.Exit(2)
	}

	initial := *candidateSQL
	if initial == "" {
		source, err := candidate.FromConfig(cfg, vocabulary, logger)
		if err != nil {
			log.Fatalf("Failed to build candidate source: %v", err)
		}
		initial, err = source.Candidate(ctx, utterance)
		if err != nil {
			log.Fatalf("Failed to generate candidate SQL: %v", err)
		}
	}

	envelope := eng.Process(ctx, utterance, initial)

	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render envelope: %v", err)
	}
	fmt.Println(string(out))
}
