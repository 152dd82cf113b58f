package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/echomed/echobank-backend/internal/config"
	"github.com/echomed/echobank-backend/internal/database"
	"github.com/echomed/echobank-backend/internal/logger"
)

func main() {
	var migrationDir string
	flag.StringVar(&migrationDir, "path", "", "Path to migration files (defaults to MIGRATIONS_DIR)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if migrationDir == "" {
		migrationDir = cfg.MigrationsDir
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer db.Close()

	migrator := database.NewMigrator(db, migrationDir, log)

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return
	}

	switch args[0] {
	case "up":
		if err := migrator.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("Migration run failed")
		}
		fmt.Println("Migrations applied")
	case "status":
		applied, err := migrator.Applied(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Status failed")
		}
		if len(applied) == 0 {
			fmt.Println("No migrations applied")
			return
		}
		for _, name := range applied {
			fmt.Println(name)
		}
	case "reset":
		// Destructive: drops the public schema, then reapplies everything.
		if !cfg.DBInitSchema {
			fmt.Fprintln(os.Stderr, "reset requires DB_INIT_SCHEMA=true")
			os.Exit(1)
		}
		if err := migrator.InitSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Schema init failed")
		}
		if err := migrator.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("Migration run failed")
		}
		fmt.Println("Schema reset and migrations applied")
	default:
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println("Commands: up, status, reset")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
