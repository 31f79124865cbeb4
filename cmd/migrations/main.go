package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/gradgate/internal/config"
)

func main() {
	var (
		envFile string
		list    bool
	)
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file to load")
	flag.BoolVar(&list, "list", false, "print the embedded migrations and exit")
	flag.Parse()

	if list {
		for _, name := range postgres.MigrationNames() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.StoreDriver != config.StorePostgres {
		log.Fatalf("migrations only target postgres; the %s store migrates itself on open", cfg.StoreDriver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	connStr := postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DB,
		SSLMode:  cfg.Postgres.SSLMode,
	}.ConnString()

	db, err := postgres.Open(ctx, connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	fmt.Println("Migrations applied successfully.")
}
