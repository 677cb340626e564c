package main

import (
	"context"
	"flag"
	"log"
	"os"

	"petshop/internal/config"
	"petshop/internal/db"
	"petshop/internal/migrate"
)

func main() {
	down := flag.Int("down", 0, "Roll back this many migrations instead of migrating up")
	flag.Parse()

	cfg := config.Load()
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{})
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if *down > 0 {
		if err := migrate.Rollback(ctx, pool, *down); err != nil {
			logger.Fatalf("roll back migrations: %v", err)
		}
	} else if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	version, dirty, err := migrate.Version(ctx, pool)
	if err != nil {
		logger.Fatalf("read version: %v", err)
	}
	logger.Printf("migrations applied version=%d dirty=%v", version, dirty)
}
