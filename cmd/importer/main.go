package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"petshop/internal/config"
	"petshop/internal/db"
	"petshop/internal/importer"
	"petshop/internal/repository/category"
	"petshop/internal/repository/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a product or category CSV file")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{})
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	kind, err := importer.DetectKind(f)
	if err != nil {
		logger.Fatalf("detect file kind: %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		logger.Fatalf("rewind file: %v", err)
	}

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, logger), category.NewPostgres(pool), cfg.DefaultCurrency)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d rows: %v", count, err)
	}

	fmt.Printf("Imported %d %s in %s\n", count, kind, time.Since(start).Truncate(time.Millisecond))
}
