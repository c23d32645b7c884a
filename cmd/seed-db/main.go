package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		list         bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products catalog, .json or .json.gz")
	flag.BoolVar(&list, "list", false, "print the stored catalog after seeding")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if databaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		return run(ctx, lg, databaseURL, productsFile, list)
	})
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, productsFile string, list bool) error {
	lg.Info("Reading catalog", zap.String("path", productsFile))
	products, err := readCatalogFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL, postgres.PoolConfig{MaxConns: 2})
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewProductRepository(pool)
	if err := repo.Upsert(ctx, products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	lg.Info("Seeded products", zap.Int("count", len(products)))

	if !list {
		return nil
	}
	stored, err := repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	return writeCatalog(os.Stdout, stored)
}
