package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/netgen"
	"github.com/meikuraledutech/netgen/memstore"
	"github.com/meikuraledutech/netgen/operator"
	"github.com/meikuraledutech/netgen/postgres"
	"github.com/meikuraledutech/netgen/publish"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	if err := run(context.Background(), configFromEnv(os.Getenv)); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		klog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	log := klog.FromContext(ctx)

	reg := operator.Builtin()
	if len(cfg.CatalogPaths) > 0 {
		if err := operator.LoadCatalog(ctx, reg, cfg.CatalogPaths...); err != nil {
			return fmt.Errorf("loading operator catalog: %w", err)
		}
	}
	log.Info("operators registered", "count", len(reg.Types()))

	var store netgen.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	} else {
		log.Info("DATABASE_URL is not set, keeping DAGs in memory")
		store = memstore.New()
	}

	var pub publish.Publisher
	if cfg.PublishTo != "" {
		p, err := publish.Open(cfg.PublishTo)
		if err != nil {
			return fmt.Errorf("PUBLISH_TARGET: %w", err)
		}
		pub = p
	}

	app := newApp(store, reg, pub, cfg.ClassName)

	log.Info("serving", "listen", cfg.Listen)
	return app.Listen(cfg.Listen)
}
