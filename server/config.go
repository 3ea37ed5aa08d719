package main

import (
	"strings"
)

// config is read from the environment.
type config struct {
	DatabaseURL  string   // DATABASE_URL; empty keeps DAGs in memory
	Listen       string   // LISTEN_ADDR
	CatalogPaths []string // OPERATOR_CATALOG, comma separated
	PublishTo    string   // PUBLISH_TARGET, gs://bucket/prefix or a directory
	ClassName    string   // MODEL_CLASS
}

func configFromEnv(getenv func(string) string) config {
	cfg := config{
		DatabaseURL: getenv("DATABASE_URL"),
		Listen:      getenv("LISTEN_ADDR"),
		PublishTo:   getenv("PUBLISH_TARGET"),
		ClassName:   getenv("MODEL_CLASS"),
	}
	if cfg.Listen == "" {
		cfg.Listen = ":3000"
	}
	for _, p := range strings.Split(getenv("OPERATOR_CATALOG"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.CatalogPaths = append(cfg.CatalogPaths, p)
		}
	}
	return cfg
}
