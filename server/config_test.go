package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL":     "postgres://localhost/netgen",
		"OPERATOR_CATALOG": " ops/base.hcl, ,ops/extra ",
		"PUBLISH_TARGET":   "gs://models/generated",
		"MODEL_CLASS":      "Net",
	}
	cfg := configFromEnv(func(k string) string { return env[k] })

	assert.Equal(t, config{
		DatabaseURL:  "postgres://localhost/netgen",
		Listen:       ":3000",
		CatalogPaths: []string{"ops/base.hcl", "ops/extra"},
		PublishTo:    "gs://models/generated",
		ClassName:    "Net",
	}, cfg)
}

func TestConfigFromEnv_Empty(t *testing.T) {
	cfg := configFromEnv(func(string) string { return "" })
	assert.Equal(t, ":3000", cfg.Listen)
	assert.Empty(t, cfg.CatalogPaths)
	assert.Empty(t, cfg.DatabaseURL)
}
