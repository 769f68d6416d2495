package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Builder.PageSize != 100 {
		t.Fatalf("expected default page size 100, got %d", cfg.Builder.PageSize)
	}
	if cfg.Builder.Limit != 20 {
		t.Fatalf("expected default limit 20, got %d", cfg.Builder.Limit)
	}
	if cfg.Graph.QueryTimeout != 30*time.Second {
		t.Fatalf("expected default query timeout 30s, got %v", cfg.Graph.QueryTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")
	t.Setenv("BUILDER_PAGE_SIZE", "250")
	t.Setenv("GRAPH_URI", "bolt://graph:7687")
	t.Setenv("LOGGING_FORMAT", "json")
	t.Setenv("CACHE_IN_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Fatalf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Builder.PageSize != 250 {
		t.Fatalf("expected page size 250, got %d", cfg.Builder.PageSize)
	}
	if cfg.Graph.URI != "bolt://graph:7687" {
		t.Fatalf("expected graph URI override, got %q", cfg.Graph.URI)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json logging, got %q", cfg.Logging.Format)
	}
	if !cfg.Cache.InMemory {
		t.Fatal("expected in-memory cache")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":       "70000",
		"BUILDER_PAGE_SIZE": "-1",
		"BUILDER_LIMIT":     "0",
		"BUILDER_WORKERS":   "-3",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s=%s", key, value)
			}
		})
	}
}

func TestEnvTransformIgnoresForeignVariables(t *testing.T) {
	if got := envTransform("PATH"); got != "" {
		t.Fatalf("expected PATH to be ignored, got %q", got)
	}
	if got := envTransform("HOME_DIR"); got != "" {
		t.Fatalf("expected HOME_DIR to be ignored, got %q", got)
	}
	if got := envTransform("BUILDER_PAGE_SIZE"); got != "builder.page_size" {
		t.Fatalf("unexpected mapping %q", got)
	}
}
