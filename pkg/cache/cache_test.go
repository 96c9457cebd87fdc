package cache_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/JaimeStill/tribunal/pkg/cache"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		domain  string
		pattern string
		want    string
	}{
		{"full", "tribunal", "hearings", "TRT3:*", "tribunal:hearings:TRT3:*"},
		{"trims separators", "tribunal:", ":hearings:", "*", "tribunal:hearings:*"},
		{"empty pattern", "tribunal", "docket", "", "tribunal:docket"},
		{"empty prefix", "", "pending", "*", "pending:*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cache.Key(tt.prefix, tt.domain, tt.pattern); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	sys := cache.New(&cache.Config{Enabled: false}, slog.Default())

	n, err := sys.Invalidate(context.Background(), "hearings", "*")
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Invalidate() = %d, want 0", n)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_CACHE_ENABLED", "true")
	t.Setenv("TEST_CACHE_ADDR", "redis:6380")

	var cfg cache.Config
	err := cfg.Finalize(&cache.Env{Enabled: "TEST_CACHE_ENABLED", Addr: "TEST_CACHE_ADDR"})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if !cfg.Enabled {
		t.Error("Enabled = false, want true")
	}
	if cfg.Addr != "redis:6380" {
		t.Errorf("Addr = %q, want redis:6380", cfg.Addr)
	}
	if cfg.Prefix != "tribunal" {
		t.Errorf("Prefix = %q, want tribunal", cfg.Prefix)
	}
}
