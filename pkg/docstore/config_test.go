package docstore_test

import (
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/tribunal/pkg/docstore"
)

func TestFinalizeDefaults(t *testing.T) {
	var cfg docstore.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.URI != "mongodb://localhost:27017" {
		t.Errorf("uri: got %s", cfg.URI)
	}
	if cfg.Database != "tribunal" {
		t.Errorf("database: got %s", cfg.Database)
	}
	if cfg.ConnTimeoutDuration() != 5*time.Second {
		t.Errorf("conn_timeout: got %v", cfg.ConnTimeoutDuration())
	}
}

func TestFinalizeEnvAndValidation(t *testing.T) {
	t.Setenv("TEST_MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("TEST_MONGO_TIMEOUT", "never")

	cfg := docstore.Config{}
	err := cfg.Finalize(&docstore.Env{URI: "TEST_MONGO_URI", ConnTimeout: "TEST_MONGO_TIMEOUT"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "conn_timeout") {
		t.Errorf("error %q does not mention conn_timeout", err)
	}
	if cfg.URI != "mongodb://mongo:27017" {
		t.Errorf("uri: got %s", cfg.URI)
	}
}
