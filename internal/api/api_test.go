package api_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/tribunal/internal/api"
	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/infrastructure"
	"github.com/JaimeStill/tribunal/pkg/module"
)

const testConfig = `
log_level = "error"

[database]
name = "tribunal"
user = "tribunal"

[storage]
connection_string = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

[api.pagination]
default_page_size = 20
max_page_size = 100

[scheduler]
enabled = false
`

// setup builds the full module graph. Every client connects lazily, so no
// backing service is contacted.
func setup(t *testing.T) (*config.Config, *infrastructure.Infrastructure) {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.BaseConfigFile), []byte(testConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New: %v", err)
	}
	return cfg, infra
}

func TestNewRuntime(t *testing.T) {
	cfg, infra := setup(t)
	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.MaxPageSize != 100 {
		t.Errorf("max page size = %d, want 100", runtime.Pagination.MaxPageSize)
	}
	if runtime.Scheduler.IsEnabled() {
		t.Error("scheduler should be disabled")
	}
	if runtime.Logger == infra.Logger {
		t.Error("runtime logger should be module scoped")
	}
	if runtime.Database == nil || runtime.DocStore == nil || runtime.Storage == nil || runtime.Cache == nil {
		t.Error("runtime missing infrastructure systems")
	}
}

func TestNewDomain(t *testing.T) {
	cfg, infra := setup(t)
	d := api.NewDomain(api.NewRuntime(cfg, infra))

	if d.Scheduler == nil || d.Recovery == nil || d.Registry == nil || d.Sessions == nil {
		t.Fatalf("domain incomplete: %+v", d)
	}
}

func TestModuleRoutes(t *testing.T) {
	cfg, infra := setup(t)

	m, _ := api.NewModule(cfg, infra)
	if m.Prefix() != "/api" {
		t.Fatalf("prefix = %s, want /api", m.Prefix())
	}

	router := module.NewRouter()
	router.Mount(m)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"trigger with bad id", "POST", "/api/schedules/nope/trigger", http.StatusBadRequest},
		{"schedule with bad id", "GET", "/api/schedules/nope", http.StatusBadRequest},
		{"capture log with bad id", "GET", "/api/captures/nope", http.StatusBadRequest},
		{"unknown route", "GET", "/api/contracts", http.StatusNotFound},
		{"wrong method", "DELETE", "/api/recovery/abc", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}
