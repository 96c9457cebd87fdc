package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/tribunal/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080

[database]
host = "localhost"
name = "tribunal"
user = "tribunal"
password = "tribunal"

[docstore]
uri = "mongodb://localhost:27017"
database = "tribunal"

[storage]
container_name = "captures"
connection_string = "DefaultEndpointsProtocol=http;AccountName=devstore;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/devstore;"

[cache]
enabled = true
addr = "localhost:6379"

[api.pagination]
default_page_size = 25
max_page_size = 50

[scheduler]
workers = 6
tick_interval = "30s"

[browser.selectors]
username = "input[name=login]"

[guard]
rate_per_second = 1.5
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[scheduler]
enabled = false
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"server port", cfg.Server.Port, 8080},
		{"db host", cfg.Database.Host, "localhost"},
		{"docstore database", cfg.DocStore.Database, "tribunal"},
		{"storage container", cfg.Storage.ContainerName, "captures"},
		{"cache enabled", cfg.Cache.Enabled, true},
		{"api base path", cfg.API.BasePath, "/api"},
		{"api metrics path", cfg.API.MetricsPath, "/metrics"},
		{"pagination default", cfg.API.Pagination.DefaultPageSize, 25},
		{"retry attempts", cfg.Retry.MaxAttempts, 3},
		{"scheduler workers", cfg.Scheduler.Workers, 6},
		{"scheduler tick", cfg.Scheduler.TickIntervalDuration(), 30 * time.Second},
		{"scheduler enabled", cfg.Scheduler.IsEnabled(), true},
		{"browser username selector", cfg.Browser.Selectors.Username, "input[name=login]"},
		{"browser password selector", cfg.Browser.Selectors.Password, "#password"},
		{"guard rate", cfg.Guard.RatePerSecond, 1.5},
		{"guard burst", cfg.Guard.Burst, 4},
		{"log level", cfg.LogLevel, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)

	t.Setenv(config.EnvTribunalEnv, "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port: got %d, want 5432", cfg.Database.Port)
	}
	if cfg.Scheduler.IsEnabled() {
		t.Error("scheduler should be disabled by overlay")
	}
	if cfg.Scheduler.Workers != 6 {
		t.Errorf("scheduler workers: got %d, want 6 (from base)", cfg.Scheduler.Workers)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, baseConfig)
	chdir(t, dir)

	t.Setenv("TRIBUNAL_VERSION", "2.0.0")
	t.Setenv("TRIBUNAL_SERVER_PORT", "3000")
	t.Setenv("TRIBUNAL_SCHEDULER_WORKERS", "2")
	t.Setenv("TRIBUNAL_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("TRIBUNAL_MONGO_URI", "mongodb://mongo:27017")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d", cfg.Server.Port)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Errorf("scheduler workers: got %d", cfg.Scheduler.Workers)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("retry attempts: got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.DocStore.URI != "mongodb://mongo:27017" {
		t.Errorf("docstore uri: got %s", cfg.DocStore.URI)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("TRIBUNAL_DB_NAME", "testdb")
	t.Setenv("TRIBUNAL_DB_USER", "testuser")
	t.Setenv("TRIBUNAL_STORAGE_CONNECTION_STRING", "conn")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d", cfg.Server.Port)
	}
	if cfg.Env() != "local" {
		t.Errorf("env: got %s, want local", cfg.Env())
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("shutdown timeout: got %v", cfg.ShutdownTimeoutDuration())
	}
	if cfg.Cache.Enabled {
		t.Error("cache should default to disabled")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "invalid toml",
			content: `server = {`,
			wantErr: "parse config",
		},
		{
			name:    "bad log level",
			content: baseConfig,
			env:     map[string]string{"TRIBUNAL_LOG_LEVEL": "verbose"},
			wantErr: "log_level",
		},
		{
			name:    "bad guard ratio",
			content: baseConfig + "\nfailure_ratio = 1.5\n",
			wantErr: "failure_ratio",
		},
		{
			name:    "bad scheduler tick",
			content: baseConfig,
			env:     map[string]string{"TRIBUNAL_SCHEDULER_TICK_INTERVAL": "often"},
			wantErr: "tick_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, config.BaseConfigFile, tt.content)
			chdir(t, dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
