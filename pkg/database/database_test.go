package database_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/tribunal/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{Name: "tribunal", User: "capture"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 25},
		{"max_idle_conns", cfg.MaxIdleConns, 5},
		{"conn_timeout", cfg.ConnTimeout, "5s"},
		{"app_name", cfg.AppName, "tribunal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "pg")
	t.Setenv("TEST_DB_PORT", "5433")
	t.Setenv("TEST_DB_NAME", "envdb")
	t.Setenv("TEST_DB_USER", "envuser")
	t.Setenv("TEST_DB_APP", "tribunal-worker")

	cfg := database.Config{}
	err := cfg.Finalize(&database.Env{
		Host:    "TEST_DB_HOST",
		Port:    "TEST_DB_PORT",
		Name:    "TEST_DB_NAME",
		User:    "TEST_DB_USER",
		AppName: "TEST_DB_APP",
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Host != "pg" || cfg.Port != 5433 || cfg.Name != "envdb" || cfg.User != "envuser" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.AppName != "tribunal-worker" {
		t.Errorf("app_name: got %s", cfg.AppName)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"missing name", database.Config{User: "u"}, "name required"},
		{"missing user", database.Config{Name: "n"}, "user required"},
		{"bad timeout", database.Config{Name: "n", User: "u", ConnTimeout: "soon"}, "invalid conn_timeout"},
		{"idle exceeds open", database.Config{Name: "n", User: "u", MaxOpenConns: 2, MaxIdleConns: 4}, "exceeds max_open_conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDsn(t *testing.T) {
	cfg := database.Config{Name: "tribunal", User: "capture", Password: "secret", ConnTimeout: "7s"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	dsn := cfg.Dsn()
	for _, want := range []string{
		"host=localhost", "port=5432", "dbname=tribunal", "user=capture",
		"password=secret", "application_name=tribunal", "connect_timeout=7",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Host: "localhost", Port: 5432, Name: "a"}
	base.Merge(&database.Config{Host: "db", Name: "b"})

	if base.Host != "db" || base.Name != "b" || base.Port != 5432 {
		t.Errorf("merge result: %+v", base)
	}
}
