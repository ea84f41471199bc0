package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/agrogestion/internal/config"
)

const baseConfig = `
shutdown_timeout = "20s"
version = "0.3.0"

[server]
host = "0.0.0.0"
port = 8080

[reports]
catalog = "postgres"

[database]
host = "localhost"
name = "agrogestion"
user = "agro"
password = "agro"

[storage]
provider = "azure"
container_name = "agrogestion-pdfs"
connection_string = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

[api]
base_path = "/api"
max_payload_size = "32MB"

[api.cors]
enabled = true
origins = ["http://localhost:5173"]

[api.pagination]
default_page_size = 20
max_page_size = 100

[exports]
dir = "exports"
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "db.internal"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	t.Chdir(dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if !cfg.UsesDatabase() || cfg.Database.User != "agro" {
		t.Errorf("database: got %+v", cfg.Database)
	}
	if cfg.UsesKV() {
		t.Error("postgres catalog with azure storage should not need the kv store")
	}
	if cfg.Storage.ContainerName != "agrogestion-pdfs" {
		t.Errorf("storage container: got %s", cfg.Storage.ContainerName)
	}
	if cfg.API.MaxPayloadBytes() != 32*1024*1024 {
		t.Errorf("max payload: got %d", cfg.API.MaxPayloadBytes())
	}
	if cfg.API.BridgePath != "/bridge" {
		t.Errorf("bridge path default: got %s", cfg.API.BridgePath)
	}
	if !cfg.API.CORS.Enabled || len(cfg.API.CORS.Origins) != 1 {
		t.Errorf("cors: got %+v", cfg.API.CORS)
	}
	if cfg.API.Pagination.DefaultPageSize != 20 || cfg.API.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination: got %+v", cfg.API.Pagination)
	}
	if cfg.Exports.Dir != "exports" {
		t.Errorf("exports dir: got %s", cfg.Exports.Dir)
	}
	if cfg.ShutdownTimeoutDuration() != 20*time.Second {
		t.Errorf("shutdown timeout: got %s", cfg.ShutdownTimeoutDuration())
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	t.Chdir(dir)

	t.Setenv("AGRO_ENV", "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Env() != "staging" {
		t.Errorf("env: got %s", cfg.Env())
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("db host: got %s, want db.internal (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.User != "agro" {
		t.Errorf("db user: got %s, want agro (from base)", cfg.Database.User)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	t.Chdir(dir)

	t.Setenv("AGRO_VERSION", "2.0.0")
	t.Setenv("AGRO_SERVER_PORT", "3000")
	t.Setenv("AGRO_API_MAX_PAYLOAD_SIZE", "1MB")
	t.Setenv("AGRO_API_MAX_IN_FLIGHT", "4")
	t.Setenv("AGRO_EXPORTS_DIR", "/srv/exports")
	t.Setenv("AGRO_AUTH_ISSUER", "https://login.example.com/tenant/v2.0")

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
	if cfg.API.MaxPayloadBytes() != 1024*1024 {
		t.Errorf("max payload: got %d", cfg.API.MaxPayloadBytes())
	}
	if cfg.API.MaxInFlight != 4 {
		t.Errorf("max in flight: got %d", cfg.API.MaxInFlight)
	}
	if cfg.Exports.Dir != "/srv/exports" {
		t.Errorf("exports dir: got %s", cfg.Exports.Dir)
	}
	if !cfg.Auth.Enabled() {
		t.Error("auth should be enabled by AGRO_AUTH_ISSUER")
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Env() != "local" {
		t.Errorf("env default: got %s", cfg.Env())
	}
	if cfg.Server.Addr() != "127.0.0.1:8080" {
		t.Errorf("addr default: got %s", cfg.Server.Addr())
	}
	if cfg.Reports.Catalog != "local" || cfg.Storage.Provider != "local" {
		t.Errorf("providers: catalog %s storage %s", cfg.Reports.Catalog, cfg.Storage.Provider)
	}
	if cfg.UsesDatabase() || !cfg.UsesKV() {
		t.Error("defaults should run entirely on the embedded store")
	}
	if cfg.KV.Path != "data/kv" {
		t.Errorf("kv path: got %s", cfg.KV.Path)
	}
	if cfg.API.MaxPayloadBytes() != 64*1024*1024 {
		t.Errorf("max payload default: got %d", cfg.API.MaxPayloadBytes())
	}
	if cfg.API.MaxInFlight != 16 {
		t.Errorf("max in flight default: got %d", cfg.API.MaxInFlight)
	}
	if cfg.Auth.Enabled() {
		t.Error("auth should be disabled by default")
	}
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "agro.toml", "[server]\nport = 7070\n")
	t.Chdir(t.TempDir())

	t.Setenv("AGRO_CONFIG", filepath.Join(dir, "agro.toml"))
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}

	t.Setenv("AGRO_CONFIG", filepath.Join(dir, "missing.toml"))
	if _, err := config.Load(); err == nil {
		t.Error("missing AGRO_CONFIG file should fail")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", `[server`, "parse config"},
		{"catalog", "[reports]\ncatalog = \"sqlite\"\n", "unsupported catalog"},
		{"port", "[server]\nport = 70000\n", "invalid port"},
		{"payload", "[api]\nmax_payload_size = \"lots\"\n", "max_payload_size"},
		{"in flight", "[api]\nmax_in_flight = -4\n", "max_in_flight"},
		{"nested base path", "[api]\nbase_path = \"/api/v1\"\n", "base_path"},
		{"same paths", "[api]\nbase_path = \"/bridge\"\n", "must differ"},
		{"postgres without user", "[reports]\ncatalog = \"postgres\"\n", "user required"},
		{"azure without credentials", "[storage]\nprovider = \"azure\"\n", "connection_string or account_url"},
		{"auth issuer", "[auth]\nissuer = \"login.example.com\"\n", "http(s) url"},
		{"shutdown", "shutdown_timeout = \"soon\"\n", "shutdown_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", tt.content)
			t.Chdir(dir)

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

func TestServerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ServerConfig
	}{
		{"read header timeout", config.ServerConfig{ReadHeaderTimeout: "x"}},
		{"read timeout", config.ServerConfig{ReadTimeout: "x"}},
		{"write timeout", config.ServerConfig{WriteTimeout: "x"}},
		{"negative port", config.ServerConfig{Port: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	valid := config.ServerConfig{}
	if err := valid.Finalize(); err != nil {
		t.Fatal(err)
	}
	if valid.ReadHeaderTimeoutDuration() != 10*time.Second || valid.WriteTimeoutDuration() != 2*time.Minute {
		t.Errorf("defaults: got %+v", valid)
	}
}
