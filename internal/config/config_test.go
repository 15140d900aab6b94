package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// Set required environment variable
	os.Setenv("SESSION_SECRET", "test-secret")
	defer os.Unsetenv("SESSION_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.HTTPAddr != ":3000" {
		t.Errorf("Expected HTTPAddr :3000, got %s", cfg.HTTPAddr)
	}

	if cfg.AppName != "Ploxora" {
		t.Errorf("Expected AppName Ploxora, got %s", cfg.AppName)
	}

	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("Expected default driver %s, got %s", DriverSQLite, cfg.Store.Driver)
	}

	if cfg.Store.Namespaces["nodes"] != "nodes" {
		t.Errorf("Expected nodes namespace 'nodes', got %q", cfg.Store.Namespaces["nodes"])
	}

	if cfg.JWT.Secret != "test-secret" {
		t.Errorf("Expected JWT secret to fall back to session secret, got %q", cfg.JWT.Secret)
	}
}

func TestLoad_MissingSessionSecret(t *testing.T) {
	os.Unsetenv("SESSION_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when SESSION_SECRET is missing")
	}
}

func TestLoad_MySQLRequiresDSN(t *testing.T) {
	os.Setenv("SESSION_SECRET", "test-secret")
	os.Setenv("STORE_DRIVER", "mysql")
	defer func() {
		os.Unsetenv("SESSION_SECRET")
		os.Unsetenv("STORE_DRIVER")
	}()

	if _, err := Load(); err == nil {
		t.Error("Expected error when STORE_DRIVER=mysql without MYSQL_DSN")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SESSION_SECRET", "test-secret")
	os.Setenv("APP_PORT", "9090")
	os.Setenv("APP_NAME", "MyPanel")
	os.Setenv("ADMIN_USERS", " Admin@Example.com, ops@example.com ,")
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("REDIS_DB", "5")
	os.Setenv("NODES_DB", "panel_nodes")

	defer func() {
		for _, k := range []string{"SESSION_SECRET", "APP_PORT", "APP_NAME", "ADMIN_USERS", "REDIS_ADDR", "REDIS_DB", "NODES_DB"} {
			os.Unsetenv(k)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("Expected HTTPAddr :9090, got %s", cfg.HTTPAddr)
	}

	if cfg.AppName != "MyPanel" {
		t.Errorf("Expected AppName MyPanel, got %s", cfg.AppName)
	}

	if len(cfg.AdminUsers) != 2 {
		t.Fatalf("Expected 2 admin users, got %v", cfg.AdminUsers)
	}

	if !cfg.IsAdminEmail("ADMIN@example.com") {
		t.Error("Expected admin allowlist match to be case-insensitive")
	}

	if cfg.IsAdminEmail("someone@example.com") {
		t.Error("Unexpected admin match")
	}

	if cfg.Redis.Addr != "redis.example.com:6379" {
		t.Errorf("Expected custom Redis addr, got %s", cfg.Redis.Addr)
	}

	if cfg.Redis.DB != 5 {
		t.Errorf("Expected Redis DB 5, got %d", cfg.Redis.DB)
	}

	if cfg.Store.Namespaces["nodes"] != "panel_nodes" {
		t.Errorf("Expected nodes namespace override, got %q", cfg.Store.Namespaces["nodes"])
	}
}

func TestLoadFromINI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ploxora.ini")
	content := `[app]
name = IniPanel
port = 4000

[session]
secret = ini-secret

[store]
driver = memory

[namespaces]
servers = vps
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write ini: %v", err)
	}

	os.Setenv("APP_PORT", "5000")
	defer os.Unsetenv("APP_PORT")

	cfg, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("LoadFromINI() failed: %v", err)
	}

	if cfg.AppName != "IniPanel" {
		t.Errorf("Expected AppName from INI, got %s", cfg.AppName)
	}
	if cfg.HTTPAddr != ":5000" {
		t.Errorf("Expected env to override INI port, got %s", cfg.HTTPAddr)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("Expected memory driver, got %s", cfg.Store.Driver)
	}
	if cfg.Store.Namespaces["servers"] != "vps" {
		t.Errorf("Expected servers namespace vps, got %s", cfg.Store.Namespaces["servers"])
	}
}
