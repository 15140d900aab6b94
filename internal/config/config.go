package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Store drivers
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config holds all configuration
type Config struct {
	AppName          string
	HTTPAddr         string
	APIKey           string
	AdminUsers       []string
	RegisterEnabled  bool
	Migrate          bool
	AddonsDir        string
	UploadsDir       string
	Session          SessionConfig
	JWT              JWTConfig
	Store            StoreConfig
	MySQL            MySQLConfig
	Redis            RedisConfig
	Discord          DiscordConfig
	NodeHealthWorker NodeHealthWorkerConfig
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	Secret   string
	TTLHours int
}

// JWTConfig holds configuration for the realtime handshake token
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Issuer        string
}

// StoreConfig selects the key-value backend and the per-namespace names
type StoreConfig struct {
	Driver     string
	SQLitePath string
	LockDriver string
	// Namespaces maps an entity namespace (nodes, servers, ...) to the
	// table/key-prefix it is stored under.
	Namespaces map[string]string
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	DSN string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DiscordConfig holds Discord OAuth credentials. They are carried for
// deployments that front the panel with an OAuth proxy.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// NodeHealthWorkerConfig holds node health worker configuration
type NodeHealthWorkerConfig struct {
	Enabled     bool
	IntervalSec int
	TimeoutSec  int
	Concurrency int
}

// namespaceEnv lists the namespace names and the environment keys that override them.
var namespaceEnv = map[string]string{
	"nodes":    "NODES_DB",
	"servers":  "SERVERS_DB",
	"users":    "USERS_DB",
	"sessions": "SESSIONS_DB",
	"settings": "SETTINGS_DB",
	"nestbits": "NESTBITS_DB",
	"theme":    "THEME_DB",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppName:         getEnv("APP_NAME", "Ploxora"),
		HTTPAddr:        ":" + getEnv("APP_PORT", "3000"),
		APIKey:          os.Getenv("API_KEY"),
		AdminUsers:      ParseAdminUsers(os.Getenv("ADMIN_USERS")),
		RegisterEnabled: getEnvBool("REGISTER_ENABLED", false),
		Migrate:         getEnvBool("MIGRATE", true),
		AddonsDir:       getEnv("ADDONS_DIR", "addons"),
		UploadsDir:      getEnv("UPLOADS_DIR", "public/uploads"),
		Session: SessionConfig{
			Secret:   os.Getenv("SESSION_SECRET"),
			TTLHours: getEnvInt("SESSION_TTL_HOURS", 24),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			ExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 60),
			Issuer:        getEnv("JWT_ISSUER", "ploxora"),
		},
		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", DriverSQLite),
			SQLitePath: getEnv("SQLITE_PATH", "ploxora.sqlite"),
			LockDriver: getEnv("LOCK_DRIVER", DriverMemory),
			Namespaces: make(map[string]string, len(namespaceEnv)),
		},
		MySQL: MySQLConfig{
			DSN: getEnv("MYSQL_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Discord: DiscordConfig{
			ClientID:     os.Getenv("DISCORD_CLIENT_ID"),
			ClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
			CallbackURL:  getEnv("DISCORD_CALLBACK_URL", "/auth/discord/callback"),
		},
		NodeHealthWorker: NodeHealthWorkerConfig{
			Enabled:     getEnvBool("NODE_HEALTH_WORKER_ENABLED", true),
			IntervalSec: getEnvInt("NODE_HEALTH_WORKER_INTERVAL_SEC", 30),
			TimeoutSec:  getEnvInt("NODE_HEALTH_WORKER_TIMEOUT_SEC", 3),
			Concurrency: getEnvInt("NODE_HEALTH_WORKER_CONCURRENCY", 4),
		},
	}
	for ns, key := range namespaceEnv {
		cfg.Store.Namespaces[ns] = getEnv(key, ns)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromINI loads configuration from INI file with environment variable override
func LoadFromINI(iniPath string) (*Config, error) {
	// Load INI file
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	// Helper function: get value with priority: ENV > INI > default
	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueBool := func(envKey, iniSection, iniKey string, defaultValue bool) bool {
		if value := os.Getenv(envKey); value != "" {
			return value == "1" || value == "true"
		}
		if value, err := cfgFile.Section(iniSection).Key(iniKey).Bool(); err == nil {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		AppName:         getValue("APP_NAME", "app", "name", "Ploxora"),
		HTTPAddr:        ":" + getValue("APP_PORT", "app", "port", "3000"),
		APIKey:          getValue("API_KEY", "api", "key", ""),
		AdminUsers:      ParseAdminUsers(getValue("ADMIN_USERS", "app", "admin_users", "")),
		RegisterEnabled: getValueBool("REGISTER_ENABLED", "app", "register_enabled", false),
		Migrate:         getValueBool("MIGRATE", "app", "migrate", true),
		AddonsDir:       getValue("ADDONS_DIR", "addons", "dir", "addons"),
		UploadsDir:      getValue("UPLOADS_DIR", "app", "uploads_dir", "public/uploads"),
		Session: SessionConfig{
			Secret:   getValue("SESSION_SECRET", "session", "secret", ""),
			TTLHours: getValueInt("SESSION_TTL_HOURS", "session", "ttl_hours", 24),
		},
		JWT: JWTConfig{
			Secret:        getValue("JWT_SECRET", "jwt", "secret", ""),
			ExpireMinutes: getValueInt("JWT_EXPIRE_MINUTES", "jwt", "expire_minutes", 60),
			Issuer:        getValue("JWT_ISSUER", "jwt", "issuer", "ploxora"),
		},
		Store: StoreConfig{
			Driver:     getValue("STORE_DRIVER", "store", "driver", DriverSQLite),
			SQLitePath: getValue("SQLITE_PATH", "store", "sqlite_path", "ploxora.sqlite"),
			LockDriver: getValue("LOCK_DRIVER", "store", "lock_driver", DriverMemory),
			Namespaces: make(map[string]string, len(namespaceEnv)),
		},
		MySQL: MySQLConfig{
			DSN: getValue("MYSQL_DSN", "mysql", "dsn", ""),
		},
		Redis: RedisConfig{
			Addr:     getValue("REDIS_ADDR", "redis", "addr", "localhost:6379"),
			Password: getValue("REDIS_PASS", "redis", "pass", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		Discord: DiscordConfig{
			ClientID:     getValue("DISCORD_CLIENT_ID", "discord", "client_id", ""),
			ClientSecret: getValue("DISCORD_CLIENT_SECRET", "discord", "client_secret", ""),
			CallbackURL:  getValue("DISCORD_CALLBACK_URL", "discord", "callback_url", "/auth/discord/callback"),
		},
		NodeHealthWorker: NodeHealthWorkerConfig{
			Enabled:     getValueBool("NODE_HEALTH_WORKER_ENABLED", "nodeHealthWorker", "enabled", true),
			IntervalSec: getValueInt("NODE_HEALTH_WORKER_INTERVAL_SEC", "nodeHealthWorker", "intervalSec", 30),
			TimeoutSec:  getValueInt("NODE_HEALTH_WORKER_TIMEOUT_SEC", "nodeHealthWorker", "timeoutSec", 3),
			Concurrency: getValueInt("NODE_HEALTH_WORKER_CONCURRENCY", "nodeHealthWorker", "concurrency", 4),
		},
	}
	for ns, key := range namespaceEnv {
		cfg.Store.Namespaces[ns] = getValue(key, "namespaces", ns, ns)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	switch c.Store.Driver {
	case DriverMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("MYSQL_DSN is required when STORE_DRIVER=mysql")
		}
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		// Realtime tokens fall back to the session secret.
		c.JWT.Secret = c.Session.Secret
	}
	return nil
}

// IsAdminEmail reports whether email is on the ADMIN_USERS allowlist
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminUsers {
		if admin == email {
			return true
		}
	}
	return false
}

// ParseAdminUsers splits a comma separated email list, trimming and lower-casing entries
func ParseAdminUsers(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "1" || value == "true"
	}
	return defaultValue
}
