// Package app wires configuration, storage and services into a running panel.
package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	v1 "ploxora/api/v1"
	apiaddons "ploxora/api/v1/addons"
	"ploxora/api/v1/api_keys"
	apiauth "ploxora/api/v1/auth"
	apinestbits "ploxora/api/v1/nestbits"
	apinodes "ploxora/api/v1/nodes"
	"ploxora/api/v1/servers"
	apisettings "ploxora/api/v1/settings"
	apiusers "ploxora/api/v1/users"
	"ploxora/internal/addons"
	"ploxora/internal/addons/example"
	"ploxora/internal/agentclient"
	"ploxora/internal/allocation"
	"ploxora/internal/audit"
	"ploxora/internal/auth"
	"ploxora/internal/cache"
	"ploxora/internal/config"
	"ploxora/internal/db"
	"ploxora/internal/kv"
	"ploxora/internal/lifecycle"
	"ploxora/internal/nestbits"
	"ploxora/internal/nodehealth"
	"ploxora/internal/nodes"
	"ploxora/internal/settings"
	"ploxora/internal/store"
	"ploxora/internal/users"
	"ploxora/internal/ws"
)

// Version is the panel version reported by /api/v2/info
const Version = "1.0.0"

const (
	auditNamespace = "audit_logs"
	nodeLockTTL    = 2 * time.Minute
)

// App holds every long-lived component of the panel
type App struct {
	Config *config.Config
	Logger *logrus.Entry

	DB    *gorm.DB
	Redis *redis.Client

	Stores   *store.Stores
	Auditor  *audit.Auditor
	Hub      *ws.Hub
	Cookies  *auth.CookieStore
	Tokens   *auth.RealtimeTokens
	Users    *users.Service
	Nodes    *nodes.Service
	Servers  *lifecycle.Service
	NestBits *nestbits.Service
	Settings *settings.Service
	Themes   *settings.ThemeService
	Addons   *addons.Registry
	Health   *nodehealth.Worker
}

// New opens the configured backends and builds the services
func New(cfg *config.Config, logger *logrus.Entry) (*App, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	a := &App{Config: cfg, Logger: logger}

	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	a.DB = gdb
	if gdb != nil && cfg.Migrate {
		if err := db.Migrate(gdb); err != nil {
			a.Close()
			return nil, err
		}
	}

	rdb, err := cache.InitRedis(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Redis = rdb

	var open kv.Opener
	var auditStore audit.Store
	switch cfg.Store.Driver {
	case config.DriverMySQL, config.DriverSQLite:
		open = kv.NewGormOpener(gdb)
		auditStore = audit.NewGormStore(gdb)
	case config.DriverRedis:
		open = kv.NewRedisOpener(rdb)
		auditStore = audit.NewKVStore(open(auditNamespace))
	default:
		open = kv.NewMemoryOpener()
		auditStore = audit.NewKVStore(open(auditNamespace))
	}
	a.Stores = store.New(open, cfg.Store.Namespaces)

	var locker allocation.Locker = allocation.NewMemoryLocker()
	if cfg.Store.LockDriver == config.DriverRedis {
		locker = allocation.NewRedisLocker(rdb, nodeLockTTL, logger)
	}

	sessionTTL := time.Duration(cfg.Session.TTLHours) * time.Hour
	var sessions auth.SessionRegistry = auth.NewKVSessions(a.Stores.Sessions, sessionTTL)
	if cfg.Store.Driver == config.DriverRedis {
		sessions = auth.NewRedisSessions(rdb, sessionTTL)
	}
	a.Cookies = auth.NewCookieStore(cfg.Session.Secret, sessionTTL, false)
	a.Tokens = auth.NewRealtimeTokens(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)

	a.Settings = settings.NewService(a.Stores.Settings, cfg.AppName, cfg.UploadsDir, logger)
	a.Hub = ws.NewHub(auditStore, a.Tokens, logger)
	a.Auditor = audit.NewAuditor(auditStore, a.Hub, audit.NewDiscordNotifier(a.Settings, logger), logger)
	a.Themes = settings.NewThemeService(a.Stores.Themes, a.Settings, a.Auditor)

	agent := agentclient.NewClient(agentclient.Options{
		ProbeTimeout: time.Duration(cfg.NodeHealthWorker.TimeoutSec) * time.Second,
		Logger:       logger,
	})
	a.Servers = lifecycle.NewService(a.Stores, agent, locker, a.Auditor, logger)
	a.Nodes = nodes.NewService(a.Stores, agent, a.Servers, locker, nodes.NewIPAPILocator(logger), a.Auditor, logger)
	a.Users = users.NewService(a.Stores, sessions, a.Auditor, users.Options{
		AdminUsers:      cfg.AdminUsers,
		RegisterEnabled: cfg.RegisterEnabled,
		Logger:          logger,
	})
	a.NestBits = nestbits.NewService(a.Stores, a.Auditor, logger)

	a.Addons = addons.NewRegistry(cfg.AddonsDir, logger)
	a.Addons.Register(example.Folder, example.New(cfg.AppName, logger))

	if cfg.NodeHealthWorker.Enabled {
		a.Health = nodehealth.NewWorker(&nodehealth.Config{
			Nodes:       a.Nodes,
			Logger:      logger,
			IntervalSec: cfg.NodeHealthWorker.IntervalSec,
			Concurrency: cfg.NodeHealthWorker.Concurrency,
		})
	}
	return a, nil
}

// Router builds the HTTP handler with every surface mounted
func (a *App) Router() *gin.Engine {
	r := gin.Default()

	var health apinodes.Checker
	if a.Health != nil {
		health = a.Health
	}
	v1.SetupRouter(r, &v1.Deps{
		APIKey:     a.Config.APIKey,
		UploadsDir: a.Config.UploadsDir,
		Cookies:    a.Cookies,
		Users:      a.Users,
		Addons:     a.Addons,
		Realtime:   a.Hub.Handler(),
		Auth:       apiauth.NewHandler(a.Users, a.Cookies, a.Tokens),
		Nodes:      apinodes.NewHandler(a.Nodes, health),
		Servers:    servers.NewHandler(a.Servers),
		Accounts:   apiusers.NewHandler(a.Users),
		Keys:       api_keys.NewHandler(a.Users),
		NestBits:   apinestbits.NewHandler(a.NestBits),
		Settings:   apisettings.NewHandler(a.Settings, a.Themes, a.Auditor, a.Addons, Version),
		Plugins:    apiaddons.NewHandler(a.Addons),
	})
	return r
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if err := db.Close(a.DB); err != nil {
		a.Logger.WithError(err).Warn("Failed to close database")
	}
	if err := cache.Close(a.Redis); err != nil {
		a.Logger.WithError(err).Warn("Failed to close Redis")
	}
}

// Describe summarises the selected backends for the startup log
func (a *App) Describe() string {
	return fmt.Sprintf("store=%s lock=%s", a.Config.Store.Driver, a.Config.Store.LockDriver)
}
