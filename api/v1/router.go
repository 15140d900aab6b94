package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ploxora/api/v1/addons"
	"ploxora/api/v1/api_keys"
	"ploxora/api/v1/auth"
	"ploxora/api/v1/middleware"
	"ploxora/api/v1/nestbits"
	"ploxora/api/v1/nodes"
	"ploxora/api/v1/servers"
	"ploxora/api/v1/settings"
	"ploxora/api/v1/users"
	internaladdons "ploxora/internal/addons"
	internalauth "ploxora/internal/auth"
	"ploxora/internal/httpx"
	internalusers "ploxora/internal/users"
)

// Deps are the handlers and guards the router mounts
type Deps struct {
	APIKey     string
	UploadsDir string
	Cookies    *internalauth.CookieStore
	Users      *internalusers.Service
	Addons     *internaladdons.Registry
	// Realtime serves the Socket.IO endpoint, nil disables it
	Realtime http.Handler

	Auth     *auth.Handler
	Nodes    *nodes.Handler
	Servers  *servers.Handler
	Accounts *users.Handler
	Keys     *api_keys.Handler
	NestBits *nestbits.Handler
	Settings *settings.Handler
	Plugins  *addons.Handler
}

// SetupRouter mounts one handler set on every guarded surface: the static-key
// APIs (/api/v1, /api/v2), the admin panel, the signed-in user routes and the
// client API.
func SetupRouter(r *gin.Engine, d *Deps) {
	r.Use(middleware.PoweredBy("Ploxora"))

	r.GET("/ping", pingHandler)
	if d.UploadsDir != "" {
		r.Static("/uploads", d.UploadsDir)
	}
	if d.Realtime != nil {
		r.GET("/socket.io/*any", gin.WrapH(d.Realtime))
		r.POST("/socket.io/*any", gin.WrapH(d.Realtime))
	}

	// Public routes
	r.POST("/login", d.Auth.Login)
	r.GET("/register", d.Auth.RegisterStatus)
	r.POST("/register", d.Auth.Register)
	r.GET("/logout", d.Auth.Logout)

	apiKey := middleware.APIKeyRequired(d.APIKey)

	v1 := r.Group("/api/v1", apiKey)
	{
		v1.GET("/list/nodes", d.Nodes.List)
		v1.GET("/list/servers", d.Servers.List)
		v1.GET("/list/users", d.Accounts.List)
		v1.POST("/nodes/new", d.Nodes.Create)
		v1.POST("/nodes/delete", d.Nodes.Delete)
		v1.POST("/servers/deploy", d.Servers.Create)
		v1.POST("/servers/delete", d.Servers.Delete)
		v1.POST("/users/new", d.Accounts.Create)
		v1.POST("/users/ban", d.Accounts.Ban)
		v1.POST("/users/unban", d.Accounts.Unban)
		v1.POST("/users/delete", d.Accounts.Delete)
	}

	v2 := r.Group("/api/v2", apiKey)
	{
		v2.GET("/info", d.Settings.Info)

		v2.GET("/settings", d.Settings.List)
		v2.POST("/settings/update", d.Settings.Update)
		v2.POST("/settings/upload-logo", d.Settings.UploadLogo)

		v2.GET("/nodes", d.Nodes.List)
		v2.GET("/nodes/:id", d.Nodes.Get)
		v2.POST("/nodes/create", d.Nodes.Create)
		v2.POST("/nodes/edit/:id", d.Nodes.Edit)
		v2.POST("/nodes/delete/:id", d.Nodes.Delete)
		v2.GET("/nodes/:id/docker-usage", d.Nodes.DockerUsage)
		v2.POST("/nodes/:id/allocations/add", d.Nodes.AddAllocations)
		v2.POST("/nodes/:id/allocations/delete/:port", d.Nodes.RemoveAllocation)

		v2.GET("/users", d.Accounts.List)
		v2.POST("/users/new", d.Accounts.Create)
		v2.POST("/users/ban/:id", d.Accounts.Ban)
		v2.POST("/users/unban/:id", d.Accounts.Unban)
		v2.POST("/users/delete/:id", d.Accounts.Delete)

		v2.GET("/servers", d.Servers.List)
		v2.POST("/servers/create", d.Servers.Create)
		v2.POST("/servers/delete/:id", d.Servers.Delete)
		v2.POST("/server/action/:containerId/:action", d.Servers.Action)
		v2.GET("/server/:containerId", d.Servers.Get)
		v2.GET("/server/:containerId/stats", d.Servers.Stats)
		v2.POST("/server/:containerId/ressh", d.Servers.ReSSH)

		v2.GET("/nestbits", d.NestBits.List)
		v2.POST("/nestbits/new", d.NestBits.Create)
		v2.POST("/nestbits/delete/:id", d.NestBits.Delete)
	}

	session := middleware.SessionRequired(d.Cookies, d.Users)

	admin := r.Group("/admin", session, middleware.AdminRequired())
	{
		admin.GET("/overview", d.Settings.Info)

		admin.GET("/nodes", d.Nodes.List)
		admin.POST("/nodes/create", d.Nodes.Create)
		admin.POST("/nodes/edit/:id", d.Nodes.Edit)
		admin.POST("/nodes/delete/:id", d.Nodes.Delete)
		admin.POST("/nodes/health", d.Nodes.Health)
		admin.POST("/nodes/:id/allocations/add", d.Nodes.AddAllocations)
		admin.POST("/nodes/:id/allocations/delete/:port", d.Nodes.RemoveAllocation)
		admin.GET("/node/:id", d.Nodes.Get)
		admin.GET("/node/:id/docker-usage", d.Nodes.DockerUsage)

		admin.GET("/servers", d.Servers.List)
		admin.POST("/servers/create", d.Servers.Create)
		admin.POST("/servers/delete/:id", d.Servers.Delete)

		admin.GET("/users", d.Accounts.List)
		admin.POST("/users/new", d.Accounts.Create)
		admin.POST("/users/ban/:id", d.Accounts.Ban)
		admin.POST("/users/unban/:id", d.Accounts.Unban)
		admin.POST("/users/delete/:id", d.Accounts.Delete)

		admin.GET("/audit-logs", d.Settings.AuditLogs)

		admin.GET("/nestbits", d.NestBits.List)
		admin.POST("/nestbits/new", d.NestBits.Create)
		admin.POST("/nestbits/delete", d.NestBits.Delete)
		admin.GET("/nestbits/export/:id", d.NestBits.Export)
		admin.POST("/nestbits/import", d.NestBits.Import)

		admin.GET("/theme", d.Settings.Themes)
		admin.POST("/theme/edit/:id", d.Settings.EditTheme)
		admin.POST("/theme/set/:id", d.Settings.SetTheme)

		admin.GET("/settings", d.Settings.List)
		admin.POST("/settings/update/:key/:value", d.Settings.UpdatePath)
		admin.POST("/settings/update", d.Settings.Update)
		admin.POST("/settings/upload-logo", d.Settings.UploadLogo)

		admin.GET("/addons", d.Plugins.List)
		admin.POST("/addon/:name/enable", d.Plugins.Enable)
		admin.POST("/addon/:name/disable", d.Plugins.Disable)
	}

	user := r.Group("", session)
	{
		user.GET("/me", d.Auth.Me)
		user.GET("/realtime/token", d.Auth.RealtimeToken)
		user.POST("/settings/delete-account", d.Auth.DeleteAccount)

		user.GET("/client/api/list", d.Keys.List)
		user.POST("/client/api/create", d.Keys.Create)
		user.DELETE("/client/api/delete/:key", d.Keys.Delete)

		mountServerRoutes(user, d.Servers)
		user.POST("/vps/:containerId/subusers", d.Servers.AddSubuser)
		user.POST("/vps/:containerId/subusers/remove", d.Servers.RemoveSubuser)
	}

	client := r.Group("/clientapi", middleware.ClientKeyRequired(d.Users))
	mountServerRoutes(client, d.Servers)

	if d.Addons != nil {
		d.Addons.Mount(r, session)
	}
}

// mountServerRoutes registers the routes shared by the panel user and the client API
func mountServerRoutes(g gin.IRouter, h *servers.Handler) {
	g.GET("/vps/list", h.Mine)
	g.GET("/server/stats/:containerId", h.Stats)
	g.POST("/vps/action/:containerId/:action", h.Action)
	g.POST("/vps/ressh/:containerId", h.ReSSH)
	g.GET("/vps/:containerId", h.Get)
	g.GET("/vps/:containerId/network", h.Network)
	g.POST("/vps/:containerId/edit-name", h.Rename)
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}
