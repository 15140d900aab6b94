package settings

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ploxora/api/v1/middleware"
	"ploxora/api/v1/request"
	"ploxora/internal/addons"
	"ploxora/internal/audit"
	"ploxora/internal/httpx"
	"ploxora/internal/settings"
)

// LogoField is the multipart field carrying the logo
const LogoField = "Logo"

// UpdateRequest represents update setting request
type UpdateRequest struct {
	Key   string `json:"key" binding:"required"`
	Value any    `json:"value"`
}

// ThemeRequest represents edit theme request
type ThemeRequest struct {
	Name        string `json:"name"`
	Background  string `json:"background"`
	TextColor   string `json:"textColor"`
	ButtonColor string `json:"buttonColor"`
}

// InfoResponse represents the panel info
type InfoResponse struct {
	Name    string        `json:"name"`
	Version string        `json:"version"`
	Addons  []addons.Info `json:"addons"`
}

// Handler handles settings, theme, audit log and panel info API
type Handler struct {
	settings *settings.Service
	themes   *settings.ThemeService
	audit    *audit.Auditor
	addons   *addons.Registry
	version  string
}

// NewHandler creates a new settings handler
func NewHandler(s *settings.Service, themes *settings.ThemeService, auditor *audit.Auditor, registry *addons.Registry, version string) *Handler {
	return &Handler{settings: s, themes: themes, audit: auditor, addons: registry, version: version}
}

// Info handles GET /info
func (h *Handler) Info(c *gin.Context) {
	loaded := []addons.Info{}
	if h.addons != nil {
		loaded = h.addons.Loaded()
	}
	httpx.OK(c, InfoResponse{
		Name:    h.settings.AppName(c.Request.Context()),
		Version: h.version,
		Addons:  loaded,
	})
}

// List handles GET /settings
func (h *Handler) List(c *gin.Context) {
	all, err := h.settings.All(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, all)
}

// Update handles POST /settings/update with {key, value}
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if !request.BindJSON(c, &req) {
		return
	}
	h.set(c, req.Key, req.Value)
}

// UpdatePath handles POST /settings/update/:key/:value
func (h *Handler) UpdatePath(c *gin.Context) {
	h.set(c, c.Param("key"), parseValue(c.Param("value")))
}

func (h *Handler) set(c *gin.Context, key string, value any) {
	if err := h.settings.Set(c.Request.Context(), key, value); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "setting updated", gin.H{key: value})
}

// parseValue keeps path values typed the way the form switches expect
func parseValue(v string) any {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// UploadLogo handles POST /settings/upload-logo (multipart field "Logo")
func (h *Handler) UploadLogo(c *gin.Context) {
	fh, err := c.FormFile(LogoField)
	if err != nil {
		httpx.FailErr(c, httpx.ErrParamMissing("logo file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("unreadable logo file"))
		return
	}
	defer f.Close()

	url, err := h.settings.SaveLogo(c.Request.Context(), f)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "logo uploaded", gin.H{"logo": url})
}

// Themes handles GET /theme
func (h *Handler) Themes(c *gin.Context) {
	list, err := h.themes.List(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, list)
}

// EditTheme handles POST /theme/edit/:id
func (h *Handler) EditTheme(c *gin.Context) {
	var req ThemeRequest
	if !request.BindJSON(c, &req) {
		return
	}
	t, err := h.themes.Edit(c.Request.Context(), middleware.Principal(c), c.Param("id"), settings.ThemeEdit{
		Name:        req.Name,
		Background:  req.Background,
		TextColor:   req.TextColor,
		ButtonColor: req.ButtonColor,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "theme updated", t)
}

// SetTheme handles POST /theme/set/:id
func (h *Handler) SetTheme(c *gin.Context) {
	t, err := h.themes.SetActive(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "theme applied", t)
}

// AuditLogs handles GET /audit-logs?limit=
func (h *Handler) AuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if limit < 0 || limit > 1000 {
		limit = 200
	}
	entries, err := h.audit.List(c.Request.Context(), limit)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKList(c, entries)
}
