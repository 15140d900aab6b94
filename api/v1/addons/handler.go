package addons

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ploxora/api/v1/middleware"
	"ploxora/internal/addons"
	"ploxora/internal/httpx"
)

// Handler handles the addon administration API
type Handler struct {
	registry *addons.Registry
}

// NewHandler creates a new addons handler
func NewHandler(registry *addons.Registry) *Handler {
	return &Handler{registry: registry}
}

// List handles GET /addons
func (h *Handler) List(c *gin.Context) {
	items := h.registry.All()
	httpx.OKList(c, items)
}

// Enable handles POST /addon/:name/enable
func (h *Handler) Enable(c *gin.Context) {
	info, err := h.registry.Enable(c.Param("name"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	logAction(c, info, "enabled")
	httpx.OKMsg(c, "addon enabled", info)
}

// Disable handles POST /addon/:name/disable
func (h *Handler) Disable(c *gin.Context) {
	info, err := h.registry.Disable(c.Param("name"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	logAction(c, info, "disabled")
	httpx.OKMsg(c, "addon disabled", info)
}

func logAction(c *gin.Context, info addons.Info, action string) {
	logrus.WithFields(logrus.Fields{
		"addon": info.Folder,
		"admin": middleware.Principal(c).Name(),
	}).Infof("Addon %s %s", info.Name, action)
}
