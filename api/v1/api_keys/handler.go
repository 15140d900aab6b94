package api_keys

import (
	"github.com/gin-gonic/gin"

	"ploxora/api/v1/middleware"
	"ploxora/internal/httpx"
	"ploxora/internal/users"
)

// Handler manages the caller's client API keys
type Handler struct {
	svc *users.Service
}

// NewHandler creates a new client key handler
func NewHandler(svc *users.Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /client/api/list
func (h *Handler) List(c *gin.Context) {
	keys, err := h.svc.ListClientKeys(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKList(c, keys)
}

// Create handles POST /client/api/create
func (h *Handler) Create(c *gin.Context) {
	key, err := h.svc.CreateClientKey(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "API key created", key)
}

// Delete handles DELETE /client/api/delete/:key
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.DeleteClientKey(c.Request.Context(), middleware.Principal(c).UserID, c.Param("key")); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "API key deleted", nil)
}
