package nestbits

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ploxora/api/v1/middleware"
	"ploxora/api/v1/request"
	"ploxora/internal/httpx"
	"ploxora/internal/nestbits"
)

// CreateRequest represents create nestbit request
type CreateRequest struct {
	DockerImage string `json:"dockerimage"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// ImportRequest represents import request. An empty URL uses the public catalogue.
type ImportRequest struct {
	URL string `json:"url"`
}

// Handler handles nestbits API
type Handler struct {
	svc *nestbits.Service
}

// NewHandler creates a new nestbits handler
func NewHandler(svc *nestbits.Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /nestbits
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKList(c, items)
}

// Create handles POST /nestbits/new
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !request.BindJSON(c, &req) {
		return
	}
	nb, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), nestbits.CreateRequest{
		DockerImage: req.DockerImage,
		Name:        req.Name,
		Version:     req.Version,
		Author:      req.Author,
		Description: req.Description,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "nestbit created", nb)
}

// Delete handles POST /nestbits/delete with {id}, or /nestbits/delete/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.ID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "nestbit deleted", gin.H{"id": id})
}

// Export handles GET /nestbits/export/:id as a JSON attachment
func (h *Handler) Export(c *gin.Context) {
	body, filename, err := h.svc.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", body)
}

// Import handles POST /nestbits/import
func (h *Handler) Import(c *gin.Context) {
	var req ImportRequest
	if c.Request.ContentLength > 0 && !request.BindJSON(c, &req) {
		return
	}
	added, err := h.svc.Import(c.Request.Context(), req.URL)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, fmt.Sprintf("imported %d nestbits", len(added)), gin.H{"items": added, "total": len(added)})
}
