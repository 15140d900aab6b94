package servers

import (
	"github.com/gin-gonic/gin"

	"ploxora/api/v1/middleware"
	"ploxora/api/v1/request"
	"ploxora/internal/httpx"
	"ploxora/internal/lifecycle"
	"ploxora/internal/model"
)

// CreateRequest represents create server request. gb/allocationId/nestbitId
// are the names the panel forms send; ram/port/imageId are accepted too.
type CreateRequest struct {
	Name         string      `json:"name"`
	UserID       string      `json:"userId"`
	NodeID       string      `json:"nodeId"`
	NestBitID    string      `json:"nestbitId"`
	ImageID      string      `json:"imageId"`
	GB           request.Int `json:"gb"`
	RAM          request.Int `json:"ram"`
	Cores        request.Int `json:"cores"`
	AllocationID request.Int `json:"allocationId"`
	Port         request.Int `json:"port"`
}

func (r CreateRequest) toService() lifecycle.CreateRequest {
	out := lifecycle.CreateRequest{
		NodeID:    r.NodeID,
		UserID:    r.UserID,
		NestBitID: r.NestBitID,
		Port:      int(r.AllocationID),
		Name:      r.Name,
		RAM:       int(r.GB),
		Cores:     int(r.Cores),
	}
	if out.NestBitID == "" {
		out.NestBitID = r.ImageID
	}
	if out.Port == 0 {
		out.Port = int(r.Port)
	}
	if out.RAM == 0 {
		out.RAM = int(r.RAM)
	}
	return out
}

// RenameRequest represents edit-name request
type RenameRequest struct {
	Name string `json:"name"`
}

// SubuserRequest represents add/remove subuser request
type SubuserRequest struct {
	Email string `json:"email" binding:"required"`
}

// Handler handles servers API
type Handler struct {
	svc *lifecycle.Service
}

// NewHandler creates a new servers handler
func NewHandler(svc *lifecycle.Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /servers, every server on the panel
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKList(c, items)
}

// Mine handles GET /vps/list, the servers the caller owns or shares
func (h *Handler) Mine(c *gin.Context) {
	items, err := h.svc.ListForUser(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKList(c, items)
}

// Create handles POST /servers/create
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !request.BindJSON(c, &req) {
		return
	}
	server, err := h.svc.CreateServer(c.Request.Context(), middleware.Principal(c), req.toService())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "server created", server)
}

// Delete handles POST /servers/delete/:id, or a body carrying serverId
func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.ID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteServer(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "server deleted", gin.H{"id": id})
}

// Get handles GET /vps/:containerId
func (h *Handler) Get(c *gin.Context) {
	server, err := h.svc.GetByContainer(c.Request.Context(), middleware.Principal(c), c.Param("containerId"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, server)
}

// Network handles GET /vps/:containerId/network
func (h *Handler) Network(c *gin.Context) {
	server, err := h.svc.GetByContainer(c.Request.Context(), middleware.Principal(c), c.Param("containerId"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, gin.H{"allocations": []model.ServerAllocation{server.Allocation}})
}

// Stats handles GET /server/stats/:containerId
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), middleware.Principal(c), c.Param("containerId"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, gin.H{"stats": stats})
}

// Action handles POST /vps/action/:containerId/:action
func (h *Handler) Action(c *gin.Context) {
	containerID, action := c.Param("containerId"), c.Param("action")
	server, err := h.svc.PerformAction(c.Request.Context(), middleware.Principal(c), containerID, action)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "action "+action+" sent", gin.H{
		"containerId": containerID,
		"action":      action,
		"status":      server.Status,
	})
}

// ReSSH handles POST /vps/ressh/:containerId
func (h *Handler) ReSSH(c *gin.Context) {
	server, err := h.svc.RegenerateSSH(c.Request.Context(), middleware.Principal(c), c.Param("containerId"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "ssh regenerated", gin.H{"ssh": server.SSH})
}

// Rename handles POST /vps/:containerId/edit-name
func (h *Handler) Rename(c *gin.Context) {
	var req RenameRequest
	if !request.BindJSON(c, &req) {
		return
	}
	server, err := h.svc.Rename(c.Request.Context(), middleware.Principal(c), c.Param("containerId"), req.Name)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "server renamed", server)
}

// AddSubuser handles POST /vps/:containerId/subusers
func (h *Handler) AddSubuser(c *gin.Context) {
	var req SubuserRequest
	if !request.BindJSON(c, &req) {
		return
	}
	server, err := h.svc.AddSubuser(c.Request.Context(), middleware.Principal(c), c.Param("containerId"), req.Email)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "subuser added", gin.H{"subusers": server.Subusers})
}

// RemoveSubuser handles POST /vps/:containerId/subusers/remove
func (h *Handler) RemoveSubuser(c *gin.Context) {
	var req SubuserRequest
	if !request.BindJSON(c, &req) {
		return
	}
	server, err := h.svc.RemoveSubuser(c.Request.Context(), middleware.Principal(c), c.Param("containerId"), req.Email)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "subuser removed", gin.H{"subusers": server.Subusers})
}
