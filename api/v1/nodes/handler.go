package nodes

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"ploxora/api/v1/middleware"
	"ploxora/api/v1/request"
	"ploxora/internal/httpx"
	"ploxora/internal/nodehealth"
	"ploxora/internal/nodes"
)

// CreateRequest represents create node request
type CreateRequest struct {
	Name        string       `json:"name" binding:"required"`
	Address     string       `json:"address" binding:"required"`
	Port        request.Int  `json:"port"`
	RAM         request.Int  `json:"ram"`
	Cores       request.Int  `json:"cores"`
	Protocol    string       `json:"protocol"`
	PortEnabled request.Bool `json:"portEnabled"`
}

// EditRequest represents edit node request. Empty fields are left untouched.
type EditRequest struct {
	Name    string      `json:"name"`
	Address string      `json:"address"`
	Port    request.Int `json:"port"`
	RAM     request.Int `json:"ram"`
	Cores   request.Int `json:"cores"`
}

// AllocationsRequest represents add allocations request
type AllocationsRequest struct {
	PortRange string `json:"portRange" binding:"required"`
	Domain    string `json:"domain"`
	IP        string `json:"ip"`
}

// Checker runs an on-demand health sweep
type Checker interface {
	CheckAll(ctx context.Context) []nodehealth.CheckResult
}

// Handler handles nodes API
type Handler struct {
	svc    *nodes.Service
	health Checker
}

// NewHandler creates a new nodes handler. health may be nil.
func NewHandler(svc *nodes.Service, health Checker) *Handler {
	return &Handler{svc: svc, health: health}
}

// List handles GET /nodes
func (h *Handler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKList(c, items)
}

// Get handles GET /nodes/:id
func (h *Handler) Get(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, detail)
}

// Create handles POST /nodes/create
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !request.BindJSON(c, &req) {
		return
	}
	node, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), nodes.CreateRequest{
		Name:        req.Name,
		Address:     req.Address,
		Port:        int(req.Port),
		RAM:         int(req.RAM),
		Cores:       int(req.Cores),
		Protocol:    req.Protocol,
		PortEnabled: bool(req.PortEnabled),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "node created", node)
}

// Edit handles POST /nodes/edit/:id
func (h *Handler) Edit(c *gin.Context) {
	var req EditRequest
	if !request.BindJSON(c, &req) {
		return
	}
	node, err := h.svc.Edit(c.Request.Context(), middleware.Principal(c), c.Param("id"), nodes.EditRequest{
		Name:    req.Name,
		Address: req.Address,
		Port:    int(req.Port),
		RAM:     int(req.RAM),
		Cores:   int(req.Cores),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "node updated", node)
}

// Delete handles POST /nodes/delete/:id, or a body carrying nodeId
func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.ID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "node deleted", gin.H{"id": id})
}

// DockerUsage handles GET /nodes/:id/docker-usage
func (h *Handler) DockerUsage(c *gin.Context) {
	usage, err := h.svc.DockerUsage(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, usage)
}

// AddAllocations handles POST /nodes/:id/allocations/add
func (h *Handler) AddAllocations(c *gin.Context) {
	var req AllocationsRequest
	if !request.BindJSON(c, &req) {
		return
	}
	ports, err := h.svc.AddAllocations(c.Request.Context(), c.Param("id"), req.PortRange, req.Domain, req.IP)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "allocations added", gin.H{"ports": ports})
}

// RemoveAllocation handles POST /nodes/:id/allocations/delete/:port
func (h *Handler) RemoveAllocation(c *gin.Context) {
	port, err := strconv.Atoi(c.Param("port"))
	if err != nil || port <= 0 {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid port"))
		return
	}
	if err := h.svc.RemoveAllocation(c.Request.Context(), c.Param("id"), port); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "allocation removed", gin.H{"port": port})
}

// Health handles POST /nodes/health, refreshing every node's status now
func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		httpx.FailErr(c, httpx.ErrStateConflict("node health worker is disabled"))
		return
	}
	results := h.health.CheckAll(c.Request.Context())
	if results == nil {
		results = []nodehealth.CheckResult{}
	}
	httpx.OKList(c, results)
}
