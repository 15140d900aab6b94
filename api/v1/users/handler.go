package users

import (
	"github.com/gin-gonic/gin"

	"ploxora/api/v1/middleware"
	"ploxora/api/v1/request"
	"ploxora/internal/httpx"
	"ploxora/internal/model"
	"ploxora/internal/users"
)

// CreateRequest represents create user request
type CreateRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Handler handles the user administration API
type Handler struct {
	svc *users.Service
}

// NewHandler creates a new users handler
func NewHandler(svc *users.Service) *Handler {
	return &Handler{svc: svc}
}

func views(list []*model.User) []model.UserView {
	out := make([]model.UserView, 0, len(list))
	for _, u := range list {
		out = append(out, u.View())
	}
	return out
}

// List handles GET /users
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}
	items := views(list)
	httpx.OKList(c, items)
}

// Create handles POST /users/new
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !request.BindJSON(c, &req) {
		return
	}
	user, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), users.CreateRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "user created", user.View())
}

// Ban handles POST /users/ban/:id
func (h *Handler) Ban(c *gin.Context) {
	h.setBanned(c, true)
}

// Unban handles POST /users/unban/:id
func (h *Handler) Unban(c *gin.Context) {
	h.setBanned(c, false)
}

func (h *Handler) setBanned(c *gin.Context, banned bool) {
	id, ok := request.ID(c)
	if !ok {
		return
	}
	user, err := h.svc.SetBanned(c.Request.Context(), middleware.Principal(c), id, banned)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, user.View())
}

// Delete handles POST /users/delete/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.ID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMsg(c, "user deleted", gin.H{"id": id})
}
