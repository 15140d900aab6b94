package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ploxora/api/v1/middleware"
	"ploxora/api/v1/request"
	"ploxora/internal/auth"
	"ploxora/internal/httpx"
	"ploxora/internal/model"
	"ploxora/internal/users"
)

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents register request body
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the realtime token response
type TokenResponse struct {
	Token    string `json:"token"`
	ExpireAt string `json:"expireAt"`
}

// Handler handles sign-in, sign-up and the caller's own account
type Handler struct {
	users   *users.Service
	cookies *auth.CookieStore
	tokens  *auth.RealtimeTokens
}

// NewHandler creates a new auth handler
func NewHandler(svc *users.Service, cookies *auth.CookieStore, tokens *auth.RealtimeTokens) *Handler {
	return &Handler{users: svc, cookies: cookies, tokens: tokens}
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !request.BindJSON(c, &req) {
		return
	}
	user, token, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	h.startSession(c, user, token)
}

// Register handles POST /register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !request.BindJSON(c, &req) {
		return
	}
	user, token, err := h.users.Register(c.Request.Context(), users.CreateRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	h.startSession(c, user, token)
}

// RegisterStatus handles GET /register
func (h *Handler) RegisterStatus(c *gin.Context) {
	httpx.OK(c, gin.H{"enabled": h.users.RegisterEnabled()})
}

func (h *Handler) startSession(c *gin.Context, user *model.User, token string) {
	if err := h.cookies.SetToken(c.Writer, c.Request, token); err != nil {
		httpx.FailErr(c, httpx.ErrInternalError("failed to write session cookie", err))
		return
	}
	httpx.OK(c, user.View())
}

// Logout handles GET /logout. It succeeds even without a session.
func (h *Handler) Logout(c *gin.Context) {
	if token, ok := h.cookies.Token(c.Request); ok {
		if err := h.users.Logout(c.Request.Context(), token); err != nil {
			logrus.WithError(err).Warn("Failed to revoke session")
		}
	}
	if err := h.cookies.Clear(c.Writer, c.Request); err != nil {
		logrus.WithError(err).Warn("Failed to clear session cookie")
	}
	httpx.OKMsg(c, "logged out", nil)
}

// Me handles GET /me
func (h *Handler) Me(c *gin.Context) {
	user := middleware.User(c)
	if user == nil {
		httpx.FailErr(c, httpx.ErrUnauthorized("LOGIN-IN-FIRST"))
		return
	}
	httpx.OK(c, user.View())
}

// DeleteAccount handles POST /settings/delete-account
func (h *Handler) DeleteAccount(c *gin.Context) {
	p := middleware.Principal(c)
	if err := h.users.DeleteAccount(c.Request.Context(), p.UserID, middleware.SessionToken(c)); err != nil {
		httpx.Error(c, err)
		return
	}
	if err := h.cookies.Clear(c.Writer, c.Request); err != nil {
		logrus.WithError(err).Warn("Failed to clear session cookie")
	}
	httpx.OKMsg(c, "account deleted", nil)
}

// RealtimeToken handles GET /realtime/token, issuing the Socket.IO handshake token
func (h *Handler) RealtimeToken(c *gin.Context) {
	token, expireAt, err := h.tokens.Issue(middleware.Principal(c))
	if err != nil {
		httpx.FailErr(c, httpx.ErrInternalError("failed to generate token", err))
		return
	}
	httpx.OK(c, TokenResponse{Token: token, ExpireAt: expireAt.Format(time.RFC3339)})
}
