package controllers

import (
	"log/slog"
	"net/http"

	"github.com/fasttech-foods/backoffice-api/middleware"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/fasttech-foods/backoffice-api/services"
	"github.com/gin-gonic/gin"
)

// LoginRequest represents the request body for signing in
type LoginRequest struct {
	EmailOrCPF string `json:"email_or_cpf" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// AuthController exposes the session lifecycle
type AuthController struct {
	sessions *services.SessionService
	logger   *slog.Logger
}

// NewAuthController creates an auth controller
func NewAuthController(sessions *services.SessionService, logger *slog.Logger) *AuthController {
	return &AuthController{sessions: sessions, logger: logger}
}

// Login handles POST /api/v1/auth/login
func (ctl *AuthController) Login(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	session, err := ctl.sessions.Login(c.Request.Context(), session, req.EmailOrCPF, req.Password)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	middleware.RenewSession(c, session)
	respondOK(c, http.StatusOK, session.View())
}

// Register handles POST /api/v1/auth/register - registers then signs in
func (ctl *AuthController) Register(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	session, err := ctl.sessions.Register(c.Request.Context(), session, req)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	middleware.RenewSession(c, session)
	respondOK(c, http.StatusCreated, session.View())
}

// Logout handles POST /api/v1/auth/logout
func (ctl *AuthController) Logout(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	session, err := ctl.sessions.Logout(c.Request.Context(), session)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, session.View())
}

// Session handles GET /api/v1/auth/session - re-validates the stored token
func (ctl *AuthController) Session(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	if !session.Stateless {
		var err error
		if session, err = ctl.sessions.Init(c.Request.Context(), session.ID); err != nil {
			respondError(c, ctl.logger, err)
			return
		}
	}
	respondOK(c, http.StatusOK, session.View())
}

// Me handles GET /api/v1/auth/me
func (ctl *AuthController) Me(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	user, err := ctl.sessions.CurrentUser(c.Request.Context(), session)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// TokenInfo handles GET /api/v1/auth/token-info
func (ctl *AuthController) TokenInfo(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	info, err := ctl.sessions.TokenInfo(c.Request.Context(), session)
	if err != nil {
		respondError(c, ctl.logger, err)
		return
	}
	respondOK(c, http.StatusOK, info)
}
