package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nestnote/backend/internal/model"
	"github.com/nestnote/backend/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Signup godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.SignupRequest true "Email, password and optional display name"
// @Success 201 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "invalid request"})
		return
	}

	session, err := h.svc.Signup(c.Request.Context(), req.Email, req.Password, req.Name, clientMeta(c))
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshSecret)
	c.JSON(http.StatusCreated, model.AuthResponse{
		AccessToken: session.AccessToken,
		User:        session.User,
	})
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "invalid request"})
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshSecret)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: session.AccessToken,
		User:        session.User,
	})
}

// Google godoc
// @Summary Login with a Google ID token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.GoogleLoginRequest true "Google ID token"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /auth/google [post]
func (h *AuthHandler) Google(c *gin.Context) {
	var req model.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "invalid request"})
		return
	}

	session, err := h.svc.GoogleLogin(c.Request.Context(), req.IDToken, clientMeta(c))
	if err != nil {
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshSecret)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: session.AccessToken,
		User:        session.User,
	})
}

// Refresh godoc
// @Summary Exchange the refresh cookie for a new session
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	secret, _ := c.Cookie(h.svc.CookieConfig().Name)
	session, err := h.svc.Refresh(c.Request.Context(), secret, clientMeta(c))
	if err != nil {
		// A known-bad cookie must not be presented again.
		if errors.Is(err, service.ErrUnauthorized) {
			h.clearRefreshCookie(c)
		}
		writeAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshSecret)
	c.JSON(http.StatusOK, model.AuthResponse{
		AccessToken: session.AccessToken,
		User:        session.User,
	})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the refresh record if a cookie is present and always clears the cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} model.LogoutResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	secret, _ := c.Cookie(h.svc.CookieConfig().Name)
	h.svc.Logout(c.Request.Context(), secret)
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, model.LogoutResponse{OK: true})
}

// Me godoc
// @Summary Get the current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MeResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Message: "invalid credentials"})
		return
	}

	profile, err := h.svc.Me(c.Request.Context(), user.ID)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.MeResponse{User: *profile})
}

// UpdateMe godoc
// @Summary Update profile picture settings
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.UpdateMeRequest true "Picture URL and hide flag"
// @Success 200 {object} model.MeResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/me [patch]
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Message: "invalid credentials"})
		return
	}

	var req model.UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "invalid request"})
		return
	}

	profile, err := h.svc.UpdateMe(c.Request.Context(), user.ID, req)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.MeResponse{User: *profile})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, secret string) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, secret, cfg.MaxAge, cfg.Path, "", cfg.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, "", cfg.Secure, true)
}

func clientMeta(c *gin.Context) service.ClientMeta {
	return service.ClientMeta{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Message: "invalid input"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Message: "invalid credentials"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, model.ErrorResponse{Message: "conflict"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Message: "user not found"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Message: "server error"})
	}
}
