package handlers

import (
	"net/http"
	"strings"

	"agora/internal/apperr"
	"agora/internal/auth"
	"agora/internal/middleware"
	"agora/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	verifier middleware.TokenVerifier
	profiles *services.ProfileService
	logger   *zap.Logger
}

func NewAuthHandler(verifier middleware.TokenVerifier, profiles *services.ProfileService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{verifier: verifier, profiles: profiles, logger: logger.Named("auth_handler")}
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Log in"})
}

type sessionRequest struct {
	AccessToken string `json:"access_token" form:"access_token"`
}

// CreateSession stores an identity-provider access token in the session cookie
// after checking it, and makes sure the user has a profile.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req sessionRequest
	_ = c.ShouldBind(&req)
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		token = auth.BearerToken(c.GetHeader("Authorization"))
	}

	viewer, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Debug("Rejected access token", zap.Error(err))
		h.sessionFailed(c, apperr.ErrUnauthorized)
		return
	}
	if _, err := h.profiles.Ensure(c.Request.Context(), viewer.ID, viewer.Email); err != nil {
		h.sessionFailed(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionTokenKey, token)
	if err := session.Save(); err != nil {
		h.sessionFailed(c, apperr.Storage("save session", err))
		return
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "userId": viewer.ID})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) sessionFailed(c *gin.Context, err error) {
	if middleware.WantsJSON(c) {
		JSONError(c, err)
		return
	}
	Render(c, apperr.HTTPStatus(err), "auth/login.html", gin.H{
		"Title": "Log in",
		"Error": apperr.Message(err),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = session.Save()

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	c.Redirect(http.StatusFound, "/")
}
