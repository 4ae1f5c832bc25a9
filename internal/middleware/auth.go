package middleware

import (
	"net/http"
	"strings"

	"agora/internal/apperr"
	"agora/internal/auth"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	ViewerKey       = "viewer"
	SessionTokenKey = "access_token"
)

// TokenVerifier turns an access token into a viewer.
type TokenVerifier interface {
	Verify(token string) (auth.Viewer, error)
}

// LoadViewer resolves the request's identity from a bearer token, falling back to the
// token stored in the session cookie. Invalid session tokens are dropped.
func LoadViewer(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := auth.BearerToken(c.GetHeader("Authorization")); token != "" {
			if viewer, err := v.Verify(token); err == nil {
				c.Set(ViewerKey, viewer)
			}
			c.Next()
			return
		}

		session := sessions.Default(c)
		if token, ok := session.Get(SessionTokenKey).(string); ok && token != "" {
			viewer, err := v.Verify(token)
			if err == nil {
				c.Set(ViewerKey, viewer)
			} else {
				session.Delete(SessionTokenKey)
				_ = session.Save()
			}
		}
		c.Next()
	}
}

// ViewerFrom returns the request's viewer; the zero Viewer means anonymous.
func ViewerFrom(c *gin.Context) auth.Viewer {
	if v, ok := c.Get(ViewerKey); ok {
		if viewer, ok := v.(auth.Viewer); ok {
			return viewer
		}
	}
	return auth.Viewer{}
}

// AuthRequired rejects anonymous requests: API callers get a 401 JSON body,
// browsers are sent to the login page.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ViewerFrom(c).ID != "" {
			c.Next()
			return
		}
		if WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   apperr.Message(apperr.ErrUnauthorized),
			})
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// WantsJSON reports whether the caller expects a JSON response rather than a page.
func WantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.HasPrefix(c.Request.URL.Path, "/vote/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.ContentType() == gin.MIMEJSON
}
