package handlers

import (
	"net/http"

	"agora/internal/apperr"
	"agora/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Render injects the values every page needs, like the current viewer.
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	if viewer := middleware.ViewerFrom(c); viewer.ID != "" {
		obj["CurrentUser"] = viewer
	}
	obj["CurrentPath"] = c.Request.URL.Path
	c.HTML(code, name, obj)
}

// RenderError shows the error page for err with the matching status code.
func RenderError(c *gin.Context, err error) {
	Render(c, apperr.HTTPStatus(err), "error.html", gin.H{
		"Title": http.StatusText(apperr.HTTPStatus(err)),
		"Error": apperr.Message(err),
	})
}

// JSONError writes the {success:false, error} body API callers expect.
func JSONError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"success": false, "error": apperr.Message(err)})
}

// Fail reports err in whichever format the caller asked for.
func Fail(c *gin.Context, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if middleware.WantsJSON(c) {
		JSONError(c, err)
		return
	}
	RenderError(c, err)
}
