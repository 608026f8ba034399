package handlers

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/dibs/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// page builds template data with the values every page needs. Flashes are
// consumed here, so call it once per rendered response.
func page(ctx *gin.Context, title string, data gin.H) gin.H {
	out := gin.H{
		"Title":       title,
		"CurrentUser": middlewares.CurrentUser(ctx),
		"Flashes":     middlewares.PopFlashes(ctx),
		"Errors":      map[string]string{},
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

func render(ctx *gin.Context, status int, name, title string, data gin.H) {
	ctx.HTML(status, name, page(ctx, title, data))
}

func redirect(ctx *gin.Context, location string) {
	ctx.Redirect(http.StatusFound, location)
}

// flashRedirect is the answer for permission failures: never a bare 403.
func flashRedirect(ctx *gin.Context, msg, location string) {
	middlewares.Flash(ctx, msg)
	redirect(ctx, location)
}

func RespondNotFound(ctx *gin.Context, message string) {
	render(ctx, http.StatusNotFound, "errors/404", "Not Found", gin.H{"Message": message})
	ctx.Abort()
}

func RespondInternal(ctx *gin.Context, message string, err error) {
	slog.Default().ErrorContext(ctx.Request.Context(), message,
		"err", err,
		"request_id", requestIDFrom(ctx),
		"path", ctx.Request.URL.Path,
	)
	_ = ctx.Error(err)

	render(ctx, http.StatusInternalServerError, "errors/500", "Error", gin.H{"RequestID": requestIDFrom(ctx)})
	ctx.Abort()
}
