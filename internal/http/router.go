package http

import (
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/geocoder89/dibs/internal/config"
	"github.com/geocoder89/dibs/internal/domain/role"
	"github.com/geocoder89/dibs/internal/http/handlers"
	"github.com/geocoder89/dibs/internal/http/middlewares"
	"github.com/geocoder89/dibs/internal/observability"
	"github.com/geocoder89/dibs/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type AccountService interface {
	handlers.Accounts
	handlers.AdminEditor
	middlewares.Pinger
}

type UserStore interface {
	middlewares.UserLoader
	handlers.UserFinder
}

type Deps struct {
	Log       *slog.Logger
	Config    config.Config
	Templates *template.Template
	Prom      *observability.Prom
	Gatherer  prometheus.Gatherer

	Sessions middlewares.SessionStore
	Accounts AccountService

	Users      UserStore
	Roles      handlers.RoleLister
	Lists      handlers.ListStore
	Items      handlers.ItemStore
	Comments   handlers.CommentStore
	Categories handlers.CategoryStore

	// Ready lists the dependencies /readyz pings.
	Ready map[string]handlers.Pinger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	r := gin.New()
	r.SetHTMLTemplate(d.Templates)

	// middleware

	r.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		handlers.RespondInternal(c, "http.panic", fmt.Errorf("panic: %v", rec))
	}))
	r.Use(otelgin.Middleware("dibs"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.CSRF(middlewares.CSRFConfig{AllowedOrigins: []string{d.Config.BaseURL}}))

	sessions := middlewares.NewSessions(d.Sessions, d.Users, middlewares.SessionConfig{Secure: d.Config.IsProd()})
	r.Use(sessions.Load())
	r.Use(middlewares.TrackActivity(d.Accounts))
	r.Use(middlewares.NoStore())

	r.NoRoute(func(c *gin.Context) { handlers.RespondNotFound(c, "") })

	// ops
	h := handlers.NewHealthHandler(d.Ready)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	r.StaticFS("/static", web.Static())

	// form posts that guess credentials or send mail get a tighter budget
	perMinute := d.Config.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	limiter := middlewares.NewRateLimiter(perMinute, time.Minute)
	limited := middlewares.OnlyPost(limiter.RateLimiterMiddleware(middlewares.KeyByRouteAndIP))
	// logged-in forms share one budget per account wherever it posts from
	userLimited := middlewares.OnlyPost(limiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	requireLogin := middlewares.RequireLogin()

	lists := handlers.NewListsHandler(d.Lists, d.Items, d.Comments, d.Categories)
	users := handlers.NewUsersHandler(d.Users, d.Lists, d.Roles, d.Accounts)
	authH := handlers.NewAuthHandler(d.Accounts)

	r.GET("/", lists.Index)
	r.POST("/", lists.Index)

	// lists
	lg := r.Group("/lists", requireLogin)
	{
		lg.GET("/create", lists.CreatePage)
		lg.POST("/create", middlewares.RequirePermission(role.PermCreate), lists.Create)
		lg.GET("/:id", lists.Show)
		lg.POST("/:id", lists.AddItem)
		lg.GET("/:id/delete", lists.Delete)
		lg.POST("/:id/delete", lists.Delete)
		lg.GET("/:id/delete/:item_id", lists.DeleteItem)
		lg.POST("/:id/delete/:item_id", lists.DeleteItem)
		lg.POST("/:id/create_comment/:item_id", middlewares.RequirePermission(role.PermComment), lists.CreateComment)
		lg.GET("/:id/delete_comment/:comment_id", lists.DeleteComment)
		lg.POST("/:id/delete_comment/:comment_id", lists.DeleteComment)
	}

	// users
	r.GET("/user/:username", users.Profile)
	r.GET("/user/:username/settings", requireLogin, users.Settings)
	r.GET("/user/:username/edit", requireLogin, middlewares.RequireAdmin(), users.EditPage)
	r.POST("/user/:username/edit", requireLogin, middlewares.RequireAdmin(), users.Edit)

	// auth
	ag := r.Group("/auth")
	{
		ag.GET("/login", authH.LoginPage)
		ag.POST("/login", limited, authH.Login)
		ag.GET("/logout", requireLogin, authH.Logout)
		ag.GET("/register", authH.RegisterPage)
		ag.POST("/register", limited, authH.Register)
		ag.GET("/unconfirmed", authH.Unconfirmed)
		ag.GET("/confirm", requireLogin, authH.ResendConfirmation)
		ag.GET("/confirm/:token", requireLogin, authH.Confirm)

		anon := ag.Group("", middlewares.AnonymousOnly())
		anon.GET("/reset", authH.ResetRequestPage)
		anon.POST("/reset", limited, authH.ResetRequest)
		anon.GET("/reset/:token", authH.ResetPage)
		anon.POST("/reset/:token", limited, authH.Reset)

		ag.GET("/change_email", requireLogin, authH.ChangeEmailPage)
		ag.POST("/change_email", requireLogin, userLimited, authH.ChangeEmailRequest)
		ag.GET("/change_email/:token", requireLogin, authH.ChangeEmail)
		ag.GET("/change-password", requireLogin, authH.ChangePasswordPage)
		ag.POST("/change-password", requireLogin, userLimited, authH.ChangePassword)
	}

	return r
}
