package router

import (
	"net/http"
	"os"

	"agora/internal/apperr"
	"agora/internal/config"
	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const listCacheSize = 64

// Deps is everything the HTTP layer is built from.
type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	Verifier middleware.TokenVerifier
	Votes    *services.VoteService
	Posts    *services.PostService
	Comments *services.CommentService
	Profiles *services.ProfileService
}

// New builds the gin engine with middleware, templates and routes.
func New(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/", "/vote/"})))

	store := cookie.NewStore([]byte(d.Config.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 7 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("agora_session", store))

	renderer, err := LoadTemplates(d.Config.TemplatesDir)
	if err != nil {
		return nil, err
	}
	r.HTMLRender = renderer

	if d.Config.StaticDir != "" {
		if _, err := os.Stat(d.Config.StaticDir); err == nil {
			r.Static("/static", d.Config.StaticDir)
		}
	}

	r.Use(middleware.LoadViewer(d.Verifier))

	cache, err := utils.NewCache[[]models.Post](listCacheSize)
	if err != nil {
		return nil, err
	}
	RegisterRoutes(r, d, cache)
	return r, nil
}

func RegisterRoutes(r *gin.Engine, d Deps, cache *utils.Cache[[]models.Post]) {
	authHandler := handlers.NewAuthHandler(d.Verifier, d.Profiles, d.Logger)
	discussionHandler := handlers.NewDiscussionHandler(d.Posts, d.Comments, d.Votes, cache, d.Logger)
	voteHandler := handlers.NewVoteHandler(d.Votes, d.Posts, d.Comments, cache)

	// 公共路由
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/", discussionHandler.List)                           // 最新 / 热门讨论
	r.GET("/search", discussionHandler.Search)                   // 搜索
	r.GET("/discussion/:slug", discussionHandler.Detail)         // 帖子详情
	r.GET("/api/posts/:id/comments", discussionHandler.Comments) // 评论树 JSON
	r.GET("/login", authHandler.ShowLogin)                       // 登录页
	r.POST("/auth/session", authHandler.CreateSession)           // 保存访问令牌
	r.POST("/auth/logout", authHandler.Logout)                   // 退出登录

	// 受保护路由
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/ask", discussionHandler.ShowAsk)                              // 提问页面
		authorized.POST("/ask", discussionHandler.Create)                              // 提交提问
		authorized.POST("/discussion/:slug/comments", discussionHandler.CreateComment) // 评论 / 回复
		authorized.POST("/vote/:kind/:id", voteHandler.Vote)                           // 投票切换
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, apperr.NotFound("page", c.Request.URL.Path))
	})
}
