package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agora/internal/apperr"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const listCacheTTL = 30 * time.Second

type DiscussionHandler struct {
	posts    *services.PostService
	comments *services.CommentService
	votes    *services.VoteService
	cache    *utils.Cache[[]models.Post]
	logger   *zap.Logger
}

func NewDiscussionHandler(posts *services.PostService, comments *services.CommentService, votes *services.VoteService, cache *utils.Cache[[]models.Post], logger *zap.Logger) *DiscussionHandler {
	return &DiscussionHandler{
		posts:    posts,
		comments: comments,
		votes:    votes,
		cache:    cache,
		logger:   logger.Named("discussion_handler"),
	}
}

// List 首页：最新或热门讨论
func (h *DiscussionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	tab := c.DefaultQuery("tab", "latest")
	if tab != "trending" {
		tab = "latest"
	}

	posts, err := h.cachedList(ctx, tab)
	if err != nil {
		RenderError(c, err)
		return
	}

	Render(c, http.StatusOK, "discussion/list.html", gin.H{
		"Title": "Discussions",
		"Tab":   tab,
		"Posts": posts,
		"Votes": h.viewerVotes(c, posts),
	})
}

func (h *DiscussionHandler) cachedList(ctx context.Context, tab string) ([]models.Post, error) {
	key := "posts:" + tab
	if posts, ok := h.cache.Get(key); ok {
		return posts, nil
	}
	var posts []models.Post
	var err error
	if tab == "trending" {
		posts, err = h.posts.Trending(ctx, services.ListLimit)
	} else {
		posts, err = h.posts.Latest(ctx)
	}
	if err != nil {
		return nil, err
	}
	h.cache.Set(key, posts, listCacheTTL)
	return posts, nil
}

// viewerVotes is never cached; it belongs to one viewer. A failed lookup only hides the highlight.
func (h *DiscussionHandler) viewerVotes(c *gin.Context, posts []models.Post) map[string]models.VoteState {
	viewer := middleware.ViewerFrom(c)
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	votes, err := h.votes.StatesFor(c.Request.Context(), models.SubjectPost, viewer.ID, ids)
	if err != nil {
		h.logger.Warn("Failed to load viewer votes", zap.Error(err))
		return map[string]models.VoteState{}
	}
	return votes
}

func (h *DiscussionHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	posts, err := h.posts.Search(c.Request.Context(), q)
	if err != nil {
		RenderError(c, err)
		return
	}
	Render(c, http.StatusOK, "search.html", gin.H{
		"Title": "Search",
		"Query": q,
		"Posts": posts,
		"Votes": h.viewerVotes(c, posts),
	})
}

// Detail 帖子详情页：评论树和当前用户的投票并发加载
func (h *DiscussionHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := middleware.ViewerFrom(c)

	post, err := h.posts.BySlug(ctx, c.Param("slug"))
	if err != nil {
		RenderError(c, err)
		return
	}

	var (
		tree        []models.CommentNode
		commentsErr error
		postVote    models.VoteState
	)
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		tree, commentsErr = h.comments.Load(ctx, post.ID, viewer.ID)
		return commentsErr
	})
	p.Go(func(ctx context.Context) error {
		var err error
		postVote, err = h.votes.StateFor(ctx, models.SubjectPost, post.ID, viewer.ID)
		return err
	})
	p.Go(func(ctx context.Context) error {
		h.posts.RecordView(ctx, post.ID)
		return nil
	})
	if err := p.Wait(); err != nil {
		h.logger.Warn("Discussion loaded with errors", zap.String("post_id", post.ID), zap.Error(err))
	}

	data := gin.H{
		"Title":    post.Title,
		"Post":     post,
		"PostVote": postVote,
		"Comments": tree,
		"CanReply": viewer.ID != "" && !post.IsLocked,
	}
	if commentsErr != nil {
		data["CommentsError"] = apperr.Message(commentsErr)
	}
	Render(c, http.StatusOK, "discussion/detail.html", data)
}

func (h *DiscussionHandler) ShowAsk(c *gin.Context) {
	h.renderAsk(c, http.StatusOK, services.PostInput{}, "")
}

func (h *DiscussionHandler) renderAsk(c *gin.Context, code int, in services.PostInput, msg string) {
	categories, err := h.posts.Categories(c.Request.Context())
	if err != nil {
		RenderError(c, err)
		return
	}
	Render(c, code, "discussion/ask.html", gin.H{
		"Title":      "Ask a question",
		"Categories": categories,
		"Form":       in,
		"Error":      msg,
	})
}

// Create 提交新帖子
func (h *DiscussionHandler) Create(c *gin.Context) {
	in := services.PostInput{
		Title:      c.PostForm("title"),
		Content:    c.PostForm("content"),
		CategoryID: c.PostForm("category_id"),
	}
	post, err := h.posts.Create(c.Request.Context(), middleware.ViewerFrom(c), in)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			h.renderAsk(c, http.StatusBadRequest, in, apperr.Message(err))
			return
		}
		Fail(c, err)
		return
	}
	h.cache.Purge()
	c.Redirect(http.StatusFound, "/discussion/"+post.Slug)
}

type commentRequest struct {
	Content  string  `json:"content" form:"content"`
	ParentID *string `json:"parent_id" form:"parent_id"`
}

// CreateComment 发表评论或回复
func (h *DiscussionHandler) CreateComment(c *gin.Context) {
	ctx := c.Request.Context()
	var req commentRequest
	if err := c.ShouldBind(&req); err != nil {
		Fail(c, apperr.Invalid("malformed comment"))
		return
	}

	post, err := h.posts.Resolve(ctx, c.Param("slug"))
	if err != nil {
		Fail(c, err)
		return
	}

	comment, err := h.comments.Create(ctx, post.ID, middleware.ViewerFrom(c).ID, req.Content, req.ParentID)
	if err != nil {
		Fail(c, err)
		return
	}
	h.cache.Purge()

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusCreated, gin.H{"success": true, "comment": comment})
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/discussion/%s#comment-%s", post.Slug, comment.ID))
}

// Comments returns a post's comment tree as JSON. The post may be named by id or slug.
func (h *DiscussionHandler) Comments(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.posts.Resolve(ctx, c.Param("id"))
	if err != nil {
		JSONError(c, err)
		return
	}
	tree, err := h.comments.Load(ctx, post.ID, middleware.ViewerFrom(c).ID)
	if err != nil {
		_ = c.Error(err)
		JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}
