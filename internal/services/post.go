package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"agora/internal/apperr"
	"agora/internal/auth"
	"agora/internal/models"
	"agora/internal/store"
	"agora/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ListLimit      = 20
	MaxTitleLength = 200
	slugAttempts   = 5
)

// PostInput is what a user submits on the ask page.
type PostInput struct {
	Title      string
	Content    string
	CategoryID string
}

type PostService struct {
	store    store.Store
	profiles *ProfileService
	ranking  *RankingService
	logger   *zap.Logger
}

// NewPostService creates a post service. ranking may be nil.
func NewPostService(s store.Store, profiles *ProfileService, ranking *RankingService, logger *zap.Logger) *PostService {
	return &PostService{
		store:    s,
		profiles: profiles,
		ranking:  ranking,
		logger:   logger.Named("post_service"),
	}
}

// Create publishes a new post for the viewer. Title and content are required; the slug
// is derived from the title once and made unique with a short random suffix.
func (s *PostService) Create(ctx context.Context, viewer auth.Viewer, in PostInput) (models.Post, error) {
	if viewer.ID == "" {
		return models.Post{}, apperr.ErrUnauthorized
	}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return models.Post{}, apperr.Invalid("title and content are required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return models.Post{}, apperr.Invalid("title is longer than %d characters", MaxTitleLength)
	}

	p := models.Post{Title: title, Content: content, AuthorID: viewer.ID}
	if id := strings.TrimSpace(in.CategoryID); id != "" {
		if _, err := s.store.GetCategory(ctx, id); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return models.Post{}, apperr.Invalid("unknown category")
			}
			return models.Post{}, err
		}
		p.CategoryID = &id
	}

	author, err := s.profiles.Ensure(ctx, viewer.ID, viewer.Email)
	if err != nil {
		return models.Post{}, err
	}

	base := utils.Slugify(title)
	if base == "" {
		base = "post"
	}
	for attempt := 0; attempt < slugAttempts; attempt++ {
		slug := base
		if attempt > 0 {
			slug = utils.SlugWithSuffix(base, randomSuffix())
		}
		exists, err := s.store.SlugExists(ctx, slug)
		if err != nil {
			return models.Post{}, err
		}
		if exists {
			continue
		}

		p.ID = ""
		p.Slug = slug
		if err = s.store.CreatePost(ctx, &p); err != nil {
			if store.IsUniqueViolation(err) {
				continue
			}
			s.logger.Error("Failed to create post", zap.String("slug", slug), zap.Error(err))
			return models.Post{}, err
		}

		p.Author = &author
		s.logger.Info("Post created", zap.String("post_id", p.ID), zap.String("slug", p.Slug))
		if s.ranking != nil {
			s.ranking.ScheduleUpdate(p.ID)
		}
		return p, nil
	}
	return models.Post{}, apperr.Storage("create post", errors.New("could not allocate a unique slug"))
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// BySlug loads one post with its author and comment count.
func (s *PostService) BySlug(ctx context.Context, slug string) (models.Post, error) {
	p, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		return models.Post{}, err
	}
	posts := []models.Post{p}
	if err := s.decorate(ctx, posts); err != nil {
		return models.Post{}, err
	}
	return posts[0], nil
}

// Resolve accepts either a post id or a slug.
func (s *PostService) Resolve(ctx context.Context, idOrSlug string) (models.Post, error) {
	if _, err := uuid.Parse(idOrSlug); err == nil {
		p, err := s.store.GetPost(ctx, idOrSlug)
		if err == nil || !errors.Is(err, apperr.ErrNotFound) {
			return p, err
		}
	}
	return s.store.GetPostBySlug(ctx, idOrSlug)
}

func (s *PostService) Latest(ctx context.Context) ([]models.Post, error) {
	return s.list(ctx, s.store.LatestPosts, ListLimit)
}

func (s *PostService) Trending(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	return s.list(ctx, s.store.TrendingPosts, limit)
}

// Search matches the query against titles and content. An empty query matches nothing.
func (s *PostService) Search(ctx context.Context, query string) ([]models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Post{}, nil
	}
	posts, err := s.store.SearchPosts(ctx, query, ListLimit)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) list(ctx context.Context, fetch func(context.Context, int) ([]models.Post, error), limit int) ([]models.Post, error) {
	posts, err := fetch(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// decorate fills the read-time fields: author and comment count.
func (s *PostService) decorate(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	authorIDs := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		authorIDs[i] = p.AuthorID
	}
	profiles, err := s.store.ProfilesByID(ctx, authorIDs)
	if err != nil {
		return err
	}
	counts, err := s.store.CommentCounts(ctx, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].Author = profiles[posts[i].AuthorID]
		posts[i].CommentCount = counts[posts[i].ID]
	}
	return nil
}

// RecordView bumps the view counter. Failures are logged, never surfaced to readers.
func (s *PostService) RecordView(ctx context.Context, postID string) {
	if err := s.store.IncrementViews(ctx, postID); err != nil {
		s.logger.Warn("Failed to record view", zap.String("post_id", postID), zap.Error(err))
		return
	}
	if s.ranking != nil {
		s.ranking.ScheduleUpdate(postID)
	}
}

func (s *PostService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.Categories(ctx)
}
