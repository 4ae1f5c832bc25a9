// Package store maps database rows onto the strict entities in models.
package store

import (
	"context"
	"time"

	"agora/internal/models"
)

// VoteStore persists the per-(subject, user) vote ledger together with subject counters.
type VoteStore interface {
	// ApplyVote atomically moves the user's vote through the toggle state machine and
	// adjusts the subject's counters by the same delta. It returns the state before and after.
	ApplyVote(ctx context.Context, kind models.SubjectKind, subjectID, userID string, d models.Direction) (prev, next models.VoteState, err error)
	// VoteStates returns the user's votes on the given subjects. Subjects without a vote are absent.
	VoteStates(ctx context.Context, kind models.SubjectKind, userID string, subjectIDs []string) (map[string]models.VoteState, error)
}

type CommentStore interface {
	TopLevelComments(ctx context.Context, postID string) ([]models.Comment, error)
	// Replies returns the direct replies of every parent, ordered by creation.
	Replies(ctx context.Context, parentIDs []string) ([]models.Comment, error)
	GetComment(ctx context.Context, id string) (models.Comment, error)
	CreateComment(ctx context.Context, c *models.Comment) error
	CommentCounts(ctx context.Context, postIDs []string) (map[string]int, error)
}

type PostStore interface {
	PostExists(ctx context.Context, id string) (bool, error)
	GetPost(ctx context.Context, id string) (models.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (models.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreatePost(ctx context.Context, p *models.Post) error
	LatestPosts(ctx context.Context, limit int) ([]models.Post, error)
	TrendingPosts(ctx context.Context, limit int) ([]models.Post, error)
	SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error)
	IncrementViews(ctx context.Context, id string) error
	PostStats(ctx context.Context, id string) (models.PostStats, error)
	SetHotScore(ctx context.Context, id string, score float64) error
	RecentPostIDs(ctx context.Context, since time.Time) ([]string, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	ProfilesByID(ctx context.Context, ids []string) (map[string]*models.Profile, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	CreateProfile(ctx context.Context, p *models.Profile) error
}

type CategoryStore interface {
	Categories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (models.Category, error)
	SeedCategories(ctx context.Context, categories []models.Category) error
}

// Store is the full persistence surface the application runs on.
type Store interface {
	VoteStore
	CommentStore
	PostStore
	ProfileStore
	CategoryStore
}

// DefaultCategories are created by the first migration.
func DefaultCategories() []models.Category {
	return []models.Category{
		{Name: "General", Slug: "general", Description: "Anything that does not fit elsewhere"},
		{Name: "Help", Slug: "help", Description: "Questions looking for an answer"},
		{Name: "Show & Tell", Slug: "show-and-tell", Description: "Projects and write-ups"},
		{Name: "Meta", Slug: "meta", Description: "About this community"},
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
