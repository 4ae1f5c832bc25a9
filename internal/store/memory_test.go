package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"agora/internal/apperr"
	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPost(t *testing.T, s *MemoryStore, slug string) models.Post {
	t.Helper()
	p := models.Post{Slug: slug, Title: slug, Content: "body", AuthorID: "author"}
	require.NoError(t, s.CreatePost(context.Background(), &p))
	return p
}

func TestMemoryApplyVoteTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedPost(t, s, "hello")

	prev, next, err := s.ApplyVote(ctx, models.SubjectPost, p.ID, "u1", models.Up)
	require.NoError(t, err)
	assert.Equal(t, models.NoVote, prev)
	assert.Equal(t, models.Upvoted, next)

	prev, next, err = s.ApplyVote(ctx, models.SubjectPost, p.ID, "u1", models.Down)
	require.NoError(t, err)
	assert.Equal(t, models.Upvoted, prev)
	assert.Equal(t, models.Downvoted, next)

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)
	assert.Equal(t, 1, got.Downvotes)

	_, next, err = s.ApplyVote(ctx, models.SubjectPost, p.ID, "u1", models.Down)
	require.NoError(t, err)
	assert.Equal(t, models.NoVote, next)

	states, err := s.VoteStates(ctx, models.SubjectPost, "u1", []string{p.ID})
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestMemoryApplyVoteMissingSubject(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.ApplyVote(context.Background(), models.SubjectComment, "nope", "u1", models.Up)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = s.ApplyVote(context.Background(), models.SubjectKind("user"), "nope", "u1", models.Up)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestMemoryConcurrentVotesKeepOneRowPerUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedPost(t, s, "busy")

	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				_, _, err := s.ApplyVote(ctx, models.SubjectPost, p.ID, u, models.Up)
				assert.NoError(t, err)
			}(u)
		}
	}
	wg.Wait()

	// three toggles in the same direction end Upvoted for every user
	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, len(users), got.Upvotes)
	assert.Equal(t, 0, got.Downvotes)

	states, err := s.VoteStates(ctx, models.SubjectPost, "u3", []string{p.ID})
	require.NoError(t, err)
	assert.Equal(t, models.Upvoted, states[p.ID])
}

func TestMemoryCommentOrderBreaksTiesBySequence(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedPost(t, s, "ordered")

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	second := models.Comment{PostID: p.ID, AuthorID: "a", Content: "second", CreatedAt: at}
	third := models.Comment{PostID: p.ID, AuthorID: "a", Content: "third", CreatedAt: at}
	first := models.Comment{PostID: p.ID, AuthorID: "a", Content: "first", CreatedAt: at.Add(-time.Minute)}
	require.NoError(t, s.CreateComment(ctx, &second))
	require.NoError(t, s.CreateComment(ctx, &third))
	require.NoError(t, s.CreateComment(ctx, &first))

	top, err := s.TopLevelComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{top[0].Content, top[1].Content, top[2].Content})

	reply := models.Comment{PostID: p.ID, AuthorID: "b", Content: "re", ParentID: &second.ID}
	require.NoError(t, s.CreateComment(ctx, &reply))
	replies, err := s.Replies(ctx, []string{second.ID, third.ID})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, second.ID, *replies[0].ParentID)

	counts, err := s.CommentCounts(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Equal(t, 4, counts[p.ID])
}

func TestMemoryCreateCommentRequiresPostAndParent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.CreateComment(ctx, &models.Comment{PostID: "missing", Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	p := seedPost(t, s, "p")
	parent := "missing"
	err = s.CreateComment(ctx, &models.Comment{PostID: p.ID, Content: "x", ParentID: &parent})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryPostsListing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	old := seedPost(t, s, "old-news")
	now = now.Add(time.Hour)
	fresh := seedPost(t, s, "fresh-topic")

	err := s.CreatePost(ctx, &models.Post{Slug: "fresh-topic", Title: "dup"})
	assert.ErrorIs(t, err, apperr.ErrStorage)

	latest, err := s.LatestPosts(ctx, 20)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, fresh.ID, latest[0].ID)

	require.NoError(t, s.SetHotScore(ctx, old.ID, 9))
	trending, err := s.TrendingPosts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, old.ID, trending[0].ID)

	found, err := s.SearchPosts(ctx, "FRESH", 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, fresh.ID, found[0].ID)

	require.NoError(t, s.IncrementViews(ctx, fresh.ID))
	got, err := s.GetPostBySlug(ctx, "fresh-topic")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)

	ids, err := s.RecentPostIDs(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{fresh.ID}, ids)
}

func TestMemorySeedCategoriesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SeedCategories(ctx, DefaultCategories()))
	require.NoError(t, s.SeedCategories(ctx, DefaultCategories()))

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(DefaultCategories()))
	assert.Equal(t, "General", cats[0].Name)
}
