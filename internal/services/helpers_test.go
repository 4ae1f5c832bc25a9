package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBackendDown = errors.New("backend down")

// flakyStore fails the named operations and counts vote writes.
type flakyStore struct {
	*store.MemoryStore
	fail       map[string]bool
	applyCalls int
}

func newFlakyStore(ops ...string) *flakyStore {
	f := &flakyStore{MemoryStore: store.NewMemoryStore(), fail: map[string]bool{}}
	for _, op := range ops {
		f.fail[op] = true
	}
	return f
}

func (f *flakyStore) ApplyVote(ctx context.Context, kind models.SubjectKind, subjectID, userID string, d models.Direction) (models.VoteState, models.VoteState, error) {
	f.applyCalls++
	if f.fail["apply"] {
		return models.NoVote, models.NoVote, apperr.Storage("apply vote", errBackendDown)
	}
	return f.MemoryStore.ApplyVote(ctx, kind, subjectID, userID, d)
}

func (f *flakyStore) Replies(ctx context.Context, parentIDs []string) ([]models.Comment, error) {
	if f.fail["replies"] {
		return nil, apperr.Storage("list replies", errBackendDown)
	}
	return f.MemoryStore.Replies(ctx, parentIDs)
}

func (f *flakyStore) VoteStates(ctx context.Context, kind models.SubjectKind, userID string, ids []string) (map[string]models.VoteState, error) {
	if f.fail["votes"] {
		return nil, apperr.Storage("load votes", errBackendDown)
	}
	return f.MemoryStore.VoteStates(ctx, kind, userID, ids)
}

func addPost(t *testing.T, s store.Store, slug string) models.Post {
	t.Helper()
	p := models.Post{Slug: slug, Title: slug, Content: "content", AuthorID: "author-1"}
	require.NoError(t, s.CreatePost(context.Background(), &p))
	return p
}

func addComment(t *testing.T, s store.Store, postID string, parent *models.Comment, at time.Time, content string) models.Comment {
	t.Helper()
	c := models.Comment{PostID: postID, AuthorID: "author-1", Content: content, CreatedAt: at}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, s.CreateComment(context.Background(), &c))
	return c
}

func nop() *zap.Logger {
	return zap.NewNop()
}
