package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentTally(t *testing.T, s store.Store, id string) models.Tally {
	t.Helper()
	c, err := s.GetComment(context.Background(), id)
	require.NoError(t, err)
	return c.Tally()
}

func TestToggleSameDirectionTwiceRestoresCounters(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "round-trip")

	for _, d := range []models.Direction{models.Up, models.Down} {
		state, err := svc.Toggle(ctx, models.SubjectPost, p.ID, "u1", d)
		require.NoError(t, err)
		assert.Equal(t, models.VoteState(d), state)

		state, err = svc.Toggle(ctx, models.SubjectPost, p.ID, "u1", d)
		require.NoError(t, err)
		assert.Equal(t, models.NoVote, state)

		got, err := st.GetPost(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Tally{}, got.Tally())
	}
}

func TestToggleFlipDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "flip")
	c := addComment(t, st, p.ID, nil, time.Now(), "hi")

	_, err := svc.Toggle(ctx, models.SubjectComment, c.ID, "other", models.Up)
	require.NoError(t, err)
	baseline := commentTally(t, st, c.ID)

	_, err = svc.Toggle(ctx, models.SubjectComment, c.ID, "u1", models.Up)
	require.NoError(t, err)
	state, err := svc.Toggle(ctx, models.SubjectComment, c.ID, "u1", models.Down)
	require.NoError(t, err)
	assert.Equal(t, models.Downvoted, state)

	got := commentTally(t, st, c.ID)
	assert.Equal(t, baseline.Upvotes, got.Upvotes)
	assert.Equal(t, baseline.Downvotes+1, got.Downvotes)
}

func TestToggleCommentScenario(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "scenario")
	c := addComment(t, st, p.ID, nil, time.Now(), "C")

	for _, u := range []string{"a", "b", "c"} {
		_, err := svc.Toggle(ctx, models.SubjectComment, c.ID, u, models.Up)
		require.NoError(t, err)
	}
	_, err := svc.Toggle(ctx, models.SubjectComment, c.ID, "d", models.Down)
	require.NoError(t, err)
	require.Equal(t, models.Tally{Upvotes: 3, Downvotes: 1}, commentTally(t, st, c.ID))

	view := models.VoteView{Tally: commentTally(t, st, c.ID)}

	state, err := svc.Toggle(ctx, models.SubjectComment, c.ID, "U", models.Up)
	require.NoError(t, err)
	assert.Equal(t, models.Upvoted, state)
	assert.Equal(t, models.Tally{Upvotes: 4, Downvotes: 1}, commentTally(t, st, c.ID))
	view = models.Reconcile(view, state)
	assert.Equal(t, commentTally(t, st, c.ID), view.Tally)

	state, err = svc.Toggle(ctx, models.SubjectComment, c.ID, "U", models.Up)
	require.NoError(t, err)
	assert.Equal(t, models.NoVote, state)
	assert.Equal(t, models.Tally{Upvotes: 3, Downvotes: 1}, commentTally(t, st, c.ID))
	view = models.Reconcile(view, state)
	assert.Equal(t, commentTally(t, st, c.ID), view.Tally)
}

func TestToggleReconcileMatchesFreshRead(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "reconcile")

	view := models.VoteView{}
	for _, d := range []models.Direction{models.Up, models.Down, models.Down, models.Up, models.Up, models.Down} {
		state, err := svc.Toggle(ctx, models.SubjectPost, p.ID, "u1", d)
		require.NoError(t, err)
		view = models.Reconcile(view, state)

		fresh, err := st.GetPost(ctx, p.ID)
		require.NoError(t, err)
		current, err := svc.StateFor(ctx, models.SubjectPost, p.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, models.VoteView{UserVote: current, Tally: fresh.Tally()}, view)
	}
}

func TestToggleUnauthorizedLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	st := newFlakyStore()
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "anon")

	state, err := svc.Toggle(ctx, models.SubjectPost, p.ID, "", models.Up)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, models.NoVote, state)
	assert.Zero(t, st.applyCalls)

	got, err := st.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Tally{}, got.Tally())
}

func TestToggleRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	st := newFlakyStore()
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "bad")

	_, err := svc.Toggle(ctx, models.SubjectKind("profile"), p.ID, "u1", models.Up)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Toggle(ctx, models.SubjectPost, p.ID, "u1", models.Direction(2))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Toggle(ctx, models.SubjectPost, "missing", "u1", models.Up)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, 1, st.applyCalls, "only the well-formed call reaches the store")
}

func TestToggleSurfacesStorageErrors(t *testing.T) {
	st := newFlakyStore("apply")
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "down")

	state, err := svc.Toggle(context.Background(), models.SubjectPost, p.ID, "u1", models.Up)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, models.NoVote, state)
}

func TestConcurrentTogglesKeepOneVotePerUser(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "race")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Toggle(ctx, models.SubjectPost, p.ID, "u1", models.Up)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := st.GetPost(ctx, p.ID)
	require.NoError(t, err)
	state, err := svc.StateFor(ctx, models.SubjectPost, p.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.NoVote, state, "an even number of same-direction toggles clears the vote")
	assert.Equal(t, models.Tally{}, got.Tally())
}

func TestStateForAnonymous(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewVoteService(st, nil, nop())
	p := addPost(t, st, "viewer")

	state, err := svc.StateFor(context.Background(), models.SubjectPost, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.NoVote, state)
}

func TestPostVoteSchedulesRanking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemoryStore()
	ranking := NewRankingService(st, nop())
	go ranking.Run(ctx)
	svc := NewVoteService(st, ranking, nop())
	p := addPost(t, st, "hot")

	_, err := svc.Toggle(ctx, models.SubjectPost, p.ID, "u1", models.Up)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, err := st.GetPost(ctx, p.ID)
		return err == nil && got.HotScore > 0
	}, 3*time.Second, 50*time.Millisecond)
}
