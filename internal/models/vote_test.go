package models

import (
	"encoding/json"
	"testing"

	"agora/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteStateToggle(t *testing.T) {
	tests := []struct {
		from VoteState
		dir  Direction
		want VoteState
	}{
		{NoVote, Up, Upvoted},
		{NoVote, Down, Downvoted},
		{Upvoted, Up, NoVote},
		{Upvoted, Down, Downvoted},
		{Downvoted, Down, NoVote},
		{Downvoted, Up, Upvoted},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+VoteState(tt.dir).String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.Toggle(tt.dir))
		})
	}
}

func TestToggleSameDirectionTwiceClears(t *testing.T) {
	for _, start := range []VoteState{NoVote, Upvoted, Downvoted} {
		for _, d := range []Direction{Up, Down} {
			next := start.Toggle(d)
			if start == VoteState(d) {
				assert.Equal(t, NoVote, next)
				continue
			}
			assert.Equal(t, NoVote, next.Toggle(d), "from %s via %d", start, d)
		}
	}
}

func TestParseDirection(t *testing.T) {
	for _, v := range []int{1, -1} {
		d, err := ParseDirection(v)
		require.NoError(t, err)
		assert.Equal(t, Direction(v), d)
	}
	for _, v := range []int{0, 2, -2, 100} {
		_, err := ParseDirection(v)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "value %d", v)
	}
}

func TestParseDirectionString(t *testing.T) {
	cases := map[string]Direction{"1": Up, "+1": Up, "up": Up, "-1": Down, " down ": Down}
	for in, want := range cases {
		d, err := ParseDirectionString(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d, in)
	}
	for _, in := range []string{"", "0", "sideways", "2"} {
		_, err := ParseDirectionString(in)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, in)
	}
}

func TestParseSubjectKind(t *testing.T) {
	k, err := ParseSubjectKind("Post")
	require.NoError(t, err)
	assert.Equal(t, SubjectPost, k)

	k, err = ParseSubjectKind("comment")
	require.NoError(t, err)
	assert.Equal(t, SubjectComment, k)

	_, err = ParseSubjectKind("profile")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestDelta(t *testing.T) {
	tests := []struct {
		prev, next VoteState
		up, down   int
	}{
		{NoVote, Upvoted, 1, 0},
		{NoVote, Downvoted, 0, 1},
		{Upvoted, NoVote, -1, 0},
		{Downvoted, NoVote, 0, -1},
		{Upvoted, Downvoted, -1, 1},
		{Downvoted, Upvoted, 1, -1},
		{NoVote, NoVote, 0, 0},
	}
	for _, tt := range tests {
		up, down := Delta(tt.prev, tt.next)
		assert.Equal(t, tt.up, up, "%s -> %s", tt.prev, tt.next)
		assert.Equal(t, tt.down, down, "%s -> %s", tt.prev, tt.next)
	}
}

func TestReconcile(t *testing.T) {
	start := VoteView{UserVote: NoVote, Tally: Tally{Upvotes: 3, Downvotes: 1}}

	up := Reconcile(start, Upvoted)
	assert.Equal(t, VoteView{UserVote: Upvoted, Tally: Tally{Upvotes: 4, Downvotes: 1}}, up)

	back := Reconcile(up, NoVote)
	assert.Equal(t, start, back)

	flipped := Reconcile(up, Downvoted)
	assert.Equal(t, VoteView{UserVote: Downvoted, Tally: Tally{Upvotes: 3, Downvotes: 2}}, flipped)
}

func TestReconcileMatchesToggleSequence(t *testing.T) {
	view := VoteView{Tally: Tally{Upvotes: 10, Downvotes: 4}}
	for _, d := range []Direction{Up, Up, Down, Up, Down, Down, Up} {
		next := view.UserVote.Toggle(d)
		view = Reconcile(view, next)
	}
	// The sequence ends in Upvoted, one vote above the baseline.
	assert.Equal(t, Upvoted, view.UserVote)
	assert.Equal(t, Tally{Upvotes: 11, Downvotes: 4}, view.Tally)
}

func TestVoteStateJSON(t *testing.T) {
	b, err := json.Marshal(VoteView{UserVote: NoVote, Tally: Tally{Upvotes: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userVote":null,"upvotes":2,"downvotes":0}`, string(b))

	b, err = json.Marshal(map[string]VoteState{"a": Upvoted, "b": Downvoted})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":-1}`, string(b))

	var s VoteState
	require.NoError(t, json.Unmarshal([]byte("-1"), &s))
	assert.Equal(t, Downvoted, s)
	require.NoError(t, json.Unmarshal([]byte("null"), &s))
	assert.Equal(t, NoVote, s)
	assert.Error(t, json.Unmarshal([]byte("3"), &s))
}
