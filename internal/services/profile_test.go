package services

import (
	"context"
	"testing"

	"agora/internal/apperr"
	"agora/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsernameFromEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com":      "alice",
		"Bob.Smith+tag@mail.org": "bobsmithtag",
		"":                       "user",
		"@nolocal.com":           "user",
		"under_score@x.io":       "under_score",
	}
	for email, want := range cases {
		assert.Equal(t, want, UsernameFromEmail(email), email)
	}
}

func TestEnsureCreatesOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewProfileService(st, nop())

	_, err := svc.Ensure(ctx, "", "x@y.z")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	p, err := svc.Ensure(ctx, "id-1", "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, "carol", p.Username)
	assert.Equal(t, "carol", p.DisplayName)

	again, err := svc.Ensure(ctx, "id-1", "renamed@example.com")
	require.NoError(t, err)
	assert.Equal(t, "carol", again.Username)
}

func TestEnsureAvoidsUsernameClash(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := NewProfileService(st, nop())

	_, err := svc.Ensure(ctx, "aaaaaaaa-0000", "dave@one.com")
	require.NoError(t, err)
	p, err := svc.Ensure(ctx, "bbbbbbbb-0000", "dave@two.com")
	require.NoError(t, err)
	assert.Equal(t, "dave_bbbbbb", p.Username)
}
