package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/store"

	"go.uber.org/zap"
)

var usernameStrip = regexp.MustCompile(`[^a-z0-9_]+`)

const maxUsernameLength = 30

type ProfileService struct {
	store  store.ProfileStore
	logger *zap.Logger
}

func NewProfileService(s store.ProfileStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{store: s, logger: logger.Named("profile_service")}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (models.Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

// Ensure returns the user's profile, creating it on first sight. The username comes
// from the email's local part ("user" when there is none) and doubles as display name.
func (s *ProfileService) Ensure(ctx context.Context, userID, email string) (models.Profile, error) {
	if userID == "" {
		return models.Profile{}, apperr.ErrUnauthorized
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return models.Profile{}, err
	}

	username := UsernameFromEmail(email)
	taken, err := s.store.UsernameTaken(ctx, username)
	if err != nil {
		return models.Profile{}, err
	}
	if taken {
		username = truncate(username, maxUsernameLength-7) + "_" + shortID(userID)
	}

	p = models.Profile{ID: userID, Username: username, DisplayName: username}
	if err := s.store.CreateProfile(ctx, &p); err != nil {
		return models.Profile{}, err
	}
	s.logger.Info("Profile created", zap.String("user_id", userID), zap.String("username", username))
	return s.store.GetProfile(ctx, userID)
}

// UsernameFromEmail derives a username from the local part of an email address.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	name := usernameStrip.ReplaceAllString(strings.ToLower(local), "")
	name = truncate(name, maxUsernameLength)
	if name == "" {
		return "user"
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	return truncate(id, 6)
}
