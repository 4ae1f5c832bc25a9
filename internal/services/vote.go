package services

import (
	"context"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/store"

	"go.uber.org/zap"
)

// VoteService owns the vote ledger: at most one vote per (subject, user).
type VoteService struct {
	store   store.VoteStore
	ranking *RankingService
	logger  *zap.Logger
}

// NewVoteService creates a vote service. ranking may be nil.
func NewVoteService(s store.VoteStore, ranking *RankingService, logger *zap.Logger) *VoteService {
	return &VoteService{
		store:   s,
		ranking: ranking,
		logger:  logger.Named("vote_service"),
	}
}

// Toggle applies the user's vote on a subject and returns the resulting state.
// Voting in the current direction clears the vote; the opposite direction flips it.
// Callers update displayed counters with models.Reconcile.
func (s *VoteService) Toggle(ctx context.Context, kind models.SubjectKind, subjectID, userID string, d models.Direction) (models.VoteState, error) {
	if userID == "" {
		return models.NoVote, apperr.ErrUnauthorized
	}
	if _, err := models.ParseSubjectKind(string(kind)); err != nil {
		return models.NoVote, err
	}
	if _, err := models.ParseDirection(int(d)); err != nil {
		return models.NoVote, err
	}
	if subjectID == "" {
		return models.NoVote, apperr.NotFound(string(kind), subjectID)
	}

	prev, next, err := s.store.ApplyVote(ctx, kind, subjectID, userID, d)
	if err != nil {
		if apperr.HTTPStatus(err) >= 500 {
			s.logger.Error("Failed to apply vote",
				zap.String("kind", string(kind)),
				zap.String("subject_id", subjectID),
				zap.Error(err))
		}
		return models.NoVote, err
	}

	s.logger.Debug("Vote toggled",
		zap.String("kind", string(kind)),
		zap.String("subject_id", subjectID),
		zap.String("user_id", userID),
		zap.Stringer("from", prev),
		zap.Stringer("to", next))

	if kind == models.SubjectPost && s.ranking != nil {
		s.ranking.ScheduleUpdate(subjectID)
	}
	return next, nil
}

// StateFor is the viewer's current vote on one subject. Anonymous viewers have none.
func (s *VoteService) StateFor(ctx context.Context, kind models.SubjectKind, subjectID, userID string) (models.VoteState, error) {
	states, err := s.StatesFor(ctx, kind, userID, []string{subjectID})
	if err != nil {
		return models.NoVote, err
	}
	return states[subjectID], nil
}

// StatesFor looks up the viewer's votes on many subjects in one round trip.
func (s *VoteService) StatesFor(ctx context.Context, kind models.SubjectKind, userID string, subjectIDs []string) (map[string]models.VoteState, error) {
	if _, err := models.ParseSubjectKind(string(kind)); err != nil {
		return nil, err
	}
	if userID == "" || len(subjectIDs) == 0 {
		return map[string]models.VoteState{}, nil
	}
	return s.store.VoteStates(ctx, kind, userID, subjectIDs)
}
