package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"agora/internal/apperr"
	"agora/internal/models"
	"agora/internal/store"

	"go.uber.org/zap"
)

const MaxCommentLength = 10000

// CommentService assembles and extends the two-level comment tree of a post.
type CommentService struct {
	store   store.Store
	ranking *RankingService
	logger  *zap.Logger
}

// NewCommentService creates a comment service. ranking may be nil.
func NewCommentService(s store.Store, ranking *RankingService, logger *zap.Logger) *CommentService {
	return &CommentService{
		store:   s,
		ranking: ranking,
		logger:  logger.Named("comment_service"),
	}
}

// Load returns the post's top-level comments, oldest first, each with its direct replies
// (also oldest first). Every node carries its counters and, for a logged-in viewer, the
// viewer's own vote. Any read failure fails the whole load.
func (s *CommentService) Load(ctx context.Context, postID, viewerID string) ([]models.CommentNode, error) {
	ok, err := s.store.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("post", postID)
	}

	top, err := s.store.TopLevelComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return []models.CommentNode{}, nil
	}

	topIDs := make([]string, len(top))
	for i, c := range top {
		topIDs[i] = c.ID
	}
	// 一次性查询所有回复，避免 N+1
	replies, err := s.store.Replies(ctx, topIDs)
	if err != nil {
		return nil, err
	}

	all := make([]models.Comment, 0, len(top)+len(replies))
	all = append(all, top...)
	all = append(all, replies...)
	ids := make([]string, len(all))
	authorIDs := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.ID
		authorIDs[i] = c.AuthorID
	}

	profiles, err := s.store.ProfilesByID(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	votes := map[string]models.VoteState{}
	if viewerID != "" {
		if votes, err = s.store.VoteStates(ctx, models.SubjectComment, viewerID, ids); err != nil {
			return nil, err
		}
	}

	node := func(c models.Comment) models.CommentNode {
		c.Author = profiles[c.AuthorID]
		n := models.NewCommentNode(c)
		n.UserVote = votes[c.ID]
		return n
	}

	byParent := make(map[string][]models.CommentNode, len(top))
	for _, r := range replies {
		if r.ParentID == nil {
			continue
		}
		byParent[*r.ParentID] = append(byParent[*r.ParentID], node(r))
	}

	nodes := make([]models.CommentNode, 0, len(top))
	for _, c := range top {
		n := node(c)
		if rs, ok := byParent[c.ID]; ok {
			n.Replies = rs
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *CommentService) Get(ctx context.Context, id string) (models.Comment, error) {
	return s.store.GetComment(ctx, id)
}

// Create adds a comment to a post. A reply to a reply is attached to the top-level
// comment it belongs to, so threads stay two levels deep.
func (s *CommentService) Create(ctx context.Context, postID, userID, content string, parentID *string) (models.Comment, error) {
	if userID == "" {
		return models.Comment{}, apperr.ErrUnauthorized
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, apperr.Invalid("comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return models.Comment{}, apperr.Invalid("comment is longer than %d characters", MaxCommentLength)
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return models.Comment{}, err
	}
	if post.IsLocked {
		return models.Comment{}, apperr.Invalid("post is locked")
	}

	c := models.Comment{PostID: post.ID, AuthorID: userID, Content: content}
	if parentID != nil && *parentID != "" {
		parent, err := s.store.GetComment(ctx, *parentID)
		if err != nil {
			return models.Comment{}, err
		}
		if parent.PostID != post.ID {
			return models.Comment{}, apperr.NotFound("comment", *parentID)
		}
		root := parent.ID
		if parent.ParentID != nil {
			root = *parent.ParentID
		}
		c.ParentID = &root
	}

	if err := s.store.CreateComment(ctx, &c); err != nil {
		s.logger.Error("Failed to create comment", zap.String("post_id", post.ID), zap.Error(err))
		return models.Comment{}, err
	}
	if s.ranking != nil {
		s.ranking.ScheduleUpdate(post.ID)
	}
	return c, nil
}
