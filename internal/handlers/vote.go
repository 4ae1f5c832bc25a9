package handlers

import (
	"net/http"

	"agora/internal/apperr"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes    *services.VoteService
	posts    *services.PostService
	comments *services.CommentService
	lists    *utils.Cache[[]models.Post]
}

// NewVoteHandler creates the vote endpoint. lists is the post-list cache shared with
// DiscussionHandler and is purged after every post vote.
func NewVoteHandler(votes *services.VoteService, posts *services.PostService, comments *services.CommentService, lists *utils.Cache[[]models.Post]) *VoteHandler {
	return &VoteHandler{votes: votes, posts: posts, comments: comments, lists: lists}
}

type voteRequest struct {
	Direction *int `json:"direction"`
}

type voteResponse struct {
	Success      bool             `json:"success"`
	NewVoteState models.VoteState `json:"newVoteState"`
	Upvotes      int              `json:"upvotes"`
	Downvotes    int              `json:"downvotes"`
	Error        string           `json:"error,omitempty"`
}

// Vote toggles the viewer's vote on a post or comment. Direction comes from a form
// field or a JSON body and must be 1 or -1. The response carries the new state and the
// counters reconciled from what the viewer saw before voting.
func (h *VoteHandler) Vote(c *gin.Context) {
	viewer := middleware.ViewerFrom(c)
	ctx := c.Request.Context()

	kind, err := models.ParseSubjectKind(c.Param("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}
	d, err := directionFrom(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	subjectID, before, err := h.current(c, kind, c.Param("id"), viewer.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	next, err := h.votes.Toggle(ctx, kind, subjectID, viewer.ID, d)
	if err != nil {
		h.fail(c, err)
		return
	}

	if kind == models.SubjectPost && h.lists != nil {
		h.lists.Purge()
	}

	after := models.Reconcile(before, next)
	c.JSON(http.StatusOK, voteResponse{
		Success:      true,
		NewVoteState: after.UserVote,
		Upvotes:      after.Upvotes,
		Downvotes:    after.Downvotes,
	})
}

// current resolves the subject and returns its id with the viewer's view of it.
func (h *VoteHandler) current(c *gin.Context, kind models.SubjectKind, idOrSlug, viewerID string) (string, models.VoteView, error) {
	ctx := c.Request.Context()
	var id string
	var tally models.Tally
	switch kind {
	case models.SubjectPost:
		p, err := h.posts.Resolve(ctx, idOrSlug)
		if err != nil {
			return "", models.VoteView{}, err
		}
		id, tally = p.ID, p.Tally()
	case models.SubjectComment:
		cm, err := h.comments.Get(ctx, idOrSlug)
		if err != nil {
			return "", models.VoteView{}, err
		}
		id, tally = cm.ID, cm.Tally()
	}
	state, err := h.votes.StateFor(ctx, kind, id, viewerID)
	if err != nil {
		return "", models.VoteView{}, err
	}
	return id, models.VoteView{UserVote: state, Tally: tally}, nil
}

func directionFrom(c *gin.Context) (models.Direction, error) {
	if c.ContentType() == gin.MIMEJSON {
		var req voteRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Direction == nil {
			return 0, apperr.Invalid("direction is required")
		}
		return models.ParseDirection(*req.Direction)
	}
	raw, ok := c.GetPostForm("direction")
	if !ok {
		return 0, apperr.Invalid("direction is required")
	}
	return models.ParseDirectionString(raw)
}

func (h *VoteHandler) fail(c *gin.Context, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(apperr.HTTPStatus(err), voteResponse{Success: false, Error: apperr.Message(err)})
}
