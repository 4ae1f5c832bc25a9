package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"agora/internal/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubjectKind is the kind of entity a vote targets.
type SubjectKind string

const (
	SubjectPost    SubjectKind = "post"
	SubjectComment SubjectKind = "comment"
)

// ParseSubjectKind accepts "post" or "comment" (case-insensitive).
func ParseSubjectKind(s string) (SubjectKind, error) {
	switch SubjectKind(strings.ToLower(strings.TrimSpace(s))) {
	case SubjectPost:
		return SubjectPost, nil
	case SubjectComment:
		return SubjectComment, nil
	}
	return "", apperr.Invalid("unknown subject kind %q", s)
}

// Direction is the value a user votes with.
type Direction int

const (
	Up   Direction = 1
	Down Direction = -1
)

// ParseDirection accepts exactly +1 and -1.
func ParseDirection(v int) (Direction, error) {
	switch Direction(v) {
	case Up, Down:
		return Direction(v), nil
	}
	return 0, apperr.Invalid("vote direction must be 1 or -1, got %d", v)
}

// ParseDirectionString parses form input such as "1", "+1", "-1", "up" or "down".
func ParseDirectionString(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, apperr.Invalid("vote direction must be 1 or -1, got %q", s)
	}
	return ParseDirection(v)
}

// VoteState is a user's current vote on one subject.
type VoteState int

const (
	NoVote    VoteState = 0
	Upvoted   VoteState = VoteState(Up)
	Downvoted VoteState = VoteState(Down)
)

// Toggle is the per-(subject, user) state machine: picking the current direction
// clears the vote, anything else moves to that direction.
func (s VoteState) Toggle(d Direction) VoteState {
	if s == VoteState(d) {
		return NoVote
	}
	return VoteState(d)
}

func (s VoteState) String() string {
	switch s {
	case Upvoted:
		return "upvoted"
	case Downvoted:
		return "downvoted"
	}
	return "none"
}

// MarshalJSON renders NoVote as null and the others as 1 / -1.
func (s VoteState) MarshalJSON() ([]byte, error) {
	if s == NoVote {
		return []byte("null"), nil
	}
	return json.Marshal(int(s))
}

func (s *VoteState) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = NoVote
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == 0 {
		*s = NoVote
		return nil
	}
	d, err := ParseDirection(v)
	if err != nil {
		return err
	}
	*s = VoteState(d)
	return nil
}

// Tally holds the aggregate counters of a subject.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Delta is the change in (upvotes, downvotes) caused by moving from prev to next.
func Delta(prev, next VoteState) (up, down int) {
	switch prev {
	case Upvoted:
		up--
	case Downvoted:
		down--
	}
	switch next {
	case Upvoted:
		up++
	case Downvoted:
		down++
	}
	return up, down
}

// Apply returns the tally after a single user's vote moved from prev to next.
func (t Tally) Apply(prev, next VoteState) Tally {
	up, down := Delta(prev, next)
	t.Upvotes += up
	t.Downvotes += down
	if t.Upvotes < 0 {
		t.Upvotes = 0
	}
	if t.Downvotes < 0 {
		t.Downvotes = 0
	}
	return t
}

// Score is upvotes minus downvotes.
func (t Tally) Score() int {
	return t.Upvotes - t.Downvotes
}

// VoteView is what a viewer sees for one subject.
type VoteView struct {
	UserVote VoteState `json:"userVote"`
	Tally
}

// Reconcile recomputes a view after Toggle returned next. It is the only place
// optimistic counter arithmetic is done; the result matches a fresh read.
func Reconcile(v VoteView, next VoteState) VoteView {
	return VoteView{UserVote: next, Tally: v.Tally.Apply(v.UserVote, next)}
}

// PostVote is one user's vote on a post. The (post, user) pair is unique.
type PostVote struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_votes_subject_user" json:"post_id"`
	Post      *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_votes_subject_user;index" json:"user_id"`
	Direction Direction `gorm:"type:smallint;not null;check:chk_post_votes_direction,direction IN (-1, 1)" json:"direction"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentVote is one user's vote on a comment. The (comment, user) pair is unique.
type CommentVote struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CommentID string    `gorm:"type:uuid;not null;uniqueIndex:idx_comment_votes_subject_user" json:"comment_id"`
	Comment   *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_comment_votes_subject_user;index" json:"user_id"`
	Direction Direction `gorm:"type:smallint;not null;check:chk_comment_votes_direction,direction IN (-1, 1)" json:"direction"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *PostVote) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

func (v *CommentVote) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
