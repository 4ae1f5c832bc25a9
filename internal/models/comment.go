package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment belongs to a post. ParentID is nil for top-level comments.
type Comment struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Seq       int64     `gorm:"autoIncrement;not null;index" json:"-"` // insertion order, breaks created_at ties
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  string    `gorm:"type:uuid;not null;index" json:"author_id"`
	PostID    string    `gorm:"type:uuid;not null;index" json:"post_id"`
	Post      *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentID  *string   `gorm:"type:uuid;index" json:"parent_id"`
	Parent    *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Upvotes   int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int       `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author *Profile `gorm:"-" json:"author"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c *Comment) Tally() Tally {
	return Tally{Upvotes: c.Upvotes, Downvotes: c.Downvotes}
}

// CommentNode is one entry of an assembled comment tree.
type CommentNode struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Author    *Profile      `json:"author"`
	CreatedAt time.Time     `json:"createdAt"`
	Upvotes   int           `json:"upvotes"`
	Downvotes int           `json:"downvotes"`
	UserVote  VoteState     `json:"userVote"`
	Replies   []CommentNode `json:"replies"`
}

// NewCommentNode builds a node without replies or viewer annotation.
func NewCommentNode(c Comment) CommentNode {
	return CommentNode{
		ID:        c.ID,
		Content:   c.Content,
		Author:    c.Author,
		CreatedAt: c.CreatedAt,
		Upvotes:   c.Upvotes,
		Downvotes: c.Downvotes,
		Replies:   []CommentNode{},
	}
}

// View is the node's vote view for reconciliation.
func (n CommentNode) View() VoteView {
	return VoteView{UserVote: n.UserVote, Tally: Tally{Upvotes: n.Upvotes, Downvotes: n.Downvotes}}
}
