package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Post struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Slug       string    `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Title      string    `gorm:"not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	AuthorID   string    `gorm:"type:uuid;not null;index" json:"author_id"`
	CategoryID *string   `gorm:"type:uuid;index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	IsPinned   bool      `gorm:"default:false" json:"is_pinned"`
	IsLocked   bool      `gorm:"default:false" json:"is_locked"`
	ViewCount  int       `gorm:"not null;default:0" json:"view_count"`
	Upvotes    int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes  int       `gorm:"not null;default:0" json:"downvotes"`
	HotScore   float64   `gorm:"not null;default:0;index" json:"hot_score"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// 非数据库字段，查询时填充
	Author       *Profile `gorm:"-" json:"author"`
	CommentCount int      `gorm:"-" json:"comment_count"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Post) Tally() Tally {
	return Tally{Upvotes: p.Upvotes, Downvotes: p.Downvotes}
}

// PostStats is what the trending score is computed from.
type PostStats struct {
	CreatedAt time.Time
	Upvotes   int
	Downvotes int
	Comments  int
}
