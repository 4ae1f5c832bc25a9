package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"agora/internal/apperr"
	"agora/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// voteTable names the tables and foreign key column behind one subject kind.
type voteTable struct {
	subjects string
	votes    string
	fk       string
}

var voteTables = map[models.SubjectKind]voteTable{
	models.SubjectPost:    {subjects: "posts", votes: "post_votes", fk: "post_id"},
	models.SubjectComment: {subjects: "comments", votes: "comment_votes", fk: "comment_id"},
}

func tableFor(kind models.SubjectKind) (voteTable, error) {
	t, ok := voteTables[kind]
	if !ok {
		return voteTable{}, apperr.Invalid("unknown subject kind %q", kind)
	}
	return t, nil
}

func (s *GormStore) ApplyVote(ctx context.Context, kind models.SubjectKind, subjectID, userID string, d models.Direction) (models.VoteState, models.VoteState, error) {
	t, err := tableFor(kind)
	if err != nil {
		return models.NoVote, models.NoVote, err
	}

	var prev, next models.VoteState
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住被投票的行，串行化同一对象上的并发投票
		var subject []struct{ ID string }
		res := tx.Table(t.subjects).Select("id").Where("id = ?", subjectID).
			Clauses(clause.Locking{Strength: "UPDATE"}).Limit(1).Find(&subject)
		if res.Error != nil {
			return res.Error
		}
		if len(subject) == 0 {
			return apperr.NotFound(string(kind), subjectID)
		}

		var existing []struct{ Direction int }
		if err := tx.Table(t.votes).Select("direction").
			Where(t.fk+" = ? AND user_id = ?", subjectID, userID).
			Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			prev = models.VoteState(existing[0].Direction)
		}
		next = prev.Toggle(d)

		switch {
		case prev == models.NoVote:
			if err := insertVote(tx, kind, subjectID, userID, d); err != nil {
				return err
			}
		case next == models.NoVote:
			if err := tx.Exec("DELETE FROM "+t.votes+" WHERE "+t.fk+" = ? AND user_id = ?", subjectID, userID).Error; err != nil {
				return err
			}
		default:
			if err := tx.Table(t.votes).Where(t.fk+" = ? AND user_id = ?", subjectID, userID).
				UpdateColumns(map[string]any{"direction": int(next), "updated_at": time.Now()}).Error; err != nil {
				return err
			}
		}

		up, down := models.Delta(prev, next)
		return tx.Table(t.subjects).Where("id = ?", subjectID).UpdateColumns(map[string]any{
			"upvotes":   gorm.Expr("GREATEST(upvotes + ?, 0)", up),
			"downvotes": gorm.Expr("GREATEST(downvotes + ?, 0)", down),
		}).Error
	})
	if err != nil {
		return models.NoVote, models.NoVote, wrap("apply vote", err)
	}
	return prev, next, nil
}

func insertVote(tx *gorm.DB, kind models.SubjectKind, subjectID, userID string, d models.Direction) error {
	if kind == models.SubjectPost {
		return tx.Create(&models.PostVote{PostID: subjectID, UserID: userID, Direction: d}).Error
	}
	return tx.Create(&models.CommentVote{CommentID: subjectID, UserID: userID, Direction: d}).Error
}

func (s *GormStore) VoteStates(ctx context.Context, kind models.SubjectKind, userID string, subjectIDs []string) (map[string]models.VoteState, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	states := make(map[string]models.VoteState)
	ids := uniqueIDs(subjectIDs)
	if userID == "" || len(ids) == 0 {
		return states, nil
	}

	var rows []struct {
		SubjectID string
		Direction int
	}
	if err := s.db.WithContext(ctx).Table(t.votes).
		Select(t.fk+" AS subject_id, direction").
		Where("user_id = ? AND "+t.fk+" IN ?", userID, ids).
		Scan(&rows).Error; err != nil {
		return nil, wrap("load votes", err)
	}
	for _, r := range rows {
		states[r.SubjectID] = models.VoteState(r.Direction)
	}
	return states, nil
}

// ---- comments ----

func (s *GormStore) TopLevelComments(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := s.db.WithContext(ctx).
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at ASC, seq ASC").
		Find(&comments).Error; err != nil {
		return nil, wrap("list comments", err)
	}
	return comments, nil
}

func (s *GormStore) Replies(ctx context.Context, parentIDs []string) ([]models.Comment, error) {
	replies := []models.Comment{}
	ids := uniqueIDs(parentIDs)
	if len(ids) == 0 {
		return replies, nil
	}
	if err := s.db.WithContext(ctx).
		Where("parent_id IN ?", ids).
		Order("created_at ASC, seq ASC").
		Find(&replies).Error; err != nil {
		return nil, wrap("list replies", err)
	}
	return replies, nil
}

func (s *GormStore) GetComment(ctx context.Context, id string) (models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c, apperr.NotFound("comment", id)
		}
		return c, wrap("get comment", err)
	}
	return c, nil
}

func (s *GormStore) CreateComment(ctx context.Context, c *models.Comment) error {
	return wrap("create comment", s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) CommentCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	ids := uniqueIDs(postIDs)
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []struct {
		PostID string
		N      int
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, wrap("count comments", err)
	}
	for _, r := range rows {
		counts[r.PostID] = r.N
	}
	return counts, nil
}

// ---- posts ----

func (s *GormStore) PostExists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		err = wrap("check post", err)
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

func (s *GormStore) GetPost(ctx context.Context, id string) (models.Post, error) {
	return s.firstPost(ctx, "id = ?", id)
}

func (s *GormStore) GetPostBySlug(ctx context.Context, slug string) (models.Post, error) {
	return s.firstPost(ctx, "slug = ?", slug)
}

func (s *GormStore) firstPost(ctx context.Context, cond string, arg string) (models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).Preload("Category").First(&p, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, apperr.NotFound("post", arg)
		}
		return p, wrap("get post", err)
	}
	return p, nil
}

func (s *GormStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, wrap("check slug", err)
	}
	return n > 0, nil
}

func (s *GormStore) CreatePost(ctx context.Context, p *models.Post) error {
	return wrap("create post", s.db.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) LatestPosts(ctx context.Context, limit int) ([]models.Post, error) {
	return s.listPosts(ctx, "is_pinned DESC, created_at DESC", limit)
}

func (s *GormStore) TrendingPosts(ctx context.Context, limit int) ([]models.Post, error) {
	return s.listPosts(ctx, "hot_score DESC, created_at DESC", limit)
}

func (s *GormStore) listPosts(ctx context.Context, order string, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	if err := s.db.WithContext(ctx).Preload("Category").Order(order).Limit(limit).Find(&posts).Error; err != nil {
		return nil, wrap("list posts", err)
	}
	return posts, nil
}

func (s *GormStore) SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	pattern := "%" + escapeLike(query) + "%"
	if err := s.db.WithContext(ctx).Preload("Category").
		Where("title ILIKE ? OR content ILIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, wrap("search posts", err)
	}
	return posts, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *GormStore) IncrementViews(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return wrap("record view", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("post", id)
	}
	return nil
}

func (s *GormStore) PostStats(ctx context.Context, id string) (models.PostStats, error) {
	var stats models.PostStats
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return stats, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", id).Count(&n).Error; err != nil {
		return stats, wrap("count comments", err)
	}
	stats = models.PostStats{CreatedAt: p.CreatedAt, Upvotes: p.Upvotes, Downvotes: p.Downvotes, Comments: int(n)}
	return stats, nil
}

func (s *GormStore) SetHotScore(ctx context.Context, id string, score float64) error {
	return wrap("set hot score", s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("hot_score", score).Error)
}

func (s *GormStore) RecentPostIDs(ctx context.Context, since time.Time) ([]string, error) {
	ids := []string{}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("created_at >= ?", since).Pluck("id", &ids).Error; err != nil {
		return nil, wrap("list recent posts", err)
	}
	return ids, nil
}

// ---- profiles ----

func (s *GormStore) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, apperr.NotFound("profile", id)
		}
		return p, wrap("get profile", err)
	}
	return p, nil
}

func (s *GormStore) ProfilesByID(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, wrap("load profiles", err)
	}
	for i := range profiles {
		out[profiles[i].ID] = &profiles[i]
	}
	return out, nil
}

func (s *GormStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, wrap("check username", err)
	}
	return n > 0, nil
}

// CreateProfile inserts p unless a profile with the same id already exists.
func (s *GormStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	return wrap("create profile", s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(p).Error)
}

// ---- categories ----

func (s *GormStore) Categories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, wrap("list categories", err)
	}
	return categories, nil
}

func (s *GormStore) GetCategory(ctx context.Context, id string) (models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c, apperr.NotFound("category", id)
		}
		return c, wrap("get category", err)
	}
	return c, nil
}

// SeedCategories inserts categories only into an empty table.
func (s *GormStore) SeedCategories(ctx context.Context, categories []models.Category) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Count(&n).Error; err != nil {
		return wrap("count categories", err)
	}
	if n > 0 || len(categories) == 0 {
		return nil
	}
	return wrap("seed categories", s.db.WithContext(ctx).Create(&categories).Error)
}
