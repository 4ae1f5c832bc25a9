package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/internal/apperr"
	"agora/internal/models"

	"github.com/google/uuid"
)

type voteKey struct {
	kind      models.SubjectKind
	subjectID string
	userID    string
}

// MemoryStore is an in-process Store for tests and local runs without Postgres.
// A single mutex serializes every operation, so ApplyVote is atomic.
type MemoryStore struct {
	mu         sync.RWMutex
	now        func() time.Time
	seq        int64
	posts      map[string]*models.Post
	comments   map[string]*models.Comment
	profiles   map[string]models.Profile
	categories map[string]models.Category
	votes      map[voteKey]models.Direction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:        time.Now,
		posts:      make(map[string]*models.Post),
		comments:   make(map[string]*models.Comment),
		profiles:   make(map[string]models.Profile),
		categories: make(map[string]models.Category),
		votes:      make(map[voteKey]models.Direction),
	}
}

func (s *MemoryStore) ApplyVote(_ context.Context, kind models.SubjectKind, subjectID, userID string, d models.Direction) (models.VoteState, models.VoteState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var up, down *int
	switch kind {
	case models.SubjectPost:
		p, ok := s.posts[subjectID]
		if !ok {
			return models.NoVote, models.NoVote, apperr.NotFound("post", subjectID)
		}
		up, down = &p.Upvotes, &p.Downvotes
	case models.SubjectComment:
		c, ok := s.comments[subjectID]
		if !ok {
			return models.NoVote, models.NoVote, apperr.NotFound("comment", subjectID)
		}
		up, down = &c.Upvotes, &c.Downvotes
	default:
		return models.NoVote, models.NoVote, apperr.Invalid("unknown subject kind %q", kind)
	}

	key := voteKey{kind: kind, subjectID: subjectID, userID: userID}
	prev := models.NoVote
	if dir, ok := s.votes[key]; ok {
		prev = models.VoteState(dir)
	}
	next := prev.Toggle(d)
	if next == models.NoVote {
		delete(s.votes, key)
	} else {
		s.votes[key] = models.Direction(next)
	}
	t := models.Tally{Upvotes: *up, Downvotes: *down}.Apply(prev, next)
	*up, *down = t.Upvotes, t.Downvotes
	return prev, next, nil
}

func (s *MemoryStore) VoteStates(_ context.Context, kind models.SubjectKind, userID string, subjectIDs []string) (map[string]models.VoteState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make(map[string]models.VoteState)
	if userID == "" {
		return states, nil
	}
	for _, id := range subjectIDs {
		if dir, ok := s.votes[voteKey{kind: kind, subjectID: id, userID: userID}]; ok {
			states[id] = models.VoteState(dir)
		}
	}
	return states, nil
}

// ---- comments ----

func (s *MemoryStore) TopLevelComments(_ context.Context, postID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID && c.ParentID == nil {
			out = append(out, *c)
		}
	}
	sortComments(out)
	return out, nil
}

func (s *MemoryStore) Replies(_ context.Context, parentIDs []string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parents := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}
	out := []models.Comment{}
	for _, c := range s.comments {
		if c.ParentID != nil && parents[*c.ParentID] {
			out = append(out, *c)
		}
	}
	sortComments(out)
	return out, nil
}

func sortComments(cs []models.Comment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].Seq < cs[j].Seq
	})
}

func (s *MemoryStore) GetComment(_ context.Context, id string) (models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return models.Comment{}, apperr.NotFound("comment", id)
	}
	return *c, nil
}

func (s *MemoryStore) CreateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[c.PostID]; !ok {
		return apperr.NotFound("post", c.PostID)
	}
	if c.ParentID != nil {
		if _, ok := s.comments[*c.ParentID]; !ok {
			return apperr.NotFound("comment", *c.ParentID)
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.comments[c.ID]; ok {
		return apperr.Storage("create comment", fmt.Errorf("duplicate id %s", c.ID))
	}
	s.seq++
	c.Seq = s.seq
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	stored := *c
	stored.Author = nil
	s.comments[c.ID] = &stored
	return nil
}

func (s *MemoryStore) CommentCounts(_ context.Context, postIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		want[id] = true
	}
	counts := make(map[string]int)
	for _, c := range s.comments {
		if want[c.PostID] {
			counts[c.PostID]++
		}
	}
	return counts, nil
}

// ---- posts ----

func (s *MemoryStore) PostExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.posts[id]
	return ok, nil
}

func (s *MemoryStore) GetPost(_ context.Context, id string) (models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return models.Post{}, apperr.NotFound("post", id)
	}
	return s.postCopy(p), nil
}

func (s *MemoryStore) GetPostBySlug(_ context.Context, slug string) (models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.posts {
		if p.Slug == slug {
			return s.postCopy(p), nil
		}
	}
	return models.Post{}, apperr.NotFound("post", slug)
}

// postCopy returns a detached copy with Category loaded. Caller holds mu.
func (s *MemoryStore) postCopy(p *models.Post) models.Post {
	out := *p
	out.Author = nil
	out.Category = nil
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			out.Category = &c
		}
	}
	return out
}

func (s *MemoryStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.posts {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.posts {
		if existing.Slug == p.Slug {
			return apperr.Storage("create post", fmt.Errorf("slug %q already exists", p.Slug))
		}
	}
	if p.CategoryID != nil {
		if _, ok := s.categories[*p.CategoryID]; !ok {
			return apperr.NotFound("category", *p.CategoryID)
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	stored := *p
	stored.Author = nil
	stored.Category = nil
	s.posts[p.ID] = &stored
	return nil
}

func (s *MemoryStore) LatestPosts(_ context.Context, limit int) ([]models.Post, error) {
	return s.listPosts(limit, nil, func(a, b *models.Post) bool {
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *MemoryStore) TrendingPosts(_ context.Context, limit int) ([]models.Post, error) {
	return s.listPosts(limit, nil, func(a, b *models.Post) bool {
		if a.HotScore != b.HotScore {
			return a.HotScore > b.HotScore
		}
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *MemoryStore) SearchPosts(_ context.Context, query string, limit int) ([]models.Post, error) {
	q := strings.ToLower(query)
	match := func(p *models.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q)
	}
	return s.listPosts(limit, match, func(a, b *models.Post) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *MemoryStore) listPosts(limit int, match func(*models.Post) bool, less func(a, b *models.Post) bool) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	picked := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if match == nil || match(p) {
			picked = append(picked, p)
		}
	}
	sort.Slice(picked, func(i, j int) bool { return less(picked[i], picked[j]) })
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}
	out := make([]models.Post, len(picked))
	for i, p := range picked {
		out[i] = s.postCopy(p)
	}
	return out
}

func (s *MemoryStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return apperr.NotFound("post", id)
	}
	p.ViewCount++
	return nil
}

func (s *MemoryStore) PostStats(_ context.Context, id string) (models.PostStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return models.PostStats{}, apperr.NotFound("post", id)
	}
	stats := models.PostStats{CreatedAt: p.CreatedAt, Upvotes: p.Upvotes, Downvotes: p.Downvotes}
	for _, c := range s.comments {
		if c.PostID == id {
			stats.Comments++
		}
	}
	return stats, nil
}

func (s *MemoryStore) SetHotScore(_ context.Context, id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.posts[id]; ok {
		p.HotScore = score
	}
	return nil
}

func (s *MemoryStore) RecentPostIDs(_ context.Context, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	for id, p := range s.posts {
		if !p.CreatedAt.Before(since) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ---- profiles ----

func (s *MemoryStore) GetProfile(_ context.Context, id string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return models.Profile{}, apperr.NotFound("profile", id)
	}
	return p, nil
}

func (s *MemoryStore) ProfilesByID(_ context.Context, ids []string) (map[string]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*models.Profile)
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (s *MemoryStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.ID]; ok {
		return nil
	}
	for _, existing := range s.profiles {
		if existing.Username == p.Username {
			return apperr.Storage("create profile", fmt.Errorf("username %q already exists", p.Username))
		}
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.profiles[p.ID] = *p
	return nil
}

// ---- categories ----

func (s *MemoryStore) Categories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetCategory(_ context.Context, id string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return models.Category{}, apperr.NotFound("category", id)
	}
	return c, nil
}

func (s *MemoryStore) SeedCategories(_ context.Context, categories []models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.categories) > 0 {
		return nil
	}
	for _, c := range categories {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = s.now()
		s.categories[c.ID] = c
	}
	return nil
}
