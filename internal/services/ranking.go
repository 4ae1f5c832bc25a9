package services

import (
	"context"
	"sync"
	"time"

	"agora/internal/store"
	"agora/internal/utils"

	"go.uber.org/zap"
)

const (
	rankingQueueSize = 1000
	rankingBatchSize = 50
	rankingFlush     = 500 * time.Millisecond
	rankingRefresh   = time.Hour
	rankingWindow    = 7 * 24 * time.Hour
)

// RankingService 异步计算并更新帖子的 hot_score
type RankingService struct {
	store   store.PostStore
	logger  *zap.Logger
	queue   chan string // 待更新的帖子 ID 队列
	pending map[string]bool
	mu      sync.Mutex
}

func NewRankingService(s store.PostStore, logger *zap.Logger) *RankingService {
	return &RankingService{
		store:   s,
		logger:  logger.Named("ranking_service"),
		queue:   make(chan string, rankingQueueSize),
		pending: make(map[string]bool),
	}
}

// ScheduleUpdate queues a post for recomputation. Posts already queued are skipped,
// and a full queue drops the request rather than block the caller.
func (s *RankingService) ScheduleUpdate(postID string) {
	s.mu.Lock()
	if s.pending[postID] {
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	select {
	case s.queue <- postID:
	default:
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		s.logger.Warn("Ranking queue full, dropping update", zap.String("post_id", postID))
	}
}

// Run processes queued updates in batches and periodically refreshes recent posts
// so their scores keep decaying. It returns when ctx is done.
func (s *RankingService) Run(ctx context.Context) {
	batch := make([]string, 0, rankingBatchSize)
	flush := time.NewTicker(rankingFlush)
	defer flush.Stop()
	refresh := time.NewTicker(rankingRefresh)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case postID := <-s.queue:
			batch = append(batch, postID)
			if len(batch) >= rankingBatchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-flush.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-refresh.C:
			s.RefreshRecent(ctx)
		}
	}
}

func (s *RankingService) processBatch(ctx context.Context, postIDs []string) {
	for _, postID := range postIDs {
		// 先清除标记，计算期间到达的更新会重新入队
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()

		if err := s.UpdateNow(ctx, postID); err != nil {
			s.logger.Warn("Failed to update hot score", zap.String("post_id", postID), zap.Error(err))
		}
	}
}

// UpdateNow recomputes one post's score synchronously.
func (s *RankingService) UpdateNow(ctx context.Context, postID string) error {
	stats, err := s.store.PostStats(ctx, postID)
	if err != nil {
		return err
	}
	score := utils.CalculateScore(stats.CreatedAt, stats.Upvotes, stats.Downvotes, stats.Comments)
	return s.store.SetHotScore(ctx, postID, score)
}

// RefreshRecent recomputes every post created within the ranking window.
func (s *RankingService) RefreshRecent(ctx context.Context) {
	ids, err := s.store.RecentPostIDs(ctx, time.Now().Add(-rankingWindow))
	if err != nil {
		s.logger.Warn("Failed to list recent posts", zap.Error(err))
		return
	}
	for _, id := range ids {
		if err := s.UpdateNow(ctx, id); err != nil {
			s.logger.Warn("Failed to update hot score", zap.String("post_id", id), zap.Error(err))
		}
	}
	s.logger.Debug("Refreshed hot scores", zap.Int("count", len(ids)))
}
