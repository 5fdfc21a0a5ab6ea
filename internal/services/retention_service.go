package services

import (
	"context"
	"time"

	"chatroom-service/pkg/logger"
)

type MessagePruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionService deletes messages older than maxAge on a fixed interval.
type RetentionService struct {
	pruner   MessagePruner
	maxAge   time.Duration
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewRetentionService(pruner MessagePruner, maxAge, interval time.Duration, log *logger.Logger) *RetentionService {
	return &RetentionService{
		pruner:   pruner,
		maxAge:   maxAge,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// RunOnce performs a single pass and reports how many messages were removed.
func (s *RetentionService) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge)
	deleted, err := s.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error("message retention failed", "cutoff", cutoff, "error", err)
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("deleted old messages", "count", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// Run prunes immediately and then every interval until ctx is done. A
// non-positive interval prunes once and returns.
func (s *RetentionService) Run(ctx context.Context) {
	s.RunOnce(ctx)
	if s.interval <= 0 {
		s.log.Error("retention interval must be positive, periodic pruning disabled", "interval", s.interval)
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
