package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chatroom-service/internal/database"
	"chatroom-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const onlineUsersKey = "online_users"

type RedisService struct {
	client *database.RedisClient
	log    *logger.Logger
}

func NewRedisService(client *database.RedisClient, log *logger.Logger) *RedisService {
	return &RedisService{
		client: client,
		log:    log,
	}
}

func statusKey(userID uint) string {
	return fmt.Sprintf("user:%d:status", userID)
}

// =============================================================================
// User Status Management
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, userID uint) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SAdd(ctx, onlineUsersKey, userID)
	pipe.HSet(ctx, statusKey(userID), map[string]interface{}{
		"status":     "online",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, statusKey(userID), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("failed to set user online", "userID", userID, "error", err)
		return err
	}

	r.log.Debug("user set to online", "userID", userID)
	return nil
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID uint) error {
	pipe := r.client.GetClient().Pipeline()

	pipe.SRem(ctx, onlineUsersKey, userID)
	pipe.HSet(ctx, statusKey(userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	// Offline status outlives online so last_seen stays readable.
	pipe.Expire(ctx, statusKey(userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("failed to set user offline", "userID", userID, "error", err)
		return err
	}

	r.log.Debug("user set to offline", "userID", userID)
	return nil
}

// GetOnlineUsers lists the users the mirror currently reports as online.
func (r *RedisService) GetOnlineUsers(ctx context.Context) ([]uint, error) {
	members, err := r.client.GetClient().SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit is a sliding window over a sorted set. It reports whether the
// current request is within limit.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := r.client.GetClient().Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() < int64(limit), nil
}
