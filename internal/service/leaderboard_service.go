package service

import (
	"codegrow_backend/internal/repository"
	"codegrow_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const leaderboardKeyPrefix = "codegrow:leaderboard:"

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank                int    `json:"rank"`
	UserID              uint   `json:"userId"`
	Name                string `json:"name"`
	Avatar              string `json:"avatar"`
	CurrentStreak       int    `json:"currentStreak"`
	LongestStreak       int    `json:"longestStreak"`
	CompletedTasksCount int    `json:"completedTasksCount"`
}

// LeaderboardService 按当前 streak 排序的用户榜单。Redis 为 nil 时不缓存。
type LeaderboardService struct {
	UserRepo *repository.UserRepository
	Redis    *redis.Client

	ttl atomic.Int64 // time.Duration，可热更新
}

func NewLeaderboardService(userRepo *repository.UserRepository, rdb *redis.Client, ttl time.Duration) *LeaderboardService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	s := &LeaderboardService{
		UserRepo: userRepo,
		Redis:    rdb,
	}
	s.ttl.Store(int64(ttl))
	return s
}

func leaderboardKey(limit int) string {
	return fmt.Sprintf("%s%d", leaderboardKeyPrefix, limit)
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, leaderboardKey(limit)).Bytes()
		if err == nil {
			var entries []LeaderboardEntry
			if err := json.Unmarshal(cached, &entries); err == nil {
				return entries, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("Leaderboard cache read failed", zap.Error(err))
		}
	}

	users, err := s.UserRepo.FindTopByStreak(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:                i + 1,
			UserID:              u.ID,
			Name:                u.Name,
			Avatar:              u.Avatar,
			CurrentStreak:       u.CurrentStreak,
			LongestStreak:       u.LongestStreak,
			CompletedTasksCount: u.CompletedTasksCount,
		})
	}

	if s.Redis != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.Redis.Set(ctx, leaderboardKey(limit), data, s.TTL()).Err(); err != nil {
				logger.Log.Warn("Leaderboard cache write failed", zap.Error(err))
			}
		}
	}
	return entries, nil
}

// Invalidate 删除所有 limit 下的缓存
func (s *LeaderboardService) Invalidate(ctx context.Context) error {
	if s == nil || s.Redis == nil {
		return nil
	}

	var keys []string
	iter := s.Redis.Scan(ctx, 0, leaderboardKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Redis.Del(ctx, keys...).Err()
}

// SetTTL 配置热更新
func (s *LeaderboardService) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl.Store(int64(ttl))
	}
}

// TTL 当前缓存有效期
func (s *LeaderboardService) TTL() time.Duration {
	return time.Duration(s.ttl.Load())
}
