package models

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/TankStorm-Server/pkg/db"
)

// RedisLeaderboard Redis胜场排行榜管理器
type RedisLeaderboard struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisLeaderboard 创建Redis排行榜管理器
func NewRedisLeaderboard() *RedisLeaderboard {
	return &RedisLeaderboard{
		client: db.RedisClient,
		ctx:    context.Background(),
	}
}

// 排行榜Redis键名
const (
	// LeaderboardWinsKey 胜场排行榜
	LeaderboardWinsKey = "leaderboard:battle_wins"
)

// WinnerEntry 排行榜条目
type WinnerEntry struct {
	UserID string `json:"user_id"`
	Wins   int64  `json:"wins"`
	Rank   int    `json:"rank"`
}

// RecordWin 记录一场胜利
func (rl *RedisLeaderboard) RecordWin(userID string) error {
	return rl.client.ZIncrBy(rl.ctx, LeaderboardWinsKey, 1, userID).Err()
}

// GetTopWinners 获取胜场最多的玩家（降序）
func (rl *RedisLeaderboard) GetTopWinners(limit int) ([]WinnerEntry, error) {
	members, err := rl.client.ZRevRangeWithScores(rl.ctx, LeaderboardWinsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]WinnerEntry, 0, len(members))
	for i, member := range members {
		userID, ok := member.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, WinnerEntry{
			UserID: userID,
			Wins:   int64(member.Score),
			Rank:   i + 1,
		})
	}

	return entries, nil
}

// GetPlayerWins 获取指定玩家的胜场与排名
func (rl *RedisLeaderboard) GetPlayerWins(userID string) (wins int64, rank int, err error) {
	score, err := rl.client.ZScore(rl.ctx, LeaderboardWinsKey, userID).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, -1, nil // 玩家不在排行榜中
		}
		return 0, -1, err
	}

	r, err := rl.client.ZRevRank(rl.ctx, LeaderboardWinsKey, userID).Result()
	if err != nil {
		return 0, -1, err
	}

	// Redis排名从0开始，转换为从1开始
	return int64(score), int(r) + 1, nil
}
