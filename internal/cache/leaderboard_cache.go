package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"blockiq/internal/model"
)

// BoardAllTime names the board that never resets
const BoardAllTime = "alltime"

// DailyBoard names the board for the UTC day containing t
func DailyBoard(t time.Time) string {
	return "daily:" + t.UTC().Format("2006-01-02")
}

// LeaderboardCache keeps each player's best final score per board
type LeaderboardCache interface {
	UpdateScore(ctx context.Context, board, playerID string, score int) error
	GetTop(ctx context.Context, board string, limit int) ([]model.LeaderboardEntry, error)
	// GetRank returns the 1-based rank, or -1 when the player has no score
	GetRank(ctx context.Context, board, playerID string) (int64, error)
}

type leaderboardCache struct {
	client   *redis.Client
	dailyTTL time.Duration
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client:   client,
		dailyTTL: 48 * time.Hour,
	}
}

func (c *leaderboardCache) key(board string) string {
	return fmt.Sprintf("quiz:lb:%s", board)
}

func (c *leaderboardCache) UpdateScore(ctx context.Context, board, playerID string, score int) error {
	key := c.key(board)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// GT keeps the higher of the stored and new score
		pipe.ZAddGT(ctx, key, redis.Z{
			Score:  float64(score),
			Member: playerID,
		})
		if board != BoardAllTime {
			pipe.Expire(ctx, key, c.dailyTTL)
		}
		return nil
	})
	return err
}

func (c *leaderboardCache) GetTop(ctx context.Context, board string, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		return []model.LeaderboardEntry{}, nil
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(board), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = model.LeaderboardEntry{
			PlayerID: z.Member.(string),
			Score:    int(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, board, playerID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(board), playerID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return rank + 1, nil // 1-indexed
}
