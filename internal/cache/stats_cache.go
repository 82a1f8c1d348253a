package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"blockiq/internal/model"
)

// CategoryStat aggregates answers to one category across unlocked results
type CategoryStat struct {
	Category model.Category `json:"category"`
	Answered int64          `json:"answered"`
	Correct  int64          `json:"correct"`
}

// StatsCache counts per-category outcomes from reviewed results
type StatsCache interface {
	Record(ctx context.Context, review []model.ReviewItem) error
	Categories(ctx context.Context) ([]CategoryStat, error)
}

type statsCache struct {
	client *redis.Client
}

// NewStatsCache creates a Redis hash-backed stats cache
func NewStatsCache(client *redis.Client) StatsCache {
	return &statsCache{client: client}
}

func (c *statsCache) key() string {
	return "quiz:stats:categories"
}

func answeredField(cat model.Category) string { return string(cat) + ":answered" }
func correctField(cat model.Category) string  { return string(cat) + ":correct" }

func (c *statsCache) Record(ctx context.Context, review []model.ReviewItem) error {
	if len(review) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range review {
			if item.Verdict == model.VerdictUnanswered {
				continue
			}
			pipe.HIncrBy(ctx, c.key(), answeredField(item.Category), 1)
			if item.Verdict == model.VerdictCorrect {
				pipe.HIncrBy(ctx, c.key(), correctField(item.Category), 1)
			}
		}
		return nil
	})
	return err
}

func (c *statsCache) Categories(ctx context.Context) ([]CategoryStat, error) {
	raw, err := c.client.HGetAll(ctx, c.key()).Result()
	if err != nil {
		return nil, err
	}

	stats := make([]CategoryStat, 0, len(model.Categories))
	for _, cat := range model.Categories {
		s := CategoryStat{Category: cat}
		if s.Answered, err = parseCount(raw[answeredField(cat)]); err != nil {
			return nil, err
		}
		if s.Correct, err = parseCount(raw[correctField(cat)]); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func parseCount(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt stats counter %q: %w", v, err)
	}
	return n, nil
}
