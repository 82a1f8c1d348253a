package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"blockiq/internal/cache"
	"blockiq/internal/catalog"
	"blockiq/internal/model"
)

const (
	BoardDaily      = "daily"
	DefaultTopLimit = 10
	MaxTopLimit     = 100
)

// CategorySummary pairs a category's catalog size with how players fare on it
type CategorySummary struct {
	Category        model.Category `json:"category"`
	Questions       int            `json:"questions"`
	Answered        int64          `json:"answered"`
	Correct         int64          `json:"correct"`
	AccuracyPercent int            `json:"accuracyPercent"`
}

// LeaderboardService ranks unlocked results and aggregates category stats
type LeaderboardService struct {
	leaderboard cache.LeaderboardCache
	stats       cache.StatsCache
	catalog     catalog.Source
	now         func() time.Time
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(lb cache.LeaderboardCache, stats cache.StatsCache, source catalog.Source) *LeaderboardService {
	return &LeaderboardService{
		leaderboard: lb,
		stats:       stats,
		catalog:     source,
		now:         time.Now,
	}
}

// Record adds an unlocked result to the all-time and daily boards and to
// the category stats
func (s *LeaderboardService) Record(ctx context.Context, result *model.QuizResult) error {
	var errs []error
	for _, board := range []string{cache.BoardAllTime, cache.DailyBoard(result.UnlockedAt)} {
		if err := s.leaderboard.UpdateScore(ctx, board, result.PlayerID, result.Score.FinalScore); err != nil {
			errs = append(errs, fmt.Errorf("board %s: %w", board, err))
		}
	}
	if err := s.stats.Record(ctx, result.Review); err != nil {
		errs = append(errs, fmt.Errorf("stats: %w", err))
	}
	return errors.Join(errs...)
}

// Top returns the best scores on board ("alltime" or "daily")
func (s *LeaderboardService) Top(ctx context.Context, board string, limit int) ([]model.LeaderboardEntry, error) {
	key, err := s.resolve(board)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	return s.leaderboard.GetTop(ctx, key, limit)
}

// Rank returns the player's 1-based rank on board, or -1
func (s *LeaderboardService) Rank(ctx context.Context, board, playerID string) (int64, error) {
	key, err := s.resolve(board)
	if err != nil {
		return -1, err
	}
	return s.leaderboard.GetRank(ctx, key, playerID)
}

// Categories summarizes every category
func (s *LeaderboardService) Categories(ctx context.Context) ([]CategorySummary, error) {
	questions, err := s.catalog.Questions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	stats, err := s.stats.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	byCategory := make(map[model.Category]cache.CategoryStat, len(stats))
	for _, st := range stats {
		byCategory[st.Category] = st
	}

	counts := catalog.CountByCategory(questions)
	out := make([]CategorySummary, len(counts))
	for i, c := range counts {
		st := byCategory[c.Category]
		out[i] = CategorySummary{
			Category:  c.Category,
			Questions: c.Count,
			Answered:  st.Answered,
			Correct:   st.Correct,
		}
		if st.Answered > 0 {
			out[i].AccuracyPercent = int(math.Round(float64(st.Correct) / float64(st.Answered) * 100))
		}
	}
	return out, nil
}

func (s *LeaderboardService) resolve(board string) (string, error) {
	switch board {
	case "", cache.BoardAllTime:
		return cache.BoardAllTime, nil
	case BoardDaily:
		return cache.DailyBoard(s.now()), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBoard, board)
	}
}
