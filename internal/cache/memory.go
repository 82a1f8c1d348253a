package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"blockiq/internal/model"
)

// In-memory fallbacks used when no Redis is configured. Data is lost on
// restart.

// MemorySessionCache keeps sessions in a map. Sessions are stored as JSON
// so callers never share a pointer with the cache.
type MemorySessionCache struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{sessions: make(map[string][]byte)}
}

func (m *MemorySessionCache) Set(_ context.Context, session *model.QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = data
	return nil
}

func (m *MemorySessionCache) Get(_ context.Context, id string) (*model.QuizSession, error) {
	m.mu.RLock()
	data, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var session model.QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (m *MemorySessionCache) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// MemoryLeaderboard mirrors the Redis ZSET semantics: best score per
// player, ties ordered by player id descending.
type MemoryLeaderboard struct {
	mu     sync.RWMutex
	boards map[string]map[string]int
}

func NewMemoryLeaderboard() *MemoryLeaderboard {
	return &MemoryLeaderboard{boards: make(map[string]map[string]int)}
}

func (m *MemoryLeaderboard) UpdateScore(_ context.Context, board, playerID string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.boards[board]
	if !ok {
		b = make(map[string]int)
		m.boards[board] = b
	}
	if prev, ok := b[playerID]; !ok || score > prev {
		b[playerID] = score
	}
	return nil
}

func (m *MemoryLeaderboard) sorted(board string) []model.LeaderboardEntry {
	b := m.boards[board]
	entries := make([]model.LeaderboardEntry, 0, len(b))
	for id, score := range b {
		entries = append(entries, model.LeaderboardEntry{PlayerID: id, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score == entries[j].Score {
			return entries[i].PlayerID > entries[j].PlayerID
		}
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (m *MemoryLeaderboard) GetTop(_ context.Context, board string, limit int) ([]model.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.sorted(board)
	if limit < 0 {
		limit = 0
	}
	if limit > len(entries) {
		limit = len(entries)
	}
	return entries[:limit], nil
}

func (m *MemoryLeaderboard) GetRank(_ context.Context, board, playerID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.sorted(board) {
		if e.PlayerID == playerID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

// MemoryStats counts category outcomes in a map
type MemoryStats struct {
	mu       sync.Mutex
	answered map[model.Category]int64
	correct  map[model.Category]int64
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{
		answered: make(map[model.Category]int64),
		correct:  make(map[model.Category]int64),
	}
}

func (m *MemoryStats) Record(_ context.Context, review []model.ReviewItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range review {
		if item.Verdict == model.VerdictUnanswered {
			continue
		}
		m.answered[item.Category]++
		if item.Verdict == model.VerdictCorrect {
			m.correct[item.Category]++
		}
	}
	return nil
}

func (m *MemoryStats) Categories(_ context.Context) ([]CategoryStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := make([]CategoryStat, 0, len(model.Categories))
	for _, cat := range model.Categories {
		stats = append(stats, CategoryStat{
			Category: cat,
			Answered: m.answered[cat],
			Correct:  m.correct[cat],
		})
	}
	return stats, nil
}
