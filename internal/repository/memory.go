package repository

import (
	"context"
	"sort"
	"sync"

	"blockiq/internal/model"
)

// MemoryResultRepo keeps results in process memory when no MongoDB is
// configured
type MemoryResultRepo struct {
	mu      sync.RWMutex
	results map[string]model.QuizResult
}

func NewMemoryResultRepo() *MemoryResultRepo {
	return &MemoryResultRepo{results: make(map[string]model.QuizResult)}
}

func (m *MemoryResultRepo) Save(_ context.Context, result *model.QuizResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.SessionID] = *result
	return nil
}

func (m *MemoryResultRepo) GetBySession(_ context.Context, sessionID string) (*model.QuizResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[sessionID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryResultRepo) ListByPlayer(_ context.Context, playerID string, limit int) ([]model.QuizResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.QuizResult{}
	for _, r := range m.results {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.After(out[j].UnlockedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryPaymentRepo keeps receipts in process memory
type MemoryPaymentRepo struct {
	mu       sync.RWMutex
	receipts map[string]model.PaymentReceipt
}

func NewMemoryPaymentRepo() *MemoryPaymentRepo {
	return &MemoryPaymentRepo{receipts: make(map[string]model.PaymentReceipt)}
}

func (m *MemoryPaymentRepo) Insert(_ context.Context, receipt *model.PaymentReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receipts[receipt.TxHash]; ok {
		return ErrDuplicateTx
	}
	for _, r := range m.receipts {
		if r.SessionID == receipt.SessionID {
			return ErrDuplicateTx
		}
	}
	m.receipts[receipt.TxHash] = *receipt
	return nil
}

func (m *MemoryPaymentRepo) GetByTxHash(_ context.Context, txHash string) (*model.PaymentReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.receipts[txHash]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryPaymentRepo) GetBySession(_ context.Context, sessionID string) (*model.PaymentReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.receipts {
		if r.SessionID == sessionID {
			return &r, nil
		}
	}
	return nil, nil
}
