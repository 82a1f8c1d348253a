package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockiq/internal/model"
)

var (
	_ ResultRepo  = (*MemoryResultRepo)(nil)
	_ PaymentRepo = (*MemoryPaymentRepo)(nil)
)

func TestMemoryResultRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryResultRepo()

	got, err := repo.GetBySession(ctx, "s_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"s_1", "s_2", "s_3"} {
		require.NoError(t, repo.Save(ctx, &model.QuizResult{
			SessionID:  id,
			PlayerID:   "p_1",
			UnlockedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Save(ctx, &model.QuizResult{SessionID: "s_4", PlayerID: "p_2"}))

	got, err = repo.GetBySession(ctx, "s_2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p_1", got.PlayerID)

	list, err := repo.ListByPlayer(ctx, "p_1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s_3", list[0].SessionID)
	assert.Equal(t, "s_2", list[1].SessionID)

	none, err := repo.ListByPlayer(ctx, "p_9", 5)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryPaymentRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPaymentRepo()

	r := &model.PaymentReceipt{TxHash: "0xabc", SessionID: "s_1"}
	require.NoError(t, repo.Insert(ctx, r))

	assert.ErrorIs(t, repo.Insert(ctx, &model.PaymentReceipt{TxHash: "0xabc", SessionID: "s_2"}), ErrDuplicateTx)
	assert.ErrorIs(t, repo.Insert(ctx, &model.PaymentReceipt{TxHash: "0xdef", SessionID: "s_1"}), ErrDuplicateTx)

	got, err := repo.GetByTxHash(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s_1", got.SessionID)

	got, err = repo.GetBySession(ctx, "s_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0xabc", got.TxHash)

	got, err = repo.GetByTxHash(ctx, "0x000")
	require.NoError(t, err)
	assert.Nil(t, got)
}
