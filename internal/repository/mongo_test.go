package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"blockiq/internal/model"
)

func newMockDB(t *testing.T) *mtest.T {
	t.Helper()
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// toDoc renders v the way the driver stores it
func toDoc(t require.TestingT, v interface{}) bson.D {
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func TestPaymentRepo_Mongo(t *testing.T) {
	mt := newMockDB(t)
	ctx := context.Background()
	confirmed := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	receipt := &model.PaymentReceipt{
		TxHash:      "0x" + "ab12",
		SessionID:   "s_1",
		To:          "0xd1c9bd2a14b00c99803b5ded4571814d227566c7",
		ValueWei:    "100000000000000",
		ChainID:     8453,
		BlockNumber: 42,
		ConfirmedAt: confirmed,
	}

	mt.Run("insert", func(mt *mtest.T) {
		repo := NewPaymentRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, repo.Insert(ctx, receipt))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
		assert.Equal(mt, "payment_receipts", started.Command.Lookup("insert").StringValue())
	})

	mt.Run("duplicate hash", func(mt *mtest.T) {
		repo := NewPaymentRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		assert.ErrorIs(mt, repo.Insert(ctx, receipt), ErrDuplicateTx)
	})

	mt.Run("get by hash", func(mt *mtest.T) {
		repo := NewPaymentRepo(mt.DB)
		ns := mt.DB.Name() + ".payment_receipts"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(mt, receipt)))

		got, err := repo.GetByTxHash(ctx, receipt.TxHash)
		require.NoError(mt, err)
		require.NotNil(mt, got)
		assert.Equal(mt, "s_1", got.SessionID)
		assert.Equal(mt, uint64(42), got.BlockNumber)
		assert.True(mt, confirmed.Equal(got.ConfirmedAt))

		started := mt.GetStartedEvent()
		assert.Equal(mt, receipt.TxHash, started.Command.Lookup("filter", "_id").StringValue())
	})

	mt.Run("unknown session", func(mt *mtest.T) {
		repo := NewPaymentRepo(mt.DB)
		ns := mt.DB.Name() + ".payment_receipts"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := repo.GetBySession(ctx, "s_none")
		require.NoError(mt, err)
		assert.Nil(mt, got)

		started := mt.GetStartedEvent()
		assert.Equal(mt, "s_none", started.Command.Lookup("filter", "sessionId").StringValue())
	})
}

func TestResultRepo_Mongo(t *testing.T) {
	mt := newMockDB(t)
	ctx := context.Background()
	unlocked := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	mt.Run("save upserts by session", func(mt *mtest.T) {
		repo := NewResultRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, repo.Save(ctx, &model.QuizResult{SessionID: "s_1", PlayerID: "alice"}))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		update, err := started.Command.Lookup("updates").Array().IndexErr(0)
		require.NoError(mt, err)
		stmt := update.Value().Document()
		assert.Equal(mt, "s_1", stmt.Lookup("q", "sessionId").StringValue())
		assert.True(mt, stmt.Lookup("upsert").Boolean())
	})

	mt.Run("list newest first", func(mt *mtest.T) {
		repo := NewResultRepo(mt.DB)
		ns := mt.DB.Name() + ".quiz_results"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			toDoc(mt, model.QuizResult{SessionID: "s_2", PlayerID: "alice", UnlockedAt: unlocked.Add(time.Hour)}),
			toDoc(mt, model.QuizResult{SessionID: "s_1", PlayerID: "alice", UnlockedAt: unlocked}),
		))

		results, err := repo.ListByPlayer(ctx, "alice", 5)
		require.NoError(mt, err)
		require.Len(mt, results, 2)
		assert.Equal(mt, "s_2", results[0].SessionID)
		assert.Equal(mt, "s_1", results[1].SessionID)

		started := mt.GetStartedEvent()
		assert.Equal(mt, "alice", started.Command.Lookup("filter", "playerId").StringValue())
		assert.Equal(mt, int64(-1), started.Command.Lookup("sort", "unlockedAt").AsInt64())
		assert.Equal(mt, int64(5), started.Command.Lookup("limit").AsInt64())
	})

	mt.Run("list is never nil", func(mt *mtest.T) {
		repo := NewResultRepo(mt.DB)
		ns := mt.DB.Name() + ".quiz_results"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		results, err := repo.ListByPlayer(ctx, "bob", 5)
		require.NoError(mt, err)
		assert.NotNil(mt, results)
		assert.Empty(mt, results)
	})
}

func TestQuestionRepo_Mongo(t *testing.T) {
	mt := newMockDB(t)
	ctx := context.Background()
	questions := []model.Question{
		{ID: 1, Category: model.CategoryEVM, Prompt: "p1", Options: []string{"a", "b", "c", "d"}, CorrectOption: model.OptionA},
		{ID: 2, Category: model.CategoryDeFi, Prompt: "p2", Options: []string{"a", "b", "c", "d"}, CorrectOption: model.OptionC},
	}

	mt.Run("upsert counts writes", func(mt *mtest.T) {
		repo := NewQuestionRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 1},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 1}, {Key: "_id", Value: 2}}}},
		))

		n, err := repo.UpsertAll(ctx, questions)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		assert.False(mt, started.Command.Lookup("ordered").Boolean())
	})

	mt.Run("upsert nothing", func(mt *mtest.T) {
		repo := NewQuestionRepo(mt.DB)
		n, err := repo.UpsertAll(ctx, nil)
		require.NoError(mt, err)
		assert.Zero(mt, n)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("by category", func(mt *mtest.T) {
		repo := NewQuestionRepo(mt.DB)
		ns := mt.DB.Name() + ".questions"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(mt, questions[1])))

		got, err := repo.GetByCategory(ctx, model.CategoryDeFi)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, questions[1], got[0])

		started := mt.GetStartedEvent()
		assert.Equal(mt, string(model.CategoryDeFi), started.Command.Lookup("filter", "category").StringValue())
		assert.Equal(mt, int64(1), started.Command.Lookup("sort", "_id").AsInt64())
	})

	mt.Run("count", func(mt *mtest.T) {
		repo := NewQuestionRepo(mt.DB)
		ns := mt.DB.Name() + ".questions"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: 100}}))

		n, err := repo.Count(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, int64(100), n)
	})
}

func TestEnsureIndexes_Mongo(t *testing.T) {
	mt := newMockDB(t)
	ctx := context.Background()

	mt.Run("creates result and receipt indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		require.NoError(mt, EnsureIndexes(ctx, NewResultRepo(mt.DB), NewPaymentRepo(mt.DB), NewQuestionRepo(mt.DB)))

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 2)
		assert.Equal(mt, "quiz_results", events[0].Command.Lookup("createIndexes").StringValue())
		assert.Equal(mt, "payment_receipts", events[1].Command.Lookup("createIndexes").StringValue())
	})

	mt.Run("reports failures", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		err := EnsureIndexes(ctx, NewResultRepo(mt.DB))
		assert.ErrorContains(mt, err, "ensure indexes")
	})
}
