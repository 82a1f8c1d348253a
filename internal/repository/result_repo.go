package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blockiq/internal/model"
)

// ResultRepo handles MongoDB operations for unlocked quiz results
type ResultRepo interface {
	Save(ctx context.Context, result *model.QuizResult) error
	GetBySession(ctx context.Context, sessionID string) (*model.QuizResult, error)
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.QuizResult, error)
}

type resultRepo struct {
	results *mongo.Collection
}

// NewResultRepo creates a new result repository
func NewResultRepo(db *mongo.Database) ResultRepo {
	return &resultRepo{
		results: db.Collection("quiz_results"),
	}
}

func (r *resultRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.results.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "playerId", Value: 1}, {Key: "unlockedAt", Value: -1}}},
	})
	return err
}

func (r *resultRepo) Save(ctx context.Context, result *model.QuizResult) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.results.ReplaceOne(ctx, bson.M{"sessionId": result.SessionID}, result, opts)
	return err
}

func (r *resultRepo) GetBySession(ctx context.Context, sessionID string) (*model.QuizResult, error) {
	var result model.QuizResult
	err := r.results.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByPlayer returns the player's results, newest first
func (r *resultRepo) ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.QuizResult, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "unlockedAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.results.Find(ctx, bson.M{"playerId": playerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []model.QuizResult{}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
