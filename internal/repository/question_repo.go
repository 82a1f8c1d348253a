package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blockiq/internal/model"
)

// QuestionRepo stores the seeded question catalog
type QuestionRepo interface {
	UpsertAll(ctx context.Context, questions []model.Question) (int64, error)
	GetAll(ctx context.Context) ([]model.Question, error)
	GetByCategory(ctx context.Context, category model.Category) ([]model.Question, error)
	Count(ctx context.Context) (int64, error)
	Drop(ctx context.Context) error

	// Questions makes the repo usable as a catalog source
	Questions(ctx context.Context) ([]model.Question, error)
}

type questionRepo struct {
	collection *mongo.Collection
}

func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		collection: db.Collection("questions"),
	}
}

// UpsertAll writes every question keyed by id in one bulk call and
// returns how many documents were inserted or modified
func (r *questionRepo) UpsertAll(ctx context.Context, questions []model.Question) (int64, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	models := make([]mongo.WriteModel, len(questions))
	for i := range questions {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": questions[i].ID}).
			SetReplacement(questions[i]).
			SetUpsert(true)
	}

	res, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return res.UpsertedCount + res.ModifiedCount, nil
}

func (r *questionRepo) GetAll(ctx context.Context) ([]model.Question, error) {
	return r.find(ctx, bson.M{})
}

func (r *questionRepo) GetByCategory(ctx context.Context, category model.Category) ([]model.Question, error) {
	return r.find(ctx, bson.M{"category": category})
}

func (r *questionRepo) Questions(ctx context.Context) ([]model.Question, error) {
	return r.GetAll(ctx)
}

func (r *questionRepo) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

func (r *questionRepo) Drop(ctx context.Context) error {
	return r.collection.Drop(ctx)
}

func (r *questionRepo) find(ctx context.Context, filter bson.M) ([]model.Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []model.Question
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}
