package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blockiq/internal/model"
)

// ErrDuplicateTx is returned when a transaction hash was already recorded
var ErrDuplicateTx = errors.New("transaction already recorded")

// PaymentRepo records accepted payment transactions. The tx hash is the
// document id, so one transaction can unlock at most one session.
type PaymentRepo interface {
	Insert(ctx context.Context, receipt *model.PaymentReceipt) error
	GetByTxHash(ctx context.Context, txHash string) (*model.PaymentReceipt, error)
	GetBySession(ctx context.Context, sessionID string) (*model.PaymentReceipt, error)
}

type paymentRepo struct {
	receipts *mongo.Collection
}

func NewPaymentRepo(db *mongo.Database) PaymentRepo {
	return &paymentRepo{
		receipts: db.Collection("payment_receipts"),
	}
}

func (r *paymentRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.receipts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sessionId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *paymentRepo) Insert(ctx context.Context, receipt *model.PaymentReceipt) error {
	_, err := r.receipts.InsertOne(ctx, receipt)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateTx
	}
	return err
}

func (r *paymentRepo) GetByTxHash(ctx context.Context, txHash string) (*model.PaymentReceipt, error) {
	return r.findOne(ctx, bson.M{"_id": txHash})
}

func (r *paymentRepo) GetBySession(ctx context.Context, sessionID string) (*model.PaymentReceipt, error) {
	return r.findOne(ctx, bson.M{"sessionId": sessionID})
}

func (r *paymentRepo) findOne(ctx context.Context, filter bson.M) (*model.PaymentReceipt, error) {
	var receipt model.PaymentReceipt
	err := r.receipts.FindOne(ctx, filter).Decode(&receipt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
