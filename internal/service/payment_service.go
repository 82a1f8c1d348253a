package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blockiq/internal/metrics"
	"blockiq/internal/model"
	"blockiq/internal/payment"
	"blockiq/internal/quiz"
	"blockiq/internal/repository"
)

// PaymentService gates quiz results behind a confirmed payment
type PaymentService struct {
	quizSvc     *QuizService
	confirmer   payment.Confirmer
	payments    repository.PaymentRepo
	results     repository.ResultRepo
	leaderboard *LeaderboardService
	metrics     *metrics.Metrics
	logger      *slog.Logger
	broadcaster Broadcaster

	requirement payment.Requirement
	quote       model.PaymentQuote
	now         func() time.Time
}

// NewPaymentService creates a payment service that demands req and
// advertises amountETH in quotes
func NewPaymentService(
	quizSvc *QuizService,
	confirmer payment.Confirmer,
	payments repository.PaymentRepo,
	results repository.ResultRepo,
	leaderboard *LeaderboardService,
	req payment.Requirement,
	amountETH string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		quizSvc:     quizSvc,
		confirmer:   confirmer,
		payments:    payments,
		results:     results,
		leaderboard: leaderboard,
		metrics:     m,
		logger:      logger,
		broadcaster: nopBroadcaster{},
		requirement: req,
		quote: model.PaymentQuote{
			Receiver:  req.Receiver,
			AmountETH: amountETH,
			AmountWei: req.MinValueWei.String(),
			ChainID:   req.ChainID,
		},
		now: time.Now,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *PaymentService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Quote describes the transfer that unlocks a result
func (s *PaymentService) Quote() model.PaymentQuote {
	return s.quote
}

// Confirm verifies txHash as payment for sessionID and unlocks the
// result. Confirming an already unlocked session returns its result.
func (s *PaymentService) Confirm(ctx context.Context, sessionID, txHash string) (*model.QuizResult, error) {
	hash, err := payment.NormalizeTxHash(txHash)
	if err != nil {
		s.metrics.Payment(metrics.PaymentRejected)
		return nil, err
	}

	session, err := s.quizSvc.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionCompleted {
		return nil, quiz.ErrInvalidState
	}
	if session.Unlocked {
		return s.Result(ctx, sessionID)
	}

	existing, err := s.payments.GetByTxHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}
	if existing != nil && existing.SessionID != sessionID {
		s.metrics.Payment(metrics.PaymentRejected)
		return nil, ErrPaymentReused
	}

	// Polling the chain can take a while, so no session lock is held here
	if existing == nil {
		receipt, err := s.confirmer.Confirm(ctx, hash, s.requirement)
		if err != nil {
			if payment.IsRejection(err) {
				s.metrics.Payment(metrics.PaymentRejected)
				s.logger.Info("payment rejected", "session_id", sessionID, "tx", hash, "error", err)
			} else {
				s.metrics.Payment(metrics.PaymentError)
				s.logger.Error("payment check failed", "session_id", sessionID, "tx", hash, "error", err)
			}
			return nil, err
		}
		receipt.SessionID = sessionID
		receipt.ConfirmedAt = s.now().UTC()

		if err := s.payments.Insert(ctx, receipt); err != nil {
			if !errors.Is(err, repository.ErrDuplicateTx) {
				return nil, fmt.Errorf("failed to record payment: %w", err)
			}
			// Lost a race: either another session claimed the hash or
			// this session already holds a receipt
			other, lookupErr := s.payments.GetByTxHash(ctx, hash)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to look up payment: %w", lookupErr)
			}
			if other != nil && other.SessionID != sessionID {
				s.metrics.Payment(metrics.PaymentRejected)
				return nil, ErrPaymentReused
			}
		}
	}

	var unlocked bool
	session, err = s.quizSvc.update(ctx, sessionID, func(session *model.QuizSession) error {
		if session.Status != model.SessionCompleted {
			return quiz.ErrInvalidState
		}
		if !session.Unlocked {
			session.Unlocked = true
			session.TxHash = hash
			unlocked = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Only the call that unlocked the session records it
	if !unlocked {
		return s.Result(ctx, sessionID)
	}

	result, err := s.buildResult(session)
	if err != nil {
		return nil, err
	}
	// Recorded before the save so a result rebuilt later by Result is
	// already on the boards
	if err := s.leaderboard.Record(ctx, result); err != nil {
		s.logger.Warn("failed to update leaderboard", "session_id", sessionID, "error", err)
	}
	if err := s.results.Save(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}

	s.metrics.Payment(metrics.PaymentConfirmed)
	s.metrics.FinalScore(result.Score.FinalScore)
	s.broadcaster.BroadcastToSession(sessionID, EventPaymentConfirmed, PaymentPayload{
		SessionID:  sessionID,
		TxHash:     hash,
		FinalScore: result.Score.FinalScore,
	})
	s.logger.Info("result unlocked", "session_id", sessionID, "tx", hash, "final_score", result.Score.FinalScore)

	return result, nil
}

// Result returns the unlocked result for a session
func (s *PaymentService) Result(ctx context.Context, sessionID string) (*model.QuizResult, error) {
	result, err := s.results.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	if result != nil {
		return result, nil
	}

	session, err := s.quizSvc.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionCompleted {
		return nil, quiz.ErrInvalidState
	}
	if !session.Unlocked {
		return nil, ErrPaymentRequired
	}

	// Unlocked but never persisted, e.g. the store was unavailable. The
	// unlocking Confirm already recorded it on the boards.
	result, err = s.buildResult(session)
	if err != nil {
		return nil, err
	}
	if err := s.results.Save(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	return result, nil
}

// History lists a player's unlocked results, newest first
func (s *PaymentService) History(ctx context.Context, playerID string, limit int) ([]model.QuizResult, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.results.ListByPlayer(ctx, playerID, limit)
}

// buildResult scores the session as of its completion instant
func (s *PaymentService) buildResult(session *model.QuizSession) (*model.QuizResult, error) {
	score, err := quiz.ComputeScore(session, quiz.FixedClock(session.CompletedAtMillis))
	if err != nil {
		return nil, err
	}
	review, err := quiz.Review(session)
	if err != nil {
		return nil, err
	}

	return &model.QuizResult{
		SessionID:  session.ID,
		PlayerID:   session.PlayerID,
		Score:      *score,
		Rating:     quiz.Rate(score.FinalScore),
		Review:     review,
		ShareText:  quiz.ShareText(score),
		TxHash:     session.TxHash,
		TimedOut:   session.TimedOut,
		UnlockedAt: s.now().UTC(),
	}, nil
}
