package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"blockiq/internal/cache"
	"blockiq/internal/catalog"
	"blockiq/internal/metrics"
	"blockiq/internal/model"
	"blockiq/internal/quiz"
)

// StartResult is returned when a player begins a quiz
type StartResult struct {
	SessionID string             `json:"sessionId"`
	PlayerID  string             `json:"playerId"`
	Token     string             `json:"token"`
	Session   *model.SessionView `json:"session"`
}

// QuizOption customizes a QuizService
type QuizOption func(*QuizService)

// WithClock replaces the wall clock
func WithClock(c quiz.Clock) QuizOption {
	return func(s *QuizService) { s.clock = c }
}

// WithRandom replaces the question shuffler's random source
func WithRandom(r quiz.RandomSource) QuizOption {
	return func(s *QuizService) { s.rnd = r }
}

// WithTickInterval sets how often the countdown advances one second
func WithTickInterval(d time.Duration) QuizOption {
	return func(s *QuizService) { s.tickInterval = d }
}

// QuizService runs quiz sessions on behalf of clients. Every mutation of
// a session happens under that session's lock, including countdown ticks.
type QuizService struct {
	sessions cache.SessionCache
	catalog  catalog.Source
	authSvc  *AuthService
	metrics  *metrics.Metrics
	logger   *slog.Logger

	broadcaster  Broadcaster
	clock        quiz.Clock
	rnd          quiz.RandomSource
	tickInterval time.Duration

	// parent of every countdown; cancelled by Shutdown
	baseCtx    context.Context
	cancelBase context.CancelFunc

	locksMu sync.Mutex
	locks   map[string]*sessionLock

	timersMu sync.Mutex
	timers   map[string]*quiz.Timer
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewQuizService creates a new quiz service
func NewQuizService(
	sessions cache.SessionCache,
	source catalog.Source,
	authSvc *AuthService,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...QuizOption,
) *QuizService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &QuizService{
		sessions:     sessions,
		catalog:      source,
		authSvc:      authSvc,
		metrics:      m,
		logger:       logger,
		broadcaster:  nopBroadcaster{},
		clock:        quiz.SystemClock{},
		rnd:          quiz.SystemRandom{},
		tickInterval: time.Second,
		baseCtx:      ctx,
		cancelBase:   cancel,
		locks:        make(map[string]*sessionLock),
		timers:       make(map[string]*quiz.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *QuizService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Shutdown stops every running countdown
func (s *QuizService) Shutdown() {
	s.cancelBase()
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		s.metrics.TimerStopped()
	}
}

// Start draws questions for a new session and starts its countdown. An
// empty playerID gets a generated one.
func (s *QuizService) Start(ctx context.Context, playerID string) (*StartResult, error) {
	questions, err := s.catalog.Questions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	session, err := quiz.StartSession(questions, s.rnd, s.clock)
	if err != nil {
		return nil, err
	}

	if playerID == "" {
		playerID = "p_" + uuid.New().String()
	}
	session.ID = "s_" + uuid.New().String()
	session.PlayerID = playerID

	token, err := s.authSvc.IssueSessionToken(session.ID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.sessions.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.startTimer(session.ID)
	s.metrics.SessionStarted()
	s.logger.Info("quiz started", "session_id", session.ID, "player_id", playerID)

	return &StartResult{
		SessionID: session.ID,
		PlayerID:  playerID,
		Token:     token,
		Session:   session.View(),
	}, nil
}

// Get returns the current state of a session
func (s *QuizService) Get(ctx context.Context, id string) (*model.QuizSession, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.load(ctx, id)
}

// Answer records letter for the current question
func (s *QuizService) Answer(ctx context.Context, id, letter string) (*model.QuizSession, error) {
	option, ok := model.ParseOptionLetter(letter)
	if !ok {
		return nil, fmt.Errorf("%w: %q", quiz.ErrInvalidOption, letter)
	}
	return s.update(ctx, id, func(session *model.QuizSession) error {
		return quiz.RecordAnswer(session, option)
	})
}

// Next moves to the following question; on the last question it
// completes the quiz
func (s *QuizService) Next(ctx context.Context, id string) (*model.QuizSession, error) {
	return s.update(ctx, id, func(session *model.QuizSession) error {
		if err := quiz.Advance(session); err != nil {
			return err
		}
		if session.Status == model.SessionCompleted {
			s.complete(session, metrics.CompletedFinished)
		}
		return nil
	})
}

// Submit completes the quiz early from any question
func (s *QuizService) Submit(ctx context.Context, id string) (*model.QuizSession, error) {
	return s.update(ctx, id, func(session *model.QuizSession) error {
		if err := quiz.ForceSubmit(session); err != nil {
			return err
		}
		s.complete(session, metrics.CompletedSubmitted)
		return nil
	})
}

// Reset abandons a session and returns a fresh, unstarted one
func (s *QuizService) Reset(ctx context.Context, id string) (*model.QuizSession, error) {
	unlock := s.lock(id)
	defer unlock()

	s.dropTimer(id)
	if err := s.sessions.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete session: %w", err)
	}
	s.broadcaster.BroadcastToSession(id, EventSessionReset, map[string]string{"sessionId": id})
	s.broadcaster.DisconnectSession(id)
	s.logger.Info("quiz reset", "session_id", id)

	return quiz.ResetSession(), nil
}

// update runs fn on the stored session under its lock and saves the
// result. Nothing is saved when fn fails.
func (s *QuizService) update(ctx context.Context, id string, fn func(*model.QuizSession) error) (*model.QuizSession, error) {
	unlock := s.lock(id)
	defer unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.sessions.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// load reads a session and settles its clock. It must be called with the
// session lock held. A session whose time ran out while no countdown was
// running in this process (for example across a restart) is completed as
// timed out; any other in-progress session gets its countdown back.
func (s *QuizService) load(ctx context.Context, id string) (*model.QuizSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != model.SessionInProgress {
		return session, nil
	}

	if s.hasTimer(id) {
		return session, nil
	}

	deadline := session.StartedAtMillis + int64(quiz.TimeLimitSeconds)*1000
	now := s.clock.NowMillis()
	if now >= deadline {
		session.RemainingSeconds = 0
		s.timeout(session)
		// the countdown stopped with the old process; time ran out at the deadline
		session.CompletedAtMillis = deadline
		if err := s.sessions.Set(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
		return session, nil
	}

	// The saved countdown is stale once no timer has been driving it
	if left := int((deadline - now + 999) / 1000); session.RemainingSeconds > left {
		session.RemainingSeconds = left
		if err := s.sessions.Set(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
	}

	s.startTimer(id)
	return session, nil
}

// complete finishes bookkeeping for a session that just became Completed
func (s *QuizService) complete(session *model.QuizSession, reason string) {
	session.CompletedAtMillis = s.clock.NowMillis()
	s.dropTimer(session.ID)
	s.metrics.SessionCompleted(reason)
	s.broadcaster.BroadcastToSession(session.ID, EventQuizCompleted, CompletedPayload{
		SessionID: session.ID,
		Reason:    reason,
		Answered:  session.AnsweredCount(),
		TimedOut:  session.TimedOut,
	})
	s.logger.Info("quiz completed", "session_id", session.ID, "reason", reason, "answered", session.AnsweredCount())
}

func (s *QuizService) timeout(session *model.QuizSession) {
	if err := quiz.ForceSubmit(session); err != nil {
		return
	}
	session.TimedOut = true
	s.complete(session, metrics.CompletedTimeout)
}

// tick is the countdown callback. It reports whether the countdown should
// keep running.
func (s *QuizService) tick(id string) bool {
	ctx, cancel := context.WithTimeout(s.baseCtx, 5*time.Second)
	defer cancel()

	unlock := s.lock(id)
	defer unlock()

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		s.logger.Warn("tick: failed to load session", "session_id", id, "error", err)
		return true
	}
	if session == nil || session.Status != model.SessionInProgress {
		s.dropTimer(id)
		return false
	}

	timeUp := quiz.Tick(session)
	if timeUp {
		s.timeout(session)
	}
	if err := s.sessions.Set(ctx, session); err != nil {
		s.logger.Warn("tick: failed to store session", "session_id", id, "error", err)
	}
	if timeUp {
		return false
	}

	s.broadcaster.BroadcastToSession(id, EventTick, TickPayload{
		SessionID:        id,
		RemainingSeconds: session.RemainingSeconds,
	})
	return true
}

func (s *QuizService) startTimer(id string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if _, ok := s.timers[id]; ok {
		return
	}
	if s.baseCtx.Err() != nil {
		return
	}
	s.timers[id] = quiz.StartTimer(s.baseCtx, s.tickInterval, func() bool {
		return s.tick(id)
	})
	s.metrics.TimerStarted()
}

func (s *QuizService) dropTimer(id string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
		s.metrics.TimerStopped()
	}
}

func (s *QuizService) hasTimer(id string) bool {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// lock acquires the per-session mutex and returns its release function.
// Entries are reference counted so idle sessions leave nothing behind.
func (s *QuizService) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}
