package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"blockiq/internal/cache"
	"blockiq/internal/catalog"
	"blockiq/internal/metrics"
	"blockiq/internal/model"
	"blockiq/internal/payment"
	"blockiq/internal/repository"
)

const testStart = int64(1_700_000_000_000)

type firstPick struct{}

func (firstPick) IntN(int) int { return 0 }

type fakeClock struct{ ms atomic.Int64 }

func newFakeClock(ms int64) *fakeClock {
	c := &fakeClock{}
	c.ms.Store(ms)
	return c
}

func (c *fakeClock) NowMillis() int64       { return c.ms.Load() }
func (c *fakeClock) Advance(d time.Duration) { c.ms.Add(d.Milliseconds()) }

type sentEvent struct {
	SessionID string
	Type      string
	Payload   interface{}
}

type recordingBroadcaster struct {
	mu           sync.Mutex
	events       []sentEvent
	disconnected []string
}

func (b *recordingBroadcaster) BroadcastToSession(sessionID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{sessionID, msgType, payload})
}

func (b *recordingBroadcaster) DisconnectSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, sessionID)
}

func (b *recordingBroadcaster) types(sessionID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		if e.SessionID == sessionID && e.Type != EventTick {
			out = append(out, e.Type)
		}
	}
	return out
}

func (b *recordingBroadcaster) count(msgType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Type == msgType {
			n++
		}
	}
	return n
}

type rejectingConfirmer struct{ err error }

func (r rejectingConfirmer) Confirm(context.Context, string, payment.Requirement) (*model.PaymentReceipt, error) {
	return nil, r.err
}

// gatedConfirmer accepts every hash once n callers are waiting on it
type gatedConfirmer struct {
	arrived sync.WaitGroup
}

func newGatedConfirmer(n int) *gatedConfirmer {
	g := &gatedConfirmer{}
	g.arrived.Add(n)
	return g
}

func (g *gatedConfirmer) Confirm(ctx context.Context, txHash string, req payment.Requirement) (*model.PaymentReceipt, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return payment.StaticConfirmer{}.Confirm(ctx, txHash, req)
}

// flakyResults fails the first n saves
type flakyResults struct {
	repository.ResultRepo
	failures atomic.Int32
}

func (f *flakyResults) Save(ctx context.Context, result *model.QuizResult) error {
	if f.failures.Add(-1) >= 0 {
		return errors.New("store unavailable")
	}
	return f.ResultRepo.Save(ctx, result)
}

type testEnv struct {
	clock       *fakeClock
	sessions    *cache.MemorySessionCache
	results     *repository.MemoryResultRepo
	payments    *repository.MemoryPaymentRepo
	quiz        *QuizService
	pay         *PaymentService
	board       *LeaderboardService
	auth        *AuthService
	broadcaster *recordingBroadcaster
	metrics     *metrics.Metrics
}

func newTestEnv(t *testing.T, confirmer payment.Confirmer, tick time.Duration) *testEnv {
	t.Helper()

	questions, err := catalog.Embedded()
	require.NoError(t, err)
	source := catalog.NewStatic(questions)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		clock:       newFakeClock(testStart),
		sessions:    cache.NewMemorySessionCache(),
		results:     repository.NewMemoryResultRepo(),
		payments:    repository.NewMemoryPaymentRepo(),
		auth:        NewAuthService("test-secret", time.Hour),
		broadcaster: &recordingBroadcaster{},
		metrics:     metrics.New(),
	}

	env.quiz = NewQuizService(env.sessions, source, env.auth, env.metrics, logger,
		WithClock(env.clock), WithRandom(firstPick{}), WithTickInterval(tick))
	env.quiz.SetBroadcaster(env.broadcaster)
	t.Cleanup(env.quiz.Shutdown)

	env.board = NewLeaderboardService(cache.NewMemoryLeaderboard(), cache.NewMemoryStats(), source)
	env.board.now = func() time.Time { return time.UnixMilli(env.clock.NowMillis()) }

	req := payment.Requirement{
		Receiver:    "0xd1c9BD2a14b00C99803B5Ded4571814D227566C7",
		MinValueWei: mustWei(t, "100000000000000"),
		ChainID:     8453,
	}
	env.pay = NewPaymentService(env.quiz, confirmer, env.payments, env.results, env.board, req, "0.0001", env.metrics, logger)
	env.pay.SetBroadcaster(env.broadcaster)
	env.pay.now = env.board.now

	return env
}

// finish answers every question correctly, spending perQuestion on each,
// and advances past the last one
func (e *testEnv) finish(t *testing.T, id string, perQuestion time.Duration) *model.QuizSession {
	t.Helper()
	ctx := context.Background()

	session, err := e.quiz.Get(ctx, id)
	require.NoError(t, err)

	for i := range session.Questions {
		e.clock.Advance(perQuestion)
		_, err := e.quiz.Answer(ctx, id, string(session.Questions[i].CorrectOption))
		require.NoError(t, err)
		session, err = e.quiz.Next(ctx, id)
		require.NoError(t, err)
	}
	require.Equal(t, model.SessionCompleted, session.Status)
	return session
}

func txHash(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return "0x" + string(b)
}

func mustWei(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
