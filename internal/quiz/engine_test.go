package quiz

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockiq/internal/model"
)

const minute = int64(60_000)

func testCatalog(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            i + 1,
			Category:      model.Categories[i%len(model.Categories)],
			Prompt:        fmt.Sprintf("question %d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: model.OptionB,
			Explanation:   "because",
		}
	}
	return qs
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// identityRandom always picks the first remaining element, leaving order intact
type identityRandom struct{}

func (identityRandom) IntN(int) int { return 0 }

func startedSession(t *testing.T, startedAt int64) *model.QuizSession {
	t.Helper()
	s, err := StartSession(testCatalog(QuestionsPerQuiz), identityRandom{}, FixedClock(startedAt))
	require.NoError(t, err)
	return s
}

func TestSelectQuestions(t *testing.T) {
	catalog := testCatalog(100)
	known := make(map[int]bool, len(catalog))
	for _, q := range catalog {
		known[q.ID] = true
	}

	for seed := uint64(0); seed < 200; seed++ {
		got, err := SelectQuestions(catalog, seeded(seed), QuestionsPerQuiz)
		require.NoError(t, err)
		require.Len(t, got, QuestionsPerQuiz)

		seen := make(map[int]bool)
		for _, q := range got {
			assert.True(t, known[q.ID], "id %d not in catalog", q.ID)
			assert.False(t, seen[q.ID], "duplicate id %d", q.ID)
			seen[q.ID] = true
		}
	}
}

func TestSelectQuestionsDoesNotMutateCatalog(t *testing.T) {
	catalog := testCatalog(20)
	before := make([]int, len(catalog))
	for i, q := range catalog {
		before[i] = q.ID
	}

	_, err := SelectQuestions(catalog, seeded(7), QuestionsPerQuiz)
	require.NoError(t, err)

	for i, q := range catalog {
		assert.Equal(t, before[i], q.ID)
	}
}

func TestSelectQuestionsInsufficientCatalog(t *testing.T) {
	_, err := SelectQuestions(testCatalog(9), seeded(1), QuestionsPerQuiz)
	assert.ErrorIs(t, err, ErrInsufficientCatalog)

	_, err = StartSession(testCatalog(3), seeded(1), FixedClock(0))
	assert.ErrorIs(t, err, ErrInsufficientCatalog)
}

func TestSelectQuestionsExactSize(t *testing.T) {
	got, err := SelectQuestions(testCatalog(QuestionsPerQuiz), seeded(3), QuestionsPerQuiz)
	require.NoError(t, err)
	assert.Len(t, got, QuestionsPerQuiz)
}

func TestSelectQuestionsIsRoughlyUniform(t *testing.T) {
	// Every position should hold every id with similar frequency
	const trials = 20000
	catalog := testCatalog(QuestionsPerQuiz)
	rnd := seeded(42)
	counts := make([]int, QuestionsPerQuiz+1)

	for i := 0; i < trials; i++ {
		got, err := SelectQuestions(catalog, rnd, QuestionsPerQuiz)
		require.NoError(t, err)
		counts[got[0].ID]++
	}

	expected := trials / QuestionsPerQuiz
	for id := 1; id <= QuestionsPerQuiz; id++ {
		assert.InDelta(t, expected, counts[id], float64(expected)*0.15, "id %d", id)
	}
}

func TestStartSession(t *testing.T) {
	s := startedSession(t, 1_000)

	assert.Equal(t, model.SessionInProgress, s.Status)
	assert.Len(t, s.Questions, QuestionsPerQuiz)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Empty(t, s.Answers)
	assert.Equal(t, TimeLimitSeconds, s.RemainingSeconds)
	assert.Equal(t, int64(1_000), s.StartedAtMillis)
}

func TestRecordAnswer(t *testing.T) {
	s := startedSession(t, 0)

	require.NoError(t, RecordAnswer(s, model.OptionA))
	assert.Equal(t, model.OptionA, s.Answers[0])

	// overwrite
	require.NoError(t, RecordAnswer(s, model.OptionC))
	assert.Equal(t, model.OptionC, s.Answers[0])

	// idempotent
	require.NoError(t, RecordAnswer(s, model.OptionC))
	assert.Equal(t, map[int]model.OptionLetter{0: model.OptionC}, s.Answers)

	assert.Equal(t, 0, s.CurrentIndex)
	assert.Equal(t, TimeLimitSeconds, s.RemainingSeconds)
}

func TestRecordAnswerRejectsInvalidOption(t *testing.T) {
	s := startedSession(t, 0)

	for _, letter := range []model.OptionLetter{"", "E", "a", "AB"} {
		err := RecordAnswer(s, letter)
		assert.ErrorIs(t, err, ErrInvalidOption, "letter %q", letter)
	}
	assert.Empty(t, s.Answers)
}

func TestRecordAnswerRequiresInProgress(t *testing.T) {
	fresh := ResetSession()
	assert.ErrorIs(t, RecordAnswer(fresh, model.OptionA), ErrInvalidState)

	done := startedSession(t, 0)
	require.NoError(t, ForceSubmit(done))
	assert.ErrorIs(t, RecordAnswer(done, model.OptionA), ErrInvalidState)
	assert.Empty(t, done.Answers)
}

func TestAdvance(t *testing.T) {
	s := startedSession(t, 0)

	prev := s.CurrentIndex
	for i := 0; i < QuestionsPerQuiz-1; i++ {
		require.NoError(t, Advance(s))
		assert.Greater(t, s.CurrentIndex, prev)
		prev = s.CurrentIndex
		assert.Equal(t, model.SessionInProgress, s.Status)
	}
	assert.Equal(t, QuestionsPerQuiz-1, s.CurrentIndex)

	require.NoError(t, Advance(s))
	assert.Equal(t, model.SessionCompleted, s.Status)
	assert.Equal(t, QuestionsPerQuiz-1, s.CurrentIndex)

	// completed sessions reject further advances without mutating
	assert.ErrorIs(t, Advance(s), ErrInvalidState)
	assert.Equal(t, QuestionsPerQuiz-1, s.CurrentIndex)
	assert.Equal(t, model.SessionCompleted, s.Status)
}

func TestAdvanceNotStarted(t *testing.T) {
	s := ResetSession()
	assert.ErrorIs(t, Advance(s), ErrInvalidState)
	assert.Equal(t, model.SessionNotStarted, s.Status)
}

func TestTick(t *testing.T) {
	s := startedSession(t, 0)
	s.RemainingSeconds = 3

	assert.False(t, Tick(s))
	assert.Equal(t, 2, s.RemainingSeconds)
	assert.False(t, Tick(s))
	assert.True(t, Tick(s))
	assert.Equal(t, 0, s.RemainingSeconds)

	// floored at zero
	assert.True(t, Tick(s))
	assert.Equal(t, 0, s.RemainingSeconds)
}

func TestTickNeverIncreases(t *testing.T) {
	s := startedSession(t, 0)
	prev := s.RemainingSeconds
	for i := 0; i < TimeLimitSeconds+5; i++ {
		Tick(s)
		assert.LessOrEqual(t, s.RemainingSeconds, prev)
		prev = s.RemainingSeconds
	}
}

func TestTickIgnoresInactiveSessions(t *testing.T) {
	s := startedSession(t, 0)
	require.NoError(t, ForceSubmit(s))
	remaining := s.RemainingSeconds

	assert.False(t, Tick(s))
	assert.Equal(t, remaining, s.RemainingSeconds)
}

func TestTimeoutForcesSubmitMidQuiz(t *testing.T) {
	s := startedSession(t, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, Advance(s))
	}
	require.Equal(t, 3, s.CurrentIndex)
	s.RemainingSeconds = 1

	require.True(t, Tick(s))
	require.NoError(t, ForceSubmit(s))

	assert.Equal(t, model.SessionCompleted, s.Status)
	assert.Equal(t, 3, s.CurrentIndex)
}

func TestForceSubmitRequiresInProgress(t *testing.T) {
	assert.ErrorIs(t, ForceSubmit(ResetSession()), ErrInvalidState)

	s := startedSession(t, 0)
	require.NoError(t, ForceSubmit(s))
	assert.ErrorIs(t, ForceSubmit(s), ErrInvalidState)
}

func TestComputeScoreBeforeCompletion(t *testing.T) {
	s := startedSession(t, 0)
	_, err := ComputeScore(s, FixedClock(minute))
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = ComputeScore(ResetSession(), FixedClock(minute))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name    string
		answers map[int]model.OptionLetter
		elapsed int64
		want    model.ScoreResult
	}{
		{
			name:    "one correct one incorrect in four minutes",
			answers: map[int]model.OptionLetter{0: model.OptionB, 1: model.OptionA},
			elapsed: 4 * minute,
			want: model.ScoreResult{
				CorrectCount: 1, IncorrectCount: 1, Unanswered: 8,
				BasePoints: 100, CorrectPoints: 10, IncorrectPenalty: 5, TimeBonus: 20,
				RawScore: 125, FinalScore: 125, AccuracyPercent: 10, ElapsedMinutes: 4,
			},
		},
		{
			name:    "all correct in twelve minutes clamps to ceiling",
			answers: allAnswers(model.OptionB),
			elapsed: 12 * minute,
			want: model.ScoreResult{
				CorrectCount: 10, BasePoints: 100, CorrectPoints: 100,
				RawScore: 200, FinalScore: 150, AccuracyPercent: 100, ElapsedMinutes: 12,
			},
		},
		{
			name:    "all incorrect in twelve minutes lands on floor",
			answers: allAnswers(model.OptionD),
			elapsed: 12 * minute,
			want: model.ScoreResult{
				IncorrectCount: 10, BasePoints: 100, IncorrectPenalty: 50,
				RawScore: 50, FinalScore: 50, AccuracyPercent: 0, ElapsedMinutes: 12,
			},
		},
		{
			name:    "nothing answered",
			answers: map[int]model.OptionLetter{},
			elapsed: 30 * 1000,
			want: model.ScoreResult{
				Unanswered: 10, BasePoints: 100, TimeBonus: 20,
				RawScore: 120, FinalScore: 120, ElapsedMinutes: 0.5,
			},
		},
		{
			name:    "six minutes earns the middle bonus",
			answers: map[int]model.OptionLetter{0: model.OptionB},
			elapsed: 6 * minute,
			want: model.ScoreResult{
				CorrectCount: 1, Unanswered: 9, BasePoints: 100, CorrectPoints: 10, TimeBonus: 10,
				RawScore: 120, FinalScore: 120, AccuracyPercent: 10, ElapsedMinutes: 6,
			},
		},
		{
			name:    "exactly five minutes drops to the next bracket",
			answers: map[int]model.OptionLetter{},
			elapsed: 5 * minute,
			want: model.ScoreResult{
				Unanswered: 10, BasePoints: 100, TimeBonus: 10,
				RawScore: 110, FinalScore: 110, ElapsedMinutes: 5,
			},
		},
		{
			name:    "nine and a half minutes earns the smallest bonus",
			answers: map[int]model.OptionLetter{},
			elapsed: 9*minute + 30_000,
			want: model.ScoreResult{
				Unanswered: 10, BasePoints: 100, TimeBonus: 5,
				RawScore: 105, FinalScore: 105, ElapsedMinutes: 9.5,
			},
		},
		{
			name:    "elapsed minutes rounded to one decimal",
			answers: map[int]model.OptionLetter{},
			elapsed: 2*minute + 14_000,
			want: model.ScoreResult{
				Unanswered: 10, BasePoints: 100, TimeBonus: 20,
				RawScore: 120, FinalScore: 120, ElapsedMinutes: 2.2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const start = int64(1_700_000_000_000)
			s := startedSession(t, start)
			s.Answers = tt.answers
			require.NoError(t, ForceSubmit(s))

			got, err := ComputeScore(s, FixedClock(start+tt.elapsed))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestComputeScoreInvariants(t *testing.T) {
	letters := []model.OptionLetter{model.OptionA, model.OptionB}
	for correct := 0; correct <= QuestionsPerQuiz; correct++ {
		for incorrect := 0; correct+incorrect <= QuestionsPerQuiz; incorrect++ {
			for _, elapsed := range []int64{0, 4 * minute, 6 * minute, 8 * minute, 60 * minute} {
				s := startedSession(t, 0)
				for i := 0; i < correct; i++ {
					s.Answers[i] = letters[1]
				}
				for i := correct; i < correct+incorrect; i++ {
					s.Answers[i] = letters[0]
				}
				require.NoError(t, ForceSubmit(s))

				got, err := ComputeScore(s, FixedClock(elapsed))
				require.NoError(t, err)
				assert.Equal(t, QuestionsPerQuiz, got.CorrectCount+got.IncorrectCount+got.Unanswered)
				assert.GreaterOrEqual(t, got.FinalScore, MinScore)
				assert.LessOrEqual(t, got.FinalScore, MaxScore)
			}
		}
	}
}

func TestComputeScoreClockBeforeStart(t *testing.T) {
	s := startedSession(t, 10*minute)
	require.NoError(t, ForceSubmit(s))

	got, err := ComputeScore(s, FixedClock(0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.ElapsedMinutes)
	assert.Equal(t, 20, got.TimeBonus)
}

func TestResetSession(t *testing.T) {
	s := ResetSession()
	assert.Equal(t, model.SessionNotStarted, s.Status)
	assert.Empty(t, s.Questions)
	assert.Empty(t, s.Answers)
	assert.Equal(t, TimeLimitSeconds, s.RemainingSeconds)
}

func allAnswers(letter model.OptionLetter) map[int]model.OptionLetter {
	m := make(map[int]model.OptionLetter, QuestionsPerQuiz)
	for i := 0; i < QuestionsPerQuiz; i++ {
		m[i] = letter
	}
	return m
}
