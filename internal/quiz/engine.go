// Package quiz holds the BlockIQ quiz engine: question selection, the
// session state machine and score computation. Every function here is
// synchronous and touches only the session it is given; callers that
// share a session between goroutines must serialize access themselves.
package quiz

import (
	"fmt"
	"math"

	"blockiq/internal/model"
)

const (
	QuestionsPerQuiz = 10
	TimeLimitSeconds = 600

	BasePoints          = 100
	PointsPerCorrect    = 10
	PenaltyPerIncorrect = 5
	MinScore            = 50
	MaxScore            = 150
)

// timeBonuses is ordered by ascending threshold; the first match wins
var timeBonuses = []struct {
	underMinutes float64
	bonus        int
}{
	{5, 20},
	{7, 10},
	{10, 5},
}

// SelectQuestions draws count distinct questions from catalog in random
// order using a partial Fisher-Yates shuffle over a copy of the catalog.
func SelectQuestions(catalog []model.Question, rnd RandomSource, count int) ([]model.Question, error) {
	if len(catalog) < count {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCatalog, count, len(catalog))
	}
	if count <= 0 {
		return []model.Question{}, nil
	}

	pool := make([]model.Question, len(catalog))
	copy(pool, catalog)

	n := len(pool)
	for i := 0; i < count; i++ {
		j := i + rnd.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:count:count], nil
}

// StartSession creates an in-progress session with a fresh draw
func StartSession(catalog []model.Question, rnd RandomSource, clock Clock) (*model.QuizSession, error) {
	questions, err := SelectQuestions(catalog, rnd, QuestionsPerQuiz)
	if err != nil {
		return nil, err
	}

	return &model.QuizSession{
		Questions:        questions,
		CurrentIndex:     0,
		Answers:          make(map[int]model.OptionLetter),
		RemainingSeconds: TimeLimitSeconds,
		StartedAtMillis:  clock.NowMillis(),
		Status:           model.SessionInProgress,
	}, nil
}

// RecordAnswer stores letter as the answer to the current question,
// replacing any earlier answer to it.
func RecordAnswer(s *model.QuizSession, letter model.OptionLetter) error {
	if s.Status != model.SessionInProgress {
		return ErrInvalidState
	}
	if !letter.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidOption, letter)
	}
	if s.Answers == nil {
		s.Answers = make(map[int]model.OptionLetter)
	}
	s.Answers[s.CurrentIndex] = letter
	return nil
}

// Advance moves to the next question, or completes the session when the
// last question is current.
func Advance(s *model.QuizSession) error {
	if s.Status != model.SessionInProgress {
		return ErrInvalidState
	}
	if s.CurrentIndex < len(s.Questions)-1 {
		s.CurrentIndex++
		return nil
	}
	s.Status = model.SessionCompleted
	return nil
}

// Tick consumes one second of the time limit and reports whether the
// limit has been reached. Sessions that are not in progress are left alone.
func Tick(s *model.QuizSession) bool {
	if s.Status != model.SessionInProgress {
		return false
	}
	if s.RemainingSeconds > 0 {
		s.RemainingSeconds--
	}
	return s.RemainingSeconds == 0
}

// ForceSubmit completes an in-progress session regardless of the current
// question.
func ForceSubmit(s *model.QuizSession) error {
	if s.Status != model.SessionInProgress {
		return ErrInvalidState
	}
	s.Status = model.SessionCompleted
	return nil
}

// ComputeScore scores a completed session against clock. Scoring an
// unfinished session is an error rather than a partial result.
func ComputeScore(s *model.QuizSession, clock Clock) (*model.ScoreResult, error) {
	if s.Status != model.SessionCompleted {
		return nil, ErrInvalidState
	}

	total := len(s.Questions)
	res := &model.ScoreResult{BasePoints: BasePoints}
	for i, q := range s.Questions {
		answer, ok := s.Answers[i]
		switch {
		case !ok:
		case answer == q.CorrectOption:
			res.CorrectCount++
		default:
			res.IncorrectCount++
		}
	}
	res.Unanswered = total - res.CorrectCount - res.IncorrectCount

	res.CorrectPoints = res.CorrectCount * PointsPerCorrect
	res.IncorrectPenalty = res.IncorrectCount * PenaltyPerIncorrect

	elapsedMillis := clock.NowMillis() - s.StartedAtMillis
	if elapsedMillis < 0 {
		elapsedMillis = 0
	}
	minutes := float64(elapsedMillis) / 60000
	res.TimeBonus = timeBonus(minutes)
	res.ElapsedMinutes = math.Round(minutes*10) / 10

	res.RawScore = res.BasePoints + res.CorrectPoints - res.IncorrectPenalty + res.TimeBonus
	res.FinalScore = clamp(res.RawScore, MinScore, MaxScore)

	if total > 0 {
		res.AccuracyPercent = int(math.Round(float64(res.CorrectCount) / float64(total) * 100))
	}
	return res, nil
}

// ResetSession returns a fresh session that has not been started
func ResetSession() *model.QuizSession {
	return &model.QuizSession{
		Answers:          make(map[int]model.OptionLetter),
		RemainingSeconds: TimeLimitSeconds,
		Status:           model.SessionNotStarted,
	}
}

func timeBonus(minutes float64) int {
	for _, b := range timeBonuses {
		if minutes < b.underMinutes {
			return b.bonus
		}
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
