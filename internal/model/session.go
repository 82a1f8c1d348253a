package model

// SessionStatus is the lifecycle state of a quiz attempt
type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// QuizSession is one player's attempt. The engine mutates it only through
// explicit operations; the owner is responsible for serializing access.
type QuizSession struct {
	ID                string               `json:"id"`
	PlayerID          string               `json:"playerId"`
	Questions         []Question           `json:"questions"`
	CurrentIndex      int                  `json:"currentIndex"`
	Answers           map[int]OptionLetter `json:"answers"`
	RemainingSeconds  int                  `json:"remainingSeconds"`
	StartedAtMillis   int64                `json:"startedAtMillis"`
	CompletedAtMillis int64                `json:"completedAtMillis,omitempty"`
	TimedOut          bool                 `json:"timedOut,omitempty"`
	Status            SessionStatus        `json:"status"`

	// Set once the payment gate has accepted a transaction for this session
	Unlocked bool   `json:"unlocked"`
	TxHash   string `json:"txHash,omitempty"`
}

// CurrentQuestion returns the question at CurrentIndex, or nil
func (s *QuizSession) CurrentQuestion() *Question {
	if s == nil || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentIndex]
}

// AnsweredCount returns how many questions currently hold an answer
func (s *QuizSession) AnsweredCount() int {
	return len(s.Answers)
}

// SessionView is what a player sees while the quiz runs: no correct
// answers, no explanations
type SessionView struct {
	ID               string               `json:"id"`
	Status           SessionStatus        `json:"status"`
	CurrentIndex     int                  `json:"currentIndex"`
	Total            int                  `json:"total"`
	Question         *Question            `json:"question,omitempty"`
	SelectedOption   OptionLetter         `json:"selectedOption,omitempty"`
	Answers          map[int]OptionLetter `json:"answers"`
	RemainingSeconds int                  `json:"remainingSeconds"`
	Unlocked         bool                 `json:"unlocked"`
}

// View builds the player-facing projection of s
func (s *QuizSession) View() *SessionView {
	v := &SessionView{
		ID:               s.ID,
		Status:           s.Status,
		CurrentIndex:     s.CurrentIndex,
		Total:            len(s.Questions),
		Answers:          make(map[int]OptionLetter, len(s.Answers)),
		RemainingSeconds: s.RemainingSeconds,
		Unlocked:         s.Unlocked,
	}
	for k, a := range s.Answers {
		v.Answers[k] = a
	}
	if s.Status == SessionInProgress {
		if q := s.CurrentQuestion(); q != nil {
			pub := q.Public()
			v.Question = &pub
			v.SelectedOption = s.Answers[s.CurrentIndex]
		}
	}
	return v
}
