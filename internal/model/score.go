package model

// ScoreResult is the full breakdown produced for a completed session
type ScoreResult struct {
	CorrectCount     int     `json:"correctCount" bson:"correctCount"`
	IncorrectCount   int     `json:"incorrectCount" bson:"incorrectCount"`
	Unanswered       int     `json:"unanswered" bson:"unanswered"`
	BasePoints       int     `json:"basePoints" bson:"basePoints"`
	CorrectPoints    int     `json:"correctPoints" bson:"correctPoints"`
	IncorrectPenalty int     `json:"incorrectPenalty" bson:"incorrectPenalty"`
	TimeBonus        int     `json:"timeBonus" bson:"timeBonus"`
	RawScore         int     `json:"rawScore" bson:"rawScore"`
	FinalScore       int     `json:"finalScore" bson:"finalScore"`
	AccuracyPercent  int     `json:"accuracyPercent" bson:"accuracyPercent"`
	ElapsedMinutes   float64 `json:"elapsedMinutes" bson:"elapsedMinutes"`
}

// ReviewItem is one row of the post-unlock answer review
type ReviewItem struct {
	Index         int          `json:"index" bson:"index"`
	QuestionID    int          `json:"questionId" bson:"questionId"`
	Category      Category     `json:"category" bson:"category"`
	Prompt        string       `json:"prompt" bson:"prompt"`
	Options       []string     `json:"options" bson:"options"`
	Selected      OptionLetter `json:"selected,omitempty" bson:"selected,omitempty"`
	CorrectOption OptionLetter `json:"correctOption" bson:"correctOption"`
	Explanation   string       `json:"explanation" bson:"explanation"`
	Verdict       string       `json:"verdict" bson:"verdict"` // "correct", "incorrect", "unanswered"
}

const (
	VerdictCorrect    = "correct"
	VerdictIncorrect  = "incorrect"
	VerdictUnanswered = "unanswered"
)
