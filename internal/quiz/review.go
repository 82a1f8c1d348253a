package quiz

import (
	"fmt"

	"blockiq/internal/model"
)

// Rate maps a final score onto the band label shown with the result
func Rate(finalScore int) string {
	switch {
	case finalScore >= 130:
		return "Exceptional blockchain knowledge"
	case finalScore >= 115:
		return "Above average understanding"
	case finalScore >= 100:
		return "Good foundational knowledge"
	case finalScore >= 85:
		return "Developing understanding"
	default:
		return "Room for improvement - keep learning!"
	}
}

// Review lists every question of a completed session with the player's
// answer, the correct one and the explanation.
func Review(s *model.QuizSession) ([]model.ReviewItem, error) {
	if s.Status != model.SessionCompleted {
		return nil, ErrInvalidState
	}
	items := make([]model.ReviewItem, len(s.Questions))
	for i, q := range s.Questions {
		selected, answered := s.Answers[i]
		verdict := model.VerdictUnanswered
		if answered {
			verdict = model.VerdictIncorrect
			if selected == q.CorrectOption {
				verdict = model.VerdictCorrect
			}
		}
		items[i] = model.ReviewItem{
			Index:         i,
			QuestionID:    q.ID,
			Category:      q.Category,
			Prompt:        q.Prompt,
			Options:       q.Options,
			Selected:      selected,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
			Verdict:       verdict,
		}
	}
	return items, nil
}

// ShareText is the line a player can post after unlocking a result
func ShareText(res *model.ScoreResult) string {
	total := res.CorrectCount + res.IncorrectCount + res.Unanswered
	return fmt.Sprintf("I just scored %d/%d on BlockIQ - the Blockchain IQ Quiz!", res.CorrectCount, total)
}
