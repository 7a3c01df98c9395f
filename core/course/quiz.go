package course

import (
	"github.com/pkg/errors"
)

var ErrNotQuiz = errors.New("lesson is not a quiz")

// QuizAnswer is a learner's selected option indices for one question.
type QuizAnswer struct {
	QuestionID      string `json:"question_id"`
	SelectedIndices []int  `json:"selected_indices"`
}

// QuizResult summarizes a scored quiz attempt.
type QuizResult struct {
	LessonID     string  `json:"lesson_id"`
	Score        int     `json:"score"`
	MaxScore     int     `json:"max_score"`
	CorrectCount int     `json:"correct_count"`
	Total        int     `json:"total"`
	Percentage   float64 `json:"percentage"`
}

// ScoreQuiz grades a set of answers against a quiz lesson. A question is
// correct only when the selected indices match the correct indices exactly
// as sets; partial selections earn nothing. Unanswered questions count as
// incorrect. Answers for unknown question IDs are ignored.
func ScoreQuiz(lesson Lesson, answers []QuizAnswer) (QuizResult, error) {
	if lesson.Type != LessonQuiz {
		return QuizResult{}, ErrNotQuiz
	}

	byQuestion := make(map[string][]int, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.SelectedIndices
	}

	res := QuizResult{
		LessonID: lesson.ID,
		Total:    len(lesson.Questions),
	}
	for _, q := range lesson.Questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		res.MaxScore += points

		if sameIndexSet(byQuestion[q.ID], q.CorrectIndices) {
			res.Score += points
			res.CorrectCount++
		}
	}
	if res.MaxScore > 0 {
		res.Percentage = float64(res.Score) / float64(res.MaxScore)
	}
	return res, nil
}

func sameIndexSet(selected, correct []int) bool {
	if len(correct) == 0 {
		return false
	}
	set := make(map[int]bool, len(selected))
	for _, i := range selected {
		set[i] = true
	}
	if len(set) != len(correct) {
		return false
	}
	for _, i := range correct {
		if !set[i] {
			return false
		}
	}
	return true
}
