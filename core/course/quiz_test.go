package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizLesson() Lesson {
	return Lesson{
		ID:    "q1",
		Title: "Checkpoint",
		Type:  LessonQuiz,
		Questions: []QuizQuestion{
			{ID: "qa", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectIndices: []int{1}},
			{ID: "qb", Prompt: "Primes?", Options: []string{"2", "3", "4"}, CorrectIndices: []int{0, 1}, Points: 2},
		},
	}
}

func TestScoreQuiz(t *testing.T) {
	lesson := quizLesson()

	tests := []struct {
		name        string
		answers     []QuizAnswer
		wantScore   int
		wantCorrect int
	}{
		{
			"all correct",
			[]QuizAnswer{
				{QuestionID: "qa", SelectedIndices: []int{1}},
				{QuestionID: "qb", SelectedIndices: []int{1, 0}}, // order must not matter
			},
			3, 2,
		},
		{
			"partial selection earns nothing",
			[]QuizAnswer{
				{QuestionID: "qa", SelectedIndices: []int{1}},
				{QuestionID: "qb", SelectedIndices: []int{0}},
			},
			1, 1,
		},
		{
			"extra selection earns nothing",
			[]QuizAnswer{
				{QuestionID: "qa", SelectedIndices: []int{0, 1}},
			},
			0, 0,
		},
		{"unanswered", nil, 0, 0},
		{
			"unknown question ignored",
			[]QuizAnswer{
				{QuestionID: "ghost", SelectedIndices: []int{0}},
				{QuestionID: "qa", SelectedIndices: []int{1}},
			},
			1, 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ScoreQuiz(lesson, tt.answers)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Equal(t, tt.wantCorrect, res.CorrectCount)
			assert.Equal(t, 3, res.MaxScore)
			assert.Equal(t, 2, res.Total)
		})
	}
}

func TestScoreQuizNotQuiz(t *testing.T) {
	_, err := ScoreQuiz(Lesson{ID: "l1", Type: LessonText}, nil)
	assert.Equal(t, ErrNotQuiz, err)
}
