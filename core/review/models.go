package review

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tlmsproject/tlms/core"
)

// Review is a learner's rating of a course, at most one per
// (course, learner) pair. LearnerName is denormalized at submission time.
// Visible is a moderation flag; hidden reviews stay out of the course
// listing but remain visible to the educator.
type Review struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	LearnerID   string    `json:"learner_id"`
	LearnerName string    `json:"learner_name"`
	Rating      int       `json:"rating"`
	Text        string    `json:"text,omitempty"`
	Visible     bool      `json:"visible"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewReview contains what a learner submits about a course. Submitting
// again replaces the previous rating and text.
type NewReview struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Text = core.CleanString(nr.Text)
	return validate.Struct(nr)
}

// Summary aggregates a set of reviews for display next to a course.
type Summary struct {
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

func Summarize(revs []Review) Summary {
	if len(revs) == 0 {
		return Summary{}
	}
	var total int
	for _, rev := range revs {
		total += rev.Rating
	}
	return Summary{
		Count:         len(revs),
		AverageRating: float64(total) / float64(len(revs)),
	}
}
