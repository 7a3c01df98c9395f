package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/certificate"
)

// State is derived from progress, never stored independently.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Enrollment ties a learner to a course. Progress is a cached ratio in
// [0, 1]; the completion records are the source of truth and progress is
// recomputed from them on every completion.
type Enrollment struct {
	ID         string    `json:"id"`
	LearnerID  string    `json:"learner_id"`
	CourseID   string    `json:"course_id"`
	Progress   float64   `json:"progress"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"`  // UTC
}

func (e *Enrollment) State() State {
	switch {
	case e.Progress >= 1:
		return StateCompleted
	case e.Progress > 0:
		return StateInProgress
	default:
		return StateNotStarted
	}
}

// CompletionRecord marks one lesson done by one learner. The
// (learner, course, lesson) triple is unique; re-completing is a no-op.
type CompletionRecord struct {
	ID          string    `json:"id"`
	LearnerID   string    `json:"learner_id"`
	CourseID    string    `json:"course_id"`
	LessonID    string    `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"` // UTC
}

// CompletionResult is everything a caller needs to react to a completion:
// the fresh progress, what to open next, and the certificate when this
// completion finished the course.
type CompletionResult struct {
	CourseID        string                   `json:"course_id"`
	LessonID        string                   `json:"lesson_id"`
	AlreadyComplete bool                     `json:"already_complete"`
	Progress        float64                  `json:"progress"`
	NextLessonID    string                   `json:"next_lesson_id,omitempty"`
	CourseCompleted bool                     `json:"course_completed"`
	Certificate     *certificate.Certificate `json:"certificate,omitempty"`
}

// NewEnrollment contains information needed by a learner to enroll in a course.
// PaymentRef is an opaque reference from the payment provider, required for
// priced courses; its verification happens upstream.
type NewEnrollment struct {
	CourseID   string `json:"course_id" validate:"required"`
	PaymentRef string `json:"payment_ref"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.CourseID = core.CleanString(ne.CourseID)
	ne.PaymentRef = core.CleanString(ne.PaymentRef)
	return validate.Struct(ne)
}
