package certificate

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Certificate is the immutable record of a fully completed course.
// Number is the public, unique identifier printed on the document;
// verification happens by Number, not by ID.
type Certificate struct {
	ID             string    `json:"id"`
	Number         string    `json:"number"`
	LearnerID      string    `json:"learner_id"`
	LearnerName    string    `json:"learner_name"`
	CourseID       string    `json:"course_id"`
	CourseTitle    string    `json:"course_title"`
	InstructorName string    `json:"instructor_name"`
	IssuedAt       time.Time `json:"issued_at"` // UTC
}

var (
	numberRandMu sync.Mutex
	numberRand   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// GenerateNumber produces a certificate number of the form
// TLMS-<unix seconds>-<4 digit random>. Uniqueness is enforced by the
// store; callers retry on collision.
func GenerateNumber() string {
	numberRandMu.Lock()
	n := 1000 + numberRand.Intn(9000)
	numberRandMu.Unlock()
	return fmt.Sprintf("TLMS-%d-%d", time.Now().Unix(), n)
}
