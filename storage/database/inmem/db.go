package inmemdb

import (
	"sync"

	"github.com/tlmsproject/tlms/core/certificate"
	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/enrollment"
	"github.com/tlmsproject/tlms/core/review"
	"github.com/tlmsproject/tlms/core/user"
)

type (
	DB struct {
		user        *userTable
		course      *courseTable
		enrollment  *enrollmentTable
		completion  *completionTable
		certificate *certificateTable
		review      *reviewTable
	}

	userTable struct {
		t     map[string]*user.User
		mutex sync.RWMutex
	}

	courseTable struct {
		t     map[string]*course.Course
		mutex sync.RWMutex
	}

	enrollmentTable struct {
		t     map[string]*enrollment.Enrollment
		mutex sync.RWMutex
	}

	// completions are keyed by learnerID|courseID|lessonID, the same
	// uniqueness the SQL schema enforces
	completionTable struct {
		t     map[string]*enrollment.CompletionRecord
		mutex sync.RWMutex
	}

	certificateTable struct {
		t     map[string]*certificate.Certificate
		mutex sync.RWMutex
	}

	// reviews are keyed by learnerID|courseID, the same uniqueness the
	// SQL schema enforces
	reviewTable struct {
		t     map[string]*review.Review
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:        &userTable{t: make(map[string]*user.User)},
		course:      &courseTable{t: make(map[string]*course.Course)},
		enrollment:  &enrollmentTable{t: make(map[string]*enrollment.Enrollment)},
		completion:  &completionTable{t: make(map[string]*enrollment.CompletionRecord)},
		certificate: &certificateTable{t: make(map[string]*certificate.Certificate)},
		review:      &reviewTable{t: make(map[string]*review.Review)},
	}
	return db, nil
}
