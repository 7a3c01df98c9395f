package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/enrollment"
)

type enrollmentRepository struct {
	enrollments *enrollmentTable
	completions *completionTable
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{
		enrollments: db.enrollment,
		completions: db.completion,
	}
}

func pairKey(learnerID, courseID string) string {
	return learnerID + "|" + courseID
}

func tripleKey(learnerID, courseID, lessonID string) string {
	return learnerID + "|" + courseID + "|" + lessonID
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.enrollments.mutex.Lock()
	defer repo.enrollments.mutex.Unlock()

	key := pairKey(enr.LearnerID, enr.CourseID)
	if _, ok := repo.enrollments.t[key]; ok {
		return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
	}
	enr.ID = uuid.New().String()
	repo.enrollments.t[key] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, learnerID, courseID string, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.enrollments.mutex.RLock()
	defer repo.enrollments.mutex.RUnlock()

	if enr, ok := repo.enrollments.t[pairKey(learnerID, courseID)]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollmentsByLearner(_ context.Context, learnerID string, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	repo.enrollments.mutex.RLock()
	defer repo.enrollments.mutex.RUnlock()

	var enrs []enrollment.Enrollment
	for _, enr := range repo.enrollments.t {
		if enr.LearnerID == learnerID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.After(enrs[j].EnrolledAt) })
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateProgress(_ context.Context, enrID string, progress float64, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.enrollments.mutex.Lock()
	defer repo.enrollments.mutex.Unlock()

	for key, enr := range repo.enrollments.t {
		if enr.ID == enrID {
			enr.Progress = progress
			enr.UpdatedAt = time.Now().UTC()
			repo.enrollments.t[key] = enr
			return *enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) InsertCompletion(_ context.Context, rec enrollment.CompletionRecord, _ ...core.DBExecutor) (bool, error) {
	repo.completions.mutex.Lock()
	defer repo.completions.mutex.Unlock()

	key := tripleKey(rec.LearnerID, rec.CourseID, rec.LessonID)
	if _, ok := repo.completions.t[key]; ok {
		return false, nil
	}
	rec.ID = uuid.New().String()
	repo.completions.t[key] = &rec
	return true, nil
}

func (repo *enrollmentRepository) GetCompletedLessonIDs(_ context.Context, learnerID, courseID string, _ ...core.DBExecutor) ([]string, error) {
	repo.completions.mutex.RLock()
	defer repo.completions.mutex.RUnlock()

	var ids []string
	for _, rec := range repo.completions.t {
		if rec.LearnerID == learnerID && rec.CourseID == courseID {
			ids = append(ids, rec.LessonID)
		}
	}
	return ids, nil
}

func (repo *enrollmentRepository) QueryCompletions(_ context.Context, learnerID, courseID string, _ ...core.DBExecutor) ([]enrollment.CompletionRecord, error) {
	repo.completions.mutex.RLock()
	defer repo.completions.mutex.RUnlock()

	var recs []enrollment.CompletionRecord
	for _, rec := range repo.completions.t {
		if rec.LearnerID == learnerID && rec.CourseID == courseID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CompletedAt.Before(recs[j].CompletedAt) })
	return recs, nil
}
