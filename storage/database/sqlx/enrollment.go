package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/enrollment"
)

const enrollmentColumns = `id, learner_id, course_id, progress, payment_ref, enrolled_at, updated_at`

type dbEnrollment struct {
	ID         string    `db:"id"`
	LearnerID  string    `db:"learner_id"`
	CourseID   string    `db:"course_id"`
	Progress   float64   `db:"progress"`
	PaymentRef string    `db:"payment_ref"`
	EnrolledAt time.Time `db:"enrolled_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (de dbEnrollment) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:         de.ID,
		LearnerID:  de.LearnerID,
		CourseID:   de.CourseID,
		Progress:   de.Progress,
		PaymentRef: de.PaymentRef,
		EnrolledAt: de.EnrolledAt,
		UpdatedAt:  de.UpdatedAt,
	}
}

type dbCompletion struct {
	ID          string    `db:"id"`
	LearnerID   string    `db:"learner_id"`
	CourseID    string    `db:"course_id"`
	LessonID    string    `db:"lesson_id"`
	CompletedAt time.Time `db:"completed_at"`
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	return getExec(repo.db, svcExec)
}

func (repo enrollmentRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return enrollment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	enr.ID = uuid.New().String()
	ext := repo.getExec(exec)

	q := ext.Rebind(`
		INSERT INTO enrollment (id, learner_id, course_id, progress, payment_ref, enrolled_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := ext.ExecContext(ctx, q,
		enr.ID, enr.LearnerID, enr.CourseID, enr.Progress, enr.PaymentRef, enr.EnrolledAt, enr.UpdatedAt)
	if err != nil {
		if uniqueViolation(err) == "enrollment_learner_course_key" {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	ext := repo.getExec(exec)
	var de dbEnrollment
	q := ext.Rebind(`SELECT ` + enrollmentColumns + ` FROM enrollment WHERE learner_id = ? AND course_id = ?`)
	if err := sqlx.GetContext(ctx, ext, &de, q, learnerID, courseID); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "finding enrollment")
	}
	return de.toEnrollment(), nil
}

func (repo enrollmentRepository) QueryEnrollmentsByLearner(ctx context.Context, learnerID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE learner_id = ?` + orderBy(ordering, "enrolled_at DESC")

	ext := repo.getExec(exec)
	var rows []dbEnrollment
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(q), learnerID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, de := range rows {
		enrs = append(enrs, de.toEnrollment())
	}
	return enrs, nil
}

func (repo enrollmentRepository) UpdateProgress(ctx context.Context, enrID string, progress float64, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	ext := repo.getExec(exec)
	q := ext.Rebind(`
		UPDATE enrollment SET progress = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + enrollmentColumns)

	var de dbEnrollment
	row := ext.QueryRowxContext(ctx, q, progress, time.Now().UTC(), enrID)
	if err := row.StructScan(&de); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "updating enrollment progress")
	}
	return de.toEnrollment(), nil
}

func (repo enrollmentRepository) InsertCompletion(ctx context.Context, rec enrollment.CompletionRecord, exec ...core.DBExecutor) (bool, error) {
	ext := repo.getExec(exec)
	// ON CONFLICT DO NOTHING makes re-completion a no-op at the store level
	q := ext.Rebind(`
		INSERT INTO lesson_completion (id, learner_id, course_id, lesson_id, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT ON CONSTRAINT lesson_completion_learner_course_lesson_key DO NOTHING`)
	res, err := ext.ExecContext(ctx, q,
		uuid.New().String(), rec.LearnerID, rec.CourseID, rec.LessonID, rec.CompletedAt)
	if err != nil {
		return false, errors.Wrap(err, "inserting lesson completion")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "inserting lesson completion")
	}
	return n > 0, nil
}

func (repo enrollmentRepository) GetCompletedLessonIDs(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) ([]string, error) {
	ext := repo.getExec(exec)
	var ids []string
	q := ext.Rebind(`SELECT lesson_id FROM lesson_completion WHERE learner_id = ? AND course_id = ?`)
	if err := sqlx.SelectContext(ctx, ext, &ids, q, learnerID, courseID); err != nil {
		return nil, errors.Wrap(err, "querying completed lessons")
	}
	return ids, nil
}

func (repo enrollmentRepository) QueryCompletions(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) ([]enrollment.CompletionRecord, error) {
	ext := repo.getExec(exec)
	var rows []dbCompletion
	q := ext.Rebind(`
		SELECT id, learner_id, course_id, lesson_id, completed_at
		FROM lesson_completion
		WHERE learner_id = ? AND course_id = ?
		ORDER BY completed_at`)
	if err := sqlx.SelectContext(ctx, ext, &rows, q, learnerID, courseID); err != nil {
		return nil, errors.Wrap(err, "querying lesson completions")
	}
	recs := make([]enrollment.CompletionRecord, 0, len(rows))
	for _, rec := range rows {
		recs = append(recs, enrollment.CompletionRecord(rec))
	}
	return recs, nil
}
