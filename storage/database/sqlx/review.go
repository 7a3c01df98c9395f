package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/review"
)

const reviewColumns = `id, course_id, learner_id, learner_name, rating, review_text, is_visible, created_at, updated_at`

type dbReview struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	LearnerID   string    `db:"learner_id"`
	LearnerName string    `db:"learner_name"`
	Rating      int       `db:"rating"`
	Text        string    `db:"review_text"`
	Visible     bool      `db:"is_visible"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *sqlx.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

func (repo reviewRepository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	return getExec(repo.db, svcExec)
}

func (repo reviewRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return review.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo reviewRepository) UpsertReview(ctx context.Context, rev review.Review, exec ...core.DBExecutor) (review.Review, error) {
	rev.ID = uuid.New().String()
	ext := repo.getExec(exec)

	// on replace the original row keeps its id and created_at
	q := ext.Rebind(`
		INSERT INTO course_review (id, course_id, learner_id, learner_name, rating, review_text, is_visible, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (course_id, learner_id) DO UPDATE SET
			learner_name = EXCLUDED.learner_name,
			rating       = EXCLUDED.rating,
			review_text  = EXCLUDED.review_text,
			is_visible   = EXCLUDED.is_visible,
			updated_at   = EXCLUDED.updated_at
		RETURNING id, created_at`)
	err := ext.QueryRowxContext(ctx, q,
		rev.ID, rev.CourseID, rev.LearnerID, rev.LearnerName,
		rev.Rating, rev.Text, rev.Visible, rev.CreatedAt, rev.UpdatedAt,
	).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		return review.Review{}, errors.Wrap(err, "upserting review")
	}
	return rev, nil
}

func (repo reviewRepository) GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (review.Review, error) {
	ext := repo.getExec(exec)
	var dr dbReview
	q := ext.Rebind(`SELECT ` + reviewColumns + ` FROM course_review WHERE id = ?`)
	if err := sqlx.GetContext(ctx, ext, &dr, q, id); err != nil {
		return review.Review{}, repo.trapNoRowsErr(err, "getting review")
	}
	return review.Review(dr), nil
}

func (repo reviewRepository) FindReview(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) (review.Review, error) {
	ext := repo.getExec(exec)
	var dr dbReview
	q := ext.Rebind(`SELECT ` + reviewColumns + ` FROM course_review WHERE learner_id = ? AND course_id = ?`)
	if err := sqlx.GetContext(ctx, ext, &dr, q, learnerID, courseID); err != nil {
		return review.Review{}, repo.trapNoRowsErr(err, "finding review")
	}
	return review.Review(dr), nil
}

func (repo reviewRepository) QueryReviewsByCourse(ctx context.Context, courseID string, visibleOnly bool, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]review.Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM course_review WHERE course_id = ?`
	if visibleOnly {
		q += ` AND is_visible`
	}
	q += orderBy(ordering, "created_at DESC")

	ext := repo.getExec(exec)
	var rows []dbReview
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(q), courseID); err != nil {
		return nil, errors.Wrap(err, "querying course reviews")
	}
	return toReviews(rows), nil
}

func (repo reviewRepository) QueryReviewsByEducator(ctx context.Context, educatorID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]review.Review, error) {
	q := `
		SELECT r.id, r.course_id, r.learner_id, r.learner_name, r.rating, r.review_text, r.is_visible, r.created_at, r.updated_at
		FROM course_review r
		JOIN course c ON c.id = r.course_id
		WHERE c.educator_id = ?` + orderBy(ordering, "r.created_at DESC")

	ext := repo.getExec(exec)
	var rows []dbReview
	if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(q), educatorID); err != nil {
		return nil, errors.Wrap(err, "querying educator reviews")
	}
	return toReviews(rows), nil
}

func (repo reviewRepository) UpdateReviewVisibility(ctx context.Context, id string, visible bool, exec ...core.DBExecutor) (review.Review, error) {
	ext := repo.getExec(exec)
	var dr dbReview
	q := ext.Rebind(`UPDATE course_review SET is_visible = ?, updated_at = NOW() WHERE id = ? RETURNING ` + reviewColumns)
	if err := sqlx.GetContext(ctx, ext, &dr, q, visible, id); err != nil {
		return review.Review{}, repo.trapNoRowsErr(err, "updating review visibility")
	}
	return review.Review(dr), nil
}

func (repo reviewRepository) DeleteReview(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ext := repo.getExec(exec)
	res, err := ext.ExecContext(ctx, ext.Rebind(`DELETE FROM course_review WHERE id = ?`), id)
	if err != nil {
		return errors.Wrap(err, "deleting review")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return review.ErrNotFound
	}
	return nil
}

func toReviews(rows []dbReview) []review.Review {
	revs := make([]review.Review, 0, len(rows))
	for _, dr := range rows {
		revs = append(revs, review.Review(dr))
	}
	return revs
}
