package review

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("review not found")
	ErrCourseNotPublished = errors.New("course is not open for reviews")
	ErrNotOwner           = errors.New("review belongs to another learner")
)

type (
	Repository interface {
		// UpsertReview creates or replaces the (course, learner) review,
		// preserving ID and CreatedAt on replace.
		UpsertReview(ctx context.Context, rev Review, exec ...core.DBExecutor) (Review, error)
		GetReview(ctx context.Context, id string, exec ...core.DBExecutor) (Review, error)
		// FindReview looks up by (learner, course) pair.
		FindReview(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) (Review, error)
		QueryReviewsByCourse(ctx context.Context, courseID string, visibleOnly bool, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Review, error)
		// QueryReviewsByEducator lists reviews across all of the educator's
		// courses, hidden ones included.
		QueryReviewsByEducator(ctx context.Context, educatorID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Review, error)
		UpdateReviewVisibility(ctx context.Context, id string, visible bool, exec ...core.DBExecutor) (Review, error)
		DeleteReview(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Submit records the learner's review of a published course.
		// Resubmitting replaces the rating and text and restores visibility.
		Submit(ctx context.Context, learner user.User, crs course.Course, nr NewReview) (Review, error)
		Find(ctx context.Context, learnerID, courseID string) (Review, error)
		QueryByCourse(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]Review, error)
		QueryByEducator(ctx context.Context, educatorID string, ordering []core.DBOrdering) ([]Review, error)
		// SetVisibility is the moderation switch; hidden reviews drop out of
		// the course listing.
		SetVisibility(ctx context.Context, id string, visible bool) (Review, error)
		// Delete removes the review; only its author or an admin may.
		Delete(ctx context.Context, id string, actor user.User) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Submit(ctx context.Context, learner user.User, crs course.Course, nr NewReview) (Review, error) {
	if !crs.IsPublished() {
		return Review{}, ErrCourseNotPublished
	}

	now := time.Now().UTC()
	rev := Review{
		CourseID:    crs.ID,
		LearnerID:   learner.ID,
		LearnerName: learner.Name,
		Rating:      nr.Rating,
		Text:        nr.Text,
		Visible:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.UpsertReview(ctx, rev)
}

func (svc *service) Find(ctx context.Context, learnerID, courseID string) (Review, error) {
	return svc.repo.FindReview(ctx, learnerID, courseID)
}

func (svc *service) QueryByCourse(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]Review, error) {
	return svc.repo.QueryReviewsByCourse(ctx, courseID, true, ordering)
}

func (svc *service) QueryByEducator(ctx context.Context, educatorID string, ordering []core.DBOrdering) ([]Review, error) {
	return svc.repo.QueryReviewsByEducator(ctx, educatorID, ordering)
}

func (svc *service) SetVisibility(ctx context.Context, id string, visible bool) (Review, error) {
	return svc.repo.UpdateReviewVisibility(ctx, id, visible)
}

func (svc *service) Delete(ctx context.Context, id string, actor user.User) error {
	rev, err := svc.repo.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if rev.LearnerID != actor.ID && !actor.IsAdmin() {
		return ErrNotOwner
	}
	return svc.repo.DeleteReview(ctx, id)
}
