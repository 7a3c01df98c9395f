package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/review"
)

type reviewRepository struct {
	reviews *reviewTable
	courses *courseTable
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) *reviewRepository {
	return &reviewRepository{
		reviews: db.review,
		courses: db.course,
	}
}

func (repo *reviewRepository) UpsertReview(_ context.Context, rev review.Review, _ ...core.DBExecutor) (review.Review, error) {
	repo.reviews.mutex.Lock()
	defer repo.reviews.mutex.Unlock()

	key := pairKey(rev.LearnerID, rev.CourseID)
	if existing, ok := repo.reviews.t[key]; ok {
		rev.ID = existing.ID
		rev.CreatedAt = existing.CreatedAt
		repo.reviews.t[key] = &rev
		return rev, nil
	}
	rev.ID = uuid.New().String()
	repo.reviews.t[key] = &rev
	return rev, nil
}

func (repo *reviewRepository) GetReview(_ context.Context, id string, _ ...core.DBExecutor) (review.Review, error) {
	repo.reviews.mutex.RLock()
	defer repo.reviews.mutex.RUnlock()

	for _, rev := range repo.reviews.t {
		if rev.ID == id {
			return *rev, nil
		}
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) FindReview(_ context.Context, learnerID, courseID string, _ ...core.DBExecutor) (review.Review, error) {
	repo.reviews.mutex.RLock()
	defer repo.reviews.mutex.RUnlock()

	if rev, ok := repo.reviews.t[pairKey(learnerID, courseID)]; ok {
		return *rev, nil
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) QueryReviewsByCourse(_ context.Context, courseID string, visibleOnly bool, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]review.Review, error) {
	repo.reviews.mutex.RLock()
	defer repo.reviews.mutex.RUnlock()

	var revs []review.Review
	for _, rev := range repo.reviews.t {
		if rev.CourseID == courseID && (!visibleOnly || rev.Visible) {
			revs = append(revs, *rev)
		}
	}
	sortReviews(revs)
	return revs, nil
}

func (repo *reviewRepository) QueryReviewsByEducator(_ context.Context, educatorID string, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]review.Review, error) {
	owned := make(map[string]bool)
	repo.courses.mutex.RLock()
	for _, crs := range repo.courses.t {
		if crs.EducatorID == educatorID {
			owned[crs.ID] = true
		}
	}
	repo.courses.mutex.RUnlock()

	repo.reviews.mutex.RLock()
	defer repo.reviews.mutex.RUnlock()

	var revs []review.Review
	for _, rev := range repo.reviews.t {
		if owned[rev.CourseID] {
			revs = append(revs, *rev)
		}
	}
	sortReviews(revs)
	return revs, nil
}

func (repo *reviewRepository) UpdateReviewVisibility(_ context.Context, id string, visible bool, _ ...core.DBExecutor) (review.Review, error) {
	repo.reviews.mutex.Lock()
	defer repo.reviews.mutex.Unlock()

	for _, rev := range repo.reviews.t {
		if rev.ID == id {
			rev.Visible = visible
			return *rev, nil
		}
	}
	return review.Review{}, review.ErrNotFound
}

func (repo *reviewRepository) DeleteReview(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.reviews.mutex.Lock()
	defer repo.reviews.mutex.Unlock()

	for key, rev := range repo.reviews.t {
		if rev.ID == id {
			delete(repo.reviews.t, key)
			return nil
		}
	}
	return review.ErrNotFound
}

func sortReviews(revs []review.Review) {
	sort.Slice(revs, func(i, j int) bool { return revs[i].CreatedAt.After(revs[j].CreatedAt) })
}
