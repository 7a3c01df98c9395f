package review

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/user"
)

// fakeRepo is a minimal in-memory Repository with the same unique
// constraint as the SQL schema. educators maps course id to educator id
// for the educator-wide query.
type fakeRepo struct {
	mu        sync.Mutex
	reviews   []Review
	educators map[string]string
}

var _ Repository = (*fakeRepo)(nil)

func (r *fakeRepo) UpsertReview(_ context.Context, rev Review, _ ...core.DBExecutor) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.reviews {
		if existing.CourseID == rev.CourseID && existing.LearnerID == rev.LearnerID {
			rev.ID = existing.ID
			rev.CreatedAt = existing.CreatedAt
			r.reviews[i] = rev
			return rev, nil
		}
	}
	rev.ID = uuid.New().String()
	r.reviews = append(r.reviews, rev)
	return rev, nil
}

func (r *fakeRepo) GetReview(_ context.Context, id string, _ ...core.DBExecutor) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.reviews {
		if rev.ID == id {
			return rev, nil
		}
	}
	return Review{}, ErrNotFound
}

func (r *fakeRepo) FindReview(_ context.Context, learnerID, courseID string, _ ...core.DBExecutor) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.reviews {
		if rev.LearnerID == learnerID && rev.CourseID == courseID {
			return rev, nil
		}
	}
	return Review{}, ErrNotFound
}

func (r *fakeRepo) QueryReviewsByCourse(_ context.Context, courseID string, visibleOnly bool, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Review
	for _, rev := range r.reviews {
		if rev.CourseID == courseID && (!visibleOnly || rev.Visible) {
			res = append(res, rev)
		}
	}
	return res, nil
}

func (r *fakeRepo) QueryReviewsByEducator(_ context.Context, educatorID string, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Review
	for _, rev := range r.reviews {
		if r.educators[rev.CourseID] == educatorID {
			res = append(res, rev)
		}
	}
	return res, nil
}

func (r *fakeRepo) UpdateReviewVisibility(_ context.Context, id string, visible bool, _ ...core.DBExecutor) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rev := range r.reviews {
		if rev.ID == id {
			r.reviews[i].Visible = visible
			return r.reviews[i], nil
		}
	}
	return Review{}, ErrNotFound
}

func (r *fakeRepo) DeleteReview(_ context.Context, id string, _ ...core.DBExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rev := range r.reviews {
		if rev.ID == id {
			r.reviews = append(r.reviews[:i], r.reviews[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	learner := user.User{ID: "lrn1", Name: "Jane Doe"}
	published := course.Course{ID: "crs1", Title: "Go Basics", Status: course.StatusPublished}

	svc := NewServiceMock(&fakeRepo{})

	t.Run("published only", func(t *testing.T) {
		_, err := svc.Submit(ctx, learner, course.Course{ID: "crs2", Status: course.StatusDraft}, NewReview{Rating: 5})
		assert.Equal(t, ErrCourseNotPublished, err)
	})

	t.Run("one review per learner and course", func(t *testing.T) {
		rev, err := svc.Submit(ctx, learner, published, NewReview{Rating: 4, Text: "Solid intro"})
		require.NoError(t, err)
		assert.Equal(t, 4, rev.Rating)
		assert.Equal(t, "Jane Doe", rev.LearnerName)
		assert.True(t, rev.Visible)

		again, err := svc.Submit(ctx, learner, published, NewReview{Rating: 2, Text: "Changed my mind"})
		require.NoError(t, err)
		assert.Equal(t, rev.ID, again.ID)
		assert.Equal(t, 2, again.Rating)
		assert.Equal(t, rev.CreatedAt, again.CreatedAt)

		revs, err := svc.QueryByCourse(ctx, published.ID, nil)
		require.NoError(t, err)
		assert.Len(t, revs, 1)
	})

	t.Run("resubmitting restores visibility", func(t *testing.T) {
		rev, err := svc.Find(ctx, learner.ID, published.ID)
		require.NoError(t, err)

		_, err = svc.SetVisibility(ctx, rev.ID, false)
		require.NoError(t, err)
		revs, err := svc.QueryByCourse(ctx, published.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, revs)

		_, err = svc.Submit(ctx, learner, published, NewReview{Rating: 3})
		require.NoError(t, err)
		revs, err = svc.QueryByCourse(ctx, published.ID, nil)
		require.NoError(t, err)
		assert.Len(t, revs, 1)
	})
}

func TestQueryByEducator(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{educators: map[string]string{"crs1": "edu1", "crs2": "edu1", "crs3": "edu2"}}
	svc := NewServiceMock(repo)

	for _, crs := range []course.Course{
		{ID: "crs1", Status: course.StatusPublished},
		{ID: "crs2", Status: course.StatusPublished},
		{ID: "crs3", Status: course.StatusPublished},
	} {
		_, err := svc.Submit(ctx, user.User{ID: "lrn1", Name: "Jane"}, crs, NewReview{Rating: 5})
		require.NoError(t, err)
	}

	// hidden reviews still reach the educator
	rev, err := svc.Find(ctx, "lrn1", "crs2")
	require.NoError(t, err)
	_, err = svc.SetVisibility(ctx, rev.ID, false)
	require.NoError(t, err)

	revs, err := svc.QueryByEducator(ctx, "edu1", nil)
	require.NoError(t, err)
	assert.Len(t, revs, 2)

	revs, err = svc.QueryByEducator(ctx, "edu2", nil)
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	learner := user.User{ID: "lrn1", Name: "Jane"}
	published := course.Course{ID: "crs1", Status: course.StatusPublished}
	svc := NewServiceMock(&fakeRepo{})

	rev, err := svc.Submit(ctx, learner, published, NewReview{Rating: 1, Text: "Not for me"})
	require.NoError(t, err)

	t.Run("stranger cannot delete", func(t *testing.T) {
		err := svc.Delete(ctx, rev.ID, user.User{ID: "lrn2"})
		assert.Equal(t, ErrNotOwner, err)
	})

	t.Run("admin can delete", func(t *testing.T) {
		admin := user.User{ID: "adm1", Roles: []string{user.RoleAdmin}}
		require.NoError(t, svc.Delete(ctx, rev.ID, admin))
		_, err := svc.Find(ctx, learner.ID, published.ID)
		assert.Equal(t, ErrNotFound, err)
	})
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
	assert.Equal(t,
		Summary{Count: 4, AverageRating: 3.5},
		Summarize([]Review{{Rating: 5}, {Rating: 4}, {Rating: 3}, {Rating: 2}}),
	)
}
