package certificate

import (
	"context"
	"regexp"
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
// constraints as the SQL schema.
type fakeRepo struct {
	mu    sync.Mutex
	certs []Certificate
}

var _ Repository = (*fakeRepo)(nil)

func (r *fakeRepo) FindCertificate(_ context.Context, learnerID, courseID string, _ ...core.DBExecutor) (Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.certs {
		if c.LearnerID == learnerID && c.CourseID == courseID {
			return c, nil
		}
	}
	return Certificate{}, ErrNotFound
}

func (r *fakeRepo) GetCertificateByNumber(_ context.Context, number string, _ ...core.DBExecutor) (Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.certs {
		if c.Number == number {
			return c, nil
		}
	}
	return Certificate{}, ErrNotFound
}

func (r *fakeRepo) QueryCertificatesByLearner(_ context.Context, learnerID string, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Certificate
	for _, c := range r.certs {
		if c.LearnerID == learnerID {
			res = append(res, c)
		}
	}
	return res, nil
}

func (r *fakeRepo) CreateCertificate(_ context.Context, cert Certificate, _ ...core.DBExecutor) (Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.certs {
		if c.LearnerID == cert.LearnerID && c.CourseID == cert.CourseID {
			return Certificate{}, ErrPairExists
		}
		if c.Number == cert.Number {
			return Certificate{}, ErrNumberExists
		}
	}
	cert.ID = uuid.New().String()
	r.certs = append(r.certs, cert)
	return cert, nil
}

type mailSvcStub struct{}

func (mailSvcStub) SendMessages(...*core.EmailMessage) {}

var numberRegex = regexp.MustCompile(`^TLMS-\d+-\d{4}$`)

func TestGenerateNumber(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Regexp(t, numberRegex, GenerateNumber())
	}
}

func TestIssue(t *testing.T) {
	ctx := context.Background()
	learner := user.User{ID: "lrn1", Name: "Jane Doe", Email: "jane@example.test"}
	crs := course.Course{ID: "crs1", Title: "Go Basics", Status: course.StatusPublished}

	progress := &ProgressCheckerMock{Ratios: map[[2]string]float64{
		{"lrn1", "crs1"}: 1.0,
		{"lrn1", "crs2"}: 0.5,
	}}
	svc := NewServiceMock(&fakeRepo{}, progress, mailSvcStub{})

	t.Run("not eligible", func(t *testing.T) {
		_, err := svc.Issue(ctx, learner, course.Course{ID: "crs2", Title: "Half done"}, "John Smith")
		assert.Equal(t, ErrNotEligible, err)
	})

	t.Run("issues once", func(t *testing.T) {
		cert, err := svc.Issue(ctx, learner, crs, "John Smith")
		require.NoError(t, err)
		assert.Regexp(t, numberRegex, cert.Number)
		assert.Equal(t, "Jane Doe", cert.LearnerName)
		assert.Equal(t, "Go Basics", cert.CourseTitle)
		assert.Equal(t, "John Smith", cert.InstructorName)
		assert.False(t, cert.IssuedAt.IsZero())

		// idempotent: same certificate comes back
		again, err := svc.Issue(ctx, learner, crs, "John Smith")
		require.NoError(t, err)
		assert.Equal(t, cert, again)
	})

	t.Run("concurrent issue converges", func(t *testing.T) {
		svc := NewServiceMock(&fakeRepo{}, progress, mailSvcStub{})

		const n = 8
		results := make([]Certificate, n)
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				cert, err := svc.Issue(ctx, learner, crs, "John Smith")
				require.NoError(t, err)
				results[i] = cert
			}(i)
		}
		wg.Wait()

		for i := 1; i < n; i++ {
			assert.Equal(t, results[0].ID, results[i].ID)
			assert.Equal(t, results[0].Number, results[i].Number)
		}
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	progress := &ProgressCheckerMock{Ratios: map[[2]string]float64{{"lrn1", "crs1"}: 1.0}}
	svc := NewServiceMock(repo, progress, mailSvcStub{})

	cert, err := svc.Issue(ctx, user.User{ID: "lrn1", Name: "Jane"}, course.Course{ID: "crs1", Title: "Go"}, "John")
	require.NoError(t, err)

	found, err := svc.Verify(ctx, " "+cert.Number+" ")
	require.NoError(t, err)
	assert.Equal(t, cert, found)

	_, err = svc.Verify(ctx, "TLMS-0-0000")
	assert.Equal(t, ErrNotFound, err)
}
