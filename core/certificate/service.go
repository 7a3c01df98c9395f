package certificate

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("certificate not found")
	ErrNotEligible  = errors.New("course is not fully completed")
	ErrPairExists   = errors.New("certificate already exists for this learner and course")
	ErrNumberExists = errors.New("certificate number already taken")
)

// maxNumberAttempts bounds retries when a generated number collides.
const maxNumberAttempts = 3

type (
	Repository interface {
		// FindCertificate looks up by (learner, course) pair.
		FindCertificate(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) (Certificate, error)
		GetCertificateByNumber(ctx context.Context, number string, exec ...core.DBExecutor) (Certificate, error)
		QueryCertificatesByLearner(ctx context.Context, learnerID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Certificate, error)
		// CreateCertificate returns ErrPairExists or ErrNumberExists on the
		// matching unique constraint.
		CreateCertificate(ctx context.Context, cert Certificate, exec ...core.DBExecutor) (Certificate, error)
	}

	// ProgressChecker reports a learner's completion ratio for a course.
	// The enrollment service satisfies it.
	ProgressChecker interface {
		Progress(ctx context.Context, learnerID, courseID string) (float64, error)
	}

	Service interface {
		// Issue creates the certificate for a fully completed course.
		// It is idempotent: an existing certificate is returned as is.
		Issue(ctx context.Context, learner user.User, crs course.Course, instructorName string) (Certificate, error)
		Find(ctx context.Context, learnerID, courseID string) (Certificate, error)
		Verify(ctx context.Context, number string) (Certificate, error)
		QueryByLearner(ctx context.Context, learnerID string, ordering []core.DBOrdering) ([]Certificate, error)
	}

	service struct {
		repo     Repository
		progress ProgressChecker
		mailSvc  core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, progress ProgressChecker, mailSvc core.EmailService) *service {
	return &service{
		repo:     repo,
		progress: progress,
		mailSvc:  mailSvc,
	}
}

func (svc *service) Issue(ctx context.Context, learner user.User, crs course.Course, instructorName string) (Certificate, error) {
	if cert, err := svc.repo.FindCertificate(ctx, learner.ID, crs.ID); err == nil {
		return cert, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Certificate{}, err
	}

	ratio, err := svc.progress.Progress(ctx, learner.ID, crs.ID)
	if err != nil {
		return Certificate{}, err
	}
	if ratio < 1 {
		return Certificate{}, ErrNotEligible
	}

	cert := Certificate{
		LearnerID:      learner.ID,
		LearnerName:    learner.Name,
		CourseID:       crs.ID,
		CourseTitle:    crs.Title,
		InstructorName: instructorName,
		IssuedAt:       time.Now().UTC(),
	}
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		cert.Number = GenerateNumber()
		created, err := svc.repo.CreateCertificate(ctx, cert)
		switch errors.Cause(err) {
		case nil:
			svc.sendIssuedMail(learner, created)
			return created, nil
		case ErrPairExists:
			// a concurrent caller won the race; theirs is the certificate
			return svc.repo.FindCertificate(ctx, learner.ID, crs.ID)
		case ErrNumberExists:
			continue
		default:
			return Certificate{}, err
		}
	}
	return Certificate{}, errors.Wrap(ErrNumberExists, "generating certificate number")
}

func (svc *service) Find(ctx context.Context, learnerID, courseID string) (Certificate, error) {
	return svc.repo.FindCertificate(ctx, learnerID, courseID)
}

func (svc *service) Verify(ctx context.Context, number string) (Certificate, error) {
	return svc.repo.GetCertificateByNumber(ctx, core.CleanString(number))
}

func (svc *service) QueryByLearner(ctx context.Context, learnerID string, ordering []core.DBOrdering) ([]Certificate, error) {
	return svc.repo.QueryCertificatesByLearner(ctx, learnerID, ordering)
}

func (svc *service) sendIssuedMail(learner user.User, cert Certificate) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: learner.Name, Address: learner.Email}},
		Subject:      "Your certificate for " + cert.CourseTitle,
		TemplateName: "certificate-issued",
		TemplateData: struct{ Certificate Certificate }{cert},
	})
}
