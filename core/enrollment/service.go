package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/certificate"
	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrCourseNotPublished = errors.New("course is not open for enrollment")
	ErrPaymentRequired    = errors.New("a payment reference is required for this course")
	ErrInvalidLesson      = errors.New("lesson does not belong to this course")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) (Enrollment, error)
		QueryEnrollmentsByLearner(ctx context.Context, learnerID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Enrollment, error)
		UpdateProgress(ctx context.Context, enrID string, progress float64, exec ...core.DBExecutor) (Enrollment, error)
		// InsertCompletion is idempotent; created is false when the
		// (learner, course, lesson) triple already existed.
		InsertCompletion(ctx context.Context, rec CompletionRecord, exec ...core.DBExecutor) (created bool, err error)
		GetCompletedLessonIDs(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) ([]string, error)
		QueryCompletions(ctx context.Context, learnerID, courseID string, exec ...core.DBExecutor) ([]CompletionRecord, error)
	}

	Service interface {
		Enroll(ctx context.Context, learner user.User, crs course.Course, ne NewEnrollment) (Enrollment, error)
		Get(ctx context.Context, learnerID, courseID string) (Enrollment, error)
		QueryByLearner(ctx context.Context, learnerID string, ordering []core.DBOrdering) ([]Enrollment, error)
		// MarkLessonComplete records the completion, recomputes progress
		// from the completion records, and issues the certificate when the
		// course just became fully completed.
		MarkLessonComplete(ctx context.Context, learner user.User, crs course.Course, lessonID, instructorName string) (CompletionResult, error)
		Completions(ctx context.Context, learnerID, courseID string) ([]CompletionRecord, error)
		CompletedLessonIDs(ctx context.Context, learnerID, courseID string) (map[string]bool, error)

		certificate.ProgressChecker
	}

	service struct {
		repo    Repository
		certSvc certificate.Service
	}
)

var _ Service = (*service)(nil)

// NewService builds the enrollment service. certSvc may be set after
// construction via SetCertificateService to break the mutual wiring with
// the certificate service.
func NewService(repo Repository) *service {
	return &service{repo: repo}
}

// SetCertificateService wires the certificate issuer used on full completion.
func (svc *service) SetCertificateService(certSvc certificate.Service) {
	svc.certSvc = certSvc
}

func (svc *service) Enroll(ctx context.Context, learner user.User, crs course.Course, ne NewEnrollment) (Enrollment, error) {
	if !crs.IsPublished() {
		return Enrollment{}, ErrCourseNotPublished
	}
	if crs.Price > 0 && ne.PaymentRef == "" {
		return Enrollment{}, core.NewValidationError(
			ErrPaymentRequired,
			core.FieldError{Field: "payment_ref", Error: ErrPaymentRequired.Error()},
		)
	}

	now := time.Now().UTC()
	enr := Enrollment{
		LearnerID:  learner.ID,
		CourseID:   crs.ID,
		PaymentRef: ne.PaymentRef,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *service) Get(ctx context.Context, learnerID, courseID string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, learnerID, courseID)
}

func (svc *service) QueryByLearner(ctx context.Context, learnerID string, ordering []core.DBOrdering) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByLearner(ctx, learnerID, ordering)
}

func (svc *service) MarkLessonComplete(ctx context.Context, learner user.User, crs course.Course, lessonID, instructorName string) (CompletionResult, error) {
	if !course.HasLesson(crs, lessonID) {
		return CompletionResult{}, ErrInvalidLesson
	}
	enr, err := svc.repo.GetEnrollment(ctx, learner.ID, crs.ID)
	if err != nil {
		return CompletionResult{}, err
	}

	created, err := svc.repo.InsertCompletion(ctx, CompletionRecord{
		LearnerID:   learner.ID,
		CourseID:    crs.ID,
		LessonID:    lessonID,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return CompletionResult{}, err
	}

	// progress always derives from a fresh read of the records so
	// concurrent completions converge on the same value
	ids, err := svc.repo.GetCompletedLessonIDs(ctx, learner.ID, crs.ID)
	if err != nil {
		return CompletionResult{}, err
	}
	completed := course.NewIDSet(ids)
	progress := course.Progress(crs, completed)
	if _, err = svc.repo.UpdateProgress(ctx, enr.ID, progress); err != nil {
		return CompletionResult{}, err
	}

	res := CompletionResult{
		CourseID:        crs.ID,
		LessonID:        lessonID,
		AlreadyComplete: !created,
		Progress:        progress,
		CourseCompleted: progress >= 1,
	}
	if next, ok := course.NextLesson(crs, lessonID); ok {
		res.NextLessonID = next.ID
	}

	// only the call whose insert finished the course issues; the
	// certificate service is itself idempotent as a second guard
	if created && res.CourseCompleted && svc.certSvc != nil {
		cert, err := svc.certSvc.Issue(ctx, learner, crs, instructorName)
		if err != nil {
			return CompletionResult{}, errors.Wrap(err, "issuing certificate")
		}
		res.Certificate = &cert
	}
	return res, nil
}

func (svc *service) Completions(ctx context.Context, learnerID, courseID string) ([]CompletionRecord, error) {
	return svc.repo.QueryCompletions(ctx, learnerID, courseID)
}

func (svc *service) CompletedLessonIDs(ctx context.Context, learnerID, courseID string) (map[string]bool, error) {
	ids, err := svc.repo.GetCompletedLessonIDs(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	return course.NewIDSet(ids), nil
}

// Progress satisfies certificate.ProgressChecker from the stored ratio.
func (svc *service) Progress(ctx context.Context, learnerID, courseID string) (float64, error) {
	enr, err := svc.repo.GetEnrollment(ctx, learnerID, courseID)
	if err != nil {
		return 0, err
	}
	return enr.Progress, nil
}
