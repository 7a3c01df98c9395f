package course

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrNotEditable    = errors.New("only draft or rejected courses can be edited")
	ErrNotSubmittable = errors.New("only draft or rejected courses can be submitted for review")
	ErrNotReviewable  = errors.New("course is not awaiting review")
	ErrNotRemovable   = errors.New("only published courses can be removed")
	ErrNotOwner       = errors.New("course belongs to another educator")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Course.Title or Course.Description.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, educator user.User, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		QueryPublished(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, id string, educator user.User, uc UpdateCourse) (Course, error)
		Submit(ctx context.Context, id string, educator user.User) (Course, error)
		Review(ctx context.Context, id string, rd ReviewDecision) (Course, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, mailSvc core.EmailService) *service {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
	}
}

func (svc *service) Create(ctx context.Context, educator user.User, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		EducatorID:  educator.ID,
		Title:       nc.Title,
		Description: nc.Description,
		Price:       nc.Price,
		Status:      StatusDraft,
		Modules:     assignIDs(nc.Modules),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

// QueryPublished is the learner-facing catalog; it never exposes other statuses.
func (svc *service) QueryPublished(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Statuses = []Status{StatusPublished}
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, educator user.User, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if crs.EducatorID != educator.ID && !educator.IsAdmin() {
		return Course{}, ErrNotOwner
	}
	if crs.Status != StatusDraft && crs.Status != StatusRejected {
		return Course{}, ErrNotEditable
	}

	crs.Title = uc.Title
	crs.Description = uc.Description
	if uc.Price != nil {
		crs.Price = *uc.Price
	}
	if uc.Modules != nil {
		crs.Modules = assignIDs(uc.Modules)
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Submit(ctx context.Context, id string, educator user.User) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if crs.EducatorID != educator.ID {
		return Course{}, ErrNotOwner
	}
	if crs.Status != StatusDraft && crs.Status != StatusRejected {
		return Course{}, ErrNotSubmittable
	}

	crs.Status = StatusPendingReview
	crs.UpdatedAt = time.Now().UTC()
	crs, err = svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, err
	}
	svc.sendStatusMail(ctx, crs)
	return crs, nil
}

func (svc *service) Review(ctx context.Context, id string, rd ReviewDecision) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}

	switch rd.Action {
	case "approve":
		if crs.Status != StatusPendingReview {
			return Course{}, ErrNotReviewable
		}
		crs.Status = StatusPublished
	case "reject":
		if crs.Status != StatusPendingReview {
			return Course{}, ErrNotReviewable
		}
		crs.Status = StatusRejected
		crs.RemovalNote = rd.Reason
	case "remove":
		if crs.Status != StatusPublished {
			return Course{}, ErrNotRemovable
		}
		crs.Status = StatusRemoved
		crs.RemovalNote = rd.Reason
	}

	crs.UpdatedAt = time.Now().UTC()
	crs, err = svc.repo.UpdateCourse(ctx, crs)
	if err != nil {
		return Course{}, err
	}
	svc.sendStatusMail(ctx, crs)
	return crs, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(ctx, ids)
	return err
}

// assignIDs gives every module and lesson without an ID a fresh one.
// Client-supplied IDs survive so updates can keep completion records valid.
func assignIDs(modules []Module) []Module {
	for mi := range modules {
		if modules[mi].ID == "" {
			modules[mi].ID = uuid.New().String()
		}
		for li := range modules[mi].Lessons {
			if modules[mi].Lessons[li].ID == "" {
				modules[mi].Lessons[li].ID = uuid.New().String()
			}
		}
	}
	return modules
}

// sendStatusMail notifies the educator of a status change in the review
// lifecycle. Unmailed statuses are skipped silently.
func (svc *service) sendStatusMail(ctx context.Context, crs Course) {
	educator, err := svc.usrSvc.GetByID(ctx, crs.EducatorID)
	if err != nil {
		return
	}

	var subject, tmpl string
	switch crs.Status {
	case StatusPendingReview:
		subject = "We received your course submission"
		tmpl = "course-submitted"
	case StatusPublished:
		subject = "Your course is live"
		tmpl = "course-published"
	case StatusRejected, StatusRemoved:
		subject = "About your course " + crs.Title
		tmpl = "course-rejected"
	default:
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: educator.Name, Address: educator.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: struct {
			User   user.User
			Course Course
		}{educator, crs},
	})
}
