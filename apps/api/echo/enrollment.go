package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/enrollment"
	"github.com/tlmsproject/tlms/core/user"
)

type enrollmentApi struct {
	svc       enrollment.Service
	courseSvc course.Service
	usrSvc    user.Service
	validate  *validator.Validate
}

func registerEnrollmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc enrollment.Service,
	courseSvc course.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := enrollmentApi{
		svc:       svc,
		courseSvc: courseSvc,
		usrSvc:    usrSvc,
		validate:  validate,
	}

	g.GET("/enrollments", api.query, jwt)

	cg := g.Group("/courses/:id", jwt)
	cg.POST("/enroll", api.enroll)
	cg.GET("/completions", api.completions)
	cg.POST("/lessons/:lid/complete", api.completeLesson)
	cg.POST("/lessons/:lid/quiz", api.scoreQuiz)
}

// Handlers

func (api *enrollmentApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	enrs, err := api.svc.QueryByLearner(ctx.Request().Context(), ctxUsr.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}

	res := make([]EnrollmentResponse, 0, len(enrs))
	for _, enr := range enrs {
		res = append(res, EnrollmentResponse{Enrollment: enr, State: enr.State()})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	data.CourseID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), data.CourseID)
	if err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), ctxUsr, crs, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, EnrollmentResponse{Enrollment: enr, State: enr.State()})
}

// completions reports the learner's progress through a course: every lesson
// with its completed/unlocked state, plus the overall ratio.
func (api *enrollmentApi) completions(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	enr, err := api.svc.Get(ctx.Request().Context(), ctxUsr.ID, crs.ID)
	if err != nil {
		return err
	}
	completed, err := api.svc.CompletedLessonIDs(ctx.Request().Context(), ctxUsr.ID, crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying completed lessons")
	}

	return ctx.JSON(http.StatusOK, ProgressResponse{
		CourseID: crs.ID,
		Progress: enr.Progress,
		State:    enr.State(),
		Lessons:  course.SequenceStates(crs, completed),
	})
}

func (api *enrollmentApi) completeLesson(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	instructorName := ""
	if educator, err := api.usrSvc.GetByID(ctx.Request().Context(), crs.EducatorID); err == nil {
		instructorName = educator.Name
	}

	res, err := api.svc.MarkLessonComplete(ctx.Request().Context(), ctxUsr, crs, ctx.Param("lid"), instructorName)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *enrollmentApi) scoreQuiz(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	// quizzes are for enrolled learners only
	if _, err = api.svc.Get(ctx.Request().Context(), ctxUsr.ID, crs.ID); err != nil {
		return err
	}

	var lesson course.Lesson
	var found bool
	for _, l := range course.FlattenLessons(crs) {
		if l.ID == ctx.Param("lid") {
			lesson, found = l, true
			break
		}
	}
	if !found {
		return enrollment.ErrInvalidLesson
	}

	var data QuizSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizSubmission")
	}

	res, err := course.ScoreQuiz(lesson, data.Answers)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	EnrollmentResponse struct {
		enrollment.Enrollment
		State enrollment.State `json:"state"`
	}

	ProgressResponse struct {
		CourseID string               `json:"course_id"`
		Progress float64              `json:"progress"`
		State    enrollment.State     `json:"state"`
		Lessons  []course.LessonState `json:"lessons"`
	}

	QuizSubmission struct {
		Answers []course.QuizAnswer `json:"answers"`
	}
)
