package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/review"
	"github.com/tlmsproject/tlms/core/user"
)

type reviewApi struct {
	svc       review.Service
	courseSvc course.Service
	usrSvc    user.Service
	validate  *validator.Validate
}

func registerReviewAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc review.Service,
	courseSvc course.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := reviewApi{
		svc:       svc,
		courseSvc: courseSvc,
		usrSvc:    usrSvc,
		validate:  validate,
	}

	cg := g.Group("/courses/:id/reviews", jwt)
	cg.GET("", api.queryByCourse)
	cg.POST("", api.submit)
	cg.GET("/mine", api.retrieveOwn)

	rg := g.Group("/reviews", jwt)
	rg.GET("/feedback", api.educatorFeedback, educatorMiddleware())

	dg := rg.Group("/:id")
	dg.DELETE("", api.destroy)
	dg.PUT("/visibility", api.setVisibility, adminMiddleware())
}

// Handlers

// queryByCourse lists a course's visible reviews with their aggregate
// rating. The same visibility rule as the course detail applies.
func (api *reviewApi) queryByCourse(ctx echo.Context) error {
	crs, err := api.getVisibleCourse(ctx)
	if err != nil {
		return err
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	revs, err := api.svc.QueryByCourse(ctx.Request().Context(), crs.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying course reviews")
	}
	if revs == nil {
		revs = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, ReviewsResponse{
		CourseID: crs.ID,
		Summary:  review.Summarize(revs),
		Reviews:  revs,
	})
}

func (api *reviewApi) submit(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	rev, err := api.svc.Submit(ctx.Request().Context(), ctxUsr, crs, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *reviewApi) retrieveOwn(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rev, err := api.svc.Find(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

// educatorFeedback lists reviews across all of the educator's courses,
// hidden ones included.
func (api *reviewApi) educatorFeedback(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	revs, err := api.svc.QueryByEducator(ctx.Request().Context(), ctxUsr.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying educator reviews")
	}
	if revs == nil {
		revs = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, revs)
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), ctxUsr); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reviewApi) setVisibility(ctx echo.Context) error {
	var data VisibilityUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VisibilityUpdate")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	rev, err := api.svc.SetVisibility(ctx.Request().Context(), ctx.Param("id"), *data.Visible)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

// getVisibleCourse fetches the course and applies the learner visibility
// rule: non-published courses exist only for admins and their educator.
func (api *reviewApi) getVisibleCourse(ctx echo.Context) (course.Course, error) {
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return course.Course{}, err
	}
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting context user")
	}
	if !crs.IsPublished() && !ctxUsr.IsAdmin() && crs.EducatorID != ctxUsr.ID {
		return course.Course{}, errHttpNotFound
	}
	return crs, nil
}

type (
	ReviewsResponse struct {
		CourseID string `json:"course_id"`
		review.Summary
		Reviews []review.Review `json:"reviews"`
	}

	VisibilityUpdate struct {
		Visible *bool `json:"visible" validate:"required"`
	}
)
