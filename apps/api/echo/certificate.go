package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tlmsproject/tlms/core/certificate"
	"github.com/tlmsproject/tlms/core/user"
)

type certificateApi struct {
	svc    certificate.Service
	usrSvc user.Service
}

func registerCertificateAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc certificate.Service, usrSvc user.Service) {
	api := certificateApi{
		svc:    svc,
		usrSvc: usrSvc,
	}

	cg := g.Group("/certificates")

	// anyone can check a certificate number's authenticity
	cg.GET("/verify/:number", api.verify)

	cg.GET("", api.query, jwt)
}

// Handlers

func (api *certificateApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	certs, err := api.svc.QueryByLearner(ctx.Request().Context(), ctxUsr.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}
	if certs == nil {
		certs = []certificate.Certificate{}
	}
	return ctx.JSON(http.StatusOK, certs)
}

func (api *certificateApi) verify(ctx echo.Context) error {
	cert, err := api.svc.Verify(ctx.Request().Context(), ctx.Param("number"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cert)
}
