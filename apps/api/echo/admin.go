package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
)

type adminApi struct {
	svc    *course.Service
	usrSvc user.Service
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, usrSvc user.Service) {
	api := adminApi{svc: svc, usrSvc: usrSvc}

	ag := g.Group("/admin", jwt, adminMiddleware())
	ag.GET("/courses", api.courses)
	ag.PUT("/courses/:id/disabled", api.setDisabled)
	ag.PUT("/courses/:id/featured", api.setFeatured)
	ag.DELETE("/courses/:id", api.destroy)
}

func (api *adminApi) courses(ctx echo.Context) error {
	res, err := api.svc.AdminSearch(ctx.Request().Context(), course.ParseSearchFilter(ctx.QueryParams()))
	if err != nil {
		return errors.Wrap(err, "searching courses")
	}
	return ctx.JSON(http.StatusOK, res)
}

func bindFlag(ctx echo.Context) (int64, bool, error) {
	id, err := paramID(ctx, "id")
	if err != nil {
		return 0, false, err
	}
	var data FlagRequest
	if err := ctx.Bind(&data); err != nil {
		return 0, false, errors.Wrap(err, "binding to FlagRequest")
	}
	if err := data.Validate(); err != nil {
		return 0, false, err
	}
	return id, *data.Value, nil
}

func (api *adminApi) setDisabled(ctx echo.Context) error {
	id, disabled, err := bindFlag(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.SetDisabled(ctx.Request().Context(), id, disabled)
	if err != nil {
		return errors.Wrap(err, "setting disabled flag")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) setFeatured(ctx echo.Context) error {
	id, featured, err := bindFlag(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.SetFeatured(ctx.Request().Context(), id, featured)
	if err != nil {
		return errors.Wrap(err, "setting featured flag")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
