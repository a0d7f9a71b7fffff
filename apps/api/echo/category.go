package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core/category"
)

type categoryApi struct {
	svc *category.Service
}

func registerCategoryAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *category.Service) {
	api := categoryApi{svc: svc}

	cg := g.Group("/categories")
	cg.GET("", api.tree)

	admin := adminMiddleware()
	cg.POST("", api.create, jwt, admin)
	cg.PUT("/:id", api.update, jwt, admin)
	cg.DELETE("/:id", api.destroy, jwt, admin)
}

func (api *categoryApi) tree(ctx echo.Context) error {
	tree, err := api.svc.Tree(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building category tree")
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *categoryApi) create(ctx echo.Context) error {
	var data category.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	cat, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *categoryApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data category.UpdateCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCategory")
	}
	cat, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *categoryApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}
