package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
)

const defaultReviewsLimit = 20

type courseApi struct {
	svc    *course.Service
	usrSvc user.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, usrSvc user.Service) {
	api := courseApi{svc: svc, usrSvc: usrSvc}

	cg := g.Group("/courses")
	cg.GET("", api.search)
	cg.GET("/home", api.home)
	cg.GET("/:id", api.detail, optionalJWTMiddleware())
	cg.GET("/:id/reviews", api.reviews)

	// per-route middleware: a "/:id" group would shadow the public detail route
	cg.POST("/:id/enroll", api.enroll, jwt)
	cg.POST("/:id/reviews", api.review, jwt)
	cg.POST("/:id/watchlist", api.addToWatchlist, jwt)
	cg.DELETE("/:id/watchlist", api.removeFromWatchlist, jwt)

	mg := g.Group("/me", jwt)
	mg.GET("/courses", api.enrolledCourses)
	mg.GET("/watchlist", api.watchlist)
}

// optionalJWTMiddleware accepts an optional bearer token; invalid tokens are ignored.
func optionalJWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if len(auth) > len(authScheme)+1 && auth[:len(authScheme)] == authScheme {
				if token, err := parseToken(auth[len(authScheme)+1:]); err == nil {
					ctx.Set(appJWTConfig.ContextKey, token)
				}
			}
			return next(ctx)
		}
	}
}

const authScheme = "Bearer"

func (api *courseApi) search(ctx echo.Context) error {
	res, err := api.svc.Search(ctx.Request().Context(), course.ParseSearchFilter(ctx.QueryParams()))
	if err != nil {
		return errors.Wrap(err, "searching courses")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) home(ctx echo.Context) error {
	home, err := api.svc.Home(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building home page")
	}
	return ctx.JSON(http.StatusOK, home)
}

func (api *courseApi) detail(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	viewer, err := getOptionalUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	d, err := api.svc.Detail(ctx.Request().Context(), id, viewer)
	if err != nil {
		return errors.Wrap(err, "building course detail")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *courseApi) reviews(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	limit := defaultReviewsLimit
	if l, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	reviews, err := api.svc.Reviews(ctx.Request().Context(), id, limit)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Enroll(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "Enrolled."})
}

func (api *courseApi) review(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	rev, err := api.svc.Review(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "reviewing course")
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *courseApi) addToWatchlist(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.AddToWatchlist(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "adding to watchlist")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) removeFromWatchlist(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.RemoveFromWatchlist(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "removing from watchlist")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enrolledCourses(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	courses, err := api.svc.EnrolledCourses(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) watchlist(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	courses, err := api.svc.Watchlist(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying watchlist")
	}
	return ctx.JSON(http.StatusOK, courses)
}
