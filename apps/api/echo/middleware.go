package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
)

const contextCourseKey = "course"

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// teacherMiddleware lets teachers and admins through.
func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTeacher || claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// courseOwnerMiddleware loads the :id course into the context when the user owns it or is an admin.
func courseOwnerMiddleware(svc *course.Service, usrSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := paramID(ctx, "id")
			if err != nil {
				return err
			}
			usr, err := getContextUser(ctx, usrSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			c, err := svc.GetEditable(ctx.Request().Context(), usr, id)
			if err != nil {
				return err
			}
			ctx.Set(contextCourseKey, c)
			return next(ctx)
		}
	}
}

func contextCourse(ctx echo.Context) (course.Course, error) {
	if c, ok := ctx.Get(contextCourseKey).(course.Course); ok {
		return c, nil
	}
	return course.Course{}, errors.New("course object not found in echo.Context")
}
