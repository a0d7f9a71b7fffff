package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
	mediasvc "github.com/udemo/academy/services/media"
)

const maxThumbnailSize = 5 << 20

var errThumbnailTooLarge = "image must not exceed 5MB"

type teacherApi struct {
	svc    *course.Service
	usrSvc user.Service
	media  *mediasvc.Store
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, usrSvc user.Service, media *mediasvc.Store) {
	api := teacherApi{svc: svc, usrSvc: usrSvc, media: media}
	owner := courseOwnerMiddleware(svc, usrSvc)

	tg := g.Group("/teacher", jwt, teacherMiddleware())
	tg.GET("/courses", api.courses)
	tg.POST("/courses", api.create)
	tg.PUT("/courses/:id", api.update, owner)
	tg.DELETE("/courses/:id", api.destroy, owner)
	tg.POST("/courses/:id/thumbnail", api.uploadThumbnail, owner)
	tg.GET("/courses/:id/curriculum", api.curriculum, owner)
	tg.POST("/courses/:id/sections", api.addSection, owner)

	tg.PUT("/sections/:id", api.updateSection)
	tg.DELETE("/sections/:id", api.deleteSection)
	tg.POST("/sections/:id/lectures", api.addLecture)
	tg.PUT("/lectures/:id", api.updateLecture)
	tg.DELETE("/lectures/:id", api.deleteLecture)
}

func (api *teacherApi) courses(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	res, err := api.svc.TeacherCourses(ctx.Request().Context(), usr, course.ParseSearchFilter(ctx.QueryParams()))
	if err != nil {
		return errors.Wrap(err, "querying teacher courses")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *teacherApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *teacherApi) update(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	c, err = api.svc.Update(ctx.Request().Context(), usr, c.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *teacherApi) destroy(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if api.media != nil && c.Thumbnail != "" {
		if err := api.media.Delete(c.Thumbnail); err != nil {
			ctx.Logger().Errorf("%+v", err)
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) uploadThumbnail(ctx echo.Context) error {
	if api.media == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "media storage not configured")
	}
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fh, err := ctx.FormFile("thumbnail")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "thumbnail", Error: "this field is required"})
	}
	if fh.Size > maxThumbnailSize {
		return core.NewValidationError(nil, core.FieldError{Field: "thumbnail", Error: errThumbnailTooLarge})
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	path, err := api.media.SaveThumbnail(src)
	if err != nil {
		return errors.Wrap(err, "saving thumbnail")
	}
	updated, err := api.svc.SetThumbnail(ctx.Request().Context(), usr, c.ID, path)
	if err != nil {
		_ = api.media.Delete(path)
		return errors.Wrap(err, "setting thumbnail")
	}
	if c.Thumbnail != "" {
		if err := api.media.Delete(c.Thumbnail); err != nil {
			ctx.Logger().Errorf("%+v", err)
		}
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (api *teacherApi) curriculum(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sections, err := api.svc.Curriculum(ctx.Request().Context(), usr, c.ID)
	if err != nil {
		return errors.Wrap(err, "querying curriculum")
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *teacherApi) addSection(ctx echo.Context) error {
	c, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	sec, err := api.svc.AddSection(ctx.Request().Context(), usr, c.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *teacherApi) updateSection(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.UpdateSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSection")
	}
	sec, err := api.svc.UpdateSection(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *teacherApi) deleteSection(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteSection(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teacherApi) addLecture(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLecture")
	}
	lec, err := api.svc.AddLecture(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "adding lecture")
	}
	return ctx.JSON(http.StatusCreated, lec)
}

func (api *teacherApi) updateLecture(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.UpdateLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLecture")
	}
	lec, err := api.svc.UpdateLecture(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "updating lecture")
	}
	return ctx.JSON(http.StatusOK, lec)
}

func (api *teacherApi) deleteLecture(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteLecture(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting lecture")
	}
	return ctx.NoContent(http.StatusNoContent)
}
