package echoapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
)

type webPages struct {
	usrSvc    user.Service
	catSvc    *category.Service
	courseSvc *course.Service
}

func registerWebPages(app *echo.Echo, limits rateLimiters, deps *Deps) {
	p := webPages{usrSvc: deps.UserSvc, catSvc: deps.CategorySvc, courseSvc: deps.CourseSvc}
	optional := cookieAuthMiddleware(false)
	required := cookieAuthMiddleware(true)

	app.GET("/", p.home, optional)
	app.GET("/courses", p.courses, optional)
	app.GET("/categories/:id", p.category, optional)
	app.GET("/courses/:id", p.detail, optional)
	app.POST("/courses/:id/enroll", p.enroll, required)
	app.POST("/courses/:id/watchlist", p.toggleWatchlist, required)
	app.POST("/courses/:id/reviews", p.review, required)

	app.GET("/login", p.loginForm, optional)
	app.POST("/login", p.login, limits.login.Middleware())
	app.GET("/logout", p.logout)
	app.GET("/register", p.registerForm, optional)
	app.POST("/register", p.register, limits.registration.Middleware())
	app.GET("/verify", p.verifyForm, optional)
	app.POST("/verify", p.verify, limits.registration.Middleware())
	app.POST("/verify/resend", p.resend, limits.registration.Middleware())
	app.GET("/my-courses", p.myCourses, required)
}

// pageData adds the values every page needs to data.
func pageData(ctx echo.Context, data echo.Map) echo.Map {
	if data == nil {
		data = echo.Map{}
	}
	data["AppName"] = core.Conf.AppName
	data["Path"] = ctx.Request().URL.Path
	if claims, err := getContextClaims(ctx); err == nil {
		data["CurrentUser"] = &claims
	} else {
		data["CurrentUser"] = (*Claims)(nil)
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = core.Conf.AppName
	}
	return data
}

func loginURL(next string) string {
	return "/login?" + url.Values{"next": {next}}.Encode()
}

// returnPath is where to come back after logging in: the page itself for GETs,
// the referring page (or the course page for course actions) for form posts.
func returnPath(ctx echo.Context) string {
	req := ctx.Request()
	if req.Method == http.MethodGet {
		return req.URL.RequestURI()
	}
	if ref, err := url.Parse(req.Referer()); err == nil && ref.Host == req.Host && ref.Path != "" {
		return safeNext(ref.RequestURI())
	}
	if id := ctx.Param("id"); id != "" && strings.HasPrefix(req.URL.Path, "/courses/") {
		return "/courses/" + id
	}
	return "/"
}

// safeNext only allows local redirects.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return "/"
}

// formErrors maps validation failures to per-field messages; "_" holds form level errors.
// Other errors are returned untouched.
func formErrors(err error) (map[string]string, error) {
	switch vErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fields := make(map[string]string, len(vErr))
		for _, fe := range vErr {
			fields[fe.Field()] = core.TranslateVI(fe)
		}
		return fields, nil
	case *core.ValidationError:
		fields := make(map[string]string, len(vErr.Fields)+1)
		for _, fe := range vErr.Fields {
			if msg, ok := core.TranslateTagVI(fe.Tag); ok {
				fields[fe.Field] = msg
			} else {
				fields[fe.Field] = fe.Error
			}
		}
		if len(fields) == 0 {
			fields["_"] = vErr.Error()
		}
		return fields, nil
	case *echo.HTTPError:
		if vErr.Code < http.StatusInternalServerError {
			return map[string]string{"_": toString(vErr.Message)}, nil
		}
	}
	return nil, err
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return http.StatusText(http.StatusBadRequest)
}

// Catalog

func (p *webPages) home(ctx echo.Context) error {
	home, err := p.courseSvc.Home(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building home page")
	}
	tree, err := p.catSvc.Tree(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building category tree")
	}
	return ctx.Render(http.StatusOK, "home", pageData(ctx, echo.Map{
		"Home":       home,
		"Categories": tree,
	}))
}

func (p *webPages) listing(ctx echo.Context, filter course.SearchFilter, heading string) error {
	res, err := p.courseSvc.Search(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "searching courses")
	}
	tree, err := p.catSvc.Tree(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building category tree")
	}
	return ctx.Render(http.StatusOK, "courses", pageData(ctx, echo.Map{
		"Title":       heading,
		"Heading":     heading,
		"Result":      res,
		"Filter":      res.Filter,
		"Query":       res.Filter.Values(),
		"Categories":  tree,
		"SortOptions": course.SortOptions,
	}))
}

func (p *webPages) courses(ctx echo.Context) error {
	filter := course.ParseSearchFilter(ctx.QueryParams())
	heading := "Tất cả khóa học"
	if filter.Query != "" {
		heading = "Kết quả tìm kiếm cho \"" + filter.Query + "\""
	}
	return p.listing(ctx, filter, heading)
}

func (p *webPages) category(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	cat, err := p.catSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	filter := course.ParseSearchFilter(ctx.QueryParams())
	filter.CategoryIDs = []int64{cat.ID}
	return p.listing(ctx, filter, cat.Name)
}

func (p *webPages) detail(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	viewer, err := getOptionalUser(ctx, p.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	d, err := p.courseSvc.Detail(ctx.Request().Context(), id, viewer)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "course", pageData(ctx, echo.Map{
		"Title":  d.Course.Title,
		"Detail": d,
		"Error":  ctx.QueryParam("error"),
	}))
}

func (p *webPages) courseAction(ctx echo.Context, action func(usr user.User, id int64) error) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, p.usrSvc)
	if err != nil {
		return err
	}
	back := "/courses/" + ctx.Param("id")
	if err := action(usr, id); err != nil {
		fields, err := formErrors(err)
		if err != nil {
			return err
		}
		for _, msg := range fields {
			return ctx.Redirect(http.StatusSeeOther, back+"?"+url.Values{"error": {msg}}.Encode())
		}
	}
	return ctx.Redirect(http.StatusSeeOther, back)
}

func (p *webPages) enroll(ctx echo.Context) error {
	return p.courseAction(ctx, func(usr user.User, id int64) error {
		return p.courseSvc.Enroll(ctx.Request().Context(), usr, id)
	})
}

func (p *webPages) toggleWatchlist(ctx echo.Context) error {
	return p.courseAction(ctx, func(usr user.User, id int64) error {
		reqCtx := ctx.Request().Context()
		if ctx.FormValue("remove") != "" {
			return p.courseSvc.RemoveFromWatchlist(reqCtx, usr, id)
		}
		return p.courseSvc.AddToWatchlist(reqCtx, usr, id)
	})
}

func (p *webPages) review(ctx echo.Context) error {
	return p.courseAction(ctx, func(usr user.User, id int64) error {
		var data course.NewReview
		if err := ctx.Bind(&data); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "rating", Error: "invalid value"})
		}
		_, err := p.courseSvc.Review(ctx.Request().Context(), usr, id, data)
		return err
	})
}

// Account

func (p *webPages) loginForm(ctx echo.Context) error {
	if _, err := getContextClaims(ctx); err == nil {
		return ctx.Redirect(http.StatusSeeOther, safeNext(ctx.QueryParam("next")))
	}
	return ctx.Render(http.StatusOK, "login", pageData(ctx, echo.Map{
		"Title":    "Đăng nhập",
		"Next":     ctx.QueryParam("next"),
		"Username": "",
		"Errors":   map[string]string{},
	}))
}

func (p *webPages) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	next := ctx.FormValue("next")

	err := data.Validate()
	var claims *Claims
	if err == nil {
		claims, err = authenticate(ctx, data.Username, data.Password, p.usrSvc)
	}
	if err != nil {
		fields, err := formErrors(err)
		if err != nil {
			return err
		}
		return ctx.Render(http.StatusBadRequest, "login", pageData(ctx, echo.Map{
			"Title":    "Đăng nhập",
			"Next":     next,
			"Username": data.Username,
			"Errors":   fields,
		}))
	}

	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	setAuthCookie(ctx, token)
	return ctx.Redirect(http.StatusSeeOther, safeNext(next))
}

func (p *webPages) logout(ctx echo.Context) error {
	clearAuthCookie(ctx)
	return ctx.Redirect(http.StatusSeeOther, "/")
}

func (p *webPages) registerForm(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "register", pageData(ctx, echo.Map{
		"Title":  "Đăng ký",
		"Form":   user.RegisterUser{},
		"Errors": map[string]string{},
	}))
}

func (p *webPages) register(ctx echo.Context) error {
	var data user.RegisterUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterUser")
	}

	err := data.Validate(ctx.Request().Context(), p.usrSvc)
	if err == nil {
		_, err = p.usrSvc.Register(ctx.Request().Context(), data)
	}
	if err != nil {
		if errors.Cause(err) == user.ErrEmailExists {
			err = core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		fields, err := formErrors(err)
		if err != nil {
			return err
		}
		data.Password, data.PasswordConfirm = "", ""
		return ctx.Render(http.StatusBadRequest, "register", pageData(ctx, echo.Map{
			"Title":  "Đăng ký",
			"Form":   data,
			"Errors": fields,
		}))
	}
	return ctx.Redirect(http.StatusSeeOther, "/verify?"+url.Values{"email": {data.Email}}.Encode())
}

func (p *webPages) renderVerify(ctx echo.Context, code int, email, notice string, fields map[string]string) error {
	if fields == nil {
		fields = map[string]string{}
	}
	return ctx.Render(code, "verify", pageData(ctx, echo.Map{
		"Title":  "Xác thực email",
		"Email":  email,
		"Notice": notice,
		"Errors": fields,
	}))
}

func (p *webPages) verifyForm(ctx echo.Context) error {
	return p.renderVerify(ctx, http.StatusOK, ctx.QueryParam("email"), "", nil)
}

func (p *webPages) verify(ctx echo.Context) error {
	var data user.VerifyOTP
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyOTP")
	}

	err := data.Validate()
	var usr user.User
	if err == nil {
		usr, err = p.usrSvc.VerifyOTP(ctx.Request().Context(), data.Email, data.Code)
		if errors.Cause(err) == user.ErrNotFound {
			err = core.NewValidationError(err, core.FieldError{Field: "code", Error: user.ErrOTPInvalid.Error()})
		}
	}
	if err != nil {
		fields, err := formErrors(err)
		if err != nil {
			return err
		}
		return p.renderVerify(ctx, http.StatusBadRequest, data.Email, "", fields)
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	setAuthCookie(ctx, token)
	return ctx.Redirect(http.StatusSeeOther, "/my-courses")
}

func (p *webPages) resend(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(); err != nil {
		fields, err := formErrors(err)
		if err != nil {
			return err
		}
		return p.renderVerify(ctx, http.StatusBadRequest, data.Email, "", fields)
	}

	if err := p.usrSvc.ResendOTP(ctx.Request().Context(), data.Email); err != nil && errors.Cause(err) != user.ErrNotFound {
		fields, err := formErrors(err)
		if err != nil {
			return err
		}
		return p.renderVerify(ctx, http.StatusBadRequest, data.Email, "", fields)
	}
	return p.renderVerify(ctx, http.StatusOK, data.Email, "Nếu email đang chờ xác thực, mã mới sẽ được gửi trong giây lát.", nil)
}

func (p *webPages) myCourses(ctx echo.Context) error {
	usr, err := getContextUser(ctx, p.usrSvc)
	if err != nil {
		if errors.Cause(err) == errUnauthorized {
			clearAuthCookie(ctx)
			return ctx.Redirect(http.StatusSeeOther, loginURL("/my-courses"))
		}
		return err
	}
	reqCtx := ctx.Request().Context()
	enrolled, err := p.courseSvc.EnrolledCourses(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	watchlist, err := p.courseSvc.Watchlist(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "querying watchlist")
	}
	return ctx.Render(http.StatusOK, "my-courses", pageData(ctx, echo.Map{
		"Title":     "Khóa học của tôi",
		"Enrolled":  enrolled,
		"Watchlist": watchlist,
	}))
}
