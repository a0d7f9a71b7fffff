package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
	mediasvc "github.com/udemo/academy/services/media"
	metricsvc "github.com/udemo/academy/services/metrics"
)

type (
	// Deps holds the services the server is wired with. Metrics is optional.
	Deps struct {
		Logger      core.Logger
		UserSvc     user.Service
		CategorySvc *category.Service
		CourseSvc   *course.Service
		Media       *mediasvc.Store
		Metrics     *metricsvc.Metrics
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		addr     string
		deps     *Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

// NewServer builds the echo application. A nil shutdown channel gets one listening for SIGINT and SIGTERM.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	}
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}
	s := &server{
		addr:     addr,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := core.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.RequestID())
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.Renderer = newTemplateRenderer()

	if s.deps.Media != nil {
		s.app.Static(mediasvc.URLPrefix, s.deps.Media.Root())
	}

	limits := newRateLimiters()
	jwt := middleware.JWTWithConfig(appJWTConfig)

	v1 := s.app.Group("/v1")
	v1.GET("", home)
	registerUserAPI(v1, jwt, limits, s.deps.UserSvc)
	registerCategoryAPI(v1, jwt, s.deps.CategorySvc)
	registerCourseAPI(v1, jwt, s.deps.CourseSvc, s.deps.UserSvc)
	registerTeacherAPI(v1, jwt, s.deps.CourseSvc, s.deps.UserSvc, s.deps.Media)
	registerAdminAPI(v1, jwt, s.deps.CourseSvc, s.deps.UserSvc)

	registerWebPages(s.app, limits, s.deps)
}

func (s *server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"name": core.Conf.AppName, "build": core.Conf.Build})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
