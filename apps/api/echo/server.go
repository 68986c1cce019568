package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
	"github.com/trezcool/maktab/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		CatalogSvc catalog.Service
		ChatSvc    chat.Service
		Metrics    *metrics.Collector // optional
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		conf     *core.Config
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		conf:     deps.Conf,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if deps.Metrics != nil {
		s.app.Use(deps.Metrics.Middleware())
	}
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowedOrigins}))
	if conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(conf.Server.BodyLimit))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home(conf))
	if deps.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	g := s.app.Group("/api")
	registerCatalogAPI(g, deps.CatalogSvc, deps.Validate)
	registerChatAPI(g, deps.ChatSvc, deps.Validate)
}

// Start blocks until the server stops; failures are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, conf.AppName+" API is running")
	}
}
