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

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/outstanding"
	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
)

type (
	Options struct {
		Conf       *core.Config
		Logger     core.Logger
		Roster     roster.Repository
		Payments   payment.Repository
		MailSvc    core.EmailService
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
		errors   chan error

		Ledger *payment.Ledger
		Store  *roster.Store
	}
)

func NewServer(opts *Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(requestIDMiddleware)
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	// services
	rosterSvc := roster.NewService(s.opts.Roster)
	s.Store = roster.NewStore(s.opts.Roster)
	s.Ledger = payment.NewLedger(s.opts.Payments, s.opts.Roster, s.opts.Logger)
	coordinator := payment.NewCoordinator(s.Ledger, s.opts.Validate, s.opts.Translator)
	source := outstanding.NewSource(s.opts.Roster, s.Ledger)
	reminder := outstanding.NewReminder(s.opts.MailSvc, s.opts.Logger)
	minSeverity, err := outstanding.ParseSeverity(conf.Reminders.MinSeverity)
	if err != nil {
		s.opts.Logger.Warn("invalid reminders.minSeverity, using urgent", err)
		minSeverity = outstanding.Urgent
	}

	v1 := s.app.Group("/v1")
	v1.POST("/login", s.login)

	ag := v1.Group("", middleware.JWTWithConfig(jwtConfig(conf)))
	registerRosterAPI(ag, rosterSvc, s.Store, s.opts.Roster, s.opts.Validate, s.opts.Logger)
	registerPaymentAPI(ag, s.Ledger, coordinator, source, s.opts.Validate, s.opts.Translator)
	registerOutstandingAPI(ag, source, reminder, minSeverity)
}

// Start runs the HTTP server; the error it stops with is sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the application to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
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

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	claims, err := authenticate(s.opts.Conf, data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(s.opts.Conf, claims)
	if err != nil {
		return err
	}
	s.opts.Logger.Info("staff member signed in", claims.StaffMember())
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}
