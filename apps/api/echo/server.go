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

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/dashboard"
	"github.com/trezcool/kodi/core/document"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/maintenance"
	"github.com/trezcool/kodi/core/messaging"
	"github.com/trezcool/kodi/core/owner"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
	"github.com/trezcool/kodi/core/user"
	exportsvc "github.com/trezcool/kodi/services/export"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc        user.Service
		OwnerSvc       owner.Service
		PropertySvc    property.Service
		TenantSvc      tenant.Service
		FinanceSvc     finance.Service
		MaintenanceSvc maintenance.Service
		DocumentSvc    document.Service
		MessagingSvc   messaging.Service
		DashboardSvc   dashboard.Service
		ExportSvc      exportsvc.Service
	}

	Server struct {
		app      *echo.Echo
		deps     ServerDeps
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	g := s.app.Group("/api")
	auth := newAuthenticator(conf)
	jwt := middleware.JWTWithConfig(auth.jwtConfig)
	access := newAccessControl(s.deps.UserSvc, s.deps.OwnerSvc)

	registerUserAPI(g, jwt, auth, access, s.deps.UserSvc, s.deps.Validate)
	registerOwnerAPI(g, jwt, access, s.deps.OwnerSvc, s.deps.Validate)
	registerPropertyAPI(g, jwt, access, s.deps.PropertySvc, s.deps.Validate)
	registerTenantAPI(g, jwt, access, s.deps.TenantSvc, s.deps.Validate)
	registerMaintenanceAPI(g, jwt, access, s.deps.MaintenanceSvc, s.deps.TenantSvc, s.deps.Validate)
	registerFinanceAPI(g, jwt, access, s.deps.FinanceSvc, s.deps.Validate)
	registerDocumentAPI(g, jwt, access, s.deps.DocumentSvc, s.deps.Validate)
	registerMessagingAPI(g, jwt, access, s.deps.MessagingSvc, s.deps.Validate)
	registerDashboardAPI(g, jwt, access, s.deps.DashboardSvc)
	registerExportAPI(g, jwt, access, s.deps.ExportSvc)
}

// Start blocks until the server stops. Failures are reported on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives OS interrupts and internal shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kodi API!")
}
