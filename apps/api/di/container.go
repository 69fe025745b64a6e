package di

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/kodi/apps/api/echo"
	"github.com/trezcool/kodi/apps/shared"
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
	cachesvc "github.com/trezcool/kodi/services/cache"
	emailsvc "github.com/trezcool/kodi/services/email"
	eventsvc "github.com/trezcool/kodi/services/events"
	exportsvc "github.com/trezcool/kodi/services/export"
	logsvc "github.com/trezcool/kodi/services/logger"
	"github.com/trezcool/kodi/storage/database"
	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
)

type (
	// Closer releases a resource when the application stops.
	Closer func()

	// Closers collects every Closer provided to the container.
	Closers struct {
		dig.In
		Funcs []Closer `group:"closers"`
	}

	loggerResult struct {
		dig.Out
		Logger core.Logger
		Closer Closer `group:"closers"`
	}

	storeResult struct {
		dig.Out
		Store     *inmemdb.DB
		Versioner dashboard.Versioner
		Closer    Closer `group:"closers"`
	}

	cacheResult struct {
		dig.Out
		Cache  core.Cache
		Closer Closer `group:"closers"`
	}

	publisherResult struct {
		dig.Out
		Publisher core.EventPublisher
		Closer    Closer `group:"closers"`
	}

	dashboardParams struct {
		dig.In
		Properties  property.Service
		Tenants     tenant.Service
		Maintenance maintenance.Service
		Finance     finance.Service
		Owners      owner.Service
		Messaging   messaging.Service
		Documents   document.Service
		Cache       core.Cache
		Versioner   dashboard.Versioner
		Logger      core.Logger
		Conf        *core.Config
	}

	serverParams struct {
		dig.In
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
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
)

// Close runs every closer. Value groups are unordered, so closers must not depend on each other.
func (c Closers) Close() {
	for _, fn := range c.Funcs {
		fn()
	}
}

func newLogger(conf *core.Config) loggerResult {
	logger, closer := logsvc.New(conf)
	return loggerResult{Logger: logger, Closer: closer}
}

func newStore(conf *core.Config, logger core.Logger) (storeResult, error) {
	store, closer, err := database.OpenStore(context.Background(), conf, logger)
	if err != nil {
		return storeResult{}, err
	}
	return storeResult{Store: store, Versioner: store, Closer: closer}, nil
}

func newCache(conf *core.Config, logger core.Logger) cacheResult {
	cache := cachesvc.New(conf, logger)
	return cacheResult{Cache: cache, Closer: cache.Close}
}

func newPublisher(conf *core.Config, logger core.Logger) publisherResult {
	pub, closer := eventsvc.New(conf, logger)
	return publisherResult{Publisher: pub, Closer: closer}
}

func newDashboardService(p dashboardParams) dashboard.Service {
	return dashboard.NewService(dashboard.Services{
		Properties:  p.Properties,
		Tenants:     p.Tenants,
		Maintenance: p.Maintenance,
		Finance:     p.Finance,
		Owners:      p.Owners,
		Messaging:   p.Messaging,
		Documents:   p.Documents,
	}, p.Cache, p.Versioner, p.Logger, p.Conf)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           p.Conf,
		Logger:         p.Logger,
		Validate:       p.Validate,
		Translator:     p.Translator,
		UserSvc:        p.UserSvc,
		OwnerSvc:       p.OwnerSvc,
		PropertySvc:    p.PropertySvc,
		TenantSvc:      p.TenantSvc,
		FinanceSvc:     p.FinanceSvc,
		MaintenanceSvc: p.MaintenanceSvc,
		DocumentSvc:    p.DocumentSvc,
		MessagingSvc:   p.MessagingSvc,
		DashboardSvc:   p.DashboardSvc,
		ExportSvc:      p.ExportSvc,
	})
}

// New returns a dependency injection container wiring the whole application.
// newConfig is core.NewConfig outside of tests.
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStore))
	must(c.Provide(newCache))
	must(c.Provide(newPublisher))
	must(c.Provide(emailsvc.New))
	must(c.Provide(shared.NewTranslator))
	must(c.Provide(shared.NewValidator))

	// repositories
	must(c.Provide(inmemdb.NewUserRepository))
	must(c.Provide(inmemdb.NewOwnerRepository))
	must(c.Provide(inmemdb.NewPropertyRepository))
	must(c.Provide(inmemdb.NewTenantRepository))
	must(c.Provide(inmemdb.NewFinanceRepository))
	must(c.Provide(inmemdb.NewMaintenanceRepository))
	must(c.Provide(inmemdb.NewDocumentRepository))
	must(c.Provide(inmemdb.NewMessagingRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(property.NewService))
	must(c.Provide(tenant.NewService))
	must(c.Provide(finance.NewService))
	must(c.Provide(maintenance.NewService))
	must(c.Provide(owner.NewService))
	must(c.Provide(document.NewService))
	must(c.Provide(messaging.NewService))
	must(c.Provide(newDashboardService))
	must(c.Provide(exportsvc.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
