package testutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

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
	logsvc "github.com/trezcool/kodi/services/logger"
	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
	"github.com/trezcool/kodi/storage/seed"
)

// Env is a fully wired application backed by a fresh in-memory store.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Logger     core.Logger
	Mail       *emailsvc.ServiceMock
	Events     *eventsvc.Recorder
	Cache      *cachesvc.Cache
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo    user.Repository
	Users       user.Service
	Owners      owner.Service
	Properties  property.Service
	Tenants     tenant.Service
	Finance     finance.Service
	Maintenance maintenance.Service
	Documents   document.Service
	Messaging   messaging.Service
	Dashboard   dashboard.Service
}

// NewEnv wires every service on an empty store, or on the demo data when `seeded` is set.
func NewEnv(t *testing.T, seeded bool) *Env {
	t.Helper()
	ctx := context.Background()

	db, err := inmemdb.Open(ctx, nil)
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	if seeded {
		if err = seed.Load(ctx, db); err != nil {
			t.Fatalf("seed.Load() failed: %v", err)
		}
	}

	conf := core.NewTestConfig()
	logger := logsvc.NewConsoleLogger(io.Discard, slog.LevelDebug, false)
	translator := shared.NewTranslator()
	if err = core.ParseEmailTemplates(conf, logger); err != nil {
		t.Fatalf("core.ParseEmailTemplates() failed: %v", err)
	}
	user.LoadCommonPasswords(logger)

	env := &Env{
		Conf:       conf,
		DB:         db,
		Logger:     logger,
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
		Events:     new(eventsvc.Recorder),
		Cache:      cachesvc.New(conf, logger),
		Validate:   shared.NewValidator(translator),
		Translator: translator,
		UserRepo:   inmemdb.NewUserRepository(db),
	}
	t.Cleanup(env.Cache.Close)

	env.Users = user.NewService(env.UserRepo, env.Mail, conf)
	env.Properties = property.NewService(inmemdb.NewPropertyRepository(db))
	env.Tenants = tenant.NewService(inmemdb.NewTenantRepository(db), env.Properties, env.Events, logger)
	env.Finance = finance.NewService(inmemdb.NewFinanceRepository(db), env.Properties, env.Tenants, env.Events, logger, conf)
	env.Maintenance = maintenance.NewService(
		inmemdb.NewMaintenanceRepository(db), env.Properties, env.Tenants, env.Finance, env.Mail, env.Events, logger,
	)
	env.Owners = owner.NewService(inmemdb.NewOwnerRepository(db), env.Properties, env.Finance)
	env.Documents = document.NewService(inmemdb.NewDocumentRepository(db))
	env.Messaging = messaging.NewService(inmemdb.NewMessagingRepository(db), env.Users, env.Mail, env.Events, logger)
	env.Dashboard = dashboard.NewService(dashboard.Services{
		Properties:  env.Properties,
		Tenants:     env.Tenants,
		Maintenance: env.Maintenance,
		Finance:     env.Finance,
		Owners:      env.Owners,
		Messaging:   env.Messaging,
		Documents:   env.Documents,
	}, env.Cache, db, logger, conf)
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// GetUser finds a user by username or email, typically one of the demo users.
func (env *Env) GetUser(t *testing.T, uname string) user.User {
	t.Helper()
	usr, err := env.Users.GetByUsernameOrEmail(context.Background(), uname)
	if err != nil {
		t.Fatalf("GetUser(%s) failed: %v", uname, err)
	}
	return usr
}

func (env *Env) CreateOwner(t *testing.T, name, email string) owner.Owner {
	t.Helper()
	o, err := env.Owners.Create(context.Background(), owner.NewOwner{Name: name, Email: email})
	if err != nil {
		t.Fatalf("CreateOwner() failed: %v", err)
	}
	return o
}

func (env *Env) CreateProperty(t *testing.T, name, ownerID string) property.Property {
	t.Helper()
	prop, err := env.Properties.Create(context.Background(), property.NewProperty{
		Name:    name,
		Type:    property.TypeResidential,
		Address: "1 " + name + " Street",
		City:    "Austin",
		State:   "TX",
		OwnerID: ownerID,
	})
	if err != nil {
		t.Fatalf("CreateProperty() failed: %v", err)
	}
	return prop
}

func (env *Env) CreateUnit(t *testing.T, propertyID, number string, rent core.Money) property.Unit {
	t.Helper()
	u, err := env.Properties.CreateUnit(context.Background(), propertyID, property.NewUnit{
		Number:     number,
		Bedrooms:   2,
		Bathrooms:  1,
		SquareFeet: 900,
		MarketRent: rent,
	})
	if err != nil {
		t.Fatalf("CreateUnit() failed: %v", err)
	}
	return u
}

// CreateApplicant registers an applicant for a vacant unit.
func (env *Env) CreateApplicant(t *testing.T, name string, unit property.Unit) tenant.Tenant {
	t.Helper()
	tnt, err := env.Tenants.Create(context.Background(), tenant.NewTenant{
		Name:        name,
		Email:       strings.ReplaceAll(core.CleanString(name, true /* lower */), " ", ".") + "@test.cd",
		PropertyID:  unit.PropertyID,
		UnitID:      unit.ID,
		MonthlyRent: unit.MarketRent,
		Deposit:     unit.MarketRent,
	})
	if err != nil {
		t.Fatalf("CreateApplicant() failed: %v", err)
	}
	return tnt
}

// PassScreening marks every screening check of an applicant as passed.
func (env *Env) PassScreening(t *testing.T, tenantID string) tenant.Tenant {
	t.Helper()
	var (
		tnt tenant.Tenant
		err error
	)
	for _, check := range tenant.ScreeningChecks {
		tnt, err = env.Tenants.UpdateScreeningCheck(context.Background(), tenantID, tenant.UpdateScreeningCheck{
			Check:  check,
			Status: tenant.ScreeningPassed,
		})
		if err != nil {
			t.Fatalf("PassScreening() failed: %v", err)
		}
	}
	return tnt
}

// CreateTenant moves a screened tenant into `unit` under a one year lease started on `start`.
func (env *Env) CreateTenant(t *testing.T, name string, unit property.Unit, start time.Time) (tenant.Tenant, tenant.Lease) {
	t.Helper()
	applicant := env.CreateApplicant(t, name, unit)
	env.PassScreening(t, applicant.ID)
	tnt, lease, err := env.Tenants.Approve(context.Background(), applicant.ID, tenant.Approval{
		LeaseStart: start,
		LeaseEnd:   start.AddDate(1, 0, -1),
	})
	if err != nil {
		t.Fatalf("CreateTenant() failed: %v", err)
	}
	return tnt, lease
}
