package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/document"
	"github.com/trezcool/kodi/core/finance"
	"github.com/trezcool/kodi/core/maintenance"
	"github.com/trezcool/kodi/core/messaging"
	"github.com/trezcool/kodi/core/owner"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
)

const recentTransactions = 5

var nowFunc = time.Now // mockable

type (
	// Versioner reports the version of the data store, bumped on every write.
	Versioner interface {
		Version() uint64
	}

	Services struct {
		Properties  property.Service
		Tenants     tenant.Service
		Maintenance maintenance.Service
		Finance     finance.Service
		Owners      owner.Service
		Messaging   messaging.Service
		Documents   document.Service
	}

	Service interface {
		Manager(ctx context.Context) (Manager, error)
		Owner(ctx context.Context, ownerID string) (Owner, error)
		Tenant(ctx context.Context, tenantID, userID string) (Tenant, error)
	}

	service struct {
		Services
		cache        core.Cache
		store        Versioner
		logger       core.Logger
		expiringDays int
	}
)

var _ Service = (*service)(nil)

func NewService(svcs Services, cache core.Cache, store Versioner, logger core.Logger, conf *core.Config) Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(svcs.Properties, "properties"),
		vala.IsNotNil(svcs.Tenants, "tenants"),
		vala.IsNotNil(svcs.Maintenance, "maintenance"),
		vala.IsNotNil(svcs.Finance, "finance"),
		vala.IsNotNil(svcs.Owners, "owners"),
		vala.IsNotNil(svcs.Messaging, "messaging"),
		vala.IsNotNil(svcs.Documents, "documents"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &service{
		Services:     svcs,
		cache:        cache,
		store:        store,
		logger:       logger,
		expiringDays: conf.Finance.ExpiringLeaseDays,
	}
}

// cached returns the value stored under `key` for the current store version, or builds and stores it.
// Any write to the store changes the version, so stale values are never served.
func cached[T any](svc *service, key string, build func() (T, error)) (T, error) {
	key = fmt.Sprintf("dashboard:%s:v%d", key, svc.store.Version())
	if data, ok := svc.cache.Get(key); ok {
		var val T
		if err := json.Unmarshal(data, &val); err == nil {
			return val, nil
		}
		svc.cache.Delete(key)
	}

	val, err := build()
	if err != nil {
		return val, err
	}
	if data, err := json.Marshal(val); err != nil {
		svc.logger.Warn(fmt.Sprintf("caching %s: %v", key, err), err)
	} else {
		svc.cache.Set(key, data)
	}
	return val, nil
}

func (svc *service) Manager(ctx context.Context) (Manager, error) {
	period := core.MonthPeriod(nowFunc()).Label()
	return cached(svc, "manager:"+period, func() (Manager, error) {
		return svc.buildManager(ctx, period)
	})
}

func (svc *service) buildManager(ctx context.Context, period string) (Manager, error) {
	dash := Manager{Period: period, Maintenance: Maintenance{ByPriority: make(map[string]int)}}

	props, err := svc.Properties.Query(ctx, nil, nil)
	if err != nil {
		return Manager{}, errors.Wrap(err, "querying properties")
	}
	dash.Properties = len(props)
	if dash.Occupancy, err = svc.Properties.Occupancy(ctx); err != nil {
		return Manager{}, errors.Wrap(err, "computing occupancy")
	}

	tenants, err := svc.Tenants.Query(ctx, &tenant.QueryFilter{Statuses: []string{tenant.StatusActive, tenant.StatusNotice}}, nil)
	if err != nil {
		return Manager{}, errors.Wrap(err, "querying tenants")
	}
	dash.Tenants = len(tenants)

	requests, err := svc.Maintenance.Query(ctx, &maintenance.QueryFilter{Statuses: maintenance.OpenStatuses}, nil)
	if err != nil {
		return Manager{}, errors.Wrap(err, "querying maintenance requests")
	}
	dash.Maintenance.Open = len(requests)
	for _, r := range requests {
		dash.Maintenance.ByPriority[r.Priority]++
	}

	roll, err := svc.Finance.RentRoll(ctx, finance.RentRollFilter{Period: period})
	if err != nil {
		return Manager{}, errors.Wrap(err, "computing rent roll")
	}
	dash.Finance.RentRoll = roll.Totals
	summary, err := svc.Finance.Summary(ctx, finance.SummaryFilter{From: period})
	if err != nil {
		return Manager{}, errors.Wrap(err, "computing finance summary")
	}
	dash.Finance.Income = summary.Income
	dash.Finance.Expenses = summary.Expenses
	dash.Finance.NOI = summary.NOI

	dash.ExpiringLeases, err = svc.Tenants.QueryLeases(ctx, &tenant.LeaseFilter{ExpiringWithin: svc.expiringDays},
		[]core.DBOrdering{{Field: "end_date", Ascending: true}})
	if err != nil {
		return Manager{}, errors.Wrap(err, "querying expiring leases")
	}

	dash.RecentTransactions, err = svc.Finance.Query(ctx, &finance.QueryFilter{Limit: recentTransactions},
		[]core.DBOrdering{{Field: "date"}, {Field: "created_at"}})
	if err != nil {
		return Manager{}, errors.Wrap(err, "querying transactions")
	}
	return dash, nil
}

func (svc *service) Owner(ctx context.Context, ownerID string) (Owner, error) {
	period := core.MonthPeriod(nowFunc()).Label()
	return cached(svc, "owner:"+ownerID+":"+period, func() (Owner, error) {
		pf, err := svc.Owners.Portfolio(ctx, ownerID, period)
		if err != nil {
			return Owner{}, err
		}
		ids := make([]string, 0, len(pf.Properties))
		for _, p := range pf.Properties {
			ids = append(ids, p.ID)
		}
		requests, err := svc.Maintenance.Query(ctx, &maintenance.QueryFilter{
			Statuses:    maintenance.OpenStatuses,
			PropertyIDs: ids,
		}, nil)
		if err != nil {
			return Owner{}, errors.Wrap(err, "querying maintenance requests")
		}
		return Owner{Portfolio: pf, OpenMaintenance: len(requests)}, nil
	})
}

func (svc *service) Tenant(ctx context.Context, tenantID, userID string) (Tenant, error) {
	period := core.MonthPeriod(nowFunc()).Label()
	return cached(svc, "tenant:"+tenantID+":"+userID+":"+period, func() (Tenant, error) {
		return svc.buildTenant(ctx, tenantID, userID, period)
	})
}

func (svc *service) buildTenant(ctx context.Context, tenantID, userID, period string) (Tenant, error) {
	t, err := svc.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return Tenant{}, err
	}
	dash := Tenant{Tenant: t}

	lease, err := svc.Tenants.CurrentLease(ctx, t.ID)
	switch {
	case err == nil:
		dash.Lease = &lease
	case !core.IsNotFound(err):
		return Tenant{}, errors.Wrap(err, "finding lease")
	}

	roll, err := svc.Finance.RentRoll(ctx, finance.RentRollFilter{Period: period, TenantID: t.ID})
	if err != nil {
		return Tenant{}, errors.Wrap(err, "computing rent roll")
	}
	if len(roll.Items) > 0 {
		dash.Rent = &roll.Items[0]
	}

	if dash.OpenRequests, err = svc.Maintenance.Query(ctx, &maintenance.QueryFilter{
		Statuses: maintenance.OpenStatuses,
		TenantID: t.ID,
	}, []core.DBOrdering{{Field: "created_at"}}); err != nil {
		return Tenant{}, errors.Wrap(err, "querying maintenance requests")
	}

	if dash.UnreadMessages, err = svc.Messaging.UnreadCount(ctx, userID); err != nil {
		return Tenant{}, errors.Wrap(err, "counting unread messages")
	}

	shared := true
	docs, err := svc.Documents.Query(ctx, &document.QueryFilter{TenantID: t.ID, Shared: &shared}, nil)
	if err != nil {
		return Tenant{}, errors.Wrap(err, "querying documents")
	}
	dash.SharedDocuments = len(docs)
	return dash, nil
}
