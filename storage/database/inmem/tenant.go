package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
)

func cloneTenant(t tenant.Tenant) tenant.Tenant {
	if t.Screening.Checks != nil {
		checks := make(map[string]string, len(t.Screening.Checks))
		for k, v := range t.Screening.Checks {
			checks[k] = v
		}
		t.Screening.Checks = checks
	}
	return t
}

var (
	tenantOrderings = comparators[tenant.Tenant]{
		"id":           byString(func(t tenant.Tenant) string { return t.ID }),
		"name":         byString(func(t tenant.Tenant) string { return t.Name }),
		"email":        byString(func(t tenant.Tenant) string { return t.Email }),
		"status":       byString(func(t tenant.Tenant) string { return t.Status }),
		"unit_number":  byString(func(t tenant.Tenant) string { return t.UnitNumber }),
		"property":     byString(func(t tenant.Tenant) string { return t.PropertyName }),
		"monthly_rent": byNumber(func(t tenant.Tenant) core.Money { return t.MonthlyRent }),
		"balance":      byNumber(func(t tenant.Tenant) core.Money { return t.Balance }),
		"move_in_date": byTime(func(t tenant.Tenant) time.Time { return t.MoveInDate }),
		"created_at":   byTime(func(t tenant.Tenant) time.Time { return t.CreatedAt }),
	}

	leaseOrderings = comparators[tenant.Lease]{
		"id":           byString(func(l tenant.Lease) string { return l.ID }),
		"start_date":   byTime(func(l tenant.Lease) time.Time { return l.StartDate }),
		"end_date":     byTime(func(l tenant.Lease) time.Time { return l.EndDate }),
		"monthly_rent": byNumber(func(l tenant.Lease) core.Money { return l.MonthlyRent }),
		"created_at":   byTime(func(l tenant.Lease) time.Time { return l.CreatedAt }),
	}
)

type tenantRepository struct {
	db *DB
}

var _ tenant.Repository = (*tenantRepository)(nil)

func NewTenantRepository(db *DB) tenant.Repository {
	return &tenantRepository{db: db}
}

// the joined fields are never stored
func (repo *tenantRepository) save(tx *txn, t tenant.Tenant) error {
	t.PropertyName, t.UnitNumber = "", ""
	return put(tx, repo.db.tenants, t.ID, t)
}

func (repo *tenantRepository) joined(t tenant.Tenant) tenant.Tenant {
	repo.db.read(func() { repo.db.joinTenant(&t) })
	return t
}

func (repo *tenantRepository) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	t.ID = newID(t.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return repo.save(tx, t) }); err != nil {
		return tenant.Tenant{}, err
	}
	return repo.joined(t), nil
}

func (repo *tenantRepository) QueryTenants(ctx context.Context, filter *tenant.QueryFilter, orderings []core.DBOrdering) ([]tenant.Tenant, error) {
	var tenants []tenant.Tenant
	repo.db.read(func() {
		tenants = repo.db.tenants.filter(func(t tenant.Tenant) bool {
			switch {
			case !core.StringIn(t.Status, filter.Statuses):
				return false
			case filter.PropertyID != "" && t.PropertyID != filter.PropertyID:
				return false
			case filter.UnitID != "" && t.UnitID != filter.UnitID:
				return false
			case filter.ScreeningStatus != "" && t.Screening.Status != filter.ScreeningStatus:
				return false
			case len(filter.IDs) > 0 && !core.StringIn(t.ID, filter.IDs):
				return false
			}
			return core.InScope(t.PropertyID, filter.PropertyIDs)
		})
		res := tenants[:0]
		for _, t := range tenants {
			repo.db.joinTenant(&t)
			if core.ContainsFold(filter.Search, t.Name, t.Email, t.UnitNumber) {
				res = append(res, t)
			}
		}
		tenants = res
	})
	sortRows(tenants, tenantOrderings, orderings, core.DBOrdering{Field: "name", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	return tenants, nil
}

func (repo *tenantRepository) GetTenant(ctx context.Context, id string) (tenant.Tenant, error) {
	var (
		t  tenant.Tenant
		ok bool
	)
	repo.db.read(func() {
		if t, ok = repo.db.tenants.get(id); ok {
			repo.db.joinTenant(&t)
		}
	})
	if !ok {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	return t, nil
}

func (repo *tenantRepository) UpdateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.tenants.has(t.ID) {
			return tenant.ErrNotFound
		}
		return repo.save(tx, t)
	})
	if err != nil {
		return tenant.Tenant{}, err
	}
	return repo.joined(t), nil
}

func (repo *tenantRepository) AdjustTenantBalance(ctx context.Context, id string, delta core.Money, at time.Time) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := repo.db.write(ctx, func(tx *txn) error {
		var ok bool
		if t, ok = repo.db.tenants.get(id); !ok {
			return tenant.ErrNotFound
		}
		t.Balance += delta
		t.UpdatedAt = at
		return repo.save(tx, t)
	})
	if err != nil {
		return tenant.Tenant{}, err
	}
	return repo.joined(t), nil
}

func (repo *tenantRepository) MoveIn(ctx context.Context, t tenant.Tenant, l tenant.Lease) (tenant.Tenant, tenant.Lease, error) {
	l.ID = newID(l.ID)
	err := repo.db.write(ctx, func(tx *txn) error {
		stored, ok := repo.db.tenants.get(t.ID)
		if !ok {
			return tenant.ErrNotFound
		}
		if stored.Status != tenant.StatusApplicant {
			return tenant.ErrNotApplicant
		}
		unit, ok := repo.db.units.get(t.UnitID)
		if !ok {
			return property.ErrUnitNotFound
		}
		if unit.Status != property.UnitVacant {
			return tenant.ErrUnitNotVacant
		}

		unit.SetStatus(property.UnitOccupied, t.UpdatedAt)
		if err := put(tx, repo.db.units, unit.ID, unit); err != nil {
			return err
		}
		if err := put(tx, repo.db.leases, l.ID, l); err != nil {
			return err
		}
		return repo.save(tx, t)
	})
	if err != nil {
		return tenant.Tenant{}, tenant.Lease{}, err
	}
	return repo.joined(t), l, nil
}

func (repo *tenantRepository) DeleteTenant(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.tenants.has(id) {
			return tenant.ErrNotFound
		}
		remove(tx, repo.db.tenants, id)
		for lid, l := range repo.db.leases.rows {
			if l.TenantID == id {
				remove(tx, repo.db.leases, lid)
			}
		}
		return nil
	})
}

// Leases

func (repo *tenantRepository) CreateLease(ctx context.Context, l tenant.Lease) (tenant.Lease, error) {
	l.ID = newID(l.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.leases, l.ID, l) }); err != nil {
		return tenant.Lease{}, err
	}
	return l, nil
}

// QueryLeases filters on LeaseFilter.TenantID, LeaseFilter.PropertyID & LeaseFilter.PropertyIDs.
// Statuses are derived from dates, so the service filters on them.
func (repo *tenantRepository) QueryLeases(ctx context.Context, filter *tenant.LeaseFilter, orderings []core.DBOrdering) ([]tenant.Lease, error) {
	var leases []tenant.Lease
	repo.db.read(func() {
		leases = repo.db.leases.filter(func(l tenant.Lease) bool {
			switch {
			case filter.TenantID != "" && l.TenantID != filter.TenantID:
				return false
			case filter.PropertyID != "" && l.PropertyID != filter.PropertyID:
				return false
			}
			return core.InScope(l.PropertyID, filter.PropertyIDs)
		})
	})
	sortRows(leases, leaseOrderings, orderings, core.DBOrdering{Field: "start_date"}, core.DBOrdering{Field: "id", Ascending: true})
	return leases, nil
}

func (repo *tenantRepository) GetLease(ctx context.Context, id string) (tenant.Lease, error) {
	var (
		l  tenant.Lease
		ok bool
	)
	repo.db.read(func() { l, ok = repo.db.leases.get(id) })
	if !ok {
		return tenant.Lease{}, tenant.ErrLeaseNotFound
	}
	return l, nil
}

func (repo *tenantRepository) UpdateLease(ctx context.Context, l tenant.Lease) (tenant.Lease, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.leases.has(l.ID) {
			return tenant.ErrLeaseNotFound
		}
		return put(tx, repo.db.leases, l.ID, l)
	})
	if err != nil {
		return tenant.Lease{}, err
	}
	return l, nil
}
