package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/maintenance"
)

var (
	vendorOrderings = comparators[maintenance.Vendor]{
		"id":         byString(func(v maintenance.Vendor) string { return v.ID }),
		"name":       byString(func(v maintenance.Vendor) string { return v.Name }),
		"company":    byString(func(v maintenance.Vendor) string { return v.Company }),
		"trade":      byString(func(v maintenance.Vendor) string { return v.Trade }),
		"rating":     byNumber(func(v maintenance.Vendor) float64 { return v.Rating }),
		"created_at": byTime(func(v maintenance.Vendor) time.Time { return v.CreatedAt }),
	}

	requestOrderings = comparators[maintenance.Request]{
		"id":             byString(func(r maintenance.Request) string { return r.ID }),
		"title":          byString(func(r maintenance.Request) string { return r.Title }),
		"status":         byString(func(r maintenance.Request) string { return r.Status }),
		"category":       byString(func(r maintenance.Request) string { return r.Category }),
		"priority":       byNumber(func(r maintenance.Request) int { return priorityRank(r.Priority) }),
		"estimated_cost": byNumber(func(r maintenance.Request) core.Money { return r.EstimatedCost }),
		"created_at":     byTime(func(r maintenance.Request) time.Time { return r.CreatedAt }),
		"updated_at":     byTime(func(r maintenance.Request) time.Time { return r.UpdatedAt }),
	}
)

// priorityRank grows with urgency.
func priorityRank(priority string) int {
	for i, p := range maintenance.Priorities {
		if p == priority {
			return i
		}
	}
	return -1
}

type maintenanceRepository struct {
	db *DB
}

var _ maintenance.Repository = (*maintenanceRepository)(nil)

func NewMaintenanceRepository(db *DB) maintenance.Repository {
	return &maintenanceRepository{db: db}
}

// Vendors

func (repo *maintenanceRepository) CreateVendor(ctx context.Context, v maintenance.Vendor) (maintenance.Vendor, error) {
	v.ID = newID(v.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.vendors, v.ID, v) }); err != nil {
		return maintenance.Vendor{}, err
	}
	return v, nil
}

func (repo *maintenanceRepository) QueryVendors(ctx context.Context, filter *maintenance.VendorFilter, orderings []core.DBOrdering) ([]maintenance.Vendor, error) {
	var vendors []maintenance.Vendor
	repo.db.read(func() {
		vendors = repo.db.vendors.filter(func(v maintenance.Vendor) bool {
			switch {
			case !core.ContainsFold(filter.Search, v.Name, v.Company, v.Email):
				return false
			case !core.StringIn(v.Trade, filter.Trades):
				return false
			case filter.Preferred != nil && v.Preferred != *filter.Preferred:
				return false
			}
			return len(filter.IDs) == 0 || core.StringIn(v.ID, filter.IDs)
		})
	})
	sortRows(vendors, vendorOrderings, orderings, core.DBOrdering{Field: "name", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	return vendors, nil
}

func (repo *maintenanceRepository) GetVendor(ctx context.Context, id string) (maintenance.Vendor, error) {
	var (
		v  maintenance.Vendor
		ok bool
	)
	repo.db.read(func() { v, ok = repo.db.vendors.get(id) })
	if !ok {
		return maintenance.Vendor{}, maintenance.ErrVendorNotFound
	}
	return v, nil
}

func (repo *maintenanceRepository) UpdateVendor(ctx context.Context, v maintenance.Vendor) (maintenance.Vendor, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.vendors.has(v.ID) {
			return maintenance.ErrVendorNotFound
		}
		return put(tx, repo.db.vendors, v.ID, v)
	})
	if err != nil {
		return maintenance.Vendor{}, err
	}
	return v, nil
}

func (repo *maintenanceRepository) DeleteVendor(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.vendors.has(id) {
			return maintenance.ErrVendorNotFound
		}
		remove(tx, repo.db.vendors, id)
		return nil
	})
}

// Requests

func (repo *maintenanceRepository) CreateRequest(ctx context.Context, r maintenance.Request) (maintenance.Request, error) {
	r.ID = newID(r.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.requests, r.ID, r) }); err != nil {
		return maintenance.Request{}, err
	}
	return r, nil
}

func (repo *maintenanceRepository) QueryRequests(ctx context.Context, filter *maintenance.QueryFilter, orderings []core.DBOrdering) ([]maintenance.Request, error) {
	var requests []maintenance.Request
	repo.db.read(func() {
		requests = repo.db.requests.filter(func(r maintenance.Request) bool {
			switch {
			case !core.ContainsFold(filter.Search, r.Title, r.Description):
				return false
			case !core.StringIn(r.Status, filter.Statuses):
				return false
			case !core.StringIn(r.Priority, filter.Priorities):
				return false
			case filter.PropertyID != "" && r.PropertyID != filter.PropertyID:
				return false
			case filter.VendorID != "" && r.VendorID != filter.VendorID:
				return false
			case filter.TenantID != "" && r.TenantID != filter.TenantID:
				return false
			}
			return core.InScope(r.PropertyID, filter.PropertyIDs)
		})
	})
	sortRows(requests, requestOrderings, orderings, core.DBOrdering{Field: "created_at"}, core.DBOrdering{Field: "id", Ascending: true})
	return requests, nil
}

func (repo *maintenanceRepository) GetRequest(ctx context.Context, id string) (maintenance.Request, error) {
	var (
		r  maintenance.Request
		ok bool
	)
	repo.db.read(func() { r, ok = repo.db.requests.get(id) })
	if !ok {
		return maintenance.Request{}, maintenance.ErrNotFound
	}
	return r, nil
}

func (repo *maintenanceRepository) UpdateRequest(ctx context.Context, r maintenance.Request) (maintenance.Request, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.requests.has(r.ID) {
			return maintenance.ErrNotFound
		}
		return put(tx, repo.db.requests, r.ID, r)
	})
	if err != nil {
		return maintenance.Request{}, err
	}
	return r, nil
}

func (repo *maintenanceRepository) DeleteRequest(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.requests.has(id) {
			return maintenance.ErrNotFound
		}
		remove(tx, repo.db.requests, id)
		return nil
	})
}
