package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/property"
	"github.com/trezcool/kodi/core/tenant"
)

func cloneUnit(u property.Unit) property.Unit {
	u.Listing.Marketplaces = cloneStrings(u.Listing.Marketplaces)
	return u
}

var (
	propertyOrderings = comparators[property.Property]{
		"id":         byString(func(p property.Property) string { return p.ID }),
		"name":       byString(func(p property.Property) string { return p.Name }),
		"type":       byString(func(p property.Property) string { return p.Type }),
		"city":       byString(func(p property.Property) string { return p.City }),
		"year_built": byNumber(func(p property.Property) int { return p.YearBuilt }),
		"created_at": byTime(func(p property.Property) time.Time { return p.CreatedAt }),
	}

	unitOrderings = comparators[property.Unit]{
		"id":          byString(func(u property.Unit) string { return u.ID }),
		"number":      byString(func(u property.Unit) string { return u.Number }),
		"status":      byString(func(u property.Unit) string { return u.Status }),
		"bedrooms":    byNumber(func(u property.Unit) int { return u.Bedrooms }),
		"square_feet": byNumber(func(u property.Unit) int { return u.SquareFeet }),
		"market_rent": byNumber(func(u property.Unit) core.Money { return u.MarketRent }),
		"created_at":  byTime(func(u property.Unit) time.Time { return u.CreatedAt }),
	}
)

type propertyRepository struct {
	db *DB
}

var _ property.Repository = (*propertyRepository)(nil)

func NewPropertyRepository(db *DB) property.Repository {
	return &propertyRepository{db: db}
}

// Properties

func (repo *propertyRepository) CreateProperty(ctx context.Context, prop property.Property) (property.Property, error) {
	prop.ID = newID(prop.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.properties, prop.ID, prop) }); err != nil {
		return property.Property{}, err
	}
	return prop, nil
}

func (repo *propertyRepository) QueryProperties(ctx context.Context, filter *property.QueryFilter, orderings []core.DBOrdering) ([]property.Property, error) {
	var props []property.Property
	repo.db.read(func() {
		props = repo.db.properties.filter(func(p property.Property) bool {
			switch {
			case !core.ContainsFold(filter.Search, p.Name, p.Address, p.City):
				return false
			case !core.StringIn(p.Type, filter.Types):
				return false
			case filter.OwnerID != "" && p.OwnerID != filter.OwnerID:
				return false
			case filter.City != "" && !core.ContainsFold(filter.City, p.City):
				return false
			}
			return core.InScope(p.ID, filter.IDs)
		})
	})
	sortRows(props, propertyOrderings, orderings, core.DBOrdering{Field: "name", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	return props, nil
}

func (repo *propertyRepository) GetProperty(ctx context.Context, id string) (property.Property, error) {
	var (
		prop property.Property
		ok   bool
	)
	repo.db.read(func() { prop, ok = repo.db.properties.get(id) })
	if !ok {
		return property.Property{}, property.ErrNotFound
	}
	return prop, nil
}

func (repo *propertyRepository) UpdateProperty(ctx context.Context, prop property.Property) (property.Property, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.properties.has(prop.ID) {
			return property.ErrNotFound
		}
		return put(tx, repo.db.properties, prop.ID, prop)
	})
	if err != nil {
		return property.Property{}, err
	}
	return prop, nil
}

// DeleteProperty also deletes its buildings, units, past tenants (with their leases) and maintenance requests.
// Transactions & documents are kept as history.
func (repo *propertyRepository) DeleteProperty(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.properties.has(id) {
			return property.ErrNotFound
		}
		remove(tx, repo.db.properties, id)
		for bid, b := range repo.db.buildings.rows {
			if b.PropertyID == id {
				remove(tx, repo.db.buildings, bid)
			}
		}
		for uid, u := range repo.db.units.rows {
			if u.PropertyID == id {
				remove(tx, repo.db.units, uid)
			}
		}
		for tid, t := range repo.db.tenants.rows {
			if t.PropertyID == id {
				remove(tx, repo.db.tenants, tid)
			}
		}
		for lid, l := range repo.db.leases.rows {
			if l.PropertyID == id {
				remove(tx, repo.db.leases, lid)
			}
		}
		for rid, r := range repo.db.requests.rows {
			if r.PropertyID == id {
				remove(tx, repo.db.requests, rid)
			}
		}
		return nil
	})
}

// Buildings

func (repo *propertyRepository) CreateBuilding(ctx context.Context, b property.Building) (property.Building, error) {
	b.ID = newID(b.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.buildings, b.ID, b) }); err != nil {
		return property.Building{}, err
	}
	return b, nil
}

func (repo *propertyRepository) QueryBuildings(ctx context.Context, propertyID string) ([]property.Building, error) {
	var buildings []property.Building
	repo.db.read(func() {
		buildings = repo.db.buildings.filter(func(b property.Building) bool {
			return propertyID == "" || b.PropertyID == propertyID
		})
	})
	sortRows(buildings, comparators[property.Building]{
		"name": byString(func(b property.Building) string { return b.Name }),
		"id":   byString(func(b property.Building) string { return b.ID }),
	}, nil, core.DBOrdering{Field: "name", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	return buildings, nil
}

func (repo *propertyRepository) GetBuilding(ctx context.Context, id string) (property.Building, error) {
	var (
		b  property.Building
		ok bool
	)
	repo.db.read(func() { b, ok = repo.db.buildings.get(id) })
	if !ok {
		return property.Building{}, property.ErrBuildingNotFound
	}
	return b, nil
}

func (repo *propertyRepository) UpdateBuilding(ctx context.Context, b property.Building) (property.Building, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.buildings.has(b.ID) {
			return property.ErrBuildingNotFound
		}
		return put(tx, repo.db.buildings, b.ID, b)
	})
	if err != nil {
		return property.Building{}, err
	}
	return b, nil
}

func (repo *propertyRepository) DeleteBuilding(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.buildings.has(id) {
			return property.ErrBuildingNotFound
		}
		remove(tx, repo.db.buildings, id)
		return nil
	})
}

// Units

func (repo *propertyRepository) CreateUnit(ctx context.Context, u property.Unit) (property.Unit, error) {
	u.ID = newID(u.ID)
	if err := repo.db.write(ctx, func(tx *txn) error { return put(tx, repo.db.units, u.ID, u) }); err != nil {
		return property.Unit{}, err
	}
	return u, nil
}

func (repo *propertyRepository) QueryUnits(ctx context.Context, filter *property.UnitFilter, orderings []core.DBOrdering) ([]property.Unit, error) {
	var units []property.Unit
	repo.db.read(func() {
		units = repo.db.units.filter(func(u property.Unit) bool {
			switch {
			case !core.InScope(u.PropertyID, filter.PropertyIDs):
				return false
			case filter.BuildingID != "" && u.BuildingID != filter.BuildingID:
				return false
			case !core.StringIn(u.Status, filter.Statuses):
				return false
			case u.Bedrooms < filter.MinBedrooms:
				return false
			case filter.Listed != nil && u.Listing.Published != *filter.Listed:
				return false
			}
			return core.ContainsFold(filter.Search, u.Number)
		})
	})
	sortRows(units, unitOrderings, orderings, core.DBOrdering{Field: "number", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	return units, nil
}

func (repo *propertyRepository) GetUnit(ctx context.Context, id string) (property.Unit, error) {
	var (
		u  property.Unit
		ok bool
	)
	repo.db.read(func() { u, ok = repo.db.units.get(id) })
	if !ok {
		return property.Unit{}, property.ErrUnitNotFound
	}
	return u, nil
}

func (repo *propertyRepository) UpdateUnit(ctx context.Context, u property.Unit) (property.Unit, error) {
	err := repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.units.has(u.ID) {
			return property.ErrUnitNotFound
		}
		return put(tx, repo.db.units, u.ID, u)
	})
	if err != nil {
		return property.Unit{}, err
	}
	return u, nil
}

func (repo *propertyRepository) DeleteUnit(ctx context.Context, id string) error {
	return repo.db.write(ctx, func(tx *txn) error {
		if !repo.db.units.has(id) {
			return property.ErrUnitNotFound
		}
		remove(tx, repo.db.units, id)
		return nil
	})
}

func (repo *propertyRepository) OwnerExists(ctx context.Context, ownerID string) (bool, error) {
	var ok bool
	repo.db.read(func() { ok = repo.db.owners.has(ownerID) })
	return ok, nil
}

func (repo *propertyRepository) CountOccupants(ctx context.Context, propertyID, unitID string) (int, error) {
	var n int
	repo.db.read(func() {
		for _, t := range repo.db.tenants.rows {
			if t.PropertyID == propertyID && (unitID == "" || t.UnitID == unitID) && t.IsCurrent() {
				n++
			}
		}
	})
	return n, nil
}

// joinTenant fills the property name & unit number of a tenant. Must be called under the lock.
func (db *DB) joinTenant(t *tenant.Tenant) {
	if p, ok := db.properties.rows[t.PropertyID]; ok {
		t.PropertyName = p.Name
	}
	if u, ok := db.units.rows[t.UnitID]; ok {
		t.UnitNumber = u.Number
	}
}
