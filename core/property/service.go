package property

import (
	"context"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("property")
	ErrBuildingNotFound = core.NewNotFoundError("building")
	ErrUnitNotFound     = core.NewNotFoundError("unit")

	errOwnerNotFound    = "owner not found"
	errBuildingMismatch = "building does not belong to this property"
	errUnitNumberExists = "a unit with this number already exists in this property"
	errHasOccupants     = errors.New("cannot delete while tenants occupy it")
	errBuildingHasUnits = errors.New("cannot delete a building that still has units")
	errNotListable      = errors.New("only vacant units or units on notice can be listed")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateProperty(ctx context.Context, prop Property) (Property, error)
		// QueryProperties applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Property.Name, Property.Address or Property.City.
		QueryProperties(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Property, error)
		GetProperty(ctx context.Context, id string) (Property, error)
		UpdateProperty(ctx context.Context, prop Property) (Property, error)
		// DeleteProperty deletes the property along with its buildings and units.
		DeleteProperty(ctx context.Context, id string) error

		CreateBuilding(ctx context.Context, b Building) (Building, error)
		QueryBuildings(ctx context.Context, propertyID string) ([]Building, error)
		GetBuilding(ctx context.Context, id string) (Building, error)
		UpdateBuilding(ctx context.Context, b Building) (Building, error)
		DeleteBuilding(ctx context.Context, id string) error

		CreateUnit(ctx context.Context, u Unit) (Unit, error)
		QueryUnits(ctx context.Context, filter *UnitFilter, orderings []core.DBOrdering) ([]Unit, error)
		GetUnit(ctx context.Context, id string) (Unit, error)
		UpdateUnit(ctx context.Context, u Unit) (Unit, error)
		DeleteUnit(ctx context.Context, id string) error

		OwnerExists(ctx context.Context, ownerID string) (bool, error)
		// CountOccupants counts the current (active or on notice) tenants of a property, or of one of its units.
		CountOccupants(ctx context.Context, propertyID, unitID string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, np NewProperty) (Property, error)
		Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Property, error)
		QuerySummaries(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Summary, error)
		Nearby(ctx context.Context, lat, lng float64, precision uint) ([]Property, error)
		GetByID(ctx context.Context, id string) (Property, error)
		GetSummary(ctx context.Context, id string) (Summary, error)
		Update(ctx context.Context, prop Property, np NewProperty) (Property, error)
		Delete(ctx context.Context, id string) error

		CreateBuilding(ctx context.Context, propertyID string, nb NewBuilding) (Building, error)
		QueryBuildings(ctx context.Context, propertyID string) ([]Building, error)
		GetBuilding(ctx context.Context, id string) (Building, error)
		UpdateBuilding(ctx context.Context, b Building, nb NewBuilding) (Building, error)
		DeleteBuilding(ctx context.Context, id string) error

		CreateUnit(ctx context.Context, propertyID string, nu NewUnit) (Unit, error)
		QueryUnits(ctx context.Context, filter *UnitFilter, orderings []core.DBOrdering) ([]Unit, error)
		GetUnit(ctx context.Context, id string) (Unit, error)
		UpdateUnit(ctx context.Context, u Unit, nu NewUnit) (Unit, error)
		SetUnitStatus(ctx context.Context, id, status string) (Unit, error)
		DeleteUnit(ctx context.Context, id string) error
		PublishListing(ctx context.Context, unitID string, pl PublishListing) (Unit, error)
		UnpublishListing(ctx context.Context, unitID string) (Unit, error)

		Occupancy(ctx context.Context, propertyIDs ...string) (Occupancy, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &service{repo: repo}
}

func (svc *service) checkOwner(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return nil
	}
	exists, err := svc.repo.OwnerExists(ctx, ownerID)
	if err != nil {
		return errors.Wrap(err, "checking owner")
	}
	if !exists {
		return core.NewFieldError("owner_id", errOwnerNotFound)
	}
	return nil
}

func (svc *service) Create(ctx context.Context, np NewProperty) (Property, error) {
	if err := svc.checkOwner(ctx, np.OwnerID); err != nil {
		return Property{}, err
	}
	now := nowFunc().UTC()
	prop := Property{CreatedAt: now}
	np.apply(&prop, now)
	return svc.repo.CreateProperty(ctx, prop)
}

func (np NewProperty) apply(prop *Property, now time.Time) {
	prop.Name = np.Name
	prop.Type = np.Type
	prop.Address = np.Address
	prop.City = np.City
	prop.State = np.State
	prop.ZipCode = np.ZipCode
	prop.OwnerID = np.OwnerID
	prop.Latitude = np.Latitude
	prop.Longitude = np.Longitude
	prop.YearBuilt = np.YearBuilt
	prop.Geohash = ""
	if prop.HasLocation() {
		prop.Geohash = encodeGeohash(prop.Latitude, prop.Longitude)
	}
	prop.UpdatedAt = now
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Property, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.QueryProperties(ctx, filter, orderings)
}

func (svc *service) QuerySummaries(ctx context.Context, filter *QueryFilter, orderings []core.DBOrdering) ([]Summary, error) {
	props, err := svc.Query(ctx, filter, orderings)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(props))
	for _, prop := range props {
		summary, err := svc.summarize(ctx, prop)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (svc *service) summarize(ctx context.Context, prop Property) (Summary, error) {
	buildings, err := svc.repo.QueryBuildings(ctx, prop.ID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying buildings")
	}
	units, err := svc.repo.QueryUnits(ctx, &UnitFilter{PropertyIDs: []string{prop.ID}}, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying units")
	}
	return Summary{Property: prop, Buildings: len(buildings), Occupancy: NewOccupancy(units)}, nil
}

// Nearby returns the located properties in the geohash cell of (lat, lng), or its neighbours, sorted by distance.
func (svc *service) Nearby(ctx context.Context, lat, lng float64, precision uint) ([]Property, error) {
	if precision == 0 || precision > storedPrecision {
		precision = DefaultNearbyPrecision
	}
	props, err := svc.repo.QueryProperties(ctx, new(QueryFilter), nil)
	if err != nil {
		return nil, err
	}
	prefixes := nearbyPrefixes(lat, lng, precision)

	nearby := make([]Property, 0)
	for _, prop := range props {
		if !prop.HasLocation() || len(prop.Geohash) < int(precision) {
			continue
		}
		if core.StringIn(prop.Geohash[:precision], prefixes) {
			nearby = append(nearby, prop)
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return distanceKm(lat, lng, nearby[i].Latitude, nearby[i].Longitude) <
			distanceKm(lat, lng, nearby[j].Latitude, nearby[j].Longitude)
	})
	return nearby, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Property, error) {
	return svc.repo.GetProperty(ctx, id)
}

func (svc *service) GetSummary(ctx context.Context, id string) (Summary, error) {
	prop, err := svc.repo.GetProperty(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return svc.summarize(ctx, prop)
}

func (svc *service) Update(ctx context.Context, prop Property, np NewProperty) (Property, error) {
	if np.OwnerID != prop.OwnerID {
		if err := svc.checkOwner(ctx, np.OwnerID); err != nil {
			return Property{}, err
		}
	}
	np.apply(&prop, nowFunc().UTC())
	return svc.repo.UpdateProperty(ctx, prop)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetProperty(ctx, id); err != nil {
		return err
	}
	n, err := svc.repo.CountOccupants(ctx, id, "")
	if err != nil {
		return errors.Wrap(err, "counting occupants")
	}
	if n > 0 {
		return core.NewValidationError(errHasOccupants)
	}
	return svc.repo.DeleteProperty(ctx, id)
}

// Buildings

func (svc *service) CreateBuilding(ctx context.Context, propertyID string, nb NewBuilding) (Building, error) {
	if _, err := svc.repo.GetProperty(ctx, propertyID); err != nil {
		return Building{}, err
	}
	return svc.repo.CreateBuilding(ctx, Building{
		PropertyID: propertyID,
		Name:       nb.Name,
		Floors:     nb.Floors,
		CreatedAt:  nowFunc().UTC(),
	})
}

func (svc *service) QueryBuildings(ctx context.Context, propertyID string) ([]Building, error) {
	return svc.repo.QueryBuildings(ctx, propertyID)
}

func (svc *service) GetBuilding(ctx context.Context, id string) (Building, error) {
	return svc.repo.GetBuilding(ctx, id)
}

func (svc *service) UpdateBuilding(ctx context.Context, b Building, nb NewBuilding) (Building, error) {
	b.Name = nb.Name
	b.Floors = nb.Floors
	return svc.repo.UpdateBuilding(ctx, b)
}

func (svc *service) DeleteBuilding(ctx context.Context, id string) error {
	b, err := svc.repo.GetBuilding(ctx, id)
	if err != nil {
		return err
	}
	units, err := svc.repo.QueryUnits(ctx, &UnitFilter{PropertyIDs: []string{b.PropertyID}, BuildingID: b.ID}, nil)
	if err != nil {
		return errors.Wrap(err, "querying units")
	}
	if len(units) > 0 {
		return core.NewValidationError(errBuildingHasUnits)
	}
	return svc.repo.DeleteBuilding(ctx, id)
}

// Units

func (svc *service) checkUnit(ctx context.Context, propertyID string, nu NewUnit, excludeID string) error {
	if nu.BuildingID != "" {
		b, err := svc.repo.GetBuilding(ctx, nu.BuildingID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding building")
		}
		if err != nil || b.PropertyID != propertyID {
			return core.NewFieldError("building_id", errBuildingMismatch)
		}
	}
	units, err := svc.repo.QueryUnits(ctx, &UnitFilter{PropertyIDs: []string{propertyID}}, nil)
	if err != nil {
		return errors.Wrap(err, "querying units")
	}
	for _, u := range units {
		if u.ID != excludeID && u.BuildingID == nu.BuildingID && core.CleanString(u.Number, true) == core.CleanString(nu.Number, true) {
			return core.NewFieldError("number", errUnitNumberExists)
		}
	}
	return nil
}

func (svc *service) CreateUnit(ctx context.Context, propertyID string, nu NewUnit) (Unit, error) {
	if _, err := svc.repo.GetProperty(ctx, propertyID); err != nil {
		return Unit{}, err
	}
	if err := svc.checkUnit(ctx, propertyID, nu, ""); err != nil {
		return Unit{}, err
	}
	if nu.Status == "" {
		nu.Status = UnitVacant
	}
	now := nowFunc().UTC()
	u := Unit{
		PropertyID: propertyID,
		BuildingID: nu.BuildingID,
		Number:     nu.Number,
		Bedrooms:   nu.Bedrooms,
		Bathrooms:  nu.Bathrooms,
		SquareFeet: nu.SquareFeet,
		MarketRent: nu.MarketRent,
		Status:     nu.Status,
		Listing:    Listing{Marketplaces: []string{}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateUnit(ctx, u)
}

func (svc *service) QueryUnits(ctx context.Context, filter *UnitFilter, orderings []core.DBOrdering) ([]Unit, error) {
	if filter == nil {
		filter = new(UnitFilter)
	}
	return svc.repo.QueryUnits(ctx, filter, orderings)
}

func (svc *service) GetUnit(ctx context.Context, id string) (Unit, error) {
	return svc.repo.GetUnit(ctx, id)
}

func (svc *service) UpdateUnit(ctx context.Context, u Unit, nu NewUnit) (Unit, error) {
	if err := svc.checkUnit(ctx, u.PropertyID, nu, u.ID); err != nil {
		return Unit{}, err
	}
	u.BuildingID = nu.BuildingID
	u.Number = nu.Number
	u.Bedrooms = nu.Bedrooms
	u.Bathrooms = nu.Bathrooms
	u.SquareFeet = nu.SquareFeet
	u.MarketRent = nu.MarketRent
	if nu.Status != "" && nu.Status != u.Status {
		return svc.setStatus(ctx, u, nu.Status)
	}
	u.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUnit(ctx, u)
}

func (svc *service) SetUnitStatus(ctx context.Context, id, status string) (Unit, error) {
	if !core.StringIn(status, UnitStatuses) {
		return Unit{}, core.NewFieldError("status", "invalid unit status")
	}
	u, err := svc.repo.GetUnit(ctx, id)
	if err != nil {
		return Unit{}, err
	}
	return svc.setStatus(ctx, u, status)
}

func (svc *service) setStatus(ctx context.Context, u Unit, status string) (Unit, error) {
	u.SetStatus(status, nowFunc().UTC())
	return svc.repo.UpdateUnit(ctx, u)
}

func (svc *service) DeleteUnit(ctx context.Context, id string) error {
	u, err := svc.repo.GetUnit(ctx, id)
	if err != nil {
		return err
	}
	n, err := svc.repo.CountOccupants(ctx, u.PropertyID, u.ID)
	if err != nil {
		return errors.Wrap(err, "counting occupants")
	}
	if n > 0 {
		return core.NewValidationError(errHasOccupants)
	}
	return svc.repo.DeleteUnit(ctx, id)
}

// PublishListing syndicates a unit to the given marketplaces. Only marketplaces names are recorded, nothing is pushed.
func (svc *service) PublishListing(ctx context.Context, unitID string, pl PublishListing) (Unit, error) {
	u, err := svc.repo.GetUnit(ctx, unitID)
	if err != nil {
		return Unit{}, err
	}
	if !(u.Status == UnitVacant || u.Status == UnitNotice) {
		return Unit{}, core.NewValidationError(errNotListable)
	}

	marketplaces := make([]string, 0, len(pl.Marketplaces))
	seen := make(map[string]bool, len(pl.Marketplaces))
	for _, m := range pl.Marketplaces {
		if !seen[m] {
			seen[m] = true
			marketplaces = append(marketplaces, m)
		}
	}
	sort.Strings(marketplaces)

	now := nowFunc().UTC()
	u.Listing = Listing{Published: true, Marketplaces: marketplaces, PublishedAt: now}
	u.UpdatedAt = now
	return svc.repo.UpdateUnit(ctx, u)
}

func (svc *service) UnpublishListing(ctx context.Context, unitID string) (Unit, error) {
	u, err := svc.repo.GetUnit(ctx, unitID)
	if err != nil {
		return Unit{}, err
	}
	u.Listing = Listing{Marketplaces: []string{}}
	u.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUnit(ctx, u)
}

// Occupancy computes the occupancy of the given properties, or of the whole portfolio when none is given.
func (svc *service) Occupancy(ctx context.Context, propertyIDs ...string) (Occupancy, error) {
	units, err := svc.repo.QueryUnits(ctx, &UnitFilter{PropertyIDs: propertyIDs}, nil)
	if err != nil {
		return Occupancy{}, errors.Wrap(err, "querying units")
	}
	return NewOccupancy(units), nil
}
