package property

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kodi/core"
)

// Property types
const (
	TypeResidential = "residential"
	TypeCommercial  = "commercial"
	TypeMixed       = "mixed"
)

// Unit statuses
const (
	UnitVacant      = "vacant"
	UnitOccupied    = "occupied"
	UnitNotice      = "notice" // occupied, tenant gave notice
	UnitUnavailable = "unavailable"
)

var (
	Types        = []string{TypeResidential, TypeCommercial, TypeMixed}
	UnitStatuses = []string{UnitVacant, UnitOccupied, UnitNotice, UnitUnavailable}

	// Marketplaces are the listing sites a vacant unit can be syndicated to.
	Marketplaces = []string{"zillow", "apartments", "trulia", "realtor", "craigslist"}
)

type Property struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ZipCode   string    `json:"zip_code"`
	OwnerID   string    `json:"owner_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Geohash   string    `json:"geohash"`
	YearBuilt int       `json:"year_built,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p Property) HasLocation() bool {
	return p.Latitude != 0 || p.Longitude != 0
}

type Building struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Name       string    `json:"name"`
	Floors     int       `json:"floors"`
	CreatedAt  time.Time `json:"created_at"`
}

type Listing struct {
	Published    bool      `json:"published"`
	Marketplaces []string  `json:"marketplaces"`
	PublishedAt  time.Time `json:"published_at"`
}

type Unit struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"property_id"`
	BuildingID string     `json:"building_id,omitempty"`
	Number     string     `json:"number"`
	Bedrooms   int        `json:"bedrooms"`
	Bathrooms  float64    `json:"bathrooms"`
	SquareFeet int        `json:"square_feet"`
	MarketRent core.Money `json:"market_rent"`
	Status     string     `json:"status"`
	Listing    Listing    `json:"listing"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SetStatus changes the status of the unit. Occupied and unavailable units are taken off the marketplaces.
func (u *Unit) SetStatus(status string, at time.Time) {
	u.Status = status
	if status == UnitOccupied || status == UnitUnavailable {
		u.Listing = Listing{Marketplaces: []string{}}
	}
	u.UpdatedAt = at
}

// IsOccupied reports whether a tenant lives in the unit (tenants on notice still occupy it).
func (u Unit) IsOccupied() bool {
	return u.Status == UnitOccupied || u.Status == UnitNotice
}

// Occupancy is the share of occupied units over a set of units.
type Occupancy struct {
	Units    int     `json:"units"`
	Occupied int     `json:"occupied"`
	Vacant   int     `json:"vacant"`
	Rate     float64 `json:"occupancy_rate"` // percentage
}

func NewOccupancy(units []Unit) Occupancy {
	var occ Occupancy
	for _, u := range units {
		occ.Units++
		if u.IsOccupied() {
			occ.Occupied++
		} else if u.Status == UnitVacant {
			occ.Vacant++
		}
	}
	occ.Rate = core.Percent(float64(occ.Occupied), float64(occ.Units))
	return occ
}

// SumOccupancy adds up occupancies and recomputes the rate.
func SumOccupancy(occs ...Occupancy) Occupancy {
	var total Occupancy
	for _, o := range occs {
		total.Units += o.Units
		total.Occupied += o.Occupied
		total.Vacant += o.Vacant
	}
	total.Rate = core.Percent(float64(total.Occupied), float64(total.Units))
	return total
}

// Summary is a Property along with its inventory counts.
type Summary struct {
	Property
	Buildings int `json:"building_count"`
	Occupancy
}

// NewProperty contains information needed to create or replace a Property.
type NewProperty struct {
	Name      string  `json:"name" validate:"required"`
	Type      string  `json:"type" validate:"required,propertytype"`
	Address   string  `json:"address" validate:"required"`
	City      string  `json:"city" validate:"required"`
	State     string  `json:"state"`
	ZipCode   string  `json:"zip_code"`
	OwnerID   string  `json:"owner_id"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	YearBuilt int     `json:"year_built" validate:"omitempty,min=1800,max=2100"`
}

func (np *NewProperty) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Type = core.CleanString(np.Type, true /* lower */)
	np.Address = core.CleanString(np.Address)
	np.City = core.CleanString(np.City)
	np.State = core.CleanString(np.State)
	np.ZipCode = core.CleanString(np.ZipCode)
	np.OwnerID = core.CleanString(np.OwnerID)
	return validate.Struct(np)
}

type NewBuilding struct {
	Name   string `json:"name" validate:"required"`
	Floors int    `json:"floors" validate:"min=0,max=200"`
}

func (nb *NewBuilding) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	return validate.Struct(nb)
}

// NewUnit contains information needed to create or replace a Unit.
type NewUnit struct {
	BuildingID string     `json:"building_id"`
	Number     string     `json:"number" validate:"required"`
	Bedrooms   int        `json:"bedrooms" validate:"min=0,max=50"`
	Bathrooms  float64    `json:"bathrooms" validate:"min=0,max=50"`
	SquareFeet int        `json:"square_feet" validate:"min=0"`
	MarketRent core.Money `json:"market_rent" validate:"min=0"`
	Status     string     `json:"status" validate:"omitempty,unitstatus"`
}

func (nu *NewUnit) Validate(validate *validator.Validate) error {
	nu.BuildingID = core.CleanString(nu.BuildingID)
	nu.Number = core.CleanString(nu.Number)
	nu.Status = core.CleanString(nu.Status, true /* lower */)
	return validate.Struct(nu)
}

type PublishListing struct {
	Marketplaces []string `json:"marketplaces" validate:"required,min=1,dive,marketplace"`
}

func (pl *PublishListing) Validate(validate *validator.Validate) error {
	for i, m := range pl.Marketplaces {
		pl.Marketplaces[i] = core.CleanString(m, true /* lower */)
	}
	return validate.Struct(pl)
}

type QueryFilter struct {
	Search  string   `query:"search"` // name, address or city
	Types   []string `query:"type"`
	OwnerID string   `query:"owner_id"`
	City    string   `query:"city"`
	IDs     []string `query:"id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.OwnerID = core.CleanString(qf.OwnerID)
	qf.City = core.CleanString(qf.City)
}

type UnitFilter struct {
	Search      string   `query:"search"` // unit number
	PropertyIDs []string `query:"property_id"`
	BuildingID  string   `query:"building_id"`
	Statuses    []string `query:"status"`
	MinBedrooms int      `query:"min_bedrooms"`
	Listed      *bool    `query:"listed"`
}

func (uf *UnitFilter) Clean() {
	uf.Search = core.CleanString(uf.Search)
	uf.BuildingID = core.CleanString(uf.BuildingID)
}
